package game

import (
	"testing"
	"time"

	"github.com/cavazquez/pyao-server-sub005/internal/net"
)

func TestCastDamageSpellDeductsManaAndHurtsNPC(t *testing.T) {
	r := newRig(t)
	push := r.addPlayer(t, 1, "mage", 10, 10)
	golem := r.spawnNPC(t, 3, 12, 10)
	push.reset()

	if !r.spell.Cast(r.ctx, 1, 1, 12, 10, net.NewSender(push)) {
		t.Fatal("cast refused with full mana and a valid target")
	}

	stats, err := r.players.GetStats(r.ctx, 1)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.MinMana != 90 {
		t.Fatalf("mana = %d, want 90 after a 10-cost cast", stats.MinMana)
	}
	// 5..5 roll + INT 18/5 = 8
	if got := golem.HP(); got != 10000-8 {
		t.Fatalf("golem hp = %d, want %d", got, 10000-8)
	}
	if len(push.frames) == 0 {
		t.Fatal("caster got no mana update")
	}
}

func TestCastRefusedWithoutMana(t *testing.T) {
	r := newRig(t)
	push := r.addPlayer(t, 1, "mage", 10, 10)
	golem := r.spawnNPC(t, 3, 12, 10)
	if err := r.players.UpdateMana(r.ctx, 1, 3); err != nil {
		t.Fatalf("set mana: %v", err)
	}

	if r.spell.Cast(r.ctx, 1, 1, 12, 10, net.NewSender(push)) {
		t.Fatal("cast succeeded with 3 mana against a 10-cost spell")
	}
	stats, err := r.players.GetStats(r.ctx, 1)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.MinMana != 3 {
		t.Fatalf("mana = %d, want untouched 3", stats.MinMana)
	}
	if got := golem.HP(); got != 10000 {
		t.Fatalf("golem hp = %d, want untouched", got)
	}
}

func TestCastRefusedOnEmptyTile(t *testing.T) {
	r := newRig(t)
	push := r.addPlayer(t, 1, "mage", 10, 10)

	if r.spell.Cast(r.ctx, 1, 1, 20, 20, net.NewSender(push)) {
		t.Fatal("damage spell landed on an empty tile")
	}
	stats, err := r.players.GetStats(r.ctx, 1)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.MinMana != 100 {
		t.Fatalf("mana = %d, want no charge for a fizzled cast", stats.MinMana)
	}
}

func TestCastSummonSpawnsOwnedPet(t *testing.T) {
	r := newRig(t)
	push := r.addPlayer(t, 1, "summoner", 10, 10)

	if !r.spell.Cast(r.ctx, 1, 2, 12, 10, net.NewSender(push)) {
		t.Fatal("summon refused on a free tile")
	}
	pet := r.state.NPCAt(1, 12, 10)
	if pet == nil {
		t.Fatal("no pet on the target tile")
	}
	if pet.OwnerUserID != 1 {
		t.Fatalf("pet owner = %d, want 1", pet.OwnerUserID)
	}
	if pet.ExpiresAt.IsZero() || time.Until(pet.ExpiresAt) > 31*time.Second {
		t.Fatalf("pet expiry = %v, want ~30s out", pet.ExpiresAt)
	}
}

func TestCastSummonRefusedOnOccupiedTile(t *testing.T) {
	r := newRig(t)
	push := r.addPlayer(t, 1, "summoner", 10, 10)
	r.spawnNPC(t, 3, 12, 10)

	if r.spell.Cast(r.ctx, 1, 2, 12, 10, net.NewSender(push)) {
		t.Fatal("summon landed on an occupied tile")
	}
}

func TestCastBuffSetsStrengthModifier(t *testing.T) {
	r := newRig(t)
	casterPush := r.addPlayer(t, 1, "cleric", 10, 10)
	r.addPlayer(t, 2, "fighter", 11, 10)

	if !r.spell.Cast(r.ctx, 1, 3, 11, 10, net.NewSender(casterPush)) {
		t.Fatal("buff refused on an adjacent player")
	}
	mod, err := r.players.GetStrengthModifier(r.ctx, 2)
	if err != nil {
		t.Fatalf("modifier: %v", err)
	}
	if mod == nil || mod.Delta != 4 {
		t.Fatalf("strength modifier = %+v, want delta 4", mod)
	}
	if time.Until(mod.Expires) > 61*time.Second || time.Until(mod.Expires) < 50*time.Second {
		t.Fatalf("modifier expiry = %v, want ~60s out", mod.Expires)
	}
}

func TestCastRefusedBeyondVisibleRange(t *testing.T) {
	r := newRig(t)
	push := r.addPlayer(t, 1, "mage", 2, 2)
	r.spawnNPC(t, 3, 30, 30)

	if r.spell.Cast(r.ctx, 1, 1, 30, 30, net.NewSender(push)) {
		t.Fatal("cast reached beyond visible range")
	}
}
