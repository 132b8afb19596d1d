package system

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/cavazquez/pyao-server-sub005/internal/config"
	"github.com/cavazquez/pyao-server-sub005/internal/data"
	"github.com/cavazquez/pyao-server-sub005/internal/game"
	"github.com/cavazquez/pyao-server-sub005/internal/net/packet"
	"github.com/cavazquez/pyao-server-sub005/internal/persist"
	"github.com/cavazquez/pyao-server-sub005/internal/scripting"
	"github.com/cavazquez/pyao-server-sub005/internal/world"
)

type framePusher struct {
	frames [][]byte
}

func (p *framePusher) Send(frame []byte) { p.frames = append(p.frames, frame) }

func (p *framePusher) has(op byte) bool {
	for _, f := range p.frames {
		if f[0] == op {
			return true
		}
	}
	return false
}

func (p *framePusher) reset() { p.frames = nil }

type rig struct {
	deps    *Deps
	players *persist.MemPlayerRepo
	engines *game.Engines
	state   *world.State
	npcTpls *data.NPCTable
}

func newRig(t *testing.T) *rig {
	t.Helper()
	log := zap.NewNop()
	gameCfg := config.GameConfig{
		MaxPlayersPerMap:  120,
		RespawnMinSeconds: 1,
		RespawnMaxSeconds: 1,
		Combat: config.CombatConfig{
			MeleeRange:               1,
			DefensePerLevel:          0.5,
			CriticalDamageMultiplier: 1.5,
			MaxCriticalChance:        0.25,
			MaxDodgeChance:           0.25,
			BaseAgility:              15,
		},
		Stamina:      config.StaminaConfig{RegenAmount: 5, IntervalSeconds: 1},
		HungerThirst: config.HungerThirstConfig{IntervalSed: 1, IntervalHambre: 1, ReduccionAgua: 5, ReduccionHambre: 5},
		GoldDecay:    config.GoldDecayConfig{Percentage: 1.0, IntervalSeconds: 1},
		Inventory:    config.InventoryConfig{MaxSlots: 20},
		Character:    config.CharacterConfig{HPPerCon: 3, ManaPerInt: 5, InitialELU: 300, ELUExponent: 1.8},
	}

	tiles := make([]data.TileClass, 60*60)
	maps := data.NewMapRegistry(data.BuildMap(1, 1, 60, 60, tiles, nil))
	items := data.NewItemTable(nil)
	npcTpls := data.NewNPCTable([]data.NPCTemplate{
		{ID: 1, Name: "Lobo", MaxHP: 10, Hostile: true, Attackable: true, AggroRange: 8, Movement: data.MoveRandom, RespawnMin: 1, RespawnMax: 1},
		{ID: 2, Name: "Mascota", MaxHP: 10, Attackable: true},
	})
	players := persist.NewMemPlayerRepo()
	lua, err := scripting.NewEngine("no-scripts", log)
	if err != nil {
		t.Fatalf("scripting: %v", err)
	}
	state := world.NewState()
	engines := game.NewEngines(gameCfg, state, maps, items, npcTpls, data.NewSpellTable(nil), data.NewLootTable(nil), players, lua, log)

	deps := &Deps{
		State:   state,
		Maps:    maps,
		Players: players,
		NPCs:    engines.NPCs,
		AI:      engines.AI,
		Combat:  engines.Combat,
		Death:   engines.Death,
		Bcast:   engines.Bcast,
		Game:    gameCfg,
		Tun:     persist.NewTunables(persist.NewMemSettingsRepo(), time.Second),
		Log:     log,
	}
	return &rig{deps: deps, players: players, engines: engines, state: state, npcTpls: npcTpls}
}

func (r *rig) addPlayer(t *testing.T, userID int32, name string, x, y int) *framePusher {
	t.Helper()
	rec := &persist.PlayerRecord{
		UserID:   userID,
		Username: name,
		Stats: persist.Stats{
			MaxHP: 100, MinHP: 100,
			MaxMana: 100, MinMana: 100,
			MaxSta: 100, MinSta: 100,
			Gold:  0,
			Level: 1, Elu: 300,
		},
		Position:   persist.Position{Map: 1, X: x, Y: y, Heading: byte(world.South)},
		Attributes: persist.Attributes{Strength: 20, Agility: 15, Intelligence: 18, Constitution: 19},
		Hunger:     persist.HungerThirst{MaxAgu: 100, MinAgu: 100, MaxHam: 100, MinHam: 100},
		Alive:      true,
		Inventory:  map[byte]persist.InventorySlot{},
		Bank:       map[byte]persist.InventorySlot{},
	}
	if err := r.players.Create(context.Background(), rec); err != nil {
		t.Fatalf("create player: %v", err)
	}
	push := &framePusher{}
	if !r.state.AddPlayer(1, userID, name, int16(userID), x, y, push) {
		t.Fatalf("add player %s to world", name)
	}
	return push
}

func TestHungerThirstDrainsOnCadence(t *testing.T) {
	r := newRig(t)
	push := r.addPlayer(t, 1, "Hambriento", 30, 30)
	eff := NewHungerThirstEffect(r.deps)
	ctx := context.Background()
	t0 := time.Now()

	// First sighting only stamps the clock.
	if err := eff.Apply(ctx, 1, t0); err != nil {
		t.Fatalf("apply: %v", err)
	}
	ht, _ := r.players.GetHungerThirst(ctx, 1)
	if ht.MinAgu != 100 {
		t.Fatalf("water drained on first sighting: %d", ht.MinAgu)
	}

	if err := eff.Apply(ctx, 1, t0.Add(2*time.Second)); err != nil {
		t.Fatalf("apply: %v", err)
	}
	ht, _ = r.players.GetHungerThirst(ctx, 1)
	if ht.MinAgu != 95 || ht.MinHam != 95 {
		t.Fatalf("after one interval water=%d food=%d, want 95/95", ht.MinAgu, ht.MinHam)
	}
	if !push.has(packet.SUpdateHungerAndThirst) {
		t.Fatal("client not updated")
	}
}

func TestHungerThirstWarnsAtZero(t *testing.T) {
	r := newRig(t)
	push := r.addPlayer(t, 1, "Seco", 30, 30)
	ctx := context.Background()
	if err := r.players.SetHungerThirst(ctx, 1, persist.HungerThirst{MaxAgu: 100, MinAgu: 3, MaxHam: 100, MinHam: 50}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	eff := NewHungerThirstEffect(r.deps)
	t0 := time.Now()
	eff.Apply(ctx, 1, t0)
	push.reset()
	eff.Apply(ctx, 1, t0.Add(2*time.Second))

	ht, _ := r.players.GetHungerThirst(ctx, 1)
	if ht.MinAgu != 0 {
		t.Fatalf("water = %d, want 0", ht.MinAgu)
	}
	if !push.has(packet.SConsoleMsg) {
		t.Fatal("thirst warning not sent at the zero crossing")
	}
}

func TestGoldDecayRemovesAtLeastOneCoin(t *testing.T) {
	r := newRig(t)
	push := r.addPlayer(t, 1, "Avaro", 30, 30)
	ctx := context.Background()
	if err := r.players.UpdateGold(ctx, 1, 50); err != nil {
		t.Fatalf("seed gold: %v", err)
	}
	eff := NewGoldDecayEffect(r.deps)
	t0 := time.Now()
	eff.Apply(ctx, 1, t0)
	eff.Apply(ctx, 1, t0.Add(2*time.Second))

	stats, _ := r.players.GetStats(ctx, 1)
	// 1% of 50 rounds down to 0; the floor guarantees one coin leaves.
	if stats.Gold != 49 {
		t.Fatalf("gold = %d, want 49", stats.Gold)
	}
	if !push.has(packet.SUpdateUserStats) {
		t.Fatal("stats refresh not sent")
	}
}

func TestGoldDecayLeavesBrokeAlone(t *testing.T) {
	r := newRig(t)
	push := r.addPlayer(t, 1, "Pobre", 30, 30)
	eff := NewGoldDecayEffect(r.deps)
	ctx := context.Background()
	t0 := time.Now()
	eff.Apply(ctx, 1, t0)
	push.reset()
	eff.Apply(ctx, 1, t0.Add(2*time.Second))

	stats, _ := r.players.GetStats(ctx, 1)
	if stats.Gold != 0 {
		t.Fatalf("gold = %d, want 0", stats.Gold)
	}
	if len(push.frames) != 0 {
		t.Fatal("no frames expected for a broke character")
	}
}

func TestMeditationRecoversAndWakesWhenFull(t *testing.T) {
	r := newRig(t)
	push := r.addPlayer(t, 1, "Mago", 30, 30)
	ctx := context.Background()
	if err := r.players.UpdateMana(ctx, 1, 95); err != nil {
		t.Fatalf("seed mana: %v", err)
	}
	if err := r.players.SetMeditating(ctx, 1, true); err != nil {
		t.Fatalf("meditate: %v", err)
	}
	eff := NewMeditationEffect(r.deps)
	t0 := time.Now()
	eff.Apply(ctx, 1, t0)
	eff.Apply(ctx, 1, t0.Add(4*time.Second))

	stats, _ := r.players.GetStats(ctx, 1)
	if stats.MinMana != 100 {
		t.Fatalf("mana = %d, want capped at 100", stats.MinMana)
	}
	if med, _ := r.players.IsMeditating(ctx, 1); med {
		t.Fatal("full mana must end the meditation")
	}
	if !push.has(packet.SMeditateToggle) {
		t.Fatal("wake-up toggle not sent")
	}
}

func TestMeditationIgnoresAwakePlayers(t *testing.T) {
	r := newRig(t)
	push := r.addPlayer(t, 1, "Despierto", 30, 30)
	ctx := context.Background()
	if err := r.players.UpdateMana(ctx, 1, 10); err != nil {
		t.Fatalf("seed mana: %v", err)
	}
	eff := NewMeditationEffect(r.deps)
	t0 := time.Now()
	eff.Apply(ctx, 1, t0)
	eff.Apply(ctx, 1, t0.Add(4*time.Second))

	stats, _ := r.players.GetStats(ctx, 1)
	if stats.MinMana != 10 {
		t.Fatalf("mana = %d, want untouched 10", stats.MinMana)
	}
	if len(push.frames) != 0 {
		t.Fatal("no frames expected for an awake player")
	}
}

func TestStaminaRegenCapsAtMax(t *testing.T) {
	r := newRig(t)
	r.addPlayer(t, 1, "Cansado", 30, 30)
	ctx := context.Background()
	if err := r.players.UpdateStamina(ctx, 1, 98); err != nil {
		t.Fatalf("seed stamina: %v", err)
	}
	eff := NewStaminaRegenEffect(r.deps)
	t0 := time.Now()
	eff.Apply(ctx, 1, t0)
	eff.Apply(ctx, 1, t0.Add(2*time.Second))

	stats, _ := r.players.GetStats(ctx, 1)
	if stats.MinSta != 100 {
		t.Fatalf("stamina = %d, want capped at 100", stats.MinSta)
	}
}

func TestPoisonTicksDamage(t *testing.T) {
	r := newRig(t)
	push := r.addPlayer(t, 1, "Envenenado", 30, 30)
	ctx := context.Background()
	if err := r.players.SetPoisonedUntil(ctx, 1, time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("poison: %v", err)
	}
	eff := NewPoisonEffect(r.deps)
	t0 := time.Now()
	eff.Apply(ctx, 1, t0)
	push.reset()
	eff.Apply(ctx, 1, t0.Add(3*time.Second))

	stats, _ := r.players.GetStats(ctx, 1)
	if stats.MinHP != 98 {
		t.Fatalf("hp = %d, want 98", stats.MinHP)
	}
	if !push.has(packet.SUpdateHP) {
		t.Fatal("hp update not sent")
	}
}

func TestPoisonExpiryClears(t *testing.T) {
	r := newRig(t)
	push := r.addPlayer(t, 1, "Curado", 30, 30)
	ctx := context.Background()
	if err := r.players.SetPoisonedUntil(ctx, 1, time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("poison: %v", err)
	}
	eff := NewPoisonEffect(r.deps)
	eff.Apply(ctx, 1, time.Now())

	until, _ := r.players.GetPoisonedUntil(ctx, 1)
	if !until.IsZero() {
		t.Fatal("expired poison must be cleared")
	}
	if !push.has(packet.SConsoleMsg) {
		t.Fatal("player not told the venom wore off")
	}
	stats, _ := r.players.GetStats(ctx, 1)
	if stats.MinHP != 100 {
		t.Fatalf("hp = %d, expiry must not damage", stats.MinHP)
	}
}

func TestPoisonCanKillAndRevives(t *testing.T) {
	r := newRig(t)
	push := r.addPlayer(t, 1, "Moribundo", 30, 30)
	ctx := context.Background()
	if err := r.players.UpdateHP(ctx, 1, 1); err != nil {
		t.Fatalf("hp: %v", err)
	}
	if err := r.players.SetPoisonedUntil(ctx, 1, time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("poison: %v", err)
	}
	eff := NewPoisonEffect(r.deps)
	t0 := time.Now()
	eff.Apply(ctx, 1, t0)
	push.reset()
	if err := eff.Apply(ctx, 1, t0.Add(3*time.Second)); err != nil {
		t.Fatalf("apply: %v", err)
	}

	until, _ := r.players.GetPoisonedUntil(ctx, 1)
	if !until.IsZero() {
		t.Fatal("death must purge the poison")
	}
	stats, _ := r.players.GetStats(ctx, 1)
	if stats.MinHP != stats.MaxHP {
		t.Fatalf("hp = %d, want revived to %d", stats.MinHP, stats.MaxHP)
	}
	if !push.has(packet.SUpdateHP) {
		t.Fatal("death hp floor not sent")
	}
}

func TestAttrModifierExpirySweep(t *testing.T) {
	r := newRig(t)
	push := r.addPlayer(t, 1, "Fuerte", 30, 30)
	ctx := context.Background()
	if err := r.players.SetStrengthModifier(ctx, 1, &persist.AttrModifier{Delta: 4, Expires: time.Now().Add(-time.Second)}); err != nil {
		t.Fatalf("modifier: %v", err)
	}
	eff := NewAttrModifierEffect(r.deps)
	t0 := time.Now()
	eff.Apply(ctx, 1, t0)
	push.reset()
	eff.Apply(ctx, 1, t0.Add(11*time.Second))

	if m, _ := r.players.GetStrengthModifier(ctx, 1); m != nil {
		t.Fatal("expired modifier must be cleared")
	}
	if !push.has(packet.SUpdateStrAndDex) {
		t.Fatal("attribute refresh not sent")
	}
}

func TestSummonExpiryDespawns(t *testing.T) {
	r := newRig(t)
	push := r.addPlayer(t, 1, "Invocador", 30, 30)
	tpl := r.npcTpls.Get(2)
	pet := r.engines.NPCs.SpawnSummon(tpl, 1, 32, 32, 1, time.Now().Add(-time.Second))
	if pet == nil {
		t.Fatal("summon failed")
	}
	push.reset()

	eff := NewSummonExpiryEffect(r.deps)
	if err := eff.Run(context.Background(), time.Now().Add(10*time.Second)); err != nil {
		t.Fatalf("run: %v", err)
	}

	if r.state.NPCByInstance(1, pet.InstanceID) != nil {
		t.Fatal("expired summon still in the world")
	}
	if !push.has(packet.SConsoleMsg) {
		t.Fatal("owner not told the pet is gone")
	}
}

func TestMorphExpiryRestoresAppearance(t *testing.T) {
	r := newRig(t)
	push := r.addPlayer(t, 1, "Transformado", 30, 30)
	ctx := context.Background()
	if err := r.players.SetMorph(ctx, 1, &persist.Morph{Body: 99, Head: 99, Expires: time.Now().Add(-time.Second)}); err != nil {
		t.Fatalf("morph: %v", err)
	}
	push.reset()

	eff := NewMorphExpiryEffect(r.deps)
	if err := eff.Run(ctx, time.Now().Add(10*time.Second)); err != nil {
		t.Fatalf("run: %v", err)
	}

	if m, _ := r.players.GetMorph(ctx, 1); m != nil {
		t.Fatal("expired morph must be cleared")
	}
	if !push.has(packet.SCharacterChange) {
		t.Fatal("repaint not sent to the player")
	}
}

func TestNPCPoisonKillsAndCreditsThePoisoner(t *testing.T) {
	r := newRig(t)
	r.addPlayer(t, 1, "Bruja", 30, 30)
	tpl := r.npcTpls.Get(1)
	npc := r.engines.NPCs.Spawn(tpl, 1, 35, 35, world.South)
	if npc == nil {
		t.Fatal("spawn failed")
	}
	npc.ApplyDamage(tpl.MaxHP - 1) // one poison tick from death
	npc.Poison(time.Now().Add(time.Minute), 1)

	eff := NewNPCPoisonEffect(r.deps)
	ctx := context.Background()
	now := time.Now()
	if err := eff.Run(ctx, now); err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := eff.Run(ctx, now.Add(3*time.Second)); err != nil {
		t.Fatalf("run: %v", err)
	}

	if r.state.NPCByInstance(1, npc.InstanceID) != nil {
		t.Fatal("poisoned npc must die and leave the world")
	}
}

func TestNPCPoisonExpiryStopsTicking(t *testing.T) {
	r := newRig(t)
	tpl := r.npcTpls.Get(1)
	npc := r.engines.NPCs.Spawn(tpl, 1, 35, 35, world.South)
	npc.Poison(time.Now().Add(-time.Second), 1)

	eff := NewNPCPoisonEffect(r.deps)
	if err := eff.Run(context.Background(), time.Now()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if hp := npc.HP(); hp != tpl.MaxHP {
		t.Fatalf("hp = %d, expired poison must not damage", hp)
	}
	if until, _ := npc.PoisonState(); !until.IsZero() {
		t.Fatal("expired poison must be cleared")
	}
}

func TestPetFollowClosesTheGap(t *testing.T) {
	r := newRig(t)
	r.addPlayer(t, 1, "Amo", 30, 30)
	tpl := r.npcTpls.Get(2)
	pet := r.engines.NPCs.SpawnSummon(tpl, 1, 30, 42, 1, time.Now().Add(time.Hour))
	if pet == nil {
		t.Fatal("summon failed")
	}

	eff := NewPetFollowEffect(r.deps)
	ctx := context.Background()
	now := time.Now()
	if err := eff.Run(ctx, now); err != nil {
		t.Fatalf("run: %v", err)
	}

	_, y := pet.Pos()
	if y != 41 {
		t.Fatalf("pet at y=%d, want one step north to 41", y)
	}
}

func TestPetFollowStaysWhenClose(t *testing.T) {
	r := newRig(t)
	r.addPlayer(t, 1, "Amo", 30, 30)
	tpl := r.npcTpls.Get(2)
	pet := r.engines.NPCs.SpawnSummon(tpl, 1, 30, 33, 1, time.Now().Add(time.Hour))

	eff := NewPetFollowEffect(r.deps)
	if err := eff.Run(context.Background(), time.Now()); err != nil {
		t.Fatalf("run: %v", err)
	}

	x, y := pet.Pos()
	if x != 30 || y != 33 {
		t.Fatalf("pet moved to (%d,%d) while inside follow range", x, y)
	}
}

func TestNPCMovementApproachesNearbyPlayer(t *testing.T) {
	r := newRig(t)
	r.addPlayer(t, 1, "Presa", 30, 30)
	tpl := r.npcTpls.Get(1)
	npc := r.engines.NPCs.Spawn(tpl, 1, 30, 36, world.North)

	eff := NewNPCMovementEffect(r.deps)
	ctx := context.Background()
	now := time.Now()
	eff.Run(ctx, now) // arms the clock
	if err := eff.Run(ctx, now.Add(6*time.Second)); err != nil {
		t.Fatalf("run: %v", err)
	}

	x, y := npc.Pos()
	if world.Manhattan(x, y, 30, 30) >= 6 {
		t.Fatalf("npc did not approach: at (%d,%d)", x, y)
	}
}

func TestNPCMovementSkipsParalyzed(t *testing.T) {
	r := newRig(t)
	r.addPlayer(t, 1, "Presa", 30, 30)
	tpl := r.npcTpls.Get(1)
	npc := r.engines.NPCs.Spawn(tpl, 1, 30, 36, world.North)
	npc.Paralyze(time.Now().Add(time.Minute))

	eff := NewNPCMovementEffect(r.deps)
	ctx := context.Background()
	now := time.Now()
	eff.Run(ctx, now)
	if err := eff.Run(ctx, now.Add(6*time.Second)); err != nil {
		t.Fatalf("run: %v", err)
	}

	if x, y := npc.Pos(); x != 30 || y != 36 {
		t.Fatalf("paralyzed npc moved to (%d,%d)", x, y)
	}
}

func TestGlobalClockFiresOncePerInterval(t *testing.T) {
	var c globalClock
	t0 := time.Now()
	if !c.due(t0, time.Second) {
		t.Fatal("first check must fire")
	}
	if c.due(t0.Add(500*time.Millisecond), time.Second) {
		t.Fatal("must not fire inside the interval")
	}
	if !c.due(t0.Add(1100*time.Millisecond), time.Second) {
		t.Fatal("must fire after the interval")
	}
}

func TestPerUserClockStampsFirstSighting(t *testing.T) {
	c := newPerUserClock()
	t0 := time.Now()
	if c.due(7, t0, time.Second) {
		t.Fatal("first sighting must not fire")
	}
	if c.due(7, t0.Add(500*time.Millisecond), time.Second) {
		t.Fatal("must not fire inside the interval")
	}
	if !c.due(7, t0.Add(1100*time.Millisecond), time.Second) {
		t.Fatal("must fire after the interval")
	}
}
