package game

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/cavazquez/pyao-server-sub005/internal/config"
	"github.com/cavazquez/pyao-server-sub005/internal/data"
	"github.com/cavazquez/pyao-server-sub005/internal/net"
	"github.com/cavazquez/pyao-server-sub005/internal/net/packet"
	"github.com/cavazquez/pyao-server-sub005/internal/persist"
	"github.com/cavazquez/pyao-server-sub005/internal/world"
)

type framePush struct {
	frames [][]byte
}

func (p *framePush) Send(b []byte) { p.frames = append(p.frames, b) }

func (p *framePush) reset() { p.frames = nil }

func (p *framePush) has(id byte) bool {
	for _, f := range p.frames {
		if len(f) > 0 && f[0] == id {
			return true
		}
	}
	return false
}

func combatConfig() config.CombatConfig {
	return config.CombatConfig{
		MeleeRange:               1,
		BaseCriticalChance:       0,
		BaseDodgeChance:          0,
		DefensePerLevel:          0.5,
		ArmorReduction:           0.02,
		CriticalDamageMultiplier: 1.5,
		CriticalAgiModifier:      0.002,
		DodgeAgiModifier:         0.002,
		MaxCriticalChance:        0.25,
		MaxDodgeChance:           0.25,
		BaseAgility:              15,
	}
}

func openMap(id int16, w, h int) *data.Map {
	tiles := make([]data.TileClass, w*h)
	return data.BuildMap(id, 1, w, h, tiles, nil)
}

type rig struct {
	ctx     context.Context
	state   *world.State
	maps    *data.MapRegistry
	players *persist.MemPlayerRepo
	bcast   *Broadcaster
	npcs    *NPCEngine
	death   *NPCDeathService
	combat  *CombatEngine
	spell   *SpellEngine
	ai      *NPCAI
	prog    *Progress
	npcTpls *data.NPCTable
}

func newRig(t *testing.T) *rig {
	t.Helper()
	log := zap.NewNop()
	state := world.NewState()
	maps := data.NewMapRegistry(openMap(1, 40, 40))
	players := persist.NewMemPlayerRepo()
	rng := newSeededRand(7)

	items := data.NewItemTable([]data.ItemTemplate{
		{ID: 1, Name: "Espada larga", Type: data.ItemWeapon, MinHit: 50, MaxHit: 50, Grh: 100},
		{ID: 2, Name: "Armadura de placas", Type: data.ItemArmor, MinDef: 10, MaxDef: 10, Grh: 101},
		{ID: 3, Name: "Piel de lobo", Type: data.ItemMisc, Grh: 200},
	})
	npcTpls := data.NewNPCTable([]data.NPCTemplate{
		{
			ID: 1, Name: "Lobo", Body: 20, MaxHP: 5, Level: 1,
			Hostile: true, Attackable: true, AggroRange: 8,
			AttackDamage: 4, GoldMin: 10, GoldMax: 10, Exp: 50,
			RespawnMin: 1, RespawnMax: 1,
			Movement:   data.MoveRandom,
		},
		{ID: 2, Name: "Guardia real", Body: 21, MaxHP: 100, Level: 20, Attackable: false},
		{ID: 3, Name: "Golem", Body: 22, MaxHP: 10000, Level: 40, Hostile: true, Attackable: true, Defense: 500, AggroRange: 8},
	})
	spells := data.NewSpellTable([]data.SpellTemplate{
		{ID: 1, Name: "Dardo mágico", Words: "OHL VOR PEK", ManaCost: 10, Effect: data.SpellDamage, MinDamage: 5, MaxDamage: 5, FX: 3, Wave: 9},
		{ID: 2, Name: "Invocar lobo", ManaCost: 5, Effect: data.SpellSummon, SummonNPC: 1, DurationSeconds: 30},
		{ID: 3, Name: "Fuerza", ManaCost: 5, Effect: data.SpellBuff, BuffAttribute: "strength", BuffDelta: 4, DurationSeconds: 60},
	})
	loot := data.NewLootTable(map[int16][]data.LootDrop{
		1: {{Item: 3, Chance: 1, Min: 2, Max: 2}},
	})

	game := config.GameConfig{RespawnMinSeconds: 10, RespawnMaxSeconds: 20}
	char := config.CharacterConfig{HPPerCon: 3, ManaPerInt: 5, InitialELU: 300, ELUExponent: 1.8}

	bcast := NewBroadcaster(state, log)
	prog := NewProgress(players, char, nil, log)
	npcs := NewNPCEngine(state, maps, npcTpls, bcast, game, rng, log)
	death := NewNPCDeathService(state, items, loot, npcs, bcast, prog, rng, log)
	combat := NewCombatEngine(combatConfig(), state, players, items, death, nil, rng, log)
	spell := NewSpellEngine(state, players, spells, npcTpls, npcs, death, bcast, prog, nil, rng, log)
	ai := NewNPCAI(state, maps, npcs, combat, players, log)

	return &rig{
		ctx: context.Background(), state: state, maps: maps, players: players,
		bcast: bcast, npcs: npcs, death: death, combat: combat, spell: spell,
		ai: ai, prog: prog, npcTpls: npcTpls,
	}
}

// addPlayer seeds a repo record and places the character in the world.
func (r *rig) addPlayer(t *testing.T, userID int32, name string, x, y int) *framePush {
	t.Helper()
	rec := &persist.PlayerRecord{
		UserID:   userID,
		Username: name,
		Stats: persist.Stats{
			MaxHP: 100, MinHP: 100, MaxMana: 100, MinMana: 100,
			MaxSta: 100, MinSta: 100, Level: 1, Elu: 300,
		},
		Position:   persist.Position{Map: 1, X: x, Y: y, Heading: 3},
		Attributes: persist.Attributes{Strength: 20, Agility: 15, Intelligence: 18, Charisma: 12, Constitution: 19},
		Appearance: persist.Appearance{Body: 1, Head: 1},
		Alive:      true,
		Inventory:  map[byte]persist.InventorySlot{},
		Bank:       map[byte]persist.InventorySlot{},
	}
	if err := r.players.Create(r.ctx, rec); err != nil {
		t.Fatalf("create player: %v", err)
	}
	push := &framePush{}
	if !r.state.AddPlayer(1, userID, name, int16(userID), x, y, push) {
		t.Fatalf("tile (%d,%d) taken", x, y)
	}
	return push
}

func (r *rig) spawnNPC(t *testing.T, tplID int16, x, y int) *world.NPC {
	t.Helper()
	tpl := r.npcTpls.Get(tplID)
	if tpl == nil {
		t.Fatalf("unknown npc template %d", tplID)
	}
	n := r.npcs.Spawn(tpl, 1, x, y, world.South)
	if n == nil {
		t.Fatalf("no room to spawn npc %d at (%d,%d)", tplID, x, y)
	}
	return n
}

func TestMeleeDamageNeverBelowOne(t *testing.T) {
	r := newRig(t)
	r.addPlayer(t, 1, "tank", 10, 10)
	golem := r.spawnNPC(t, 3, 11, 10) // defense far above any roll

	for i := 0; i < 50; i++ {
		res, err := r.combat.PlayerAttacksNPC(r.ctx, 1, golem, nil)
		if err != nil {
			t.Fatalf("attack: %v", err)
		}
		if res == nil {
			t.Fatal("attackable npc yielded nil result")
		}
		if res.Dodged {
			continue
		}
		if res.Damage < 1 {
			t.Fatalf("swing %d dealt %d, want >= 1", i, res.Damage)
		}
	}
}

func TestAttackRefusedForUnattackableNPC(t *testing.T) {
	r := newRig(t)
	r.addPlayer(t, 1, "rogue", 10, 10)
	guard := r.spawnNPC(t, 2, 11, 10)

	res, err := r.combat.PlayerAttacksNPC(r.ctx, 1, guard, nil)
	if err != nil {
		t.Fatalf("attack: %v", err)
	}
	if res != nil {
		t.Fatalf("got result %+v for unattackable npc, want nil", res)
	}
	if got := guard.HP(); got != 100 {
		t.Fatalf("guard hp = %d, want untouched 100", got)
	}
}

func TestChanceClamps(t *testing.T) {
	cfg := combatConfig()
	cfg.BaseCriticalChance = 0.05
	cfg.BaseDodgeChance = 0.05
	c := &CombatEngine{cfg: cfg}

	cases := []struct {
		agility  int
		wantCrit float64
	}{
		{15, 0.05},  // base agility
		{5, 0.03},   // below base
		{40, 0.10},  // above base
		{500, 0.25}, // clamped at max
		{-100, 0},   // floored at zero
	}
	for _, tc := range cases {
		if got := c.CriticalChance(tc.agility); !almostEqual(got, tc.wantCrit) {
			t.Errorf("CriticalChance(%d) = %v, want %v", tc.agility, got, tc.wantCrit)
		}
		if got := c.DodgeChance(tc.agility); !almostEqual(got, tc.wantCrit) {
			t.Errorf("DodgeChance(%d) = %v, want %v", tc.agility, got, tc.wantCrit)
		}
	}
}

func almostEqual(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}

func TestCanAttackIsMeleeAdjacency(t *testing.T) {
	r := newRig(t)
	cases := []struct {
		ax, ay, tx, ty int
		want           bool
	}{
		{10, 10, 10, 11, true},
		{10, 10, 11, 10, true},
		{10, 10, 11, 11, false}, // diagonal is distance 2
		{10, 10, 10, 10, false},
		{10, 10, 13, 10, false},
	}
	for _, tc := range cases {
		if got := r.combat.CanAttack(tc.ax, tc.ay, tc.tx, tc.ty); got != tc.want {
			t.Errorf("CanAttack(%d,%d -> %d,%d) = %v, want %v", tc.ax, tc.ay, tc.tx, tc.ty, got, tc.want)
		}
	}
}

func TestNPCDeathSettlesGoldLootExpAndRespawn(t *testing.T) {
	r := newRig(t)
	push := r.addPlayer(t, 1, "hunter", 10, 10)
	wolf := r.spawnNPC(t, 1, 11, 10)
	wx, wy := wolf.Pos()

	// Equip the big sword so a single swing kills the 5 hp wolf.
	if err := r.players.SetInventorySlot(r.ctx, 1, 0, persist.InventorySlot{ItemID: 1, Amount: 1, Equipped: true}); err != nil {
		t.Fatalf("equip: %v", err)
	}
	push.reset()

	res, err := r.combat.PlayerAttacksNPC(r.ctx, 1, wolf, nil)
	if err != nil {
		t.Fatalf("attack: %v", err)
	}
	if !res.NPCDied {
		t.Fatalf("wolf survived %d damage with 5 hp", res.Damage)
	}
	if res.Experience != 50 {
		t.Fatalf("experience = %d, want 50", res.Experience)
	}

	if got := r.state.NPCAt(1, wx, wy); got != nil {
		t.Fatal("dead wolf still standing on its tile")
	}
	drops := r.state.GroundItemsAt(1, wx, wy)
	if len(drops) != 2 {
		t.Fatalf("ground stacks = %d, want gold + pelt", len(drops))
	}
	if drops[0].ItemID != 3 || drops[0].Amount != 2 {
		t.Fatalf("loot stack = %+v, want item 3 x2", drops[0])
	}
	if drops[1].ItemID != data.GoldItemID || drops[1].Amount != 10 {
		t.Fatalf("gold stack = %+v, want 10 gold", drops[1])
	}

	stats, err := r.players.GetStats(r.ctx, 1)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Exp != 50 {
		t.Fatalf("killer exp = %d, want 50", stats.Exp)
	}
	if r.npcs.PendingRespawns() != 1 {
		t.Fatalf("pending respawns = %d, want 1", r.npcs.PendingRespawns())
	}
	if len(push.frames) == 0 {
		t.Fatal("killer got no kill notification")
	}
}

func TestSummonedNPCNeverRespawns(t *testing.T) {
	r := newRig(t)
	r.addPlayer(t, 1, "mage", 10, 10)
	tpl := r.npcTpls.Get(1)
	pet := r.npcs.SpawnSummon(tpl, 1, 12, 10, 1, time.Now().Add(time.Minute))
	if pet == nil {
		t.Fatal("summon failed on open ground")
	}

	r.death.HandleDeath(r.ctx, pet, 0)
	if r.npcs.PendingRespawns() != 0 {
		t.Fatalf("pending respawns = %d, want 0 for a pet", r.npcs.PendingRespawns())
	}
}

func TestNPCAttackDamagesPlayerAndFloorsHP(t *testing.T) {
	r := newRig(t)
	push := r.addPlayer(t, 1, "victim", 10, 10)
	wolf := r.spawnNPC(t, 1, 11, 10)

	if err := r.players.UpdateHP(r.ctx, 1, 2); err != nil {
		t.Fatalf("set hp: %v", err)
	}
	push.reset()

	res, err := r.combat.NPCAttacksPlayer(r.ctx, wolf, 1, net.NewSender(push))
	if err != nil {
		t.Fatalf("npc attack: %v", err)
	}
	if res.Dodged {
		t.Fatal("dodge rolled with dodge chance pinned to zero")
	}
	if !res.PlayerDied {
		t.Fatalf("player survived %d damage with 2 hp", res.Damage)
	}
	hp, err := r.players.GetStats(r.ctx, 1)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if hp.MinHP != 0 {
		t.Fatalf("hp = %d, want floored at 0", hp.MinHP)
	}
	if !push.has(packet.SUpdateUserStats) {
		t.Fatal("victim got no stats refresh for the hit")
	}
}

func TestNPCDeathAwardsExpToOfflineKiller(t *testing.T) {
	r := newRig(t)
	r.addPlayer(t, 1, "hunter", 10, 10)
	wolf := r.spawnNPC(t, 1, 11, 10)

	// The killer drops the connection between the swing and the
	// settlement; the experience must land in the repo anyway.
	r.state.RemovePlayer(1)
	r.death.HandleDeath(r.ctx, wolf, 1)

	stats, err := r.players.GetStats(r.ctx, 1)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Exp != 50 {
		t.Fatalf("offline killer exp = %d, want 50", stats.Exp)
	}
}

func TestReviveRefillsVitals(t *testing.T) {
	r := newRig(t)
	push := r.addPlayer(t, 1, "lazarus", 10, 10)
	if err := r.players.UpdateHP(r.ctx, 1, 0); err != nil {
		t.Fatalf("set hp: %v", err)
	}
	if err := r.combat.Revive(r.ctx, 1, net.NewSender(push)); err != nil {
		t.Fatalf("revive: %v", err)
	}
	stats, err := r.players.GetStats(r.ctx, 1)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.MinHP != stats.MaxHP {
		t.Fatalf("hp after revive = %d/%d, want full", stats.MinHP, stats.MaxHP)
	}
}
