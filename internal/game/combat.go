package game

import (
	"context"

	"go.uber.org/zap"

	"github.com/cavazquez/pyao-server-sub005/internal/config"
	"github.com/cavazquez/pyao-server-sub005/internal/data"
	"github.com/cavazquez/pyao-server-sub005/internal/net"
	"github.com/cavazquez/pyao-server-sub005/internal/persist"
	"github.com/cavazquez/pyao-server-sub005/internal/scripting"
	"github.com/cavazquez/pyao-server-sub005/internal/world"
)

// Damage the bare fist can roll when no weapon is equipped.
const (
	fistMinHit = 1
	fistMaxHit = 2
)

// AttackResult is the outcome of one resolved swing.
type AttackResult struct {
	Damage     int32
	Critical   bool
	Dodged     bool
	NPCDied    bool
	PlayerDied bool
	Experience int32
}

// CombatEngine arbitrates melee between players and NPCs. Every chance
// and multiplier is read from configuration so tests can pin them.
type CombatEngine struct {
	cfg     config.CombatConfig
	state   *world.State
	players persist.PlayerRepo
	items   *data.ItemTable
	death   *NPCDeathService
	lua     *scripting.Engine
	rng     *lockedRand
	log     *zap.Logger
}

func NewCombatEngine(cfg config.CombatConfig, state *world.State, players persist.PlayerRepo, items *data.ItemTable, death *NPCDeathService, lua *scripting.Engine, rng *lockedRand, log *zap.Logger) *CombatEngine {
	return &CombatEngine{
		cfg:     cfg,
		state:   state,
		players: players,
		items:   items,
		death:   death,
		lua:     lua,
		rng:     rng,
		log:     log,
	}
}

// CanAttack is the melee adjacency test.
func (c *CombatEngine) CanAttack(ax, ay, tx, ty int) bool {
	return world.Manhattan(ax, ay, tx, ty) == c.cfg.MeleeRange
}

// CriticalChance exposes the effective critical probability for a given
// agility; tests pin the config numbers through it.
func (c *CombatEngine) CriticalChance(agility int) float64 {
	return clampChance(
		c.cfg.BaseCriticalChance+float64(agility-c.cfg.BaseAgility)*c.cfg.CriticalAgiModifier,
		c.cfg.MaxCriticalChance)
}

// DodgeChance is the symmetric dodge probability.
func (c *CombatEngine) DodgeChance(agility int) float64 {
	return clampChance(
		c.cfg.BaseDodgeChance+float64(agility-c.cfg.BaseAgility)*c.cfg.DodgeAgiModifier,
		c.cfg.MaxDodgeChance)
}

func clampChance(v, max float64) float64 {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// equippedWeapon finds the equipped weapon template, nil for bare fists.
func (c *CombatEngine) equippedWeapon(ctx context.Context, userID int32) (*data.ItemTemplate, error) {
	inv, err := c.players.GetInventory(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, slot := range inv {
		if !slot.Equipped {
			continue
		}
		it := c.items.Get(slot.ItemID)
		if it != nil && it.Type == data.ItemWeapon {
			return it, nil
		}
	}
	return nil, nil
}

// armorDefense sums the defense of every equipped armor piece, rolling
// each piece inside its min..max band.
func (c *CombatEngine) armorDefense(ctx context.Context, userID int32) (int32, error) {
	inv, err := c.players.GetInventory(ctx, userID)
	if err != nil {
		return 0, err
	}
	var total int32
	for _, slot := range inv {
		if !slot.Equipped {
			continue
		}
		it := c.items.Get(slot.ItemID)
		if it == nil || it.Type == data.ItemWeapon {
			continue
		}
		total += int32(c.rng.Between(int32(it.MinDef), int32(it.MaxDef)))
	}
	return total, nil
}

// PlayerAttacksNPC resolves one player swing at an NPC. The caller has
// already verified adjacency. Returns nil when the target cannot be
// attacked at all.
func (c *CombatEngine) PlayerAttacksNPC(ctx context.Context, userID int32, n *world.NPC, snd *net.Sender) (*AttackResult, error) {
	if !n.Template.Attackable {
		return nil, nil
	}
	attrs, err := c.players.GetAttributes(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats, err := c.players.GetStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	// NPCs dodge at the base rate; they carry no agility score.
	if c.rng.Float64() < clampChance(c.cfg.BaseDodgeChance, c.cfg.MaxDodgeChance) {
		return &AttackResult{Dodged: true}, nil
	}

	minHit, maxHit := int32(fistMinHit), int32(fistMaxHit)
	weapon, err := c.equippedWeapon(ctx, userID)
	if err != nil {
		return nil, err
	}
	weaponMax := 0
	if weapon != nil {
		minHit, maxHit = int32(weapon.MinHit), int32(weapon.MaxHit)
		weaponMax = int(weapon.MaxHit)
	}

	base := c.rng.Between(minHit, maxHit) + int32(attrs.Strength)/5
	defense := n.Template.Defense + int32(float64(n.Template.Level)*c.cfg.DefensePerLevel)
	damage := base - defense

	critical := c.rng.Float64() < c.CriticalChance(int(attrs.Agility))
	if critical {
		damage = int32(float64(damage) * c.cfg.CriticalDamageMultiplier)
	}
	if damage < 1 {
		damage = 1
	}

	if c.lua != nil {
		if override, ok := c.lua.MeleeDamage(scripting.MeleeContext{
			AttackerLevel:    int(stats.Level),
			AttackerStrength: int(attrs.Strength),
			WeaponMaxHit:     weaponMax,
			BaseDamage:       int(damage),
			TargetDefense:    int(defense),
			TargetLevel:      int(n.Template.Level),
		}); ok {
			damage = int32(override)
			if damage < 1 {
				damage = 1
			}
		}
	}

	res := &AttackResult{Damage: damage, Critical: critical}
	if n.ApplyDamage(damage) <= 0 {
		res.NPCDied = true
		res.Experience = n.Template.Exp
		c.death.HandleDeath(ctx, n, userID)
	}
	return res, nil
}

// NPCAttacksPlayer resolves one NPC swing at a player. The caller has
// already verified adjacency and cooldown.
func (c *CombatEngine) NPCAttacksPlayer(ctx context.Context, n *world.NPC, userID int32, snd *net.Sender) (*AttackResult, error) {
	attrs, err := c.players.GetAttributes(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c.rng.Float64() < c.DodgeChance(int(attrs.Agility)) {
		return &AttackResult{Dodged: true}, nil
	}

	base := float64(n.Template.AttackDamage + int32(n.Template.Level))
	// uniform(0.8, 1.2) swing
	base *= 0.8 + c.rng.Float64()*0.4

	armor, err := c.armorDefense(ctx, userID)
	if err != nil {
		return nil, err
	}
	reduction := float64(armor) * c.cfg.ArmorReduction
	if reduction > 0.5 {
		reduction = 0.5
	}
	damage := int32(base * (1 - reduction))
	if damage < 1 {
		damage = 1
	}

	stats, err := c.players.GetStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	hp := stats.MinHP - int16(damage)
	died := hp <= 0
	if died {
		hp = 0
	}
	if err := c.players.UpdateHP(ctx, userID, hp); err != nil {
		return nil, err
	}
	if snd != nil {
		stats.MinHP = hp
		snd.UpdateUserStats(StatsData(stats))
	}
	return &AttackResult{Damage: damage, PlayerDied: died}, nil
}

// Revive is the placeholder death policy: refill HP and push stats. A
// real respawn flow belongs to a dedicated module; combat only signals
// the death.
func (c *CombatEngine) Revive(ctx context.Context, userID int32, snd *net.Sender) error {
	stats, err := c.players.GetStats(ctx, userID)
	if err != nil {
		return err
	}
	stats.MinHP = stats.MaxHP
	if err := c.players.SetStats(ctx, userID, stats); err != nil {
		return err
	}
	if snd != nil {
		snd.UpdateUserStats(StatsData(stats))
	}
	return nil
}
