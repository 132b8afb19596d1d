package data

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// MovementType is how an NPC moves when idle.
type MovementType string

const (
	MoveStatic MovementType = "static"
	MoveRandom MovementType = "random"
	MovePatrol MovementType = "patrol"
)

// NPCStock is one line of a merchant's stock.
type NPCStock struct {
	Item   int16 `toml:"item"`
	Amount int16 `toml:"amount"`
}

// NPCTemplate is one catalogue entry for an NPC kind.
type NPCTemplate struct {
	ID          int16        `toml:"id"`
	Name        string       `toml:"name"`
	Description string       `toml:"description"`
	Body        int16        `toml:"body"`
	Head        int16        `toml:"head"`
	MaxHP       int32        `toml:"maxHp"`
	Level       int16        `toml:"level"`
	Hostile     bool         `toml:"hostile"`
	Attackable  bool         `toml:"attackable"`
	Merchant    bool         `toml:"merchant"`
	Banker      bool         `toml:"banker"`
	Movement    MovementType `toml:"movement"`

	RespawnMin int `toml:"respawnMin"` // seconds
	RespawnMax int `toml:"respawnMax"`

	GoldMin int32 `toml:"goldMin"`
	GoldMax int32 `toml:"goldMax"`
	Exp     int32 `toml:"exp"`

	AttackDamage   int32   `toml:"attackDamage"`
	AttackCooldown float64 `toml:"attackCooldown"` // seconds
	AggroRange     int     `toml:"aggroRange"`
	Defense        int32   `toml:"defense"`

	Stock []NPCStock `toml:"stock"`
}

// Cooldown returns the attack cooldown as a duration (2s when unset).
func (t *NPCTemplate) Cooldown() time.Duration {
	if t.AttackCooldown <= 0 {
		return 2 * time.Second
	}
	return time.Duration(t.AttackCooldown * float64(time.Second))
}

type npcsFile struct {
	NPCs []NPCTemplate `toml:"npcs"`
}

// NPCTable is the loaded NPC catalogue.
type NPCTable struct {
	byID map[int16]*NPCTemplate
}

func LoadNPCs(path string) (*NPCTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read npcs %s: %w", path, err)
	}
	var f npcsFile
	if err := toml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse npcs: %w", err)
	}
	return NewNPCTable(f.NPCs), nil
}

func NewNPCTable(npcs []NPCTemplate) *NPCTable {
	t := &NPCTable{byID: make(map[int16]*NPCTemplate, len(npcs))}
	for i := range npcs {
		n := npcs[i]
		if n.Movement == "" {
			n.Movement = MoveStatic
		}
		t.byID[n.ID] = &n
	}
	return t
}

func (t *NPCTable) Get(id int16) *NPCTemplate {
	return t.byID[id]
}

func (t *NPCTable) Count() int {
	return len(t.byID)
}
