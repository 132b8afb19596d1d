package data

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/BurntSushi/toml"
)

// LootDrop is one possible drop from a loot table.
type LootDrop struct {
	Item   int16   `toml:"item"`
	Chance float64 `toml:"chance"` // 0..1
	Min    int16   `toml:"min"`
	Max    int16   `toml:"max"`
}

type lootEntry struct {
	NPC   int16      `toml:"npc"`
	Drops []LootDrop `toml:"drops"`
}

type lootFile struct {
	Loot []lootEntry `toml:"loot"`
}

// LootTable maps NPC template ids to their drop lists.
type LootTable struct {
	byNPC map[int16][]LootDrop
}

func LoadLoot(path string) (*LootTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read loot %s: %w", path, err)
	}
	var f lootFile
	if err := toml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse loot: %w", err)
	}
	t := &LootTable{byNPC: make(map[int16][]LootDrop, len(f.Loot))}
	for _, e := range f.Loot {
		t.byNPC[e.NPC] = e.Drops
	}
	return t, nil
}

func NewLootTable(byNPC map[int16][]LootDrop) *LootTable {
	if byNPC == nil {
		byNPC = map[int16][]LootDrop{}
	}
	return &LootTable{byNPC: byNPC}
}

// RolledDrop is a concrete drop produced by Roll.
type RolledDrop struct {
	Item   int16
	Amount int16
}

// Roll evaluates the loot table for one kill.
func (t *LootTable) Roll(npcID int16, rng *rand.Rand) []RolledDrop {
	var out []RolledDrop
	for _, d := range t.byNPC[npcID] {
		if rng.Float64() >= d.Chance {
			continue
		}
		amount := d.Min
		if d.Max > d.Min {
			amount = d.Min + int16(rng.Intn(int(d.Max-d.Min)+1))
		}
		if amount < 1 {
			amount = 1
		}
		out = append(out, RolledDrop{Item: d.Item, Amount: amount})
	}
	return out
}
