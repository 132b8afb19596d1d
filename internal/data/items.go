package data

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// ItemType discriminates catalogue entries.
type ItemType string

const (
	ItemWeapon ItemType = "weapon"
	ItemArmor  ItemType = "armor"
	ItemShield ItemType = "shield"
	ItemHelmet ItemType = "helmet"
	ItemPotion ItemType = "potion"
	ItemFood   ItemType = "food"
	ItemDrink  ItemType = "drink"
	ItemGold   ItemType = "gold"
	ItemMisc   ItemType = "misc"
)

// wireType maps catalogue types to the client's u8 slot-type field.
var wireType = map[ItemType]byte{
	ItemWeapon: 1,
	ItemArmor:  2,
	ItemShield: 3,
	ItemHelmet: 4,
	ItemPotion: 5,
	ItemFood:   6,
	ItemDrink:  7,
	ItemGold:   8,
	ItemMisc:   9,
}

// ItemTemplate is one catalogue entry.
type ItemTemplate struct {
	ID     int16    `toml:"id"`
	Name   string   `toml:"name"`
	Grh    int16    `toml:"grh"`
	Type   ItemType `toml:"type"`
	MinHit int16    `toml:"minHit"`
	MaxHit int16    `toml:"maxHit"`
	MinDef int16    `toml:"minDef"`
	MaxDef int16    `toml:"maxDef"`
	Price  float32  `toml:"price"`

	// Consumables
	RestoreHP     int16 `toml:"restoreHp"`
	RestoreMana   int16 `toml:"restoreMana"`
	RestoreHunger byte  `toml:"restoreHunger"`
	RestoreThirst byte  `toml:"restoreThirst"`
}

// WireType returns the u8 the client expects for this item's type.
func (t *ItemTemplate) WireType() byte {
	if v, ok := wireType[t.Type]; ok {
		return v
	}
	return wireType[ItemMisc]
}

// Equippable reports whether the item occupies an equipment slot.
func (t *ItemTemplate) Equippable() bool {
	switch t.Type {
	case ItemWeapon, ItemArmor, ItemShield, ItemHelmet:
		return true
	}
	return false
}

// Gold piles on the ground use a reserved template id and graphic.
const (
	GoldItemID int16 = 12
	GoldGrh    int16 = 511
)

type itemsFile struct {
	Items []ItemTemplate `toml:"items"`
}

// ItemTable is the loaded item catalogue.
type ItemTable struct {
	byID map[int16]*ItemTemplate
}

func LoadItems(path string) (*ItemTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read items %s: %w", path, err)
	}
	var f itemsFile
	if err := toml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse items: %w", err)
	}
	return NewItemTable(f.Items), nil
}

func NewItemTable(items []ItemTemplate) *ItemTable {
	t := &ItemTable{byID: make(map[int16]*ItemTemplate, len(items))}
	for i := range items {
		it := items[i]
		t.byID[it.ID] = &it
	}
	return t
}

func (t *ItemTable) Get(id int16) *ItemTemplate {
	return t.byID[id]
}

func (t *ItemTable) Count() int {
	return len(t.byID)
}
