package persist

import "time"

// Stats is the character sheet block pushed with UPDATE_USER_STATS.
type Stats struct {
	MaxHP   int16
	MinHP   int16
	MaxMana int16
	MinMana int16
	MaxSta  int16
	MinSta  int16
	Gold    int32
	Level   byte
	Elu     int32 // experience needed for the next level
	Exp     int32
}

// Position is a character's tile on the world grid.
type Position struct {
	Map     int16
	X       int
	Y       int
	Heading byte
}

// Attributes are the five rolled attributes.
type Attributes struct {
	Strength     byte
	Agility      byte
	Intelligence byte
	Charisma     byte
	Constitution byte
}

// HungerThirst is the water/food block pushed with UPDATE_HUNGER_AND_THIRST.
type HungerThirst struct {
	MaxAgu byte
	MinAgu byte
	MaxHam byte
	MinHam byte
}

// InventorySlot is one slot of the 20-slot inventory (or the bank).
type InventorySlot struct {
	ItemID   int16
	Amount   int16
	Equipped bool
}

// Appearance is what other players see.
type Appearance struct {
	Body   int16
	Head   int16
	Weapon int16
	Shield int16
	Helmet int16
}

// Morph is a temporary body/head override from a morph spell.
type Morph struct {
	Body    int16
	Head    int16
	Expires time.Time
}

// AttrModifier is a temporary delta on strength or agility from a buff.
type AttrModifier struct {
	Delta   int
	Expires time.Time
}

// PlayerRecord is the full persisted character; used at login and by the
// in-memory store.
type PlayerRecord struct {
	UserID     int32
	Username   string
	Stats      Stats
	Position   Position
	Attributes Attributes
	Hunger     HungerThirst
	Appearance Appearance
	Alive      bool
	Meditating bool

	PoisonedUntil  time.Time
	ParalyzedUntil time.Time
	Morph          *Morph
	StrMod         *AttrModifier
	AgiMod         *AttrModifier

	Inventory map[byte]InventorySlot
	Bank      map[byte]InventorySlot
	Spells    []int16
}
