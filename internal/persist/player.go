package persist

import (
	"context"
	"errors"
	"time"
)

// ErrNoPlayer is returned when a user id has no character.
var ErrNoPlayer = errors.New("player not found")

// InventorySlots and BankSlots are the fixed slot counts, 1-based on the wire.
const (
	InventorySlots = 20
	BankSlots      = 40
)

// PlayerRepo is the character state store. Every blocking call takes a
// context; implementations are safe for concurrent use.
type PlayerRepo interface {
	// Load returns the whole record; used once at login.
	Load(ctx context.Context, userID int32) (*PlayerRecord, error)
	Create(ctx context.Context, rec *PlayerRecord) error

	GetStats(ctx context.Context, userID int32) (Stats, error)
	SetStats(ctx context.Context, userID int32, s Stats) error
	UpdateHP(ctx context.Context, userID int32, minHP int16) error
	UpdateMana(ctx context.Context, userID int32, minMana int16) error
	UpdateStamina(ctx context.Context, userID int32, minSta int16) error
	UpdateGold(ctx context.Context, userID int32, gold int32) error
	UpdateExperience(ctx context.Context, userID int32, exp, elu int32, level byte) error

	GetPosition(ctx context.Context, userID int32) (Position, error)
	SetPosition(ctx context.Context, userID int32, p Position) error
	SetHeading(ctx context.Context, userID int32, heading byte) error

	GetAttributes(ctx context.Context, userID int32) (Attributes, error)
	SetAttributes(ctx context.Context, userID int32, a Attributes) error

	GetHungerThirst(ctx context.Context, userID int32) (HungerThirst, error)
	SetHungerThirst(ctx context.Context, userID int32, h HungerThirst) error

	GetAppearance(ctx context.Context, userID int32) (Appearance, error)
	SetAppearance(ctx context.Context, userID int32, a Appearance) error

	IsAlive(ctx context.Context, userID int32) (bool, error)
	SetAlive(ctx context.Context, userID int32, alive bool) error
	IsMeditating(ctx context.Context, userID int32) (bool, error)
	SetMeditating(ctx context.Context, userID int32, on bool) error

	GetPoisonedUntil(ctx context.Context, userID int32) (time.Time, error)
	SetPoisonedUntil(ctx context.Context, userID int32, until time.Time) error
	GetParalyzedUntil(ctx context.Context, userID int32) (time.Time, error)
	SetParalyzedUntil(ctx context.Context, userID int32, until time.Time) error

	GetMorph(ctx context.Context, userID int32) (*Morph, error)
	SetMorph(ctx context.Context, userID int32, m *Morph) error
	ClearMorph(ctx context.Context, userID int32) error

	GetStrengthModifier(ctx context.Context, userID int32) (*AttrModifier, error)
	SetStrengthModifier(ctx context.Context, userID int32, m *AttrModifier) error
	GetAgilityModifier(ctx context.Context, userID int32) (*AttrModifier, error)
	SetAgilityModifier(ctx context.Context, userID int32, m *AttrModifier) error

	GetInventory(ctx context.Context, userID int32) (map[byte]InventorySlot, error)
	SetInventorySlot(ctx context.Context, userID int32, slot byte, s InventorySlot) error
	ClearInventorySlot(ctx context.Context, userID int32, slot byte) error

	GetBank(ctx context.Context, userID int32) (map[byte]InventorySlot, error)
	SetBankSlot(ctx context.Context, userID int32, slot byte, s InventorySlot) error
	ClearBankSlot(ctx context.Context, userID int32, slot byte) error

	GetSpells(ctx context.Context, userID int32) ([]int16, error)
	AddSpell(ctx context.Context, userID int32, spellID int16) error
}
