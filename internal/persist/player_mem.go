package persist

import (
	"context"
	"sync"
	"time"
)

// MemPlayerRepo keeps characters in process memory. It backs the unit
// tests and lets the server run without a database.
type MemPlayerRepo struct {
	mu      sync.RWMutex
	players map[int32]*PlayerRecord
}

func NewMemPlayerRepo() *MemPlayerRepo {
	return &MemPlayerRepo{players: make(map[int32]*PlayerRecord)}
}

func (r *MemPlayerRepo) get(userID int32) (*PlayerRecord, error) {
	p := r.players[userID]
	if p == nil {
		return nil, ErrNoPlayer
	}
	return p, nil
}

func (r *MemPlayerRepo) Load(_ context.Context, userID int32) (*PlayerRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, err := r.get(userID)
	if err != nil {
		return nil, err
	}
	cp := *p
	cp.Inventory = cloneSlots(p.Inventory)
	cp.Bank = cloneSlots(p.Bank)
	cp.Spells = append([]int16(nil), p.Spells...)
	if p.Morph != nil {
		m := *p.Morph
		cp.Morph = &m
	}
	if p.StrMod != nil {
		m := *p.StrMod
		cp.StrMod = &m
	}
	if p.AgiMod != nil {
		m := *p.AgiMod
		cp.AgiMod = &m
	}
	return &cp, nil
}

func (r *MemPlayerRepo) Create(_ context.Context, rec *PlayerRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	if cp.Inventory == nil {
		cp.Inventory = make(map[byte]InventorySlot)
	}
	if cp.Bank == nil {
		cp.Bank = make(map[byte]InventorySlot)
	}
	r.players[rec.UserID] = &cp
	return nil
}

func cloneSlots(in map[byte]InventorySlot) map[byte]InventorySlot {
	out := make(map[byte]InventorySlot, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (r *MemPlayerRepo) GetStats(_ context.Context, userID int32) (Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, err := r.get(userID)
	if err != nil {
		return Stats{}, err
	}
	return p.Stats, nil
}

func (r *MemPlayerRepo) SetStats(_ context.Context, userID int32, s Stats) error {
	return r.update(userID, func(p *PlayerRecord) { p.Stats = s })
}

func (r *MemPlayerRepo) UpdateHP(_ context.Context, userID int32, minHP int16) error {
	return r.update(userID, func(p *PlayerRecord) { p.Stats.MinHP = minHP })
}

func (r *MemPlayerRepo) UpdateMana(_ context.Context, userID int32, minMana int16) error {
	return r.update(userID, func(p *PlayerRecord) { p.Stats.MinMana = minMana })
}

func (r *MemPlayerRepo) UpdateStamina(_ context.Context, userID int32, minSta int16) error {
	return r.update(userID, func(p *PlayerRecord) { p.Stats.MinSta = minSta })
}

func (r *MemPlayerRepo) UpdateGold(_ context.Context, userID int32, gold int32) error {
	return r.update(userID, func(p *PlayerRecord) { p.Stats.Gold = gold })
}

func (r *MemPlayerRepo) UpdateExperience(_ context.Context, userID int32, exp, elu int32, level byte) error {
	return r.update(userID, func(p *PlayerRecord) {
		p.Stats.Exp = exp
		p.Stats.Elu = elu
		p.Stats.Level = level
	})
}

func (r *MemPlayerRepo) GetPosition(_ context.Context, userID int32) (Position, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, err := r.get(userID)
	if err != nil {
		return Position{}, err
	}
	return p.Position, nil
}

func (r *MemPlayerRepo) SetPosition(_ context.Context, userID int32, pos Position) error {
	return r.update(userID, func(p *PlayerRecord) { p.Position = pos })
}

func (r *MemPlayerRepo) SetHeading(_ context.Context, userID int32, heading byte) error {
	return r.update(userID, func(p *PlayerRecord) { p.Position.Heading = heading })
}

func (r *MemPlayerRepo) GetAttributes(_ context.Context, userID int32) (Attributes, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, err := r.get(userID)
	if err != nil {
		return Attributes{}, err
	}
	return p.Attributes, nil
}

func (r *MemPlayerRepo) SetAttributes(_ context.Context, userID int32, a Attributes) error {
	return r.update(userID, func(p *PlayerRecord) { p.Attributes = a })
}

func (r *MemPlayerRepo) GetHungerThirst(_ context.Context, userID int32) (HungerThirst, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, err := r.get(userID)
	if err != nil {
		return HungerThirst{}, err
	}
	return p.Hunger, nil
}

func (r *MemPlayerRepo) SetHungerThirst(_ context.Context, userID int32, h HungerThirst) error {
	return r.update(userID, func(p *PlayerRecord) { p.Hunger = h })
}

func (r *MemPlayerRepo) GetAppearance(_ context.Context, userID int32) (Appearance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, err := r.get(userID)
	if err != nil {
		return Appearance{}, err
	}
	return p.Appearance, nil
}

func (r *MemPlayerRepo) SetAppearance(_ context.Context, userID int32, a Appearance) error {
	return r.update(userID, func(p *PlayerRecord) { p.Appearance = a })
}

func (r *MemPlayerRepo) IsAlive(_ context.Context, userID int32) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, err := r.get(userID)
	if err != nil {
		return false, err
	}
	return p.Alive, nil
}

func (r *MemPlayerRepo) SetAlive(_ context.Context, userID int32, alive bool) error {
	return r.update(userID, func(p *PlayerRecord) { p.Alive = alive })
}

func (r *MemPlayerRepo) IsMeditating(_ context.Context, userID int32) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, err := r.get(userID)
	if err != nil {
		return false, err
	}
	return p.Meditating, nil
}

func (r *MemPlayerRepo) SetMeditating(_ context.Context, userID int32, on bool) error {
	return r.update(userID, func(p *PlayerRecord) { p.Meditating = on })
}

func (r *MemPlayerRepo) GetPoisonedUntil(_ context.Context, userID int32) (time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, err := r.get(userID)
	if err != nil {
		return time.Time{}, err
	}
	return p.PoisonedUntil, nil
}

func (r *MemPlayerRepo) SetPoisonedUntil(_ context.Context, userID int32, until time.Time) error {
	return r.update(userID, func(p *PlayerRecord) { p.PoisonedUntil = until })
}

func (r *MemPlayerRepo) GetParalyzedUntil(_ context.Context, userID int32) (time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, err := r.get(userID)
	if err != nil {
		return time.Time{}, err
	}
	return p.ParalyzedUntil, nil
}

func (r *MemPlayerRepo) SetParalyzedUntil(_ context.Context, userID int32, until time.Time) error {
	return r.update(userID, func(p *PlayerRecord) { p.ParalyzedUntil = until })
}

func (r *MemPlayerRepo) GetMorph(_ context.Context, userID int32) (*Morph, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, err := r.get(userID)
	if err != nil {
		return nil, err
	}
	if p.Morph == nil {
		return nil, nil
	}
	m := *p.Morph
	return &m, nil
}

func (r *MemPlayerRepo) SetMorph(_ context.Context, userID int32, m *Morph) error {
	return r.update(userID, func(p *PlayerRecord) {
		if m == nil {
			p.Morph = nil
			return
		}
		cp := *m
		p.Morph = &cp
	})
}

func (r *MemPlayerRepo) ClearMorph(ctx context.Context, userID int32) error {
	return r.SetMorph(ctx, userID, nil)
}

func (r *MemPlayerRepo) GetStrengthModifier(_ context.Context, userID int32) (*AttrModifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, err := r.get(userID)
	if err != nil {
		return nil, err
	}
	if p.StrMod == nil {
		return nil, nil
	}
	m := *p.StrMod
	return &m, nil
}

func (r *MemPlayerRepo) SetStrengthModifier(_ context.Context, userID int32, m *AttrModifier) error {
	return r.update(userID, func(p *PlayerRecord) {
		if m == nil {
			p.StrMod = nil
			return
		}
		cp := *m
		p.StrMod = &cp
	})
}

func (r *MemPlayerRepo) GetAgilityModifier(_ context.Context, userID int32) (*AttrModifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, err := r.get(userID)
	if err != nil {
		return nil, err
	}
	if p.AgiMod == nil {
		return nil, nil
	}
	m := *p.AgiMod
	return &m, nil
}

func (r *MemPlayerRepo) SetAgilityModifier(_ context.Context, userID int32, m *AttrModifier) error {
	return r.update(userID, func(p *PlayerRecord) {
		if m == nil {
			p.AgiMod = nil
			return
		}
		cp := *m
		p.AgiMod = &cp
	})
}

func (r *MemPlayerRepo) GetInventory(_ context.Context, userID int32) (map[byte]InventorySlot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, err := r.get(userID)
	if err != nil {
		return nil, err
	}
	return cloneSlots(p.Inventory), nil
}

func (r *MemPlayerRepo) SetInventorySlot(_ context.Context, userID int32, slot byte, s InventorySlot) error {
	return r.update(userID, func(p *PlayerRecord) {
		if p.Inventory == nil {
			p.Inventory = make(map[byte]InventorySlot)
		}
		p.Inventory[slot] = s
	})
}

func (r *MemPlayerRepo) ClearInventorySlot(_ context.Context, userID int32, slot byte) error {
	return r.update(userID, func(p *PlayerRecord) { delete(p.Inventory, slot) })
}

func (r *MemPlayerRepo) GetBank(_ context.Context, userID int32) (map[byte]InventorySlot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, err := r.get(userID)
	if err != nil {
		return nil, err
	}
	return cloneSlots(p.Bank), nil
}

func (r *MemPlayerRepo) SetBankSlot(_ context.Context, userID int32, slot byte, s InventorySlot) error {
	return r.update(userID, func(p *PlayerRecord) {
		if p.Bank == nil {
			p.Bank = make(map[byte]InventorySlot)
		}
		p.Bank[slot] = s
	})
}

func (r *MemPlayerRepo) ClearBankSlot(_ context.Context, userID int32, slot byte) error {
	return r.update(userID, func(p *PlayerRecord) { delete(p.Bank, slot) })
}

func (r *MemPlayerRepo) GetSpells(_ context.Context, userID int32) ([]int16, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, err := r.get(userID)
	if err != nil {
		return nil, err
	}
	return append([]int16(nil), p.Spells...), nil
}

func (r *MemPlayerRepo) AddSpell(_ context.Context, userID int32, spellID int16) error {
	return r.update(userID, func(p *PlayerRecord) {
		for _, s := range p.Spells {
			if s == spellID {
				return
			}
		}
		p.Spells = append(p.Spells, spellID)
	})
}

func (r *MemPlayerRepo) update(userID int32, fn func(*PlayerRecord)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.get(userID)
	if err != nil {
		return err
	}
	fn(p)
	return nil
}

var _ PlayerRepo = (*MemPlayerRepo)(nil)
