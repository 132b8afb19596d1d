package system

import (
	"context"
	"time"

	"github.com/cavazquez/pyao-server-sub005/internal/game"
)

// HungerThirstEffect drains water and food on their configured cadences
// and warns the player at each zero-crossing.
type HungerThirstEffect struct {
	d     *Deps
	water *perUserClock
	food  *perUserClock
}

func NewHungerThirstEffect(d *Deps) *HungerThirstEffect {
	return &HungerThirstEffect{d: d, water: newPerUserClock(), food: newPerUserClock()}
}

func (e *HungerThirstEffect) Name() string { return "hunger_thirst" }

func (e *HungerThirstEffect) Apply(ctx context.Context, userID int32, now time.Time) error {
	cfg := e.d.Game.HungerThirst
	drinkDue := e.water.due(userID, now, e.d.interval(ctx, "effects.hunger_thirst.interval_sed", cfg.IntervalSed))
	eatDue := e.food.due(userID, now, e.d.interval(ctx, "effects.hunger_thirst.interval_hambre", cfg.IntervalHambre))
	if !drinkDue && !eatDue {
		return nil
	}

	ht, err := e.d.Players.GetHungerThirst(ctx, userID)
	if err != nil {
		return err
	}
	snd := e.d.sender(userID)

	changed := false
	if drinkDue && ht.MinAgu > 0 {
		ht.MinAgu = sub(ht.MinAgu, byte(cfg.ReduccionAgua))
		changed = true
		if ht.MinAgu == 0 && snd != nil {
			snd.ConsoleMsg("¡Tenés sed!", game.ColorWarn)
		}
	}
	if eatDue && ht.MinHam > 0 {
		ht.MinHam = sub(ht.MinHam, byte(cfg.ReduccionHambre))
		changed = true
		if ht.MinHam == 0 && snd != nil {
			snd.ConsoleMsg("¡Tenés hambre!", game.ColorWarn)
		}
	}
	if !changed {
		return nil
	}
	if err := e.d.Players.SetHungerThirst(ctx, userID, ht); err != nil {
		return err
	}
	if snd != nil {
		snd.UpdateHungerAndThirst(ht.MaxAgu, ht.MinAgu, ht.MaxHam, ht.MinHam)
	}
	return nil
}

func sub(v, by byte) byte {
	if by == 0 {
		by = 1
	}
	if v <= by {
		return 0
	}
	return v - by
}
