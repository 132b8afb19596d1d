package system

import (
	"context"
	"time"

	"github.com/cavazquez/pyao-server-sub005/internal/game"
)

// MeditationEffect restores mana while meditating, one recovery every
// 3 seconds, and wakes the player once the pool is full.
type MeditationEffect struct {
	d     *Deps
	clock *perUserClock
}

func NewMeditationEffect(d *Deps) *MeditationEffect {
	return &MeditationEffect{d: d, clock: newPerUserClock()}
}

func (e *MeditationEffect) Name() string { return "meditation" }

func (e *MeditationEffect) Apply(ctx context.Context, userID int32, now time.Time) error {
	meditating, err := e.d.Players.IsMeditating(ctx, userID)
	if err != nil || !meditating {
		return err
	}
	if !e.clock.due(userID, now, e.d.interval(ctx, "effects.meditation.interval", 3)) {
		return nil
	}

	stats, err := e.d.Players.GetStats(ctx, userID)
	if err != nil {
		return err
	}
	recover := int16(e.d.Tun.Int(ctx, "effects.meditation.mana_per_tick", manaRecoveryPerTick))
	mana := stats.MinMana + recover
	full := mana >= stats.MaxMana
	if full {
		mana = stats.MaxMana
	}
	if err := e.d.Players.UpdateMana(ctx, userID, mana); err != nil {
		return err
	}
	snd := e.d.sender(userID)
	if snd != nil {
		snd.UpdateMana(mana)
	}
	if full {
		if err := e.d.Players.SetMeditating(ctx, userID, false); err != nil {
			return err
		}
		if snd != nil {
			snd.MeditateToggle()
			snd.ConsoleMsg("Has terminado de meditar.", game.ColorInfo)
		}
	}
	return nil
}
