package system

import (
	"context"
	"time"
)

// StaminaRegenEffect tops stamina back up on its configured cadence.
type StaminaRegenEffect struct {
	d     *Deps
	clock *perUserClock
}

func NewStaminaRegenEffect(d *Deps) *StaminaRegenEffect {
	return &StaminaRegenEffect{d: d, clock: newPerUserClock()}
}

func (e *StaminaRegenEffect) Name() string { return "stamina_regen" }

func (e *StaminaRegenEffect) Apply(ctx context.Context, userID int32, now time.Time) error {
	cfg := e.d.Game.Stamina
	if !e.clock.due(userID, now, e.d.interval(ctx, "effects.stamina.interval", cfg.IntervalSeconds)) {
		return nil
	}
	stats, err := e.d.Players.GetStats(ctx, userID)
	if err != nil {
		return err
	}
	if stats.MinSta >= stats.MaxSta {
		return nil
	}
	sta := stats.MinSta + int16(cfg.RegenAmount)
	if sta > stats.MaxSta {
		sta = stats.MaxSta
	}
	if err := e.d.Players.UpdateStamina(ctx, userID, sta); err != nil {
		return err
	}
	if snd := e.d.sender(userID); snd != nil {
		snd.UpdateSta(sta)
	}
	return nil
}
