package system

import (
	"context"
	"time"

	"github.com/cavazquez/pyao-server-sub005/internal/game"
)

// PoisonEffect ticks poison damage on afflicted players. Poison can kill:
// the victim is revived on the spot with the venom purged.
type PoisonEffect struct {
	d     *Deps
	clock *perUserClock
}

func NewPoisonEffect(d *Deps) *PoisonEffect {
	return &PoisonEffect{d: d, clock: newPerUserClock()}
}

func (e *PoisonEffect) Name() string { return "poison" }

func (e *PoisonEffect) Apply(ctx context.Context, userID int32, now time.Time) error {
	until, err := e.d.Players.GetPoisonedUntil(ctx, userID)
	if err != nil || until.IsZero() {
		return err
	}
	snd := e.d.sender(userID)

	if now.After(until) {
		if err := e.d.Players.SetPoisonedUntil(ctx, userID, time.Time{}); err != nil {
			return err
		}
		if snd != nil {
			snd.ConsoleMsg("El veneno ha dejado de hacer efecto.", game.ColorInfo)
		}
		return nil
	}
	if !e.clock.due(userID, now, e.d.interval(ctx, "effects.poison.interval", 2)) {
		return nil
	}

	stats, err := e.d.Players.GetStats(ctx, userID)
	if err != nil {
		return err
	}
	dmg := int16(e.d.Tun.Int(ctx, "effects.poison.damage_per_tick", poisonDamagePerTick))
	hp := stats.MinHP - dmg
	if hp > 0 {
		if err := e.d.Players.UpdateHP(ctx, userID, hp); err != nil {
			return err
		}
		if snd != nil {
			snd.UpdateHP(hp)
			snd.ConsoleMsg("El veneno te quita vida.", game.ColorCombat)
		}
		return nil
	}

	// The venom finished the job.
	if err := e.d.Players.UpdateHP(ctx, userID, 0); err != nil {
		return err
	}
	if err := e.d.Players.SetPoisonedUntil(ctx, userID, time.Time{}); err != nil {
		return err
	}
	if snd != nil {
		snd.UpdateHP(0)
		snd.ConsoleMsg("¡El veneno te ha matado!", game.ColorCombat)
	}
	return e.d.Combat.Revive(ctx, userID, snd)
}
