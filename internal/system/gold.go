package system

import (
	"context"
	"fmt"
	"time"

	"github.com/cavazquez/pyao-server-sub005/internal/game"
)

// GoldDecayEffect removes a configured percentage of carried gold on a
// fixed cadence. Broke characters are left alone.
type GoldDecayEffect struct {
	d     *Deps
	clock *perUserClock
}

func NewGoldDecayEffect(d *Deps) *GoldDecayEffect {
	return &GoldDecayEffect{d: d, clock: newPerUserClock()}
}

func (e *GoldDecayEffect) Name() string { return "gold_decay" }

func (e *GoldDecayEffect) Apply(ctx context.Context, userID int32, now time.Time) error {
	cfg := e.d.Game.GoldDecay
	if !e.clock.due(userID, now, e.d.interval(ctx, "effects.gold_decay.interval", cfg.IntervalSeconds)) {
		return nil
	}
	pct := e.d.Tun.Float(ctx, "effects.gold_decay.percentage", cfg.Percentage)
	if pct <= 0 {
		return nil
	}

	stats, err := e.d.Players.GetStats(ctx, userID)
	if err != nil {
		return err
	}
	if stats.Gold <= 0 {
		return nil
	}
	cut := int32(float64(stats.Gold) * pct / 100)
	if cut < 1 {
		cut = 1
	}
	stats.Gold -= cut
	if stats.Gold < 0 {
		stats.Gold = 0
	}
	if err := e.d.Players.UpdateGold(ctx, userID, stats.Gold); err != nil {
		return err
	}
	if snd := e.d.sender(userID); snd != nil {
		snd.UpdateUserStats(game.StatsData(stats))
		snd.ConsoleMsg(fmt.Sprintf("Has perdido %d monedas de oro.", cut), game.ColorWarn)
	}
	return nil
}
