package system

import (
	"context"
	"time"
)

// NPCAIEffect drives hostile NPC target acquisition and attacks on its
// own cadence, independent of the slower movement stroll.
type NPCAIEffect struct {
	d     *Deps
	clock globalClock
}

func NewNPCAIEffect(d *Deps) *NPCAIEffect {
	return &NPCAIEffect{d: d}
}

func (e *NPCAIEffect) Name() string { return "npc_ai" }

func (e *NPCAIEffect) Run(ctx context.Context, now time.Time) error {
	ms := e.d.Tun.Int(ctx, "effects.npc_ai.interval_ms", 3500)
	if ms <= 0 {
		ms = 3500
	}
	if !e.clock.due(now, time.Duration(ms)*time.Millisecond) {
		return nil
	}
	e.d.AI.Tick(ctx, now)
	return nil
}
