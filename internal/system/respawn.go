package system

import (
	"context"
	"time"
)

// RespawnEffect materializes queued NPC respawns whose deadline passed.
type RespawnEffect struct {
	d     *Deps
	clock globalClock
}

func NewRespawnEffect(d *Deps) *RespawnEffect {
	return &RespawnEffect{d: d}
}

func (e *RespawnEffect) Name() string { return "npc_respawn" }

func (e *RespawnEffect) Run(ctx context.Context, now time.Time) error {
	if !e.clock.due(now, e.d.interval(ctx, "effects.npc_respawn.interval", 1)) {
		return nil
	}
	e.d.NPCs.ProcessRespawns(now)
	return nil
}
