package system

import (
	"context"
	"time"

	"github.com/cavazquez/pyao-server-sub005/internal/game"
)

// SummonExpiryEffect despawns summoned creatures whose lease ran out.
type SummonExpiryEffect struct {
	d     *Deps
	clock globalClock
}

func NewSummonExpiryEffect(d *Deps) *SummonExpiryEffect {
	return &SummonExpiryEffect{d: d}
}

func (e *SummonExpiryEffect) Name() string { return "summon_expiry" }

func (e *SummonExpiryEffect) Run(ctx context.Context, now time.Time) error {
	if !e.clock.due(now, e.d.interval(ctx, "effects.summon_expiry.interval", 5)) {
		return nil
	}
	for _, n := range e.d.State.AllNPCs() {
		if n.OwnerUserID == 0 || now.Before(n.ExpiresAt) {
			continue
		}
		e.d.NPCs.Remove(n)
		if snd := e.d.sender(n.OwnerUserID); snd != nil {
			snd.ConsoleMsg("Tu invocación ha desaparecido.", game.ColorInfo)
		}
	}
	return nil
}
