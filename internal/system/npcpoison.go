package system

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// NPCPoisonEffect ticks venom on poisoned NPCs across every map. Deaths
// credit whoever applied the poison, even after they logged off.
type NPCPoisonEffect struct {
	d     *Deps
	clock globalClock
}

func NewNPCPoisonEffect(d *Deps) *NPCPoisonEffect {
	return &NPCPoisonEffect{d: d}
}

func (e *NPCPoisonEffect) Name() string { return "npc_poison" }

func (e *NPCPoisonEffect) Run(ctx context.Context, now time.Time) error {
	if !e.clock.due(now, e.d.interval(ctx, "effects.npc_poison.interval", 2)) {
		return nil
	}

	dmg := int32(e.d.Tun.Int(ctx, "effects.npc_poison.damage_per_tick", poisonDamagePerTick))
	g := new(errgroup.Group)
	g.SetLimit(defaultNpcChunkSize)
	for _, n := range e.d.State.AllNPCs() {
		n := n
		until, by := n.PoisonState()
		if until.IsZero() || n.IsDead() {
			continue
		}
		if now.After(until) {
			n.Poison(time.Time{}, 0)
			continue
		}
		g.Go(func() error {
			if n.ApplyDamage(dmg) <= 0 {
				e.d.Death.HandleDeath(ctx, n, by)
			}
			return nil
		})
	}
	return g.Wait()
}
