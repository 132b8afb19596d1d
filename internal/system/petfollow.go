package system

import (
	"context"
	"time"

	"github.com/cavazquez/pyao-server-sub005/internal/world"
)

// PetFollowEffect walks summoned creatures back toward their owner when
// they drift too far behind.
type PetFollowEffect struct {
	d     *Deps
	clock globalClock
}

func NewPetFollowEffect(d *Deps) *PetFollowEffect {
	return &PetFollowEffect{d: d}
}

func (e *PetFollowEffect) Name() string { return "pet_follow" }

func (e *PetFollowEffect) Run(ctx context.Context, now time.Time) error {
	if !e.clock.due(now, e.d.interval(ctx, "effects.pet_follow.interval", 2)) {
		return nil
	}
	maxDist := e.d.Tun.Int(ctx, "effects.pet_follow.max_distance", maxPetFollowDistance)
	for _, n := range e.d.State.AllNPCs() {
		if n.OwnerUserID == 0 || n.IsDead() || n.IsParalyzed(now) {
			continue
		}
		owner, ok := e.d.State.PlayerView(n.OwnerUserID)
		if !ok || owner.Map != n.Map {
			continue
		}
		x, y := n.Pos()
		if world.Manhattan(x, y, owner.X, owner.Y) <= maxDist {
			continue
		}
		nx, ny, _, ok := world.NextStep(x, y, owner.X, owner.Y, world.DefaultPathDepth, e.walkable(n.Map))
		if !ok {
			continue
		}
		e.d.NPCs.Move(n, nx, ny, now)
	}
	return nil
}

func (e *PetFollowEffect) walkable(mapID int16) world.WalkableFunc {
	return func(x, y int) bool {
		return e.d.Maps.CanMoveTo(mapID, x, y) && !e.d.State.IsTileOccupied(mapID, x, y)
	}
}
