package system

import (
	"context"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cavazquez/pyao-server-sub005/internal/data"
	"github.com/cavazquez/pyao-server-sub005/internal/world"
)

// NPCMovementEffect gives idle NPCs their stroll: hostiles close in on
// nearby players, wanderers drift around their spawn tile. A bounded
// random sample moves each round so huge worlds don't stall the tick.
type NPCMovementEffect struct {
	d     *Deps
	clock globalClock
	rng   *rand.Rand
}

func NewNPCMovementEffect(d *Deps) *NPCMovementEffect {
	return &NPCMovementEffect{d: d, rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (e *NPCMovementEffect) Name() string { return "npc_movement" }

type npcStep struct {
	n      *world.NPC
	tx, ty int
	chase  bool
}

func (e *NPCMovementEffect) Run(ctx context.Context, now time.Time) error {
	if !e.clock.due(now, e.d.interval(ctx, "effects.npc_movement.interval", 5)) {
		return nil
	}

	maxPerTick := e.d.Tun.Int(ctx, "effects.npc_movement.max_per_tick", defaultMaxNpcsPerTick)
	chunk := e.d.Tun.Int(ctx, "effects.npc_movement.chunk_size", defaultNpcChunkSize)
	if chunk < 1 {
		chunk = 1
	}

	all := e.d.State.AllNPCs()
	e.rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })

	var jobs []npcStep
	for _, n := range all {
		if len(jobs) >= maxPerTick {
			break
		}
		if n.OwnerUserID != 0 || n.IsDead() || n.IsParalyzed(now) {
			continue
		}
		if job, ok := e.plan(n); ok {
			jobs = append(jobs, job)
		}
	}

	g := new(errgroup.Group)
	g.SetLimit(chunk)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			e.step(job, now)
			return nil
		})
	}
	return g.Wait()
}

// plan picks a destination. Hostiles approach the nearest player in
// range; random walkers get a tile near their spawn. The step itself is
// resolved later so planning stays cheap.
func (e *NPCMovementEffect) plan(n *world.NPC) (npcStep, bool) {
	x, y := n.Pos()
	if n.Template.Hostile {
		if v, ok := e.nearestPlayer(n.Map, x, y); ok {
			return npcStep{n: n, tx: v.X, ty: v.Y, chase: true}, true
		}
	}
	if n.Template.Movement != data.MoveRandom {
		return npcStep{}, false
	}
	tx := n.SpawnX + e.rng.Intn(2*npcWanderRadius+1) - npcWanderRadius
	ty := n.SpawnY + e.rng.Intn(2*npcWanderRadius+1) - npcWanderRadius
	if tx == x && ty == y {
		return npcStep{}, false
	}
	return npcStep{n: n, tx: tx, ty: ty}, true
}

func (e *NPCMovementEffect) nearestPlayer(mapID int16, x, y int) (world.PlayerView, bool) {
	var best world.PlayerView
	bestDist := npcApproachRange + 1
	for _, v := range e.d.State.PlayersInMap(mapID, 0) {
		if d := world.Manhattan(x, y, v.X, v.Y); d < bestDist && d > 1 {
			best, bestDist = v, d
		}
	}
	return best, bestDist <= npcApproachRange
}

func (e *NPCMovementEffect) step(job npcStep, now time.Time) {
	x, y := job.n.Pos()
	nx, ny, _, ok := world.NextStep(x, y, job.tx, job.ty, world.DefaultPathDepth, func(px, py int) bool {
		return e.d.Maps.CanMoveTo(job.n.Map, px, py) && !e.d.State.IsTileOccupied(job.n.Map, px, py)
	})
	if !ok {
		return
	}
	e.d.NPCs.Move(job.n, nx, ny, now)
}
