package game

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cavazquez/pyao-server-sub005/internal/config"
	"github.com/cavazquez/pyao-server-sub005/internal/data"
	"github.com/cavazquez/pyao-server-sub005/internal/net"
	"github.com/cavazquez/pyao-server-sub005/internal/world"
)

// NPCEngine owns the NPC lifecycle: boot spawn, movement, despawn and the
// respawn queue. Live instances live in the spatial index; templates come
// from the catalogue.
type NPCEngine struct {
	state *world.State
	maps  *data.MapRegistry
	tpls  *data.NPCTable
	bcast *Broadcaster
	game  config.GameConfig
	rng   *lockedRand
	log   *zap.Logger

	mu       sync.Mutex
	nextInst int32
	pending  []pendingRespawn
}

type pendingRespawn struct {
	template int16
	mapID    int16
	x, y     int
	due      time.Time
}

func NewNPCEngine(state *world.State, maps *data.MapRegistry, tpls *data.NPCTable, bcast *Broadcaster, game config.GameConfig, rng *lockedRand, log *zap.Logger) *NPCEngine {
	return &NPCEngine{
		state:    state,
		maps:     maps,
		tpls:     tpls,
		bcast:    bcast,
		game:     game,
		rng:      rng,
		log:      log,
		nextInst: 1,
	}
}

// ClearAll despawns every live NPC without broadcasts; used before a boot
// spawn so a restart never duplicates the population.
func (e *NPCEngine) ClearAll() {
	for _, n := range e.state.AllNPCs() {
		e.state.RemoveNPC(n.Map, n.InstanceID)
	}
	e.mu.Lock()
	e.pending = nil
	e.mu.Unlock()
}

// SpawnFromConfig wipes stale state and instantiates the spawn table.
// Unknown template ids and unplaceable tiles are logged and skipped.
func (e *NPCEngine) SpawnFromConfig(spawns []data.SpawnPoint) int {
	e.ClearAll()
	placed := 0
	for _, sp := range spawns {
		tpl := e.tpls.Get(sp.NPC)
		if tpl == nil {
			e.log.Warn("spawn references unknown npc template", zap.Int16("npc", sp.NPC))
			continue
		}
		if e.Spawn(tpl, sp.Map, int(sp.X), int(sp.Y), world.Heading(sp.Heading)) == nil {
			e.log.Warn("no free tile for spawn",
				zap.Int16("npc", sp.NPC), zap.Int16("map", sp.Map),
				zap.Uint8("x", sp.X), zap.Uint8("y", sp.Y))
			continue
		}
		placed++
	}
	return placed
}

// Spawn places one instance at (x,y), spiralling out to the nearest free
// walkable tile when the exact one is taken. Returns nil when no tile
// within the search radius works.
func (e *NPCEngine) Spawn(tpl *data.NPCTemplate, mapID int16, x, y int, heading world.Heading) *world.NPC {
	fx, fy, ok := e.findFreeTile(mapID, x, y, 5)
	if !ok {
		return nil
	}
	if !heading.Valid() {
		heading = world.South
	}

	e.mu.Lock()
	inst := e.nextInst
	e.nextInst++
	e.mu.Unlock()

	idx := e.state.NextNPCCharIndex()
	if idx == 0 {
		e.log.Error("npc char index space exhausted", zap.Int16("npc", tpl.ID))
		return nil
	}
	n := world.NewNPC(inst, idx, tpl, mapID, fx, fy, heading)
	if !e.state.AddNPC(n) {
		e.state.ReleaseCharIndex(idx)
		return nil
	}
	e.bcast.CharacterCreate(mapID, 0, fx, fy, e.CreateData(n))
	return n
}

// SpawnSummon places a pet bound to its caster; SummonExpiry despawns it
// when the timer runs out.
func (e *NPCEngine) SpawnSummon(tpl *data.NPCTemplate, mapID int16, x, y int, owner int32, until time.Time) *world.NPC {
	n := e.Spawn(tpl, mapID, x, y, world.South)
	if n == nil {
		return nil
	}
	n.OwnerUserID = owner
	n.ExpiresAt = until
	return n
}

// findFreeTile spirals outward ring by ring looking for a walkable,
// unoccupied tile.
func (e *NPCEngine) findFreeTile(mapID int16, x, y, radius int) (int, int, bool) {
	if e.tileFree(mapID, x, y) {
		return x, y, true
	}
	for r := 1; r <= radius; r++ {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if world.Chebyshev(0, 0, dx, dy) != r {
					continue
				}
				tx, ty := x+dx, y+dy
				if e.tileFree(mapID, tx, ty) {
					return tx, ty, true
				}
			}
		}
	}
	return 0, 0, false
}

func (e *NPCEngine) tileFree(mapID int16, x, y int) bool {
	return e.maps.CanMoveTo(mapID, x, y) && !e.state.IsTileOccupied(mapID, x, y)
}

// CreateData builds the CHARACTER_CREATE block for an NPC.
func (e *NPCEngine) CreateData(n *world.NPC) net.CharacterCreateData {
	x, y := n.Pos()
	return net.CharacterCreateData{
		CharIndex: n.CharIndex,
		Body:      n.Template.Body,
		Head:      n.Template.Head,
		Heading:   byte(n.Heading()),
		X:         byte(x),
		Y:         byte(y),
		Name:      n.Template.Name,
	}
}

// Move steps an NPC one tile. The step is refused for paralyzed NPCs and
// for blocked or occupied destinations. Observers near either endpoint
// get exactly one CHARACTER_MOVE.
func (e *NPCEngine) Move(n *world.NPC, toX, toY int, now time.Time) bool {
	if n.IsParalyzed(now) {
		return false
	}
	if !e.maps.CanMoveTo(n.Map, toX, toY) {
		return false
	}
	fromX, fromY := n.Pos()
	if !e.state.MoveNPC(n, toX, toY) {
		return false
	}

	seen := make(map[int32]bool)
	notify := func(x, y int) {
		e.bcast.ToArea(n.Map, x, y, 0, func(v world.PlayerView, snd *net.Sender) {
			if seen[v.UserID] {
				return
			}
			seen[v.UserID] = true
			snd.CharacterMove(n.CharIndex, byte(toX), byte(toY))
		})
	}
	notify(fromX, fromY)
	notify(toX, toY)
	return true
}

// Remove despawns an instance and tells the whole map.
func (e *NPCEngine) Remove(n *world.NPC) {
	e.state.RemoveNPC(n.Map, n.InstanceID)
	e.bcast.CharacterRemove(n.Map, 0, n.CharIndex)
}

// SendNPCsToPlayer paints the map's NPC roster for an arriving session.
func (e *NPCEngine) SendNPCsToPlayer(snd *net.Sender, mapID int16) {
	for _, n := range e.state.NPCsInMap(mapID) {
		snd.CharacterCreate(e.CreateData(n))
	}
}

// ScheduleRespawn queues a future spawn at the death tile, due uniformly
// inside the template's respawn window (server defaults when unset).
func (e *NPCEngine) ScheduleRespawn(tpl *data.NPCTemplate, mapID int16, x, y int, now time.Time) {
	minS, maxS := tpl.RespawnMin, tpl.RespawnMax
	if minS <= 0 {
		minS = e.game.RespawnMinSeconds
	}
	if maxS < minS {
		maxS = e.game.RespawnMaxSeconds
		if maxS < minS {
			maxS = minS
		}
	}
	delay := time.Duration(e.rng.Between(int32(minS), int32(maxS))) * time.Second
	e.mu.Lock()
	e.pending = append(e.pending, pendingRespawn{
		template: tpl.ID,
		mapID:    mapID,
		x:        x,
		y:        y,
		due:      now.Add(delay),
	})
	e.mu.Unlock()
}

// ProcessRespawns spawns every queued entry whose deadline passed.
// Entries that still cannot be placed go back in the queue for the next
// pass.
func (e *NPCEngine) ProcessRespawns(now time.Time) int {
	e.mu.Lock()
	var due, rest []pendingRespawn
	for _, p := range e.pending {
		if now.Before(p.due) {
			rest = append(rest, p)
		} else {
			due = append(due, p)
		}
	}
	e.pending = rest
	e.mu.Unlock()

	spawned := 0
	for _, p := range due {
		tpl := e.tpls.Get(p.template)
		if tpl == nil {
			continue
		}
		if e.Spawn(tpl, p.mapID, p.x, p.y, world.South) == nil {
			p.due = now.Add(5 * time.Second)
			e.mu.Lock()
			e.pending = append(e.pending, p)
			e.mu.Unlock()
			continue
		}
		spawned++
	}
	return spawned
}

// PendingRespawns reports the queue length; shutdown logging uses it.
func (e *NPCEngine) PendingRespawns() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}
