package game

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cavazquez/pyao-server-sub005/internal/data"
	"github.com/cavazquez/pyao-server-sub005/internal/net"
	"github.com/cavazquez/pyao-server-sub005/internal/persist"
	"github.com/cavazquez/pyao-server-sub005/internal/world"
)

// NPCAI drives hostile NPCs: acquire the nearest player in aggro range,
// close the distance one step at a time, swing when adjacent. Idle
// wandering belongs to the movement effect, not here.
type NPCAI struct {
	state   *world.State
	maps    *data.MapRegistry
	npcs    *NPCEngine
	combat  *CombatEngine
	players persist.PlayerRepo
	log     *zap.Logger
}

func NewNPCAI(state *world.State, maps *data.MapRegistry, npcs *NPCEngine, combat *CombatEngine, players persist.PlayerRepo, log *zap.Logger) *NPCAI {
	return &NPCAI{
		state:   state,
		maps:    maps,
		npcs:    npcs,
		combat:  combat,
		players: players,
		log:     log,
	}
}

// Tick runs one AI pass over every hostile NPC. Returns how many NPCs
// acted (moved or attacked).
func (a *NPCAI) Tick(ctx context.Context, now time.Time) int {
	acted := 0
	for _, mapID := range a.state.MapsWithNPCs() {
		players := a.state.PlayersInMap(mapID, 0)
		if len(players) == 0 {
			continue
		}
		for _, n := range a.state.NPCsInMap(mapID) {
			if !n.Template.Hostile || n.OwnerUserID != 0 || n.IsDead() {
				continue
			}
			if a.act(ctx, n, players, now) {
				acted++
			}
		}
	}
	return acted
}

// act runs one NPC's decision: target, attack or chase.
func (a *NPCAI) act(ctx context.Context, n *world.NPC, players []world.PlayerView, now time.Time) bool {
	nx, ny := n.Pos()
	target, dist := a.acquireTarget(ctx, n, players, nx, ny)
	if target == nil {
		n.SetTarget(0)
		return false
	}
	n.SetTarget(target.UserID)

	if dist == 1 {
		n.SetHeading(world.HeadingBetween(nx, ny, target.X, target.Y))
		if !n.ReadyToAttack(now) {
			return false
		}
		a.attack(ctx, n, target)
		return true
	}
	return a.chase(n, nx, ny, target.X, target.Y, now)
}

// acquireTarget picks the nearest living player inside aggro range.
// A still-valid current target wins ties so the NPC does not flip-flop
// between equidistant players.
func (a *NPCAI) acquireTarget(ctx context.Context, n *world.NPC, players []world.PlayerView, nx, ny int) (*world.PlayerView, int) {
	aggro := n.Template.AggroRange
	if aggro <= 0 {
		return nil, 0
	}
	current := n.Target()

	var best *world.PlayerView
	bestDist := aggro + 1
	for i := range players {
		p := &players[i]
		d := world.Manhattan(nx, ny, p.X, p.Y)
		if d > aggro {
			continue
		}
		alive, err := a.players.IsAlive(ctx, p.UserID)
		if err != nil || !alive {
			continue
		}
		if d < bestDist || (d == bestDist && p.UserID == current) {
			best = p
			bestDist = d
		}
	}
	if best == nil {
		return nil, 0
	}
	return best, bestDist
}

func (a *NPCAI) attack(ctx context.Context, n *world.NPC, target *world.PlayerView) {
	snd := net.NewSender(target.Push)
	res, err := a.combat.NPCAttacksPlayer(ctx, n, target.UserID, snd)
	if err != nil {
		a.log.Error("npc attack", zap.Int32("npc", n.InstanceID), zap.Int32("user", target.UserID), zap.Error(err))
		return
	}
	switch {
	case res.Dodged:
		snd.ConsoleMsg(fmt.Sprintf("¡Has esquivado el ataque de %s!", n.Template.Name), ColorCombat)
	case res.PlayerDied:
		snd.ConsoleMsg(fmt.Sprintf("¡%s te ha matado!", n.Template.Name), ColorCombat)
		if err := a.combat.Revive(ctx, target.UserID, snd); err != nil {
			a.log.Error("revive after npc kill", zap.Int32("user", target.UserID), zap.Error(err))
		}
	default:
		snd.ConsoleMsg(fmt.Sprintf("%s te ha golpeado por %d.", n.Template.Name, res.Damage), ColorCombat)
	}
}

// chase steps one tile toward the target along an A* path. The goal tile
// itself is occupied by the target, so adjacency counts as arrival.
func (a *NPCAI) chase(n *world.NPC, nx, ny, tx, ty int, now time.Time) bool {
	walkable := func(x, y int) bool {
		return a.maps.CanMoveTo(n.Map, x, y) && !a.state.IsTileOccupied(n.Map, x, y)
	}
	sx, sy, heading, ok := world.NextStep(nx, ny, tx, ty, world.DefaultPathDepth, walkable)
	if !ok {
		if heading.Valid() {
			n.SetHeading(heading)
		}
		return false
	}
	return a.npcs.Move(n, sx, sy, now)
}
