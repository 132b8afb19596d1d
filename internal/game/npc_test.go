package game

import (
	"testing"
	"time"

	"github.com/cavazquez/pyao-server-sub005/internal/data"
	"github.com/cavazquez/pyao-server-sub005/internal/world"
)

func TestSpawnFromConfigSkipsUnknownTemplates(t *testing.T) {
	r := newRig(t)
	placed := r.npcs.SpawnFromConfig([]data.SpawnPoint{
		{NPC: 1, Map: 1, X: 10, Y: 10, Heading: 3},
		{NPC: 99, Map: 1, X: 12, Y: 12, Heading: 3},
	})
	if placed != 1 {
		t.Fatalf("placed = %d, want 1", placed)
	}
	if got := len(r.state.NPCsInMap(1)); got != 1 {
		t.Fatalf("npcs on map = %d, want 1", got)
	}
}

func TestSpawnFromConfigIsIdempotentAcrossRestarts(t *testing.T) {
	r := newRig(t)
	spawns := []data.SpawnPoint{{NPC: 1, Map: 1, X: 10, Y: 10, Heading: 3}}
	r.npcs.SpawnFromConfig(spawns)
	r.npcs.SpawnFromConfig(spawns)
	if got := len(r.state.NPCsInMap(1)); got != 1 {
		t.Fatalf("npcs after double boot = %d, want 1", got)
	}
}

func TestSpawnSpiralsToNearestFreeTile(t *testing.T) {
	r := newRig(t)
	first := r.spawnNPC(t, 1, 10, 10)
	second := r.spawnNPC(t, 1, 10, 10) // exact tile taken

	fx, fy := first.Pos()
	sx, sy := second.Pos()
	if fx != 10 || fy != 10 {
		t.Fatalf("first spawn at (%d,%d), want requested tile", fx, fy)
	}
	if sx == 10 && sy == 10 {
		t.Fatal("second spawn stacked on an occupied tile")
	}
	if world.Chebyshev(sx, sy, 10, 10) != 1 {
		t.Fatalf("second spawn at (%d,%d), want the adjacent ring", sx, sy)
	}
}

func TestRespawnFiresAfterDeadline(t *testing.T) {
	r := newRig(t)
	tpl := r.npcTpls.Get(1) // respawn window pinned to 1s
	now := time.Now()
	r.npcs.ScheduleRespawn(tpl, 1, 10, 10, now)

	if spawned := r.npcs.ProcessRespawns(now); spawned != 0 {
		t.Fatalf("spawned = %d before the deadline, want 0", spawned)
	}
	if spawned := r.npcs.ProcessRespawns(now.Add(2 * time.Second)); spawned != 1 {
		t.Fatalf("spawned = %d after the deadline, want 1", spawned)
	}
	if r.npcs.PendingRespawns() != 0 {
		t.Fatalf("pending = %d after respawn, want 0", r.npcs.PendingRespawns())
	}
}

func TestMoveRefusedIntoOccupiedTile(t *testing.T) {
	r := newRig(t)
	wolf := r.spawnNPC(t, 1, 10, 10)
	r.spawnNPC(t, 1, 11, 10)

	if r.npcs.Move(wolf, 11, 10, time.Now()) {
		t.Fatal("move succeeded into an occupied tile")
	}
	x, y := wolf.Pos()
	if x != 10 || y != 10 {
		t.Fatalf("wolf at (%d,%d) after refused move", x, y)
	}
}

func TestMoveNotifiesObserverOnce(t *testing.T) {
	r := newRig(t)
	// Observer within range of both endpoints must get exactly one frame.
	push := r.addPlayer(t, 1, "observer", 12, 10)
	wolf := r.spawnNPC(t, 1, 10, 10)
	push.reset()

	if !r.npcs.Move(wolf, 10, 11, time.Now()) {
		t.Fatal("move refused on open ground")
	}
	if got := len(push.frames); got != 1 {
		t.Fatalf("observer got %d frames, want exactly 1", got)
	}
}

func TestMoveSetsHeadingTowardStep(t *testing.T) {
	r := newRig(t)
	wolf := r.spawnNPC(t, 1, 10, 10)
	if !r.npcs.Move(wolf, 10, 9, time.Now()) {
		t.Fatal("move refused")
	}
	if wolf.Heading() != world.North {
		t.Fatalf("heading = %v after stepping north, want %v", wolf.Heading(), world.North)
	}
}

func TestRemoveFreesTileAndNotifiesMap(t *testing.T) {
	r := newRig(t)
	push := r.addPlayer(t, 1, "witness", 30, 30) // out of visual range, same map
	wolf := r.spawnNPC(t, 1, 10, 10)
	push.reset()

	r.npcs.Remove(wolf)
	if r.state.NPCAt(1, 10, 10) != nil {
		t.Fatal("tile still holds the removed npc")
	}
	if len(push.frames) != 1 {
		t.Fatalf("witness got %d frames, want the map-wide remove", len(push.frames))
	}
}
