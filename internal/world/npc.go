package world

import (
	"sort"
	"sync"
	"time"

	"github.com/cavazquez/pyao-server-sub005/internal/data"
)

// NPC is one live instance on a map. Template fields are fixed after
// spawn; the mutable block at the bottom is guarded by mu because combat
// handlers and tick effects touch it from different goroutines.
type NPC struct {
	InstanceID int32
	CharIndex  int16
	Template   *data.NPCTemplate

	Map    int16
	SpawnX int
	SpawnY int

	// Summoned creatures despawn on a timer and fight for their owner.
	OwnerUserID int32
	ExpiresAt   time.Time

	mu             sync.Mutex
	x, y           int
	heading        Heading
	hp             int32
	poisonedUntil  time.Time
	poisonedBy     int32
	paralyzedUntil time.Time
	lastAttack     time.Time
	targetUserID   int32
}

// NewNPC builds a live instance from its template at a spawn tile.
func NewNPC(instanceID int32, charIndex int16, tpl *data.NPCTemplate, mapID int16, x, y int, heading Heading) *NPC {
	return &NPC{
		InstanceID: instanceID,
		CharIndex:  charIndex,
		Template:   tpl,
		Map:        mapID,
		SpawnX:     x,
		SpawnY:     y,
		x:          x,
		y:          y,
		heading:    heading,
		hp:         tpl.MaxHP,
	}
}

func (n *NPC) Pos() (x, y int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.x, n.y
}

func (n *NPC) Heading() Heading {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.heading
}

func (n *NPC) SetHeading(h Heading) {
	n.mu.Lock()
	n.heading = h
	n.mu.Unlock()
}

func (n *NPC) HP() int32 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.hp
}

// ApplyDamage subtracts damage and reports the remaining hp. HP never
// goes below zero.
func (n *NPC) ApplyDamage(dmg int32) (remaining int32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.hp -= dmg
	if n.hp < 0 {
		n.hp = 0
	}
	return n.hp
}

// Heal adds hp up to the template maximum.
func (n *NPC) Heal(amount int32) int32 {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.hp += amount
	if n.hp > n.Template.MaxHP {
		n.hp = n.Template.MaxHP
	}
	return n.hp
}

func (n *NPC) IsDead() bool {
	return n.HP() <= 0
}

// Poison marks the NPC poisoned until the deadline, remembering who did it
// so the kill credit survives a poison death.
func (n *NPC) Poison(until time.Time, byUserID int32) {
	n.mu.Lock()
	n.poisonedUntil = until
	n.poisonedBy = byUserID
	n.mu.Unlock()
}

func (n *NPC) PoisonState() (until time.Time, byUserID int32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.poisonedUntil, n.poisonedBy
}

func (n *NPC) IsPoisoned(now time.Time) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return now.Before(n.poisonedUntil)
}

func (n *NPC) Paralyze(until time.Time) {
	n.mu.Lock()
	n.paralyzedUntil = until
	n.mu.Unlock()
}

func (n *NPC) IsParalyzed(now time.Time) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return now.Before(n.paralyzedUntil)
}

// ReadyToAttack checks the attack cooldown and, when ready, stamps the
// attack time so a concurrent check cannot double-fire.
func (n *NPC) ReadyToAttack(now time.Time) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if now.Sub(n.lastAttack) < n.Template.Cooldown() {
		return false
	}
	n.lastAttack = now
	return true
}

func (n *NPC) Target() int32 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.targetUserID
}

func (n *NPC) SetTarget(userID int32) {
	n.mu.Lock()
	n.targetUserID = userID
	n.mu.Unlock()
}

// AddNPC registers a live NPC and claims its tile. Fails when the tile is
// already taken.
func (s *State) AddNPC(n *NPC) bool {
	sh := s.shard(n.Map)
	sh.mu.Lock()
	x, y := n.Pos()
	c := coord{x, y}
	if _, taken := sh.occupancy[c]; taken {
		sh.mu.Unlock()
		return false
	}
	sh.npcs[n.InstanceID] = n
	sh.occupancy[c] = NPCTag(n.InstanceID)
	sh.mu.Unlock()

	s.mu.Lock()
	s.liveIdx[n.CharIndex] = struct{}{}
	s.mu.Unlock()
	return true
}

// RemoveNPC drops an NPC from the roster, frees its tile and returns its
// char index to the pool.
func (s *State) RemoveNPC(mapID int16, instanceID int32) {
	sh := s.shard(mapID)
	sh.mu.Lock()
	n := sh.npcs[instanceID]
	if n == nil {
		sh.mu.Unlock()
		return
	}
	x, y := n.Pos()
	c := coord{x, y}
	if sh.occupancy[c] == NPCTag(instanceID) {
		delete(sh.occupancy, c)
	}
	delete(sh.npcs, instanceID)
	sh.mu.Unlock()

	s.mu.Lock()
	delete(s.liveIdx, n.CharIndex)
	s.mu.Unlock()
}

// MoveNPC steps an NPC one tile; the occupancy swap is atomic under the
// map lock. Fails when the target tile is taken.
func (s *State) MoveNPC(n *NPC, toX, toY int) bool {
	sh := s.shard(n.Map)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if sh.npcs[n.InstanceID] == nil {
		return false
	}
	to := coord{toX, toY}
	if _, taken := sh.occupancy[to]; taken {
		return false
	}
	n.mu.Lock()
	from := coord{n.x, n.y}
	if sh.occupancy[from] == NPCTag(n.InstanceID) {
		delete(sh.occupancy, from)
	}
	sh.occupancy[to] = NPCTag(n.InstanceID)
	n.heading = HeadingBetween(n.x, n.y, toX, toY)
	n.x, n.y = toX, toY
	n.mu.Unlock()
	return true
}

// NPCByInstance finds a live NPC on a map.
func (s *State) NPCByInstance(mapID int16, instanceID int32) *NPC {
	sh := s.shard(mapID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return sh.npcs[instanceID]
}

// NPCAt returns the NPC standing on a tile, if any.
func (s *State) NPCAt(mapID int16, x, y int) *NPC {
	sh := s.shard(mapID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	t, ok := sh.occupancy[coord{x, y}]
	if !ok || t.Kind != TagNPC {
		return nil
	}
	return sh.npcs[t.ID]
}

// NPCsInMap snapshots the live NPC roster of a map, stable by instance id.
func (s *State) NPCsInMap(mapID int16) []*NPC {
	sh := s.shard(mapID)
	sh.mu.RLock()
	out := make([]*NPC, 0, len(sh.npcs))
	for _, n := range sh.npcs {
		out = append(out, n)
	}
	sh.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].InstanceID < out[j].InstanceID })
	return out
}

// MapsWithNPCs lists every map that currently has at least one NPC.
func (s *State) MapsWithNPCs() []int16 {
	s.mu.RLock()
	shards := make([]*mapShard, 0, len(s.shards))
	for _, sh := range s.shards {
		shards = append(shards, sh)
	}
	s.mu.RUnlock()

	var out []int16
	for _, sh := range shards {
		sh.mu.RLock()
		if len(sh.npcs) > 0 {
			out = append(out, sh.id)
		}
		sh.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AllNPCs snapshots every live NPC across all maps.
func (s *State) AllNPCs() []*NPC {
	var out []*NPC
	for _, mapID := range s.MapsWithNPCs() {
		out = append(out, s.NPCsInMap(mapID)...)
	}
	return out
}
