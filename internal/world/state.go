package world

import (
	"sort"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TagKind says what sort of entity occupies a tile.
type TagKind byte

const (
	TagPlayer TagKind = iota + 1
	TagNPC
)

// Tag identifies a tile occupant: a user id or an NPC instance id.
type Tag struct {
	Kind TagKind
	ID   int32
}

// PlayerTag builds the occupancy tag for a user.
func PlayerTag(userID int32) Tag { return Tag{Kind: TagPlayer, ID: userID} }

// NPCTag builds the occupancy tag for an NPC instance.
func NPCTag(instanceID int32) Tag { return Tag{Kind: TagNPC, ID: instanceID} }

// Pusher is the outbound side of a connected session.
type Pusher interface {
	Send(frame []byte)
}

// PlayerView is a consistent snapshot of one player taken under the map lock.
type PlayerView struct {
	UserID    int32
	Username  string
	CharIndex int16
	Map       int16
	X, Y      int
	Push      Pusher
}

type coord struct {
	x, y int
}

type playerEntry struct {
	userID    int32
	username  string
	charIndex int16
	x, y      int
	push      Pusher
}

// mapShard holds everything that lives on one map. All fields are guarded
// by mu so that a move and the broadcast enumeration racing it observe a
// single consistent order.
type mapShard struct {
	mu        sync.RWMutex
	id        int16
	players   map[int32]*playerEntry
	npcs      map[int32]*NPC
	occupancy map[coord]Tag
	ground    map[coord]map[int16]*GroundItem
}

func newMapShard(id int16) *mapShard {
	return &mapShard{
		id:        id,
		players:   make(map[int32]*playerEntry),
		npcs:      make(map[int32]*NPC),
		occupancy: make(map[coord]Tag),
		ground:    make(map[coord]map[int16]*GroundItem),
	}
}

// State is the in-memory spatial index: who is connected, which map each
// entity is on, and which tiles are taken. Usernames are matched
// case-insensitively with Spanish folding so "Ñandú" and "ñandú" collide.
type State struct {
	mu     sync.RWMutex
	shards map[int16]*mapShard
	byUser map[int32]int16  // userID -> current map
	byName map[string]int32 // folded username -> userID
	folder cases.Caser

	// Char index allocation. Players draw from [1, NPCCharIndexBase) and
	// NPCs from [NPCCharIndexBase, maxCharIndex]; liveIdx holds every
	// index currently bound to a live character so neither cursor can
	// re-issue one, and releases make indexes reusable.
	liveIdx       map[int16]struct{}
	nextPlayerIdx int16
	nextNPCIdx    int16
}

// NPCCharIndexBase is the first char index handed to NPC instances; user
// char indexes stay below it.
const NPCCharIndexBase int16 = 10001

const maxCharIndex int16 = 32767

func NewState() *State {
	return &State{
		shards:        make(map[int16]*mapShard),
		byUser:        make(map[int32]int16),
		byName:        make(map[string]int32),
		folder:        cases.Lower(language.Spanish),
		liveIdx:       make(map[int16]struct{}),
		nextPlayerIdx: 1,
		nextNPCIdx:    NPCCharIndexBase,
	}
}

// FoldName normalizes a username for index lookups.
func (s *State) FoldName(name string) string {
	return s.folder.String(name)
}

func (s *State) shard(mapID int16) *mapShard {
	s.mu.RLock()
	sh := s.shards[mapID]
	s.mu.RUnlock()
	if sh != nil {
		return sh
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sh = s.shards[mapID]; sh == nil {
		sh = newMapShard(mapID)
		s.shards[mapID] = sh
	}
	return sh
}

// AllocPlayerCharIndex hands out a char index below NPCCharIndexBase,
// recycling indexes freed by RemovePlayer. Returns 0 when the whole player
// range is in use.
func (s *State) AllocPlayerCharIndex() int16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allocIdx(&s.nextPlayerIdx, 1, NPCCharIndexBase-1)
}

// NextNPCCharIndex hands out a char index for an NPC instance, wrapping
// within the NPC range and skipping indexes still bound to live
// characters. Returns 0 when the range is exhausted.
func (s *State) NextNPCCharIndex() int16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allocIdx(&s.nextNPCIdx, NPCCharIndexBase, maxCharIndex)
}

// ReleaseCharIndex returns an index to its pool. Add/Remove do this for
// indexed characters; callers that allocated but never placed the
// character must release by hand.
func (s *State) ReleaseCharIndex(idx int16) {
	s.mu.Lock()
	delete(s.liveIdx, idx)
	s.mu.Unlock()
}

// allocIdx scans from *cursor, wrapping inside [lo, hi] and skipping live
// indexes. The returned index is marked live. Caller holds s.mu.
func (s *State) allocIdx(cursor *int16, lo, hi int16) int16 {
	span := int(hi) - int(lo) + 1
	for i := 0; i < span; i++ {
		idx := *cursor
		if idx < lo || idx > hi {
			idx = lo
		}
		if idx == hi {
			*cursor = lo
		} else {
			*cursor = idx + 1
		}
		if _, taken := s.liveIdx[idx]; !taken {
			s.liveIdx[idx] = struct{}{}
			return idx
		}
	}
	return 0
}

// AddPlayer registers a connected player on a map and claims its tile.
// It fails when the tile already has an occupant.
func (s *State) AddPlayer(mapID int16, userID int32, username string, charIndex int16, x, y int, push Pusher) bool {
	sh := s.shard(mapID)
	sh.mu.Lock()
	c := coord{x, y}
	if _, taken := sh.occupancy[c]; taken {
		sh.mu.Unlock()
		return false
	}
	sh.players[userID] = &playerEntry{
		userID:    userID,
		username:  username,
		charIndex: charIndex,
		x:         x,
		y:         y,
		push:      push,
	}
	sh.occupancy[c] = PlayerTag(userID)
	sh.mu.Unlock()

	s.mu.Lock()
	s.byUser[userID] = mapID
	s.byName[s.folder.String(username)] = userID
	s.liveIdx[charIndex] = struct{}{}
	s.mu.Unlock()
	return true
}

// RemovePlayer drops a player from every index and frees its tile.
func (s *State) RemovePlayer(userID int32) {
	s.mu.Lock()
	mapID, ok := s.byUser[userID]
	delete(s.byUser, userID)
	s.mu.Unlock()
	if !ok {
		return
	}

	sh := s.shard(mapID)
	sh.mu.Lock()
	if e := sh.players[userID]; e != nil {
		c := coord{e.x, e.y}
		if sh.occupancy[c] == PlayerTag(userID) {
			delete(sh.occupancy, c)
		}
		delete(sh.players, userID)
		sh.mu.Unlock()

		s.mu.Lock()
		if s.byName[s.folder.String(e.username)] == userID {
			delete(s.byName, s.folder.String(e.username))
		}
		delete(s.liveIdx, e.charIndex)
		s.mu.Unlock()
		return
	}
	sh.mu.Unlock()
}

// MovePlayer advances a player one tile on its current map. The occupancy
// swap is atomic under the map lock; it fails when the target is taken.
func (s *State) MovePlayer(userID int32, toX, toY int) bool {
	s.mu.RLock()
	mapID, ok := s.byUser[userID]
	s.mu.RUnlock()
	if !ok {
		return false
	}

	sh := s.shard(mapID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	e := sh.players[userID]
	if e == nil {
		return false
	}
	to := coord{toX, toY}
	if _, taken := sh.occupancy[to]; taken {
		return false
	}
	from := coord{e.x, e.y}
	if sh.occupancy[from] == PlayerTag(userID) {
		delete(sh.occupancy, from)
	}
	sh.occupancy[to] = PlayerTag(userID)
	e.x, e.y = toX, toY
	return true
}

// TransferPlayer moves a player to another map, claiming the destination
// tile before releasing the origin so the player is never unindexed.
func (s *State) TransferPlayer(userID int32, toMap int16, toX, toY int) bool {
	s.mu.RLock()
	fromMap, ok := s.byUser[userID]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	if fromMap == toMap {
		return s.MovePlayer(userID, toX, toY)
	}

	src := s.shard(fromMap)
	dst := s.shard(toMap)
	// Lock shards in map-id order so concurrent transfers cannot deadlock.
	first, second := src, dst
	if dst.id < src.id {
		first, second = dst, src
	}
	first.mu.Lock()
	second.mu.Lock()
	defer first.mu.Unlock()
	defer second.mu.Unlock()

	e := src.players[userID]
	if e == nil {
		return false
	}
	to := coord{toX, toY}
	if _, taken := dst.occupancy[to]; taken {
		return false
	}
	from := coord{e.x, e.y}
	if src.occupancy[from] == PlayerTag(userID) {
		delete(src.occupancy, from)
	}
	delete(src.players, userID)
	e.x, e.y = toX, toY
	dst.players[userID] = e
	dst.occupancy[to] = PlayerTag(userID)

	s.mu.Lock()
	s.byUser[userID] = toMap
	s.mu.Unlock()
	return true
}

// PlayerPos returns the indexed position of a connected player.
func (s *State) PlayerPos(userID int32) (mapID int16, x, y int, ok bool) {
	s.mu.RLock()
	mapID, ok = s.byUser[userID]
	s.mu.RUnlock()
	if !ok {
		return 0, 0, 0, false
	}
	sh := s.shard(mapID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	e := sh.players[userID]
	if e == nil {
		return 0, 0, 0, false
	}
	return mapID, e.x, e.y, true
}

// PlayerView snapshots one connected player.
func (s *State) PlayerView(userID int32) (PlayerView, bool) {
	s.mu.RLock()
	mapID, ok := s.byUser[userID]
	s.mu.RUnlock()
	if !ok {
		return PlayerView{}, false
	}
	sh := s.shard(mapID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	e := sh.players[userID]
	if e == nil {
		return PlayerView{}, false
	}
	return viewOf(mapID, e), true
}

// PlayerByName resolves a username (Spanish case folding) to a snapshot.
func (s *State) PlayerByName(name string) (PlayerView, bool) {
	s.mu.RLock()
	userID, ok := s.byName[s.folder.String(name)]
	s.mu.RUnlock()
	if !ok {
		return PlayerView{}, false
	}
	return s.PlayerView(userID)
}

// IsConnected reports whether a username is currently logged in.
func (s *State) IsConnected(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byName[s.folder.String(name)]
	return ok
}

// PusherFor returns the outbound queue of a connected player.
func (s *State) PusherFor(userID int32) Pusher {
	v, ok := s.PlayerView(userID)
	if !ok {
		return nil
	}
	return v.Push
}

// PlayersInMap snapshots every player on a map, except excludeUserID
// (pass 0 to exclude nobody). Order is stable by user id.
func (s *State) PlayersInMap(mapID int16, excludeUserID int32) []PlayerView {
	sh := s.shard(mapID)
	sh.mu.RLock()
	out := make([]PlayerView, 0, len(sh.players))
	for _, e := range sh.players {
		if e.userID == excludeUserID {
			continue
		}
		out = append(out, viewOf(mapID, e))
	}
	sh.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// AllUserIDs lists every connected user id.
func (s *State) AllUserIDs() []int32 {
	s.mu.RLock()
	out := make([]int32, 0, len(s.byUser))
	for id := range s.byUser {
		out = append(out, id)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// OnlineCount returns how many players are logged in.
func (s *State) OnlineCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byUser)
}

// PlayersInMapCount returns the roster size of one map.
func (s *State) PlayersInMapCount(mapID int16) int {
	sh := s.shard(mapID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return len(sh.players)
}

// OccupantAt returns the tag on a tile, if any.
func (s *State) OccupantAt(mapID int16, x, y int) (Tag, bool) {
	sh := s.shard(mapID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	t, ok := sh.occupancy[coord{x, y}]
	return t, ok
}

// IsTileOccupied reports whether any entity stands on the tile.
func (s *State) IsTileOccupied(mapID int16, x, y int) bool {
	_, ok := s.OccupantAt(mapID, x, y)
	return ok
}

func viewOf(mapID int16, e *playerEntry) PlayerView {
	return PlayerView{
		UserID:    e.userID,
		Username:  e.username,
		CharIndex: e.charIndex,
		Map:       mapID,
		X:         e.x,
		Y:         e.y,
		Push:      e.push,
	}
}
