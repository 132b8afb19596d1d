package world

import "sort"

// GroundItem is one stack lying on a tile. A tile holds at most one stack
// per item template; drops of the same template merge.
type GroundItem struct {
	ItemID int16
	Amount int16
	Grh    int16
}

// AddGroundItem drops a stack on a tile, merging into an existing stack of
// the same template. Returns true when a new stack appeared (the tile
// needs an OBJECT_CREATE), false when an existing one grew.
func (s *State) AddGroundItem(mapID int16, x, y int, itemID, amount, grh int16) (created bool) {
	sh := s.shard(mapID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	c := coord{x, y}
	tile := sh.ground[c]
	if tile == nil {
		tile = make(map[int16]*GroundItem, 1)
		sh.ground[c] = tile
	}
	if st := tile[itemID]; st != nil {
		st.Amount += amount
		return false
	}
	tile[itemID] = &GroundItem{ItemID: itemID, Amount: amount, Grh: grh}
	return true
}

// TakeGroundItem removes and returns the whole stack of one template from
// a tile.
func (s *State) TakeGroundItem(mapID int16, x, y int, itemID int16) (GroundItem, bool) {
	sh := s.shard(mapID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	c := coord{x, y}
	tile := sh.ground[c]
	st := tile[itemID]
	if st == nil {
		return GroundItem{}, false
	}
	delete(tile, itemID)
	if len(tile) == 0 {
		delete(sh.ground, c)
	}
	return *st, true
}

// TakeFirstGroundItem removes and returns the stack with the lowest item
// id on a tile; pickups are deterministic this way.
func (s *State) TakeFirstGroundItem(mapID int16, x, y int) (GroundItem, bool) {
	sh := s.shard(mapID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	c := coord{x, y}
	tile := sh.ground[c]
	if len(tile) == 0 {
		return GroundItem{}, false
	}
	best := int16(0)
	first := true
	for id := range tile {
		if first || id < best {
			best = id
			first = false
		}
	}
	st := *tile[best]
	delete(tile, best)
	if len(tile) == 0 {
		delete(sh.ground, c)
	}
	return st, true
}

// GroundItemsAt snapshots the stacks on one tile, stable by item id.
func (s *State) GroundItemsAt(mapID int16, x, y int) []GroundItem {
	sh := s.shard(mapID)
	sh.mu.RLock()
	tile := sh.ground[coord{x, y}]
	out := make([]GroundItem, 0, len(tile))
	for _, st := range tile {
		out = append(out, *st)
	}
	sh.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out
}

// GroundTile is one occupied tile of the ground ledger.
type GroundTile struct {
	X, Y  int
	Items []GroundItem
}

// GroundItemsInMap snapshots the whole ground ledger of a map; used to
// paint the floor for a player entering the map.
func (s *State) GroundItemsInMap(mapID int16) []GroundTile {
	sh := s.shard(mapID)
	sh.mu.RLock()
	out := make([]GroundTile, 0, len(sh.ground))
	for c, tile := range sh.ground {
		gt := GroundTile{X: c.x, Y: c.y, Items: make([]GroundItem, 0, len(tile))}
		for _, st := range tile {
			gt.Items = append(gt.Items, *st)
		}
		sort.Slice(gt.Items, func(i, j int) bool { return gt.Items[i].ItemID < gt.Items[j].ItemID })
		out = append(out, gt)
	}
	sh.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}
