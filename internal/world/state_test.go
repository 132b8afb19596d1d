package world

import "testing"

type nullPusher struct{ frames [][]byte }

func (p *nullPusher) Send(frame []byte) { p.frames = append(p.frames, frame) }

func TestAddPlayerClaimsTile(t *testing.T) {
	s := NewState()
	if !s.AddPlayer(1, 10, "gandalf", 1, 50, 50, &nullPusher{}) {
		t.Fatal("first add should succeed")
	}
	if s.AddPlayer(1, 11, "saruman", 2, 50, 50, &nullPusher{}) {
		t.Fatal("second add on the same tile should fail")
	}
	tag, ok := s.OccupantAt(1, 50, 50)
	if !ok || tag != PlayerTag(10) {
		t.Fatalf("tile should be tagged for user 10, got %+v ok=%v", tag, ok)
	}
}

func TestMovePlayerSwapsOccupancy(t *testing.T) {
	s := NewState()
	s.AddPlayer(1, 10, "gandalf", 1, 50, 50, &nullPusher{})
	if !s.MovePlayer(10, 51, 50) {
		t.Fatal("move to a free tile should succeed")
	}
	if s.IsTileOccupied(1, 50, 50) {
		t.Fatal("origin tile should be free after the move")
	}
	if !s.IsTileOccupied(1, 51, 50) {
		t.Fatal("destination tile should be taken")
	}
	_, x, y, _ := s.PlayerPos(10)
	if x != 51 || y != 50 {
		t.Fatalf("indexed position = (%d,%d), want (51,50)", x, y)
	}
}

func TestMovePlayerBlockedByOccupant(t *testing.T) {
	s := NewState()
	s.AddPlayer(1, 10, "gandalf", 1, 50, 50, &nullPusher{})
	s.AddPlayer(1, 11, "saruman", 2, 51, 50, &nullPusher{})
	if s.MovePlayer(10, 51, 50) {
		t.Fatal("move onto an occupied tile should fail")
	}
	_, x, y, _ := s.PlayerPos(10)
	if x != 50 || y != 50 {
		t.Fatalf("position should be unchanged, got (%d,%d)", x, y)
	}
}

func TestTransferPlayerAcrossMaps(t *testing.T) {
	s := NewState()
	s.AddPlayer(1, 10, "gandalf", 1, 80, 1, &nullPusher{})
	if !s.TransferPlayer(10, 2, 80, 99) {
		t.Fatal("transfer should succeed")
	}
	if s.IsTileOccupied(1, 80, 1) {
		t.Fatal("origin map tile should be free")
	}
	mapID, x, y, ok := s.PlayerPos(10)
	if !ok || mapID != 2 || x != 80 || y != 99 {
		t.Fatalf("player should be indexed on map 2 at (80,99), got map=%d (%d,%d)", mapID, x, y)
	}
	if len(s.PlayersInMap(1, 0)) != 0 {
		t.Fatal("old map roster should be empty")
	}
	if len(s.PlayersInMap(2, 0)) != 1 {
		t.Fatal("new map roster should hold the player")
	}
}

func TestRemovePlayerFreesEverything(t *testing.T) {
	s := NewState()
	s.AddPlayer(1, 10, "gandalf", 1, 50, 50, &nullPusher{})
	s.RemovePlayer(10)
	if s.IsTileOccupied(1, 50, 50) {
		t.Fatal("tile should be free after removal")
	}
	if s.IsConnected("gandalf") {
		t.Fatal("name index should be cleared")
	}
	if _, _, _, ok := s.PlayerPos(10); ok {
		t.Fatal("player should not be indexed")
	}
}

func TestPlayerByNameSpanishFolding(t *testing.T) {
	s := NewState()
	s.AddPlayer(1, 10, "Ñandú", 1, 50, 50, &nullPusher{})
	for _, name := range []string{"ñandú", "ÑANDÚ", "Ñandú"} {
		if v, ok := s.PlayerByName(name); !ok || v.UserID != 10 {
			t.Fatalf("lookup %q should find user 10", name)
		}
	}
	if _, ok := s.PlayerByName("nandu"); ok {
		t.Fatal("unaccented lookup should not match")
	}
}

func TestPlayersInMapExcludes(t *testing.T) {
	s := NewState()
	s.AddPlayer(1, 10, "a", 1, 10, 10, &nullPusher{})
	s.AddPlayer(1, 11, "b", 2, 11, 10, &nullPusher{})
	s.AddPlayer(2, 12, "c", 3, 10, 10, &nullPusher{})

	got := s.PlayersInMap(1, 10)
	if len(got) != 1 || got[0].UserID != 11 {
		t.Fatalf("expected only user 11, got %+v", got)
	}
	if n := s.OnlineCount(); n != 3 {
		t.Fatalf("OnlineCount = %d, want 3", n)
	}
}

func TestNPCCharIndexAllocation(t *testing.T) {
	s := NewState()
	if idx := s.NextNPCCharIndex(); idx != NPCCharIndexBase {
		t.Fatalf("first index = %d, want %d", idx, NPCCharIndexBase)
	}
	if idx := s.NextNPCCharIndex(); idx != NPCCharIndexBase+1 {
		t.Fatalf("second index = %d, want %d", idx, NPCCharIndexBase+1)
	}
}

func TestNPCCharIndexNeverLeavesNPCSpace(t *testing.T) {
	s := NewState()
	// Churn far past the width of the NPC range: the cursor must wrap
	// back to the base instead of overflowing into player space.
	churn := 2 * (int(maxCharIndex) - int(NPCCharIndexBase) + 1)
	for i := 0; i < churn; i++ {
		idx := s.NextNPCCharIndex()
		if idx < NPCCharIndexBase {
			t.Fatalf("allocation %d returned %d, below base %d", i, idx, NPCCharIndexBase)
		}
		s.ReleaseCharIndex(idx)
	}
}

func TestNPCCharIndexSkipsLiveAndRecycles(t *testing.T) {
	s := NewState()
	span := int(maxCharIndex) - int(NPCCharIndexBase) + 1

	seen := make(map[int16]bool, span)
	var last int16
	for i := 0; i < span; i++ {
		idx := s.NextNPCCharIndex()
		if idx == 0 {
			t.Fatalf("allocator dry after %d of %d indexes", i, span)
		}
		if seen[idx] {
			t.Fatalf("index %d issued twice while live", idx)
		}
		seen[idx] = true
		last = idx
	}
	if idx := s.NextNPCCharIndex(); idx != 0 {
		t.Fatalf("exhausted range yielded %d, want 0", idx)
	}
	s.ReleaseCharIndex(last)
	if idx := s.NextNPCCharIndex(); idx != last {
		t.Fatalf("freed index %d not reissued, got %d", last, idx)
	}
}

func TestPlayerCharIndexPoolRecyclesBelowNPCBase(t *testing.T) {
	s := NewState()
	// An index claimed through AddPlayer blocks the allocator until the
	// player leaves.
	s.AddPlayer(1, 10, "gandalf", 7, 50, 50, &nullPusher{})

	span := int(NPCCharIndexBase) - 1
	for i := 0; i < span-1; i++ {
		idx := s.AllocPlayerCharIndex()
		if idx == 0 {
			t.Fatalf("pool dry after %d allocations", i)
		}
		if idx == 7 {
			t.Fatal("allocator reissued a live index")
		}
		if idx >= NPCCharIndexBase {
			t.Fatalf("player index %d reached NPC space", idx)
		}
	}
	if idx := s.AllocPlayerCharIndex(); idx != 0 {
		t.Fatalf("full pool yielded %d, want 0", idx)
	}
	s.RemovePlayer(10)
	if idx := s.AllocPlayerCharIndex(); idx != 7 {
		t.Fatalf("departed player's index not recycled, got %d", idx)
	}
}

func TestGroundItemMergeAndTake(t *testing.T) {
	s := NewState()
	if !s.AddGroundItem(1, 40, 40, 7, 3, 512) {
		t.Fatal("first drop should create a stack")
	}
	if s.AddGroundItem(1, 40, 40, 7, 2, 512) {
		t.Fatal("second drop of same template should merge, not create")
	}
	if !s.AddGroundItem(1, 40, 40, 9, 1, 600) {
		t.Fatal("different template should create its own stack")
	}

	st, ok := s.TakeGroundItem(1, 40, 40, 7)
	if !ok || st.Amount != 5 {
		t.Fatalf("taken stack = %+v ok=%v, want amount 5", st, ok)
	}
	left := s.GroundItemsAt(1, 40, 40)
	if len(left) != 1 || left[0].ItemID != 9 {
		t.Fatalf("remaining stacks = %+v, want only item 9", left)
	}
	if _, ok := s.TakeGroundItem(1, 40, 40, 7); ok {
		t.Fatal("taking an absent stack should fail")
	}
}

func TestTakeFirstGroundItemIsDeterministic(t *testing.T) {
	s := NewState()
	s.AddGroundItem(1, 40, 40, 9, 1, 600)
	s.AddGroundItem(1, 40, 40, 7, 2, 512)
	st, ok := s.TakeFirstGroundItem(1, 40, 40)
	if !ok || st.ItemID != 7 {
		t.Fatalf("first pickup should be lowest item id, got %+v", st)
	}
}

func TestChebyshevVisibility(t *testing.T) {
	cases := []struct {
		x1, y1, x2, y2 int
		want           int
	}{
		{50, 50, 50, 50, 0},
		{50, 50, 65, 50, 15},
		{50, 50, 66, 50, 16},
		{50, 50, 60, 64, 14},
		{10, 10, 5, 25, 15},
	}
	for _, c := range cases {
		if got := Chebyshev(c.x1, c.y1, c.x2, c.y2); got != c.want {
			t.Errorf("Chebyshev(%d,%d,%d,%d) = %d, want %d", c.x1, c.y1, c.x2, c.y2, got, c.want)
		}
	}
}
