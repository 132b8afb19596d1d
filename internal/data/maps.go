package data

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Edge names a map border for transitions.
type Edge string

const (
	EdgeNorth Edge = "north"
	EdgeSouth Edge = "south"
	EdgeEast  Edge = "east"
	EdgeWest  Edge = "west"
)

// TileClass is the terrain classification of one tile.
type TileClass byte

const (
	TileOpen TileClass = iota
	TileBlocked
	TileWater
	TileTree
	TileMine
	TileAnvil
	TileForge
	TileSign
	TileDoor
)

func (c TileClass) String() string {
	switch c {
	case TileOpen:
		return "open"
	case TileBlocked:
		return "blocked"
	case TileWater:
		return "water"
	case TileTree:
		return "tree"
	case TileMine:
		return "mine"
	case TileAnvil:
		return "anvil"
	case TileForge:
		return "forge"
	case TileSign:
		return "sign"
	case TileDoor:
		return "door"
	default:
		return "unknown"
	}
}

// Transition is the target of a border crossing.
type Transition struct {
	ToMap int16 `json:"toMap"`
	ToX   byte  `json:"toX"`
	ToY   byte  `json:"toY"`
}

// mapFile is the baked JSON produced by the external .map importer.
// Rows hold one character per tile: . open, B blocked, W water, T tree,
// M mine, A anvil, F forge, S sign, D door. Coordinates are 1-based.
type mapFile struct {
	ID          int16                 `json:"id"`
	Version     int16                 `json:"version"`
	Width       int                   `json:"width"`
	Height      int                   `json:"height"`
	Rows        []string              `json:"rows"`
	Transitions map[string]Transition `json:"transitions"`
}

var classByChar = map[byte]TileClass{
	'.': TileOpen,
	'B': TileBlocked,
	'W': TileWater,
	'T': TileTree,
	'M': TileMine,
	'A': TileAnvil,
	'F': TileForge,
	'S': TileSign,
	'D': TileDoor,
}

// Map is one loaded world map.
type Map struct {
	ID          int16
	Version     int16
	Width       int
	Height      int
	tiles       []TileClass // row-major, (y-1)*Width + (x-1)
	transitions map[Edge]Transition
}

func (m *Map) at(x, y int) (TileClass, bool) {
	if x < 1 || y < 1 || x > m.Width || y > m.Height {
		return TileBlocked, false
	}
	return m.tiles[(y-1)*m.Width+(x-1)], true
}

// MapRegistry exposes every loaded map by id. Read-only after load, so it is
// shared across goroutines without locking.
type MapRegistry struct {
	maps map[int16]*Map
}

// LoadMaps reads every *.json map in dir.
func LoadMaps(dir string) (*MapRegistry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read map dir %s: %w", dir, err)
	}
	reg := &MapRegistry{maps: make(map[int16]*Map)}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read map %s: %w", e.Name(), err)
		}
		m, err := parseMap(raw)
		if err != nil {
			return nil, fmt.Errorf("parse map %s: %w", e.Name(), err)
		}
		reg.maps[m.ID] = m
	}
	if len(reg.maps) == 0 {
		return nil, fmt.Errorf("no maps found in %s", dir)
	}
	return reg, nil
}

// NewMapRegistry wraps pre-built maps; used by tests and tools.
func NewMapRegistry(maps ...*Map) *MapRegistry {
	reg := &MapRegistry{maps: make(map[int16]*Map, len(maps))}
	for _, m := range maps {
		reg.maps[m.ID] = m
	}
	return reg
}

func parseMap(raw []byte) (*Map, error) {
	var f mapFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	if f.Width <= 0 || f.Height <= 0 || len(f.Rows) != f.Height {
		return nil, fmt.Errorf("map %d: bad dimensions %dx%d with %d rows",
			f.ID, f.Width, f.Height, len(f.Rows))
	}
	m := &Map{
		ID:          f.ID,
		Version:     f.Version,
		Width:       f.Width,
		Height:      f.Height,
		tiles:       make([]TileClass, f.Width*f.Height),
		transitions: make(map[Edge]Transition),
	}
	for y, row := range f.Rows {
		if len(row) != f.Width {
			return nil, fmt.Errorf("map %d: row %d has %d tiles, want %d",
				f.ID, y+1, len(row), f.Width)
		}
		for x := 0; x < f.Width; x++ {
			class, ok := classByChar[row[x]]
			if !ok {
				return nil, fmt.Errorf("map %d: unknown tile %q at (%d,%d)",
					f.ID, row[x], x+1, y+1)
			}
			m.tiles[y*f.Width+x] = class
		}
	}
	for edge, tr := range f.Transitions {
		switch Edge(edge) {
		case EdgeNorth, EdgeSouth, EdgeEast, EdgeWest:
			m.transitions[Edge(edge)] = tr
		default:
			return nil, fmt.Errorf("map %d: unknown transition edge %q", f.ID, edge)
		}
	}
	return m, nil
}

// BuildMap assembles a Map in memory; the test fixtures and the importer
// tool both use it.
func BuildMap(id, version int16, width, height int, tiles []TileClass, transitions map[Edge]Transition) *Map {
	if transitions == nil {
		transitions = map[Edge]Transition{}
	}
	return &Map{
		ID:          id,
		Version:     version,
		Width:       width,
		Height:      height,
		tiles:       tiles,
		transitions: transitions,
	}
}

// Get returns a map by id, or nil.
func (r *MapRegistry) Get(mapID int16) *Map {
	return r.maps[mapID]
}

// Count returns the number of loaded maps.
func (r *MapRegistry) Count() int {
	return len(r.maps)
}

// CanMoveTo reports whether the tile exists, is walkable and not blocked by
// static terrain. Water counts as non-walkable (vessels are handled
// elsewhere).
func (r *MapRegistry) CanMoveTo(mapID int16, x, y int) bool {
	m := r.maps[mapID]
	if m == nil {
		return false
	}
	class, ok := m.at(x, y)
	if !ok {
		return false
	}
	return class == TileOpen || class == TileSign || class == TileDoor
}

// Classify returns the tile class tag; out-of-range tiles are blocked.
func (r *MapRegistry) Classify(mapID int16, x, y int) TileClass {
	m := r.maps[mapID]
	if m == nil {
		return TileBlocked
	}
	class, _ := m.at(x, y)
	return class
}

// TransitionFor returns the configured crossing for a map edge.
func (r *MapRegistry) TransitionFor(mapID int16, edge Edge) (Transition, bool) {
	m := r.maps[mapID]
	if m == nil {
		return Transition{}, false
	}
	tr, ok := m.transitions[edge]
	return tr, ok
}

// IsBorder reports whether (x,y) sits on the named edge of the map.
func (r *MapRegistry) IsBorder(mapID int16, x, y int, edge Edge) bool {
	m := r.maps[mapID]
	if m == nil {
		return false
	}
	switch edge {
	case EdgeNorth:
		return y <= 1
	case EdgeSouth:
		return y >= m.Height
	case EdgeWest:
		return x <= 1
	case EdgeEast:
		return x >= m.Width
	}
	return false
}

// Size returns the dimensions of a map, or (0,0) when unknown.
func (r *MapRegistry) Size(mapID int16) (int, int) {
	m := r.maps[mapID]
	if m == nil {
		return 0, 0
	}
	return m.Width, m.Height
}
