package data

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSpawnsParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spawns.yaml")
	doc := `spawns:
  - map: 1
    npc: 3
    x: 50
    y: 52
    heading: 2
  - map: 2
    npc: 7
    x: 10
    y: 10
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	spawns, err := LoadSpawns(path)
	if err != nil {
		t.Fatalf("LoadSpawns: %v", err)
	}
	if len(spawns) != 2 {
		t.Fatalf("spawns = %d, want 2", len(spawns))
	}
	first := spawns[0]
	if first.Map != 1 || first.NPC != 3 || first.X != 50 || first.Y != 52 || first.Heading != 2 {
		t.Fatalf("first spawn = %+v", first)
	}
	// Omitted heading falls back to south.
	if spawns[1].Heading != 3 {
		t.Fatalf("default heading = %d, want 3", spawns[1].Heading)
	}
}

func TestLoadSpawnsRejectsNonYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spawns.yaml")
	if err := os.WriteFile(path, []byte("[[spawns]]\nmap = 1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadSpawns(path); err == nil {
		t.Fatal("TOML document must not parse as the spawn table")
	}
}
