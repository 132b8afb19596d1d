package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SpawnPoint places one NPC instance at world start.
type SpawnPoint struct {
	Map     int16 `yaml:"map"`
	NPC     int16 `yaml:"npc"`
	X       byte  `yaml:"x"`
	Y       byte  `yaml:"y"`
	Heading byte  `yaml:"heading"`
}

type spawnsFile struct {
	Spawns []SpawnPoint `yaml:"spawns"`
}

// LoadSpawns reads the spawn table. Heading defaults to south when omitted.
func LoadSpawns(path string) ([]SpawnPoint, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spawns %s: %w", path, err)
	}
	var f spawnsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse spawns: %w", err)
	}
	for i := range f.Spawns {
		if f.Spawns[i].Heading < 1 || f.Spawns[i].Heading > 4 {
			f.Spawns[i].Heading = 3 // south
		}
	}
	return f.Spawns, nil
}
