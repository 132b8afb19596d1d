package data

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// SpellEffect is the kind of effect a spell applies on its target.
type SpellEffect string

const (
	SpellDamage   SpellEffect = "damage"
	SpellHeal     SpellEffect = "heal"
	SpellPoison   SpellEffect = "poison"
	SpellParalyze SpellEffect = "paralyze"
	SpellMorph    SpellEffect = "morph"
	SpellSummon   SpellEffect = "summon"
	SpellBuff     SpellEffect = "buff" // STR/AGI attribute modifier
)

// SpellTemplate is one catalogue entry.
type SpellTemplate struct {
	ID       int16       `toml:"id"`
	Name     string      `toml:"name"`
	Words    string      `toml:"words"` // incantation shown over the caster
	ManaCost int16       `toml:"manaCost"`
	Effect   SpellEffect `toml:"effect"`

	MinDamage int32 `toml:"minDamage"`
	MaxDamage int32 `toml:"maxDamage"`
	Heal      int32 `toml:"heal"`

	DurationSeconds float64 `toml:"duration"` // poison/paralyze/morph/summon/buff

	MorphBody int16 `toml:"morphBody"`
	MorphHead int16 `toml:"morphHead"`

	SummonNPC int16 `toml:"summonNpc"`

	BuffAttribute string `toml:"buffAttribute"` // "strength" or "agility"
	BuffDelta     int    `toml:"buffDelta"`

	FX      int16 `toml:"fx"`
	FXLoops int16 `toml:"fxLoops"`
	Wave    byte  `toml:"wave"`
}

// Duration returns the effect duration.
func (t *SpellTemplate) Duration() time.Duration {
	return time.Duration(t.DurationSeconds * float64(time.Second))
}

type spellsFile struct {
	Spells []SpellTemplate `toml:"spells"`
}

// SpellTable is the loaded spell catalogue.
type SpellTable struct {
	byID map[int16]*SpellTemplate
}

func LoadSpells(path string) (*SpellTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spells %s: %w", path, err)
	}
	var f spellsFile
	if err := toml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse spells: %w", err)
	}
	return NewSpellTable(f.Spells), nil
}

func NewSpellTable(spells []SpellTemplate) *SpellTable {
	t := &SpellTable{byID: make(map[int16]*SpellTemplate, len(spells))}
	for i := range spells {
		s := spells[i]
		t.byID[s.ID] = &s
	}
	return t
}

func (t *SpellTable) Get(id int16) *SpellTemplate {
	return t.byID[id]
}

func (t *SpellTable) Count() int {
	return len(t.byID)
}
