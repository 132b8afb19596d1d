package game

import (
	"go.uber.org/zap"

	"github.com/cavazquez/pyao-server-sub005/internal/config"
	"github.com/cavazquez/pyao-server-sub005/internal/data"
	"github.com/cavazquez/pyao-server-sub005/internal/persist"
	"github.com/cavazquez/pyao-server-sub005/internal/scripting"
	"github.com/cavazquez/pyao-server-sub005/internal/world"
)

// Engines bundles the wired game services. The construction order
// matters: death settlement sits between the NPC engine and combat, and
// both combat and spells report kills through it.
type Engines struct {
	Bcast    *Broadcaster
	Progress *Progress
	NPCs     *NPCEngine
	Death    *NPCDeathService
	Combat   *CombatEngine
	Spells   *SpellEngine
	AI       *NPCAI
}

func NewEngines(
	cfg config.GameConfig,
	state *world.State,
	maps *data.MapRegistry,
	items *data.ItemTable,
	npcTpls *data.NPCTable,
	spellTpls *data.SpellTable,
	loot *data.LootTable,
	players persist.PlayerRepo,
	lua *scripting.Engine,
	log *zap.Logger,
) *Engines {
	rng := newLockedRand()
	bcast := NewBroadcaster(state, log)
	progress := NewProgress(players, cfg.Character, lua, log)
	npcs := NewNPCEngine(state, maps, npcTpls, bcast, cfg, rng, log)
	death := NewNPCDeathService(state, items, loot, npcs, bcast, progress, rng, log)
	combat := NewCombatEngine(cfg.Combat, state, players, items, death, lua, rng, log)
	spells := NewSpellEngine(state, players, spellTpls, npcTpls, npcs, death, bcast, progress, lua, rng, log)
	ai := NewNPCAI(state, maps, npcs, combat, players, log)

	return &Engines{
		Bcast:    bcast,
		Progress: progress,
		NPCs:     npcs,
		Death:    death,
		Combat:   combat,
		Spells:   spells,
		AI:       ai,
	}
}
