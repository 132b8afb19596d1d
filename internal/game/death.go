package game

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/cavazquez/pyao-server-sub005/internal/data"
	"github.com/cavazquez/pyao-server-sub005/internal/net"
	"github.com/cavazquez/pyao-server-sub005/internal/world"
)

// NPCDeathService settles an NPC kill: gold and loot hit the tile,
// the corpse leaves the world, the killer gets experience, and a respawn
// is queued. Summoned pets never respawn.
type NPCDeathService struct {
	state    *world.State
	items    *data.ItemTable
	loot     *data.LootTable
	npcs     *NPCEngine
	bcast    *Broadcaster
	progress *Progress
	rng      *lockedRand
	log      *zap.Logger
}

func NewNPCDeathService(state *world.State, items *data.ItemTable, loot *data.LootTable, npcs *NPCEngine, bcast *Broadcaster, progress *Progress, rng *lockedRand, log *zap.Logger) *NPCDeathService {
	return &NPCDeathService{
		state:    state,
		items:    items,
		loot:     loot,
		npcs:     npcs,
		bcast:    bcast,
		progress: progress,
		rng:      rng,
		log:      log,
	}
}

// HandleDeath runs the full kill settlement. killerUserID may be 0 when
// the killer is gone (poison from a disconnected player).
func (d *NPCDeathService) HandleDeath(ctx context.Context, n *world.NPC, killerUserID int32) {
	tpl := n.Template
	x, y := n.Pos()

	gold := d.rng.Between(tpl.GoldMin, tpl.GoldMax)
	if gold > 0 {
		amount := int16(gold)
		if gold > 32000 {
			amount = 32000
		}
		if d.state.AddGroundItem(n.Map, x, y, data.GoldItemID, amount, data.GoldGrh) {
			d.bcast.ObjectCreate(n.Map, x, y, data.GoldGrh)
		}
	}

	if d.loot != nil {
		var drops []data.RolledDrop
		d.rng.With(func(r *rand.Rand) { drops = d.loot.Roll(tpl.ID, r) })
		for _, drop := range drops {
			it := d.items.Get(drop.Item)
			if it == nil {
				d.log.Warn("loot references unknown item", zap.Int16("item", drop.Item))
				continue
			}
			if d.state.AddGroundItem(n.Map, x, y, it.ID, drop.Amount, it.Grh) {
				d.bcast.ObjectCreate(n.Map, x, y, it.Grh)
			}
		}
	}

	d.npcs.Remove(n)

	if n.OwnerUserID == 0 {
		d.npcs.ScheduleRespawn(tpl, n.Map, x, y, time.Now())
	}

	if killerUserID != 0 && tpl.Exp > 0 {
		// Only the notification needs a live session; the experience is
		// owed either way.
		var snd *net.Sender
		if push := d.state.PusherFor(killerUserID); push != nil {
			snd = net.NewSender(push)
			snd.ConsoleMsg(fmt.Sprintf("Has matado a %s. Ganás %d puntos de experiencia.", tpl.Name, tpl.Exp), ColorCombat)
		}
		if err := d.progress.AwardExp(ctx, killerUserID, tpl.Exp, snd); err != nil {
			d.log.Error("award kill experience", zap.Int32("user", killerUserID), zap.Error(err))
		}
	}
}
