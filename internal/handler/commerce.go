package handler

import (
	"fmt"

	"github.com/cavazquez/pyao-server-sub005/internal/game"
	"github.com/cavazquez/pyao-server-sub005/internal/net"
	"github.com/cavazquez/pyao-server-sub005/internal/net/packet"
	"github.com/cavazquez/pyao-server-sub005/internal/world"
)

// handleDoubleClick interacts with the NPC on the faced tile: merchants
// open their stock, bankers open the vault, everyone else introduces
// themselves.
func (d *Deps) handleDoubleClick(sess any, r *packet.Reader) {
	s := sess.(Session)
	snd := net.NewSender(s)
	r.Byte() // legacy target slot, unused
	ctx := d.ctx()
	userID := s.UserID()

	v, ok := d.State.PlayerView(userID)
	if !ok {
		return
	}
	pos, err := d.Players.GetPosition(ctx, userID)
	if err != nil {
		d.logErr("doubleclick: load position", userID, err)
		return
	}
	heading := world.Heading(pos.Heading)
	if !heading.Valid() {
		heading = world.South
	}
	dx, dy := heading.Delta()

	npc := d.State.NPCAt(v.Map, v.X+dx, v.Y+dy)
	if npc == nil {
		snd.ConsoleMsg("No hay nadie ahí.", game.ColorInfo)
		return
	}
	tpl := npc.Template

	switch {
	case tpl.Merchant:
		stock := make([]net.SlotData, 0, len(tpl.Stock))
		for i, line := range tpl.Stock {
			it := d.Items.Get(line.Item)
			if it == nil {
				continue
			}
			stock = append(stock, net.SlotData{
				Slot:      byte(i + 1),
				ItemID:    it.ID,
				Name:      it.Name,
				Amount:    line.Amount,
				Grh:       it.Grh,
				Type:      it.WireType(),
				MaxHit:    it.MaxHit,
				MinHit:    it.MinHit,
				MaxDef:    it.MaxDef,
				MinDef:    it.MinDef,
				SalePrice: it.Price,
			})
		}
		snd.CommerceInit(tpl.ID, stock)
	case tpl.Banker:
		bank, err := d.Players.GetBank(ctx, userID)
		if err != nil {
			d.logErr("doubleclick: load bank", userID, err)
			return
		}
		snd.BankInit()
		for slot, item := range bank {
			snd.ChangeBankSlot(d.slotData(slot, item))
		}
	default:
		if tpl.Description != "" {
			snd.ConsoleMsg(fmt.Sprintf("%s: %s", tpl.Name, tpl.Description), game.ColorTalk)
		} else {
			snd.ConsoleMsg(fmt.Sprintf("Ves a %s.", tpl.Name), game.ColorInfo)
		}
	}
}

func (d *Deps) handleCommerceEnd(sess any, _ *packet.Reader) {
	net.NewSender(sess.(Session)).CommerceEnd()
}

func (d *Deps) handleBankEnd(sess any, _ *packet.Reader) {
	net.NewSender(sess.(Session)).BankEnd()
}
