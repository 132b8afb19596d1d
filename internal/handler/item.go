package handler

import (
	"context"
	"fmt"

	"github.com/cavazquez/pyao-server-sub005/internal/data"
	"github.com/cavazquez/pyao-server-sub005/internal/game"
	"github.com/cavazquez/pyao-server-sub005/internal/net"
	"github.com/cavazquez/pyao-server-sub005/internal/net/packet"
	"github.com/cavazquez/pyao-server-sub005/internal/persist"
	"github.com/cavazquez/pyao-server-sub005/internal/world"
)

// handlePickUp lifts the lowest-id stack from the player's own tile.
// Gold goes straight to the purse; everything else needs a free or
// mergeable inventory slot.
func (d *Deps) handlePickUp(sess any, _ *packet.Reader) {
	s := sess.(Session)
	snd := net.NewSender(s)
	ctx := d.ctx()
	userID := s.UserID()

	v, ok := d.State.PlayerView(userID)
	if !ok {
		return
	}
	st, ok := d.State.TakeFirstGroundItem(v.Map, v.X, v.Y)
	if !ok {
		snd.ConsoleMsg("No hay nada aquí.", game.ColorInfo)
		return
	}

	if st.ItemID == data.GoldItemID {
		stats, err := d.Players.GetStats(ctx, userID)
		if err != nil {
			d.logErr("pickup: load stats", userID, err)
			d.State.AddGroundItem(v.Map, v.X, v.Y, st.ItemID, st.Amount, st.Grh)
			return
		}
		gold := stats.Gold + int32(st.Amount)
		if err := d.Players.UpdateGold(ctx, userID, gold); err != nil {
			d.logErr("pickup: save gold", userID, err)
			d.State.AddGroundItem(v.Map, v.X, v.Y, st.ItemID, st.Amount, st.Grh)
			return
		}
		snd.UpdateGold(gold)
		snd.ConsoleMsg(fmt.Sprintf("Has recogido %d monedas de oro.", st.Amount), game.ColorInfo)
	} else {
		slot, merged, ok := d.stashItem(ctx, userID, st)
		if !ok {
			d.State.AddGroundItem(v.Map, v.X, v.Y, st.ItemID, st.Amount, st.Grh)
			snd.ConsoleMsg("No tenés espacio en el inventario.", game.ColorWarn)
			return
		}
		snd.ChangeInventorySlot(d.slotData(slot, merged))
		if it := d.Items.Get(st.ItemID); it != nil {
			snd.ConsoleMsg(fmt.Sprintf("Has recogido %s.", it.Name), game.ColorInfo)
		}
	}

	if len(d.State.GroundItemsAt(v.Map, v.X, v.Y)) == 0 {
		d.Bcast.ObjectDelete(v.Map, v.X, v.Y)
	}
}

// stashItem merges a stack into the inventory, preferring an existing
// unequipped stack of the same template, then the first empty slot.
func (d *Deps) stashItem(ctx context.Context, userID int32, st world.GroundItem) (byte, persist.InventorySlot, bool) {
	inv, err := d.Players.GetInventory(ctx, userID)
	if err != nil {
		d.logErr("stash: load inventory", userID, err)
		return 0, persist.InventorySlot{}, false
	}
	maxSlots := byte(d.Cfg.Game.Inventory.MaxSlots)
	if maxSlots == 0 {
		maxSlots = persist.InventorySlots
	}

	for slot := byte(0); slot < maxSlots; slot++ {
		cur, used := inv[slot]
		if used && cur.ItemID == st.ItemID && !cur.Equipped {
			cur.Amount += st.Amount
			if err := d.Players.SetInventorySlot(ctx, userID, slot, cur); err != nil {
				d.logErr("stash: merge slot", userID, err)
				return 0, persist.InventorySlot{}, false
			}
			return slot, cur, true
		}
	}
	for slot := byte(0); slot < maxSlots; slot++ {
		if _, used := inv[slot]; used {
			continue
		}
		fresh := persist.InventorySlot{ItemID: st.ItemID, Amount: st.Amount}
		if err := d.Players.SetInventorySlot(ctx, userID, slot, fresh); err != nil {
			d.logErr("stash: new slot", userID, err)
			return 0, persist.InventorySlot{}, false
		}
		return slot, fresh, true
	}
	return 0, persist.InventorySlot{}, false
}

func (d *Deps) handleDrop(sess any, r *packet.Reader) {
	s := sess.(Session)
	snd := net.NewSender(s)
	slot := r.Byte()
	qty := int16(r.Uint16())
	if r.Err() != nil {
		return
	}
	if qty <= 0 {
		snd.ConsoleMsg("Cantidad inválida.", game.ColorWarn)
		return
	}
	ctx := d.ctx()
	userID := s.UserID()

	inv, err := d.Players.GetInventory(ctx, userID)
	if err != nil {
		d.logErr("drop: load inventory", userID, err)
		return
	}
	cur, used := inv[slot]
	if !used || cur.Amount <= 0 {
		snd.ConsoleMsg("No tenés nada en ese slot.", game.ColorWarn)
		return
	}
	if cur.Equipped {
		snd.ConsoleMsg("Primero debés desequiparlo.", game.ColorWarn)
		return
	}
	if qty > cur.Amount {
		snd.ConsoleMsg("No tenés esa cantidad.", game.ColorWarn)
		return
	}
	it := d.Items.Get(cur.ItemID)
	if it == nil {
		snd.ConsoleMsg("No podés tirar eso.", game.ColorWarn)
		return
	}
	v, ok := d.State.PlayerView(userID)
	if !ok {
		return
	}

	remaining := cur.Amount - qty
	if remaining == 0 {
		if err := d.Players.ClearInventorySlot(ctx, userID, slot); err != nil {
			d.logErr("drop: clear slot", userID, err)
			return
		}
		snd.ChangeInventorySlot(net.SlotData{Slot: slot})
	} else {
		cur.Amount = remaining
		if err := d.Players.SetInventorySlot(ctx, userID, slot, cur); err != nil {
			d.logErr("drop: update slot", userID, err)
			return
		}
		snd.ChangeInventorySlot(d.slotData(slot, cur))
	}

	if d.State.AddGroundItem(v.Map, v.X, v.Y, it.ID, qty, it.Grh) {
		d.Bcast.ObjectCreate(v.Map, v.X, v.Y, it.Grh)
	}
}

func (d *Deps) handleEquipItem(sess any, r *packet.Reader) {
	s := sess.(Session)
	snd := net.NewSender(s)
	slot := r.Byte()
	if r.Err() != nil {
		return
	}
	ctx := d.ctx()
	userID := s.UserID()

	inv, err := d.Players.GetInventory(ctx, userID)
	if err != nil {
		d.logErr("equip: load inventory", userID, err)
		return
	}
	cur, used := inv[slot]
	if !used {
		snd.ConsoleMsg("No tenés nada en ese slot.", game.ColorWarn)
		return
	}
	it := d.Items.Get(cur.ItemID)
	if it == nil || !it.Equippable() {
		snd.ConsoleMsg("No podés equipar eso.", game.ColorWarn)
		return
	}

	app, err := d.Players.GetAppearance(ctx, userID)
	if err != nil {
		d.logErr("equip: load appearance", userID, err)
		return
	}

	if cur.Equipped {
		cur.Equipped = false
		applyEquip(&app, it.Type, 0)
	} else {
		// At most one piece per equipment type.
		for other, os := range inv {
			if other == slot || !os.Equipped {
				continue
			}
			oit := d.Items.Get(os.ItemID)
			if oit == nil || oit.Type != it.Type {
				continue
			}
			os.Equipped = false
			if err := d.Players.SetInventorySlot(ctx, userID, other, os); err != nil {
				d.logErr("equip: swap out", userID, err)
				return
			}
			snd.ChangeInventorySlot(d.slotData(other, os))
		}
		cur.Equipped = true
		applyEquip(&app, it.Type, it.ID)
	}

	if err := d.Players.SetInventorySlot(ctx, userID, slot, cur); err != nil {
		d.logErr("equip: save slot", userID, err)
		return
	}
	if err := d.Players.SetAppearance(ctx, userID, app); err != nil {
		d.logErr("equip: save appearance", userID, err)
	}
	snd.ChangeInventorySlot(d.slotData(slot, cur))

	if v, ok := d.State.PlayerView(userID); ok {
		pos, _ := d.Players.GetPosition(ctx, userID)
		change := d.changeDataFor(ctx, userID, v.CharIndex, pos.Heading)
		snd.CharacterChange(change)
		d.Bcast.CharacterChange(v.Map, userID, v.X, v.Y, change)
	}
}

// applyEquip mirrors an equipment change onto the visible appearance.
// Armor carries no separate paperdoll field on this wire contract.
func applyEquip(app *persist.Appearance, t data.ItemType, id int16) {
	switch t {
	case data.ItemWeapon:
		app.Weapon = id
	case data.ItemShield:
		app.Shield = id
	case data.ItemHelmet:
		app.Helmet = id
	}
}

func (d *Deps) handleLeftClick(sess any, r *packet.Reader) {
	s := sess.(Session)
	snd := net.NewSender(s)
	x := int(r.Byte())
	y := int(r.Byte())
	if r.Err() != nil {
		return
	}
	v, ok := d.State.PlayerView(s.UserID())
	if !ok || world.Chebyshev(v.X, v.Y, x, y) > game.VisibleRange {
		return
	}

	if npc := d.State.NPCAt(v.Map, x, y); npc != nil {
		if npc.Template.Description != "" {
			snd.ConsoleMsg(fmt.Sprintf("%s: %s", npc.Template.Name, npc.Template.Description), game.ColorInfo)
		} else {
			snd.ConsoleMsg(fmt.Sprintf("Ves a %s.", npc.Template.Name), game.ColorInfo)
		}
		return
	}
	if tag, occupied := d.State.OccupantAt(v.Map, x, y); occupied && tag.Kind == world.TagPlayer {
		if other, found := d.State.PlayerView(tag.ID); found {
			snd.ConsoleMsg(fmt.Sprintf("Ves a %s.", other.Username), game.ColorInfo)
			return
		}
	}
	if stacks := d.State.GroundItemsAt(v.Map, x, y); len(stacks) > 0 {
		if it := d.Items.Get(stacks[0].ItemID); it != nil {
			snd.ConsoleMsg(fmt.Sprintf("Ves %s (x%d).", it.Name, stacks[0].Amount), game.ColorInfo)
			return
		}
	}
	snd.ConsoleMsg("No ves nada interesante.", game.ColorInfo)
}
