package handler

import (
	"github.com/cavazquez/pyao-server-sub005/internal/game"
	"github.com/cavazquez/pyao-server-sub005/internal/net"
	"github.com/cavazquez/pyao-server-sub005/internal/net/packet"
)

// handleCastSpell resolves the spellbook slot and hands the cast to the
// spell engine. The frame carries trailing client-side metadata the
// server ignores; the router's minimum length accounts for it.
func (d *Deps) handleCastSpell(sess any, r *packet.Reader) {
	s := sess.(Session)
	snd := net.NewSender(s)
	slot := r.Byte()
	x := int(r.Byte())
	y := int(r.Byte())
	if r.Err() != nil {
		return
	}
	ctx := d.ctx()
	userID := s.UserID()

	if alive, err := d.Players.IsAlive(ctx, userID); err == nil && !alive {
		snd.ConsoleMsg("Los muertos no pueden lanzar hechizos.", game.ColorWarn)
		return
	}

	known, err := d.Players.GetSpells(ctx, userID)
	if err != nil {
		d.logErr("cast: load spellbook", userID, err)
		return
	}
	idx := int(slot) - 1
	if idx < 0 || idx >= len(known) {
		snd.ConsoleMsg("No tenés ese hechizo.", game.ColorWarn)
		return
	}
	d.Spells.Cast(ctx, userID, known[idx], x, y, snd)
}
