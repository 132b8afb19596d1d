package handler

import (
	"fmt"

	"github.com/cavazquez/pyao-server-sub005/internal/game"
	"github.com/cavazquez/pyao-server-sub005/internal/net"
	"github.com/cavazquez/pyao-server-sub005/internal/net/packet"
	"github.com/cavazquez/pyao-server-sub005/internal/world"
)

// Client wave ids for the legacy sound bank.
const (
	waveSwing  byte = 2
	waveImpact byte = 10
)

// handleAttack swings at whatever stands on the tile the player faces.
func (d *Deps) handleAttack(sess any, _ *packet.Reader) {
	s := sess.(Session)
	snd := net.NewSender(s)
	ctx := d.ctx()
	userID := s.UserID()

	v, ok := d.State.PlayerView(userID)
	if !ok {
		return
	}
	if alive, err := d.Players.IsAlive(ctx, userID); err == nil && !alive {
		snd.ConsoleMsg("Los muertos no pueden atacar.", game.ColorWarn)
		return
	}

	pos, err := d.Players.GetPosition(ctx, userID)
	if err != nil {
		d.logErr("attack: load position", userID, err)
		return
	}
	heading := world.Heading(pos.Heading)
	if !heading.Valid() {
		heading = world.South
	}
	dx, dy := heading.Delta()
	tx, ty := v.X+dx, v.Y+dy

	npc := d.State.NPCAt(v.Map, tx, ty)
	if npc == nil {
		snd.ConsoleMsg("No hay nada para atacar.", game.ColorWarn)
		return
	}
	nx, ny := npc.Pos()
	if !d.Combat.CanAttack(v.X, v.Y, nx, ny) {
		snd.ConsoleMsg("Estás demasiado lejos.", game.ColorWarn)
		return
	}

	res, err := d.Combat.PlayerAttacksNPC(ctx, userID, npc, snd)
	if err != nil {
		d.logErr("attack: resolve", userID, err)
		return
	}
	if res == nil {
		snd.ConsoleMsg("No podés atacar a ese personaje.", game.ColorWarn)
		return
	}

	switch {
	case res.Dodged:
		d.Bcast.PlayWave(v.Map, nx, ny, waveSwing)
		snd.ConsoleMsg("¡Has fallado el golpe!", game.ColorCombat)
	case res.NPCDied:
		// The kill settlement already messaged the attacker.
		d.Bcast.PlayWave(v.Map, nx, ny, waveImpact)
	case res.Critical:
		d.Bcast.PlayWave(v.Map, nx, ny, waveImpact)
		snd.ConsoleMsg(fmt.Sprintf("¡Golpe crítico! Le has pegado a %s por %d.", npc.Template.Name, res.Damage), game.ColorCombat)
		npc.SetTarget(userID)
	default:
		d.Bcast.PlayWave(v.Map, nx, ny, waveImpact)
		snd.ConsoleMsg(fmt.Sprintf("Le has pegado a %s por %d.", npc.Template.Name, res.Damage), game.ColorCombat)
		npc.SetTarget(userID)
	}
}
