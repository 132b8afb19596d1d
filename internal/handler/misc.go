package handler

import (
	"fmt"
	"time"

	"github.com/cavazquez/pyao-server-sub005/internal/game"
	"github.com/cavazquez/pyao-server-sub005/internal/net"
	"github.com/cavazquez/pyao-server-sub005/internal/net/packet"
)

// FX and loop count for the meditation aura.
const (
	meditateFX    int16 = 6
	fxLoopForever int16 = 999
)

func (d *Deps) handlePing(sess any, _ *packet.Reader) {
	net.NewSender(sess.(Session)).Pong()
}

// handleQuit says goodbye and closes; the session's close hook removes
// the character from the world and tells the map.
func (d *Deps) handleQuit(sess any, _ *packet.Reader) {
	s := sess.(Session)
	net.NewSender(s).ConsoleMsg("Gracias por jugar.", game.ColorInfo)
	s.Close()
}

func (d *Deps) handleOnline(sess any, _ *packet.Reader) {
	snd := net.NewSender(sess.(Session))
	snd.ConsoleMsg(fmt.Sprintf("Jugadores conectados: %d.", d.State.OnlineCount()), game.ColorInfo)
}

func (d *Deps) handleUptime(sess any, _ *packet.Reader) {
	snd := net.NewSender(sess.(Session))
	up := time.Since(d.StartedAt).Truncate(time.Second)
	snd.ConsoleMsg(fmt.Sprintf("Servidor en línea desde hace %s.", up), game.ColorInfo)
}

func (d *Deps) handleAyuda(sess any, _ *packet.Reader) {
	snd := net.NewSender(sess.(Session))
	snd.MultilineConsoleMsg([]string{
		"Comandos disponibles:",
		"/online - jugadores conectados",
		"/uptime - tiempo en línea del servidor",
		"/meditar - recuperar maná",
		"/salir - cerrar la sesión",
	}, game.ColorInfo)
}

// handleMeditate toggles mana recovery; the meditation effect does the
// actual regen on its own cadence.
func (d *Deps) handleMeditate(sess any, _ *packet.Reader) {
	s := sess.(Session)
	snd := net.NewSender(s)
	ctx := d.ctx()
	userID := s.UserID()

	meditating, err := d.Players.IsMeditating(ctx, userID)
	if err != nil {
		d.logErr("meditate: load state", userID, err)
		return
	}
	if meditating {
		if err := d.Players.SetMeditating(ctx, userID, false); err != nil {
			d.logErr("meditate: stop", userID, err)
			return
		}
		snd.MeditateToggle()
		snd.ConsoleMsg("Dejás de meditar.", game.ColorInfo)
		return
	}

	stats, err := d.Players.GetStats(ctx, userID)
	if err != nil {
		d.logErr("meditate: load stats", userID, err)
		return
	}
	if stats.MinMana >= stats.MaxMana {
		snd.ConsoleMsg("Ya tenés el maná completo.", game.ColorInfo)
		return
	}
	if err := d.Players.SetMeditating(ctx, userID, true); err != nil {
		d.logErr("meditate: start", userID, err)
		return
	}
	snd.MeditateToggle()
	snd.ConsoleMsg("Comenzás a meditar.", game.ColorInfo)
	if v, ok := d.State.PlayerView(userID); ok {
		d.Bcast.CreateFX(v.Map, v.X, v.Y, v.CharIndex, meditateFX, fxLoopForever)
	}
}
