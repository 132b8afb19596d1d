package handler

import (
	"time"

	"go.uber.org/zap"

	"github.com/cavazquez/pyao-server-sub005/internal/data"
	"github.com/cavazquez/pyao-server-sub005/internal/game"
	"github.com/cavazquez/pyao-server-sub005/internal/net"
	"github.com/cavazquez/pyao-server-sub005/internal/net/packet"
	"github.com/cavazquez/pyao-server-sub005/internal/persist"
	"github.com/cavazquez/pyao-server-sub005/internal/world"
)

func edgeFor(h world.Heading) data.Edge {
	switch h {
	case world.North:
		return data.EdgeNorth
	case world.East:
		return data.EdgeEast
	case world.South:
		return data.EdgeSouth
	default:
		return data.EdgeWest
	}
}

func (d *Deps) handleWalk(sess any, r *packet.Reader) {
	s := sess.(Session)
	snd := net.NewSender(s)
	heading := world.Heading(r.Byte())
	if !heading.Valid() {
		snd.ConsoleMsg("Dirección inválida.", game.ColorWarn)
		return
	}
	ctx := d.ctx()
	userID := s.UserID()

	until, err := d.Players.GetParalyzedUntil(ctx, userID)
	if err == nil && time.Now().Before(until) {
		snd.ConsoleMsg("No podés moverte: estás paralizado.", game.ColorWarn)
		return
	}
	if med, err := d.Players.IsMeditating(ctx, userID); err == nil && med {
		// Walking breaks meditation.
		if err := d.Players.SetMeditating(ctx, userID, false); err == nil {
			snd.MeditateToggle()
		}
	}

	v, ok := d.State.PlayerView(userID)
	if !ok {
		return
	}
	dx, dy := heading.Delta()
	tx, ty := v.X+dx, v.Y+dy

	oldPos, err := d.Players.GetPosition(ctx, userID)
	if err != nil {
		d.logErr("walk: load position", userID, err)
		return
	}

	// Stepping off the map edge crosses to the linked map when a
	// transition is configured.
	if w, h := d.Maps.Size(v.Map); tx < 1 || ty < 1 || tx > w || ty > h {
		if tr, found := d.Maps.TransitionFor(v.Map, edgeFor(heading)); found {
			d.crossBorder(s, snd, v, tr, heading)
			return
		}
		snd.PosUpdate(byte(v.X), byte(v.Y))
		return
	}

	if !d.Maps.CanMoveTo(v.Map, tx, ty) || !d.State.MovePlayer(userID, tx, ty) {
		// Blocked terrain or an occupant won the tile; resync the client.
		snd.PosUpdate(byte(v.X), byte(v.Y))
		return
	}

	newPos := oldPos
	newPos.X, newPos.Y = tx, ty
	newPos.Heading = byte(heading)
	if err := d.Players.SetPosition(ctx, userID, newPos); err != nil {
		d.logErr("walk: save position", userID, err)
	}

	var change *net.CharacterChangeData
	if oldPos.Heading != byte(heading) {
		c := d.changeDataFor(ctx, userID, v.CharIndex, byte(heading))
		change = &c
	}
	d.Bcast.CharacterMove(v.Map, userID, v.CharIndex, tx, ty, change)
}

// crossBorder hands the player over to the map linked at the border. The
// destination tile is claimed before the origin roster drops the player,
// so no broadcast ever sees them in limbo.
func (d *Deps) crossBorder(s Session, snd *net.Sender, v world.PlayerView, tr data.Transition, heading world.Heading) {
	ctx := d.ctx()
	userID := s.UserID()
	fromMap := v.Map

	tx, ty, ok := d.freeTileNear(tr.ToMap, int(tr.ToX), int(tr.ToY))
	if !ok {
		snd.ConsoleMsg("No hay lugar del otro lado.", game.ColorWarn)
		snd.PosUpdate(byte(v.X), byte(v.Y))
		return
	}
	if !d.State.TransferPlayer(userID, tr.ToMap, tx, ty) {
		snd.PosUpdate(byte(v.X), byte(v.Y))
		return
	}

	if err := d.Players.SetPosition(ctx, userID, persist.Position{
		Map: tr.ToMap, X: tx, Y: ty, Heading: byte(heading),
	}); err != nil {
		d.logErr("border: save position", userID, err)
	}

	d.Bcast.CharacterRemove(fromMap, userID, v.CharIndex)

	snd.ChangeMap(tr.ToMap, d.mapVersion(tr.ToMap))
	snd.PosUpdate(byte(tx), byte(ty))
	d.paintMap(ctx, snd, tr.ToMap, userID)

	self, _ := d.State.PlayerView(userID)
	d.Bcast.CharacterCreate(tr.ToMap, userID, tx, ty, d.createDataFor(ctx, self))

	d.Log.Debug("border crossing",
		zap.Int32("user", userID),
		zap.Int16("from", fromMap),
		zap.Int16("to", tr.ToMap),
	)
}

func (d *Deps) handleChangeHeading(sess any, r *packet.Reader) {
	s := sess.(Session)
	snd := net.NewSender(s)
	heading := world.Heading(r.Byte())
	if !heading.Valid() {
		snd.ConsoleMsg("Dirección inválida.", game.ColorWarn)
		return
	}
	ctx := d.ctx()
	userID := s.UserID()

	if err := d.Players.SetHeading(ctx, userID, byte(heading)); err != nil {
		d.logErr("change heading", userID, err)
		return
	}
	v, ok := d.State.PlayerView(userID)
	if !ok {
		return
	}
	d.Bcast.CharacterChange(v.Map, userID, v.X, v.Y, d.changeDataFor(ctx, userID, v.CharIndex, byte(heading)))
}
