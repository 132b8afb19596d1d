package system

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cavazquez/pyao-server-sub005/internal/game"
	"github.com/cavazquez/pyao-server-sub005/internal/net"
	"github.com/cavazquez/pyao-server-sub005/internal/world"
)

// MorphExpiryEffect restores the real appearance of players whose morph
// ran out, repainting them for themselves and for the map.
type MorphExpiryEffect struct {
	d     *Deps
	clock globalClock
}

func NewMorphExpiryEffect(d *Deps) *MorphExpiryEffect {
	return &MorphExpiryEffect{d: d}
}

func (e *MorphExpiryEffect) Name() string { return "morph_expiry" }

func (e *MorphExpiryEffect) Run(ctx context.Context, now time.Time) error {
	if !e.clock.due(now, e.d.interval(ctx, "effects.morph_expiry.interval", 5)) {
		return nil
	}
	for _, userID := range e.d.State.AllUserIDs() {
		m, err := e.d.Players.GetMorph(ctx, userID)
		if err != nil || m == nil || now.Before(m.Expires) {
			continue
		}
		if err := e.d.Players.ClearMorph(ctx, userID); err != nil {
			e.d.Log.Error("clear expired morph", zap.Int32("user", userID), zap.Error(err))
			continue
		}
		e.repaint(ctx, userID)
	}
	return nil
}

func (e *MorphExpiryEffect) repaint(ctx context.Context, userID int32) {
	v, ok := e.d.State.PlayerView(userID)
	if !ok {
		return
	}
	app, err := e.d.Players.GetAppearance(ctx, userID)
	if err != nil {
		return
	}
	heading := byte(world.South)
	if pos, err := e.d.Players.GetPosition(ctx, userID); err == nil && world.Heading(pos.Heading).Valid() {
		heading = pos.Heading
	}
	change := net.CharacterChangeData{
		CharIndex: v.CharIndex,
		Body:      app.Body,
		Head:      app.Head,
		Heading:   heading,
		Weapon:    app.Weapon,
		Shield:    app.Shield,
		Helmet:    app.Helmet,
	}
	if snd := e.d.sender(userID); snd != nil {
		snd.CharacterChange(change)
		snd.ConsoleMsg("Recuperás tu apariencia.", game.ColorInfo)
	}
	e.d.Bcast.CharacterChange(v.Map, userID, v.X, v.Y, change)
}
