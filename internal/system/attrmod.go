package system

import (
	"context"
	"time"

	"github.com/cavazquez/pyao-server-sub005/internal/game"
	"github.com/cavazquez/pyao-server-sub005/internal/persist"
)

// AttrModifierEffect sweeps expired strength and agility buffs and pushes
// the corrected attribute pair to the client.
type AttrModifierEffect struct {
	d     *Deps
	clock *perUserClock
}

func NewAttrModifierEffect(d *Deps) *AttrModifierEffect {
	return &AttrModifierEffect{d: d, clock: newPerUserClock()}
}

func (e *AttrModifierEffect) Name() string { return "attr_modifiers" }

func (e *AttrModifierEffect) Apply(ctx context.Context, userID int32, now time.Time) error {
	if !e.clock.due(userID, now, e.d.interval(ctx, "effects.attr_modifiers.interval", 10)) {
		return nil
	}

	strMod, err := e.d.Players.GetStrengthModifier(ctx, userID)
	if err != nil {
		return err
	}
	agiMod, err := e.d.Players.GetAgilityModifier(ctx, userID)
	if err != nil {
		return err
	}

	expired := false
	if strMod != nil && now.After(strMod.Expires) {
		if err := e.d.Players.SetStrengthModifier(ctx, userID, nil); err != nil {
			return err
		}
		strMod, expired = nil, true
	}
	if agiMod != nil && now.After(agiMod.Expires) {
		if err := e.d.Players.SetAgilityModifier(ctx, userID, nil); err != nil {
			return err
		}
		agiMod, expired = nil, true
	}
	if !expired {
		return nil
	}

	attrs, err := e.d.Players.GetAttributes(ctx, userID)
	if err != nil {
		return err
	}
	if snd := e.d.sender(userID); snd != nil {
		snd.UpdateStrAndDex(effectiveAttr(attrs.Strength, strMod), effectiveAttr(attrs.Agility, agiMod))
		snd.ConsoleMsg("El efecto del hechizo ha terminado.", game.ColorInfo)
	}
	return nil
}

func effectiveAttr(base byte, m *persist.AttrModifier) byte {
	v := int(base)
	if m != nil {
		v += m.Delta
	}
	if v < 1 {
		v = 1
	}
	if v > 40 {
		v = 40
	}
	return byte(v)
}
