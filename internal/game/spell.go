package game

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cavazquez/pyao-server-sub005/internal/data"
	"github.com/cavazquez/pyao-server-sub005/internal/net"
	"github.com/cavazquez/pyao-server-sub005/internal/persist"
	"github.com/cavazquez/pyao-server-sub005/internal/scripting"
	"github.com/cavazquez/pyao-server-sub005/internal/world"
)

// SpellEngine resolves CAST_SPELL: cost, targeting, and effect
// application. It messages the caster directly; broadcast side effects
// (words, FX, sounds) go through the broadcaster.
type SpellEngine struct {
	state    *world.State
	players  persist.PlayerRepo
	spells   *data.SpellTable
	npcTpls  *data.NPCTable
	npcs     *NPCEngine
	death    *NPCDeathService
	bcast    *Broadcaster
	progress *Progress
	lua      *scripting.Engine
	rng      *lockedRand
	log      *zap.Logger
}

func NewSpellEngine(state *world.State, players persist.PlayerRepo, spells *data.SpellTable, npcTpls *data.NPCTable, npcs *NPCEngine, death *NPCDeathService, bcast *Broadcaster, progress *Progress, lua *scripting.Engine, rng *lockedRand, log *zap.Logger) *SpellEngine {
	return &SpellEngine{
		state:    state,
		players:  players,
		spells:   spells,
		npcTpls:  npcTpls,
		npcs:     npcs,
		death:    death,
		bcast:    bcast,
		progress: progress,
		lua:      lua,
		rng:      rng,
		log:      log,
	}
}

// Cast resolves one spell from the caster onto (tx,ty) on the caster's
// map. Returns false when nothing was cast; the caster has already been
// told why.
func (e *SpellEngine) Cast(ctx context.Context, userID int32, spellID int16, tx, ty int, snd *net.Sender) bool {
	tpl := e.spells.Get(spellID)
	if tpl == nil {
		snd.ConsoleMsg("No conocés ese hechizo.", ColorWarn)
		return false
	}

	caster, ok := e.state.PlayerView(userID)
	if !ok {
		return false
	}
	if world.Chebyshev(caster.X, caster.Y, tx, ty) > VisibleRange {
		snd.ConsoleMsg("Demasiado lejos.", ColorWarn)
		return false
	}

	stats, err := e.players.GetStats(ctx, userID)
	if err != nil {
		e.log.Error("cast: load stats", zap.Int32("user", userID), zap.Error(err))
		return false
	}
	if stats.MinMana < tpl.ManaCost {
		snd.ConsoleMsg("No tenés suficiente maná.", ColorWarn)
		return false
	}

	// Resolve the target before paying the cost.
	targetNPC := e.state.NPCAt(caster.Map, tx, ty)
	var targetPlayer *world.PlayerView
	if targetNPC == nil {
		if tag, occupied := e.state.OccupantAt(caster.Map, tx, ty); occupied && tag.Kind == world.TagPlayer {
			if v, found := e.state.PlayerView(tag.ID); found {
				targetPlayer = &v
			}
		}
	}

	if tpl.Effect == data.SpellSummon {
		if targetNPC != nil || targetPlayer != nil {
			snd.ConsoleMsg("Necesitás un lugar libre para invocar.", ColorWarn)
			return false
		}
	} else if targetNPC == nil && targetPlayer == nil {
		snd.ConsoleMsg("No hay nadie ahí.", ColorWarn)
		return false
	}

	stats.MinMana -= tpl.ManaCost
	if err := e.players.UpdateMana(ctx, userID, stats.MinMana); err != nil {
		e.log.Error("cast: deduct mana", zap.Int32("user", userID), zap.Error(err))
		return false
	}
	snd.UpdateMana(stats.MinMana)

	if tpl.Words != "" {
		e.bcast.ConsoleToArea(caster.Map, caster.X, caster.Y, 0,
			fmt.Sprintf("%s: %s", caster.Username, tpl.Words), ColorTalk)
	}
	if tpl.Wave > 0 {
		e.bcast.PlayWave(caster.Map, tx, ty, tpl.Wave)
	}

	attrs, err := e.players.GetAttributes(ctx, userID)
	if err != nil {
		e.log.Error("cast: load attributes", zap.Int32("user", userID), zap.Error(err))
		return false
	}
	now := time.Now()

	switch tpl.Effect {
	case data.SpellDamage:
		e.applyDamage(ctx, tpl, userID, int(stats.Level), int(attrs.Intelligence), targetNPC, targetPlayer)
	case data.SpellHeal:
		e.applyHeal(ctx, tpl, targetNPC, targetPlayer)
	case data.SpellPoison:
		until := now.Add(tpl.Duration())
		if targetNPC != nil {
			targetNPC.Poison(until, userID)
		} else {
			e.setPlayerPoison(ctx, targetPlayer.UserID, until)
		}
	case data.SpellParalyze:
		until := now.Add(tpl.Duration())
		if targetNPC != nil {
			targetNPC.Paralyze(until)
		} else {
			if err := e.players.SetParalyzedUntil(ctx, targetPlayer.UserID, until); err != nil {
				e.log.Error("cast: paralyze", zap.Error(err))
			}
		}
	case data.SpellMorph:
		if targetPlayer == nil {
			snd.ConsoleMsg("Ese hechizo sólo afecta a jugadores.", ColorWarn)
			return false
		}
		e.applyMorph(ctx, tpl, targetPlayer, now)
	case data.SpellSummon:
		e.applySummon(tpl, caster, tx, ty, now, snd)
	case data.SpellBuff:
		if targetPlayer == nil {
			snd.ConsoleMsg("Ese hechizo sólo afecta a jugadores.", ColorWarn)
			return false
		}
		e.applyBuff(ctx, tpl, targetPlayer, now)
	default:
		e.log.Warn("spell with unknown effect", zap.Int16("spell", tpl.ID), zap.String("effect", string(tpl.Effect)))
		return false
	}

	if tpl.FX > 0 {
		charIndex := int16(0)
		switch {
		case targetNPC != nil:
			charIndex = targetNPC.CharIndex
		case targetPlayer != nil:
			charIndex = targetPlayer.CharIndex
		default:
			charIndex = caster.CharIndex
		}
		e.bcast.CreateFX(caster.Map, tx, ty, charIndex, tpl.FX, tpl.FXLoops)
	}
	return true
}

func (e *SpellEngine) rollDamage(tpl *data.SpellTemplate, casterLevel, casterInt, targetLevel int) int32 {
	dmg := e.rng.Between(tpl.MinDamage, tpl.MaxDamage) + int32(casterInt)/5
	if e.lua != nil {
		if override, ok := e.lua.SpellDamage(scripting.SpellContext{
			SpellID:      int(tpl.ID),
			BaseDamage:   int(dmg),
			CasterLevel:  casterLevel,
			CasterIntell: casterInt,
			TargetLevel:  targetLevel,
		}); ok {
			dmg = int32(override)
		}
	}
	if dmg < 1 {
		dmg = 1
	}
	return dmg
}

func (e *SpellEngine) applyDamage(ctx context.Context, tpl *data.SpellTemplate, casterID int32, casterLevel, casterInt int, npc *world.NPC, player *world.PlayerView) {
	if npc != nil {
		dmg := e.rollDamage(tpl, casterLevel, casterInt, int(npc.Template.Level))
		if npc.ApplyDamage(dmg) <= 0 {
			e.death.HandleDeath(ctx, npc, casterID)
		}
		return
	}
	stats, err := e.players.GetStats(ctx, player.UserID)
	if err != nil {
		e.log.Error("spell damage: load target", zap.Error(err))
		return
	}
	dmg := e.rollDamage(tpl, casterLevel, casterInt, int(stats.Level))
	hp := stats.MinHP - int16(dmg)
	if hp < 0 {
		hp = 0
	}
	if err := e.players.UpdateHP(ctx, player.UserID, hp); err != nil {
		e.log.Error("spell damage: update hp", zap.Error(err))
		return
	}
	net.NewSender(player.Push).UpdateHP(hp)
}

func (e *SpellEngine) applyHeal(ctx context.Context, tpl *data.SpellTemplate, npc *world.NPC, player *world.PlayerView) {
	if npc != nil {
		npc.Heal(tpl.Heal)
		return
	}
	stats, err := e.players.GetStats(ctx, player.UserID)
	if err != nil {
		e.log.Error("spell heal: load target", zap.Error(err))
		return
	}
	hp := stats.MinHP + int16(tpl.Heal)
	if hp > stats.MaxHP {
		hp = stats.MaxHP
	}
	if err := e.players.UpdateHP(ctx, player.UserID, hp); err != nil {
		e.log.Error("spell heal: update hp", zap.Error(err))
		return
	}
	net.NewSender(player.Push).UpdateHP(hp)
}

func (e *SpellEngine) setPlayerPoison(ctx context.Context, userID int32, until time.Time) {
	if err := e.players.SetPoisonedUntil(ctx, userID, until); err != nil {
		e.log.Error("cast: poison player", zap.Int32("user", userID), zap.Error(err))
		return
	}
	if push := e.state.PusherFor(userID); push != nil {
		net.NewSender(push).ConsoleMsg("¡Estás envenenado!", ColorCombat)
	}
}

func (e *SpellEngine) applyMorph(ctx context.Context, tpl *data.SpellTemplate, target *world.PlayerView, now time.Time) {
	m := &persist.Morph{Body: tpl.MorphBody, Head: tpl.MorphHead, Expires: now.Add(tpl.Duration())}
	if err := e.players.SetMorph(ctx, target.UserID, m); err != nil {
		e.log.Error("cast: morph", zap.Int32("user", target.UserID), zap.Error(err))
		return
	}
	app, err := e.players.GetAppearance(ctx, target.UserID)
	if err != nil {
		e.log.Error("cast: morph appearance", zap.Error(err))
		return
	}
	pos, err := e.players.GetPosition(ctx, target.UserID)
	if err != nil {
		e.log.Error("cast: morph position", zap.Error(err))
		return
	}
	change := net.CharacterChangeData{
		CharIndex: target.CharIndex,
		Body:      m.Body,
		Head:      m.Head,
		Heading:   pos.Heading,
		Weapon:    app.Weapon,
		Shield:    app.Shield,
		Helmet:    app.Helmet,
	}
	net.NewSender(target.Push).CharacterChange(change)
	e.bcast.CharacterChange(target.Map, target.UserID, target.X, target.Y, change)
}

func (e *SpellEngine) applySummon(tpl *data.SpellTemplate, caster world.PlayerView, tx, ty int, now time.Time, snd *net.Sender) {
	npcTpl := e.npcTpls.Get(tpl.SummonNPC)
	if npcTpl == nil {
		e.log.Warn("summon spell references unknown npc", zap.Int16("spell", tpl.ID), zap.Int16("npc", tpl.SummonNPC))
		return
	}
	pet := e.npcs.SpawnSummon(npcTpl, caster.Map, tx, ty, caster.UserID, now.Add(tpl.Duration()))
	if pet == nil {
		snd.ConsoleMsg("No hay lugar para la invocación.", ColorWarn)
		return
	}
	snd.ConsoleMsg(fmt.Sprintf("Has invocado a %s.", npcTpl.Name), ColorInfo)
}

func (e *SpellEngine) applyBuff(ctx context.Context, tpl *data.SpellTemplate, target *world.PlayerView, now time.Time) {
	mod := &persist.AttrModifier{Delta: tpl.BuffDelta, Expires: now.Add(tpl.Duration())}
	var err error
	switch tpl.BuffAttribute {
	case "strength":
		err = e.players.SetStrengthModifier(ctx, target.UserID, mod)
	case "agility":
		err = e.players.SetAgilityModifier(ctx, target.UserID, mod)
	default:
		e.log.Warn("buff spell with unknown attribute", zap.Int16("spell", tpl.ID), zap.String("attr", tpl.BuffAttribute))
		return
	}
	if err != nil {
		e.log.Error("cast: buff", zap.Int32("user", target.UserID), zap.Error(err))
		return
	}
	attrs, err := e.players.GetAttributes(ctx, target.UserID)
	if err != nil {
		return
	}
	str, agi := int(attrs.Strength), int(attrs.Agility)
	if tpl.BuffAttribute == "strength" {
		str += tpl.BuffDelta
	} else {
		agi += tpl.BuffDelta
	}
	net.NewSender(target.Push).UpdateStrAndDex(byte(clampAttr(str)), byte(clampAttr(agi)))
}

func clampAttr(v int) int {
	if v < 1 {
		return 1
	}
	if v > 40 {
		return 40
	}
	return v
}
