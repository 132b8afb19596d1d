package game

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/cavazquez/pyao-server-sub005/internal/config"
	"github.com/cavazquez/pyao-server-sub005/internal/net"
	"github.com/cavazquez/pyao-server-sub005/internal/persist"
	"github.com/cavazquez/pyao-server-sub005/internal/scripting"
)

// Console message colors understood by the client.
const (
	ColorInfo   byte = 7
	ColorCombat byte = 1
	ColorTalk   byte = 6
	ColorWarn   byte = 3
)

const maxLevel = 50

// Progress owns the experience curve and level-up handling. The curve is
// elu(level) = initialElu * level^eluExponent, overridable per level from
// a Lua script.
type Progress struct {
	players persist.PlayerRepo
	cfg     config.CharacterConfig
	lua     *scripting.Engine
	log     *zap.Logger
}

func NewProgress(players persist.PlayerRepo, cfg config.CharacterConfig, lua *scripting.Engine, log *zap.Logger) *Progress {
	return &Progress{players: players, cfg: cfg, lua: lua, log: log}
}

// EluFor returns the experience needed to leave the given level.
func (p *Progress) EluFor(level int) int32 {
	if p.lua != nil {
		if elu, ok := p.lua.EluForLevel(level); ok {
			return int32(elu)
		}
	}
	return int32(float64(p.cfg.InitialELU) * math.Pow(float64(level), p.cfg.ELUExponent))
}

// AwardExp adds experience, resolves any level-ups (vitals grow from CON
// and INT, then refill) and pushes the stat update to the player.
func (p *Progress) AwardExp(ctx context.Context, userID int32, amount int32, snd *net.Sender) error {
	if amount <= 0 {
		return nil
	}
	s, err := p.players.GetStats(ctx, userID)
	if err != nil {
		return err
	}
	attrs, err := p.players.GetAttributes(ctx, userID)
	if err != nil {
		return err
	}

	s.Exp += amount
	levels := 0
	for s.Level < maxLevel && s.Exp >= s.Elu {
		s.Exp -= s.Elu
		s.Level++
		s.Elu = p.EluFor(int(s.Level))
		s.MaxHP += int16(p.cfg.HPPerCon) + int16(attrs.Constitution)/4
		s.MaxMana += int16(p.cfg.ManaPerInt) + int16(attrs.Intelligence)/4
		levels++
	}
	if levels > 0 {
		// A new level refills the vitals.
		s.MinHP = s.MaxHP
		s.MinMana = s.MaxMana
		s.MinSta = s.MaxSta
	}
	if err := p.players.SetStats(ctx, userID, s); err != nil {
		return err
	}

	if snd != nil {
		if levels > 0 {
			snd.ConsoleMsg("¡Has subido de nivel!", ColorInfo)
			snd.UpdateUserStats(StatsData(s))
		} else {
			snd.UpdateExp(s.Exp)
		}
	}
	return nil
}

// StatsData converts a persisted stats block to its wire shape.
func StatsData(s persist.Stats) net.UserStatsData {
	return net.UserStatsData{
		MaxHP: s.MaxHP, MinHP: s.MinHP,
		MaxMana: s.MaxMana, MinMana: s.MinMana,
		MaxSta: s.MaxSta, MinSta: s.MinSta,
		Gold:  s.Gold,
		Level: s.Level,
		ELU:   s.Elu,
		Exp:   s.Exp,
	}
}
