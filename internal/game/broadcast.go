package game

import (
	"go.uber.org/zap"

	"github.com/cavazquez/pyao-server-sub005/internal/net"
	"github.com/cavazquez/pyao-server-sub005/internal/world"
)

// VisibleRange is the Chebyshev radius inside which world events reach a
// session.
const VisibleRange = 15

// Broadcaster fans world events out to the sessions of a map, filtered by
// visibility range when the event has a spatial anchor. Enumeration takes
// a roster snapshot, so a concurrent map change never yields a phantom
// recipient.
type Broadcaster struct {
	state *world.State
	log   *zap.Logger
}

func NewBroadcaster(state *world.State, log *zap.Logger) *Broadcaster {
	return &Broadcaster{state: state, log: log}
}

// ToArea invokes fn for every player on mapID within VisibleRange of
// (x,y), skipping exclude (0 skips nobody).
func (b *Broadcaster) ToArea(mapID int16, x, y int, exclude int32, fn func(v world.PlayerView, snd *net.Sender)) {
	for _, v := range b.state.PlayersInMap(mapID, exclude) {
		if world.Chebyshev(v.X, v.Y, x, y) > VisibleRange {
			continue
		}
		fn(v, net.NewSender(v.Push))
	}
}

// ToMap invokes fn for every player on mapID, skipping exclude.
func (b *Broadcaster) ToMap(mapID int16, exclude int32, fn func(v world.PlayerView, snd *net.Sender)) {
	for _, v := range b.state.PlayersInMap(mapID, exclude) {
		fn(v, net.NewSender(v.Push))
	}
}

// CharacterMove announces one step. The move packet carries no heading,
// so a step that also turned the character rides an extra
// CHARACTER_CHANGE to the same recipients.
func (b *Broadcaster) CharacterMove(mapID int16, exclude int32, charIndex int16, toX, toY int, change *net.CharacterChangeData) {
	b.ToArea(mapID, toX, toY, exclude, func(_ world.PlayerView, snd *net.Sender) {
		snd.CharacterMove(charIndex, byte(toX), byte(toY))
		if change != nil {
			snd.CharacterChange(*change)
		}
	})
}

func (b *Broadcaster) CharacterCreate(mapID int16, exclude int32, x, y int, d net.CharacterCreateData) {
	b.ToArea(mapID, x, y, exclude, func(_ world.PlayerView, snd *net.Sender) {
		snd.CharacterCreate(d)
	})
}

func (b *Broadcaster) CharacterChange(mapID int16, exclude int32, x, y int, d net.CharacterChangeData) {
	b.ToArea(mapID, x, y, exclude, func(_ world.PlayerView, snd *net.Sender) {
		snd.CharacterChange(d)
	})
}

// CharacterRemove is map-scoped: a despawn must reach every session on
// the map, not only those in visual range of the last tile.
func (b *Broadcaster) CharacterRemove(mapID int16, exclude int32, charIndex int16) {
	b.ToMap(mapID, exclude, func(_ world.PlayerView, snd *net.Sender) {
		snd.CharacterRemove(charIndex)
	})
}

func (b *Broadcaster) ObjectCreate(mapID int16, x, y int, grh int16) {
	b.ToArea(mapID, x, y, 0, func(_ world.PlayerView, snd *net.Sender) {
		snd.ObjectCreate(byte(x), byte(y), grh)
	})
}

func (b *Broadcaster) ObjectDelete(mapID int16, x, y int) {
	b.ToArea(mapID, x, y, 0, func(_ world.PlayerView, snd *net.Sender) {
		snd.ObjectDelete(byte(x), byte(y))
	})
}

func (b *Broadcaster) BlockPosition(mapID int16, x, y int, blocked bool) {
	b.ToArea(mapID, x, y, 0, func(_ world.PlayerView, snd *net.Sender) {
		snd.BlockPosition(byte(x), byte(y), blocked)
	})
}

func (b *Broadcaster) CreateFX(mapID int16, x, y int, charIndex, fx, loops int16) {
	b.ToArea(mapID, x, y, 0, func(_ world.PlayerView, snd *net.Sender) {
		snd.CreateFX(charIndex, fx, loops)
	})
}

func (b *Broadcaster) PlayWave(mapID int16, x, y int, wave byte) {
	b.ToArea(mapID, x, y, 0, func(_ world.PlayerView, snd *net.Sender) {
		snd.PlayWave(wave, byte(x), byte(y))
	})
}

// ConsoleToArea shows a console line to everyone near an anchor; used for
// incantation words and combat shouts.
func (b *Broadcaster) ConsoleToArea(mapID int16, x, y int, exclude int32, msg string, color byte) {
	b.ToArea(mapID, x, y, exclude, func(_ world.PlayerView, snd *net.Sender) {
		snd.ConsoleMsg(msg, color)
	})
}
