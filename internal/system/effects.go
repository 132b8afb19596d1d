package system

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cavazquez/pyao-server-sub005/internal/config"
	"github.com/cavazquez/pyao-server-sub005/internal/data"
	"github.com/cavazquez/pyao-server-sub005/internal/game"
	"github.com/cavazquez/pyao-server-sub005/internal/net"
	"github.com/cavazquez/pyao-server-sub005/internal/persist"
	"github.com/cavazquez/pyao-server-sub005/internal/world"
)

// Effect pacing constants. Interval-style values can be overridden at
// runtime through the settings store; these are the shipped defaults.
const (
	manaRecoveryPerTick   = 10
	poisonDamagePerTick   = 2
	maxPetFollowDistance  = 8
	npcApproachRange      = 10 // manhattan
	npcWanderRadius       = 5
	defaultMaxNpcsPerTick = 50
	defaultNpcChunkSize   = 16
)

// PlayerEffect is applied to each connected player on every scheduler
// tick; implementations rate-limit internally.
type PlayerEffect interface {
	Name() string
	Apply(ctx context.Context, userID int32, now time.Time) error
}

// GlobalEffect runs exactly once per scheduler tick over the whole
// world, connected players or not.
type GlobalEffect interface {
	Name() string
	Run(ctx context.Context, now time.Time) error
}

// Deps is the shared wiring for every effect.
type Deps struct {
	State   *world.State
	Maps    *data.MapRegistry
	Players persist.PlayerRepo
	NPCs    *game.NPCEngine
	AI      *game.NPCAI
	Combat  *game.CombatEngine
	Death   *game.NPCDeathService
	Bcast   *game.Broadcaster
	Game    config.GameConfig
	Tun     *persist.Tunables
	Log     *zap.Logger
}

// sender returns the outbound sender for a user, nil when disconnected.
func (d *Deps) sender(userID int32) *net.Sender {
	push := d.State.PusherFor(userID)
	if push == nil {
		return nil
	}
	return net.NewSender(push)
}

// interval reads a runtime-tunable interval with a config default.
func (d *Deps) interval(ctx context.Context, key string, defSeconds int) time.Duration {
	s := d.Tun.Int(ctx, key, defSeconds)
	if s <= 0 {
		s = defSeconds
	}
	if s <= 0 {
		s = 1
	}
	return time.Duration(s) * time.Second
}

// perUserClock rate-limits a per-player effect. The first sighting of a
// user stamps without firing, so nobody is charged at the login instant.
// Entries for users idle past the sweep horizon are dropped to keep the
// map bounded.
type perUserClock struct {
	mu        sync.Mutex
	last      map[int32]time.Time
	lastSweep time.Time
}

const clockSweepHorizon = 5 * time.Minute

func newPerUserClock() *perUserClock {
	return &perUserClock{last: make(map[int32]time.Time)}
}

func (c *perUserClock) due(userID int32, now time.Time, interval time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if now.Sub(c.lastSweep) > clockSweepHorizon {
		for id, t := range c.last {
			if now.Sub(t) > clockSweepHorizon {
				delete(c.last, id)
			}
		}
		c.lastSweep = now
	}

	t, seen := c.last[userID]
	if !seen {
		c.last[userID] = now
		return false
	}
	if now.Sub(t) < interval {
		return false
	}
	c.last[userID] = now
	return true
}

// globalClock rate-limits a global effect. Only the scheduler goroutine
// touches it, so it carries no lock.
type globalClock struct {
	next time.Time
}

func (c *globalClock) due(now time.Time, interval time.Duration) bool {
	if now.Before(c.next) {
		return false
	}
	c.next = now.Add(interval)
	return true
}
