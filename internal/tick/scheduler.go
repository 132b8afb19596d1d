package tick

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/cavazquez/pyao-server-sub005/internal/system"
	"github.com/cavazquez/pyao-server-sub005/internal/world"
)

const (
	// DefaultInterval is the heartbeat when the config leaves it unset.
	DefaultInterval = 500 * time.Millisecond

	metricsEvery = 50
)

// Scheduler runs the effect heartbeat: every tick it fans each player
// effect out over the connected roster and runs each global effect once.
// Effects rate-limit themselves, so the tick can stay fast.
type Scheduler struct {
	state    *world.State
	players  []system.PlayerEffect
	globals  []system.GlobalEffect
	interval time.Duration
	log      *zap.Logger

	ticks     uint64
	errCounts map[string]*atomic.Uint64
}

func NewScheduler(state *world.State, interval time.Duration, log *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		state:     state,
		interval:  interval,
		log:       log,
		errCounts: make(map[string]*atomic.Uint64),
	}
}

// AddPlayerEffect registers an effect applied per connected player.
// Not safe to call once Run has started.
func (s *Scheduler) AddPlayerEffect(e system.PlayerEffect) {
	s.players = append(s.players, e)
	s.errCounts[e.Name()] = new(atomic.Uint64)
}

// AddGlobalEffect registers an effect run once per tick.
func (s *Scheduler) AddGlobalEffect(e system.GlobalEffect) {
	s.globals = append(s.globals, e)
	s.errCounts[e.Name()] = new(atomic.Uint64)
}

// Run drives ticks until the context is cancelled. The in-flight fan-out
// of the current tick is always awaited before returning.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("tick scheduler started",
		zap.Duration("interval", s.interval),
		zap.Int("player_effects", len(s.players)),
		zap.Int("global_effects", len(s.globals)))

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("tick scheduler stopped", zap.Uint64("ticks", s.ticks))
			return
		case now := <-timer.C:
			s.tick(ctx, now)
			timer.Reset(s.interval)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	start := time.Now()
	s.ticks++

	users := s.state.AllUserIDs()

	var wg sync.WaitGroup
	for _, eff := range s.players {
		for _, userID := range users {
			eff, userID := eff, userID
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.applyOne(ctx, eff, userID, now)
			}()
		}
	}
	wg.Wait()

	for _, eff := range s.globals {
		t0 := time.Now()
		s.runGlobal(ctx, eff, now)
		if d := time.Since(t0); d > s.interval {
			s.log.Warn("global effect overran the tick",
				zap.String("effect", eff.Name()), zap.Duration("took", d))
		}
	}

	if s.ticks%metricsEvery == 0 {
		s.logMetrics(len(users), time.Since(start))
	}
}

func (s *Scheduler) applyOne(ctx context.Context, eff system.PlayerEffect, userID int32, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			s.errCounts[eff.Name()].Add(1)
			s.log.Error("player effect panicked",
				zap.String("effect", eff.Name()), zap.Int32("user", userID), zap.Any("panic", r))
		}
	}()
	if err := eff.Apply(ctx, userID, now); err != nil {
		s.errCounts[eff.Name()].Add(1)
		s.log.Error("player effect failed",
			zap.String("effect", eff.Name()), zap.Int32("user", userID), zap.Error(err))
	}
}

func (s *Scheduler) runGlobal(ctx context.Context, eff system.GlobalEffect, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			s.errCounts[eff.Name()].Add(1)
			s.log.Error("global effect panicked",
				zap.String("effect", eff.Name()), zap.Any("panic", r))
		}
	}()
	if err := eff.Run(ctx, now); err != nil {
		s.errCounts[eff.Name()].Add(1)
		s.log.Error("global effect failed", zap.String("effect", eff.Name()), zap.Error(err))
	}
}

func (s *Scheduler) logMetrics(users int, took time.Duration) {
	fields := []zap.Field{
		zap.Uint64("tick", s.ticks),
		zap.Int("users", users),
		zap.Duration("took", took),
	}
	for name, c := range s.errCounts {
		if n := c.Load(); n > 0 {
			fields = append(fields, zap.Uint64("errors_"+name, n))
		}
	}
	s.log.Info("tick metrics", fields...)
}
