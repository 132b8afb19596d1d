package tick

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/cavazquez/pyao-server-sub005/internal/world"
)

type nullPusher struct{}

func (nullPusher) Send([]byte) {}

type countingPlayerEffect struct {
	name  string
	mu    sync.Mutex
	seen  map[int32]int
	fail  bool
	boom  bool
	calls atomic.Int64
}

func (e *countingPlayerEffect) Name() string { return e.name }

func (e *countingPlayerEffect) Apply(_ context.Context, userID int32, _ time.Time) error {
	e.calls.Add(1)
	e.mu.Lock()
	if e.seen == nil {
		e.seen = make(map[int32]int)
	}
	e.seen[userID]++
	e.mu.Unlock()
	if e.boom {
		panic("effect exploded")
	}
	if e.fail {
		return errors.New("effect failed")
	}
	return nil
}

type countingGlobalEffect struct {
	name  string
	calls atomic.Int64
}

func (e *countingGlobalEffect) Name() string { return e.name }

func (e *countingGlobalEffect) Run(context.Context, time.Time) error {
	e.calls.Add(1)
	return nil
}

func populatedState(t *testing.T, users ...int32) *world.State {
	t.Helper()
	state := world.NewState()
	for i, id := range users {
		if !state.AddPlayer(1, id, "", int16(id), 10+i, 10, nullPusher{}) {
			t.Fatalf("add player %d", id)
		}
	}
	return state
}

func TestTickAppliesEachEffectToEachUserOnce(t *testing.T) {
	state := populatedState(t, 1, 2, 3)
	s := NewScheduler(state, time.Second, zap.NewNop())
	eff := &countingPlayerEffect{name: "count"}
	s.AddPlayerEffect(eff)

	s.tick(context.Background(), time.Now())

	if got := eff.calls.Load(); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
	for _, id := range []int32{1, 2, 3} {
		if eff.seen[id] != 1 {
			t.Fatalf("user %d applied %d times, want 1", id, eff.seen[id])
		}
	}
}

func TestTickRunsGlobalsExactlyOncePerTick(t *testing.T) {
	state := populatedState(t, 1, 2, 3, 4)
	s := NewScheduler(state, time.Second, zap.NewNop())
	eff := &countingGlobalEffect{name: "global"}
	s.AddGlobalEffect(eff)

	now := time.Now()
	s.tick(context.Background(), now)
	s.tick(context.Background(), now.Add(time.Second))

	if got := eff.calls.Load(); got != 2 {
		t.Fatalf("global ran %d times over 2 ticks, want 2", got)
	}
}

func TestTickSurvivesPanickingEffect(t *testing.T) {
	state := populatedState(t, 1, 2)
	s := NewScheduler(state, time.Second, zap.NewNop())
	bad := &countingPlayerEffect{name: "bad", boom: true}
	good := &countingPlayerEffect{name: "good"}
	s.AddPlayerEffect(bad)
	s.AddPlayerEffect(good)

	s.tick(context.Background(), time.Now())

	if got := good.calls.Load(); got != 2 {
		t.Fatalf("healthy effect ran %d times, want 2", got)
	}
	if got := s.errCounts["bad"].Load(); got != 2 {
		t.Fatalf("panic count = %d, want 2", got)
	}
}

func TestTickCountsEffectErrors(t *testing.T) {
	state := populatedState(t, 1)
	s := NewScheduler(state, time.Second, zap.NewNop())
	eff := &countingPlayerEffect{name: "flaky", fail: true}
	s.AddPlayerEffect(eff)

	s.tick(context.Background(), time.Now())
	s.tick(context.Background(), time.Now())

	if got := s.errCounts["flaky"].Load(); got != 2 {
		t.Fatalf("error count = %d, want 2", got)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	state := populatedState(t)
	s := NewScheduler(state, 10*time.Millisecond, zap.NewNop())
	eff := &countingGlobalEffect{name: "global"}
	s.AddGlobalEffect(eff)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop on cancel")
	}
	if eff.calls.Load() == 0 {
		t.Fatal("scheduler never ticked")
	}
}

func TestDefaultIntervalApplied(t *testing.T) {
	s := NewScheduler(world.NewState(), 0, zap.NewNop())
	if s.interval != DefaultInterval {
		t.Fatalf("interval = %v, want %v", s.interval, DefaultInterval)
	}
}
