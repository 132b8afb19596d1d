package game

import (
	"math/rand"
	"sync"
	"time"
)

// lockedRand serialises a math/rand source shared by session goroutines
// and tick effects.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func newLockedRand() *lockedRand {
	return &lockedRand{r: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// newSeededRand pins the sequence; tests use it to make rolls predictable.
func newSeededRand(seed int64) *lockedRand {
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

// Between returns a uniform int32 in [lo, hi]; hi < lo collapses to lo.
func (l *lockedRand) Between(lo, hi int32) int32 {
	if hi <= lo {
		return lo
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return lo + l.r.Int31n(hi-lo+1)
}

// With runs fn holding the lock, for callers that need the raw source.
func (l *lockedRand) With(fn func(r *rand.Rand)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.r)
}
