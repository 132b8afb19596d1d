package persist

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
)

// SettingsRepo is a small key/value store for runtime tunables. Effects
// read it every tick, so lookups go through a short-lived cache.
type SettingsRepo interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// PGSettingsRepo stores tunables in the settings table.
type PGSettingsRepo struct {
	db *DB
}

func NewPGSettingsRepo(db *DB) *PGSettingsRepo {
	return &PGSettingsRepo{db: db}
}

func (r *PGSettingsRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := r.db.Pool.QueryRow(ctx, `SELECT value FROM settings WHERE key=$1`, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	return v, err == nil, err
}

func (r *PGSettingsRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value=$2`, key, value)
	return err
}

// MemSettingsRepo is the in-memory implementation.
type MemSettingsRepo struct {
	mu   sync.RWMutex
	vals map[string]string
}

func NewMemSettingsRepo() *MemSettingsRepo {
	return &MemSettingsRepo{vals: make(map[string]string)}
}

func (r *MemSettingsRepo) Get(_ context.Context, key string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.vals[key]
	return v, ok, nil
}

func (r *MemSettingsRepo) Set(_ context.Context, key, value string) error {
	r.mu.Lock()
	r.vals[key] = value
	r.mu.Unlock()
	return nil
}

// Tunables answers typed lookups with a TTL cache in front of a
// SettingsRepo, so a flipped key takes effect without a restart and the
// tick loop does not hammer the store.
type Tunables struct {
	repo SettingsRepo
	ttl  time.Duration

	mu    sync.Mutex
	cache map[string]cachedVal
}

type cachedVal struct {
	val     string
	ok      bool
	expires time.Time
}

func NewTunables(repo SettingsRepo, ttl time.Duration) *Tunables {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &Tunables{repo: repo, ttl: ttl, cache: make(map[string]cachedVal)}
}

func (t *Tunables) lookup(ctx context.Context, key string) (string, bool) {
	now := time.Now()
	t.mu.Lock()
	if c, hit := t.cache[key]; hit && now.Before(c.expires) {
		t.mu.Unlock()
		return c.val, c.ok
	}
	t.mu.Unlock()

	val, ok, err := t.repo.Get(ctx, key)
	if err != nil {
		// Serve the default on store trouble rather than stalling a tick.
		return "", false
	}
	t.mu.Lock()
	t.cache[key] = cachedVal{val: val, ok: ok, expires: now.Add(t.ttl)}
	t.mu.Unlock()
	return val, ok
}

func (t *Tunables) Bool(ctx context.Context, key string, def bool) bool {
	v, ok := t.lookup(ctx, key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func (t *Tunables) Int(ctx context.Context, key string, def int) int {
	v, ok := t.lookup(ctx, key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func (t *Tunables) Float(ctx context.Context, key string, def float64) float64 {
	v, ok := t.lookup(ctx, key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
