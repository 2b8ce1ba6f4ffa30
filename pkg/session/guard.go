package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/velora/leadflow/internal/logging"
	"github.com/velora/leadflow/pkg/ports"
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Guard serializes work per entity key. It uses reference counting to garbage
// collect unused locks.
type Guard struct {
	mu    sync.Mutex // Global lock for the map
	locks map[string]*lockEntry

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Guard.
type Option func(*Guard)

// WithLocker enables distributed locking on top of the local mutexes.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(g *Guard) { g.locker = locker }
}

// WithLockTTL sets the distributed lock TTL (default 30s).
func WithLockTTL(ttl time.Duration) Option {
	return func(g *Guard) { g.lockTTL = ttl }
}

// WithLogger configures a logger for deferred errors.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) { g.logger = logger }
}

// NewGuard creates a Guard.
func NewGuard(opts ...Option) *Guard {
	g := &Guard{
		locks:   make(map[string]*lockEntry),
		lockTTL: 30 * time.Second,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// acquire gets or creates a lock entry and increments its reference count.
func (g *Guard) acquire(key string) *lockEntry {
	g.mu.Lock()
	defer g.mu.Unlock()

	entry, exists := g.locks[key]
	if !exists {
		entry = &lockEntry{}
		g.locks[key] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (g *Guard) release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	entry, exists := g.locks[key]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(g.locks, key)
	}
}

// WithLock runs fn while holding the per-key lock (and the distributed lock
// when one is configured). Calls for the same key are strictly serialized.
func (g *Guard) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	entry := g.acquire(key)
	defer g.release(key)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if g.locker != nil {
		unlock, err := g.locker.Lock(ctx, key, g.lockTTL)
		if err != nil {
			return err
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				g.logger.Warn("failed to release distributed lock", "key", key, "err", err)
			}
		}()
	}

	return fn(ctx)
}
