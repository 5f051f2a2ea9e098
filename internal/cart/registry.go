package cart

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pizza/internal/cache"
)

// ErrInvalidSession is returned for an empty session id.
var ErrInvalidSession = errors.New("cart: invalid session")

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	Storage Storage
	// StoreName prefixes every cart key, defaults to "shopping-cart".
	StoreName string
	Logger    zerolog.Logger
	Now       func() time.Time
}

type session struct {
	mu       sync.Mutex
	store    *Store
	lastUsed time.Time
	evicted  bool
}

// Registry hands out one Store per shopping session and gives callers
// exclusive access to it for the duration of a call.
type Registry struct {
	mu        sync.Mutex
	sessions  map[string]*session
	storage   Storage
	storeName string
	logger    zerolog.Logger
	now       func() time.Time
}

// NewRegistry constructs a Registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	storage := cfg.Storage
	if storage == nil {
		storage = NewMemoryStorage()
	}
	return &Registry{
		sessions:  make(map[string]*session),
		storage:   storage,
		storeName: cfg.StoreName,
		logger:    cfg.Logger,
		now:       now,
	}
}

// With runs fn with exclusive access to the cart of sessionID, restoring it
// from storage on first use.
func (r *Registry) With(ctx context.Context, sessionID string, fn func(*Store) error) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return ErrInvalidSession
	}
	sess := r.acquire(sessionID)
	defer sess.mu.Unlock()
	if sess.store == nil {
		logger := r.logger.With().Str("cart_session", sessionID).Logger()
		sess.store = Open(ctx, Config{
			Storage: r.storage,
			Key:     cache.KeyCart(r.storeName, sessionID),
			Logger:  logger,
		})
	}
	sess.lastUsed = r.now()
	return fn(sess.store)
}

// acquire returns the locked, live session for id.
func (r *Registry) acquire(id string) *session {
	for {
		r.mu.Lock()
		sess, ok := r.sessions[id]
		if !ok {
			sess = &session{}
			r.sessions[id] = sess
		}
		r.mu.Unlock()

		sess.mu.Lock()
		if !sess.evicted {
			return sess
		}
		sess.mu.Unlock()
	}
}

// Evict closes and forgets the in-memory cart of sessionID. Its persisted
// state is untouched.
func (r *Registry) Evict(sessionID string) {
	r.mu.Lock()
	sess, ok := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	r.mu.Unlock()
	if !ok {
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.evicted = true
	if sess.store != nil {
		sess.store.Close()
	}
}

// Sweep evicts sessions idle for longer than idle and returns how many were
// evicted.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle)
	r.mu.Lock()
	var stale []string
	for id, sess := range r.sessions {
		if sess.mu.TryLock() {
			if !sess.lastUsed.After(cutoff) {
				stale = append(stale, id)
			}
			sess.mu.Unlock()
		}
	}
	r.mu.Unlock()
	for _, id := range stale {
		r.Evict(id)
	}
	return len(stale)
}

// Run sweeps idle sessions every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval, idle time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(idle); n > 0 {
				r.logger.Debug().Int("evicted", n).Msg("cart_sessions_swept")
			}
		}
	}
}

// Len returns the number of sessions held in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
