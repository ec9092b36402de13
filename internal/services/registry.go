package services

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"profitcalc/internal/cache"
	"profitcalc/internal/core"
	"profitcalc/internal/log"
	"profitcalc/internal/persistence"
	"profitcalc/internal/storage"
)

// RegistryConfig sizes the session cache.
type RegistryConfig struct {
	Capacity int
	TTL      time.Duration
	IDs      core.IDGenerator
}

// Registry maps owners to their open sessions. Idle or surplus sessions are
// dropped from memory; their stored records are untouched.
//
// At most one session per owner is live. A dropped session is retired
// before its owner's record is loaded again, so a handler still holding it
// forwards its edits instead of saving over the new session.
type Registry struct {
	store    storage.KeyValueStore
	notifier Notifier
	ids      core.IDGenerator
	logger   *log.Logger
	sessions *cache.LRUCache[*Session]
	loads    singleflight.Group

	mu   sync.Mutex
	live map[string]*Session
}

// NewRegistry creates a registry over store. notifier may be nil.
func NewRegistry(store storage.KeyValueStore, notifier Notifier, cfg RegistryConfig, logger *log.Logger) *Registry {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 1000
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	if logger == nil {
		logger = log.Discard()
	}
	r := &Registry{
		store:    store,
		notifier: notifier,
		ids:      cfg.IDs,
		logger:   logger.WithComponent(log.ComponentCalculator),
		live:     make(map[string]*Session),
	}
	r.sessions = cache.NewLRUCache[*Session](cfg.Capacity, cfg.TTL,
		cache.WithEvict[*Session](r.evicted),
		cache.WithSlidingExpiry[*Session]())
	return r
}

// Get returns the owner's session, loading it from storage on first use.
// Concurrent first loads for one owner share a single load.
func (r *Registry) Get(ctx context.Context, owner string) *Session {
	if s, ok := r.sessions.Get(owner); ok {
		return s
	}

	v, _, _ := r.loads.Do(owner, func() (any, error) {
		if s, ok := r.sessions.Get(owner); ok {
			return s, nil
		}
		r.retire(owner, nil)

		adapter := persistence.New(r.store, owner, r.ids, r.logger)
		s := OpenSession(context.WithoutCancel(ctx), adapter, r.notifier, r.ids, r.logger)
		s.reopen = func(ctx context.Context) *Session { return r.Get(ctx, owner) }

		r.mu.Lock()
		r.live[owner] = s
		r.mu.Unlock()
		r.sessions.Set(owner, s)
		r.logger.DebugContext(ctx, "Session opened", log.FieldOwner, owner)
		return s, nil
	})
	return v.(*Session)
}

// Discard drops the owner's session from memory, e.g. on sign-out.
func (r *Registry) Discard(owner string) bool {
	return r.sessions.Delete(owner)
}

// Len returns the number of open sessions.
func (r *Registry) Len() int { return r.sessions.Size() }

// CleanExpired drops idle sessions. It lets a cache.Manager sweep the registry.
func (r *Registry) CleanExpired() int { return r.sessions.CleanExpired() }

// Close discards every open session.
func (r *Registry) Close() {
	if n := r.sessions.Purge(); n > 0 {
		r.logger.Info("Sessions discarded on shutdown", "count", n)
	}
}

func (r *Registry) evicted(owner string, s *Session) {
	r.retire(owner, s)
	r.logger.Debug("Session discarded", log.FieldOwner, owner)
}

// retire retires the owner's live session when it is s, or whatever it is
// when s is nil, and forgets it.
func (r *Registry) retire(owner string, s *Session) {
	r.mu.Lock()
	live, ok := r.live[owner]
	if !ok || (s != nil && live != s) {
		r.mu.Unlock()
		return
	}
	delete(r.live, owner)
	r.mu.Unlock()

	live.retire()
}
