package scopecache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Scoped is a namespaced view over a backend. It applies its own prefix
// when building keys, independent of the wrapped backend's prefix, so
// multiple scopes can share one physical backend without collision. It
// keeps its own hit/miss counters, TTL default, and enabled flag.
//
// A Scoped never owns the backend's lifecycle: Close disposes only the
// scope. After disposal Get returns absent and Set/Delete are no-ops
// that log a warning - callers using the cache as an optimization must
// never crash because the cache was torn down.
type Scoped[V any] struct {
	backend Engine[V]
	log     Logger

	optsMu sync.RWMutex
	opts   Options // Prefix is the scope namespace

	hits     atomic.Int64
	misses   atomic.Int64
	disposed atomic.Bool
}

var _ Engine[any] = (*Scoped[any])(nil)

// NewScoped wraps backend under opts.Prefix. A nil logger coalesces to
// NopLogger.
func NewScoped[V any](backend Engine[V], opts Options, log Logger) *Scoped[V] {
	if log == nil {
		log = NopLogger{}
	}
	return &Scoped[V]{
		backend: backend,
		log:     log,
		opts:    Normalize(opts),
	}
}

// Kind reports the wrapped backend's kind.
func (s *Scoped[V]) Kind() Kind { return s.backend.Kind() }

func (s *Scoped[V]) Get(ctx context.Context, key string) (V, bool) {
	var zero V
	if s.disposed.Load() {
		return zero, false
	}
	opts := s.options()
	if opts.Disabled {
		s.misses.Add(1)
		return zero, false
	}
	v, ok := s.backend.Get(ctx, PrefixKey(opts.Prefix, key))
	if ok {
		s.hits.Add(1)
	} else {
		s.misses.Add(1)
	}
	return v, ok
}

func (s *Scoped[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) bool {
	if s.disposed.Load() {
		s.log.Warn("set on disposed scope ignored", Fields{"key": key})
		return false
	}
	opts := s.options()
	if opts.Disabled {
		return false
	}
	// resolve against the scope's own default so the backend's does not
	// apply underneath
	return s.backend.Set(ctx, PrefixKey(opts.Prefix, key), value, EffectiveTTL(ttl, opts.TTL))
}

func (s *Scoped[V]) Delete(ctx context.Context, key string) bool {
	if s.disposed.Load() {
		s.log.Warn("delete on disposed scope ignored", Fields{"key": key})
		return false
	}
	return s.backend.Delete(ctx, PrefixKey(s.options().Prefix, key))
}

func (s *Scoped[V]) Has(ctx context.Context, key string) bool {
	if s.disposed.Load() {
		return false
	}
	opts := s.options()
	if opts.Disabled {
		return false
	}
	return s.backend.Has(ctx, PrefixKey(opts.Prefix, key))
}

func (s *Scoped[V]) Keys(ctx context.Context, pattern string) []string {
	if s.disposed.Load() {
		return nil
	}
	return s.backend.Keys(ctx, PrefixKey(s.options().Prefix, pattern))
}

func (s *Scoped[V]) DeleteByPattern(ctx context.Context, pattern string) int {
	if s.disposed.Load() {
		return 0
	}
	return s.backend.DeleteByPattern(ctx, PrefixKey(s.options().Prefix, pattern))
}

func (s *Scoped[V]) DeleteByPrefix(ctx context.Context, prefix string) int {
	return s.DeleteByPattern(ctx, prefix+"*")
}

// ClearByPrefix removes every key under the scope's namespace, leaving
// sibling scopes on the same backend untouched.
func (s *Scoped[V]) ClearByPrefix(ctx context.Context) {
	if s.disposed.Load() {
		return
	}
	ns := s.options().Prefix
	if ns == "" {
		s.backend.ClearByPrefix(ctx)
		return
	}
	s.backend.DeleteByPattern(ctx, ns+":*")
}

func (s *Scoped[V]) Clear(ctx context.Context) {
	s.ClearByPrefix(ctx)
	s.hits.Store(0)
	s.misses.Store(0)
}

// Size counts keys under the scope's own namespace rather than
// delegating to the backend's raw size.
func (s *Scoped[V]) Size(ctx context.Context) int {
	return len(s.Keys(ctx, "*"))
}

func (s *Scoped[V]) Options() Options { return s.options() }

// SetOptions adjusts the scope only; the wrapped backend's options are
// untouched.
func (s *Scoped[V]) SetOptions(u Update) {
	s.optsMu.Lock()
	s.opts = Merge(s.opts, u)
	s.optsMu.Unlock()
}

func (s *Scoped[V]) Stats(ctx context.Context) Stats {
	opts := s.options()
	hits, misses := s.hits.Load(), s.misses.Load()
	return Stats{
		Hits:    hits,
		Misses:  misses,
		HitRate: HitRate(hits, misses),
		Size:    s.Size(ctx),
		Backend: s.backend.Kind(),
		TTL:     opts.TTL,
	}
}

// Key builds the storage key for parts under the scope's namespace.
func (s *Scoped[V]) Key(parts KeyParts) string {
	k, err := BuildKey(parts)
	if err != nil {
		s.log.Warn("key params not hashable, using bare key", Fields{
			"resource":  parts.Resource,
			"operation": parts.Operation,
			"err":       err,
		})
		k = parts.Resource + ":" + parts.Operation
	}
	return PrefixKey(s.options().Prefix, k)
}

// Close disposes the scope: clears its namespace, resets counters, and
// revokes further writes. The wrapped backend stays open. Idempotent.
func (s *Scoped[V]) Close(ctx context.Context) error {
	if !s.disposed.CompareAndSwap(false, true) {
		return nil
	}
	ns := s.options().Prefix
	if ns == "" {
		s.backend.ClearByPrefix(ctx)
	} else {
		s.backend.DeleteByPattern(ctx, ns+":*")
	}
	s.hits.Store(0)
	s.misses.Store(0)
	return nil
}

func (s *Scoped[V]) options() Options {
	s.optsMu.RLock()
	defer s.optsMu.RUnlock()
	return s.opts
}
