// Package memory implements the in-process cache backend: a bounded LRU
// store with per-entry TTL expiry.
//
// Capacity and recency are delegated to hashicorp's LRU (reads refresh
// recency, Add evicts the least recently used entry when full). Expiry is
// self-managed: each entry carries its own deadline, checked lazily on
// read and swept on Size/Stats, so a per-Set ttl can differ from the
// configured default and an expired entry is never observable even before
// it is physically removed.
package memory

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/unkn0wn-root/scopecache"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time // zero => never expires
}

func (e entry[V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Backend is the in-process store. Safe for concurrent use.
type Backend[V any] struct {
	lru *lru.Cache[string, entry[V]]
	log scopecache.Logger

	optsMu sync.RWMutex
	opts   scopecache.Options
	hooks  scopecache.Hooks

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
	closed    atomic.Bool
}

var _ scopecache.Engine[any] = (*Backend[any])(nil)

// Config tunes the backend. All fields are optional.
type Config struct {
	Options scopecache.Options
	Logger  scopecache.Logger // nil => NopLogger
	Hooks   scopecache.Hooks  // nil => NopHooks
}

// New constructs an in-process backend with normalized options.
func New[V any](cfg Config) (*Backend[V], error) {
	b := &Backend[V]{
		opts: scopecache.Normalize(cfg.Options),
	}
	if cfg.Logger != nil {
		b.log = cfg.Logger
	} else {
		b.log = scopecache.NopLogger{}
	}
	if cfg.Hooks != nil {
		b.hooks = cfg.Hooks
	} else {
		b.hooks = scopecache.NopHooks{}
	}

	c, err := lru.New[string, entry[V]](capacity(b.opts.MaxSize))
	if err != nil {
		return nil, err
	}
	b.lru = c
	return b, nil
}

// capacity maps the Unlimited sentinel onto the largest bound the LRU
// accepts; it never preallocates, so this costs nothing.
func capacity(maxSize int) int {
	if maxSize == scopecache.Unlimited {
		return math.MaxInt
	}
	return maxSize
}

func (b *Backend[V]) Kind() scopecache.Kind { return scopecache.KindMemory }

func (b *Backend[V]) Get(_ context.Context, key string) (V, bool) {
	var zero V
	if b.closed.Load() {
		return zero, false
	}
	opts := b.options()
	if opts.Disabled {
		b.misses.Add(1)
		return zero, false
	}

	sk := scopecache.PrefixKey(opts.Prefix, key)
	e, ok := b.lru.Get(sk)
	if !ok {
		b.misses.Add(1)
		return zero, false
	}
	if e.expired(time.Now()) {
		b.lru.Remove(sk)
		b.misses.Add(1)
		return zero, false
	}
	b.hits.Add(1)
	return e.value, true
}

func (b *Backend[V]) Set(_ context.Context, key string, value V, ttl time.Duration) bool {
	if b.closed.Load() {
		b.log.Warn("set on closed cache ignored", scopecache.Fields{"key": key})
		return false
	}
	opts := b.options()
	if opts.Disabled {
		return false
	}

	e := entry[V]{value: value}
	if eff := scopecache.EffectiveTTL(ttl, opts.TTL); eff != scopecache.NoExpiry {
		e.expiresAt = time.Now().Add(eff)
	}

	if evicted := b.lru.Add(scopecache.PrefixKey(opts.Prefix, key), e); evicted {
		b.evictions.Add(1)
		b.hooks.Evicted(1)
	}
	return true
}

func (b *Backend[V]) Delete(_ context.Context, key string) bool {
	if b.closed.Load() {
		b.log.Warn("delete on closed cache ignored", scopecache.Fields{"key": key})
		return false
	}
	return b.lru.Remove(scopecache.PrefixKey(b.options().Prefix, key))
}

func (b *Backend[V]) Has(_ context.Context, key string) bool {
	if b.closed.Load() {
		return false
	}
	opts := b.options()
	if opts.Disabled {
		return false
	}
	sk := scopecache.PrefixKey(opts.Prefix, key)
	e, ok := b.lru.Peek(sk)
	if !ok {
		return false
	}
	if e.expired(time.Now()) {
		b.lru.Remove(sk)
		return false
	}
	return true
}

// Keys returns full (prefixed) keys matching pattern, which is relative
// to the configured prefix. Expired entries are swept as encountered.
func (b *Backend[V]) Keys(_ context.Context, pattern string) []string {
	if b.closed.Load() {
		return nil
	}
	full := scopecache.PrefixKey(b.options().Prefix, pattern)
	now := time.Now()

	var out []string
	for _, k := range b.lru.Keys() {
		e, ok := b.lru.Peek(k)
		if !ok {
			continue
		}
		if e.expired(now) {
			b.lru.Remove(k)
			continue
		}
		if scopecache.MatchPattern(full, k) {
			out = append(out, k)
		}
	}
	return out
}

func (b *Backend[V]) DeleteByPattern(ctx context.Context, pattern string) int {
	keys := b.Keys(ctx, pattern)
	n := 0
	for _, k := range keys {
		if b.lru.Remove(k) {
			n++
		}
	}
	if n > 0 {
		b.log.Debug("deleted by pattern", scopecache.Fields{"pattern": pattern, "count": n})
	}
	return n
}

func (b *Backend[V]) DeleteByPrefix(ctx context.Context, prefix string) int {
	return b.DeleteByPattern(ctx, prefix+"*")
}

// ClearByPrefix removes every key physically under the configured prefix.
// With no prefix the whole store belongs to this instance and is purged.
func (b *Backend[V]) ClearByPrefix(_ context.Context) {
	if b.closed.Load() {
		return
	}
	prefix := b.options().Prefix
	if prefix == "" {
		b.lru.Purge()
		return
	}
	for _, k := range b.lru.Keys() {
		if scopecache.MatchPattern(prefix+":*", k) {
			b.lru.Remove(k)
		}
	}
}

func (b *Backend[V]) Clear(ctx context.Context) {
	b.ClearByPrefix(ctx)
	b.hits.Store(0)
	b.misses.Store(0)
}

// Size sweeps expired entries and reports current occupancy.
func (b *Backend[V]) Size(_ context.Context) int {
	if b.closed.Load() {
		return 0
	}
	now := time.Now()
	n := 0
	for _, k := range b.lru.Keys() {
		e, ok := b.lru.Peek(k)
		if !ok {
			continue
		}
		if e.expired(now) {
			b.lru.Remove(k)
			continue
		}
		n++
	}
	return n
}

func (b *Backend[V]) Options() scopecache.Options { return b.options() }

// SetOptions merges the update and re-normalizes. A shrunken MaxSize
// evicts the oldest entries synchronously until occupancy fits; a TTL
// change applies to subsequent writes only (existing deadlines stand).
func (b *Backend[V]) SetOptions(u scopecache.Update) {
	b.optsMu.Lock()
	old := b.opts
	b.opts = scopecache.Merge(b.opts, u)
	updated := b.opts
	b.optsMu.Unlock()

	if updated.MaxSize != old.MaxSize {
		evicted := b.lru.Resize(capacity(updated.MaxSize))
		if evicted > 0 {
			b.evictions.Add(int64(evicted))
			b.hooks.Evicted(evicted)
			b.log.Info("max size reduced, evicted oldest entries", scopecache.Fields{
				"max_size": updated.MaxSize,
				"evicted":  evicted,
			})
		}
	}
	b.hooks.OptionsChanged(old, updated)
}

func (b *Backend[V]) Stats(ctx context.Context) scopecache.Stats {
	opts := b.options()
	hits, misses := b.hits.Load(), b.misses.Load()
	return scopecache.Stats{
		Hits:      hits,
		Misses:    misses,
		HitRate:   scopecache.HitRate(hits, misses),
		Size:      b.Size(ctx),
		Backend:   scopecache.KindMemory,
		Evictions: b.evictions.Load(),
		MaxSize:   opts.MaxSize,
		TTL:       opts.TTL,
	}
}

// Key builds the storage key for parts under the configured prefix.
// A parameter hashing failure degrades to the unparameterized key.
func (b *Backend[V]) Key(parts scopecache.KeyParts) string {
	k, err := scopecache.BuildKey(parts)
	if err != nil {
		b.log.Warn("key params not hashable, using bare key", scopecache.Fields{
			"resource":  parts.Resource,
			"operation": parts.Operation,
			"err":       err,
		})
		k = parts.Resource + ":" + parts.Operation
	}
	return scopecache.PrefixKey(b.options().Prefix, k)
}

// Close purges the store and resets counters. Idempotent; later
// operations are no-ops.
func (b *Backend[V]) Close(_ context.Context) error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	b.lru.Purge()
	b.hits.Store(0)
	b.misses.Store(0)
	return nil
}

func (b *Backend[V]) options() scopecache.Options {
	b.optsMu.RLock()
	defer b.optsMu.RUnlock()
	return b.opts
}
