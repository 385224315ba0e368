// Package redis implements the distributed cache backend over a Redis
// key-value protocol client.
//
// The protocol has no atomic delete-by-prefix, so bulk operations walk
// the key space with cursor-based SCAN in bounded batches, deleting each
// batch as it arrives. All operations are fail-open: transport and parse
// errors are logged and surface as a miss or a skipped write.
package redis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/scopecache"
	"github.com/unkn0wn-root/scopecache/codec"
)

// scanBatch bounds keys per SCAN round-trip, which also bounds memory
// during bulk deletion.
const scanBatch = 100

var ErrNilClient = errors.New("scopecache/redis: nil client")

// Client is the slice of the Redis command surface the backend needs.
// *goredis.Client and goredis.UniversalClient satisfy it; tests fake it
// with the goredis.New*Result helpers.
type Client interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
	Exists(ctx context.Context, keys ...string) *goredis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *goredis.ScanCmd
	Close() error
}

// Backend is the Redis-backed store. Safe for concurrent use.
type Backend[V any] struct {
	rdb         Client
	closeClient bool
	codec       codec.Codec[V]
	log         scopecache.Logger
	hooks       scopecache.Hooks

	optsMu sync.RWMutex
	opts   scopecache.Options

	hits   atomic.Int64
	misses atomic.Int64
	closed atomic.Bool
}

var _ scopecache.Engine[any] = (*Backend[any])(nil)

// Config is generic over the value type so the codec matches the backend.
type Config[V any] struct {
	// Client is required.
	Client Client
	// CloseClient releases the client on Close. Set true only if this
	// backend exclusively owns the client.
	CloseClient bool
	// Codec serializes values; nil => codec.JSON.
	Codec   codec.Codec[V]
	Options scopecache.Options
	Logger  scopecache.Logger // nil => NopLogger
	Hooks   scopecache.Hooks  // nil => NopHooks
}

func New[V any](cfg Config[V]) (*Backend[V], error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	b := &Backend[V]{
		rdb:         cfg.Client,
		closeClient: cfg.CloseClient,
		opts:        scopecache.Normalize(cfg.Options),
	}
	if cfg.Codec != nil {
		b.codec = cfg.Codec
	} else {
		b.codec = codec.JSON[V]{}
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
	return b, nil
}

func (b *Backend[V]) Kind() scopecache.Kind { return scopecache.KindRedis }

func (b *Backend[V]) Get(ctx context.Context, key string) (V, bool) {
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
	raw, err := b.rdb.Get(ctx, sk).Bytes()
	if err == goredis.Nil {
		b.misses.Add(1)
		return zero, false
	}
	if err != nil {
		b.log.Warn("redis get failed, treating as miss", scopecache.Fields{"key": sk, "err": err})
		b.misses.Add(1)
		return zero, false
	}
	v, err := b.codec.Decode(raw)
	if err != nil {
		// self-heal: drop the unparseable entry, report a miss
		b.log.Warn("cached payload failed to parse, treating as miss", scopecache.Fields{"key": sk, "err": err})
		_ = b.rdb.Del(ctx, sk).Err()
		b.hooks.SelfHealed(sk, err)
		b.misses.Add(1)
		return zero, false
	}
	b.hits.Add(1)
	return v, true
}

func (b *Backend[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) bool {
	if b.closed.Load() {
		b.log.Warn("set on closed cache ignored", scopecache.Fields{"key": key})
		return false
	}
	opts := b.options()
	if opts.Disabled {
		return false
	}

	payload, err := b.codec.Encode(value)
	if err != nil {
		b.log.Error("value encode failed, skipping cache write", scopecache.Fields{"key": key, "err": err})
		return false
	}

	var exp time.Duration
	if eff := scopecache.EffectiveTTL(ttl, opts.TTL); eff != scopecache.NoExpiry {
		exp = eff
	}

	sk := scopecache.PrefixKey(opts.Prefix, key)
	if err := b.rdb.Set(ctx, sk, payload, exp).Err(); err != nil {
		b.log.Warn("redis set failed", scopecache.Fields{"key": sk, "err": err})
		return false
	}
	return true
}

func (b *Backend[V]) Delete(ctx context.Context, key string) bool {
	if b.closed.Load() {
		b.log.Warn("delete on closed cache ignored", scopecache.Fields{"key": key})
		return false
	}
	sk := scopecache.PrefixKey(b.options().Prefix, key)
	n, err := b.rdb.Del(ctx, sk).Result()
	if err != nil {
		b.log.Warn("redis delete failed", scopecache.Fields{"key": sk, "err": err})
		return false
	}
	return n > 0
}

func (b *Backend[V]) Has(ctx context.Context, key string) bool {
	if b.closed.Load() {
		return false
	}
	opts := b.options()
	if opts.Disabled {
		return false
	}
	sk := scopecache.PrefixKey(opts.Prefix, key)
	n, err := b.rdb.Exists(ctx, sk).Result()
	if err != nil {
		b.log.Warn("redis exists failed", scopecache.Fields{"key": sk, "err": err})
		return false
	}
	return n == 1
}

// Keys walks the key space with SCAN and returns full keys matching
// pattern (relative to the configured prefix).
func (b *Backend[V]) Keys(ctx context.Context, pattern string) []string {
	if b.closed.Load() {
		return nil
	}
	match := scopecache.EscapeGlob(scopecache.PrefixKey(b.options().Prefix, pattern))

	var out []string
	var cursor uint64
	for {
		keys, next, err := b.rdb.Scan(ctx, cursor, match, scanBatch).Result()
		if err != nil {
			b.log.Warn("redis scan failed", scopecache.Fields{"pattern": match, "err": err})
			return out
		}
		out = append(out, keys...)
		cursor = next
		if cursor == 0 {
			return out
		}
	}
}

// DeleteByPattern deletes matching keys batch by batch as the cursor
// advances, so memory stays bounded and a failed batch does not abort
// the rest of the walk.
func (b *Backend[V]) DeleteByPattern(ctx context.Context, pattern string) int {
	if b.closed.Load() {
		return 0
	}
	match := scopecache.EscapeGlob(scopecache.PrefixKey(b.options().Prefix, pattern))
	deleted := b.deleteRaw(ctx, match)
	if deleted > 0 {
		b.log.Debug("deleted by pattern", scopecache.Fields{"pattern": match, "count": deleted})
	}
	return deleted
}

func (b *Backend[V]) DeleteByPrefix(ctx context.Context, prefix string) int {
	return b.DeleteByPattern(ctx, prefix+"*")
}

func (b *Backend[V]) ClearByPrefix(ctx context.Context) {
	b.deleteOwn(ctx)
}

func (b *Backend[V]) Clear(ctx context.Context) {
	b.deleteOwn(ctx)
	b.hits.Store(0)
	b.misses.Store(0)
}

// deleteOwn removes every key physically under the configured prefix.
// An unprefixed backend owns the whole keyspace it can see.
func (b *Backend[V]) deleteOwn(ctx context.Context) {
	if b.closed.Load() {
		return
	}
	prefix := b.options().Prefix
	if prefix == "" {
		b.DeleteByPattern(ctx, "*")
		return
	}
	// Relative pattern ":" + "*" would prefix twice; go through the raw
	// prefixed form so exactly "prefix:*" is matched.
	match := scopecache.EscapeGlob(prefix+":") + "*"
	b.deleteRaw(ctx, match)
}

func (b *Backend[V]) deleteRaw(ctx context.Context, match string) int {
	deleted := 0
	var cursor uint64
	for {
		keys, next, err := b.rdb.Scan(ctx, cursor, match, scanBatch).Result()
		if err != nil {
			b.log.Warn("redis scan failed during bulk delete", scopecache.Fields{"pattern": match, "err": err})
			return deleted
		}
		if len(keys) > 0 {
			n, err := b.rdb.Del(ctx, keys...).Result()
			if err != nil {
				b.log.Warn("redis batch delete failed, continuing", scopecache.Fields{"pattern": match, "err": err})
			} else {
				deleted += int(n)
			}
		}
		cursor = next
		if cursor == 0 {
			return deleted
		}
	}
}

func (b *Backend[V]) Size(ctx context.Context) int {
	n, _ := b.sizeScan(ctx)
	return n
}

func (b *Backend[V]) sizeScan(ctx context.Context) (int, error) {
	if b.closed.Load() {
		return 0, nil
	}
	prefix := b.options().Prefix
	match := "*"
	if prefix != "" {
		match = scopecache.EscapeGlob(prefix+":") + "*"
	}

	count := 0
	var cursor uint64
	for {
		keys, next, err := b.rdb.Scan(ctx, cursor, match, scanBatch).Result()
		if err != nil {
			b.log.Warn("redis size scan failed", scopecache.Fields{"pattern": match, "err": err})
			return count, err
		}
		count += len(keys)
		cursor = next
		if cursor == 0 {
			return count, nil
		}
	}
}

func (b *Backend[V]) Options() scopecache.Options { return b.options() }

func (b *Backend[V]) SetOptions(u scopecache.Update) {
	b.optsMu.Lock()
	old := b.opts
	b.opts = scopecache.Merge(b.opts, u)
	updated := b.opts
	b.optsMu.Unlock()
	b.hooks.OptionsChanged(old, updated)
}

func (b *Backend[V]) Stats(ctx context.Context) scopecache.Stats {
	opts := b.options()
	hits, misses := b.hits.Load(), b.misses.Load()
	s := scopecache.Stats{
		Hits:    hits,
		Misses:  misses,
		HitRate: scopecache.HitRate(hits, misses),
		Backend: scopecache.KindRedis,
		TTL:     opts.TTL,
	}
	size, err := b.sizeScan(ctx)
	s.Size = size
	if err != nil {
		s.Error = err.Error()
	}
	return s
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

// Close clears this backend's namespace, resets counters, and releases
// the client when owned. Safe to call multiple times; repeated calls
// become no-ops, and an already-closed client is not an error.
func (b *Backend[V]) Close(ctx context.Context) error {
	if b.closed.Load() {
		return nil
	}
	// best-effort namespace clear while the connection is still up
	b.deleteOwn(ctx)
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	b.hits.Store(0)
	b.misses.Store(0)
	if b.closeClient {
		if err := b.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

func (b *Backend[V]) options() scopecache.Options {
	b.optsMu.RLock()
	defer b.optsMu.RUnlock()
	return b.opts
}
