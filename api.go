package scopecache

import (
	"context"
	"time"
)

// Kind identifies a backend implementation.
type Kind string

const (
	KindMemory Kind = "memory"
	KindRedis  Kind = "redis"
)

// TTL sentinels for Set and Options.TTL. The zero value always means
// "use the configured default" so that omitted fields coalesce naturally.
const (
	// DefaultTTL selects the instance's configured default TTL.
	DefaultTTL time.Duration = 0
	// NoExpiry stores the entry without expiration.
	NoExpiry time.Duration = -1
)

// Unlimited disables the size bound of the in-process backend.
const Unlimited = -1

// Engine is the cache contract. Every backend and Scoped implement it.
//
// Get/Set/Delete/Has are fail-open: backend I/O errors are logged and
// reported as a miss (reads) or a skipped write, never returned. Only
// Close surfaces errors, and only for resource release.
type Engine[V any] interface {
	// Get returns the cached value for key, counting a hit or miss.
	Get(ctx context.Context, key string) (V, bool)

	// Set stores value under key. ttl overrides the configured default:
	// DefaultTTL uses the instance default, NoExpiry disables expiration.
	// Returns false when the write was skipped (disabled, disposed, or
	// backend error).
	Set(ctx context.Context, key string, value V, ttl time.Duration) bool

	// Delete removes key, reporting whether an entry existed.
	Delete(ctx context.Context, key string) bool

	// Has reports whether key holds an unexpired entry.
	Has(ctx context.Context, key string) bool

	// Clear removes every key under the instance's prefix and resets the
	// hit/miss counters.
	Clear(ctx context.Context)

	// ClearByPrefix removes every key under the instance's prefix.
	ClearByPrefix(ctx context.Context)

	// Keys returns the full (prefixed) keys matching pattern. The pattern
	// is anchored; '*' matches any run of characters. Behavior is
	// identical across backends.
	Keys(ctx context.Context, pattern string) []string

	// DeleteByPattern removes keys matching pattern, returning the number
	// deleted. Individual failures are logged and do not abort the batch.
	DeleteByPattern(ctx context.Context, pattern string) int

	// DeleteByPrefix is shorthand for DeleteByPattern(prefix + "*").
	DeleteByPrefix(ctx context.Context, prefix string) int

	// Size reports the number of entries under the instance's prefix.
	Size(ctx context.Context) int

	// Options returns a copy of the normalized options.
	Options() Options

	// SetOptions merges the partial update, re-normalizes, and notifies
	// the options-changed hook.
	SetOptions(u Update)

	// Stats recomputes counters and occupancy on demand.
	Stats(ctx context.Context) Stats

	// Key builds the storage key for parts under the instance's prefix.
	Key(parts KeyParts) string

	// Kind identifies the backend implementation.
	Kind() Kind

	// Close releases backend resources, clears the namespace, and resets
	// counters. Idempotent. Operations after Close are no-ops.
	Close(ctx context.Context) error
}
