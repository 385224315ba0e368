package scopecache

import "time"

const (
	defaultTTL     = 5 * time.Minute
	defaultMaxSize = 1000
)

// Options tune a backend or scope. The zero value of every field selects
// its default, so callers may omit any subset.
type Options struct {
	// TTL is the default entry lifetime. 0 => 5m, NoExpiry => never expire.
	TTL time.Duration
	// MaxSize bounds the in-process store. 0 => 1000, Unlimited => no bound.
	// Ignored by the redis backend.
	MaxSize int
	// Prefix namespaces every stored key as "prefix:key".
	Prefix string
	// Disabled turns the instance into a no-op: Set does nothing and Get
	// always misses (both still counted).
	Disabled bool
}

// Update is a partial Options change; nil fields keep their current value.
type Update struct {
	TTL      *time.Duration
	MaxSize  *int
	Prefix   *string
	Disabled *bool
}

// Normalize fills defaulted fields. Applied once per construction and on
// every SetOptions, so an omitted field never stays undefined.
func Normalize(o Options) Options {
	o.TTL = coalesce(o.TTL, defaultTTL)
	if o.TTL < 0 {
		o.TTL = NoExpiry
	}
	o.MaxSize = coalesce(o.MaxSize, defaultMaxSize)
	if o.MaxSize < 0 {
		o.MaxSize = Unlimited
	}
	return o
}

// EffectiveTTL resolves a per-call ttl against the configured default:
// DefaultTTL selects def, anything negative means NoExpiry, and a
// positive ttl stands as given.
func EffectiveTTL(ttl, def time.Duration) time.Duration {
	if ttl == DefaultTTL {
		ttl = def
	}
	if ttl < 0 {
		return NoExpiry
	}
	return ttl
}

// Merge applies u onto o and re-normalizes.
func Merge(o Options, u Update) Options {
	if u.TTL != nil {
		o.TTL = *u.TTL
	}
	if u.MaxSize != nil {
		o.MaxSize = *u.MaxSize
	}
	if u.Prefix != nil {
		o.Prefix = *u.Prefix
	}
	if u.Disabled != nil {
		o.Disabled = *u.Disabled
	}
	return Normalize(o)
}
