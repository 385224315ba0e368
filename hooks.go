package scopecache

// Hooks are lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
type Hooks interface {
	// OptionsChanged fires after SetOptions re-normalized the options.
	// The in-process backend reacts by shrinking when MaxSize drops
	// below current occupancy.
	OptionsChanged(old, updated Options)

	// Evicted reports entries removed by capacity pressure, either from
	// normal LRU eviction or from a MaxSize shrink sweep.
	Evicted(count int)

	// SelfHealed fires when a stored payload failed to decode and the
	// entry was dropped so the next read repopulates it.
	SelfHealed(storageKey string, err error)
}

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) OptionsChanged(Options, Options) {}
func (NopHooks) Evicted(int)                     {}
func (NopHooks) SelfHealed(string, error)        {}
