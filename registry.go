package scopecache

import (
	"context"
	"fmt"
	"sync"
)

// Registry holds at most one live backend per kind and designates one as
// default. It is an explicit instance handed to consumers - there is no
// package-level singleton.
type Registry[V any] struct {
	log Logger

	mu       sync.RWMutex
	backends map[Kind]Engine[V]
	def      Kind
}

// NewRegistry returns an empty registry. A nil logger coalesces to
// NopLogger.
func NewRegistry[V any](log Logger) *Registry[V] {
	if log == nil {
		log = NopLogger{}
	}
	return &Registry[V]{
		log:      log,
		backends: make(map[Kind]Engine[V]),
	}
}

// Register adds e under its kind. The first registered backend becomes
// the default until SetDefault says otherwise. Registering a kind twice
// is a configuration mistake and fails with ErrDuplicateBackend.
func (r *Registry[V]) Register(e Engine[V]) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kind := e.Kind()
	if _, ok := r.backends[kind]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateBackend, kind)
	}
	r.backends[kind] = e
	if r.def == "" {
		r.def = kind
	}
	return nil
}

// SetDefault marks kind as the fallback for Resolve.
func (r *Registry[V]) SetDefault(kind Kind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.backends[kind]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownBackend, kind)
	}
	r.def = kind
	return nil
}

// Backend returns the registered engine for kind.
func (r *Registry[V]) Backend(kind Kind) (Engine[V], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.backends[kind]
	return e, ok
}

// Default returns the default engine, if any.
func (r *Registry[V]) Default() (Engine[V], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.backends[r.def]
	return e, ok
}

// Resolve returns a scoped handle over the backend named by kind, or
// over the default when kind is empty or unregistered. With no backend
// to fall back on it fails with ErrNoBackend. The update customizes the
// scope (namespace prefix, TTL, enabled) without touching the backend.
func (r *Registry[V]) Resolve(kind Kind, u *Update) (*Scoped[V], error) {
	r.mu.RLock()
	e, ok := r.backends[kind]
	if !ok {
		e, ok = r.backends[r.def]
	}
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNoBackend
	}

	opts := Options{}
	if u != nil {
		opts = Merge(opts, *u)
	}
	return NewScoped(e, opts, r.log), nil
}

// ClearAll clears every registered backend concurrently. Best-effort:
// one backend's failure never blocks or aborts the others (backends
// absorb and log their own I/O errors).
func (r *Registry[V]) ClearAll(ctx context.Context) {
	r.fanOut(ctx, func(ctx context.Context, e Engine[V]) { e.Clear(ctx) })
}

// ClearAllByPrefix clears each backend's own prefix namespace without
// resetting counters.
func (r *Registry[V]) ClearAllByPrefix(ctx context.Context) {
	r.fanOut(ctx, func(ctx context.Context, e Engine[V]) { e.ClearByPrefix(ctx) })
}

func (r *Registry[V]) fanOut(ctx context.Context, op func(context.Context, Engine[V])) {
	r.mu.RLock()
	engines := make([]Engine[V], 0, len(r.backends))
	for _, e := range r.backends {
		engines = append(engines, e)
	}
	r.mu.RUnlock()

	var wg sync.WaitGroup
	for _, e := range engines {
		wg.Add(1)
		go func(e Engine[V]) {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					r.log.Error("backend operation panicked", Fields{"backend": e.Kind(), "panic": p})
				}
			}()
			op(ctx, e)
		}(e)
	}
	wg.Wait()
}

// Stats gathers per-backend stats concurrently into one report keyed by
// kind. A backend whose collection fails is represented by an error
// marker instead of blocking the aggregate.
func (r *Registry[V]) Stats(ctx context.Context) map[Kind]Stats {
	r.mu.RLock()
	engines := make(map[Kind]Engine[V], len(r.backends))
	for k, e := range r.backends {
		engines[k] = e
	}
	r.mu.RUnlock()

	out := make(map[Kind]Stats, len(engines))
	var outMu sync.Mutex
	var wg sync.WaitGroup
	for kind, e := range engines {
		wg.Add(1)
		go func(kind Kind, e Engine[V]) {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					outMu.Lock()
					out[kind] = Stats{Backend: kind, Error: fmt.Sprintf("stats failed: %v", p)}
					outMu.Unlock()
				}
			}()
			s := e.Stats(ctx)
			outMu.Lock()
			out[kind] = s
			outMu.Unlock()
		}(kind, e)
	}
	wg.Wait()
	return out
}

// Close closes every registered backend concurrently, collecting
// failures into a single AggregateError while still attempting the rest.
func (r *Registry[V]) Close(ctx context.Context) error {
	r.mu.RLock()
	engines := make([]Engine[V], 0, len(r.backends))
	for _, e := range r.backends {
		engines = append(engines, e)
	}
	r.mu.RUnlock()

	var errsMu sync.Mutex
	var errs []error
	var wg sync.WaitGroup
	for _, e := range engines {
		wg.Add(1)
		go func(e Engine[V]) {
			defer wg.Done()
			if err := e.Close(ctx); err != nil {
				errsMu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", e.Kind(), err))
				errsMu.Unlock()
			}
		}(e)
	}
	wg.Wait()

	if len(errs) > 0 {
		return &AggregateError{Op: "close", Errs: errs}
	}
	return nil
}
