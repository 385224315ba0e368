// Package asynchook decouples hook delivery from the cache hot path.
// Events are handed to a bounded queue and replayed by workers; when
// the queue is full the event is dropped rather than blocking a cache
// operation.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    SelfHealEvery: 10, // sample logs: ~every 10th self-heal
//	    EvictEvery:    1,  // log every eviction
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	mem, _ := memory.New[User](memory.Config{Hooks: hooks})
package asynchook

import (
	"sync"

	"github.com/unkn0wn-root/scopecache"
)

type Hooks struct {
	inner scopecache.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ scopecache.Hooks = (*Hooks)(nil)

func New(inner scopecache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) OptionsChanged(old, updated scopecache.Options) {
	h.try(func() { h.inner.OptionsChanged(old, updated) })
}
func (h *Hooks) Evicted(n int) { h.try(func() { h.inner.Evicted(n) }) }
func (h *Hooks) SelfHealed(k string, err error) {
	h.try(func() { h.inner.SelfHealed(k, err) })
}
