// Package sloghooks implements Hooks on top of log/slog, with sampling
// for the events that can fire at high volume.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/scopecache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SelfHealEvery uint64
	EvictEvery    uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	selfHealCtr atomic.Uint64
	evictCtr    atomic.Uint64
}

var _ scopecache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) OptionsChanged(old, updated scopecache.Options) {
	if h.l == nil {
		return
	}
	h.l.Info("scopecache.options_changed",
		"old_ttl", old.TTL,
		"new_ttl", updated.TTL,
		"old_max_size", old.MaxSize,
		"new_max_size", updated.MaxSize,
		"disabled", updated.Disabled)
}

func (h *Hooks) Evicted(count int) {
	if h.l == nil || !sample(h.opts.EvictEvery, &h.evictCtr) {
		return
	}
	h.l.Debug("scopecache.evicted", "count", count)
}

func (h *Hooks) SelfHealed(storageKey string, err error) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Warn("scopecache.self_healed",
		"key", h.redact(storageKey),
		"err", err)
}
