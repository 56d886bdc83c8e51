// Package sloghooks logs store events with log/slog. Keys are redacted and
// high-volume events can be sampled.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/omnikv"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	CacheEvery  uint64 // hits and misses
	ExpireEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	cacheCtr  atomic.Uint64
	expireCtr atomic.Uint64
}

var _ omnikv.Hooks = (*Hooks)(nil)

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

func (h *Hooks) CacheHit(key string) {
	if h.l == nil || !sample(h.opts.CacheEvery, &h.cacheCtr) {
		return
	}
	h.l.Debug("omnikv.cache_hit", "key", h.redact(key))
}

func (h *Hooks) CacheMiss(key string) {
	if h.l == nil || !sample(h.opts.CacheEvery, &h.cacheCtr) {
		return
	}
	h.l.Debug("omnikv.cache_miss", "key", h.redact(key))
}

func (h *Hooks) CachePopulateSkipped(key, reason string) {
	if h.l == nil {
		return
	}
	h.l.Debug("omnikv.cache_populate_skipped",
		"key", h.redact(key),
		"reason", reason)
}

func (h *Hooks) Expired(key string) {
	if h.l == nil || !sample(h.opts.ExpireEvery, &h.expireCtr) {
		return
	}
	h.l.Debug("omnikv.expired", "key", h.redact(key))
}

func (h *Hooks) LazyDeleteFailed(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("omnikv.lazy_delete_failed",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) MergeSkipped(key, reason string) {
	if h.l == nil {
		return
	}
	h.l.Info("omnikv.merge_skipped",
		"key", h.redact(key),
		"reason", reason)
}

func (h *Hooks) GenError(op string, count int, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("omnikv.gen_error",
		"op", op,
		"count", count,
		"err", err)
}
