// Package asynchook moves hook delivery off the store's hot path.
//
// Events go to a bounded queue drained by a fixed set of workers. When the
// queue is full the event is dropped, never blocking the caller.
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    CacheEvery:  100, // sample hit/miss logs
//	    ExpireEvery: 10,
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	store, _ := omnikv.Open(ctx, omnikv.Config{
//	    Backend: omnikv.BackendSQLite,
//	    DSN:     "file:kv.db",
//	    Hooks:   hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/omnikv"
)

type Hooks struct {
	inner   omnikv.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

var _ omnikv.Hooks = (*Hooks)(nil)

func New(inner omnikv.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}
	if inner == nil {
		inner = omnikv.NopHooks{}
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

// Close drains queued events and stops the workers. Events sent after Close
// are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped counts events lost to a full queue or a closed hook.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) CacheHit(k string)  { h.try(func() { h.inner.CacheHit(k) }) }
func (h *Hooks) CacheMiss(k string) { h.try(func() { h.inner.CacheMiss(k) }) }
func (h *Hooks) Expired(k string)   { h.try(func() { h.inner.Expired(k) }) }
func (h *Hooks) CachePopulateSkipped(k, r string) {
	h.try(func() { h.inner.CachePopulateSkipped(k, r) })
}
func (h *Hooks) LazyDeleteFailed(k string, err error) {
	h.try(func() { h.inner.LazyDeleteFailed(k, err) })
}
func (h *Hooks) MergeSkipped(k, r string) { h.try(func() { h.inner.MergeSkipped(k, r) }) }
func (h *Hooks) GenError(op string, n int, err error) {
	h.try(func() { h.inner.GenError(op, n, err) })
}
