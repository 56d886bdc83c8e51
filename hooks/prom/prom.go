// Package promhooks counts store events with Prometheus.
//
// Keys are never used as labels; only reasons and operations are.
//
//	h := promhooks.New(prometheus.DefaultRegisterer, "myapp")
//	store, _ := omnikv.Open(ctx, omnikv.Config{Backend: omnikv.BackendMemory, Hooks: h})
package promhooks

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/omnikv"
)

type Hooks struct {
	hits          prometheus.Counter
	misses        prometheus.Counter
	populateSkips *prometheus.CounterVec
	expired       prometheus.Counter
	lazyDelFails  prometheus.Counter
	mergeSkips    *prometheus.CounterVec
	genErrors     *prometheus.CounterVec
}

var _ omnikv.Hooks = (*Hooks)(nil)

// New creates the counters under namespace and registers them with reg.
// A nil reg leaves them unregistered.
func New(reg prometheus.Registerer, namespace string) *Hooks {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "omnikv", Name: name, Help: help,
		})
	}
	vec := func(name, help, label string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "omnikv", Name: name, Help: help,
		}, []string{label})
	}

	h := &Hooks{
		hits:          counter("cache_hits_total", "Reads answered from the memo cache."),
		misses:        counter("cache_misses_total", "Cache-enabled reads that went to the backend."),
		populateSkips: vec("cache_populate_skipped_total", "Backend reads that were not memoized.", "reason"),
		expired:       counter("expired_total", "Reads that found an expired entry."),
		lazyDelFails:  counter("lazy_delete_failures_total", "Failed deletes of expired entries."),
		mergeSkips:    vec("merge_skipped_total", "Merge writes that replaced instead of merging.", "reason"),
		genErrors:     vec("gen_errors_total", "Generation store errors.", "op"),
	}
	if reg != nil {
		reg.MustRegister(h.collectors()...)
	}
	return h
}

func (h *Hooks) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		h.hits, h.misses, h.populateSkips, h.expired,
		h.lazyDelFails, h.mergeSkips, h.genErrors,
	}
}

func (h *Hooks) CacheHit(string)                       { h.hits.Inc() }
func (h *Hooks) CacheMiss(string)                      { h.misses.Inc() }
func (h *Hooks) CachePopulateSkipped(_, reason string) { h.populateSkips.WithLabelValues(reason).Inc() }
func (h *Hooks) Expired(string)                        { h.expired.Inc() }
func (h *Hooks) LazyDeleteFailed(string, error)        { h.lazyDelFails.Inc() }
func (h *Hooks) MergeSkipped(_, reason string)         { h.mergeSkips.WithLabelValues(reason).Inc() }
func (h *Hooks) GenError(op string, _ int, _ error)    { h.genErrors.WithLabelValues(op).Inc() }
