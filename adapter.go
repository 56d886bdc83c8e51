package omnikv

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/omnikv/codec"
	gen "github.com/unkn0wn-root/omnikv/genstore"
	"github.com/unkn0wn-root/omnikv/memo"
)

const (
	stateUnconfigured int32 = iota
	stateReady
	stateClosed
)

type store struct {
	state    atomic.Int32
	be       backend
	name     Backend
	table    string
	reg      *codec.Registry
	memo     *memoLayer
	cacheAll bool
	log      Logger
	hooks    Hooks
	now      func() time.Time
}

var _ Store = (*store)(nil)

func newStore(opts Options) (*store, error) {
	s := &store{
		reg:      coalesce[*codec.Registry](opts.Registry, codec.Default),
		log:      coalesce[Logger](opts.Logger, NopLogger{}),
		hooks:    coalesce[Hooks](opts.Hooks, NopHooks{}),
		cacheAll: opts.Cache,
		now:      opts.Clock,
	}
	if s.now == nil {
		s.now = time.Now
	}

	if opts.Provider == nil {
		s.be = newMemoryBackend(s.reg)
		s.name = coalesce(opts.Backend, BackendMemory)
		s.state.Store(stateReady)
	} else {
		s.be = newRowBackend(opts.Provider, s.reg, opts.Encoding)
		s.name = coalesce(opts.Backend, BackendCustom)
		s.table = opts.Provider.Table()
	}

	m := &memoLayer{
		cache: opts.Memo,
		gens:  opts.GenStore,
		ns:    coalesce(opts.MemoNamespace, coalesce(s.table, string(s.name))),
		ttl:   coalesce[time.Duration](opts.CacheTTL, defaultCacheTTL),
		reg:   s.reg,
		hooks: s.hooks,
		log:   s.log,
	}
	if m.ttl < 0 {
		return nil, &ValidationError{Index: -1, Reason: "cache TTL must not be negative"}
	}
	if m.cache == nil {
		m.cache = memo.NewLocalWithClock(s.now)
	}
	if m.gens == nil {
		m.local = gen.NewLocal(gen.LocalOptions{Retention: genRetention, SweepEvery: genSweep, Clock: s.now})
		m.gens, m.ownGens = m.local, true
	}
	s.memo = m
	return s, nil
}

func (s *store) ready() error {
	switch s.state.Load() {
	case stateReady:
		return nil
	case stateClosed:
		return ErrClosed
	}
	return ErrNotConfigured
}

func (s *store) Configure(ctx context.Context) error {
	switch s.state.Load() {
	case stateClosed:
		return ErrClosed
	case stateReady:
		return nil
	}
	if err := s.be.configure(ctx); err != nil {
		s.log.Error("configure failed", Fields{"backend": s.name, "table": s.table, "err": err})
		return &ConfigError{Backend: s.name, Table: s.table, Err: err}
	}
	s.state.CompareAndSwap(stateUnconfigured, stateReady)
	s.log.Info("store configured", Fields{"backend": s.name, "table": s.table})
	return nil
}

// Close releases the memo cache, owned generations and the backend.
// Safe to call multiple times; repeated calls are no-ops.
func (s *store) Close(ctx context.Context) error {
	if s.state.Swap(stateClosed) == stateClosed {
		return nil
	}
	return errors.Join(s.memo.close(ctx), s.be.close(ctx))
}

// Single

func (s *store) Get(ctx context.Context, key string, opts ...GetOption) (any, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	hits, err := s.lookup(ctx, []string{key}, apply[getConfig](opts))
	if err != nil {
		return nil, err
	}
	return hits[0].value, nil
}

func (s *store) Set(ctx context.Context, key string, value any, opts ...SetOption) error {
	if err := validateKey(key); err != nil {
		return err
	}
	return s.write(ctx, []string{key}, value, apply[setConfig](opts))
}

func (s *store) Has(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	hits, err := s.lookup(ctx, []string{key}, getConfig{})
	if err != nil {
		return false, err
	}
	return hits[0].found, nil
}

func (s *store) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	return s.remove(ctx, []string{key})
}

// Many

func (s *store) GetMany(ctx context.Context, keys []string, opts ...GetOption) ([]Entry, error) {
	if err := validateKeys(keys, true); err != nil {
		return nil, err
	}
	hits, err := s.lookup(ctx, keys, apply[getConfig](opts))
	if err != nil {
		return nil, err
	}
	out := make([]Entry, len(keys))
	for i, k := range keys {
		out[i] = Entry{Key: k, Value: hits[i].value}
	}
	return out, nil
}

func (s *store) SetMany(ctx context.Context, keys []string, value any, opts ...SetOption) error {
	if err := validateKeys(keys, false); err != nil {
		return err
	}
	return s.write(ctx, keys, value, apply[setConfig](opts))
}

func (s *store) HasMany(ctx context.Context, keys []string) ([]Presence, error) {
	if err := validateKeys(keys, true); err != nil {
		return nil, err
	}
	hits, err := s.lookup(ctx, keys, getConfig{})
	if err != nil {
		return nil, err
	}
	out := make([]Presence, len(keys))
	for i, k := range keys {
		out[i] = Presence{Key: k, Has: hits[i].found}
	}
	return out, nil
}

func (s *store) DeleteMany(ctx context.Context, keys []string) error {
	if err := validateKeys(keys, false); err != nil {
		return err
	}
	return s.remove(ctx, keys)
}

// Whole store

func (s *store) Clear(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.be.removeAll(ctx); err != nil {
		return err
	}
	return s.memo.clear(ctx)
}

func (s *store) Keys(ctx context.Context, opts ...ListOption) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	keys, err := s.be.keys(ctx)
	if err != nil {
		return nil, err
	}
	return limitKeys(keys, apply[listConfig](opts))
}

func (s *store) Entries(ctx context.Context, opts ...ListOption) ([]Entry, error) {
	keys, err := s.Keys(ctx, opts...)
	if err != nil || len(keys) == 0 {
		return nil, err
	}
	hits, err := s.lookup(ctx, keys, getConfig{})
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(keys))
	for i, k := range keys {
		if hits[i].found {
			out = append(out, Entry{Key: k, Value: hits[i].value})
		}
	}
	return out, nil
}

func (s *store) Values(ctx context.Context, opts ...ListOption) ([]any, error) {
	entries, err := s.Entries(ctx, opts...)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(entries))
	for i, e := range entries {
		out[i] = e.Value
	}
	return out, nil
}

// Shared paths

type hit struct {
	value any
	found bool
}

// lookup answers keys in request order: memo first (when enabled), then one
// backend read for the rest. Expired entries are deleted best-effort and
// answered with the default.
func (s *store) lookup(ctx context.Context, keys []string, cfg getConfig) ([]hit, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	uniq := dedupe(keys)
	vals := make(map[string]any, len(uniq))
	useMemo := cfg.cache || s.cacheAll

	pending := uniq
	var snap memoSnap
	if useMemo {
		snap = s.memo.snapshot(ctx, uniq)
		memoized := s.memo.lookup(ctx, uniq, snap)
		pending = make([]string, 0, len(uniq)-len(memoized))
		for _, k := range uniq {
			if v, ok := memoized[k]; ok {
				vals[k] = v
			} else {
				pending = append(pending, k)
			}
		}
	}

	if len(pending) > 0 {
		envs, err := s.fetch(ctx, pending, useMemo, snap)
		if err != nil {
			return nil, err
		}
		now := s.now()
		live := make(map[string]any, len(envs))
		var expired map[string]*codec.Envelope
		for _, k := range pending {
			env, ok := envs[k]
			if !ok {
				continue
			}
			if env.Expired(now) {
				s.hooks.Expired(k)
				if expired == nil {
					expired = make(map[string]*codec.Envelope)
				}
				expired[k] = env
				continue
			}
			vals[k] = env.Ctx
			live[k] = env.Ctx
		}
		if len(expired) > 0 {
			s.lazyDelete(ctx, expired)
		}
		if useMemo && len(live) > 0 {
			s.memo.populate(ctx, live, snap, coalesce(cfg.cacheTTL, s.memo.ttl))
		}
	}

	out := make([]hit, len(keys))
	for i, k := range keys {
		if v, ok := vals[k]; ok {
			out[i] = hit{value: v, found: true}
		} else {
			out[i] = hit{value: cfg.def}
		}
	}
	return out, nil
}

// fetch reads keys from the backend. Cache-enabled cold reads of the same keys
// under the same generations are coalesced; every caller of a shared result
// gets its own copy. A reader that snapshotted after a write never joins a
// read that started before it.
func (s *store) fetch(ctx context.Context, keys []string, coalesced bool, snap memoSnap) (map[string]*codec.Envelope, error) {
	if !coalesced || !snap.ok {
		return s.be.read(ctx, keys)
	}
	v, err, shared := s.memo.sf.Do(s.memo.flightKey(keys, snap), func() (any, error) {
		return s.be.read(ctx, keys)
	})
	if err != nil {
		return nil, err
	}
	envs := v.(map[string]*codec.Envelope)
	if !shared {
		return envs, nil
	}
	out := make(map[string]*codec.Envelope, len(envs))
	for k, env := range envs {
		ctxv, err := s.reg.Clone(env.Ctx)
		if err != nil {
			return nil, err
		}
		cp := *env
		cp.Ctx = ctxv
		out[k] = &cp
	}
	return out, nil
}

// lazyDelete removes expired entries that still hold the envelope the reader
// saw. A row rewritten since the read is left alone; a write landing between
// the re-read and the delete can still be lost.
func (s *store) lazyDelete(ctx context.Context, seen map[string]*codec.Envelope) {
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	fail := func(err error) {
		for _, k := range keys {
			s.hooks.LazyDeleteFailed(k, err)
		}
		s.log.Warn("lazy delete of expired entries failed", Fields{"keys": len(keys), "err": err})
	}
	current, err := s.be.read(ctx, keys)
	if err != nil {
		fail(err)
		return
	}
	keys = keys[:0]
	for k, old := range seen {
		if cur, ok := current[k]; ok && sameWrite(cur, old) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return
	}
	if err := s.be.remove(ctx, keys); err != nil {
		fail(err)
		return
	}
	s.memo.invalidate(ctx, keys)
	s.log.Debug("expired entries deleted on read", Fields{"keys": len(keys)})
}

func sameWrite(a, b *codec.Envelope) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return false
	}
	if a.Lifetime == nil || b.Lifetime == nil {
		return a.Lifetime == b.Lifetime
	}
	return a.Lifetime.Equal(*b.Lifetime)
}

// write persists value under keys in one batch, merging per key when asked.
func (s *store) write(ctx context.Context, keys []string, value any, cfg setConfig) error {
	if cfg.hasLifetime && cfg.lifetime <= 0 {
		return &ValidationError{Index: -1, Reason: fmt.Sprintf("lifetime must be positive, got %s", cfg.lifetime)}
	}
	if err := s.ready(); err != nil {
		return err
	}
	uniq := dedupe(keys)
	now := s.now()
	enc := s.be.encoding()
	recs := make([]record, 0, len(uniq))

	if cfg.merge && kindOf(value) == KindRecord {
		// cache-bypassing read; not isolated from concurrent writers
		current, err := s.be.read(ctx, uniq)
		if err != nil {
			return err
		}
		for _, k := range uniq {
			var cur any
			if env, ok := current[k]; ok && !env.Expired(now) {
				cur = env.Ctx
			}
			v, merged, err := mergeValues(s.reg, cur, value)
			if err != nil {
				return fmt.Errorf("omnikv: merge %q: %w", k, err)
			}
			if !merged {
				s.hooks.MergeSkipped(k, "current_not_record")
			}
			recs = append(recs, record{key: k, env: codec.NewEnvelope(v, now, cfg.lifetime, enc)})
		}
	} else {
		if cfg.merge {
			for _, k := range uniq {
				s.hooks.MergeSkipped(k, "next_not_record")
			}
		}
		env := codec.NewEnvelope(value, now, cfg.lifetime, enc)
		for _, k := range uniq {
			recs = append(recs, record{key: k, env: env})
		}
	}

	if err := s.be.write(ctx, recs); err != nil {
		return err
	}
	s.memo.invalidate(ctx, uniq)
	return nil
}

func (s *store) remove(ctx context.Context, keys []string) error {
	if err := s.ready(); err != nil {
		return err
	}
	uniq := dedupe(keys)
	if err := s.be.remove(ctx, uniq); err != nil {
		return err
	}
	s.memo.invalidate(ctx, uniq)
	return nil
}
