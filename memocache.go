package omnikv

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/unkn0wn-root/omnikv/codec"
	gen "github.com/unkn0wn-root/omnikv/genstore"
	"github.com/unkn0wn-root/omnikv/internal/util"
	"github.com/unkn0wn-root/omnikv/memo"
)

const defaultCacheTTL = 30 * time.Second

// Owned generations idle this long are pruned.
const (
	genRetention = 10 * time.Minute
	genSweep     = time.Minute
)

// memoLayer is the read-through cache of one store.
//
// CAS pattern (per key):
//
//	snap := m.snapshot(ctx, keys)   // before the backend read
//	vals := backend.read(keys)
//	m.populate(ctx, vals, snap, ttl) // memoize iff gens and epoch are unchanged
//
// Writers persist first, then invalidate (bump gen + evict). A memo item carries
// the generation it was populated under and is rejected on lookup once the
// generation moved on. Clear advances the epoch, which is part of every memo key.
type memoLayer struct {
	cache   memo.Cache
	gens    gen.GenStore
	ownGens bool
	local   *gen.Local // set when gens is owned
	ns      string
	ttl     time.Duration
	reg     *codec.Registry
	sf      singleflight.Group
	epoch   atomic.Uint64
	hooks   Hooks
	log     Logger
}

type memoSnap struct {
	gens  map[string]uint64 // by gen key
	epoch uint64
	ok    bool
}

func (m *memoLayer) genKey(k string) string { return util.MemoKey(m.ns, k) }

func (m *memoLayer) memoKey(k string, epoch uint64) string {
	return util.MemoKey(m.ns, strconv.FormatUint(epoch, 10)+":"+k)
}

// flightKey identifies a backend read by its keys, their generations and the
// epoch, all as observed in snap.
func (m *memoLayer) flightKey(keys []string, snap memoSnap) string {
	members := make([]string, len(keys))
	for i, k := range keys {
		members[i] = k + "@" + strconv.FormatUint(snap.gens[m.genKey(k)], 10)
	}
	return util.BatchKey("read:"+m.ns+":"+strconv.FormatUint(snap.epoch, 10), members)
}

func (m *memoLayer) genKeys(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = m.genKey(k)
	}
	return out
}

func (m *memoLayer) snapshot(ctx context.Context, keys []string) memoSnap {
	snap := memoSnap{epoch: m.epoch.Load()}
	gens, err := m.gens.SnapshotMany(ctx, m.genKeys(keys))
	if err != nil {
		// conservative: no hits, no populate
		m.hooks.GenError("snapshot", len(keys), err)
		m.log.Warn("gen snapshot error", Fields{"keys": len(keys), "err": err})
		return snap
	}
	snap.gens, snap.ok = gens, true
	return snap
}

// lookup returns the memoized values of keys that are still current under snap.
func (m *memoLayer) lookup(ctx context.Context, keys []string, snap memoSnap) map[string]any {
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if !snap.ok {
			m.hooks.CacheMiss(k)
			continue
		}
		mk := m.memoKey(k, snap.epoch)
		it, ok, err := m.cache.Get(ctx, mk)
		if err != nil {
			m.log.Debug("memo get failed", Fields{"key": k, "err": err})
		}
		if !ok || err != nil {
			m.hooks.CacheMiss(k)
			continue
		}
		if it.Gen != snap.gens[m.genKey(k)] {
			_ = m.cache.Delete(ctx, mk)
			m.hooks.CacheMiss(k)
			continue
		}
		v, err := m.reg.Clone(it.Value)
		if err != nil {
			_ = m.cache.Delete(ctx, mk)
			m.hooks.CacheMiss(k)
			continue
		}
		m.hooks.CacheHit(k)
		out[k] = v
	}
	return out
}

// populate memoizes vals read under snap if nothing changed since.
func (m *memoLayer) populate(ctx context.Context, vals map[string]any, snap memoSnap, ttl time.Duration) {
	skipAll := func(reason string) {
		for k := range vals {
			m.hooks.CachePopulateSkipped(k, reason)
		}
	}
	if !snap.ok {
		skipAll("snapshot_error")
		return
	}
	if m.epoch.Load() != snap.epoch {
		skipAll("cleared")
		return
	}
	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	now, err := m.gens.SnapshotMany(ctx, m.genKeys(keys))
	if err != nil {
		m.hooks.GenError("snapshot", len(keys), err)
		skipAll("snapshot_error")
		return
	}
	for _, k := range keys {
		gk := m.genKey(k)
		if now[gk] != snap.gens[gk] {
			// generation moved; skip stale populate
			m.log.Debug("memo populate skipped (gen mismatch)", Fields{"key": k, "obs": snap.gens[gk]})
			m.hooks.CachePopulateSkipped(k, "gen_mismatch")
			continue
		}
		v, err := m.reg.Clone(vals[k])
		if err == nil {
			err = m.cache.Set(ctx, m.memoKey(k, snap.epoch), memo.Item{Value: v, Gen: now[gk]}, ttl)
		}
		if err != nil {
			m.log.Debug("memo populate failed", Fields{"key": k, "err": err})
			m.hooks.CachePopulateSkipped(k, "memo_error")
		}
	}
}

// invalidate bumps generations, then evicts the current epoch's items.
func (m *memoLayer) invalidate(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	if err := m.gens.BumpMany(ctx, m.genKeys(keys)); err != nil {
		m.hooks.GenError("bump", len(keys), err)
		m.log.Error("gen bump error", Fields{"keys": len(keys), "err": err})
	}
	epoch := m.epoch.Load()
	for _, k := range keys {
		if err := m.cache.Delete(ctx, m.memoKey(k, epoch)); err != nil {
			m.log.Warn("memo evict failed", Fields{"key": k, "err": err})
		}
	}
}

// clear drops owned generations before advancing the epoch, so a reader that
// observes the new epoch also observes the reset.
func (m *memoLayer) clear(ctx context.Context) error {
	if m.local != nil {
		m.local.Reset()
	}
	m.epoch.Add(1)
	return m.cache.Clear(ctx)
}

func (m *memoLayer) close(ctx context.Context) error {
	err := m.cache.Close(ctx)
	if m.ownGens {
		if gerr := m.gens.Close(ctx); err == nil {
			err = gerr
		}
	}
	return err
}
