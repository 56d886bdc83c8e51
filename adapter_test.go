package omnikv

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/unkn0wn-root/omnikv/codec"
	"github.com/unkn0wn-root/omnikv/provider/providertest"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recHooks struct {
	NopHooks
	mu      sync.Mutex
	events  map[string]int
	reasons []string
}

func newRecHooks() *recHooks { return &recHooks{events: make(map[string]int)} }

func (h *recHooks) add(ev, reason string) {
	h.mu.Lock()
	h.events[ev]++
	if reason != "" {
		h.reasons = append(h.reasons, ev+":"+reason)
	}
	h.mu.Unlock()
}

func (h *recHooks) count(ev string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.events[ev]
}

func (h *recHooks) CacheHit(string)                    { h.add("hit", "") }
func (h *recHooks) CacheMiss(string)                   { h.add("miss", "") }
func (h *recHooks) CachePopulateSkipped(_, r string)   { h.add("skip", r) }
func (h *recHooks) Expired(string)                     { h.add("expired", "") }
func (h *recHooks) LazyDeleteFailed(string, error)     { h.add("lazy_delete_failed", "") }
func (h *recHooks) MergeSkipped(_, r string)           { h.add("merge_skipped", r) }
func (h *recHooks) GenError(op string, _ int, _ error) { h.add("gen_error", op) }

func newRowStore(t *testing.T, p *providertest.MapProvider, optsOpt func(*Options)) *store {
	t.Helper()
	opts := Options{Provider: p}
	if optsOpt != nil {
		optsOpt(&opts)
	}
	s, err := newStore(opts)
	if err != nil {
		t.Fatalf("newStore: %v", err)
	}
	if err := s.Configure(context.Background()); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

// ==============================
// Lifecycle
// ==============================

func TestPersistentStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	p := providertest.NewMapProvider("")
	s, err := New(Options{Provider: p, Backend: BackendSQLite})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Get before Configure: want ErrNotConfigured, got %v", err)
	}
	if err := s.Set(ctx, "k", 1.0); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Set before Configure: want ErrNotConfigured, got %v", err)
	}

	if err := s.Configure(ctx); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := s.Configure(ctx); err != nil {
		t.Fatalf("second Configure: %v", err)
	}
	if n := p.Calls(providertest.OpConfigure); n != 1 {
		t.Fatalf("provider configured %d times, want 1", n)
	}

	if err := s.Set(ctx, "k", 1.0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Get after Close: want ErrClosed, got %v", err)
	}
	if err := s.Configure(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("Configure after Close: want ErrClosed, got %v", err)
	}
}

func TestMemoryStoreReadyWithoutConfigure(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	defer s.Close(ctx)

	if err := s.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set on fresh memory store: %v", err)
	}
	if got, err := s.Get(ctx, "k"); err != nil || got != "v" {
		t.Fatalf("Get: got=%v err=%v", got, err)
	}
}

func TestConfigureErrorIsWrapped(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("permission denied")
	p := providertest.NewMapProvider("kv_users")
	p.Fail(providertest.OpConfigure, boom)

	s, err := New(Options{Provider: p, Backend: BackendPostgres})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = s.Configure(ctx)
	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("want *ConfigError, got %T %v", err, err)
	}
	if cerr.Backend != BackendPostgres || cerr.Table != "kv_users" || !errors.Is(err, boom) {
		t.Fatalf("unexpected ConfigError: %+v", cerr)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("failed Configure must leave store unconfigured, got %v", err)
	}

	p.Fail(providertest.OpConfigure, nil)
	if err := s.Configure(ctx); err != nil {
		t.Fatalf("retry Configure: %v", err)
	}
}

// ==============================
// Stored form
// ==============================

func TestRowBackendStoresArmoredEnvelope(t *testing.T) {
	ctx := context.Background()
	p := providertest.NewMapProvider("")
	clk := newFakeClock()
	s := newRowStore(t, p, func(o *Options) { o.Clock = clk.Now })

	if err := s.Set(ctx, "user:1", map[string]any{"name": "ada"}, WithLifetime(time.Hour)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	raw, ok := p.Raw("user:1")
	if !ok {
		t.Fatalf("row not written")
	}

	var stored struct {
		Ctx struct {
			Save string `json:"save"`
		} `json:"ctx"`
		CreatedAt time.Time      `json:"createdAt"`
		Lifetime  *time.Time     `json:"lifetime"`
		Encoder   codec.Encoding `json:"encoder"`
	}
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		t.Fatalf("stored text is not an envelope: %v\n%s", err, raw)
	}
	if stored.Encoder != codec.Armored() {
		t.Fatalf("encoder = %+v, want %+v", stored.Encoder, codec.Armored())
	}
	if !stored.CreatedAt.Equal(clk.Now()) || stored.Lifetime == nil || !stored.Lifetime.Equal(clk.Now().Add(time.Hour)) {
		t.Fatalf("timestamps: created=%v lifetime=%v", stored.CreatedAt, stored.Lifetime)
	}
	inner, err := base64.StdEncoding.DecodeString(stored.Ctx.Save)
	if err != nil {
		t.Fatalf("save is not base64: %v", err)
	}
	if string(inner) != `{"name":"ada"}` {
		t.Fatalf("armored ctx = %s", inner)
	}
}

func TestRowBackendForcesArmorButKeepsEncodings(t *testing.T) {
	ctx := context.Background()
	p := providertest.NewMapProvider("")
	s := newRowStore(t, p, func(o *Options) {
		o.Encoding = codec.Encoding{Use: false, Store: "hex", Parse: "latin1"}
	})

	if err := s.Set(ctx, "k", "café"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	raw, _ := p.Raw("k")
	if !strings.Contains(raw, `"use":true`) || !strings.Contains(raw, `"store":"hex"`) || !strings.Contains(raw, `"parse":"latin1"`) {
		t.Fatalf("encoder not forced/kept: %s", raw)
	}
	if got, err := s.Get(ctx, "k"); err != nil || got != "café" {
		t.Fatalf("Get: got=%v err=%v", got, err)
	}
}

func TestCorruptRowFailsWholeRead(t *testing.T) {
	ctx := context.Background()
	p := providertest.NewMapProvider("")
	s := newRowStore(t, p, nil)

	if err := s.Set(ctx, "good", 1.0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	p.Put("bad", `{"ctx":{"save":"!!!"},"encoder":{"use":true,"store":"base64","parse":"utf-8"}}`)

	if _, err := s.GetMany(ctx, []string{"good", "bad"}); !errors.Is(err, codec.ErrCorrupt) {
		t.Fatalf("want ErrCorrupt, got %v", err)
	}
	if got, err := s.Get(ctx, "good"); err != nil || got != 1.0 {
		t.Fatalf("unaffected key: got=%v err=%v", got, err)
	}
}

func TestNullRowReadsAsAbsent(t *testing.T) {
	ctx := context.Background()
	p := providertest.NewMapProvider("")
	s := newRowStore(t, p, nil)

	p.Put("null", "null")
	if ok, err := s.Has(ctx, "null"); err != nil || ok {
		t.Fatalf("Has(null row): ok=%v err=%v", ok, err)
	}
}

// ==============================
// Expiry
// ==============================

func TestLazyExpiryDeletesOnRead(t *testing.T) {
	ctx := context.Background()
	p := providertest.NewMapProvider("")
	clk := newFakeClock()
	hooks := newRecHooks()
	s := newRowStore(t, p, func(o *Options) { o.Clock = clk.Now; o.Hooks = hooks })

	if err := s.Set(ctx, "k", "v", WithLifetime(time.Second)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	clk.Advance(time.Second)
	if got, _ := s.Get(ctx, "k"); got != "v" {
		t.Fatalf("entry must live through its exact lifetime, got %v", got)
	}

	clk.Advance(time.Nanosecond)
	if _, ok := p.Raw("k"); !ok {
		t.Fatalf("nothing may sweep before a read")
	}
	got, err := s.Get(ctx, "k", WithDefault("def"))
	if err != nil || got != "def" {
		t.Fatalf("expired Get: got=%v err=%v", got, err)
	}
	if _, ok := p.Raw("k"); ok {
		t.Fatalf("expired row not deleted on read")
	}
	if hooks.count("expired") != 1 {
		t.Fatalf("Expired hook fired %d times", hooks.count("expired"))
	}
}

func TestLazyDeleteFailureStillAnswersDefault(t *testing.T) {
	ctx := context.Background()
	p := providertest.NewMapProvider("")
	clk := newFakeClock()
	hooks := newRecHooks()
	s := newRowStore(t, p, func(o *Options) { o.Clock = clk.Now; o.Hooks = hooks })

	if err := s.Set(ctx, "k", "v", WithLifetime(time.Second)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	clk.Advance(time.Minute)
	p.Fail(providertest.OpDelete, errors.New("read-only replica"))

	if ok, err := s.Has(ctx, "k"); err != nil || ok {
		t.Fatalf("Has: ok=%v err=%v", ok, err)
	}
	if hooks.count("lazy_delete_failed") != 1 {
		t.Fatalf("LazyDeleteFailed not reported")
	}
}

func TestLazyDeleteSparesRewrittenEntry(t *testing.T) {
	ctx := context.Background()
	p := providertest.NewMapProvider("")
	clk := newFakeClock()
	s := newRowStore(t, p, func(o *Options) { o.Clock = clk.Now })

	if err := s.Set(ctx, "k", "old", WithLifetime(time.Second)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	clk.Advance(time.Minute)

	// a writer replaces the row after the reader saw it expired
	var once sync.Once
	p.AfterSelect = func([]string) {
		once.Do(func() {
			if err := s.Set(ctx, "k", "fresh"); err != nil {
				t.Errorf("concurrent Set: %v", err)
			}
		})
	}
	if got, _ := s.Get(ctx, "k", WithDefault("def")); got != "def" {
		t.Fatalf("expired read got %v", got)
	}
	p.AfterSelect = nil

	if _, ok := p.Raw("k"); !ok {
		t.Fatalf("lazy delete removed a rewritten entry")
	}
	if got, _ := s.Get(ctx, "k"); got != "fresh" {
		t.Fatalf("got %v, want fresh", got)
	}
}

func TestKeysMayListExpiredUntilRead(t *testing.T) {
	ctx := context.Background()
	clk := newFakeClock()
	s, _ := newStore(Options{Clock: clk.Now})

	_ = s.Set(ctx, "a", 1.0, WithLifetime(time.Second))
	_ = s.Set(ctx, "b", 2.0)
	clk.Advance(time.Hour)

	keys, _ := s.Keys(ctx)
	if len(keys) != 2 {
		t.Fatalf("Keys before read = %v", keys)
	}
	vals, err := s.Values(ctx)
	if err != nil || len(vals) != 1 || vals[0] != 2.0 {
		t.Fatalf("Values must drop expired entries: %v err=%v", vals, err)
	}
	keys, _ = s.Keys(ctx)
	if len(keys) != 1 || keys[0] != "b" {
		t.Fatalf("Keys after read = %v", keys)
	}
}

// ==============================
// Memo cache
// ==============================

func TestMemoServesRepeatReadsAndInvalidatesOnWrite(t *testing.T) {
	ctx := context.Background()
	p := providertest.NewMapProvider("")
	hooks := newRecHooks()
	s := newRowStore(t, p, func(o *Options) { o.Hooks = hooks })

	_ = s.Set(ctx, "k", "v1")
	base := p.Calls(providertest.OpSelect)

	for i := 0; i < 3; i++ {
		if got, err := s.Get(ctx, "k", WithCache()); err != nil || got != "v1" {
			t.Fatalf("cached Get: got=%v err=%v", got, err)
		}
	}
	if n := p.Calls(providertest.OpSelect) - base; n != 1 {
		t.Fatalf("backend read %d times, want 1", n)
	}
	if hooks.count("hit") != 2 || hooks.count("miss") != 1 {
		t.Fatalf("hits=%d misses=%d", hooks.count("hit"), hooks.count("miss"))
	}

	// uncached reads always go to the backend
	_, _ = s.Get(ctx, "k")
	if n := p.Calls(providertest.OpSelect) - base; n != 2 {
		t.Fatalf("uncached Get must bypass memo")
	}

	_ = s.Set(ctx, "k", "v2")
	if got, _ := s.Get(ctx, "k", WithCache()); got != "v2" {
		t.Fatalf("memo not invalidated by Set: %v", got)
	}
	_ = s.Delete(ctx, "k")
	if got, _ := s.Get(ctx, "k", WithCache()); got != nil {
		t.Fatalf("memo not invalidated by Delete: %v", got)
	}
}

func TestAdapterWideCacheAndTTL(t *testing.T) {
	ctx := context.Background()
	p := providertest.NewMapProvider("")
	clk := newFakeClock()
	s := newRowStore(t, p, func(o *Options) {
		o.Cache = true
		o.CacheTTL = 10 * time.Second
		o.Clock = clk.Now
	})

	_ = s.Set(ctx, "k", "v")
	base := p.Calls(providertest.OpSelect)
	_, _ = s.Get(ctx, "k")
	_, _ = s.Get(ctx, "k")
	if n := p.Calls(providertest.OpSelect) - base; n != 1 {
		t.Fatalf("Options.Cache must memoize every read, backend read %d times", n)
	}

	clk.Advance(11 * time.Second)
	_, _ = s.Get(ctx, "k")
	if n := p.Calls(providertest.OpSelect) - base; n != 2 {
		t.Fatalf("memo entry must expire after CacheTTL")
	}

	// per-call TTL overrides the adapter TTL
	_ = s.Set(ctx, "j", "v")
	_, _ = s.Get(ctx, "j", WithCacheTTL(time.Hour))
	clk.Advance(time.Minute)
	before := p.Calls(providertest.OpSelect)
	_, _ = s.Get(ctx, "j")
	if p.Calls(providertest.OpSelect) != before {
		t.Fatalf("WithCacheTTL override ignored")
	}
}

func TestMemoIsAdvisoryPastEntryLifetime(t *testing.T) {
	ctx := context.Background()
	p := providertest.NewMapProvider("")
	clk := newFakeClock()
	s := newRowStore(t, p, func(o *Options) { o.Clock = clk.Now; o.CacheTTL = time.Minute })

	_ = s.Set(ctx, "k", "v", WithLifetime(time.Second))
	_, _ = s.Get(ctx, "k", WithCache())
	clk.Advance(2 * time.Second)

	if got, _ := s.Get(ctx, "k", WithCache()); got != "v" {
		t.Fatalf("memo TTL is independent of entry lifetime, got %v", got)
	}
	if got, _ := s.Get(ctx, "k"); got != nil {
		t.Fatalf("uncached read must see the expiry, got %v", got)
	}
}

func TestMemoPopulateSkippedWhenWriteRaces(t *testing.T) {
	ctx := context.Background()
	p := providertest.NewMapProvider("")
	hooks := newRecHooks()
	s := newRowStore(t, p, func(o *Options) { o.Hooks = hooks })

	_ = s.Set(ctx, "k", "old")
	// a writer lands between the generation snapshot and the populate
	p.OnSelect = func(keys []string) { s.memo.invalidate(ctx, keys) }
	if got, _ := s.Get(ctx, "k", WithCache()); got != "old" {
		t.Fatalf("racing read still answers what it read, got %v", got)
	}
	p.OnSelect = nil

	if len(hooks.reasons) != 1 || hooks.reasons[0] != "skip:gen_mismatch" {
		t.Fatalf("populate not skipped: %v", hooks.reasons)
	}
	base := p.Calls(providertest.OpSelect)
	_, _ = s.Get(ctx, "k", WithCache())
	if p.Calls(providertest.OpSelect) == base {
		t.Fatalf("stale value was memoized")
	}
}

func TestReadAfterWriteDoesNotJoinOlderRead(t *testing.T) {
	ctx := context.Background()
	p := providertest.NewMapProvider("")
	s := newRowStore(t, p, nil)
	if err := s.Set(ctx, "k", "v1"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	readDone := make(chan struct{})
	release := make(chan struct{})
	var stall, unblock sync.Once
	t.Cleanup(func() { unblock.Do(func() { close(release) }) })
	p.AfterSelect = func([]string) {
		stall.Do(func() {
			close(readDone)
			<-release
		})
	}

	first := make(chan any, 1)
	go func() {
		v, _ := s.Get(ctx, "k", WithCache())
		first <- v
	}()
	<-readDone

	if err := s.Set(ctx, "k", "v2"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	second := make(chan any, 1)
	go func() {
		v, _ := s.Get(ctx, "k", WithCache())
		second <- v
	}()
	select {
	case v := <-second:
		if v != "v2" {
			t.Fatalf("read started after Set got %v", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("read started after Set joined the stalled older read")
	}

	unblock.Do(func() { close(release) })
	if v := <-first; v != "v1" {
		t.Fatalf("stalled read got %v", v)
	}
	p.AfterSelect = nil

	for i := 0; i < 2; i++ {
		if got, _ := s.Get(ctx, "k", WithCache()); got != "v2" {
			t.Fatalf("cached read %d got %v", i, got)
		}
	}
}

func TestClearDropsGenerations(t *testing.T) {
	ctx := context.Background()
	s, err := newStore(Options{})
	if err != nil {
		t.Fatalf("newStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(ctx) })

	for i := 0; i < 10000; i++ {
		k := "k" + strconv.Itoa(i)
		if err := s.Set(ctx, k, i); err != nil {
			t.Fatalf("Set: %v", err)
		}
		if err := s.Delete(ctx, k); err != nil {
			t.Fatalf("Delete: %v", err)
		}
	}
	if n := s.memo.local.Len(); n != 10000 {
		t.Fatalf("generations tracked = %d, want 10000", n)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n := s.memo.local.Len(); n != 0 {
		t.Fatalf("generations retained after Clear = %d", n)
	}
}

func TestIdleGenerationsArePruned(t *testing.T) {
	ctx := context.Background()
	clk := newFakeClock()
	hooks := newRecHooks()
	p := providertest.NewMapProvider("")
	s := newRowStore(t, p, func(o *Options) { o.Clock = clk.Now; o.Hooks = hooks })

	_ = s.Set(ctx, "idle", "v1")
	clk.Advance(genRetention / 2)
	_ = s.Set(ctx, "busy", "v1")
	clk.Advance(genRetention/2 + time.Second)
	if n := s.memo.local.Prune(); n != 1 {
		t.Fatalf("pruned %d keys, want 1", n)
	}

	// a pruned key still memoizes and still invalidates
	if got, _ := s.Get(ctx, "idle", WithCache()); got != "v1" {
		t.Fatalf("got %v", got)
	}
	if got, _ := s.Get(ctx, "idle", WithCache()); got != "v1" || hooks.count("hit") != 1 {
		t.Fatalf("want memo hit, got %v (hits=%d)", got, hooks.count("hit"))
	}
	_ = s.Set(ctx, "idle", "v2")
	if got, _ := s.Get(ctx, "idle", WithCache()); got != "v2" {
		t.Fatalf("stale value after prune and write: %v", got)
	}
}

func TestClearPurgesMemo(t *testing.T) {
	ctx := context.Background()
	p := providertest.NewMapProvider("")
	s := newRowStore(t, p, nil)

	_ = s.Set(ctx, "k", "v")
	_, _ = s.Get(ctx, "k", WithCache())
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got, _ := s.Get(ctx, "k", WithCache()); got != nil {
		t.Fatalf("Clear left memo entry: %v", got)
	}
}

// ==============================
// Writes
// ==============================

func TestSetManyIsOneBatch(t *testing.T) {
	ctx := context.Background()
	p := providertest.NewMapProvider("")
	s := newRowStore(t, p, nil)

	if err := s.SetMany(ctx, []string{"a", "b", "a", "c"}, "v"); err != nil {
		t.Fatalf("SetMany: %v", err)
	}
	if n := p.Calls(providertest.OpUpsert); n != 1 {
		t.Fatalf("SetMany issued %d upserts, want 1", n)
	}

	p.Fail(providertest.OpUpsert, errors.New("deadlock"))
	if err := s.SetMany(ctx, []string{"a", "d"}, "w"); err == nil {
		t.Fatalf("upsert failure must surface")
	}
	if _, ok := p.Raw("d"); ok {
		t.Fatalf("failed batch wrote rows")
	}
}

func TestMergeSkippedHook(t *testing.T) {
	ctx := context.Background()
	hooks := newRecHooks()
	s, _ := newStore(Options{Hooks: hooks})

	_ = s.Set(ctx, "list", []any{1.0})
	_ = s.Set(ctx, "list", map[string]any{"a": 1.0}, WithMerge())
	_ = s.Set(ctx, "rec", map[string]any{"a": 1.0})
	_ = s.Set(ctx, "rec", 5.0, WithMerge())

	want := []string{"merge_skipped:current_not_record", "merge_skipped:next_not_record"}
	if strings.Join(hooks.reasons, ",") != strings.Join(want, ",") {
		t.Fatalf("reasons = %v, want %v", hooks.reasons, want)
	}
}

func TestMergeIgnoresExpiredCurrent(t *testing.T) {
	ctx := context.Background()
	clk := newFakeClock()
	s, _ := newStore(Options{Clock: clk.Now})

	_ = s.Set(ctx, "k", map[string]any{"old": true}, WithLifetime(time.Second))
	clk.Advance(time.Minute)
	_ = s.Set(ctx, "k", map[string]any{"new": true}, WithMerge())

	got, _ := s.Get(ctx, "k")
	m := got.(map[string]any)
	if _, ok := m["old"]; ok || m["new"] != true {
		t.Fatalf("merged into expired value: %v", m)
	}
}

func TestMemoryStoreIsolatesCallerValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	in := map[string]any{"n": 1.0, "b": []byte("ab")}
	_ = s.Set(ctx, "k", in)
	in["n"] = 2.0
	in["b"].([]byte)[0] = 'X'

	got, _ := s.Get(ctx, "k")
	out := got.(map[string]any)
	if out["n"] != 1.0 || string(out["b"].([]byte)) != "ab" {
		t.Fatalf("stored value aliased caller input: %v", out)
	}
	out["n"] = 3.0
	again, _ := s.Get(ctx, "k")
	if again.(map[string]any)["n"] != 1.0 {
		t.Fatalf("returned value aliased stored value")
	}
}

func TestNegativeCacheTTLRejected(t *testing.T) {
	if _, err := New(Options{CacheTTL: -time.Second}); !errors.Is(err, ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
}
