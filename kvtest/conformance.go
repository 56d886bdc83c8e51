// Package kvtest provides conformance tests for omnikv.Store backends.
package kvtest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/omnikv"
	"github.com/unkn0wn-root/omnikv/codec"
)

// StoreFactory creates a configured Store for one test. Stores that share
// external state with earlier tests are cleared before use.
type StoreFactory func(t *testing.T) omnikv.Store

// RunConformanceTests runs every conformance test against a backend.
func RunConformanceTests(t *testing.T, factory StoreFactory) {
	tests := []struct {
		name string
		test func(t *testing.T, s omnikv.Store)
	}{
		{"RoundTripScalars", testRoundTripScalars},
		{"RoundTripComplex", testRoundTripComplex},
		{"RoundTripTagShapedRecords", testRoundTripTagShapedRecords},
		{"MissingAndDefault", testMissingAndDefault},
		{"HasAndDelete", testHasAndDelete},
		{"ManyOperations", testManyOperations},
		{"Lifetime", testLifetime},
		{"Merge", testMerge},
		{"Listing", testListing},
		{"Clear", testClear},
		{"Validation", testValidation},
		{"CachedReads", testCachedReads},
		{"Closed", testClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := factory(t)
			t.Cleanup(func() { _ = s.Close(context.Background()) })
			require.NoError(t, s.Clear(context.Background()))
			tt.test(t, s)
		})
	}
}

func testRoundTripScalars(t *testing.T, s omnikv.Store) {
	ctx := context.Background()
	cases := map[string]any{
		"s:string": "hello wörld",
		"s:number": 42.5,
		"s:true":   true,
		"s:false":  false,
		"s:null":   nil,
		"s:list":   []any{"a", 1.0, true, nil},
		"s:record": map[string]any{"a": 1.0, "b": map[string]any{"c": "d"}},
	}
	for k, v := range cases {
		require.NoError(t, s.Set(ctx, k, v), k)
	}
	for k, want := range cases {
		got, err := s.Get(ctx, k)
		require.NoError(t, err, k)
		assert.Equal(t, want, got, k)
	}
}

// Plain records that look like registry tags stay plain records.
func testRoundTripTagShapedRecords(t *testing.T, s omnikv.Store) {
	ctx := context.Background()
	cases := map[string]any{
		"t:buffer": map[string]any{"$type": "buffer", "$value": "aGk="},
		"t:date":   map[string]any{"$type": "date", "$value": "not a date"},
		"t:nested": map[string]any{"in": map[string]any{"$type": "record", "$value": 1.0}},
	}
	for k, v := range cases {
		require.NoError(t, s.Set(ctx, k, v), k)
	}
	for k, want := range cases {
		got, err := s.Get(ctx, k)
		require.NoError(t, err, k)
		assert.Equal(t, want, got, k)
	}
	entries, err := s.Entries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, len(cases))
}

func testRoundTripComplex(t *testing.T, s omnikv.Store) {
	ctx := context.Background()
	om := codec.NewOrderedMap()
	om.Set("z", 1.0)
	om.Set("a", []byte{0, 1, 2, 255})
	om.Set("m", codec.NewSet("x", "y"))
	when := time.Date(2024, 3, 1, 12, 30, 0, 123456789, time.UTC)

	require.NoError(t, s.Set(ctx, "c:buffer", []byte("raw\x00bytes")))
	require.NoError(t, s.Set(ctx, "c:date", when))
	require.NoError(t, s.Set(ctx, "c:set", codec.NewSet("b", "a", 3.0)))
	require.NoError(t, s.Set(ctx, "c:nested", map[string]any{
		"map":  om,
		"when": when,
		"list": []any{[]byte("q"), codec.NewSet()},
	}))

	got, err := s.Get(ctx, "c:buffer")
	require.NoError(t, err)
	assert.Equal(t, []byte("raw\x00bytes"), got)

	got, err = s.Get(ctx, "c:date")
	require.NoError(t, err)
	require.IsType(t, time.Time{}, got)
	assert.True(t, when.Equal(got.(time.Time)), "date changed: %v", got)

	got, err = s.Get(ctx, "c:set")
	require.NoError(t, err)
	require.IsType(t, &codec.Set{}, got)
	assert.Equal(t, []any{"b", "a", 3.0}, got.(*codec.Set).Values())

	got, err = s.Get(ctx, "c:nested")
	require.NoError(t, err)
	rec, ok := got.(map[string]any)
	require.True(t, ok, "nested record became %T", got)

	m, ok := rec["map"].(*codec.OrderedMap)
	require.True(t, ok, "ordered map became %T", rec["map"])
	var keys []string
	for p := m.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	assert.Equal(t, []string{"z", "a", "m"}, keys)
	a, _ := m.Get("a")
	assert.Equal(t, []byte{0, 1, 2, 255}, a)
	inner, _ := m.Get("m")
	require.IsType(t, &codec.Set{}, inner)
	assert.True(t, inner.(*codec.Set).Has("y"))

	assert.True(t, when.Equal(rec["when"].(time.Time)))
	list := rec["list"].([]any)
	assert.Equal(t, []byte("q"), list[0])
	assert.Equal(t, 0, list[1].(*codec.Set).Len())
}

func testMissingAndDefault(t *testing.T, s omnikv.Store) {
	ctx := context.Background()
	got, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = s.Get(ctx, "missing", omnikv.WithDefault("fallback"))
	require.NoError(t, err)
	assert.Equal(t, "fallback", got)

	require.NoError(t, s.Set(ctx, "present", "v"))
	got, err = s.Get(ctx, "present", omnikv.WithDefault("fallback"))
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func testHasAndDelete(t *testing.T, s omnikv.Store) {
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "h:1", "v"))

	ok, err := s.Has(ctx, "h:1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete(ctx, "h:1"))
	ok, err = s.Has(ctx, "h:1")
	require.NoError(t, err)
	assert.False(t, ok)

	// idempotent
	require.NoError(t, s.Delete(ctx, "h:1"))
	require.NoError(t, s.Delete(ctx, "never-existed"))
}

func testManyOperations(t *testing.T, s omnikv.Store) {
	ctx := context.Background()
	require.NoError(t, s.SetMany(ctx, []string{"m:a", "m:b", "m:c"}, map[string]any{"n": 1.0}))

	entries, err := s.GetMany(ctx, []string{"m:c", "m:x", "m:a"}, omnikv.WithDefault("def"))
	require.NoError(t, err)
	assert.Equal(t, []omnikv.Entry{
		{Key: "m:c", Value: map[string]any{"n": 1.0}},
		{Key: "m:x", Value: "def"},
		{Key: "m:a", Value: map[string]any{"n": 1.0}},
	}, entries)

	pres, err := s.HasMany(ctx, []string{"m:b", "m:x"})
	require.NoError(t, err)
	assert.Equal(t, []omnikv.Presence{{Key: "m:b", Has: true}, {Key: "m:x", Has: false}}, pres)

	require.NoError(t, s.DeleteMany(ctx, []string{"m:a", "m:b", "m:x"}))
	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"m:c"}, keys)

	empty, err := s.GetMany(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testLifetime(t *testing.T, s omnikv.Store) {
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "t:short", "v", omnikv.WithLifetime(50*time.Millisecond)))
	require.NoError(t, s.Set(ctx, "t:long", "v", omnikv.WithLifetime(time.Hour)))
	require.NoError(t, s.Set(ctx, "t:forever", "v"))

	got, err := s.Get(ctx, "t:short")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	time.Sleep(120 * time.Millisecond)

	got, err = s.Get(ctx, "t:short", omnikv.WithDefault("gone"))
	require.NoError(t, err)
	assert.Equal(t, "gone", got)

	ok, err := s.Has(ctx, "t:short")
	require.NoError(t, err)
	assert.False(t, ok)

	// the expired read deleted the entry
	keys, err := s.Keys(ctx, omnikv.Match("t:*"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"t:long", "t:forever"}, keys)

	err = s.Set(ctx, "t:bad", "v", omnikv.WithLifetime(0))
	assert.ErrorIs(t, err, omnikv.ErrValidation)
	err = s.Set(ctx, "t:bad", "v", omnikv.WithLifetime(-time.Second))
	assert.ErrorIs(t, err, omnikv.ErrValidation)
}

func testMerge(t *testing.T, s omnikv.Store) {
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "r:1", map[string]any{
		"name": "ada",
		"tags": []any{"a"},
		"addr": map[string]any{"city": "London", "zip": "N1"},
	}))
	require.NoError(t, s.Set(ctx, "r:1", map[string]any{
		"tags": []any{"b"},
		"addr": map[string]any{"zip": "E2"},
		"age":  36.0,
	}, omnikv.WithMerge()))

	got, err := s.Get(ctx, "r:1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"name": "ada",
		"tags": []any{"b"},
		"addr": map[string]any{"city": "London", "zip": "E2"},
		"age":  36.0,
	}, got)

	// absent current merges into an empty record
	require.NoError(t, s.Set(ctx, "r:new", map[string]any{"a": 1.0}, omnikv.WithMerge()))
	got, err = s.Get(ctx, "r:new")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1.0}, got)

	// non-record current is replaced
	require.NoError(t, s.Set(ctx, "r:str", "plain"))
	require.NoError(t, s.Set(ctx, "r:str", map[string]any{"a": 1.0}, omnikv.WithMerge()))
	got, err = s.Get(ctx, "r:str")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1.0}, got)

	// non-record next is stored as is
	require.NoError(t, s.Set(ctx, "r:1", "replaced", omnikv.WithMerge()))
	got, err = s.Get(ctx, "r:1")
	require.NoError(t, err)
	assert.Equal(t, "replaced", got)

	// merge applies per key in SetMany
	require.NoError(t, s.Set(ctx, "r:x", map[string]any{"x": 1.0}))
	require.NoError(t, s.SetMany(ctx, []string{"r:x", "r:y"}, map[string]any{"z": 2.0}, omnikv.WithMerge()))
	got, err = s.Get(ctx, "r:x")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": 1.0, "z": 2.0}, got)
	got, err = s.Get(ctx, "r:y")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"z": 2.0}, got)
}

func testListing(t *testing.T, s omnikv.Store) {
	ctx := context.Background()
	var all []string
	for i := 0; i < 12; i++ {
		k := fmt.Sprintf("l:%02d", i)
		all = append(all, k)
		require.NoError(t, s.Set(ctx, k, float64(i)))
	}
	require.NoError(t, s.Set(ctx, "other", "x"))

	keys, err := s.Keys(ctx, omnikv.Match("l:*"))
	require.NoError(t, err)
	assert.ElementsMatch(t, all, keys)

	keys, err = s.Keys(ctx, omnikv.Limit(5))
	require.NoError(t, err)
	assert.Len(t, keys, 5)

	keys, err = s.Keys(ctx, omnikv.Limit(100))
	require.NoError(t, err)
	assert.Len(t, keys, 13)

	keys, err = s.Keys(ctx, omnikv.Limit(0))
	require.NoError(t, err)
	assert.Empty(t, keys)

	// 12! orderings; identical shuffles three times in a row mean no shuffle
	first, err := s.Keys(ctx, omnikv.Match("l:*"), omnikv.Randomize())
	require.NoError(t, err)
	differs := false
	for i := 0; i < 3 && !differs; i++ {
		next, err := s.Keys(ctx, omnikv.Match("l:*"), omnikv.Randomize())
		require.NoError(t, err)
		assert.ElementsMatch(t, first, next)
		differs = strings.Join(first, ",") != strings.Join(next, ",")
	}
	assert.True(t, differs, "randomized listings never differed")

	entries, err := s.Entries(ctx, omnikv.Match("l:*"), omnikv.Limit(3), omnikv.Randomize())
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.True(t, strings.HasPrefix(e.Key, "l:"))
		assert.IsType(t, 0.0, e.Value)
	}

	values, err := s.Values(ctx, omnikv.Match("other"))
	require.NoError(t, err)
	assert.Equal(t, []any{"x"}, values)

	_, err = s.Keys(ctx, omnikv.Match("[unclosed"))
	assert.ErrorIs(t, err, omnikv.ErrValidation)
}

func testClear(t *testing.T, s omnikv.Store) {
	ctx := context.Background()
	require.NoError(t, s.SetMany(ctx, []string{"x:1", "x:2"}, "v"))
	_, err := s.Get(ctx, "x:1", omnikv.WithCache())
	require.NoError(t, err)

	require.NoError(t, s.Clear(ctx))

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
	ok, err := s.Has(ctx, "x:1")
	require.NoError(t, err)
	assert.False(t, ok)

	// the memo was dropped too
	got, err := s.Get(ctx, "x:1", omnikv.WithCache())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testValidation(t *testing.T, s omnikv.Store) {
	ctx := context.Background()
	for _, k := range []string{"", " ", "\t\n", strings.Repeat("a", 193)} {
		assert.ErrorIs(t, s.Set(ctx, k, "v"), omnikv.ErrValidation, "key %q", k)
		_, err := s.Get(ctx, k)
		assert.ErrorIs(t, err, omnikv.ErrValidation, "key %q", k)
	}
	require.NoError(t, s.Set(ctx, strings.Repeat("é", 192), "v"))

	assert.ErrorIs(t, s.SetMany(ctx, nil, "v"), omnikv.ErrValidation)
	assert.ErrorIs(t, s.DeleteMany(ctx, []string{}), omnikv.ErrValidation)

	err := s.SetMany(ctx, []string{"ok", ""}, "v")
	var verr *omnikv.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 1, verr.Index)

	// nothing from the rejected batch was written
	ok, err := s.Has(ctx, "ok")
	require.NoError(t, err)
	assert.False(t, ok)
}

func testCachedReads(t *testing.T, s omnikv.Store) {
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "k:1", map[string]any{"v": 1.0}))

	for i := 0; i < 2; i++ {
		got, err := s.Get(ctx, "k:1", omnikv.WithCache())
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"v": 1.0}, got)
	}

	// writes invalidate the memo
	require.NoError(t, s.Set(ctx, "k:1", map[string]any{"v": 2.0}))
	got, err := s.Get(ctx, "k:1", omnikv.WithCacheTTL(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"v": 2.0}, got)

	// callers cannot corrupt the memo through returned values
	got.(map[string]any)["v"] = "mutated"
	got, err = s.Get(ctx, "k:1", omnikv.WithCache())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"v": 2.0}, got)

	require.NoError(t, s.Delete(ctx, "k:1"))
	got, err = s.Get(ctx, "k:1", omnikv.WithCache())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testClosed(t *testing.T, s omnikv.Store) {
	ctx := context.Background()
	require.NoError(t, s.Close(ctx))
	require.NoError(t, s.Close(ctx), "Close must be idempotent")

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, omnikv.ErrClosed)
	assert.ErrorIs(t, s.Set(ctx, "k", "v"), omnikv.ErrClosed)
	_, err = s.Keys(ctx)
	assert.ErrorIs(t, err, omnikv.ErrClosed)
	assert.ErrorIs(t, s.Configure(ctx), omnikv.ErrClosed)
}
