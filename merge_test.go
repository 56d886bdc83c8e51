package omnikv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/omnikv/codec"
)

func TestMergeValues(t *testing.T) {
	reg := codec.Default
	when := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		current any
		next    any
		want    any
		merged  bool
	}{
		{
			name:    "disjoint keys",
			current: Record{"a": 1.0},
			next:    Record{"b": 2.0},
			want:    Record{"a": 1.0, "b": 2.0},
			merged:  true,
		},
		{
			name:    "next wins on scalar conflict",
			current: Record{"a": 1.0, "keep": "x"},
			next:    Record{"a": "one"},
			want:    Record{"a": "one", "keep": "x"},
			merged:  true,
		},
		{
			name:    "nested records merge key-wise",
			current: Record{"profile": Record{"name": "ada", "age": 36.0}},
			next:    Record{"profile": Record{"age": 37.0, "lang": "en"}},
			want:    Record{"profile": Record{"name": "ada", "age": 37.0, "lang": "en"}},
			merged:  true,
		},
		{
			name:    "lists are replaced",
			current: Record{"tags": []any{"a", "b"}},
			next:    Record{"tags": []any{"c"}},
			want:    Record{"tags": []any{"c"}},
			merged:  true,
		},
		{
			name:    "record replaces scalar",
			current: Record{"x": "flat"},
			next:    Record{"x": Record{"deep": true}},
			want:    Record{"x": Record{"deep": true}},
			merged:  true,
		},
		{
			name:    "scalar replaces record",
			current: Record{"x": Record{"deep": true}},
			next:    Record{"x": 5.0},
			want:    Record{"x": 5.0},
			merged:  true,
		},
		{
			name:    "null overrides",
			current: Record{"x": 1.0},
			next:    Record{"x": nil},
			want:    Record{"x": nil},
			merged:  true,
		},
		{
			name:    "registry types replaced whole",
			current: Record{"at": when.Add(-time.Hour), "buf": []byte("old")},
			next:    Record{"at": when, "buf": []byte("new")},
			want:    Record{"at": when, "buf": []byte("new")},
			merged:  true,
		},
		{
			name:    "nil current is an empty record",
			current: nil,
			next:    Record{"a": 1.0},
			want:    Record{"a": 1.0},
			merged:  true,
		},
		{
			name:    "list current is replaced",
			current: []any{1.0},
			next:    Record{"a": 1.0},
			want:    Record{"a": 1.0},
			merged:  false,
		},
		{
			name:    "scalar next is written as is",
			current: Record{"a": 1.0},
			next:    "plain",
			want:    "plain",
			merged:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, merged, err := mergeValues(reg, tt.current, tt.next)
			require.NoError(t, err)
			assert.Equal(t, tt.merged, merged)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMergeValuesLeavesInputsUntouched(t *testing.T) {
	current := Record{"n": Record{"a": 1.0}}
	next := Record{"n": Record{"b": 2.0}}

	got, merged, err := mergeValues(codec.Default, current, next)
	require.NoError(t, err)
	require.True(t, merged)

	assert.Equal(t, Record{"n": Record{"a": 1.0}}, current)
	assert.Equal(t, Record{"n": Record{"b": 2.0}}, next)
	assert.Equal(t, Record{"n": Record{"a": 1.0, "b": 2.0}}, got)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindRecord, kindOf(map[string]any{}))
	assert.Equal(t, KindList, kindOf([]any{}))
	assert.Equal(t, KindScalar, kindOf(nil))
	assert.Equal(t, KindScalar, kindOf(codec.NewOrderedMap()))
	assert.Equal(t, KindScalar, kindOf([]byte("x")))
	assert.Equal(t, "record", KindRecord.String())
	assert.Equal(t, "list", KindList.String())
	assert.Equal(t, "scalar", KindScalar.String())
}
