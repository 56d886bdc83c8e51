package providertest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pr "github.com/unkn0wn-root/omnikv/provider"
)

// Factory returns an unconfigured provider with an empty table.
type Factory func(t *testing.T) pr.Provider

// RunConformanceTests checks the provider contract against p.
func RunConformanceTests(t *testing.T, factory Factory) {
	tests := []struct {
		name string
		test func(t *testing.T, p pr.Provider)
	}{
		{"ConfigureIdempotent", testConfigureIdempotent},
		{"UpsertSelect", testUpsertSelect},
		{"UpsertReplaces", testUpsertReplaces},
		{"Delete", testDelete},
		{"DeleteAll", testDeleteAll},
		{"LongValues", testLongValues},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			p := factory(t)
			t.Cleanup(func() { _ = p.Close(ctx) })
			require.NoError(t, p.Configure(ctx))
			require.NoError(t, p.DeleteAll(ctx))
			tt.test(t, p)
		})
	}
}

func testConfigureIdempotent(t *testing.T, p pr.Provider) {
	ctx := context.Background()
	require.NoError(t, p.Upsert(ctx, []pr.Row{{Key: "a", Value: "1"}}))
	require.NoError(t, p.Configure(ctx))
	rows, err := p.Select(ctx, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, []pr.Row{{Key: "a", Value: "1"}}, rows, "Configure must not drop data")
	assert.NotEmpty(t, p.Table())
}

func testUpsertSelect(t *testing.T, p pr.Provider) {
	ctx := context.Background()
	require.NoError(t, p.Upsert(ctx, []pr.Row{
		{Key: "k1", Value: `{"ctx":1}`},
		{Key: "k2", Value: "ünïcode ✓"},
		{Key: "k3", Value: ""},
	}))
	rows, err := p.Select(ctx, []string{"k2", "missing", "k1", "k3"})
	require.NoError(t, err)
	sortRows(rows)
	assert.Equal(t, []pr.Row{
		{Key: "k1", Value: `{"ctx":1}`},
		{Key: "k2", Value: "ünïcode ✓"},
		{Key: "k3", Value: ""},
	}, rows)

	rows, err = p.Select(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func testUpsertReplaces(t *testing.T, p pr.Provider) {
	ctx := context.Background()
	require.NoError(t, p.Upsert(ctx, []pr.Row{{Key: "k", Value: "old"}}))
	require.NoError(t, p.Upsert(ctx, []pr.Row{{Key: "k", Value: "new"}, {Key: "j", Value: "x"}}))
	rows, err := p.Select(ctx, []string{"k"})
	require.NoError(t, err)
	assert.Equal(t, []pr.Row{{Key: "k", Value: "new"}}, rows)

	keys, err := p.Keys(ctx)
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"j", "k"}, keys)
}

func testDelete(t *testing.T, p pr.Provider) {
	ctx := context.Background()
	var rows []pr.Row
	for i := 0; i < 5; i++ {
		rows = append(rows, pr.Row{Key: fmt.Sprintf("d:%d", i), Value: "v"})
	}
	require.NoError(t, p.Upsert(ctx, rows))
	require.NoError(t, p.Delete(ctx, []string{"d:1", "d:3", "nope"}))
	require.NoError(t, p.Delete(ctx, nil))

	keys, err := p.Keys(ctx)
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"d:0", "d:2", "d:4"}, keys)
}

func testDeleteAll(t *testing.T, p pr.Provider) {
	ctx := context.Background()
	require.NoError(t, p.Upsert(ctx, []pr.Row{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}}))
	require.NoError(t, p.DeleteAll(ctx))
	keys, err := p.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func testLongValues(t *testing.T, p pr.Provider) {
	ctx := context.Background()
	key := strings.Repeat("k", 192)
	val := strings.Repeat("0123456789abcdef", 8192)
	require.NoError(t, p.Upsert(ctx, []pr.Row{{Key: key, Value: val}}))
	rows, err := p.Select(ctx, []string{key})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, val, rows[0].Value)
}

func sortRows(rows []pr.Row) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
}
