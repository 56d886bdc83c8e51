package bolt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/unkn0wn-root/omnikv"
	"github.com/unkn0wn-root/omnikv/kvtest"
	pr "github.com/unkn0wn-root/omnikv/provider"
	"github.com/unkn0wn-root/omnikv/provider/providertest"
)

func TestProviderConformance(t *testing.T) {
	providertest.RunConformanceTests(t, func(t *testing.T) pr.Provider {
		p, err := Open(filepath.Join(t.TempDir(), "kv.bolt"), "")
		require.NoError(t, err)
		return p
	})
}

func TestStoreConformance(t *testing.T) {
	kvtest.RunConformanceTests(t, func(t *testing.T) omnikv.Store {
		s, err := omnikv.Open(context.Background(), omnikv.Config{
			Backend: omnikv.BackendBolt,
			DSN:     filepath.Join(t.TempDir(), "kv.bolt"),
		})
		require.NoError(t, err)
		return s
	})
}

func TestTablesAreSeparateBuckets(t *testing.T) {
	ctx := context.Background()
	db, err := bolt.Open(filepath.Join(t.TempDir(), "kv.bolt"), 0o600, nil)
	require.NoError(t, err)
	defer db.Close()

	users, orders := New(db, "users"), New(db, "orders")
	require.NoError(t, users.Configure(ctx))
	require.NoError(t, orders.Configure(ctx))

	require.NoError(t, users.Upsert(ctx, []pr.Row{{Key: "1", Value: "ada"}}))
	require.NoError(t, orders.DeleteAll(ctx))

	rows, err := users.Select(ctx, []string{"1"})
	require.NoError(t, err)
	assert.Equal(t, []pr.Row{{Key: "1", Value: "ada"}}, rows)

	// shared handle stays open
	require.NoError(t, users.Close(ctx))
	_, err = orders.Keys(ctx)
	assert.NoError(t, err)
}

func TestUnconfiguredBucket(t *testing.T) {
	p, err := Open(filepath.Join(t.TempDir(), "kv.bolt"), "")
	require.NoError(t, err)
	defer p.Close(context.Background())

	_, err = p.Select(context.Background(), []string{"a"})
	assert.True(t, errors.Is(err, ErrNoBucket))
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("", "")
	assert.Error(t, err)
}
