//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chand1012/personal-site/internal/database/dbtest"
)

// storeContract exercises the behaviour every backend shares.
func storeContract(t *testing.T, store Store, clock *clockwork.FakeClock) {
	ctx := context.Background()

	_, ok := store.Get(ctx, "octo")
	assert.False(t, ok, "empty store misses")

	first := sampleStats("octo")
	require.NoError(t, store.Set(ctx, "octo", first))
	got, ok := store.Get(ctx, "octo")
	require.True(t, ok)
	assert.Equal(t, first, got)

	second := sampleStats("octo")
	second.TotalStars = 42
	require.NoError(t, store.Set(ctx, "octo", second))
	got, ok = store.Get(ctx, "octo")
	require.True(t, ok)
	assert.Equal(t, 42, got.TotalStars, "set replaces the prior record")

	clock.Advance(time.Hour)
	_, ok = store.Get(ctx, "octo")
	assert.False(t, ok, "stale at the TTL")
}

func TestPostgresStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	pool := dbtest.Postgres(ctx, t)
	clock := clockwork.NewFakeClockAt(time.Now())

	store := NewPostgresStore(pool, time.Hour, clock, discardLogger())
	storeContract(t, store, clock)

	var rows int
	require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM github_stats_cache").Scan(&rows))
	assert.Equal(t, 0, rows, "expired row is deleted on read")
}

func TestMongoStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	client, err := NewMongoClient(ctx, dbtest.MongoURI(ctx, t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	clock := clockwork.NewFakeClockAt(time.Now())
	store := NewMongoStore(client.Database("portfolio_test"), time.Hour, clock, discardLogger())
	require.NoError(t, store.EnsureIndexes(ctx))
	storeContract(t, store, clock)

	n, err := store.coll.CountDocuments(ctx, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "expired document is deleted on read")
}
