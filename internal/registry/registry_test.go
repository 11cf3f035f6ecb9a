// internal/registry/registry_test.go
package registry

import (
	"context"
	"testing"
	"time"

	"sentiment-workers/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, time.Hour), mr
}

func sampleReport() *models.Report {
	return &models.Report{
		ProductID:    "6418599",
		CanonicalURL: "https://www.example.com/site/gadget/6418599.p",
		Count:        2,
		AvgSentiment: 70.0,
		AvgStars:     4.0,
	}
}

func runStores(t *testing.T, run func(t *testing.T, store Store)) {
	t.Run("redis", func(t *testing.T) {
		store, _ := newTestStore(t)
		run(t, store)
	})
	t.Run("memory", func(t *testing.T) {
		run(t, NewMemoryStore())
	})
}

func TestStore_UnknownRunIsNotFound(t *testing.T) {
	runStores(t, func(t *testing.T, store Store) {
		status, err := store.Get(context.Background(), "never-submitted")

		require.NoError(t, err)
		assert.Equal(t, models.RunStateNotFound, status.State)
	})
}

func TestStore_SingleClaimPerRunID(t *testing.T) {
	runStores(t, func(t *testing.T, store Store) {
		ctx := context.Background()

		first, err := store.MarkRunning(ctx, "run-1")
		require.NoError(t, err)
		assert.True(t, first)

		second, err := store.MarkRunning(ctx, "run-1")
		require.NoError(t, err)
		assert.False(t, second, "a runId can only be claimed once")

		status, err := store.Get(ctx, "run-1")
		require.NoError(t, err)
		assert.Equal(t, models.RunStateRunning, status.State)
		assert.Nil(t, status.Data)
	})
}

func TestStore_CompletePublishesOnce(t *testing.T) {
	runStores(t, func(t *testing.T, store Store) {
		ctx := context.Background()

		_, err := store.MarkRunning(ctx, "run-1")
		require.NoError(t, err)

		won, err := store.Complete(ctx, "run-1", sampleReport())
		require.NoError(t, err)
		assert.True(t, won)

		other := *sampleReport()
		other.AvgSentiment = 10.0
		won, err = store.Complete(ctx, "run-1", &other)
		require.NoError(t, err)
		assert.False(t, won)

		status, err := store.Get(ctx, "run-1")
		require.NoError(t, err)
		assert.Equal(t, models.RunStateComplete, status.State)
		require.NotNil(t, status.Data)
		assert.Equal(t, 70.0, status.Data.AvgSentiment, "the first published report wins")
	})
}

func TestStore_FailIsTerminal(t *testing.T) {
	runStores(t, func(t *testing.T, store Store) {
		ctx := context.Background()

		_, err := store.MarkRunning(ctx, "run-1")
		require.NoError(t, err)

		won, err := store.Fail(ctx, "run-1", "stage 'fetch-reviews' failed after 3 attempts")
		require.NoError(t, err)
		assert.True(t, won)

		// A late completion cannot overwrite the failure.
		won, err = store.Complete(ctx, "run-1", sampleReport())
		require.NoError(t, err)
		assert.False(t, won)

		status, err := store.Get(ctx, "run-1")
		require.NoError(t, err)
		assert.Equal(t, models.RunStateError, status.State)
		assert.Contains(t, status.Message, "fetch-reviews")
		assert.Nil(t, status.Data)
	})
}

func TestRedisStore_RetentionExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	_, err := store.MarkRunning(ctx, "run-1")
	require.NoError(t, err)
	_, err = store.Complete(ctx, "run-1", sampleReport())
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	status, err := store.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStateNotFound, status.State, "finished runs expire after retention")
}
