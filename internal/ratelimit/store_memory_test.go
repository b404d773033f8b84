package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestInMemoryStoreSlidingWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	store := NewInMemoryStore(WithClock(clock.Now))
	ctx := context.Background()

	for i := range 3 {
		res, err := store.Allow(ctx, "k", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
		clock.Advance(10 * time.Second)
	}

	res, err := store.Allow(ctx, "k", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 3, res.Limit)
	assert.Equal(t, 30, res.RetryAfter, "oldest request expires 30s from now")

	t.Run("other keys are independent", func(t *testing.T) {
		res, err := store.Allow(ctx, "other", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})

	t.Run("window slides past the oldest request", func(t *testing.T) {
		clock.Advance(30 * time.Second)
		res, err := store.Allow(ctx, "k", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 0, res.Remaining)
	})
}

func TestInMemoryStoreEvictsIdleKeys(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	store := NewInMemoryStore(WithClock(clock.Now), WithSweepInterval(time.Minute))
	ctx := context.Background()

	for _, key := range []string{"203.0.113.1", "203.0.113.2", "203.0.113.3"} {
		_, err := store.Allow(ctx, key, 5, 30*time.Second)
		require.NoError(t, err)
	}
	require.Equal(t, 3, store.Len())

	t.Run("keys survive until the sweep interval passes", func(t *testing.T) {
		clock.Advance(45 * time.Second)
		_, err := store.Allow(ctx, "203.0.113.1", 5, 30*time.Second)
		require.NoError(t, err)
		assert.Equal(t, 3, store.Len())
	})

	t.Run("sweep drops keys whose window emptied", func(t *testing.T) {
		clock.Advance(20 * time.Second)
		_, err := store.Allow(ctx, "198.51.100.7", 5, 30*time.Second)
		require.NoError(t, err)
		assert.Equal(t, 2, store.Len(), "only the recently active key and the new one remain")
	})

	t.Run("evicted keys start with a full budget", func(t *testing.T) {
		res, err := store.Allow(ctx, "203.0.113.2", 5, 30*time.Second)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 4, res.Remaining)
	})
}

func TestRetryAfterRoundsUp(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, 2, retryAfter(now, now.Add(1500*time.Millisecond)))
	assert.Equal(t, 1, retryAfter(now, now))
}
