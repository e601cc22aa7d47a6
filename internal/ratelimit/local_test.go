package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocalLimiter(t *testing.T, rps float64, burst int, opts ...LocalOption) *LocalLimiter {
	t.Helper()
	l := NewLocalLimiter(rps, burst, opts...)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestLocalLimiterAllowsWithinBurst(t *testing.T) {
	t.Parallel()

	// Slow refill so the burst dominates the test window.
	l := newLocalLimiter(t, 0.001, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := l.Allow(ctx, "client")
		require.NoError(t, err)
		assert.True(t, result.Allowed, "request %d within burst", i+1)
		assert.Equal(t, 3, result.Limit)
	}

	result, err := l.Allow(ctx, "client")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 0, result.Remaining)
	assert.Greater(t, result.RetryAfter, time.Duration(0))
}

func TestLocalLimiterAllowN(t *testing.T) {
	t.Parallel()

	l := newLocalLimiter(t, 0.001, 3)
	ctx := context.Background()

	result, err := l.AllowN(ctx, "client", 2)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 1, result.Remaining)

	result, err = l.AllowN(ctx, "client", 2)
	require.NoError(t, err)
	assert.False(t, result.Allowed, "only one token left")
}

func TestLocalLimiterIsolatesKeys(t *testing.T) {
	t.Parallel()

	l := newLocalLimiter(t, 0.001, 1)
	ctx := context.Background()

	result, err := l.Allow(ctx, "first")
	require.NoError(t, err)
	require.True(t, result.Allowed)

	result, err = l.Allow(ctx, "first")
	require.NoError(t, err)
	require.False(t, result.Allowed)

	result, err = l.Allow(ctx, "second")
	require.NoError(t, err)
	assert.True(t, result.Allowed, "keys have independent buckets")
}

func TestLocalLimiterRefills(t *testing.T) {
	t.Parallel()

	l := newLocalLimiter(t, 100, 1)
	ctx := context.Background()

	result, err := l.Allow(ctx, "client")
	require.NoError(t, err)
	require.True(t, result.Allowed)

	result, err = l.Allow(ctx, "client")
	require.NoError(t, err)
	require.False(t, result.Allowed)

	// At 100 requests per second a token is back after 10ms.
	time.Sleep(50 * time.Millisecond)

	result, err = l.Allow(ctx, "client")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestLocalLimiterReset(t *testing.T) {
	t.Parallel()

	l := newLocalLimiter(t, 0.001, 1)
	ctx := context.Background()

	result, err := l.Allow(ctx, "client")
	require.NoError(t, err)
	require.True(t, result.Allowed)

	require.NoError(t, l.Reset(ctx, "client"))

	result, err = l.Allow(ctx, "client")
	require.NoError(t, err)
	assert.True(t, result.Allowed, "reset restores the full burst")
}

func TestLocalLimiterEvictsStaleEntries(t *testing.T) {
	t.Parallel()

	l := newLocalLimiter(t, 1, 1)
	ctx := context.Background()

	_, err := l.Allow(ctx, "first")
	require.NoError(t, err)
	_, err = l.Allow(ctx, "second")
	require.NoError(t, err)

	// Both entries were last seen before a future cutoff.
	evicted := l.evictStale(time.Now().Add(time.Second))
	assert.Equal(t, 2, evicted)

	evicted = l.evictStale(time.Now().Add(time.Second))
	assert.Equal(t, 0, evicted)
}

func TestLocalLimiterGetLimit(t *testing.T) {
	t.Parallel()

	l := newLocalLimiter(t, 25, 50)

	limit := l.GetLimit("any")
	require.NotNil(t, limit)
	assert.Equal(t, 25, limit.Requests)
	assert.Equal(t, time.Second, limit.Window)
	assert.Equal(t, 50, limit.Burst)
}

func TestLocalLimiterCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	l := NewLocalLimiter(1, 1)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
}

func TestNoopLimiter(t *testing.T) {
	t.Parallel()

	l := NewNoopLimiter()
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		result, err := l.Allow(ctx, "client")
		require.NoError(t, err)
		require.True(t, result.Allowed)
	}

	assert.Nil(t, l.GetLimit("client"))
	assert.NoError(t, l.Reset(ctx, "client"))
}
