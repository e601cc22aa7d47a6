package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func TestNewRedisLimiterValidation(t *testing.T) {
	t.Parallel()

	_, client := newTestRedis(t)

	tests := []struct {
		name   string
		client *redis.Client
		limit  int64
		window time.Duration
	}{
		{name: "nil client", client: nil, limit: 10, window: time.Minute},
		{name: "zero limit", client: client, limit: 0, window: time.Minute},
		{name: "negative limit", client: client, limit: -1, window: time.Minute},
		{name: "zero window", client: client, limit: 10, window: 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewRedisLimiter(tt.client, tt.limit, tt.window)
			assert.Error(t, err)
		})
	}
}

func TestRedisLimiterAllowsUntilLimit(t *testing.T) {
	t.Parallel()

	_, client := newTestRedis(t)
	l, err := NewRedisLimiter(client, 3, time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	for want := 2; want >= 0; want-- {
		result, err := l.Allow(ctx, "client")
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, 3, result.Limit)
		assert.Equal(t, want, result.Remaining)
	}

	result, err := l.Allow(ctx, "client")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 0, result.Remaining)
	assert.Greater(t, result.RetryAfter, time.Duration(0))
}

func TestRedisLimiterAllowN(t *testing.T) {
	t.Parallel()

	_, client := newTestRedis(t)
	l, err := NewRedisLimiter(client, 5, time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	result, err := l.AllowN(ctx, "client", 4)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 1, result.Remaining)

	result, err = l.AllowN(ctx, "client", 2)
	require.NoError(t, err)
	assert.False(t, result.Allowed, "two requested but one left")
}

func TestRedisLimiterIsolatesKeys(t *testing.T) {
	t.Parallel()

	_, client := newTestRedis(t)
	l, err := NewRedisLimiter(client, 1, time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	result, err := l.Allow(ctx, "first")
	require.NoError(t, err)
	require.True(t, result.Allowed)

	result, err = l.Allow(ctx, "first")
	require.NoError(t, err)
	require.False(t, result.Allowed)

	result, err = l.Allow(ctx, "second")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

// alignToWindow sleeps until just after the next fixed window starts,
// so consecutive calls cannot straddle a boundary.
func alignToWindow(window time.Duration) {
	ms := window.Milliseconds()
	offset := time.Now().UnixMilli() % ms
	time.Sleep(time.Duration(ms-offset+2) * time.Millisecond)
}

func TestRedisLimiterWindowRollover(t *testing.T) {
	t.Parallel()

	_, client := newTestRedis(t)
	l, err := NewRedisLimiter(client, 1, 100*time.Millisecond)
	require.NoError(t, err)
	ctx := context.Background()

	alignToWindow(100 * time.Millisecond)

	result, err := l.Allow(ctx, "client")
	require.NoError(t, err)
	require.True(t, result.Allowed)

	result, err = l.Allow(ctx, "client")
	require.NoError(t, err)
	require.False(t, result.Allowed)

	// The next fixed window starts at most 100ms later.
	time.Sleep(150 * time.Millisecond)

	result, err = l.Allow(ctx, "client")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestRedisLimiterReset(t *testing.T) {
	t.Parallel()

	_, client := newTestRedis(t)
	l, err := NewRedisLimiter(client, 1, time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	result, err := l.Allow(ctx, "client")
	require.NoError(t, err)
	require.True(t, result.Allowed)

	result, err = l.Allow(ctx, "client")
	require.NoError(t, err)
	require.False(t, result.Allowed)

	require.NoError(t, l.Reset(ctx, "client"))

	result, err = l.Allow(ctx, "client")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestRedisLimiterUnavailable(t *testing.T) {
	t.Parallel()

	mr, client := newTestRedis(t)
	l, err := NewRedisLimiter(client, 1, time.Hour)
	require.NoError(t, err)

	mr.Close()

	_, err = l.Allow(context.Background(), "client")
	assert.Error(t, err)
}

func TestRedisLimiterGetLimit(t *testing.T) {
	t.Parallel()

	_, client := newTestRedis(t)
	l, err := NewRedisLimiter(client, 42, time.Minute)
	require.NoError(t, err)

	limit := l.GetLimit("any")
	require.NotNil(t, limit)
	assert.Equal(t, 42, limit.Requests)
	assert.Equal(t, time.Minute, limit.Window)
}
