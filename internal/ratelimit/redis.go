package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lightsource/sessions-api/internal/observability"
)

var _ Limiter = (*RedisLimiter)(nil)

// keyPrefix namespaces rate limit keys in a shared Redis.
const keyPrefix = "sessions:ratelimit:"

// fixedWindowScript counts requests per fixed window atomically.
// KEYS[1] = base key, ARGV = limit, window ms, now ms, requested.
// Returns {allowed (0 or 1), remaining, reset ms}.
var fixedWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local limit = tonumber(ARGV[1])
	local window_ms = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])
	local requested = tonumber(ARGV[4])

	local window_start = math.floor(now / window_ms) * window_ms
	local window_key = key .. ':' .. window_start

	local count = tonumber(redis.call('GET', window_key) or '0')

	local allowed = 0
	if count + requested <= limit then
		count = redis.call('INCRBY', window_key, requested)
		if count == requested then
			redis.call('PEXPIRE', window_key, window_ms)
		end
		allowed = 1
	end

	return {allowed, limit - count, window_start + window_ms - now}
`)

// RedisLimiter applies a fixed window limit shared across replicas.
// It does not own the client; the caller closes it.
type RedisLimiter struct {
	client  *redis.Client
	limit   int64
	window  time.Duration
	logger  observability.Logger
	metrics *Metrics
}

// RedisOption is a functional option for the Redis limiter.
type RedisOption func(*RedisLimiter)

// WithRedisLogger sets the logger.
func WithRedisLogger(logger observability.Logger) RedisOption {
	return func(l *RedisLimiter) {
		l.logger = logger
	}
}

// WithRedisMetrics sets the metrics.
func WithRedisMetrics(metrics *Metrics) RedisOption {
	return func(l *RedisLimiter) {
		l.metrics = metrics
	}
}

// NewRedisLimiter creates a fixed window limiter allowing limit
// requests per window.
func NewRedisLimiter(client *redis.Client, limit int64, window time.Duration, opts ...RedisOption) (*RedisLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	if window <= 0 {
		return nil, fmt.Errorf("window must be positive, got %s", window)
	}

	l := &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.metrics == nil {
		l.metrics = NewMetrics("sessions")
	}

	return l, nil
}

// Allow implements Limiter.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	return l.AllowN(ctx, key, 1)
}

// AllowN implements Limiter.
func (l *RedisLimiter) AllowN(ctx context.Context, key string, n int) (*Result, error) {
	now := time.Now().UnixMilli()

	raw, err := fixedWindowScript.Run(ctx, l.client,
		[]string{keyPrefix + key},
		l.limit,
		l.window.Milliseconds(),
		now,
		n,
	).Result()
	if err != nil {
		l.metrics.RecordDecision("redis", "error")
		l.logger.Warn("rate limit script failed",
			observability.String("key", key),
			observability.Error(err),
		)
		return nil, fmt.Errorf("fixed window script: %w", err)
	}

	result, err := parseScriptResult(raw, int(l.limit))
	if err != nil {
		l.metrics.RecordDecision("redis", "error")
		return nil, err
	}

	if result.Allowed {
		l.metrics.RecordDecision("redis", "allowed")
	} else {
		l.metrics.RecordDecision("redis", "limited")
	}

	return result, nil
}

// parseScriptResult decodes the {allowed, remaining, reset ms} reply.
func parseScriptResult(raw interface{}, limit int) (*Result, error) {
	values, ok := raw.([]interface{})
	if !ok || len(values) < 3 {
		return nil, fmt.Errorf("unexpected script result: %v", raw)
	}

	allowed := false
	if v, ok := values[0].(int64); ok && v == 1 {
		allowed = true
	}

	remaining := 0
	if v, ok := values[1].(int64); ok && v > 0 {
		remaining = int(v)
	}

	var resetMs int64
	if v, ok := values[2].(int64); ok {
		resetMs = v
	}

	result := &Result{
		Allowed:    allowed,
		Limit:      limit,
		Remaining:  remaining,
		ResetAfter: time.Duration(resetMs) * time.Millisecond,
	}
	if !allowed {
		result.RetryAfter = result.ResetAfter
	}

	return result, nil
}

// GetLimit implements Limiter.
func (l *RedisLimiter) GetLimit(key string) *Limit {
	return &Limit{
		Requests: int(l.limit),
		Window:   l.window,
	}
}

// Reset implements Limiter. It clears the current window for the key.
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	now := time.Now().UnixMilli()
	windowMs := l.window.Milliseconds()
	windowStart := now / windowMs * windowMs

	windowKey := fmt.Sprintf("%s%s:%d", keyPrefix, key, windowStart)
	if err := l.client.Del(ctx, windowKey).Err(); err != nil {
		return fmt.Errorf("reset rate limit: %w", err)
	}
	return nil
}
