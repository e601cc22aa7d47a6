package ratelimit

import (
	"context"
	"time"
)

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	// Allow checks if a single request is allowed for the given key.
	Allow(ctx context.Context, key string) (*Result, error)

	// AllowN checks if n requests are allowed for the given key.
	AllowN(ctx context.Context, key string, n int) (*Result, error)

	// GetLimit returns the limit configuration for the given key.
	GetLimit(key string) *Limit

	// Reset clears the rate limit state for the given key.
	Reset(ctx context.Context, key string) error
}

// Limit describes a rate limit configuration.
type Limit struct {
	// Requests is the maximum number of requests allowed in the window.
	Requests int

	// Window is the time window for the rate limit.
	Window time.Duration

	// Burst is the maximum burst size.
	Burst int
}

// Result is the outcome of a rate limit check.
type Result struct {
	// Allowed indicates whether the request is allowed.
	Allowed bool

	// Limit is the maximum number of requests allowed.
	Limit int

	// Remaining is the number of requests left in the current window.
	Remaining int

	// ResetAfter is the duration until the rate limit resets.
	ResetAfter time.Duration

	// RetryAfter is the duration to wait before retrying. Zero when
	// the request was allowed.
	RetryAfter time.Duration
}

// NoopLimiter allows every request. It is wired when rate limiting is
// disabled so the middleware needs no nil checks.
type NoopLimiter struct{}

// NewNoopLimiter creates a limiter that never limits.
func NewNoopLimiter() *NoopLimiter {
	return &NoopLimiter{}
}

// Allow implements Limiter.
func (l *NoopLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	return &Result{Allowed: true}, nil
}

// AllowN implements Limiter.
func (l *NoopLimiter) AllowN(ctx context.Context, key string, n int) (*Result, error) {
	return &Result{Allowed: true}, nil
}

// GetLimit implements Limiter.
func (l *NoopLimiter) GetLimit(key string) *Limit {
	return nil
}

// Reset implements Limiter.
func (l *NoopLimiter) Reset(ctx context.Context, key string) error {
	return nil
}
