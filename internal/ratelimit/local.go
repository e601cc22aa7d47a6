package ratelimit

import (
	"context"
	"io"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/lightsource/sessions-api/internal/observability"
)

var (
	_ Limiter   = (*LocalLimiter)(nil)
	_ io.Closer = (*LocalLimiter)(nil)
)

const (
	defaultCleanupInterval = 5 * time.Minute
	defaultEntryTTL        = 10 * time.Minute
)

// LocalLimiter applies a token bucket per key in process memory. A
// background goroutine evicts keys that have been idle for longer than
// the entry TTL; call Close to stop it.
type LocalLimiter struct {
	rps     float64
	burst   int
	logger  observability.Logger
	metrics *Metrics

	entries sync.Map

	cleanupInterval time.Duration
	entryTTL        time.Duration
	stopCleanup     chan struct{}
	closeOnce       sync.Once
}

// entry is the bucket state for a single key.
type entry struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LocalOption is a functional option for the local limiter.
type LocalOption func(*LocalLimiter)

// WithLocalLogger sets the logger.
func WithLocalLogger(logger observability.Logger) LocalOption {
	return func(l *LocalLimiter) {
		l.logger = logger
	}
}

// WithLocalMetrics sets the metrics.
func WithLocalMetrics(metrics *Metrics) LocalOption {
	return func(l *LocalLimiter) {
		l.metrics = metrics
	}
}

// WithEntryTTL sets how long an idle key keeps its bucket.
func WithEntryTTL(ttl time.Duration) LocalOption {
	return func(l *LocalLimiter) {
		l.entryTTL = ttl
	}
}

// WithCleanupInterval sets the eviction interval.
func WithCleanupInterval(interval time.Duration) LocalOption {
	return func(l *LocalLimiter) {
		l.cleanupInterval = interval
	}
}

// NewLocalLimiter creates a per-key token bucket limiter refilling at
// requestsPerSecond with the given burst capacity.
func NewLocalLimiter(requestsPerSecond float64, burst int, opts ...LocalOption) *LocalLimiter {
	l := &LocalLimiter{
		rps:             requestsPerSecond,
		burst:           burst,
		logger:          observability.NopLogger(),
		cleanupInterval: defaultCleanupInterval,
		entryTTL:        defaultEntryTTL,
		stopCleanup:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.metrics == nil {
		l.metrics = NewMetrics("sessions")
	}

	go l.cleanupLoop()

	return l
}

// Allow implements Limiter.
func (l *LocalLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	return l.AllowN(ctx, key, 1)
}

// AllowN implements Limiter.
func (l *LocalLimiter) AllowN(ctx context.Context, key string, n int) (*Result, error) {
	now := time.Now()

	value, _ := l.entries.LoadOrStore(key, &entry{
		limiter: rate.NewLimiter(rate.Limit(l.rps), l.burst),
	})
	e := value.(*entry)

	e.mu.Lock()
	e.lastSeen = now
	allowed := e.limiter.AllowN(now, n)
	tokens := e.limiter.TokensAt(now)
	e.mu.Unlock()

	if tokens < 0 {
		tokens = 0
	}
	remaining := int(tokens)

	result := &Result{
		Allowed:    allowed,
		Limit:      l.burst,
		Remaining:  remaining,
		ResetAfter: l.durationForTokens(float64(l.burst) - tokens),
	}
	if !allowed {
		result.RetryAfter = l.durationForTokens(float64(n) - tokens)
		l.metrics.RecordDecision("local", "limited")
		return result, nil
	}

	l.metrics.RecordDecision("local", "allowed")
	return result, nil
}

// durationForTokens returns how long the bucket needs to accumulate
// the given number of tokens.
func (l *LocalLimiter) durationForTokens(tokens float64) time.Duration {
	if tokens <= 0 || l.rps <= 0 {
		return 0
	}
	return time.Duration(tokens / l.rps * float64(time.Second))
}

// GetLimit implements Limiter.
func (l *LocalLimiter) GetLimit(key string) *Limit {
	return &Limit{
		Requests: int(l.rps),
		Window:   time.Second,
		Burst:    l.burst,
	}
}

// Reset implements Limiter.
func (l *LocalLimiter) Reset(ctx context.Context, key string) error {
	l.entries.Delete(key)
	return nil
}

// Close implements io.Closer. Safe to call multiple times.
func (l *LocalLimiter) Close() error {
	l.closeOnce.Do(func() {
		close(l.stopCleanup)
	})
	return nil
}

// cleanupLoop periodically evicts idle buckets so the key space does
// not grow without bound.
func (l *LocalLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			evicted := l.evictStale(time.Now().Add(-l.entryTTL))
			if evicted > 0 {
				l.logger.Debug("evicted idle rate limit buckets",
					observability.Int("count", evicted),
				)
			}
		case <-l.stopCleanup:
			return
		}
	}
}

// evictStale removes entries last seen before the cutoff and returns
// how many were removed.
func (l *LocalLimiter) evictStale(cutoff time.Time) int {
	evicted := 0
	l.entries.Range(func(key, value interface{}) bool {
		e := value.(*entry)
		e.mu.Lock()
		stale := e.lastSeen.Before(cutoff)
		e.mu.Unlock()
		if stale {
			l.entries.Delete(key)
			evicted++
		}
		return true
	})
	return evicted
}
