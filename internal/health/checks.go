package health

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SQLCheck probes the session database with a ping.
func SQLCheck(name string, db *sql.DB) Check {
	return NewCheckFunc(name, func(ctx context.Context) error {
		if db == nil {
			return fmt.Errorf("database connection is nil")
		}
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("database ping failed: %w", err)
		}
		return nil
	})
}

// HTTPCheck probes an HTTP dependency. Any response below 500 counts
// as reachable; the policy endpoint only answers POST, so a GET may
// legitimately return 404 or 405.
func HTTPCheck(name, url string, client *http.Client) Check {
	if client == nil {
		client = http.DefaultClient
	}

	return NewCheckFunc(name, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("unhealthy status code: %d", resp.StatusCode)
		}
		return nil
	})
}

// RedisCheck probes the rate limit Redis with a ping.
func RedisCheck(name string, client *redis.Client) Check {
	return NewCheckFunc(name, func(ctx context.Context) error {
		if client == nil {
			return fmt.Errorf("redis client is nil")
		}
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
		return nil
	})
}

// CachedCheck caches the result of a check for a TTL. Probes arrive
// more often than a dependency needs to be re-pinged.
type CachedCheck struct {
	check    Check
	cacheTTL time.Duration

	mu         sync.RWMutex
	lastCheck  time.Time
	lastResult error
}

// NewCachedCheck wraps a check with a result cache.
func NewCachedCheck(check Check, cacheTTL time.Duration) *CachedCheck {
	return &CachedCheck{
		check:    check,
		cacheTTL: cacheTTL,
	}
}

// Name returns the wrapped check name.
func (c *CachedCheck) Name() string {
	return c.check.Name()
}

// Check returns the cached result when fresh, otherwise runs the
// wrapped check.
func (c *CachedCheck) Check(ctx context.Context) error {
	c.mu.RLock()
	if time.Since(c.lastCheck) < c.cacheTTL {
		result := c.lastResult
		c.mu.RUnlock()
		return result
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another goroutine may have refreshed while we waited for the lock.
	if time.Since(c.lastCheck) < c.cacheTTL {
		return c.lastResult
	}

	c.lastResult = c.check.Check(ctx)
	c.lastCheck = time.Now()
	return c.lastResult
}
