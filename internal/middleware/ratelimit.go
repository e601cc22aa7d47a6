package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lightsource/sessions-api/internal/observability"
	"github.com/lightsource/sessions-api/internal/ratelimit"
)

// RateLimitConfig holds configuration for the rate limit middleware.
type RateLimitConfig struct {
	// Limiter is the rate limiter to use.
	Limiter ratelimit.Limiter

	// KeyFunc extracts the rate limit key from the request.
	KeyFunc ratelimit.KeyFunc

	// Logger for rate limit events.
	Logger observability.Logger

	// SkipPaths lists paths exempt from rate limiting.
	SkipPaths []string

	// IncludeHeaders adds the X-RateLimit response headers.
	IncludeHeaders bool
}

// RateLimit returns a middleware limiting requests per client.
func RateLimit(limiter ratelimit.Limiter) gin.HandlerFunc {
	return RateLimitWithConfig(RateLimitConfig{
		Limiter:        limiter,
		IncludeHeaders: true,
	})
}

// RateLimitWithConfig returns a rate limit middleware with custom
// configuration. A limiter failure lets the request through.
func RateLimitWithConfig(config RateLimitConfig) gin.HandlerFunc {
	if config.Limiter == nil {
		config.Limiter = ratelimit.NewNoopLimiter()
	}
	if config.KeyFunc == nil {
		config.KeyFunc = ratelimit.IPKeyFunc
	}
	if config.Logger == nil {
		config.Logger = observability.NopLogger()
	}

	skipPaths := make(map[string]bool)
	for _, path := range config.SkipPaths {
		skipPaths[path] = true
	}

	return func(c *gin.Context) {
		if skipPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		key := config.KeyFunc(c.Request)

		result, err := config.Limiter.Allow(c.Request.Context(), key)
		if err != nil {
			config.Logger.Error("rate limit check failed",
				observability.String("key", key),
				observability.Error(err),
			)
			c.Next()
			return
		}

		if config.IncludeHeaders {
			c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(result.ResetAfter).Unix(), 10))
		}

		if !result.Allowed {
			if config.IncludeHeaders {
				c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
			}

			config.Logger.Debug("rate limit exceeded",
				observability.String("key", key),
				observability.Int("limit", result.Limit),
			)

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too Many Requests",
				"message":     "Rate limit exceeded",
				"retry_after": int(result.RetryAfter.Seconds()),
			})
			return
		}

		c.Next()
	}
}
