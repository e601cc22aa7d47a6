package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lightsource/sessions-api/internal/observability"
)

// RequestTimeout puts a deadline on the request context. Handlers and
// everything below them observe the deadline through context
// cancellation; the policy client and the database driver both do.
func RequestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// SlowRequestLogger logs requests slower than the threshold.
func SlowRequestLogger(threshold time.Duration, logger observability.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = observability.NopLogger()
	}

	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)
		if duration > threshold {
			logger.Warn("slow request",
				observability.String("method", c.Request.Method),
				observability.String("path", c.Request.URL.Path),
				observability.Duration("duration", duration),
				observability.Duration("threshold", threshold),
				observability.Int("status", c.Writer.Status()),
			)
		}
	}
}
