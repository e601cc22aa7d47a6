package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lightsource/sessions-api/internal/observability"
)

// LoggingConfig holds configuration for the logging middleware.
type LoggingConfig struct {
	Logger observability.Logger

	// SkipPaths lists paths that are not logged, typically the
	// health and metrics endpoints.
	SkipPaths []string
}

// Logging returns a middleware that logs completed requests.
func Logging(logger observability.Logger) gin.HandlerFunc {
	return LoggingWithConfig(LoggingConfig{Logger: logger})
}

// LoggingWithConfig returns a logging middleware with custom
// configuration.
func LoggingWithConfig(config LoggingConfig) gin.HandlerFunc {
	if config.Logger == nil {
		config.Logger = observability.NopLogger()
	}

	skipPaths := make(map[string]bool)
	for _, path := range config.SkipPaths {
		skipPaths[path] = true
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if skipPaths[path] {
			c.Next()
			return
		}

		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		fields := buildLogFields(c, path, time.Since(start), status)
		logRequestByStatus(config.Logger.WithContext(c.Request.Context()), status, fields)
	}
}

// buildLogFields builds the log fields from request and response data.
func buildLogFields(c *gin.Context, path string, latency time.Duration, status int) []observability.Field {
	fields := []observability.Field{
		observability.String("method", c.Request.Method),
		observability.String("path", path),
		observability.Int("status", status),
		observability.Duration("latency", latency),
		observability.String("client_ip", c.ClientIP()),
		observability.Int("body_size", c.Writer.Size()),
	}

	if len(c.Errors) > 0 {
		fields = append(fields, observability.String("errors", c.Errors.String()))
	}

	return fields
}

// logRequestByStatus picks the log level from the status code.
func logRequestByStatus(logger observability.Logger, status int, fields []observability.Field) {
	switch {
	case status >= 500:
		logger.Error("request completed", fields...)
	case status >= 400:
		logger.Warn("request completed", fields...)
	default:
		logger.Info("request completed", fields...)
	}
}
