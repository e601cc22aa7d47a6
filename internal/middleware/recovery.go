package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/lightsource/sessions-api/internal/observability"
)

// Recovery returns a middleware that recovers from panics, logs the
// stack and answers with an opaque 500.
func Recovery(logger observability.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = observability.NopLogger()
	}

	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				stack := debug.Stack()

				fields := []observability.Field{
					observability.Any("error", err),
					observability.String("method", c.Request.Method),
					observability.String("path", c.Request.URL.Path),
					observability.String("client_ip", c.ClientIP()),
					observability.String("stack", string(stack)),
				}
				if requestID := GetRequestID(c); requestID != "" {
					fields = append(fields, observability.String("request_id", requestID))
				}
				logger.Error("panic recovered", fields...)

				if span := GetSpan(c); span != nil {
					span.RecordError(fmt.Errorf("panic: %v", err))
				}

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":   "Internal Server Error",
					"message": "An unexpected error occurred",
				})
			}
		}()

		c.Next()
	}
}
