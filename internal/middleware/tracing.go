package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/lightsource/sessions-api/internal/observability"
)

const (
	// defaultTracerName identifies spans started by this middleware.
	defaultTracerName = "sessions-api/server"
	// SpanKey is the gin context key for the server span.
	SpanKey = "otel-span"
)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	TracerProvider trace.TracerProvider
	Propagators    propagation.TextMapPropagator
	TracerName     string
	SkipPaths      []string
}

// Tracing returns a middleware that continues the caller's trace, so
// the policy and database spans hang off the router's request span.
func Tracing() gin.HandlerFunc {
	return TracingWithConfig(TracingConfig{})
}

// TracingWithConfig returns a tracing middleware with custom
// configuration.
func TracingWithConfig(config TracingConfig) gin.HandlerFunc {
	if config.TracerProvider == nil {
		config.TracerProvider = otel.GetTracerProvider()
	}
	if config.Propagators == nil {
		config.Propagators = otel.GetTextMapPropagator()
	}
	if config.TracerName == "" {
		config.TracerName = defaultTracerName
	}

	tracer := config.TracerProvider.Tracer(config.TracerName)

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

		ctx := config.Propagators.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		ctx, span := tracer.Start(ctx, fmt.Sprintf("%s %s", c.Request.Method, path),
			trace.WithSpanKind(trace.SpanKindServer),
		)
		defer span.End()

		span.SetAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.target", path),
			attribute.String("http.host", c.Request.Host),
			attribute.String("http.user_agent", c.Request.UserAgent()),
			attribute.String("net.peer.ip", c.ClientIP()),
		)
		if requestID := GetRequestID(c); requestID != "" {
			span.SetAttributes(attribute.String("request.id", requestID))
		}

		// Stamp the IDs into the context so request logs correlate
		// with the trace.
		spanCtx := span.SpanContext()
		if spanCtx.IsValid() {
			ctx = observability.ContextWithTraceID(ctx, spanCtx.TraceID().String())
			ctx = observability.ContextWithSpanID(ctx, spanCtx.SpanID().String())
		}

		c.Set(SpanKey, span)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(
			attribute.Int("http.status_code", status),
			attribute.Int("http.response_content_length", c.Writer.Size()),
		)

		if len(c.Errors) > 0 {
			span.RecordError(fmt.Errorf("%s", c.Errors.String()))
		}
		if status >= 500 {
			span.SetAttributes(attribute.Bool("error", true))
		}
	}
}

// GetSpan returns the server span from the gin context.
func GetSpan(c *gin.Context) trace.Span {
	if span, exists := c.Get(SpanKey); exists {
		if s, ok := span.(trace.Span); ok {
			return s
		}
	}
	return nil
}
