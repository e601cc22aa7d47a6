package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func tracingTestRouter(t *testing.T, handler gin.HandlerFunc) (*gin.Engine, *tracetest.SpanRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	router := gin.New()
	router.Use(RequestID(), TracingWithConfig(TracingConfig{
		TracerProvider: provider,
		Propagators:    propagation.TraceContext{},
		SkipPaths:      []string{"/metrics"},
	}))
	router.POST("/", handler)
	router.POST("/metrics", handler)

	return router, recorder
}

func TestTracingStartsServerSpan(t *testing.T) {
	var spanInHandler trace.Span

	router, recorder := tracingTestRouter(t, func(c *gin.Context) {
		spanInHandler = GetSpan(c)
		c.String(http.StatusOK, "OK")
	})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.NotNil(t, spanInHandler)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]

	assert.Equal(t, "POST /", span.Name())
	assert.Equal(t, trace.SpanKindServer, span.SpanKind())

	attrs := span.Attributes()
	assert.Contains(t, attrs, attribute.String("http.method", "POST"))
	assert.Contains(t, attrs, attribute.Int("http.status_code", http.StatusOK))
}

func TestTracingContinuesCallerTrace(t *testing.T) {
	router, recorder := tracingTestRouter(t, func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("traceparent", "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	spans := recorder.Ended()
	require.Len(t, spans, 1)

	assert.Equal(t, "0af7651916cd43dd8448eb211c80319c", spans[0].SpanContext().TraceID().String(),
		"the server span joins the caller's trace")
	assert.Equal(t, "b7ad6b7169203331", spans[0].Parent().SpanID().String())
}

func TestTracingSkipPaths(t *testing.T) {
	router, recorder := tracingTestRouter(t, func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	req := httptest.NewRequest(http.MethodPost, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Empty(t, recorder.Ended())
}
