package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightsource/sessions-api/internal/health"
)

func TestMetricsServerServesGatherers(t *testing.T) {
	endpoint := NewMetrics("opstest")
	endpoint.RecordRequest(OutcomeOK, 5*time.Millisecond)

	checks := health.NewMetrics("opstest")
	checks.RecordCheck("database", true, time.Millisecond)

	srv := NewMetricsServer(nil, WithGatherers(endpoint.Registry(), checks.Registry()))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "opstest_http_graphql_requests_total")
	assert.Contains(t, body, "opstest_health_checks_total")
}

func TestMetricsServerMountsHealthRoutes(t *testing.T) {
	handler := health.NewHandler()
	handler.AddCheck(health.NewCheckFunc("database", func(ctx context.Context) error {
		return errors.New("down")
	}))

	srv := NewMetricsServer(nil, WithHealthHandler(handler))
	mux := srv.Handler()

	live := httptest.NewRecorder()
	mux.ServeHTTP(live, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, live.Code)

	ready := httptest.NewRecorder()
	mux.ServeHTTP(ready, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, ready.Code)
}

func TestMetricsServerWithoutHealthHandler(t *testing.T) {
	srv := NewMetricsServer(nil)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsServerStartAndStop(t *testing.T) {
	config := DefaultMetricsServerConfig()
	config.Port = 0

	srv := NewMetricsServer(config)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Start(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("metrics server did not stop")
	}
}
