package policy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/lightsource/sessions-api/internal/auth"
)

type visitParams struct {
	Proposal int32 `json:"proposal"`
	Visit    int32 `json:"visit"`
}

// policyServer returns an httptest server answering every decision
// request with the given verdict, and a pointer to the last request
// body it saw.
func policyServer(t *testing.T, allow bool) (*httptest.Server, *atomic.Pointer[map[string]interface{}]) {
	t.Helper()

	var lastBody atomic.Pointer[map[string]interface{}]
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		lastBody.Store(&body)

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]bool{"allow": allow}))
	}))
	t.Cleanup(srv.Close)

	return srv, &lastBody
}

func TestDecideAllowed(t *testing.T) {
	t.Parallel()

	srv, _ := policyServer(t, true)

	client, err := New(srv.URL)
	require.NoError(t, err)

	err = Decide(context.Background(), client, "session", NewInput(context.Background(), visitParams{Proposal: 12345, Visit: 2}))
	assert.NoError(t, err)
}

func TestDecideDenied(t *testing.T) {
	t.Parallel()

	srv, _ := policyServer(t, false)

	client, err := New(srv.URL)
	require.NoError(t, err)

	err = Decide(context.Background(), client, "session", NewInput(context.Background(), visitParams{Proposal: 12345, Visit: 2}))
	require.Error(t, err)
	assert.True(t, IsDenied(err))
	assert.False(t, IsUnavailable(err))
}

func TestDecideForwardsToken(t *testing.T) {
	t.Parallel()

	srv, lastBody := policyServer(t, true)

	client, err := New(srv.URL)
	require.NoError(t, err)

	ctx := auth.ContextWithToken(context.Background(), "abc123")
	require.NoError(t, Decide(ctx, client, "sessions", NewInput(ctx, struct{}{})))

	body := *lastBody.Load()
	assert.Equal(t, "abc123", body["token"])
	assert.Equal(t, map[string]interface{}{}, body["parameters"])
}

func TestDecideNullTokenWhenAbsent(t *testing.T) {
	t.Parallel()

	srv, lastBody := policyServer(t, true)

	client, err := New(srv.URL)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, Decide(ctx, client, "sessions", NewInput(ctx, struct{}{})))

	body := *lastBody.Load()
	token, present := body["token"]
	require.True(t, present, "token key must always be serialized")
	assert.Nil(t, token)
}

func TestDecideSendsParameters(t *testing.T) {
	t.Parallel()

	srv, lastBody := policyServer(t, true)

	client, err := New(srv.URL)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, Decide(ctx, client, "session", NewInput(ctx, visitParams{Proposal: 12345, Visit: 2})))

	body := *lastBody.Load()
	params, ok := body["parameters"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 12345, params["proposal"])
	assert.EqualValues(t, 2, params["visit"])
}

func TestDecideUnavailable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "no such policy", http.StatusNotFound)
			},
		},
		{
			name: "malformed response",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("not json"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(tt.handler)
			t.Cleanup(srv.Close)

			client, err := New(srv.URL)
			require.NoError(t, err)

			err = Decide(context.Background(), client, "sessions", NewInput(context.Background(), struct{}{}))
			require.Error(t, err)
			assert.True(t, IsUnavailable(err))
			assert.False(t, IsDenied(err))
		})
	}
}

func TestDecideUnreachableEndpoint(t *testing.T) {
	t.Parallel()

	// A server that is already closed refuses connections.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client, err := New(srv.URL)
	require.NoError(t, err)

	err = Decide(context.Background(), client, "sessions", NewInput(context.Background(), struct{}{}))
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
}

func TestDecideTimeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"allow": true}`))
	}))
	t.Cleanup(srv.Close)

	client, err := New(srv.URL, WithTimeout(20*time.Millisecond))
	require.NoError(t, err)

	err = Decide(context.Background(), client, "sessions", NewInput(context.Background(), struct{}{}))
	require.Error(t, err)
	assert.True(t, IsUnavailable(err), "timeouts must fail closed")
}

func TestDecideInjectsTraceContext(t *testing.T) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	var traceparent atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceparent.Store(r.Header.Get("traceparent"))
		_, _ = w.Write([]byte(`{"allow": true}`))
	}))
	t.Cleanup(srv.Close)

	provider := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	ctx, span := provider.Tracer("test").Start(context.Background(), "incoming")
	defer span.End()

	client, err := New(srv.URL)
	require.NoError(t, err)

	require.NoError(t, Decide(ctx, client, "sessions", NewInput(ctx, struct{}{})))

	header, _ := traceparent.Load().(string)
	assert.NotEmpty(t, header, "decision request must carry trace context")
	assert.Contains(t, header, span.SpanContext().TraceID().String())
}

func TestDecideBreakerFailsClosed(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	client, err := New(srv.URL, WithBreaker(BreakerSettings{
		MaxFailures: 2,
		OpenTimeout: time.Minute,
	}))
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		err := Decide(ctx, client, "sessions", NewInput(ctx, struct{}{}))
		require.Error(t, err)
		assert.True(t, IsUnavailable(err))
	}

	// After two consecutive failures the breaker opens and no further
	// requests reach the endpoint.
	assert.EqualValues(t, 2, requests.Load())
}

func TestNewRequiresEndpoint(t *testing.T) {
	t.Parallel()

	_, err := New("")
	assert.Error(t, err)
}
