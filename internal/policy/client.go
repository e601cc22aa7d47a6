package policy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lightsource/sessions-api/internal/auth"
	"github.com/lightsource/sessions-api/internal/observability"
)

// DefaultTimeout is the default timeout for policy decision requests.
const DefaultTimeout = 30 * time.Second

// Input is the request body sent to the policy endpoint. Token is null
// when the caller presented no bearer token; Parameters carries the
// operation arguments the policy needs to decide on.
type Input[P any] struct {
	Token      *string `json:"token"`
	Parameters P       `json:"parameters"`
}

// NewInput builds a policy input from the request context. The bearer
// token, when the request carried one, is forwarded verbatim.
func NewInput[P any](ctx context.Context, parameters P) Input[P] {
	input := Input[P]{Parameters: parameters}
	if token, ok := auth.TokenFromContext(ctx); ok {
		input.Token = &token
	}
	return input
}

// decisionResponse is the response body from the policy endpoint.
type decisionResponse struct {
	Allow bool `json:"allow"`
}

// BreakerSettings configures the optional circuit breaker. While the
// breaker is open every decision fails closed as unavailable.
type BreakerSettings struct {
	// MaxFailures is the number of consecutive failures that opens the
	// breaker.
	MaxFailures uint32

	// Interval is the cyclic period in the closed state after which
	// failure counts reset.
	Interval time.Duration

	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
}

// Client sends decision requests to the external policy endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     observability.Logger
	metrics    *Metrics
	breaker    *gobreaker.CircuitBreaker
	tracer     trace.Tracer
}

// Option is a functional option for the policy client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(c *Client) {
		c.metrics = metrics
	}
}

// WithBreaker wraps decision requests in a circuit breaker.
func WithBreaker(settings BreakerSettings) Option {
	return func(c *Client) {
		maxFailures := settings.MaxFailures
		if maxFailures == 0 {
			maxFailures = 5
		}
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:     "policy",
			Interval: settings.Interval,
			Timeout:  settings.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
		})
	}
}

// New creates a policy client for the given decision endpoint.
func New(endpoint string, opts ...Option) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("policy endpoint is required")
	}

	c := &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: observability.NopLogger(),
		tracer: otel.Tracer("sessions-api/policy"),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.metrics == nil {
		c.metrics = NewMetrics("sessions")
	}

	return c, nil
}

// Decide authorizes one operation against the policy endpoint. It
// returns nil when the endpoint allows, ErrDenied when it denies, and
// ErrUnavailable when no decision could be obtained. Callers must not
// touch the repository before Decide has returned nil.
func Decide[P any](ctx context.Context, c *Client, operation string, input Input[P]) error {
	start := time.Now()

	ctx, span := c.tracer.Start(ctx, "policy.decide",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("policy.operation", operation)),
	)
	defer span.End()

	body, err := json.Marshal(input)
	if err != nil {
		c.metrics.RecordDecision(operation, "error", time.Since(start))
		return NewUnavailableError(operation, fmt.Errorf("failed to marshal input: %w", err))
	}

	allowed, err := c.post(ctx, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "policy request failed")
		c.metrics.RecordDecision(operation, "error", time.Since(start))
		c.logger.WithContext(ctx).Warn("policy decision unavailable",
			observability.String("operation", operation),
			observability.Error(err),
		)
		return NewUnavailableError(operation, err)
	}

	span.SetAttributes(attribute.Bool("policy.allow", allowed))

	if !allowed {
		c.metrics.RecordDecision(operation, "denied", time.Since(start))
		c.logger.WithContext(ctx).Info("policy denied operation",
			observability.String("operation", operation),
			observability.Bool("token_present", input.Token != nil),
		)
		return NewDeniedError(operation)
	}

	c.metrics.RecordDecision(operation, "allowed", time.Since(start))
	c.logger.WithContext(ctx).Debug("policy allowed operation",
		observability.String("operation", operation),
	)
	return nil
}

// post performs one decision request, through the breaker when one is
// configured. There is no retry: an unavailable policy endpoint must
// surface immediately rather than stall the query.
func (c *Client) post(ctx context.Context, body []byte) (bool, error) {
	if c.breaker == nil {
		return c.doPost(ctx, body)
	}

	allowed, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doPost(ctx, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return false, fmt.Errorf("circuit breaker open: %w", err)
		}
		return false, err
	}
	return allowed.(bool), nil
}

// doPost performs a single decision request against the endpoint.
func (c *Client) doPost(ctx context.Context, body []byte) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	observability.InjectTraceContext(ctx, req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return false, &httpError{
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	var decision decisionResponse
	if err := json.Unmarshal(respBody, &decision); err != nil {
		return false, fmt.Errorf("failed to parse response: %w", err)
	}

	return decision.Allow, nil
}

// Close releases idle connections held by the client.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// httpError represents a non-200 response from the policy endpoint.
type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("policy endpoint returned status %d: %s", e.StatusCode, e.Body)
}
