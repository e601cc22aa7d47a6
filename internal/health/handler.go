package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lightsource/sessions-api/internal/observability"
)

const (
	// DefaultReadinessProbeTimeout bounds a readiness probe run.
	DefaultReadinessProbeTimeout = 5 * time.Second

	// DefaultHealthProbeTimeout bounds a detailed health probe run.
	DefaultHealthProbeTimeout = 10 * time.Second
)

// Check is a probe against a single dependency.
type Check interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckFunc adapts a function into a Check.
type CheckFunc struct {
	name string
	fn   func(ctx context.Context) error
}

// NewCheckFunc creates a named check from a function.
func NewCheckFunc(name string, fn func(ctx context.Context) error) *CheckFunc {
	return &CheckFunc{name: name, fn: fn}
}

// Name returns the check name.
func (f *CheckFunc) Name() string {
	return f.name
}

// Check runs the check.
func (f *CheckFunc) Check(ctx context.Context) error {
	return f.fn(ctx)
}

// Status is the probe response body.
type Status struct {
	Status    string                  `json:"status"`
	Timestamp time.Time               `json:"timestamp"`
	Uptime    string                  `json:"uptime,omitempty"`
	Checks    map[string]*CheckResult `json:"checks,omitempty"`
}

// CheckResult is the outcome of a single check.
type CheckResult struct {
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
	Duration string `json:"duration,omitempty"`
}

// HandlerConfig holds the probe timeouts.
type HandlerConfig struct {
	ReadinessProbeTimeout time.Duration
	HealthProbeTimeout    time.Duration
}

// DefaultHandlerConfig returns a HandlerConfig with default values.
func DefaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		ReadinessProbeTimeout: DefaultReadinessProbeTimeout,
		HealthProbeTimeout:    DefaultHealthProbeTimeout,
	}
}

// Handler serves the health endpoints.
type Handler struct {
	mu        sync.RWMutex
	checks    []Check
	logger    observability.Logger
	metrics   *Metrics
	config    *HandlerConfig
	startTime time.Time
}

// HandlerOption is a functional option for the handler.
type HandlerOption func(*Handler)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) HandlerOption {
	return func(h *Handler) {
		h.metrics = metrics
	}
}

// WithConfig sets the probe timeouts.
func WithConfig(config *HandlerConfig) HandlerOption {
	return func(h *Handler) {
		if config != nil {
			h.config = config
		}
	}
}

// NewHandler creates a health handler.
func NewHandler(opts ...HandlerOption) *Handler {
	h := &Handler{
		logger:    observability.NopLogger(),
		config:    DefaultHandlerConfig(),
		startTime: time.Now(),
	}

	for _, opt := range opts {
		opt(h)
	}

	if h.metrics == nil {
		h.metrics = NewMetrics("sessions")
	}

	return h
}

// AddCheck registers a dependency check.
func (h *Handler) AddCheck(check Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, check)
}

// LivenessHandler answers as long as the process runs.
func (h *Handler) LivenessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
		})
	}
}

// ReadinessHandler runs the dependency checks and answers 503 when
// any fails.
func (h *Handler) ReadinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.ReadinessProbeTimeout)
		defer cancel()

		status := h.runChecks(ctx)

		statusCode := http.StatusOK
		if status.Status != "ok" {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, status)
	}
}

// HealthHandler is the detailed probe, readiness plus uptime.
func (h *Handler) HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.config.HealthProbeTimeout)
		defer cancel()

		status := h.runChecks(ctx)
		status.Uptime = time.Since(h.startTime).Round(time.Second).String()

		statusCode := http.StatusOK
		if status.Status != "ok" {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, status)
	}
}

// RegisterRoutes registers the probe routes on a gin engine.
func (h *Handler) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/health", h.HealthHandler())
	engine.GET("/live", h.LivenessHandler())
	engine.GET("/ready", h.ReadinessHandler())
}

// runChecks runs all checks in parallel.
func (h *Handler) runChecks(ctx context.Context) *Status {
	h.mu.RLock()
	checks := make([]Check, len(h.checks))
	copy(checks, h.checks)
	h.mu.RUnlock()

	status := &Status{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]*CheckResult),
	}

	if len(checks) == 0 {
		return status
	}

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, check := range checks {
		wg.Add(1)
		go func(check Check) {
			defer wg.Done()

			start := time.Now()
			err := check.Check(ctx)
			duration := time.Since(start)

			result := &CheckResult{
				Status:   "ok",
				Duration: duration.String(),
			}

			if err != nil {
				result.Status = "error"
				result.Error = err.Error()

				h.logger.Warn("health check failed",
					observability.String("check", check.Name()),
					observability.Error(err),
					observability.Duration("duration", duration),
				)
			}

			h.metrics.RecordCheck(check.Name(), err == nil, duration)

			mu.Lock()
			if err != nil {
				status.Status = "error"
			}
			status.Checks[check.Name()] = result
			mu.Unlock()
		}(check)
	}

	wg.Wait()
	return status
}
