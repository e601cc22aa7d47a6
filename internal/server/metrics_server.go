package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lightsource/sessions-api/internal/health"
	"github.com/lightsource/sessions-api/internal/observability"
)

// MetricsServerConfig holds configuration for the operational listener.
type MetricsServerConfig struct {
	// Port is the port to listen on.
	Port int

	// Path is the path to serve metrics on.
	Path string

	// ReadTimeout is the read timeout for the server.
	ReadTimeout time.Duration

	// WriteTimeout is the write timeout for the server.
	WriteTimeout time.Duration
}

// DefaultMetricsServerConfig returns a MetricsServerConfig with
// default values.
func DefaultMetricsServerConfig() *MetricsServerConfig {
	return &MetricsServerConfig{
		Port:         9090,
		Path:         "/metrics",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// MetricsServer is the operational listener serving Prometheus metrics
// and health probes, separate from the GraphQL listener.
type MetricsServer struct {
	config    *MetricsServerConfig
	logger    observability.Logger
	health    *health.Handler
	gatherers prometheus.Gatherers

	server   *http.Server
	stopOnce sync.Once
}

// MetricsServerOption is a functional option for the metrics server.
type MetricsServerOption func(*MetricsServer)

// WithMetricsLogger sets the logger.
func WithMetricsLogger(logger observability.Logger) MetricsServerOption {
	return func(s *MetricsServer) {
		s.logger = logger
	}
}

// WithHealthHandler mounts health probe routes on the listener.
func WithHealthHandler(handler *health.Handler) MetricsServerOption {
	return func(s *MetricsServer) {
		s.health = handler
	}
}

// WithGatherers sets the metric registries to expose. Component
// registries gather independently and merge in the response.
func WithGatherers(gatherers ...prometheus.Gatherer) MetricsServerOption {
	return func(s *MetricsServer) {
		s.gatherers = append(s.gatherers, gatherers...)
	}
}

// NewMetricsServer creates the operational listener.
func NewMetricsServer(config *MetricsServerConfig, opts ...MetricsServerOption) *MetricsServer {
	if config == nil {
		config = DefaultMetricsServerConfig()
	}

	s := &MetricsServer{
		config: config,
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Handler builds the listener's HTTP handler.
func (s *MetricsServer) Handler() http.Handler {
	var gatherer prometheus.Gatherer = s.gatherers
	if len(s.gatherers) == 0 {
		gatherer = prometheus.DefaultGatherer
	}

	mux := http.NewServeMux()
	mux.Handle(s.config.Path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorLog:            &promErrorLogger{logger: s.logger},
		ErrorHandling:       promhttp.ContinueOnError,
		MaxRequestsInFlight: 10,
		Timeout:             s.config.WriteTimeout,
		EnableOpenMetrics:   true,
	}))

	if s.health != nil {
		ginModeOnce.Do(func() {
			gin.SetMode(gin.ReleaseMode)
		})
		engine := gin.New()
		s.health.RegisterRoutes(engine)
		mux.Handle("/health", engine)
		mux.Handle("/live", engine)
		mux.Handle("/ready", engine)
	}

	return mux
}

// Start starts the listener and blocks until the context is cancelled
// or the listener fails.
func (s *MetricsServer) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("starting metrics server",
		observability.Int("port", s.config.Port),
		observability.String("path", s.config.Path),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return s.Stop(context.Background())
	case err := <-errCh:
		return err
	}
}

// Stop shuts the listener down gracefully.
func (s *MetricsServer) Stop(ctx context.Context) error {
	var stopErr error
	s.stopOnce.Do(func() {
		s.logger.Info("stopping metrics server")
		if s.server != nil {
			stopErr = s.server.Shutdown(ctx)
		}
	})
	return stopErr
}

// promErrorLogger adapts the logger to the promhttp.Logger interface.
type promErrorLogger struct {
	logger observability.Logger
}

// Println implements promhttp.Logger.
func (l *promErrorLogger) Println(v ...interface{}) {
	l.logger.Error(fmt.Sprint(v...))
}
