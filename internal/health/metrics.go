package health

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the health check metrics.
type Metrics struct {
	registry *prometheus.Registry

	checksTotal   *prometheus.CounterVec
	checkDuration *prometheus.HistogramVec
}

// NewMetrics creates health check metrics under the given namespace.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "sessions"
	}

	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		checksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "health",
				Name:      "checks_total",
				Help:      "Health check executions by check and status",
			},
			[]string{"check", "status"},
		),
		checkDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "health",
				Name:      "check_duration_seconds",
				Help:      "Health check duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"check"},
		),
	}
}

// RecordCheck records a single health check execution.
func (m *Metrics) RecordCheck(check string, ok bool, duration time.Duration) {
	status := "ok"
	if !ok {
		status = "error"
	}
	m.checksTotal.WithLabelValues(check, status).Inc()
	m.checkDuration.WithLabelValues(check).Observe(duration.Seconds())
}

// Registry returns the metrics registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// MustRegister registers the metrics with the given registry.
func (m *Metrics) MustRegister(registry *prometheus.Registry) {
	collectors := []prometheus.Collector{m.checksTotal, m.checkDuration}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil && !isAlreadyRegistered(err) {
			panic(err)
		}
	}
}

func isAlreadyRegistered(err error) bool {
	var are prometheus.AlreadyRegisteredError
	return errors.As(err, &are)
}
