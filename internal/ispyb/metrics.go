package ispyb

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for repository queries.
type Metrics struct {
	queryTotal    *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	registry      *prometheus.Registry
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "sessions"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.queryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ispyb",
			Name:      "query_total",
			Help:      "Total number of repository queries",
		},
		[]string{"operation", "status"},
	)

	m.queryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ispyb",
			Name:      "query_duration_seconds",
			Help:      "Repository query duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	m.registry.MustRegister(
		m.queryTotal,
		m.queryDuration,
	)

	return m
}

// RecordQuery records a repository query.
func (m *Metrics) RecordQuery(operation, status string, duration time.Duration) {
	m.queryTotal.WithLabelValues(operation, status).Inc()
	m.queryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// MustRegister registers the metrics with the given registry.
// AlreadyRegisteredError is silently ignored so repositories may be
// recreated against a shared registry.
func (m *Metrics) MustRegister(registry *prometheus.Registry) {
	for _, c := range []prometheus.Collector{
		m.queryTotal,
		m.queryDuration,
	} {
		if err := registry.Register(c); err != nil {
			if !isAlreadyRegistered(err) {
				panic(err)
			}
		}
	}
}

// isAlreadyRegistered returns true if the error indicates the
// collector was already registered with the registry.
func isAlreadyRegistered(err error) bool {
	var are prometheus.AlreadyRegisteredError
	return errors.As(err, &are)
}
