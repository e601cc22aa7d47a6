package policy

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for policy decisions.
type Metrics struct {
	decisionTotal    *prometheus.CounterVec
	decisionDuration *prometheus.HistogramVec
	registry         *prometheus.Registry
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "sessions"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.decisionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "policy",
			Name:      "decision_total",
			Help:      "Total number of policy decision requests",
		},
		[]string{"operation", "decision"},
	)

	m.decisionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "policy",
			Name:      "decision_duration_seconds",
			Help:      "Policy decision request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation", "decision"},
	)

	m.registry.MustRegister(
		m.decisionTotal,
		m.decisionDuration,
	)

	return m
}

// Init pre-initializes common label combinations with zero values so
// that metrics appear in /metrics output immediately after startup.
// Prometheus *Vec types only emit metric lines after WithLabelValues()
// is called at least once. This method is idempotent.
func (m *Metrics) Init(operations ...string) {
	for _, op := range operations {
		for _, decision := range []string{"allowed", "denied", "error"} {
			m.decisionTotal.WithLabelValues(op, decision)
			m.decisionDuration.WithLabelValues(op, decision)
		}
	}
}

// RecordDecision records a policy decision request.
func (m *Metrics) RecordDecision(operation, decision string, duration time.Duration) {
	m.decisionTotal.WithLabelValues(operation, decision).Inc()
	m.decisionDuration.WithLabelValues(operation, decision).Observe(duration.Seconds())
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// MustRegister registers the metrics with the given registry.
// It uses Register (not MustRegister) to gracefully handle duplicate
// registration when clients are recreated. AlreadyRegisteredError is
// silently ignored.
func (m *Metrics) MustRegister(registry *prometheus.Registry) {
	for _, c := range []prometheus.Collector{
		m.decisionTotal,
		m.decisionDuration,
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
