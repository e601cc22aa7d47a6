package ratelimit

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the rate limit metrics.
type Metrics struct {
	registry *prometheus.Registry

	decisionsTotal *prometheus.CounterVec
}

// NewMetrics creates rate limit metrics under the given namespace.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "sessions"
	}

	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		decisionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ratelimit",
				Name:      "decisions_total",
				Help:      "Rate limit decisions by backend and outcome",
			},
			[]string{"backend", "outcome"},
		),
	}
}

// RecordDecision records a rate limit decision.
func (m *Metrics) RecordDecision(backend, outcome string) {
	m.decisionsTotal.WithLabelValues(backend, outcome).Inc()
}

// Registry returns the metrics registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// MustRegister registers the metrics with the given registry.
func (m *Metrics) MustRegister(registry *prometheus.Registry) {
	collectors := []prometheus.Collector{m.decisionsTotal}
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
