package graph

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for GraphQL execution.
type Metrics struct {
	operationsTotal *prometheus.CounterVec
	guardRejected   *prometheus.CounterVec
	queryDepth      prometheus.Histogram
	queryComplexity prometheus.Histogram
	registry        *prometheus.Registry
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "sessions"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	factory := promauto.With(m.registry)

	m.operationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "graphql",
			Name:      "operations_total",
			Help:      "Total number of resolved GraphQL operations",
		},
		[]string{"operation", "outcome"},
	)

	m.guardRejected = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "graphql",
			Name:      "guard_rejected_total",
			Help:      "Total number of queries rejected before execution",
		},
		[]string{"check"},
	)

	m.queryDepth = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "graphql",
			Name:      "query_depth",
			Help:      "Distribution of GraphQL query depths",
			Buckets:   []float64{1, 2, 3, 5, 7, 10, 15, 20, 30, 50},
		},
	)

	m.queryComplexity = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "graphql",
			Name:      "query_complexity",
			Help:      "Distribution of GraphQL query complexity scores",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	return m
}

// RecordOperation records one resolved operation.
func (m *Metrics) RecordOperation(operation, outcome string) {
	m.operationsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordGuardRejected records one query rejected by a guard check.
func (m *Metrics) RecordGuardRejected(check string) {
	m.guardRejected.WithLabelValues(check).Inc()
}

// RecordQueryShape records the analyzed depth and complexity of a
// query.
func (m *Metrics) RecordQueryShape(depth, complexity int) {
	m.queryDepth.Observe(float64(depth))
	m.queryComplexity.Observe(float64(complexity))
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// MustRegister registers the metrics with the given registry.
// AlreadyRegisteredError is silently ignored.
func (m *Metrics) MustRegister(registry *prometheus.Registry) {
	for _, c := range []prometheus.Collector{
		m.operationsTotal,
		m.guardRejected,
		m.queryDepth,
		m.queryComplexity,
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
