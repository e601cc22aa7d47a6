package server

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcomes recorded by the GraphQL handler.
const (
	// OutcomeOK is a request that executed without errors.
	OutcomeOK = "ok"
	// OutcomeError is a request whose response carries GraphQL errors.
	OutcomeError = "error"
	// OutcomeRejected is a request the query guard rejected.
	OutcomeRejected = "rejected"
	// OutcomeBadRequest is a request with an unusable envelope.
	OutcomeBadRequest = "bad_request"
)

// Metrics holds the GraphQL endpoint metrics.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetrics creates endpoint metrics under the given namespace.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "sessions"
	}

	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "graphql_requests_total",
				Help:      "GraphQL requests by outcome",
			},
			[]string{"outcome"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "graphql_request_duration_seconds",
				Help:      "GraphQL request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
	}
}

// RecordRequest records one GraphQL request.
func (m *Metrics) RecordRequest(outcome string, duration time.Duration) {
	m.requestsTotal.WithLabelValues(outcome).Inc()
	m.requestDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// Registry returns the metrics registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// MustRegister registers the metrics with the given registry.
func (m *Metrics) MustRegister(registry *prometheus.Registry) {
	collectors := []prometheus.Collector{m.requestsTotal, m.requestDuration}
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
