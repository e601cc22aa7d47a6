package policy

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// findMetric returns the metric family with the given name, or nil.
func findMetric(families []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func TestMetricsRecordDecision(t *testing.T) {
	t.Parallel()

	m := NewMetrics("sessions_test")

	m.RecordDecision("session", "allowed", 5*time.Millisecond)
	m.RecordDecision("session", "allowed", 7*time.Millisecond)
	m.RecordDecision("session", "denied", 3*time.Millisecond)

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	total := findMetric(families, "sessions_test_policy_decision_total")
	require.NotNil(t, total)

	byDecision := map[string]float64{}
	for _, metric := range total.GetMetric() {
		for _, label := range metric.GetLabel() {
			if label.GetName() == "decision" {
				byDecision[label.GetValue()] = metric.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, 2.0, byDecision["allowed"])
	assert.Equal(t, 1.0, byDecision["denied"])

	duration := findMetric(families, "sessions_test_policy_decision_duration_seconds")
	require.NotNil(t, duration)
	assert.EqualValues(t, 2, duration.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestMetricsInit(t *testing.T) {
	t.Parallel()

	m := NewMetrics("sessions_test")
	m.Init("sessions", "session", "entities")

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	total := findMetric(families, "sessions_test_policy_decision_total")
	require.NotNil(t, total)
	// 3 operations x 3 decisions, all zero valued.
	assert.Len(t, total.GetMetric(), 9)
}

func TestMetricsMustRegisterIdempotent(t *testing.T) {
	t.Parallel()

	m := NewMetrics("sessions_test")
	registry := prometheus.NewRegistry()

	assert.NotPanics(t, func() {
		m.MustRegister(registry)
		m.MustRegister(registry)
	})
}
