// Package metrics exposes the Prometheus instrumentation for the
// validation service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ValidationMetrics counts evaluations and diagnostics. A nil receiver is
// a no-op, so callers can run without a registry.
type ValidationMetrics struct {
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	diagnosticsTotal   *prometheus.CounterVec
}

// NewValidationMetrics registers the validation collectors on reg.
func NewValidationMetrics(reg prometheus.Registerer) *ValidationMetrics {
	m := &ValidationMetrics{
		evaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ceres",
			Name:      "evaluations_total",
			Help:      "Completed validation evaluations by outcome.",
		}, []string{"status", "beneficiary_type"}),
		evaluationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ceres",
			Name:      "evaluation_duration_seconds",
			Help:      "Wall time of one validation evaluation.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}, []string{"beneficiary_type"}),
		diagnosticsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ceres",
			Name:      "diagnostics_total",
			Help:      "Reported diagnostics by category.",
		}, []string{"category"}),
	}
	reg.MustRegister(m.evaluationsTotal, m.evaluationDuration, m.diagnosticsTotal)
	return m
}

// NewRegistry returns a registry pre-loaded with the standard process and
// Go runtime collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// ObserveEvaluation records one finished evaluation.
func (m *ValidationMetrics) ObserveEvaluation(status, beneficiaryType string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.evaluationsTotal.WithLabelValues(status, beneficiaryType).Inc()
	m.evaluationDuration.WithLabelValues(beneficiaryType).Observe(elapsed.Seconds())
}

// AddDiagnostics records reported diagnostics for one category.
func (m *ValidationMetrics) AddDiagnostics(category string, count int) {
	if m == nil || count == 0 {
		return
	}
	m.diagnosticsTotal.WithLabelValues(category).Add(float64(count))
}
