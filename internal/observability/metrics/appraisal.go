package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "collector"

// AppraisalMetrics counts analysis outcomes and backend resilience events. It satisfies both
// ports.AppraisalObserver and resilience.Observer.
type AppraisalMetrics struct {
	service string

	analysisTotal     *prometheus.CounterVec
	appraisalDuration *prometheus.HistogramVec
	retriesTotal      *prometheus.CounterVec
	breakerState      *prometheus.GaugeVec
}

func newAppraisalMetrics(service string, registerer prometheus.Registerer) *AppraisalMetrics {
	analysisTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "appraisal",
			Name:      "analysis_total",
			Help:      "Analyses run during appraisal by analysis and outcome.",
		},
		[]string{"service", "analysis", "outcome"},
	)
	appraisalDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "appraisal",
			Name:      "duration_seconds",
			Help:      "End-to-end appraisal duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"service", "mode"},
	)
	retriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "retries_total",
			Help:      "Retried backend calls by operation.",
		},
		[]string{"service", "operation"},
	)
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "circuit_state",
			Help:      "Circuit breaker state by operation: 0 closed, 1 half-open, 2 open.",
		},
		[]string{"service", "operation"},
	)

	registerer.MustRegister(analysisTotal, appraisalDuration, retriesTotal, breakerState)

	return &AppraisalMetrics{
		service:           service,
		analysisTotal:     analysisTotal,
		appraisalDuration: appraisalDuration,
		retriesTotal:      retriesTotal,
		breakerState:      breakerState,
	}
}

func (m *AppraisalMetrics) ObserveAnalysis(analysis, outcome string) {
	m.analysisTotal.WithLabelValues(m.service, analysis, outcome).Inc()
}

// ObserveAppraisal records one finished appraisal; mode is "sync", "batch" or "scan".
func (m *AppraisalMetrics) ObserveAppraisal(mode string, duration time.Duration) {
	m.appraisalDuration.WithLabelValues(m.service, mode).Observe(duration.Seconds())
}

func (m *AppraisalMetrics) ObserveRetry(operation string) {
	m.retriesTotal.WithLabelValues(m.service, operation).Inc()
}

func (m *AppraisalMetrics) ObserveBreakerState(operation string, state string) {
	var v float64
	switch state {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	m.breakerState.WithLabelValues(m.service, operation).Set(v)
}
