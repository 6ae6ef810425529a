package authstack

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks decision outcomes and timings.
//
// Metrics:
//   - authstack_decisions_total: decisions by domain and verdict
//   - authstack_decision_duration_seconds: full decision duration
//   - authstack_completion_failures_total: failed commit/abort phases
type Metrics struct {
	decisionsTotal     *prometheus.CounterVec
	decisionDuration   *prometheus.HistogramVec
	completionFailures *prometheus.CounterVec
}

// NewMetrics creates and registers the decision metrics with the provided
// registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "authstack",
				Name:      "decisions_total",
				Help:      "Total number of authorization decisions",
			},
			[]string{"domain", "verdict"},
		),
		decisionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "authstack",
				Name:      "decision_duration_seconds",
				Help:      "Duration of a full authorization decision including completion",
				Buckets:   prometheus.ExponentialBuckets(0.000001, 2, 15),
			},
			[]string{"domain"},
		),
		completionFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "authstack",
				Name:      "completion_failures_total",
				Help:      "Total number of failed commit or abort phases",
			},
			[]string{"domain", "phase"},
		),
	}
	registerer.MustRegister(m.decisionsTotal, m.decisionDuration, m.completionFailures)
	return m
}

func (m *Metrics) observeDecision(domain string, verdict Verdict, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.decisionsTotal.WithLabelValues(domain, verdict.String()).Inc()
	m.decisionDuration.WithLabelValues(domain).Observe(elapsed.Seconds())
}

func (m *Metrics) observeCompletionFailure(domain, phase string) {
	if m == nil {
		return
	}
	m.completionFailures.WithLabelValues(domain, phase).Inc()
}
