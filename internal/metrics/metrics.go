// Package metrics exposes prometheus collectors for try-on runs and exports.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeCancelled = "cancelled"
)

// Metrics holds the try-on collectors
type Metrics struct {
	stageDuration *prometheus.HistogramVec
	runs          *prometheus.CounterVec
	stale         prometheus.Counter
	exports       *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tryon",
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2, 5, 10},
		}, []string{"stage", "outcome"}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tryon",
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		stale: f.NewCounter(prometheus.CounterOpts{
			Namespace: "tryon",
			Name:      "stale_completions_total",
			Help:      "Completions discarded because a newer acquisition or reset superseded them.",
		}),
		exports: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tryon",
			Name:      "exports_total",
			Help:      "Result exports by method and outcome.",
		}, []string{"method", "outcome"}),
	}
}

// ObserveStage records the duration of one pipeline stage
func (m *Metrics) ObserveStage(stage, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage, outcome).Observe(d.Seconds())
}

// RunFinished counts a completed pipeline run
func (m *Metrics) RunFinished(outcome string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
}

// StaleCompletion counts a discarded completion
func (m *Metrics) StaleCompletion() {
	if m == nil {
		return
	}
	m.stale.Inc()
}

// Export counts one export attempt
func (m *Metrics) Export(method, outcome string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(method, outcome).Inc()
}

// WriteTextfile dumps everything gathered by g in the text exposition format
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
