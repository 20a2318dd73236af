package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	councilRuns      *prometheus.CounterVec
	expertOutcomes   *prometheus.CounterVec
	fallbacksTotal   *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	quorumSize       prometheus.Histogram
	latency          *prometheus.HistogramVec
	lastPrice        *prometheus.GaugeVec
	reportsPersisted *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		councilRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "council_runs_total",
				Help: "Total number of council runs by outcome decision",
			},
			[]string{"decision"},
		),
		expertOutcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "council_expert_outcomes_total",
				Help: "Per-expert attempt outcomes",
			},
			[]string{"expert", "outcome"},
		),
		fallbacksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "council_fallbacks_total",
				Help: "Fallback substitutions triggered per expert",
			},
			[]string{"expert"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "council_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		quorumSize: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "council_successful_experts",
				Help:    "Number of successful expert analyses per run",
				Buckets: []float64{0, 1, 2, 3, 4, 5, 6, 7, 8},
			},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "council_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "council_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		reportsPersisted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "council_reports_persisted_total",
				Help: "Reports appended to the history store per backend",
			},
			[]string{"backend"},
		),
	}
}

// RecordCouncilRun records a completed council run and its gate decision.
func (r *Recorder) RecordCouncilRun(decision string) {
	r.councilRuns.WithLabelValues(decision).Inc()
}

// RecordExpertOutcome records the final outcome of one expert's analysis.
func (r *Recorder) RecordExpertOutcome(expert, outcome string) {
	r.expertOutcomes.WithLabelValues(expert, outcome).Inc()
}

// RecordFallback records a primary-to-fallback substitution.
func (r *Recorder) RecordFallback(expert string) {
	r.fallbacksTotal.WithLabelValues(expert).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordQuorum records how many experts succeeded in a run.
func (r *Recorder) RecordQuorum(successes int) {
	r.quorumSize.Observe(float64(successes))
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordReportPersisted records a report append per history backend.
func (r *Recorder) RecordReportPersisted(backend string) {
	r.reportsPersisted.WithLabelValues(backend).Inc()
}
