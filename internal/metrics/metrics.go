// Package metrics provides Prometheus metrics for the reading engine
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Submission outcomes.
const (
	OutcomePersisted = "persisted"
	OutcomePartial   = "partial" // persisted with at least one failed output
	OutcomeRejected  = "rejected"
	OutcomeError     = "error" // persistence failure
)

// EngineMetrics contains Prometheus metrics for reading computation.
//
// All methods are safe to call on a nil receiver, which records nothing.
type EngineMetrics struct {
	registry *prometheus.Registry

	submissionsTotal   *prometheus.CounterVec
	outputFailures     *prometheus.CounterVec
	outputStatuses     *prometheus.CounterVec
	cacheLookups       *prometheus.CounterVec
	reprocessTotal     *prometheus.CounterVec
	submissionDuration prometheus.Histogram
}

// NewEngineMetrics creates and registers new engine metrics
func NewEngineMetrics(registry *prometheus.Registry) (*EngineMetrics, error) {
	m := &EngineMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *EngineMetrics) initMetrics() {
	m.submissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geoseg_submissions_total",
			Help: "Total number of reading submissions by outcome",
		},
		[]string{"outcome"}, // persisted, partial, rejected, error
	)

	m.outputFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geoseg_output_failures_total",
			Help: "Total number of outputs persisted with a failure marker",
		},
		[]string{"kind"},
	)

	m.outputStatuses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geoseg_output_status_total",
			Help: "Total number of classified outputs by limit status",
		},
		[]string{"status"},
	)

	m.cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geoseg_equation_cache_lookups_total",
			Help: "Total number of compiled equation cache lookups",
		},
		[]string{"result"}, // hit, miss, stale
	)

	m.reprocessTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geoseg_reprocess_total",
			Help: "Total number of explicit reading reprocess operations",
		},
		[]string{"outcome"},
	)

	m.submissionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "geoseg_submission_duration_seconds",
			Help: "Time taken to validate, compute, classify and persist a reading",
			// 100µs to ~0.8s; computation itself is sub-millisecond, the
			// tail is persistence.
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		},
	)
}

// Describe implements the Collector interface
func (m *EngineMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.submissionsTotal.Describe(ch)
	m.outputFailures.Describe(ch)
	m.outputStatuses.Describe(ch)
	m.cacheLookups.Describe(ch)
	m.reprocessTotal.Describe(ch)
	m.submissionDuration.Describe(ch)
}

// Collect implements the Collector interface
func (m *EngineMetrics) Collect(ch chan<- prometheus.Metric) {
	m.submissionsTotal.Collect(ch)
	m.outputFailures.Collect(ch)
	m.outputStatuses.Collect(ch)
	m.cacheLookups.Collect(ch)
	m.reprocessTotal.Collect(ch)
	m.submissionDuration.Collect(ch)
}

// RecordSubmission records the outcome and duration of one submission.
func (m *EngineMetrics) RecordSubmission(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(outcome).Inc()
	m.submissionDuration.Observe(duration.Seconds())
}

// RecordReprocess records the outcome of one reprocess operation.
func (m *EngineMetrics) RecordReprocess(outcome string) {
	if m == nil {
		return
	}
	m.reprocessTotal.WithLabelValues(outcome).Inc()
}

// RecordOutputFailure records one output persisted with a failure marker.
func (m *EngineMetrics) RecordOutputFailure(kind string) {
	if m == nil {
		return
	}
	m.outputFailures.WithLabelValues(kind).Inc()
}

// RecordOutputStatus records one classified output.
func (m *EngineMetrics) RecordOutputStatus(status string) {
	if m == nil {
		return
	}
	m.outputStatuses.WithLabelValues(status).Inc()
}

// ObserveCacheLookup records one equation cache lookup.
func (m *EngineMetrics) ObserveCacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}
