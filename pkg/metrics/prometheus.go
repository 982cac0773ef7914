package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	cacheEvictions *prometheus.CounterVec
	sourceAttempts *prometheus.CounterVec
	contextLatency prometheus.Histogram
	findings       *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		cacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsage_cache_hits_total",
				Help: "Cache hits by category",
			},
			[]string{"category"},
		),
		cacheMisses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsage_cache_misses_total",
				Help: "Cache misses by category",
			},
			[]string{"category"},
		),
		cacheEvictions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsage_cache_evictions_total",
				Help: "Cache evictions by reason",
			},
			[]string{"reason"},
		),
		sourceAttempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsage_source_attempts_total",
				Help: "Upstream source attempts by source, fact kind, and outcome",
			},
			[]string{"source", "kind", "outcome"},
		),
		contextLatency: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "finsage_context_build_duration_seconds",
				Help:    "End to end context assembly latency",
				Buckets: prometheus.DefBuckets,
			},
		),
		findings: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsage_compliance_findings_total",
				Help: "Compliance findings by severity",
			},
			[]string{"severity"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsage_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

// RecordCacheHit records a cache hit for a category.
func (r *Recorder) RecordCacheHit(category string) {
	r.cacheHits.WithLabelValues(category).Inc()
}

// RecordCacheMiss records a cache miss for a category.
func (r *Recorder) RecordCacheMiss(category string) {
	r.cacheMisses.WithLabelValues(category).Inc()
}

// RecordCacheEviction records an evicted cache entry.
func (r *Recorder) RecordCacheEviction(reason string) {
	r.cacheEvictions.WithLabelValues(reason).Inc()
}

// RecordSourceAttempt records one upstream fetch attempt outcome.
func (r *Recorder) RecordSourceAttempt(source, kind, outcome string) {
	r.sourceAttempts.WithLabelValues(source, kind, outcome).Inc()
}

// RecordContextLatency records context assembly latency in seconds.
func (r *Recorder) RecordContextLatency(seconds float64) {
	r.contextLatency.Observe(seconds)
}

// RecordFindings records compliance findings for a severity tier.
func (r *Recorder) RecordFindings(severity string, n int) {
	r.findings.WithLabelValues(severity).Add(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
