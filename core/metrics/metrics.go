package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "metadata_sync"

// Recorder collects per-run counters. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry  *prometheus.Registry
	tables    *prometheus.CounterVec
	index     *prometheus.CounterVec
	fallbacks prometheus.Counter
	regressed prometheus.Counter
	scanWait  prometheus.Histogram
}

// NewRecorder creates a recorder backed by a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		tables: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tables_total",
			Help:      "Tables processed, by outcome.",
		}, []string{"outcome"}),
		index: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_actions_total",
			Help:      "Search index upserts, by action.",
		}, []string{"action"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_profiles_total",
			Help:      "Profiles computed with direct queries instead of a managed scan.",
		}),
		regressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fidelity_regressions_total",
			Help:      "Partial documents that replaced a complete one.",
		}),
		scanWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_wait_seconds",
			Help:      "Time spent waiting for managed scan runs.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
	r.registry.MustRegister(r.tables, r.index, r.fallbacks, r.regressed, r.scanWait)
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// TableOutcome counts one finished table.
func (r *Recorder) TableOutcome(outcome string) {
	if r == nil {
		return
	}
	r.tables.WithLabelValues(outcome).Inc()
}

// IndexAction counts one index write decision.
func (r *Recorder) IndexAction(action string) {
	if r == nil {
		return
	}
	r.index.WithLabelValues(action).Inc()
}

// Fallback counts one fallback profile.
func (r *Recorder) Fallback() {
	if r == nil {
		return
	}
	r.fallbacks.Inc()
}

// Regression counts one fidelity regression.
func (r *Recorder) Regression() {
	if r == nil {
		return
	}
	r.regressed.Inc()
}

// ScanWait observes the seconds spent polling a scan job.
func (r *Recorder) ScanWait(seconds float64) {
	if r == nil {
		return
	}
	r.scanWait.Observe(seconds)
}

// WriteTextfile writes the registry to path in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
