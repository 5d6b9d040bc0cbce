package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the duplicate-detection module.
type Metrics struct {
	ScansStarted   prometheus.Counter
	ScansCompleted *prometheus.CounterVec
	GroupsFound    prometheus.Counter
	ScanDuration   prometheus.Histogram
	MergesTotal    *prometheus.CounterVec
	MergedSlaves   prometheus.Counter
	MergeDuration  prometheus.Histogram
}

// New creates a Metrics instance with all duplicate-module metrics registered.
func New() *Metrics {
	return &Metrics{
		ScansStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scolaris_duplicate_scans_started_total",
			Help: "Total number of duplicate scans started",
		}),
		ScansCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scolaris_duplicate_scans_finished_total",
			Help: "Total number of duplicate scans finished, by terminal status",
		}, []string{"status"}),
		GroupsFound: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scolaris_duplicate_groups_found_total",
			Help: "Total number of new duplicate groups discovered by scans",
		}),
		ScanDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "scolaris_duplicate_scan_duration_seconds",
			Help:    "Duration of duplicate scans",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		MergesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scolaris_duplicate_merges_total",
			Help: "Total number of merge attempts, by outcome",
		}, []string{"outcome"}),
		MergedSlaves: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scolaris_duplicate_merged_slaves_total",
			Help: "Total number of slave students absorbed by merges",
		}),
		MergeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "scolaris_duplicate_merge_duration_seconds",
			Help:    "Duration of merge transactions",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

// ObserveScan records a finished scan with its terminal status.
func (m *Metrics) ObserveScan(status string, start time.Time) {
	m.ScansCompleted.WithLabelValues(status).Inc()
	m.ScanDuration.Observe(time.Since(start).Seconds())
}

// ObserveMerge records a merge attempt outcome.
func (m *Metrics) ObserveMerge(outcome string, slaves int, start time.Time) {
	m.MergesTotal.WithLabelValues(outcome).Inc()
	if outcome == "success" {
		m.MergedSlaves.Add(float64(slaves))
	}
	m.MergeDuration.Observe(time.Since(start).Seconds())
}
