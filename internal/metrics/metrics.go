package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "autocareer"

	// Labels
	outcomeLabel = "outcome"
)

var (
	scansTotalMetric = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "scan requests partitioned by outcome (started, rejected)",
		},
		[]string{outcomeLabel},
	)

	sourcesTotalMetric = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_sources_total",
			Help:      "scanned sources partitioned by outcome (ok, error)",
		},
		[]string{outcomeLabel},
	)

	jobsTotalMetric = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_jobs_total",
			Help:      "discovered listings partitioned by classification (added, already_exists, low_score, error)",
		},
		[]string{outcomeLabel},
	)

	scanDurationMetric = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "wall time of completed scans",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)

	scanActiveMetric = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scan_active",
			Help:      "1 while a scan is running",
		},
	)
)

func IncreaseScansTotal(outcome string) {
	scansTotalMetric.With(prometheus.Labels{outcomeLabel: outcome}).Inc()
}

func IncreaseSourcesTotal(outcome string) {
	sourcesTotalMetric.With(prometheus.Labels{outcomeLabel: outcome}).Inc()
}

func AddJobs(outcome string, n int) {
	if n > 0 {
		jobsTotalMetric.With(prometheus.Labels{outcomeLabel: outcome}).Add(float64(n))
	}
}

func ObserveScanDuration(d time.Duration) {
	scanDurationMetric.Observe(d.Seconds())
}

func SetScanActive(active bool) {
	if active {
		scanActiveMetric.Set(1)
		return
	}
	scanActiveMetric.Set(0)
}

func init() {
	prometheus.MustRegister(scansTotalMetric, sourcesTotalMetric, jobsTotalMetric, scanDurationMetric, scanActiveMetric)
}
