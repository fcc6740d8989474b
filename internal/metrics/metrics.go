package metrics

import (
	"net/http"

	"mirror-sync-go/internal/domain/mirror"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mirror_sync"

// Metrics records scan progress. It satisfies mirror.Observer.
type Metrics struct {
	registry *prometheus.Registry

	repositories    *prometheus.CounterVec
	repoDuration    prometheus.Histogram
	publishFailures prometheus.Counter
	scans           prometheus.Counter
	scanDuration    prometheus.Histogram
	lastScan        prometheus.Gauge
	lastSucceeded   prometheus.Gauge
	lastFailed      prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		repositories: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repositories_processed_total",
			Help:      "Repositories processed, by outcome.",
		}, []string{"outcome"}),
		repoDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "repository_duration_seconds",
			Help:      "Time spent on one repository within a scan.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 4, 8),
		}),
		publishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_failures_total",
			Help:      "Mirror events that could not be published.",
		}),
		scans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Completed or cancelled scans.",
		}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Wall time of a full workspace scan.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		lastScan: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_scan_timestamp_seconds",
			Help:      "Start time of the most recent scan.",
		}),
		lastSucceeded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_scan_succeeded",
			Help:      "Repositories mirrored by the most recent scan.",
		}),
		lastFailed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_scan_failed",
			Help:      "Repositories that failed in the most recent scan.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.repositories,
		m.repoDuration,
		m.publishFailures,
		m.scans,
		m.scanDuration,
		m.lastScan,
		m.lastSucceeded,
		m.lastFailed,
	)
	return m
}

func (m *Metrics) RepositoryProcessed(outcome mirror.Outcome, seconds float64) {
	m.repositories.WithLabelValues(string(outcome)).Inc()
	if outcome != mirror.OutcomeSkipped && outcome != mirror.OutcomeDuplicate {
		m.repoDuration.Observe(seconds)
	}
}

func (m *Metrics) PublishFailed() {
	m.publishFailures.Inc()
}

func (m *Metrics) ScanCompleted(summary mirror.ScanSummary) {
	m.scans.Inc()
	m.scanDuration.Observe(summary.Duration.Seconds())
	m.lastScan.Set(float64(summary.StartedAt.Unix()))
	m.lastSucceeded.Set(float64(summary.Succeeded))
	m.lastFailed.Set(float64(summary.Failed))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
