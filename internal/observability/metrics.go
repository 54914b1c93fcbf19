// Package observability holds the Prometheus metrics for the capture pipeline.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fieldreport"

// Metrics holds the Prometheus counters and histograms for the service.
type Metrics struct {
	Submissions    *prometheus.CounterVec // labels: outcome={success,missing_image,missing_field,upload_failed,site_not_found,persist_failed}
	UploadDuration prometheus.Histogram
	BlobCleanups   *prometheus.CounterVec // labels: result={deleted,failed}
	EventsFailed   prometheus.Counter

	ImagesAcquired *prometheus.CounterVec // labels: status={APPROVED,REJECTED,PENDING_REVIEW}

	WeatherFetches *prometheus.CounterVec // labels: outcome={success,permission_denied,location_unavailable,remote_error,auth_error}
	GeocodeCache   *prometheus.CounterVec // labels: result={hit,miss}
	WeatherAPI     *prometheus.HistogramVec
}

func newMetrics() *Metrics {
	return &Metrics{
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_submissions_total",
			Help:      "Report submissions by outcome.",
		}, []string{"outcome"}),
		UploadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "image_upload_duration_seconds",
			Help:      "Time to write a report image to blob storage.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		BlobCleanups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphan_blob_cleanups_total",
			Help:      "Compensating deletes of uploaded images after a failed submission.",
		}, []string{"result"}),
		EventsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_events_failed_total",
			Help:      "report.submitted events that could not be published.",
		}),
		ImagesAcquired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_acquired_total",
			Help:      "Captured images by moderation status.",
		}, []string{"status"}),
		WeatherFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_fetches_total",
			Help:      "Location/weather fetches by final outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Reverse geocode cache lookups by result.",
		}, []string{"result"}),
		WeatherAPI: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "weather_api_duration_seconds",
			Help:      "OpenWeather request duration by endpoint.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Submissions,
		m.UploadDuration,
		m.BlobCleanups,
		m.EventsFailed,
		m.ImagesAcquired,
		m.WeatherFetches,
		m.GeocodeCache,
		m.WeatherAPI,
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics registered nowhere, so tests can build
// as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
