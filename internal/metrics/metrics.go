// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CacheRequests counts cache lookups by result: hit, miss, error, and
	// stale for a fill dropped after a concurrent invalidation.
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipebox_cache_requests_total",
			Help: "Total number of cache lookups by result",
		},
		[]string{"result"},
	)

	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipebox_cache_invalidations_total",
			Help: "Total number of cache invalidations by kind (key or prefix)",
		},
		[]string{"kind"},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipebox_events_published_total",
			Help: "Total number of domain events published by topic and status",
		},
		[]string{"topic", "status"},
	)

	Backups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipebox_backups_total",
			Help: "Total number of database backups by status",
		},
		[]string{"status"},
	)

	BackupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recipebox_backup_duration_seconds",
			Help:    "Duration of database backups in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
	)

	MailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipebox_mails_sent_total",
			Help: "Total number of outbound mails by status",
		},
		[]string{"status"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipebox_http_requests_total",
			Help: "Total number of HTTP requests by method and status code",
		},
		[]string{"method", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recipebox_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

// RecordHTTP records one served request.
func RecordHTTP(method string, status int, seconds float64) {
	HTTPRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method).Observe(seconds)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
