package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
// Using promauto automatically registers metrics with the default registry

var (
	// ==================== HTTP METRICS ====================

	// HTTPRequestDuration tracks the duration of HTTP requests
	// Histogram allows us to calculate percentiles (P50, P95, P99)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint", "status"},
	)

	// HTTPRequestsTotal counts total HTTP requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// HTTPRequestsInFlight tracks currently processing requests
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// ==================== CACHE METRICS ====================

	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	CacheOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cache_operation_duration_seconds",
			Help:    "Duration of cache operations in seconds",
			Buckets: []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05},
		},
		[]string{"operation"}, // get, set, delete
	)

	// ==================== ADMISSION METRICS ====================

	// AdmissionRejectedTotal counts rejected requests per event class
	AdmissionRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_rejected_total",
			Help: "Total number of requests rejected by the admission controller",
		},
		[]string{"event_class"},
	)

	// AdmissionAllowedTotal counts admitted requests per event class
	AdmissionAllowedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_allowed_total",
			Help: "Total number of requests admitted by the admission controller",
		},
		[]string{"event_class"},
	)

	// AbuseRecordsTotal counts durable abuse records per event class
	AbuseRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "abuse_records_total",
			Help: "Total number of abuse records written",
		},
		[]string{"event_class"},
	)

	// ==================== CLICK PIPELINE METRICS ====================

	// ClicksPublishedTotal counts click events appended to the channel
	ClicksPublishedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clicks_published_total",
			Help: "Total number of click events published to the event channel",
		},
	)

	// ClickPublishFailuresTotal counts events dropped because the channel
	// was unavailable (tracking is best-effort relative to the redirect)
	ClickPublishFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "click_publish_failures_total",
			Help: "Total number of click events dropped due to publish failure",
		},
	)

	// ClicksAggregatedTotal counts events folded into pending counters
	ClicksAggregatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clicks_aggregated_total",
			Help: "Total number of click events aggregated into pending counters",
		},
	)

	// MalformedEventsTotal counts unparsable events dropped by the aggregator
	MalformedEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "malformed_events_total",
			Help: "Total number of malformed click events dropped",
		},
	)

	// ==================== FLUSH WORKER METRICS ====================

	// FlushRunsTotal counts flush worker runs by outcome
	FlushRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flush_runs_total",
			Help: "Total number of flush worker runs",
		},
		[]string{"outcome"}, // ok, partial, skipped
	)

	// FlushedClicksTotal counts click deltas reconciled into durable storage
	FlushedClicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flushed_clicks_total",
			Help: "Total click count reconciled into the durable store",
		},
	)

	// FlushBatchFailuresTotal counts batches that failed and will be retried
	FlushBatchFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flush_batch_failures_total",
			Help: "Total number of flush batches that failed and were left pending",
		},
	)

	// FlushDuration tracks how long a full flush run takes
	FlushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flush_duration_seconds",
			Help:    "Duration of flush worker runs in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	// ==================== CLEANUP WORKER METRICS ====================

	// ExpiredURLsDeactivatedTotal counts URLs bulk-deactivated after expiry
	ExpiredURLsDeactivatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cleanup_expired_urls_deactivated_total",
			Help: "Total number of expired URLs deactivated by the cleanup worker",
		},
	)

	// PurgedURLsTotal counts soft-deleted URLs permanently removed
	PurgedURLsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cleanup_purged_urls_total",
			Help: "Total number of soft-deleted URLs permanently removed",
		},
	)

	// CleanupDuration tracks how long a cleanup pass takes
	CleanupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cleanup_duration_seconds",
			Help:    "Duration of cleanup worker passes in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"}, // deactivate, purge
	)

	// ==================== BUSINESS METRICS ====================

	URLsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "urls_created_total",
			Help: "Total number of URLs created",
		},
	)

	RedirectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redirects_total",
			Help: "Total number of successful redirects",
		},
	)
)

// RecordCacheHit increments cache hit counter
func RecordCacheHit() {
	CacheHitsTotal.Inc()
}

// RecordCacheMiss increments cache miss counter
func RecordCacheMiss() {
	CacheMissesTotal.Inc()
}

// RecordURLCreated increments URL creation counter
func RecordURLCreated() {
	URLsCreatedTotal.Inc()
}

// RecordRedirect increments redirect counter
func RecordRedirect() {
	RedirectsTotal.Inc()
}

// RecordAdmissionRejected increments the rejection counter for a class
func RecordAdmissionRejected(eventClass string) {
	AdmissionRejectedTotal.WithLabelValues(eventClass).Inc()
}

// RecordAdmissionAllowed increments the admission counter for a class
func RecordAdmissionAllowed(eventClass string) {
	AdmissionAllowedTotal.WithLabelValues(eventClass).Inc()
}

// RecordAbuseRecord increments the abuse record counter for a class
func RecordAbuseRecord(eventClass string) {
	AbuseRecordsTotal.WithLabelValues(eventClass).Inc()
}
