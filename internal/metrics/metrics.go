package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gen_gallery_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gen_gallery_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gen_gallery_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Store metrics
var (
	StoreQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gen_gallery_store_queries_total",
			Help: "Total number of media store queries",
		},
		[]string{"operation", "status"},
	)

	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gen_gallery_store_query_duration_seconds",
			Help:    "Media store query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	StoreTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gen_gallery_store_transaction_duration_seconds",
			Help:    "Media store transaction duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"outcome"}, // "commit", "rollback"
	)

	StoreArtifactsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gen_gallery_store_artifacts",
			Help: "Number of artifacts currently in the store",
		},
		[]string{"type"}, // "image", "video"
	)

	StoreBytesUsed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gen_gallery_store_bytes_used",
			Help: "Bytes used by the gallery database on disk",
		},
	)

	StoreBytesQuota = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gen_gallery_store_bytes_quota",
			Help: "Bytes available to the gallery database volume",
		},
	)

	StoreConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gen_gallery_store_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Generation metrics
var (
	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gen_gallery_generations_total",
			Help: "Total number of generation jobs by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gen_gallery_generation_duration_seconds",
			Help:    "Wall-clock duration of generation jobs in seconds",
			Buckets: []float64{1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"type"},
	)

	GenerationSlotsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gen_gallery_generation_slots_total",
			Help: "Batch slots by final disposition",
		},
		[]string{"disposition"}, // "saved", "decode_error", "cancelled", "failed"
	)

	PollIterationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gen_gallery_poll_iterations_total",
			Help: "Total number of video status poll iterations",
		},
	)

	PlaceholdersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gen_gallery_placeholders_active",
			Help: "Number of unresolved generation placeholders",
		},
	)
)

// Circuit breaker metrics
var (
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gen_gallery_breaker_state",
			Help: "Circuit breaker state per service key (0=closed, 1=half-open, 2=open)",
		},
		[]string{"key"},
	)

	BreakerRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gen_gallery_breaker_rejections_total",
			Help: "Calls rejected by an open circuit breaker",
		},
		[]string{"key"},
	)
)

// Thumbnail metrics
var (
	ThumbnailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gen_gallery_thumbnails_total",
			Help: "Thumbnail generation attempts by status",
		},
		[]string{"status"}, // "success", "error_decode", "error_encode"
	)

	ThumbnailDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gen_gallery_thumbnail_duration_seconds",
			Help:    "Thumbnail generation duration in seconds by phase",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"phase"}, // "decode", "resize", "encode"
	)
)

// Blob URL cache metrics
var (
	BlobURLsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gen_gallery_blob_urls_active",
			Help: "Blob URLs currently minted and not yet revoked",
		},
	)

	BlobURLsRevokedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gen_gallery_blob_urls_revoked_total",
			Help: "Total number of blob URL revocations",
		},
	)
)
