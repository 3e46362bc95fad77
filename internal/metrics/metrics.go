package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_rater_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_rater_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPResponseBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_rater_http_response_bytes",
			Help:    "HTTP response body size in bytes",
			Buckets: prometheus.ExponentialBuckets(256, 4, 9),
		},
		[]string{"path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_rater_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_rater_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_rater_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)
)

// Scheduler metrics
var (
	JobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_rater_job_runs_total",
			Help: "Total number of scheduled job runs by outcome",
		},
		[]string{"job", "status"}, // "success", "error", "panic", "skipped"
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_rater_job_duration_seconds",
			Help:    "Scheduled job duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
		[]string{"job"},
	)

	JobRunning = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "photo_rater_job_running",
			Help: "Whether a job is currently running (1 = running, 0 = idle)",
		},
		[]string{"job"},
	)

	JobLastRunTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "photo_rater_job_last_run_timestamp",
			Help: "Unix timestamp of the last completed run of a job",
		},
		[]string{"job"},
	)
)

// Ingestion metrics
var (
	IngestFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_rater_ingest_files_total",
			Help: "Total number of intake files handled by outcome",
		},
		[]string{"outcome"}, // "moved", "duplicate", "deferred", "skipped"
	)

	IngestLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_rater_ingest_last_run_duration_seconds",
			Help: "Duration of the last ingestion pass in seconds",
		},
	)

	PartitionsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_rater_partitions_created_total",
			Help: "Total number of partition folders created",
		},
	)

	PartitionsRemovedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_rater_partitions_removed_total",
			Help: "Total number of partition folders removed after being drained",
		},
	)
)

// Thumbnail metrics
var (
	ThumbnailGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_rater_thumbnail_generations_total",
			Help: "Total number of thumbnail generations by status",
		},
		[]string{"status"}, // "success", "error", "skipped"
	)

	ThumbnailGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "photo_rater_thumbnail_generation_duration_seconds",
			Help:    "Duration of a single thumbnail generation in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	ThumbnailOrphansRemovedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_rater_thumbnail_orphans_removed_total",
			Help: "Total number of thumbnail folders removed because their partition is gone",
		},
	)
)

// Compression metrics
var (
	CompressionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_rater_compression_total",
			Help: "Total number of on-demand compressions by format and outcome",
		},
		[]string{"format", "outcome"}, // outcome: "success", "unshrinkable", "decode_error"
	)

	CompressionAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "photo_rater_compression_attempts",
			Help:    "Number of encodings tried before a compression finished",
			Buckets: []float64{1, 2, 5, 10, 20, 40},
		},
	)

	CompressionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "photo_rater_compression_duration_seconds",
			Help:    "Duration of an on-demand compression in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	QuarantinedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_rater_quarantined_total",
			Help: "Total number of images moved to quarantine",
		},
	)
)

// Serving and rating metrics
var (
	BatchesServedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_rater_batches_served_total",
			Help: "Total number of unrated image batches returned",
		},
	)

	ImagesServedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_rater_images_served_total",
			Help: "Total number of image bodies served by source",
		},
		[]string{"source"}, // "thumbnail", "original", "compressed"
	)

	ServedOutstanding = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_rater_served_outstanding",
			Help: "Number of served images awaiting a rating across all users",
		},
	)

	ServedStaleEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_rater_served_stale_evictions_total",
			Help: "Total number of served entries evicted after the serve timeout",
		},
	)

	RatingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_rater_ratings_total",
			Help: "Total number of rating transitions by outcome",
		},
		[]string{"status"}, // "success", "invalid", "not_found", "error"
	)
)

// Library state gauges, refreshed by the Collector
var (
	PartitionsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_rater_partitions",
			Help: "Number of partition folders currently present",
		},
	)

	UnratedImagesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_rater_unrated_images",
			Help: "Number of images currently waiting in partitions",
		},
	)

	StatusLogEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "photo_rater_status_log_entries",
			Help: "Number of status log entries by status",
		},
		[]string{"status"},
	)
)

// Status log metrics
var (
	StatusLogWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_rater_status_log_writes_total",
			Help: "Total number of status log rewrites by outcome",
		},
		[]string{"status"},
	)

	StatusLogWriteDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "photo_rater_status_log_write_duration_seconds",
			Help:    "Duration of a full status log rewrite in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)
)

// Archive and export metrics
var (
	OperationLogSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_rater_operation_log_size_bytes",
			Help: "Current size of the live operation log",
		},
	)

	ArchiveRotationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_rater_archive_rotations_total",
			Help: "Total number of operation log rotations by outcome",
		},
		[]string{"status"},
	)

	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_rater_exports_total",
			Help: "Total number of dataset exports by outcome",
		},
		[]string{"status"},
	)

	ExportRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_rater_export_rows",
			Help: "Number of rows written by the last dataset export",
		},
	)
)

// Authentication metrics
var (
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_rater_auth_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"status"},
	)

	TokenRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_rater_token_rejections_total",
			Help: "Total number of requests rejected by token verification",
		},
		[]string{"reason"}, // "missing", "invalid"
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_rater_filesystem_operation_duration_seconds",
			Help:    "Duration of filesystem operations by volume",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_rater_filesystem_operation_errors_total",
			Help: "Total number of failed filesystem operations by volume",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_rater_filesystem_retry_attempts_total",
			Help: "Total number of retried filesystem operations after a stale handle",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_rater_filesystem_retry_success_total",
			Help: "Total number of filesystem operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_rater_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after all retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_rater_filesystem_stale_errors_total",
			Help: "Total number of ESTALE errors seen",
		},
		[]string{"operation", "volume"},
	)

	CrossDeviceMovesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_rater_filesystem_cross_device_moves_total",
			Help: "Total number of moves that fell back to copy and remove",
		},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_rater_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_rater_memory_paused",
			Help: "Whether image processing is paused for memory (1 = paused)",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_rater_memory_gc_pauses_total",
			Help: "Total number of times processing was paused for memory",
		},
	)
)

// Application info
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "photo_rater_app_info",
			Help: "Application build information",
		},
		[]string{"version", "commit", "go_version"},
	)
)
