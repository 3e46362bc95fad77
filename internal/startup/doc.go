// Package startup handles configuration loading, the on-disk directory
// layout, and startup/shutdown logging.
//
// # Configuration
//
// [LoadConfig] reads environment variables (a .env file is loaded first by
// the CLI when present):
//
//   - BASE_DIR: Root of the image tree and logs (default: current directory)
//   - DATABASE_DIR: Rating history database directory (default: BASE_DIR/database)
//   - PORT: HTTP server port (default: 5410)
//   - METRICS_PORT, METRICS_ENABLED: Prometheus endpoint (default: 9090, true)
//   - PARTITION_SIZE: Images per partition folder (default: 100)
//   - IMAGE_BATCH_SIZE: Images per served batch (default: 10)
//   - SERVE_TIMEOUT: Age after which a served image is offered again (default: 30m)
//   - MAX_FILE_SIZE_BYTES: Largest original served without compression (default: 2 MiB)
//   - MAX_LOG_FILE_SIZE_BYTES: Operation log rotation threshold (default: 20 MiB)
//   - INGEST_INTERVAL, THUMBNAIL_INTERVAL, ARCHIVE_INTERVAL: Job intervals (1h, 1h, 30m)
//   - EXPORT_INTERVAL: Dataset export interval, 0 disables (default: 0)
//   - THUMBNAIL_MAX_DIMENSION, THUMBNAIL_WORKERS: Thumbnail size and parallelism
//   - JWT_SECRET, TOKEN_TTL: Token signing key and lifetime (default TTL: 12h)
//   - RATER_USERNAME, RATER_PASSWORD, RATER_USERS: Rater credentials
//   - LOG_LEVEL, LOG_HEALTH_CHECKS: Logging controls
//
// Durations accept Go syntax ("45m") or a bare number of seconds.
//
// # Directory Layout
//
// [Layout] resolves the fixed directory names under BASE_DIR
// (images_raw, images_unrated, images_rated, images_debug, logs,
// logs_archive, exports) and [Layout.Ensure] creates them.
//
// # Lifecycle Logging
//
// [LogDatabaseInit], [LogStatusLogLoaded], [LogSchedulerInit],
// [LogHTTPRoutes], [LogServerStarted] and the LogShutdown* functions print
// the sectioned startup and shutdown report.
package startup
