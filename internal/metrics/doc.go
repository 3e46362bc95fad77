// Package metrics provides Prometheus instrumentation for photo-rater.
//
// All collectors are registered on the default registry through promauto and
// prefixed with "photo_rater_". They are exposed by mounting promhttp.Handler
// on the metrics port.
//
// # Metric Categories
//
//   - HTTP: request totals, durations and in-flight requests
//   - Scheduler: job runs by outcome, durations, running state
//   - Ingestion: files by outcome, partitions created and removed
//   - Thumbnails: generations by status, per-file duration, orphan cleanup
//   - Compression: outcomes by format, ladder attempts, quarantines
//   - Serving and rating: batches, image bodies by source, outstanding serves
//   - Status log, archive and export: rewrites, rotations, export rows
//   - Filesystem: per-volume operation timings and ESTALE retries
//
// # Collector
//
// [Collector] periodically pulls a [Stats] snapshot from a [StatsProvider]
// and refreshes the library gauges. It runs as a suture service:
//
//	collector := metrics.NewCollector(provider, time.Minute)
//	supervisor.Add(collector)
//
// # Example Queries
//
// Duplicate rate at intake:
//
//	rate(photo_rater_ingest_files_total{outcome="duplicate"}[1h])
//
// Job failures:
//
//	sum(rate(photo_rater_job_runs_total{status=~"error|panic"}[1h])) by (job)
package metrics
