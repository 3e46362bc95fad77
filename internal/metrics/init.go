package metrics

// InitializeMetrics pre-populates the expected label combinations so every
// series is exported from the first scrape. Call once at startup.
func InitializeMetrics(jobs []string) {
	for _, job := range jobs {
		for _, status := range []string{"success", "error", "panic", "skipped"} {
			JobRunsTotal.WithLabelValues(job, status)
		}
		JobDuration.WithLabelValues(job)
		JobRunning.WithLabelValues(job).Set(0)
	}

	for _, outcome := range []string{"moved", "duplicate", "deferred", "skipped"} {
		IngestFilesTotal.WithLabelValues(outcome)
	}

	for _, status := range []string{"success", "error", "skipped"} {
		ThumbnailGenerationsTotal.WithLabelValues(status)
	}

	for _, format := range []string{"jpeg", "png", "gif", "bmp", "tiff", "webp", "unknown"} {
		for _, outcome := range []string{"success", "unshrinkable", "decode_error"} {
			CompressionTotal.WithLabelValues(format, outcome)
		}
	}

	for _, source := range []string{"thumbnail", "original", "compressed"} {
		ImagesServedTotal.WithLabelValues(source)
	}

	for _, status := range []string{"success", "invalid", "not_found", "error"} {
		RatingsTotal.WithLabelValues(status)
	}

	for _, status := range []string{"unrated", "rated"} {
		StatusLogEntries.WithLabelValues(status)
	}

	for _, status := range []string{"success", "error"} {
		StatusLogWritesTotal.WithLabelValues(status)
		ArchiveRotationsTotal.WithLabelValues(status)
		ExportsTotal.WithLabelValues(status)
		AuthAttemptsTotal.WithLabelValues(status)
	}

	for _, reason := range []string{"missing", "invalid"} {
		TokenRejectionsTotal.WithLabelValues(reason)
	}

	volumes := []string{"raw", "unrated", "rated", "debug", "logs", "unknown"}
	for _, vol := range volumes {
		for _, op := range []string{"stat", "open", "rename", "write"} {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
		}
	}

	for _, op := range []string{"initialize_schema", "record_rating", "rating_history", "latest_ratings", "rating_counts", "rater_counts", "get_metadata", "set_metadata"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}
}
