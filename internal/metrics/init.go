package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every series is present in the first export.
func InitializeMetrics() {
	strategies := []string{"standard", "crop-to-fit", "letterbox", "percent"}
	for _, s := range strategies {
		for _, status := range []string{"generated", "cached", "error"} {
			TransformsTotal.WithLabelValues(s, status)
		}
		TransformDuration.WithLabelValues(s)
	}

	for _, codec := range []string{"imaging", "vips"} {
		RenderDuration.WithLabelValues(codec)
		RenderErrors.WithLabelValues(codec)
	}

	for _, format := range []string{"gif", "jpg", "png", "unsupported", "not_image"} {
		ProbesTotal.WithLabelValues(format)
	}

	for _, result := range []string{"hit", "miss", "stale", "forced"} {
		CacheLookupsTotal.WithLabelValues(result)
	}
	for _, status := range []string{"success", "error"} {
		CacheWritesTotal.WithLabelValues(status)
	}

	for _, op := range []string{"initialize_schema", "record_artifact", "get_artifact", "stats"} {
		ManifestQueryTotal.WithLabelValues(op, "success")
		ManifestQueryTotal.WithLabelValues(op, "error")
		ManifestQueryDuration.WithLabelValues(op)
	}

	volumes := []string{"source", "cache", "manifest", "unknown"}
	for _, vol := range volumes {
		for _, op := range []string{"read", "write", "stat"} {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
		}
		for _, op := range []string{"stat", "open"} {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}
}
