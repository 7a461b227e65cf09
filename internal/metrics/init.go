package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	// --- Store query operations ---
	for _, op := range []string{"initialize_schema", "save_image", "save_video",
		"get_all_images", "get_full_blob", "get_thumbnail_blob", "get_blob", "delete_image",
		"clear_all", "update_folder", "create_folder", "rename_folder",
		"reorder_folders", "delete_folder", "list_folders"} {
		StoreQueryTotal.WithLabelValues(op, "success")
		StoreQueryTotal.WithLabelValues(op, "error")
		StoreQueryDuration.WithLabelValues(op)
	}

	for _, outcome := range []string{"commit", "rollback"} {
		StoreTransactionDuration.WithLabelValues(outcome)
	}

	for _, t := range []string{"image", "video"} {
		StoreArtifactsTotal.WithLabelValues(t)
	}

	// --- Generation jobs ---
	for _, t := range []string{"image", "video"} {
		GenerationDuration.WithLabelValues(t)
		for _, outcome := range []string{"success", "partial", "remote_error",
			"service_unavailable", "timeout", "cancelled", "storage_error"} {
			GenerationsTotal.WithLabelValues(t, outcome)
		}
	}

	for _, d := range []string{"saved", "decode_error", "cancelled", "failed"} {
		GenerationSlotsTotal.WithLabelValues(d)
	}

	// --- Circuit breakers ---
	for _, key := range []string{"image-generate", "video-generate", "video-status"} {
		BreakerState.WithLabelValues(key)
		BreakerRejectionsTotal.WithLabelValues(key)
	}

	// --- Thumbnails ---
	for _, status := range []string{"success", "error_decode", "error_encode"} {
		ThumbnailsTotal.WithLabelValues(status)
	}
	for _, phase := range []string{"decode", "resize", "encode"} {
		ThumbnailDuration.WithLabelValues(phase)
	}
}
