package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transform metrics
var (
	TransformsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagelite_transforms_total",
			Help: "Total number of transform requests",
		},
		[]string{"strategy", "status"}, // "generated", "cached", "error"
	)

	TransformDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "imagelite_transform_duration_seconds",
			Help:    "End-to-end transform duration in seconds, including cache checks",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"strategy"},
	)

	RenderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "imagelite_render_duration_seconds",
			Help:    "Codec render duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"codec"},
	)

	RenderErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagelite_render_errors_total",
			Help: "Total number of codec render failures",
		},
		[]string{"codec"},
	)

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "imagelite_sessions_active",
			Help: "Number of sessions held in the engine registry",
		},
	)
)

// Source probe metrics
var (
	ProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagelite_probes_total",
			Help: "Total number of source probes by detected format",
		},
		[]string{"format"},
	)

	ResourceLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "imagelite_resource_limit_exceeded_total",
			Help: "Total number of sources whose decoded size exceeds the processing budget",
		},
	)
)

// Cache metrics
var (
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagelite_cache_lookups_total",
			Help: "Total number of artifact lookups by result",
		},
		[]string{"result"}, // "hit", "miss", "stale", "forced"
	)

	CacheWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagelite_cache_writes_total",
			Help: "Total number of artifact writes",
		},
		[]string{"status"},
	)

	CacheWriteBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "imagelite_cache_write_bytes_total",
			Help: "Total bytes written to cache artifacts",
		},
	)

	CacheSharedWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "imagelite_cache_shared_writes_total",
			Help: "Total number of writes that waited on an in-flight write of the same artifact",
		},
	)
)

// Manifest metrics
var (
	ManifestQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagelite_manifest_queries_total",
			Help: "Total number of manifest queries",
		},
		[]string{"operation", "status"},
	)

	ManifestQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "imagelite_manifest_query_duration_seconds",
			Help:    "Manifest query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)

	ManifestArtifacts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "imagelite_manifest_artifacts",
			Help: "Number of artifacts recorded in the manifest",
		},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "imagelite_filesystem_operation_duration_seconds",
			Help:    "Filesystem operation duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagelite_filesystem_operation_errors_total",
			Help: "Total number of failed filesystem operations",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagelite_filesystem_retry_attempts_total",
			Help: "Total number of filesystem retries after a stale file handle",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagelite_filesystem_retry_success_total",
			Help: "Total number of filesystem operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagelite_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after all retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imagelite_filesystem_stale_errors_total",
			Help: "Total number of stale file handle errors seen",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "imagelite_filesystem_retry_duration_seconds",
			Help:    "Duration of filesystem operations including retries",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"operation", "volume"},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "imagelite_memory_usage_ratio",
			Help: "Heap usage as a fraction of the memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "imagelite_memory_paused",
			Help: "Whether renders are held back by memory pressure (1 = paused)",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "imagelite_app_info",
			Help: "Application information",
		},
		[]string{"version", "codec", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, codec, goVersion string) {
	AppInfo.WithLabelValues(version, codec, goVersion).Set(1)
}
