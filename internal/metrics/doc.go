// Package metrics provides Prometheus instrumentation for imagelite.
//
// Metrics are registered with the default registry through promauto and are
// prefixed with "imagelite_". imagelite runs as a library or a short-lived
// CLI, so there is no scrape endpoint: [WriteTextfile] dumps the registry for
// node_exporter's textfile collector.
//
// # Metric Categories
//
// Transforms:
//   - TransformsTotal: requests by strategy and status (generated, cached, error)
//   - TransformDuration: end-to-end duration by strategy
//   - RenderDuration, RenderErrors: codec work by codec name
//   - SessionsActive: sessions held in the engine registry
//
// Sources:
//   - ProbesTotal: probes by detected format
//   - ResourceLimitExceeded: sources over the processing budget
//
// Cache:
//   - CacheLookupsTotal: lookups by result (hit, miss, stale, forced)
//   - CacheWritesTotal, CacheWriteBytes: artifact writes
//   - CacheSharedWrites: callers that joined an in-flight write
//
// Manifest:
//   - ManifestQueryTotal, ManifestQueryDuration: SQLite queries by operation
//   - ManifestArtifacts: artifacts recorded
//
// Filesystem:
//   - FilesystemOperation*: duration and errors per volume and operation
//   - FilesystemRetry*, FilesystemStaleErrors: NFS stale-handle retries
//
// Memory:
//   - MemoryUsageRatio, MemoryPaused: batch render backpressure
//
// Call [InitializeMetrics] once at startup so every label combination is
// present in the first export.
package metrics
