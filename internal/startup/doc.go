// Package startup loads and validates configuration.
//
// # Configuration
//
// [LoadConfig] reads the environment; the CLI reads the same variables as
// flag sources and calls [NewConfig] so flags override the environment.
//
//   - IMAGELITE_CACHE_DIR: cache root for artifacts (default: none, custom destinations only)
//   - IMAGELITE_CACHE_CREATE: create the cache root when missing (default: false)
//   - IMAGELITE_CACHE_URI: URI prefix for cached artifacts (default: derived from the document root)
//   - IMAGELITE_DOCUMENT_ROOT: web document root used to derive URIs
//   - IMAGELITE_LIFETIME: artifact lifetime, e.g. "-1 month", "2 weeks", "36h" (default: never expires)
//   - IMAGELITE_MODE: octal mode for created directories (default: 0755)
//   - IMAGELITE_CODEC: imaging or vips (default: imaging)
//   - IMAGELITE_MANIFEST: SQLite manifest path (default: disabled)
//   - IMAGELITE_METRICS_FILE: Prometheus textfile written on exit (default: disabled)
//   - IMAGELITE_MEMORY_BUDGET: per-image processing budget such as 512MiB (default: half of GOMEMLIMIT)
//   - IMAGELITE_WORKERS: batch worker count (default: 1.5 x GOMAXPROCS)
//   - LOG_LEVEL: debug, info, warn, error (default: info)
//   - MEMORY_LIMIT, MEMORY_RATIO, GOMEMLIMIT: Go soft memory limit
//
// # Build information
//
// Version, Commit and BuildTime are set with -ldflags at build time and
// reported by [GetBuildInfo].
package startup
