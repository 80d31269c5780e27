package workers

import (
	"os"
	"runtime"
	"strconv"
)

// EnvWorkers overrides the computed worker count.
const EnvWorkers = "IMAGELITE_WORKERS"

// Count returns a worker count for a task type. It starts from GOMAXPROCS,
// which follows container CPU limits, scaled by multiplier:
//   - 1.0 for CPU-bound tasks
//   - 2.0 for I/O-bound tasks
//   - 1.5 for mixed tasks
//
// limit caps the result; 0 means no cap. IMAGELITE_WORKERS overrides the
// computed value but is still capped.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv(EnvWorkers); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			if limit > 0 && count > limit {
				return limit
			}
			return count
		}
	}

	workers := int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}
	return workers
}

// ForCPU returns a worker count for CPU-bound tasks (1 per CPU).
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForIO returns a worker count for I/O-bound tasks (2 per CPU).
func ForIO(limit int) int {
	return Count(2.0, limit)
}

// ForMixed returns a worker count for mixed tasks (1.5 per CPU). Rendering
// is mixed: decode and resample are CPU-bound, reads and writes are not.
func ForMixed(limit int) int {
	return Count(1.5, limit)
}
