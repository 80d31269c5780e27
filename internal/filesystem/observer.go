package filesystem

// Observer records filesystem metrics. The metrics package provides the
// implementation, which keeps this package free of Prometheus imports.
type Observer interface {
	// ObserveOperation records duration and error status for an operation
	// ("read", "write", "stat") on a volume ("source", "cache", ...).
	ObserveOperation(volume, operation string, durationSeconds float64, err error)

	// Retry metrics; retryOp is "stat" or "open".
	ObserveRetryAttempt(retryOp, volume string)
	ObserveRetrySuccess(retryOp, volume string)
	ObserveRetryFailure(retryOp, volume string)
	ObserveRetryDuration(retryOp, volume string, durationSeconds float64)
	ObserveStaleError(retryOp, volume string)
}

// defaultObserver is nil until SetObserver is called; recording is skipped.
var defaultObserver Observer

// SetObserver sets the package-level metrics observer.
func SetObserver(o Observer) {
	defaultObserver = o
}

// Observe returns the package-level observer, which may be nil.
func Observe() Observer {
	return defaultObserver
}

func observe() Observer {
	return defaultObserver
}
