package filesystem

// Observer records filesystem metrics. The implementation lives in the
// metrics package so this package does not import it.
type Observer interface {
	// ObserveOperation records duration and outcome of one operation.
	// volume is the resolved directory label ("raw", "unrated", ...) and
	// operation one of "stat", "open", "rename", "write".
	ObserveOperation(volume, operation string, durationSeconds float64, err error)

	ObserveRetryAttempt(operation, volume string)
	ObserveRetrySuccess(operation, volume string)
	ObserveRetryFailure(operation, volume string)
	ObserveStaleError(operation, volume string)

	// ObserveCrossDeviceMove counts moves that fell back to copy and remove.
	ObserveCrossDeviceMove()
}

// defaultObserver is set once at startup. nil disables recording.
var defaultObserver Observer

// SetObserver sets the package-level metrics observer.
func SetObserver(o Observer) {
	defaultObserver = o
}

func observe() Observer {
	return defaultObserver
}
