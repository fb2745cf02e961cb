package resilience

import "errors"

// Sentinel errors for resilience operations.
var (
	// ErrMaxRetriesExceeded is returned when max retry attempts are exhausted.
	// The last operation error is wrapped alongside it.
	ErrMaxRetriesExceeded = errors.New("resilience: max retries exceeded")

	// ErrTimeout is returned when an operation times out.
	ErrTimeout = errors.New("resilience: operation timed out")

	// ErrSchedulerClosed is returned when scheduling on a closed Scheduler.
	ErrSchedulerClosed = errors.New("resilience: scheduler closed")
)
