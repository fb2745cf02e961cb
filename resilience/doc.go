// Package resilience provides the small set of failure-handling primitives the
// client resilience layer is built from.
//
// # Patterns
//
//   - Retry: re-runs an operation with a fixed or growing delay between tries,
//     stopping early on errors the caller marks as non-retryable.
//
//   - Timeout: bounds how long an operation may run.
//
//   - Scheduler: owns delayed tasks so that the component which created them
//     can cancel every pending timer when it shuts down.
//
// # Usage
//
//	retry := resilience.NewRetry(resilience.RetryConfig{
//	    MaxAttempts:  3,
//	    InitialDelay: 2 * time.Second,
//	    Strategy:     resilience.BackoffConstant,
//	})
//
//	err := retry.Execute(ctx, func(ctx context.Context, attempt int) error {
//	    return bringUpFeature(ctx)
//	})
//
//	sched := resilience.NewScheduler()
//	defer sched.Close()
//	sched.After(time.Second, func() { rerun() })
package resilience
