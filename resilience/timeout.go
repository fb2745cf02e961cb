package resilience

import (
	"context"
	"errors"
	"time"
)

// ExecuteWithTimeout runs op with a deadline of timeout. A non-positive
// timeout runs op without a deadline.
//
// op runs on its own goroutine so that an operation ignoring ctx cannot hold
// the caller past the deadline; ErrTimeout is returned in that case.
func ExecuteWithTimeout(ctx context.Context, timeout time.Duration, op func(context.Context) error) error {
	if timeout <= 0 {
		return op(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- op(ctx)
	}()

	select {
	case err := <-done:
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
			return ErrTimeout
		}
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	}
}
