// Package retry provides bounded polling for readiness checks.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrDeadline is returned by Poll when the overall deadline elapses before
// the condition is satisfied.
var ErrDeadline = errors.New("polling deadline exceeded")

// Poll invokes check at a fixed interval until it returns nil, the deadline
// elapses, or the context is cancelled. This is a bounded retry loop, not an
// unbounded spin: the overall deadline always terminates it.
//
// Errors wrapped with Fatal() abort polling immediately.
func Poll(ctx context.Context, interval, deadline time.Duration, check func(ctx context.Context) error) error {
	pollCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for {
		err := check(pollCtx)
		if err == nil {
			return nil
		}
		if IsFatal(err) {
			return fmt.Errorf("polling aborted: %w", err)
		}
		lastErr = err

		select {
		case <-pollCtx.Done():
			// Distinguish the caller's cancellation from our own deadline.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: last error: %v", ErrDeadline, lastErr)
		case <-ticker.C:
		}
	}
}

// FatalError wraps an error to mark it as fatal (non-retryable).
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return e.Err.Error() }

func (e *FatalError) Unwrap() error { return e.Err }

// Fatal marks an error as fatal. Poll stops immediately when the check
// returns one instead of waiting out the deadline.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// IsFatal checks if an error is fatal (non-retryable).
func IsFatal(err error) bool {
	var fatalErr *FatalError
	return errors.As(err, &fatalErr)
}
