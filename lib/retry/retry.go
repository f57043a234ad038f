// Copyright 2026 The Pixelwarden Authors
// SPDX-License-Identifier: Apache-2.0

// Package retry runs an operation a bounded number of times with a
// fixed delay between attempts. The attempt counter is an explicit
// loop variable, so the bound holds regardless of how the operation
// fails.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pixelwarden/pixelwarden/lib/clock"
)

// Policy configures Do.
type Policy struct {
	// Attempts is the total number of tries, including the first.
	// Values below 1 are treated as 1.
	Attempts int

	// Delay is the fixed wait between attempts.
	Delay time.Duration

	// Clock provides the delay timer. Nil means clock.Real().
	Clock clock.Clock

	// Logger receives one warning per failed attempt that will be
	// retried. Nil means slog.Default().
	Logger *slog.Logger

	// Permanent, when set, reports errors that must not be retried.
	Permanent func(error) bool
}

// ExhaustedError is returned when every attempt failed.
type ExhaustedError struct {
	Operation string
	Attempts  int
	Err       error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: giving up after %d attempts: %v", e.Operation, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Do calls operation until it succeeds, the attempts run out, the
// error is permanent, or ctx is cancelled. The returned error is the
// last failure: wrapped in *ExhaustedError when attempts ran out,
// unwrapped when permanent, or ctx.Err() on cancellation.
func Do[T any](ctx context.Context, policy Policy, operation string, call func(context.Context) (T, error)) (T, error) {
	attempts := max(policy.Attempts, 1)
	clk := policy.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := policy.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := call(ctx)
		if err == nil {
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		if policy.Permanent != nil && policy.Permanent(err) {
			return zero, err
		}
		lastErr = err
		if attempt == attempts {
			break
		}

		logger.Warn("attempt failed, retrying",
			"operation", operation,
			"attempt", attempt,
			"attempts", attempts,
			"delay", policy.Delay,
			"error", err,
		)
		if err := clock.Sleep(ctx, clk, policy.Delay); err != nil {
			return zero, err
		}
	}
	return zero, &ExhaustedError{Operation: operation, Attempts: attempts, Err: lastErr}
}

// IsExhausted reports whether err came from Do running out of
// attempts.
func IsExhausted(err error) bool {
	var exhausted *ExhaustedError
	return errors.As(err, &exhausted)
}
