// Package retry provides a bounded retry loop with exponential backoff.
//
// The loop never runs more than Config.MaxRetries attempts, which makes it
// suitable for polling a peer that may legitimately need a moment before it
// answers (for example a debugger that has not reported a stop yet) without
// risking an unbounded busy loop.
//
//	err := retry.Do(ctx, retry.Config{
//	    MaxRetries:     10,
//	    InitialBackoff: 100 * time.Millisecond,
//	    MaxBackoff:     time.Second,
//	}, poll, func(err error) bool {
//	    return errors.Is(err, errEmpty)
//	})
//
// When every attempt fails with a retryable error the returned error wraps
// both ErrExhausted and the last error from fn.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrExhausted is wrapped by the error Do returns once MaxRetries attempts
// have all failed with retryable errors.
var ErrExhausted = errors.New("retries exhausted")

// Config defines the retry behavior for exponential backoff operations.
//
// The zero value is not usable; MaxRetries and InitialBackoff must be set.
type Config struct {
	// MaxRetries is the maximum number of times fn is called.
	MaxRetries int

	// InitialBackoff is the wait before the second attempt. Each following
	// wait doubles it.
	InitialBackoff time.Duration

	// MaxBackoff caps a single wait. Zero means no cap.
	MaxBackoff time.Duration

	// Jitter adds up to Jitter*backoff to later waits (0.0 to 1.0).
	Jitter float64

	// OnRetry, if set, is called before each wait with the attempt that
	// just failed (1-based) and its error.
	OnRetry func(attempt int, err error)
}

// ShouldRetryFunc reports whether an error is transient.
// If nil is passed to Do, all errors are retried.
type ShouldRetryFunc func(error) bool

// Do executes fn until it succeeds, returns a non-retryable error, the
// context is canceled, or cfg.MaxRetries attempts have been made.
func Do(ctx context.Context, cfg Config, fn func() error, shouldRetry ShouldRetryFunc) error {
	var lastErr error

	for attempt := 0; attempt < cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if cfg.OnRetry != nil {
				cfg.OnRetry(attempt, lastErr)
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(calculateBackoff(cfg, attempt)):
			}
		}

		err := fn()
		if err == nil {
			return nil
		}

		if shouldRetry != nil && !shouldRetry(err) {
			return err
		}

		lastErr = err
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, cfg.MaxRetries, lastErr)
}

// calculateBackoff computes InitialBackoff * 2^(attempt-1), capped by
// MaxBackoff, plus jitter that grows linearly with the attempt number.
func calculateBackoff(cfg Config, attempt int) time.Duration {
	multiplier := math.Pow(2, float64(attempt-1))
	backoff := time.Duration(multiplier * float64(cfg.InitialBackoff))

	if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
		backoff = cfg.MaxBackoff
	}

	if cfg.Jitter > 0 {
		jitterAmount := float64(backoff) * cfg.Jitter * float64(attempt) / float64(cfg.MaxRetries)
		backoff += time.Duration(jitterAmount)
	}

	return backoff
}
