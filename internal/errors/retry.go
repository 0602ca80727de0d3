package errors

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig configures exponential backoff retry behavior. It mirrors the
// classic base/max/multiplier knobs but is translated into a
// backoff.ExponentialBackOff under the hood rather than hand-rolled.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts (not including the initial attempt).
	MaxRetries int

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay is the maximum delay between retries.
	MaxDelay time.Duration

	// Multiplier is the factor by which delay increases after each retry.
	Multiplier float64
}

// DefaultRetryConfig returns the spec's default retry policy: 1s base delay,
// doubling, capped at 10s, 3 retries.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}
}

func (c RetryConfig) backoffFor(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.InitialDelay
	eb.MaxInterval = c.MaxDelay
	eb.Multiplier = c.Multiplier
	eb.MaxElapsedTime = 0 // bounded by MaxRetries via WithMaxRetries, not elapsed time
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.MaxRetries)), ctx)
}

// permanent marks an error as non-retryable so backoff.Retry stops immediately.
func permanent(err error) error {
	return backoff.Permanent(err)
}

// Retry executes fn with exponential backoff. isRetryable decides whether a
// given failure should be retried at all; when it returns false the error is
// returned immediately without consuming a retry attempt. Context
// cancellation aborts the wait and returns ctx.Err().
func Retry(ctx context.Context, cfg RetryConfig, isRetryable func(error) bool, fn func() error) error {
	op := func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if isRetryable != nil && !isRetryable(err) {
			return permanent(err)
		}
		return err
	}

	err := backoff.Retry(op, cfg.backoffFor(ctx))
	if err == nil {
		return nil
	}
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Unwrap()
	}
	return err
}

// RetryWithResult is Retry for functions that also produce a value.
func RetryWithResult[T any](ctx context.Context, cfg RetryConfig, isRetryable func(error) bool, fn func() (T, error)) (T, error) {
	var result T
	op := func() error {
		var err error
		result, err = fn()
		if err == nil {
			return nil
		}
		if isRetryable != nil && !isRetryable(err) {
			return permanent(err)
		}
		return err
	}

	err := backoff.Retry(op, cfg.backoffFor(ctx))
	if err == nil {
		return result, nil
	}
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return result, perm.Unwrap()
	}
	var zero T
	return zero, err
}
