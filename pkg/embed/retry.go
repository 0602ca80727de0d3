package embed

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	appErrors "github.com/aman-cerp/codesearch/internal/errors"
)

// RetryPolicy configures the exponential backoff applied to retryable
// embedding provider failures, per spec §4.9.
type RetryPolicy struct {
	BaseDelay  time.Duration // delay before the first retry
	MaxDelay   time.Duration // cap on the per-attempt delay
	MaxRetries int           // number of retries after the initial attempt
}

// DefaultRetryPolicy matches spec §4.9's stated defaults: 1s base delay,
// 10s cap, 3 retries.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{BaseDelay: 1 * time.Second, MaxDelay: 10 * time.Second, MaxRetries: 3}
}

// statusError carries an HTTP status code alongside the underlying error
// so the retry classifier can apply spec §4.9's status-code rules.
type statusError struct {
	StatusCode int
	Err        error
}

func (e *statusError) Error() string { return e.Err.Error() }
func (e *statusError) Unwrap() error { return e.Err }

// withStatus wraps err with an HTTP status code for retry classification.
// A zero statusCode means "no HTTP status available" (e.g. a network-level
// failure before a response was received).
func withStatus(statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &statusError{StatusCode: statusCode, Err: err}
}

func classifyRetryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return appErrors.IsRetryableEmbeddingError(se.StatusCode, se.Err)
	}
	return appErrors.IsRetryableEmbeddingError(0, err)
}

// withRetry runs fn under policy's exponential backoff. Non-retryable
// errors (per classifyRetryable) fail immediately without consuming a
// retry attempt.
func withRetry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = policy.BaseDelay
	expBackoff.MaxInterval = policy.MaxDelay
	expBackoff.Multiplier = 2.0
	expBackoff.MaxElapsedTime = 0 // bounded by MaxRetries, not wall-clock time

	bounded := backoff.WithContext(backoff.WithMaxRetries(expBackoff, uint64(policy.MaxRetries)), ctx)

	return backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if !classifyRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, bounded)
}
