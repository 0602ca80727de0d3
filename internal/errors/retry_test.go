package errors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastRetryConfig(), nil, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetry_StopsImmediatelyOnNonRetryable(t *testing.T) {
	attempts := 0
	permanentErr := errors.New("bad api key")
	isRetryable := func(err error) bool { return false }

	err := Retry(context.Background(), fastRetryConfig(), isRetryable, func() error {
		attempts++
		return permanentErr
	})

	require.Error(t, err)
	assert.Equal(t, permanentErr, err)
	assert.Equal(t, 1, attempts)
}

func TestRetry_GivesUpAfterMaxRetries(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastRetryConfig(), nil, func() error {
		attempts++
		return errors.New("always fails")
	})

	require.Error(t, err)
	assert.Equal(t, 4, attempts) // initial + 3 retries
}

func TestRetry_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, fastRetryConfig(), nil, func() error {
		return errors.New("should not matter")
	})

	require.Error(t, err)
}

func TestRetryWithResult_ReturnsValueOnSuccess(t *testing.T) {
	attempts := 0
	result, err := RetryWithResult(context.Background(), fastRetryConfig(), nil, func() (int, error) {
		attempts++
		if attempts < 2 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
}
