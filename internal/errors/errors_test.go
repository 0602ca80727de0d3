package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Unwrap_PreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(KindStoreError, "insert failed", cause)

	require.NotNil(t, err)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestError_Error_FormatsByContext(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "bare",
			err:      New(KindEmptyCorpus, "no documents to learn from"),
			expected: "[EmptyCorpus] no documents to learn from",
		},
		{
			name:     "with path",
			err:      New(KindPathNotFound, "root does not exist").WithPath("/tmp/nope"),
			expected: "[PathNotFound] root does not exist (path=/tmp/nope)",
		},
		{
			name:     "with collection",
			err:      New(KindCollectionLimitReached, "at capacity").WithCollection("code_chunks_abc123"),
			expected: "[CollectionLimitReached] at capacity (collection=code_chunks_abc123)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestError_Is_MatchesByKind(t *testing.T) {
	a := New(KindNotTrained, "call learn() first")
	b := New(KindNotTrained, "a different message")
	c := New(KindNotIndexed, "unknown root")

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestIsKind_AndIsRetryable(t *testing.T) {
	retryable := New(KindEmbeddingError, "upstream 503").WithRetryable(true)
	permanent := New(KindEmbeddingError, "bad api key").WithRetryable(false)

	assert.True(t, IsKind(retryable, KindEmbeddingError))
	assert.True(t, IsRetryable(retryable))
	assert.False(t, IsRetryable(permanent))
	assert.False(t, IsKind(errors.New("plain"), KindEmbeddingError))
}

func TestIsRetryableEmbeddingError_Classification(t *testing.T) {
	assert.False(t, IsRetryableEmbeddingError(400, errors.New("bad request")))
	assert.False(t, IsRetryableEmbeddingError(401, errors.New("unauthorized")))
	assert.False(t, IsRetryableEmbeddingError(403, errors.New("forbidden")))
	assert.True(t, IsRetryableEmbeddingError(429, errors.New("too many requests")))
	assert.True(t, IsRetryableEmbeddingError(503, errors.New("service unavailable")))
	assert.True(t, IsRetryableEmbeddingError(0, errors.New("dial tcp: connection refused")))
	assert.True(t, IsRetryableEmbeddingError(0, errors.New("context deadline exceeded: timeout")))
	assert.False(t, IsRetryableEmbeddingError(0, errors.New("invalid input shape")))
}
