package errors

import (
	"strings"
)

// nonRetryableHTTPPrefixes are status codes whose "<code> bad request" or
// "<code> unauthorized" text in an error message short-circuits
// classification to false regardless of any retryable-looking substring
// also present (e.g. a "400 bad request" body that happens to mention
// "timeout" in a field name is still non-retryable).
var nonRetryableHTTPPrefixes = []string{"400", "401", "403"}

// retryableNetworkSubstrings are lowercase substrings of an error message
// that mark it as a transient network condition.
var retryableNetworkSubstrings = []string{
	"econnrefused",
	"etimedout",
	"enotfound",
	"eai_again",
	"connection refused",
	"connection reset",
	"rate limit",
	"quota exceeded",
	"service unavailable",
	"timeout",
	"connection",
}

// IsRetryableEmbeddingError implements the classification rule from the
// embedding provider contract: HTTP 400/401/403 and malformed-request
// failures are permanent; connection failures, HTTP 429/5xx, and the listed
// message patterns are retryable.
func IsRetryableEmbeddingError(statusCode int, err error) bool {
	if statusCode == 400 || statusCode == 401 || statusCode == 403 {
		return false
	}
	if statusCode == 429 || (statusCode >= 500 && statusCode < 600) {
		return true
	}
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, prefix := range nonRetryableHTTPPrefixes {
		if strings.Contains(msg, prefix+" bad request") || strings.Contains(msg, prefix+" unauthorized") {
			return false
		}
	}
	for _, substr := range retryableNetworkSubstrings {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}
