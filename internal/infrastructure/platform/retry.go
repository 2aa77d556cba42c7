// Package platform holds shared plumbing for the external platform
// adapters: retry policy and HTTP error classification.
package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ledgerlink/backend/internal/domain/integration"
)

// RetryPolicy controls retries of throttled or transiently failing
// platform calls.
type RetryPolicy struct {
	// MaxAttempts is the total attempt count including the first call.
	MaxAttempts int
	// BaseDelay is the delay before the second attempt; later attempts
	// use exponential backoff (BaseDelay * 2^(attempt-1)).
	BaseDelay time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
	}
}

// HTTPStatusError carries a non-2xx platform response.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("platform returned status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether an error is worth retrying: rate limits and
// server-side failures are, everything else is not.
func Retryable(err error) bool {
	if errors.Is(err, integration.ErrRateLimited) {
		return true
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests ||
			statusErr.StatusCode >= http.StatusInternalServerError
	}
	return false
}

// Do runs fn with retries under the policy. It returns the last error
// when attempts are exhausted and stops early on context cancellation
// or a non-retryable error.
func Do(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := policy.BaseDelay * time.Duration(1<<(attempt-2))
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !Retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
