package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net/http"
	"time"
)

const (
	MaxRetries    = 3
	RetryBaseWait = 1 * time.Second
)

// RetryableFunc represents a function that can be retried
type RetryableFunc func() error

// PermanentError wraps an error that must not be retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks err as non-retryable. WithRetry returns the wrapped error
// immediately when f fails with it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// WithRetry executes the given function with retry logic
func WithRetry(ctx context.Context, f RetryableFunc) error {
	var lastError error

	for attempt := 0; attempt < MaxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff with jitter
			backoff := time.Duration(float64(RetryBaseWait) * math.Pow(2, float64(attempt-1)))
			jitter := time.Duration(rand.Float64() * float64(backoff) * 0.1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff + jitter):
			}
		}

		if err := f(); err != nil {
			lastError = err
			var permanent *PermanentError
			if errors.As(err, &permanent) {
				return permanent.Err
			}
			var apiErr APIError
			if errors.As(err, &apiErr) && !ShouldRetry(apiErr.StatusCode()) {
				return err
			}
			continue
		}
		return nil
	}
	return lastError
}

// ShouldRetry determines if the given status code should trigger a retry
func ShouldRetry(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || // 429
		statusCode == http.StatusInternalServerError || // 500
		statusCode == http.StatusServiceUnavailable || // 503
		statusCode == http.StatusGatewayTimeout || // 504
		statusCode == 520 // Cloudflare
}

// APIError interface for errors that contain HTTP status codes
type APIError interface {
	error
	StatusCode() int
}
