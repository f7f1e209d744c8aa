package openai

import (
	"fmt"

	"github.com/careboard-ai/careboard/retry"
)

// APIError represents an error returned by the completions API.
type APIError struct {
	statusCode int
	body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("completions api error (status %d): %s", e.statusCode, e.body)
}

func (e *APIError) StatusCode() int {
	return e.statusCode
}

// NewError creates a new APIError. Non-retryable status codes are wrapped
// with retry.Permanent.
func NewError(statusCode int, body string) error {
	err := &APIError{statusCode: statusCode, body: body}
	if !retry.ShouldRetry(statusCode) {
		return retry.Permanent(err)
	}
	return err
}
