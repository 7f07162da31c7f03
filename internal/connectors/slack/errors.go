package slack

import (
	"errors"
	"fmt"

	"github.com/custodia-labs/slack-archive/internal/core/domain"
)

// CallError is a terminal failure of one API method call.
// It unwraps to domain.ErrRetriesExhausted or domain.ErrUnknownCallFailure.
type CallError struct {
	// Endpoint is the API method, e.g. "conversations.list".
	Endpoint string

	// StatusCode is the HTTP status of the last attempt, 0 for transport errors.
	StatusCode int

	// Attempts is the number of attempts made.
	Attempts int

	Err error
}

func (e *CallError) Error() string {
	if errors.Is(e.Err, domain.ErrRetriesExhausted) {
		return fmt.Sprintf("slack: call to %s failed after %d attempts: %v", e.Endpoint, e.Attempts, e.Err)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("slack: error calling %s (status %d): %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("slack: error calling %s: %v", e.Endpoint, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// APIError is a Slack response with "ok": false.
// Slack reports most application errors this way with HTTP 200.
type APIError struct {
	Endpoint string
	Code     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slack: %s returned error %q", e.Endpoint, e.Code)
}

// Unwrap classifies API errors as unknown call failures; they are never retried.
func (e *APIError) Unwrap() error {
	return domain.ErrUnknownCallFailure
}

// IsRetriesExhausted checks if the error is a rate-limit failure that used every attempt.
func IsRetriesExhausted(err error) bool {
	return errors.Is(err, domain.ErrRetriesExhausted)
}

// IsAPIError checks if the error is a Slack "ok": false response with the given code.
// An empty code matches any API error.
func IsAPIError(err error, code string) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return code == "" || apiErr.Code == code
}

func cancelled(endpoint string, err error) error {
	return fmt.Errorf("slack: %s: %w: %w", endpoint, domain.ErrCancelled, err)
}
