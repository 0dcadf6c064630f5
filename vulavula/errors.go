package vulavula

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	// ErrTokenNotConfigured is returned when no API credential is set.
	ErrTokenNotConfigured = errors.New("lelapa api token not configured")
	// ErrEmptyInput is returned for blank analysis input.
	ErrEmptyInput = errors.New("input text is empty")
	// ErrEmptyResponse is returned when the API answered 200 but the
	// payload carried no usable result.
	ErrEmptyResponse = errors.New("upstream response contained no result")
	// ErrEmptyTranscription is returned when transcription succeeded
	// but produced no text.
	ErrEmptyTranscription = errors.New("no transcription text in response")
)

// APIError is a non-200 answer from the vulavula API.
type APIError struct {
	Capability string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vulavula %s returned status %d: %s", e.Capability, e.StatusCode, e.Message)
}

// maxErrorBodyBytes bounds how much of an error body is kept.
const maxErrorBodyBytes = 512

// newAPIError builds an APIError from a non-200 response, keeping a
// bounded snippet of the body for diagnostics.
func newAPIError(capability string, resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	return &APIError{
		Capability: capability,
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(body)),
	}
}

// isRetryable reports whether an error is worth retrying: server-side
// failures and transport errors are, client errors and missing
// credentials are not.
func isRetryable(err error) bool {
	if errors.Is(err, ErrTokenNotConfigured) || errors.Is(err, ErrEmptyInput) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError ||
			apiErr.StatusCode == http.StatusTooManyRequests
	}

	// Empty-but-200 responses are treated as transient model hiccups.
	return true
}
