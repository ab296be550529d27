package contract

import (
	"errors"
	"fmt"
	"net/http"
)

// Error taxonomy shared by the upstream client and the stats cache.
var (
	// ErrUpstreamUnavailable is a non-2xx, non-403 response or a transport failure.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrRateLimited is an HTTP 403 from the profile or repository endpoints.
	ErrRateLimited = errors.New("upstream rate limited")

	// ErrNoCacheAvailable means a refresh failed and nothing was cached to fall back on.
	ErrNoCacheAvailable = errors.New("no cached stats available")

	// ErrInvalidIdentity is returned for an empty identity.
	ErrInvalidIdentity = errors.New("identity must not be empty")
)

// UpstreamError describes a failed upstream request.
// StatusCode is 0 when the request never produced a response.
type UpstreamError struct {
	StatusCode int
	URL        string
	Message    string
	Err        error
}

// NewStatusError builds an UpstreamError for a non-2xx response.
func NewStatusError(statusCode int, url, message string) *UpstreamError {
	if message == "" {
		message = http.StatusText(statusCode)
	}
	return &UpstreamError{StatusCode: statusCode, URL: url, Message: message}
}

// NewTransportError builds an UpstreamError for a request that failed before a response.
func NewTransportError(url string, err error) *UpstreamError {
	return &UpstreamError{URL: url, Message: "request failed", Err: err}
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		if e.Err != nil {
			return fmt.Sprintf("%s %s: %v", e.Message, e.URL, e.Err)
		}
		return fmt.Sprintf("%s %s", e.Message, e.URL)
	}
	return fmt.Sprintf("unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Message)
}

// Unwrap returns the transport error, if any.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is maps the error onto the taxonomy sentinels.
func (e *UpstreamError) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return e.RateLimited()
	case ErrUpstreamUnavailable:
		return !e.RateLimited()
	default:
		return false
	}
}

// RateLimited reports whether the upstream refused the request with a 403.
func (e *UpstreamError) RateLimited() bool {
	return e.StatusCode == http.StatusForbidden
}
