package domain

import (
	"errors"
	"fmt"
)

// ErrTokenNotConfigured means the Home Assistant access token is absent
// from configuration. No upstream call is attempted in that case.
var ErrTokenNotConfigured = errors.New("home assistant token not configured")

// ErrMissingFields means a log append request omitted a required field.
var ErrMissingFields = errors.New("missing required fields")

// UpstreamError carries the status and body of a failed Home Assistant
// call so handlers can relay them to the caller verbatim.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}
