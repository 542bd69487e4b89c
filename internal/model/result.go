package model

import (
	"errors"
	"fmt"
)

// UpstreamResponse is a fully drained upstream reply.
type UpstreamResponse struct {
	StatusCode int
	RawBody    string
}

// GatewayResult is what the gateway hands back to the caller. Exactly one of
// Data (on success) or HTTPStatus/Error/Details (on failure) is meaningful.
type GatewayResult struct {
	Success    bool
	Data       any
	HTTPStatus int
	Error      string
	Details    string
}

// OK wraps an upstream payload as a successful result.
func OK(data any) *GatewayResult {
	return &GatewayResult{Success: true, Data: data}
}

// Failure builds an unsuccessful result.
func Failure(status int, msg, details string) *GatewayResult {
	return &GatewayResult{HTTPStatus: status, Error: msg, Details: details}
}

// ErrorBody is the JSON shape returned to callers on failure.
type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ErrBodyTooLarge is reported when an upstream reply exceeds the read cap.
var ErrBodyTooLarge = errors.New("upstream body too large")

// ReadError reports an exchange that received a status line but whose body
// could not be read in full.
type ReadError struct {
	StatusCode int
	Err        error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read upstream body (status %d): %v", e.StatusCode, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }
