package chzzk

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrUpstreamUnavailable = errors.New("upstream: host unreachable or transport failure")
	ErrUpstreamError       = errors.New("upstream: internal error (5xx)")
	ErrUpstreamBadResponse = errors.New("upstream: invalid response format or malformed data")
	ErrTimeout             = errors.New("upstream: request timed out")
)

// APIError is a rich error type that wraps the sentinel errors with context.
type APIError struct {
	Sentinel  error
	Operation string
	Status    int    // HTTP status, 0 when no response was received
	Code      int    // envelope code, 0 when the body was not decoded
	Message   string // envelope message or truncated body
	Err       error  // nested lower-level error (e.g. net.Error)
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("chzzk: %s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Code > 0 && e.Code != e.Status {
		msg = fmt.Sprintf("%s (code %d)", msg, e.Code)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Sentinel
}

// transportError classifies a failed round trip.
func transportError(op string, err error) *APIError {
	sentinel := ErrUpstreamUnavailable
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		sentinel = ErrTimeout
	}
	return &APIError{Sentinel: sentinel, Operation: op, Err: err}
}

// statusError classifies a non-200 HTTP response.
func statusError(op string, status int, body string) *APIError {
	sentinel := ErrUpstreamBadResponse
	if status >= 500 {
		sentinel = ErrUpstreamError
	}
	return &APIError{Sentinel: sentinel, Operation: op, Status: status, Message: body}
}
