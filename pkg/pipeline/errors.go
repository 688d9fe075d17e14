package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// ============================================================================
// Error Codes
// ============================================================================

const (
	// CodeRequiresAssertion means the device assertion was missing or rejected.
	CodeRequiresAssertion = "requires_assertion"
	// CodeRequiresDeviceAttestation is the older spelling of CodeRequiresAssertion.
	CodeRequiresDeviceAttestation = "requires_device_attestation"
	// CodeAuthenticationInvalid means the device's client or session is no
	// longer valid on the backend.
	CodeAuthenticationInvalid = "authentication_invalid"
	// CodeClientNotFound means the device token references a deleted client.
	CodeClientNotFound = "client_not_found"
	// CodeTooManyRequests is sent with HTTP 429.
	CodeTooManyRequests = "too_many_requests"
)

// ErrClosed is returned when a request is aborted because the owner of the
// pipeline shut down.
var ErrClosed = errors.New("pipeline: closed")

// ============================================================================
// APIError - errors declared by the backend
// ============================================================================

// ErrorDetail is one entry of the backend's errors array.
type ErrorDetail struct {
	// Code is the machine readable dispatch key, e.g. "form_code_incorrect"
	Code string `json:"code"`

	// Message is a short human readable message
	Message string `json:"message"`

	// LongMessage is an optional longer explanation suitable for display
	LongMessage string `json:"long_message,omitempty"`

	// Meta holds optional structured context (e.g. the offending param)
	Meta map[string]any `json:"meta,omitempty"`
}

// APIError is a structured error returned by the backend. It is always
// surfaced to callers verbatim.
type APIError struct {
	StatusCode int           `json:"-"`
	Errors     []ErrorDetail `json:"errors"`
	TraceID    string        `json:"trace_id,omitempty"`

	// Header carries the response headers, Retry-After in particular.
	Header http.Header `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("api error: HTTP %d", e.StatusCode)
	}
	first := e.Errors[0]
	msg := first.LongMessage
	if msg == "" {
		msg = first.Message
	}
	return fmt.Sprintf("api error: HTTP %d: %s: %s", e.StatusCode, first.Code, msg)
}

// Code returns the code of the first error entry, or "" when there is none.
func (e *APIError) Code() string {
	if len(e.Errors) == 0 {
		return ""
	}
	return e.Errors[0].Code
}

// HasCode reports whether any error entry carries one of codes.
func (e *APIError) HasCode(codes ...string) bool {
	for _, d := range e.Errors {
		for _, c := range codes {
			if d.Code == c {
				return true
			}
		}
	}
	return false
}

// AsAPIError unwraps err into an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// parseErrorResponse turns a non-2xx response into an *APIError. Bodies that
// are not in the errors format still produce an APIError keyed by status.
func parseErrorResponse(resp *Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode, Header: resp.Header}

	var body APIError
	if err := json.Unmarshal(resp.Body, &body); err == nil && len(body.Errors) > 0 {
		apiErr.Errors = body.Errors
		apiErr.TraceID = body.TraceID
		return apiErr
	}

	code := "unexpected_response"
	if resp.StatusCode == http.StatusTooManyRequests {
		code = CodeTooManyRequests
	}
	apiErr.Errors = []ErrorDetail{{
		Code:    code,
		Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}}
	return apiErr
}

// ============================================================================
// TransportError - the request never produced a response
// ============================================================================

// TransportError wraps a failure to deliver a request or read its response.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Transient reports whether retrying the request might succeed: timeouts,
// refused or reset connections and truncated responses. Cancellation is never
// transient.
func (e *TransportError) Transient() bool {
	if errors.Is(e.Err, context.Canceled) || errors.Is(e.Err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(e.Err, &netErr) && netErr.Timeout() {
		return true
	}

	switch {
	case errors.Is(e.Err, syscall.ECONNREFUSED),
		errors.Is(e.Err, syscall.ECONNRESET),
		errors.Is(e.Err, syscall.EPIPE),
		errors.Is(e.Err, io.ErrUnexpectedEOF),
		errors.Is(e.Err, io.EOF):
		return true
	}

	// net/http does not always wrap the underlying errno
	msg := e.Err.Error()
	return strings.Contains(msg, "connection reset") || strings.Contains(msg, "connection refused")
}
