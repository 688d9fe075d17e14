package authsdk

import (
	"errors"
	"fmt"

	"github.com/aussiebroadwan/authsession/pkg/pipeline"
)

// APIError is an error declared by the backend. It is surfaced unchanged;
// dispatch on Code() with errors.As.
type APIError = pipeline.APIError

// ErrorDetail is one entry of an APIError.
type ErrorDetail = pipeline.ErrorDetail

var (
	// ErrNoActiveSession is returned by operations that need a signed in
	// session when the device has none.
	ErrNoActiveSession = errors.New("authsdk: no active session")

	// ErrClosed is returned once the SDK client has been closed, including by
	// requests whose retry wait was interrupted by Close.
	ErrClosed = pipeline.ErrClosed
)

// Backend error codes the SDK dispatches on.
const (
	CodeRequiresAssertion     = pipeline.CodeRequiresAssertion
	CodeAuthenticationInvalid = pipeline.CodeAuthenticationInvalid
	CodeClientNotFound        = pipeline.CodeClientNotFound
	CodeTooManyRequests       = pipeline.CodeTooManyRequests
	CodeFormCodeIncorrect     = "form_code_incorrect"
	CodeFormPasswordIncorrect = "form_password_incorrect"
	CodeIdentifierNotFound    = "form_identifier_not_found"
	CodeVerificationExpired   = "verification_expired"
	CodeResourceNotFound      = "resource_not_found"
)

// ClientError is a protocol integrity failure detected by the SDK itself: a
// flow used in the wrong state, a redirect callback without the expected
// parts, a response missing a required field. It is never retried.
type ClientError struct {
	// Op names the operation that failed, e.g. "sign_in.reset_password"
	Op string

	// Message describes what was wrong
	Message string

	// Err is an optional underlying cause
	Err error
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authsdk: %s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("authsdk: %s: %s", e.Op, e.Message)
}

func (e *ClientError) Unwrap() error { return e.Err }

func clientErr(op, format string, args ...any) *ClientError {
	return &ClientError{Op: op, Message: fmt.Sprintf(format, args...)}
}

// IsCode reports whether err is an APIError carrying code.
func IsCode(err error, code string) bool {
	apiErr, ok := pipeline.AsAPIError(err)
	return ok && apiErr.HasCode(code)
}
