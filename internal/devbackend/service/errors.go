package service

import (
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/authsession/pkg/authsdk"
)

// Error codes answered by the backend in addition to the ones the SDK
// dispatches on.
const (
	CodeFormIdentifierExists   = "form_identifier_exists"
	CodeFormParamMissing       = "form_param_missing"
	CodeStrategyForUserInvalid = "strategy_for_user_invalid"
	CodeSignInInvalidState     = "sign_in_invalid_state"
	CodeSignUpInvalidState     = "sign_up_invalid_state"
	CodeSessionNotActive       = "session_not_active"
	CodeVerificationMissing    = "verification_missing"
	CodeInternal               = "internal_error"
)

// Error is a failure reported to API callers with an HTTP status and one
// error entry.
type Error struct {
	Status      int
	Code        string
	Message     string
	LongMessage string
	Meta        map[string]any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

func newError(status int, code, format string, args ...any) *Error {
	return &Error{Status: status, Code: code, Message: fmt.Sprintf(format, args...)}
}

func errNotFound(kind, id string) *Error {
	return newError(http.StatusNotFound, authsdk.CodeResourceNotFound, "%s %q not found", kind, id)
}

func errParamMissing(param string) *Error {
	e := newError(http.StatusUnprocessableEntity, CodeFormParamMissing, "%s is required", param)
	e.Meta = map[string]any{"param_name": param}
	return e
}

func errInvalidState(code, format string, args ...any) *Error {
	return newError(http.StatusBadRequest, code, format, args...)
}

func errStrategy(name string) *Error {
	e := newError(http.StatusUnprocessableEntity, CodeStrategyForUserInvalid, "strategy %q is not available here", name)
	e.Meta = map[string]any{"param_name": "strategy"}
	return e
}

var (
	errRequiresAssertion = &Error{
		Status:  http.StatusUnauthorized,
		Code:    authsdk.CodeRequiresAssertion,
		Message: "device assertion required",
	}
	errAuthenticationInvalid = &Error{
		Status:      http.StatusUnauthorized,
		Code:        authsdk.CodeAuthenticationInvalid,
		Message:     "device token is not valid",
		LongMessage: "The device token does not belong to a known client. Fetch or create the client again.",
	}
	errCodeIncorrect = &Error{
		Status:  http.StatusUnprocessableEntity,
		Code:    authsdk.CodeFormCodeIncorrect,
		Message: "incorrect code",
		Meta:    map[string]any{"param_name": "code"},
	}
	errPasswordIncorrect = &Error{
		Status:  http.StatusUnprocessableEntity,
		Code:    authsdk.CodeFormPasswordIncorrect,
		Message: "password is incorrect",
		Meta:    map[string]any{"param_name": "password"},
	}
	errIdentifierNotFound = &Error{
		Status:  http.StatusUnprocessableEntity,
		Code:    authsdk.CodeIdentifierNotFound,
		Message: "couldn't find your account",
		Meta:    map[string]any{"param_name": "identifier"},
	}
	errVerificationExpired = &Error{
		Status:  http.StatusBadRequest,
		Code:    authsdk.CodeVerificationExpired,
		Message: "verification has expired",
	}
)
