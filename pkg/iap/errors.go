package iap

import (
	"errors"
	"fmt"
)

// Error codes for each step of the flow that can fail.
const (
	// ErrCodeCredentialLoad indicates the credential source is unreadable or
	// lacks private_key / client_email.
	ErrCodeCredentialLoad = "CREDENTIAL_LOAD"

	// ErrCodeKeySigning indicates the private key could not be decoded or the
	// signing operation failed.
	ErrCodeKeySigning = "KEY_SIGNING"

	// ErrCodeExchange indicates the token endpoint could not be reached or
	// answered with a non-2xx status.
	ErrCodeExchange = "EXCHANGE"

	// ErrCodeExchangeProtocol indicates a 2xx token response without an id_token.
	ErrCodeExchangeProtocol = "EXCHANGE_PROTOCOL"

	// ErrCodeFetch indicates the protected resource request failed.
	ErrCodeFetch = "FETCH"
)

// Error is returned by every step of the flow.
//
// StatusCode, Reason and Body are set when the failure came from an HTTP
// response; Body is the raw response body, unmodified.
type Error struct {
	Code    string
	Message string

	StatusCode int
	Reason     string
	Body       string

	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (HTTP %d %s): %s", msg, e.StatusCode, e.Reason, e.Body)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// NewError creates a new Error with the given code and message.
func NewError(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WrapError creates a new Error that wraps an underlying error.
func WrapError(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// newHTTPError records a non-success response verbatim.
func newHTTPError(code, message string, statusCode int, reason string, body []byte) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Reason:     reason,
		Body:       string(body),
	}
}

// Sentinels for use with errors.Is.
var (
	ErrCredentialLoad   = NewError(ErrCodeCredentialLoad, "failed to load credentials")
	ErrKeySigning       = NewError(ErrCodeKeySigning, "failed to sign assertion")
	ErrExchange         = NewError(ErrCodeExchange, "token exchange failed")
	ErrExchangeProtocol = NewError(ErrCodeExchangeProtocol, "token response missing id_token")
	ErrFetch            = NewError(ErrCodeFetch, "protected resource request failed")
)

// AsError checks if err is an Error and returns it if so.
func AsError(err error) (*Error, bool) {
	var iapErr *Error
	if errors.As(err, &iapErr) {
		return iapErr, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from an Error, or returns empty string.
func GetErrorCode(err error) string {
	if iapErr, ok := AsError(err); ok {
		return iapErr.Code
	}
	return ""
}

// IsAuthError reports whether err happened while obtaining the ID token,
// as opposed to while calling the protected resource.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrExchange) || errors.Is(err, ErrExchangeProtocol)
}
