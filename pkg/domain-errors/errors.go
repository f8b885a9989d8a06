// Package domainerrors defines the error taxonomy shared by services and the
// HTTP layer. Services attach a Code to every failure they surface; the
// transport layer maps codes to status codes and never leaks internals.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain failure.
type Code string

const (
	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeDuplicate    Code = "duplicate"
	CodeConflict     Code = "conflict"
	CodeInvalidState Code = "invalid_state"
	CodeInternal     Code = "internal"
)

// Error is a code-carrying error. The message is safe to show to clients;
// the wrapped cause is for logs only.
type Error struct {
	Code    Code
	Message string
	cause   error
}

// New builds a domain error with the given code and client-safe message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and client-safe message to an underlying cause.
func Wrap(cause error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for errors
// that did not come through the taxonomy.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the client-safe message, defaulting to a generic one so
// unexpected errors never leak internals.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal server error"
}

// ToHTTPStatus maps a code to its HTTP status. Duplicate-key violations map to
// 400 rather than 409: the taxonomy reserves 409 for optimistic concurrency
// conflicts.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeDuplicate, CodeInvalidState:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
