// Package domainerrors provides coded errors for the service layer.
//
// Services return these so transport code can translate failures into HTTP
// status codes without inspecting error strings. Stores return sentinel
// errors (pkg/platform/sentinel); services translate sentinels into coded
// errors at the boundary where the missing resource has a domain meaning.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for transport mapping and logging.
type Code string

const (
	// CodeBadRequest covers malformed or invalid request input: unknown
	// filters, bad sort specs, malformed markers and identifiers.
	CodeBadRequest Code = "bad_request"

	// CodeUnauthorized means missing or invalid credentials.
	CodeUnauthorized Code = "unauthorized"

	// CodeForbidden means the caller is authenticated but not permitted,
	// e.g. requesting cross-project visibility without the admin role.
	CodeForbidden Code = "forbidden"

	// CodeNotFound means the resource does not exist, or exists outside the
	// caller's project scope (existence is never leaked across projects).
	CodeNotFound Code = "not_found"

	// CodeConflict means the request conflicts with current state.
	CodeConflict Code = "conflict"

	// CodeUnavailable means a backing store or dependency is unreachable
	// or overloaded; the request may succeed if retried.
	CodeUnavailable Code = "service_unavailable"

	// CodeInternal covers unexpected failures. Details are logged but never
	// surfaced to clients.
	CodeInternal Code = "internal_error"
)

// Error is a coded domain error. Message is safe to show to API clients for
// every code except CodeInternal.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is makes errors.Is match two coded errors by code, so tests and callers
// can compare against dErrors.New(code, ...) without string matching.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Code == t.Code
}

// New creates a coded error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error, preserving the
// cause for errors.Is / errors.As chains.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is a readable alias for HasCode at call sites that check one code.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf returns the code carried by err, or CodeInternal for uncoded errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the client-safe message for err. Internal errors yield an
// empty message so no storage or stack detail leaks.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Code != CodeInternal {
		return de.Message
	}
	return ""
}
