// Package domainerrors defines coded domain errors shared across services.
//
// Services return these so the HTTP layer can map them onto status codes and
// structured error bodies without inspecting error strings. Infrastructure
// layers return pkg/platform/sentinel errors instead; services translate.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies a class of domain error.
type Code string

const (
	// CodeBadRequest covers malformed input, including identifiers that fail
	// their grammar (the FormatError class).
	CodeBadRequest Code = "bad_request"
	// CodeNotFound covers missing registry entries and mapping records.
	CodeNotFound Code = "not_found"
	// CodeConflict covers uniqueness violations (sequence slot already taken).
	CodeConflict Code = "conflict"
	// CodePipelineViolation covers generation/translation calls whose
	// provenance token is missing, unverifiable, or out of order.
	CodePipelineViolation Code = "PIPELINE_VIOLATION"
	// CodeUnprocessable covers structurally valid input that fails domain
	// validation, e.g. an unknown classification type.
	CodeUnprocessable Code = "unprocessable_entity"
	// CodeInternal covers digest computation and store access failures.
	CodeInternal Code = "internal_error"
)

// Error is a domain error with a stable code and a human-readable message.
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

// New builds a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error, preserving the
// cause for errors.Is/errors.As chains.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) is a domain error with
// the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is a readability alias for HasCode at call sites that read better as
// dErrors.Is(err, dErrors.CodeBadRequest).
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// non-domain errors so unexpected failures never leak details.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the message from err; empty for non-domain errors.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}
