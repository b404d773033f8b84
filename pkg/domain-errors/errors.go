// Package domainerrors carries coded errors from services to transports.
//
// Services return these so handlers can map a failure kind onto a response
// without string matching. Stores return sentinel facts instead (see
// pkg/platform/sentinel) and services translate them.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code names a failure kind surfaced to callers.
type Code string

const (
	CodeAlreadyRegistered  Code = "already_registered"
	CodeUnregisteredHandle Code = "unregistered_handle"
	CodeNotFound           Code = "not_found"
	CodeLengthMismatch     Code = "length_mismatch"
	CodeUnauthorized       Code = "unauthorized"
	CodeInsufficientFunds  Code = "insufficient_funds"
	CodeValidation         Code = "validation_error"
	CodeBadRequest         Code = "bad_request"
	CodeForbidden          Code = "forbidden"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal_error"
)

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a coded error.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) error {
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the outermost code in the chain, or CodeInternal when none is present.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether err carries the given code at its outermost coded layer.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is shorthand for HasCode.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}
