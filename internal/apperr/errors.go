// Package apperr holds the error taxonomy shared by services and handlers.
package apperr

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeValidation    Code = "validation"
	CodeForbidden     Code = "forbidden"
	CodeConflict      Code = "conflict"
	CodeCapacity      Code = "capacity"
	CodeAlreadyMember Code = "already_member"
	CodeNotFound      Code = "not_found"
	CodeInternal      Code = "internal"
)

type Error struct {
	Code    Code
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func Validation(message string, fields map[string]string) *Error {
	return &Error{Code: CodeValidation, Message: message, Fields: fields}
}

func Forbidden(message string) *Error {
	return &Error{Code: CodeForbidden, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Code: CodeConflict, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Code: CodeNotFound, Message: message}
}

// Wrap marks an infrastructure failure. Nil in, nil out.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	return &Error{Code: CodeInternal, Message: message, Err: err}
}

// CodeOf returns the code carried by err, or CodeInternal.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// IsConflict reports the whole conflict family: duplicates, capacity and
// membership clashes.
func IsConflict(err error) bool {
	switch CodeOf(err) {
	case CodeConflict, CodeCapacity, CodeAlreadyMember:
		return err != nil
	default:
		return false
	}
}
