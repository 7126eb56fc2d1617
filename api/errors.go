// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for ringq.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrEmpty           = errors.New("queue empty")
	ErrFull            = errors.New("queue full")
	ErrTimeout         = errors.New("operation timeout")
	ErrClosed          = errors.New("resource is closed")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeEmpty
	ErrCodeFull
	ErrCodeTimeout
	ErrCodeClosed
	ErrCodeInternal
)

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// Unwrap maps the code back to its sentinel so errors.Is keeps working.
func (e *Error) Unwrap() error {
	switch e.Code {
	case ErrCodeInvalidArgument:
		return ErrInvalidArgument
	case ErrCodeEmpty:
		return ErrEmpty
	case ErrCodeFull:
		return ErrFull
	case ErrCodeTimeout:
		return ErrTimeout
	case ErrCodeClosed:
		return ErrClosed
	default:
		return nil
	}
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// CodeOf classifies err. nil maps to ErrCodeOK, unknown errors to ErrCodeInternal.
func CodeOf(err error) ErrorCode {
	var se *Error
	switch {
	case err == nil:
		return ErrCodeOK
	case errors.As(err, &se):
		return se.Code
	case errors.Is(err, ErrInvalidArgument):
		return ErrCodeInvalidArgument
	case errors.Is(err, ErrEmpty):
		return ErrCodeEmpty
	case errors.Is(err, ErrFull):
		return ErrCodeFull
	case errors.Is(err, ErrTimeout):
		return ErrCodeTimeout
	case errors.Is(err, ErrClosed):
		return ErrCodeClosed
	default:
		return ErrCodeInternal
	}
}

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeInvalidArgument:
		return "invalid_argument"
	case ErrCodeEmpty:
		return "empty"
	case ErrCodeFull:
		return "full"
	case ErrCodeTimeout:
		return "timeout"
	case ErrCodeClosed:
		return "closed"
	default:
		return "internal"
	}
}
