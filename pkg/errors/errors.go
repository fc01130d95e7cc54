package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies portal errors by how they should be handled.
type ErrorCode string

const (
	// ErrUnauthenticated means the credential is missing or rejected. When the
	// absence is detectable locally the operation is refused before any
	// network call.
	ErrUnauthenticated ErrorCode = "unauthenticated"
	// ErrValidation means the server rejected the submitted input.
	ErrValidation ErrorCode = "validation"
	// ErrNetwork means the request never produced an HTTP response.
	ErrNetwork ErrorCode = "network"
	// ErrServer means the server answered with a non-2xx status.
	ErrServer ErrorCode = "server"
	// ErrNotFound means a referenced entity does not exist.
	ErrNotFound ErrorCode = "not_found"
)

// AppError represents a portal operation error.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error constructors
func Unauthenticated(message string, err error) *AppError {
	return &AppError{Code: ErrUnauthenticated, Message: message, Err: err}
}

func Validation(message string, err error) *AppError {
	return &AppError{Code: ErrValidation, Message: message, Err: err}
}

func Network(message string, err error) *AppError {
	return &AppError{Code: ErrNetwork, Message: message, Err: err}
}

func Server(message string, err error) *AppError {
	return &AppError{Code: ErrServer, Message: message, Err: err}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{Code: ErrNotFound, Message: fmt.Sprintf("%s not found", resource), Err: err}
}

// CodeOf extracts the ErrorCode from err, unwrapping as needed. Errors that
// are not AppErrors are reported as ErrServer.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrServer
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
