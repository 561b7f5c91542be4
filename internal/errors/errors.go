package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies failures across the service and repository layers.
type ErrorCode string

const (
	// CodeNotFound indicates a referenced calendar day, user, concept, or period does not exist.
	CodeNotFound ErrorCode = "not_found"
	// CodeConflict indicates a duplicate creation attempt or a guarded overwrite without force.
	CodeConflict ErrorCode = "conflict"
	// CodeCollaboratorFailure indicates a text-generation or embedding service call failed.
	CodeCollaboratorFailure ErrorCode = "collaborator_failure"
	// CodeInvalidArgument indicates malformed caller input.
	CodeInvalidArgument ErrorCode = "invalid_argument"
	// CodeInternal indicates an unexpected internal failure.
	CodeInternal ErrorCode = "internal"
)

// AppError carries a stable error code alongside the underlying cause.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// Is matches AppErrors by code so sentinel comparison works through wrapping.
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if errors.As(target, &appErr) {
		return e.Code == appErr.Code
	}
	return false
}

// NewNotFound creates a not_found error.
func NewNotFound(format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// NewConflict creates a conflict error.
func NewConflict(format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

// NewInvalidArgument creates an invalid_argument error.
func NewInvalidArgument(format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// NewInternal creates an internal error.
func NewInternal(format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

// WrapCollaborator wraps a failed collaborator call so schedulers can retry it later.
func WrapCollaborator(err error, format string, args ...interface{}) *AppError {
	return &AppError{Code: CodeCollaboratorFailure, Message: fmt.Sprintf(format, args...), Err: err}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(code ErrorCode, err error, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf extracts the error code, defaulting to internal for untyped errors.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// IsNotFound reports whether err carries the not_found code.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }

// IsConflict reports whether err carries the conflict code.
func IsConflict(err error) bool { return CodeOf(err) == CodeConflict }

// IsCollaboratorFailure reports whether err carries the collaborator_failure code.
func IsCollaboratorFailure(err error) bool { return CodeOf(err) == CodeCollaboratorFailure }

// IsInvalidArgument reports whether err carries the invalid_argument code.
func IsInvalidArgument(err error) bool { return CodeOf(err) == CodeInvalidArgument }

// HTTPStatus maps an error to the HTTP status returned to API callers.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeCollaboratorFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
