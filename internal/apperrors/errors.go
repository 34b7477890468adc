package apperrors

import (
	"errors"
	"fmt"
)

// Taxonomy sentinels. Services join their specific errors onto these with
// fmt.Errorf("%w: ...") so handlers can map a kind to a status with errors.Is.

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrForbidden indicates the authenticated caller is not allowed to perform the operation.
var ErrForbidden = errors.New("forbidden")

// ErrConflict indicates the operation is not valid for the resource's current state.
var ErrConflict = errors.New("state conflict")

// ErrExternal indicates a failure (or timeout) of an external collaborator.
// Anything other than an explicit success from a collaborator maps here.
var ErrExternal = errors.New("external service failure")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// AppError carries an HTTP-ish status code alongside the wrapped cause.
// Repositories use it to surface infrastructure failures without losing the cause.
type AppError struct {
	Code    int
	Message string
	Err     error
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

// NewAppError creates an AppError wrapping err.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}
