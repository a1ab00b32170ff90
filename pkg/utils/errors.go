package utils

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("resource not found")
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("concurrent modification detected")
	ErrInvalidState       = errors.New("invalid state transition")
	ErrServiceUnavailable = errors.New("collaborating service unavailable")
	ErrInternal           = errors.New("internal error")
)

const (
	CodeNotFound           = "NOT_FOUND"
	CodeValidation         = "VALIDATION_ERROR"
	CodeConflict           = "CONFLICT"
	CodeInvalidState       = "INVALID_STATE"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeInternal           = "INTERNAL_ERROR"
)

type AppError struct {
	Code    string
	Message string
	Err     error
	Details map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewNotFoundError builds the standard not-found error for a resource type.
func NewNotFoundError(resource string, id interface{}) *AppError {
	return NewAppError(CodeNotFound, fmt.Sprintf("%s not found", resource), ErrNotFound).
		WithDetail("id", fmt.Sprintf("%v", id))
}

// NewValidationError carries every violated field so callers can report all
// violations at once instead of failing on the first one.
func NewValidationError(message string, violations map[string]string) *AppError {
	appErr := NewAppError(CodeValidation, message, ErrValidation)
	if len(violations) > 0 {
		details := make(map[string]interface{}, len(violations))
		for field, reason := range violations {
			details[field] = reason
		}
		appErr.Details["violations"] = details
	}
	return appErr
}

func NewConflictError(resource string, id interface{}) *AppError {
	return NewAppError(CodeConflict,
		fmt.Sprintf("%s was modified by another request", resource), ErrConflict).
		WithDetail("id", fmt.Sprintf("%v", id))
}

func NewInvalidStateError(message string) *AppError {
	return NewAppError(CodeInvalidState, message, ErrInvalidState)
}

func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.Is(err, ErrNotFound) ||
		(err != nil && errors.As(err, &appErr) && appErr.Code == CodeNotFound)
}

func IsValidation(err error) bool {
	var appErr *AppError
	return errors.Is(err, ErrValidation) ||
		(err != nil && errors.As(err, &appErr) && appErr.Code == CodeValidation)
}

func IsConflict(err error) bool {
	var appErr *AppError
	return errors.Is(err, ErrConflict) ||
		(err != nil && errors.As(err, &appErr) && appErr.Code == CodeConflict)
}

func IsInvalidState(err error) bool {
	var appErr *AppError
	return errors.Is(err, ErrInvalidState) ||
		(err != nil && errors.As(err, &appErr) && appErr.Code == CodeInvalidState)
}

func WrapError(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
