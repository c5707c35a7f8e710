package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents an application error with HTTP status code
type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"errors,omitempty"`
	Status  int               `json:"-"`
	Err     error             `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithCode returns a copy of the error carrying a more specific code
func (e *AppError) WithCode(code string) *AppError {
	cp := *e
	cp.Code = code
	return &cp
}

// NewAppError creates a new AppError
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// FieldErrors collects per-field validation messages before any mutation happens.
type FieldErrors map[string]string

// Add records msg for field unless the field already has a message.
func (f FieldErrors) Add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

// Err returns a validation error when any field failed, nil otherwise.
func (f FieldErrors) Err(message string) error {
	if len(f) == 0 {
		return nil
	}
	return Validation(message, f)
}

// Validation creates a 400 error carrying per-field messages
func Validation(message string, fields map[string]string) *AppError {
	if fields == nil {
		fields = map[string]string{}
	}
	return &AppError{
		Code:    "VALIDATION_ERROR",
		Message: message,
		Fields:  fields,
		Status:  http.StatusBadRequest,
	}
}

// Invalid creates a validation error for a single field
func Invalid(field, message string) *AppError {
	return Validation(message, map[string]string{field: message})
}

// BadRequest creates a 400 error
func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    "BAD_REQUEST",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     err,
	}
}

// Unauthorized creates a 401 error
func Unauthorized(message string, err error) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     err,
	}
}

// Forbidden creates a 403 error
func Forbidden(message string, err error) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     err,
	}
}

// NotFound creates a 404 error
func NotFound(message string, err error) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: message,
		Status:  http.StatusNotFound,
		Err:     err,
	}
}

// Conflict creates a 409 error
func Conflict(message string, err error) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     err,
	}
}

// RateLimited creates a 429 error
func RateLimited(message string) *AppError {
	return &AppError{
		Code:    "RATE_LIMIT_EXCEEDED",
		Message: message,
		Status:  http.StatusTooManyRequests,
	}
}

// Unavailable creates a 500 error for a failed downstream collaborator (SMS, email)
func Unavailable(message string, err error) *AppError {
	return &AppError{
		Code:    "SERVICE_UNAVAILABLE",
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Internal creates a 500 error
func Internal(message string, err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Domain-specific errors

var (
	ErrUserNotFound          = NotFound("User not found", nil)
	ErrRideNotFound          = NotFound("Ride not found", nil)
	ErrRatingNotFound        = NotFound("Rating not found", nil)
	ErrDriverProfileNotFound = NotFound("Driver profile not found", nil)

	ErrRideNotAvailable   = Conflict("Ride is no longer available", nil)
	ErrRideStatusChanged  = Conflict("Ride status was changed by another request", nil)
	ErrNotRideParticipant = Forbidden("You are not a participant in this ride", nil)

	ErrInvalidCredentials = Unauthorized("Invalid credentials", nil)
	ErrInvalidToken       = Unauthorized("Invalid or expired token", nil)
)

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError attempts to convert an error to AppError
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
