package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Standard sentinel errors for common cases.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInternal          = errors.New("internal error")
	ErrServiceUnavail    = errors.New("service unavailable")
	ErrValidationFailed  = errors.New("validation failed")
	ErrPersistenceFailed = errors.New("persistence failed")
)

// FieldViolation is a single failed rule on a command or request field.
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code       string           `json:"code"`
	Message    string           `json:"message"`
	Violations []FieldViolation `json:"violations,omitempty"`
	Status     int              `json:"-"`
	Err        error            `json:"-"`
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

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// Internal creates a 500 error for a cause that has no better classification.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     fmt.Errorf("%w: %w", ErrInternal, err),
	}
}

// ValidationFailed creates a 400 error carrying every violated rule so the
// caller can correct all of them at once.
func ValidationFailed(violations []FieldViolation) *AppError {
	msgs := make([]string, 0, len(violations))
	for _, v := range violations {
		msgs = append(msgs, v.Message)
	}
	return &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    strings.Join(msgs, "; "),
		Violations: violations,
		Status:     http.StatusBadRequest,
		Err:        ErrValidationFailed,
	}
}

// PersistenceFailed creates a 500 error for a rejected or unreachable write.
// The cause is kept for logging and errors.Is checks but never rendered.
func PersistenceFailed(cause error) *AppError {
	return &AppError{
		Code:    "PERSISTENCE_FAILED",
		Message: "the review could not be saved",
		Status:  http.StatusInternalServerError,
		Err:     fmt.Errorf("%w: %w", ErrPersistenceFailed, cause),
	}
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidationFailed):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrServiceUnavail):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
