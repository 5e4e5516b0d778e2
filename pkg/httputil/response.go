package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	apperrors "github.com/utafrali/reviews/pkg/errors"
	"github.com/utafrali/reviews/pkg/logger"
)

// Response is the standard JSON response envelope.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse represents an error in the standard response format.
type ErrorResponse struct {
	Code       string                     `json:"code"`
	Message    string                     `json:"message"`
	Violations []apperrors.FieldViolation `json:"violations,omitempty"`
	RequestID  string                     `json:"request_id,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteData writes v wrapped in the data envelope.
func WriteData(w http.ResponseWriter, status int, v any) {
	WriteJSON(w, status, Response{Data: v})
}

// WriteError renders err in the error envelope. AppErrors keep their code,
// message and violations; anything else is mapped by sentinel, falling back to
// apperrors.Internal. 5xx causes are logged with the request-scoped logger and
// never sent to the client.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	ctx := r.Context()
	body := &ErrorResponse{RequestID: logger.CorrelationIDFromContext(ctx)}
	status := apperrors.HTTPStatus(err)

	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
	case errors.Is(err, apperrors.ErrInvalidInput):
		appErr = apperrors.InvalidInput(err.Error())
	case errors.Is(err, apperrors.ErrServiceUnavail):
		appErr = &apperrors.AppError{Code: "SERVICE_UNAVAILABLE", Message: "service temporarily unavailable"}
	default:
		appErr = apperrors.Internal(err)
	}
	body.Code = appErr.Code
	body.Message = appErr.Message
	body.Violations = appErr.Violations

	if status >= http.StatusInternalServerError {
		logger.For(ctx, fallback).ErrorContext(ctx, "request failed",
			slog.String("code", body.Code),
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	WriteJSON(w, status, Response{Error: body})
}

// ParseInt64 parses a path or query parameter as a base-10 int64. On failure it
// writes a 400 INVALID_PARAMETER response and returns false.
func ParseInt64(w http.ResponseWriter, name, raw string) (int64, bool) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		WriteJSON(w, http.StatusBadRequest, Response{
			Error: &ErrorResponse{
				Code:    "INVALID_PARAMETER",
				Message: "invalid " + name + ": " + raw,
			},
		})
		return 0, false
	}
	return v, true
}
