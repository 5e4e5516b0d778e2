package command

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/utafrali/reviews/pkg/errors"
	"github.com/utafrali/reviews/pkg/logger"
	"github.com/utafrali/reviews/pkg/tracing"
)

// HandlerFunc processes one command and returns its result.
type HandlerFunc[C, R any] func(ctx context.Context, cmd C) (R, error)

// Middleware wraps a HandlerFunc. It decides whether and when to call next.
type Middleware[C, R any] func(next HandlerFunc[C, R]) HandlerFunc[C, R]

// Chain composes middlewares around h. The first middleware is the outermost.
func Chain[C, R any](h HandlerFunc[C, R], mws ...Middleware[C, R]) HandlerFunc[C, R] {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Outcome labels for logs and metrics.
const (
	OutcomeOK                = "ok"
	OutcomeValidationFailed  = "validation_failed"
	OutcomePersistenceFailed = "persistence_failed"
	OutcomeCanceled          = "canceled"
	OutcomeError             = "error"
)

// outcome classifies err for logs and metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, apperrors.ErrValidationFailed):
		return OutcomeValidationFailed
	case errors.Is(err, apperrors.ErrPersistenceFailed):
		return OutcomePersistenceFailed
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}

// Tracing wraps each command in a span named "command.<name>".
func Tracing[C, R any](name string) Middleware[C, R] {
	tracer := tracing.Tracer("github.com/utafrali/reviews/internal/command")
	return func(next HandlerFunc[C, R]) HandlerFunc[C, R] {
		return func(ctx context.Context, cmd C) (R, error) {
			ctx, span := tracer.Start(ctx, "command."+name, trace.WithAttributes(
				attribute.String("command.name", name),
			))
			defer span.End()

			res, err := next(ctx, cmd)
			span.SetAttributes(attribute.String("command.outcome", outcome(err)))
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, outcome(err))
			}
			return res, err
		}
	}
}

// Logging writes an entry record with the command payload before calling
// next and an exit record with outcome and duration after it, whatever the
// result. It never alters the result.
func Logging[C, R any](name string, fallback *slog.Logger) Middleware[C, R] {
	return func(next HandlerFunc[C, R]) HandlerFunc[C, R] {
		return func(ctx context.Context, cmd C) (R, error) {
			l := logger.For(ctx, fallback).With(slog.String("command", name))
			start := time.Now()

			l.InfoContext(ctx, "command received", slog.Any("payload", cmd))

			res, err := next(ctx, cmd)

			attrs := []any{
				slog.String("outcome", outcome(err)),
				slog.Duration("duration", time.Since(start)),
			}
			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
				l.WarnContext(ctx, "command failed", attrs...)
			} else {
				l.InfoContext(ctx, "command completed", attrs...)
			}
			return res, err
		}
	}
}

// Metrics counts commands by outcome and observes their duration.
func Metrics[C, R any](name string) Middleware[C, R] {
	return func(next HandlerFunc[C, R]) HandlerFunc[C, R] {
		return func(ctx context.Context, cmd C) (R, error) {
			start := time.Now()
			res, err := next(ctx, cmd)
			commandsTotal.WithLabelValues(name, outcome(err)).Inc()
			commandDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
			return res, err
		}
	}
}

// Validation runs validate and, if it reports any violation, returns
// ValidationFailed without calling next.
func Validation[C, R any](validate func(C) []apperrors.FieldViolation, fallback *slog.Logger) Middleware[C, R] {
	return func(next HandlerFunc[C, R]) HandlerFunc[C, R] {
		return func(ctx context.Context, cmd C) (R, error) {
			if violations := validate(cmd); len(violations) > 0 {
				logger.For(ctx, fallback).WarnContext(ctx, "command validation failed",
					slog.Any("violations", violations),
				)
				var zero R
				return zero, apperrors.ValidationFailed(violations)
			}
			return next(ctx, cmd)
		}
	}
}
