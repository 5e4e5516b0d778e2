package middleware

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/reviews/pkg/logger"
)

// RequestLogger stores a request-scoped logger in the context, enriched with
// correlation_id, user_id, trace_id and span_id. Mount it after
// RequestLogging, Tracing and Identity so those fields exist.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if id := UserIDFromContext(ctx); id != "" && logger.UserIDFromContext(ctx) == "" {
				ctx = logger.WithUserID(ctx, id)
			}

			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
