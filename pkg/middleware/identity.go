package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/utafrali/reviews/pkg/logger"
)

// UserIDHeader is set by the gateway after it authenticates the caller.
const UserIDHeader = "X-User-ID"

type contextKey string

const userIDKey contextKey = "user_id"

// Identity copies the caller's opaque user ID from the X-User-ID header into
// the request context. Requests without the header pass through anonymous;
// handlers decide whether identity is required.
func Identity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := strings.TrimSpace(r.Header.Get(UserIDHeader)); id != "" {
				ctx := WithUserID(r.Context(), id)
				r = r.WithContext(logger.WithUserID(ctx, id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithUserID returns a context carrying the caller's user ID.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFromContext returns the caller's user ID, or "" for anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}
