package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/utafrali/reviews/pkg/errors"
	"github.com/utafrali/reviews/pkg/httputil"
	"github.com/utafrali/reviews/pkg/logger"
)

// BearerIdentity takes the caller's user ID from an HMAC-signed JWT in the
// Authorization header, reading the "sub" claim and then "user_id". Requests
// without a token pass through anonymous; a malformed, expired or wrongly
// signed token is rejected with 401. X-User-ID is ignored so it cannot be
// spoofed once tokens are in use.
func BearerIdentity(secret string, l *slog.Logger) func(http.Handler) http.Handler {
	keyFunc := func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			scheme, tokenString, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || tokenString == "" {
				httputil.WriteError(w, r, apperrors.Unauthorized("invalid authorization header format"), l)
				return
			}

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(strings.TrimSpace(tokenString), claims, keyFunc)
			if err != nil || !token.Valid {
				logger.For(r.Context(), l).WarnContext(r.Context(), "invalid JWT token",
					slog.String("path", r.URL.Path),
					slog.Any("error", err),
				)
				httputil.WriteError(w, r, apperrors.Unauthorized("invalid or expired token"), l)
				return
			}

			userID, _ := claims["sub"].(string)
			if userID == "" {
				userID, _ = claims["user_id"].(string)
			}
			if userID = strings.TrimSpace(userID); userID != "" {
				ctx := WithUserID(r.Context(), userID)
				r = r.WithContext(logger.WithUserID(ctx, userID))
			}

			next.ServeHTTP(w, r)
		})
	}
}
