// Package command runs mutating review operations through a fixed
// middleware pipeline: tracing, logging, metrics, validation, idempotency,
// then the handler that persists and publishes.
package command

import (
	"log/slog"
	"unicode/utf8"
)

// CreateReview asks the service to record a review. UserID comes from the
// caller's identity, never from the request body.
type CreateReview struct {
	ProductID      int64
	UserID         string
	Rating         int
	ReviewText     *string
	IdempotencyKey string
}

// CommandName identifies the command in logs, metrics and spans.
func (CreateReview) CommandName() string { return "CreateReview" }

// LogValue logs the review text length rather than the text itself.
func (c CreateReview) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("product_id", c.ProductID),
		slog.String("user_id", c.UserID),
		slog.Int("rating", c.Rating),
	}
	if c.ReviewText != nil {
		attrs = append(attrs, slog.Int("review_text_len", utf8.RuneCountInString(*c.ReviewText)))
	}
	if c.IdempotencyKey != "" {
		attrs = append(attrs, slog.String("idempotency_key", c.IdempotencyKey))
	}
	return slog.GroupValue(attrs...)
}
