package domain

import (
	"time"
)

// Review is a customer's rating of a product. Reviews are created once and
// never updated or deleted.
type Review struct {
	ID         int64     `json:"id"`
	ProductID  int64     `json:"product_id"`
	UserID     string    `json:"user_id"`
	Rating     int       `json:"rating"`
	ReviewText *string   `json:"review_text"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReviewSummary contains aggregate review statistics for a product. It is
// derived on every read and never stored.
type ReviewSummary struct {
	ProductID     int64   `json:"product_id"`
	AverageRating float64 `json:"average_rating"`
	TotalReviews  int     `json:"total_reviews"`
}
