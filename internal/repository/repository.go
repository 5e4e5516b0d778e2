// Package repository defines the review store contract. Implementations live
// in the memory and postgres subpackages.
package repository

import (
	"context"
	"errors"

	"github.com/utafrali/reviews/internal/domain"
)

// ErrStoreUnavailable marks failures to reach the backing store, as opposed to
// the store rejecting the write.
var ErrStoreUnavailable = errors.New("review store unavailable")

// ReviewRepository persists and lists reviews. List results are ordered by
// created_at descending; reviews with equal timestamps are ordered with the
// most recently inserted first. An empty result is an empty, non-nil slice.
type ReviewRepository interface {
	// Create stores review and sets its ID.
	Create(ctx context.Context, review *domain.Review) error
	ListByProduct(ctx context.Context, productID int64) ([]domain.Review, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Review, error)
}
