// Package memory is an in-process review store for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/utafrali/reviews/internal/domain"
)

// ReviewRepository keeps reviews in insertion order behind a RWMutex.
type ReviewRepository struct {
	mu      sync.RWMutex
	reviews []domain.Review
	nextID  int64
}

// NewReviewRepository creates an empty store. IDs start at 1.
func NewReviewRepository() *ReviewRepository {
	return &ReviewRepository{nextID: 1}
}

// Create assigns the next ID and stores a copy of review.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	review.ID = r.nextID
	r.nextID++

	stored := *review
	if review.ReviewText != nil {
		text := *review.ReviewText
		stored.ReviewText = &text
	}
	r.reviews = append(r.reviews, stored)
	return nil
}

// ListByProduct returns the product's reviews, newest first.
func (r *ReviewRepository) ListByProduct(ctx context.Context, productID int64) ([]domain.Review, error) {
	return r.list(ctx, func(rv *domain.Review) bool { return rv.ProductID == productID })
}

// ListByUser returns the user's reviews, newest first.
func (r *ReviewRepository) ListByUser(ctx context.Context, userID string) ([]domain.Review, error) {
	return r.list(ctx, func(rv *domain.Review) bool { return rv.UserID == userID })
}

// Count returns the number of stored reviews.
func (r *ReviewRepository) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.reviews), nil
}

func (r *ReviewRepository) list(ctx context.Context, match func(*domain.Review) bool) ([]domain.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	out := make([]domain.Review, 0)
	for i := range r.reviews {
		if match(&r.reviews[i]) {
			out = append(out, r.reviews[i])
		}
	}
	r.mu.RUnlock()

	// IDs increase with insertion order, so they break created_at ties.
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}
