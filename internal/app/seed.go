package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/reviews/internal/domain"
	"github.com/utafrali/reviews/internal/repository"
)

// seedableRepository is a review store that can report its size.
type seedableRepository interface {
	repository.ReviewRepository
	Count(ctx context.Context) (int, error)
}

func ptr(s string) *string { return &s }

// seedReviews returns the demo reviews, dated relative to now.
func seedReviews(now time.Time) []domain.Review {
	now = now.UTC()
	return []domain.Review{
		{ProductID: 1, UserID: "test-user-1", Rating: 5, ReviewText: ptr("Excellent product! Highly recommended."), CreatedAt: now.AddDate(0, 0, -10)},
		{ProductID: 1, UserID: "test-user-2", Rating: 4, ReviewText: ptr("Good quality, fast delivery."), CreatedAt: now.AddDate(0, 0, -5)},
		{ProductID: 2, UserID: "test-user-1", Rating: 3, ReviewText: ptr("Average product, could be better."), CreatedAt: now.AddDate(0, 0, -3)},
	}
}

// Seed inserts the demo reviews when the store is empty. Seeded reviews go
// straight to the store, so no events are published for them.
func Seed(ctx context.Context, repo seedableRepository, now time.Time, logger *slog.Logger) error {
	n, err := repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("count reviews: %w", err)
	}
	if n > 0 {
		logger.Info("review store not empty, skipping seed", slog.Int("reviews", n))
		return nil
	}

	reviews := seedReviews(now)
	for i := range reviews {
		if err := repo.Create(ctx, &reviews[i]); err != nil {
			return fmt.Errorf("seed review %d: %w", i+1, err)
		}
	}
	logger.Info("seeded review store", slog.Int("reviews", len(reviews)))
	return nil
}
