// Package query serves the review read model: lists by product or user and
// rating summaries computed on demand.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/utafrali/reviews/internal/domain"
	"github.com/utafrali/reviews/internal/repository"
	apperrors "github.com/utafrali/reviews/pkg/errors"
)

// Service answers review queries straight from the store. Nothing is cached.
type Service struct {
	repo   repository.ReviewRepository
	logger *slog.Logger
}

// NewService creates a new query Service.
func NewService(repo repository.ReviewRepository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// ReviewsByProduct returns a product's reviews, newest first.
func (s *Service) ReviewsByProduct(ctx context.Context, productID int64) ([]domain.Review, error) {
	reviews, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, storeError(fmt.Sprintf("list reviews for product %d", productID), err)
	}
	return nonNil(reviews), nil
}

// ReviewsByUser returns a user's reviews, newest first.
func (s *Service) ReviewsByUser(ctx context.Context, userID string) ([]domain.Review, error) {
	reviews, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeError("list reviews for user", err)
	}
	return nonNil(reviews), nil
}

// Summary computes the rating summary for a product over its current reviews.
func (s *Service) Summary(ctx context.Context, productID int64) (domain.ReviewSummary, error) {
	reviews, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		return domain.ReviewSummary{}, storeError(fmt.Sprintf("summarize product %d", productID), err)
	}
	summary := Summarize(productID, reviews)
	s.logger.DebugContext(ctx, "review summary computed",
		slog.Int64("product_id", productID),
		slog.Int("total_reviews", summary.TotalReviews),
	)
	return summary, nil
}

// Summarize returns the unrounded mean rating and count of reviews. With no
// reviews both are zero.
func Summarize(productID int64, reviews []domain.Review) domain.ReviewSummary {
	summary := domain.ReviewSummary{ProductID: productID, TotalReviews: len(reviews)}
	if len(reviews) == 0 {
		return summary
	}

	var sum int
	for _, r := range reviews {
		sum += r.Rating
	}
	summary.AverageRating = float64(sum) / float64(len(reviews))
	return summary
}

// storeError marks an unreachable store as a 503 so clients know to retry.
func storeError(op string, err error) error {
	if errors.Is(err, repository.ErrStoreUnavailable) {
		return fmt.Errorf("%s: %w: %w", op, apperrors.ErrServiceUnavail, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nonNil(reviews []domain.Review) []domain.Review {
	if reviews == nil {
		return []domain.Review{}
	}
	return reviews
}
