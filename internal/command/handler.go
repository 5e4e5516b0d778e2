package command

import (
	"context"
	"log/slog"
	"time"

	"github.com/utafrali/reviews/internal/domain"
	"github.com/utafrali/reviews/internal/repository"
	apperrors "github.com/utafrali/reviews/pkg/errors"
	"github.com/utafrali/reviews/pkg/logger"
)

// EventPublisher notifies other services about stored reviews.
// *event.Producer implements it.
type EventPublisher interface {
	PublishReviewCreated(ctx context.Context, review *domain.Review) error
}

// CreateReviewHandler persists a validated CreateReview and then publishes a
// review.created event.
type CreateReviewHandler struct {
	repo      repository.ReviewRepository
	publisher EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewCreateReviewHandler creates a new CreateReviewHandler.
func NewCreateReviewHandler(repo repository.ReviewRepository, publisher EventPublisher, logger *slog.Logger) *CreateReviewHandler {
	return &CreateReviewHandler{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Handle stores the review and returns it with its assigned ID. CreatedAt is
// kept at the microsecond precision Postgres stores.
//
// Cancellation is honoured until the write starts. Once the review is stored
// the event is published on a context detached from the caller, and a
// publish failure is logged and counted but not returned: the review exists
// whether or not anyone was told about it.
func (h *CreateReviewHandler) Handle(ctx context.Context, cmd CreateReview) (*domain.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	review := &domain.Review{
		ProductID:  cmd.ProductID,
		UserID:     cmd.UserID,
		Rating:     cmd.Rating,
		ReviewText: cmd.ReviewText,
		CreatedAt:  h.now().UTC().Truncate(time.Microsecond),
	}
	if err := h.repo.Create(ctx, review); err != nil {
		return nil, apperrors.PersistenceFailed(err)
	}

	pubCtx := context.WithoutCancel(ctx)
	if err := h.publisher.PublishReviewCreated(pubCtx, review); err != nil {
		publicationFailures.Inc()
		logger.For(ctx, h.logger).ErrorContext(pubCtx, "PublicationFailed: review stored but event not published",
			slog.Int64("review_id", review.ID),
			slog.Int64("product_id", review.ProductID),
			slog.String("error", err.Error()),
		)
	}

	return review, nil
}
