package command

import (
	"context"
	"log/slog"

	"github.com/utafrali/reviews/internal/domain"
	"github.com/utafrali/reviews/internal/idempotency"
)

// Pipeline runs commands through the middleware chain. The order is fixed:
// tracing, logging, metrics, validation, idempotency, handler.
type Pipeline struct {
	createReview HandlerFunc[CreateReview, *domain.Review]
}

// NewPipeline builds the pipeline around handler. A nil store disables
// idempotency keys.
func NewPipeline(handler *CreateReviewHandler, store idempotency.Store, logger *slog.Logger) *Pipeline {
	name := CreateReview{}.CommandName()

	mws := []Middleware[CreateReview, *domain.Review]{
		Tracing[CreateReview, *domain.Review](name),
		Logging[CreateReview, *domain.Review](name, logger),
		Metrics[CreateReview, *domain.Review](name),
		Validation[CreateReview, *domain.Review](ValidateCreateReview, logger),
	}
	if store != nil {
		mws = append(mws, Idempotency(store, logger))
	}

	return &Pipeline{
		createReview: Chain(handler.Handle, mws...),
	}
}

// CreateReview runs cmd through the pipeline.
func (p *Pipeline) CreateReview(ctx context.Context, cmd CreateReview) (*domain.Review, error) {
	return p.createReview(ctx, cmd)
}
