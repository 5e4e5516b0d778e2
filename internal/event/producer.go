package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/utafrali/reviews/internal/domain"
	"github.com/utafrali/reviews/pkg/events"
	pkgkafka "github.com/utafrali/reviews/pkg/kafka"
	"github.com/utafrali/reviews/pkg/logger"
)

// TopicReviewCreated is the topic (Kafka) or routing key (RabbitMQ) for
// review.created events.
var TopicReviewCreated = pkgkafka.Topic("review", "created")

// Envelope constants for review domain events.
const (
	EventTypeReviewCreated = "review.created"
	AggregateTypeReview    = "review"
	SourceReviewService    = "review-service"
)

// ErrPublicationFailed wraps every error returned by PublishReviewCreated.
var ErrPublicationFailed = errors.New("event publication failed")

// ReviewCreatedData is the payload for a review.created event.
type ReviewCreatedData struct {
	ReviewID   int64     `json:"review_id"`
	ProductID  int64     `json:"product_id"`
	UserID     string    `json:"user_id"`
	Rating     int       `json:"rating"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Transport delivers an envelope to a broker topic. *pkgkafka.Producer,
// *rabbitmq.Publisher and *BreakerTransport implement it.
type Transport interface {
	Publish(ctx context.Context, topic string, event *events.Event) error
}

// Producer publishes review domain events.
type Producer struct {
	transport Transport
	logger    *slog.Logger
}

// NewProducer creates a new event producer for the review service.
func NewProducer(transport Transport, logger *slog.Logger) *Producer {
	return &Producer{
		transport: transport,
		logger:    logger,
	}
}

// PublishReviewCreated publishes a review.created event for a persisted review.
// Delivery is at-least-once; consumers deduplicate on event_id.
func (p *Producer) PublishReviewCreated(ctx context.Context, review *domain.Review) error {
	data := ReviewCreatedData{
		ReviewID:   review.ID,
		ProductID:  review.ProductID,
		UserID:     review.UserID,
		Rating:     review.Rating,
		OccurredAt: review.CreatedAt.UTC(),
	}

	evt, err := events.NewEventAt(review.CreatedAt, EventTypeReviewCreated,
		strconv.FormatInt(review.ID, 10), AggregateTypeReview, SourceReviewService, data)
	if err != nil {
		return fmt.Errorf("%w: create review.created event: %w", ErrPublicationFailed, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}

	if err := p.transport.Publish(ctx, TopicReviewCreated, evt); err != nil {
		return fmt.Errorf("%w: publish review.created event: %w", ErrPublicationFailed, err)
	}

	p.logger.DebugContext(ctx, "review.created event published",
		slog.String("event_id", evt.EventID),
		slog.Int64("review_id", review.ID),
	)
	return nil
}
