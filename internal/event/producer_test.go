package event

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/reviews/internal/domain"
	"github.com/utafrali/reviews/pkg/events"
	"github.com/utafrali/reviews/pkg/logger"
)

type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) Publish(ctx context.Context, topic string, event *events.Event) error {
	args := m.Called(ctx, topic, event)
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
}

func sampleReview() *domain.Review {
	return &domain.Review{
		ID:        17,
		ProductID: 3,
		UserID:    "user-1",
		Rating:    4,
		CreatedAt: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
	}
}

func TestTopicReviewCreated(t *testing.T) {
	assert.Equal(t, "ecommerce.review.created", TopicReviewCreated)
}

func TestPublishReviewCreated_BuildsEnvelope(t *testing.T) {
	tr := new(mockTransport)
	p := NewProducer(tr, testLogger())
	rv := sampleReview()

	var sent *events.Event
	tr.On("Publish", mock.Anything, TopicReviewCreated, mock.AnythingOfType("*events.Event")).
		Run(func(args mock.Arguments) { sent = args.Get(2).(*events.Event) }).
		Return(nil)

	ctx := logger.WithCorrelationID(context.Background(), "corr-42")
	require.NoError(t, p.PublishReviewCreated(ctx, rv))

	require.NotNil(t, sent)
	assert.NotEmpty(t, sent.EventID)
	assert.Equal(t, EventTypeReviewCreated, sent.EventType)
	assert.Equal(t, "17", sent.AggregateID)
	assert.Equal(t, AggregateTypeReview, sent.AggregateType)
	assert.Equal(t, SourceReviewService, sent.Source)
	assert.Equal(t, "corr-42", sent.CorrelationID)
	assert.Equal(t, rv.CreatedAt, sent.Timestamp)

	var data ReviewCreatedData
	require.NoError(t, json.Unmarshal(sent.Data, &data))
	assert.Equal(t, ReviewCreatedData{
		ReviewID:   17,
		ProductID:  3,
		UserID:     "user-1",
		Rating:     4,
		OccurredAt: rv.CreatedAt,
	}, data)
	tr.AssertExpectations(t)
}

func TestPublishReviewCreated_DistinctEventIDs(t *testing.T) {
	tr := new(mockTransport)
	p := NewProducer(tr, testLogger())

	ids := map[string]bool{}
	tr.On("Publish", mock.Anything, TopicReviewCreated, mock.Anything).
		Run(func(args mock.Arguments) { ids[args.Get(2).(*events.Event).EventID] = true }).
		Return(nil)

	require.NoError(t, p.PublishReviewCreated(context.Background(), sampleReview()))
	require.NoError(t, p.PublishReviewCreated(context.Background(), sampleReview()))

	assert.Len(t, ids, 2)
}

func TestPublishReviewCreated_TransportError(t *testing.T) {
	tr := new(mockTransport)
	p := NewProducer(tr, testLogger())
	cause := errors.New("broker down")

	tr.On("Publish", mock.Anything, TopicReviewCreated, mock.Anything).Return(cause)

	err := p.PublishReviewCreated(context.Background(), sampleReview())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPublicationFailed)
	assert.ErrorIs(t, err, cause)
}
