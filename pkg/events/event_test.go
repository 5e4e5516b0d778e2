package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var occurredAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNewEventAt_Fields(t *testing.T) {
	type ReviewData struct {
		ProductID int64 `json:"product_id"`
		Rating    int   `json:"rating"`
	}

	data := ReviewData{ProductID: 7, Rating: 4}
	event, err := NewEventAt(occurredAt, "ecommerce.review.created", "12", "review", "review-service", data)
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "ecommerce.review.created", event.EventType)
	assert.Equal(t, "12", event.AggregateID)
	assert.Equal(t, "review", event.AggregateType)
	assert.Equal(t, "review-service", event.Source)
	assert.Equal(t, 1, event.Version)
	assert.Equal(t, occurredAt, event.Timestamp)

	var decoded ReviewData
	require.NoError(t, json.Unmarshal(event.Data, &decoded))
	assert.Equal(t, data, decoded)
}

func TestNewEventAt_UniqueIDs(t *testing.T) {
	a, err := NewEventAt(occurredAt, "t", "1", "review", "svc", nil)
	require.NoError(t, err)
	b, err := NewEventAt(occurredAt, "t", "1", "review", "svc", nil)
	require.NoError(t, err)

	assert.NotEqual(t, a.EventID, b.EventID)
}

func TestNewEventAt_NormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	at := time.Date(2025, 6, 15, 15, 0, 0, 0, loc)

	event, err := NewEventAt(at, "t", "1", "review", "svc", nil)
	require.NoError(t, err)

	assert.Equal(t, time.UTC, event.Timestamp.Location())
	assert.True(t, at.Equal(event.Timestamp))
}

func TestNewEventAt_InvalidData(t *testing.T) {
	_, err := NewEventAt(occurredAt, "t", "1", "review", "svc", make(chan int))
	require.Error(t, err)
}

func TestEvent_Headers(t *testing.T) {
	event, err := NewEventAt(occurredAt, "ecommerce.review.created", "1", "review", "review-service", nil)
	require.NoError(t, err)

	h := event.Headers()
	assert.Equal(t, event.EventID, h["event_id"])
	assert.Equal(t, "ecommerce.review.created", h["event_type"])
	assert.Equal(t, "review-service", h["source"])
	assert.NotContains(t, h, "correlation_id")

	event.WithCorrelationID("corr-1")
	assert.Equal(t, "corr-1", event.Headers()["correlation_id"])
}

func TestEvent_Marshal(t *testing.T) {
	event, err := NewEventAt(occurredAt, "ecommerce.review.created", "3", "review", "review-service", map[string]int{"rating": 5})
	require.NoError(t, err)
	event.WithCorrelationID("corr-abc")

	b, err := event.Marshal()
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"event_id": "`+event.EventID+`",
		"event_type": "ecommerce.review.created",
		"aggregate_id": "3",
		"aggregate_type": "review",
		"version": 1,
		"timestamp": "2026-03-01T12:00:00Z",
		"source": "review-service",
		"correlation_id": "corr-abc",
		"data": {"rating": 5}
	}`, string(b))
}
