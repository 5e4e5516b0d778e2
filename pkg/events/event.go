// Package events defines the envelope shared by every integration event the
// service emits, independent of the broker that carries it.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is the standard envelope for integration events. EventID is unique per
// emission so consumers can drop redeliveries.
type Event struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	Version       int             `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	Source        string          `json:"source"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Data          json.RawMessage `json:"data"`
}

// NewEventAt creates an event with a generated ID that occurred at at.
func NewEventAt(at time.Time, eventType, aggregateID, aggregateType, source string, data any) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		Version:       1,
		Timestamp:     at.UTC(),
		Source:        source,
		Data:          dataBytes,
	}, nil
}

// WithCorrelationID sets the correlation ID on the event.
func (e *Event) WithCorrelationID(id string) *Event {
	e.CorrelationID = id
	return e
}

// Headers returns the transport headers every broker adapter attaches.
func (e *Event) Headers() map[string]string {
	h := map[string]string{
		"event_id":   e.EventID,
		"event_type": e.EventType,
		"source":     e.Source,
	}
	if e.CorrelationID != "" {
		h["correlation_id"] = e.CorrelationID
	}
	return h
}

// Marshal serializes the event to JSON bytes.
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}
