// Package rabbitmq publishes integration events to a RabbitMQ topic exchange.
// The event topic is used as the routing key.
package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/utafrali/reviews/pkg/events"
)

// ErrNotConnected is returned when a publish is attempted with no open channel
// and the reconnect attempt fails.
var ErrNotConnected = errors.New("rabbitmq: not connected")

// PublisherConfig holds RabbitMQ publisher configuration.
type PublisherConfig struct {
	URL          string
	Exchange     string
	ExchangeType string
	Durable      bool
	Mandatory    bool
	// DeliveryMode 2 marks messages persistent.
	DeliveryMode uint8
}

// DefaultPublisherConfig returns a durable topic exchange configuration.
func DefaultPublisherConfig(url, exchange string) PublisherConfig {
	return PublisherConfig{
		URL:          url,
		Exchange:     exchange,
		ExchangeType: amqp.ExchangeTopic,
		Durable:      true,
		DeliveryMode: amqp.Persistent,
	}
}

// Publisher owns one AMQP connection and channel. The connection is opened
// lazily and reopened after the broker closes it.
type Publisher struct {
	cfg    PublisherConfig
	logger *slog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher creates a publisher without connecting.
func NewPublisher(cfg PublisherConfig, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DeliveryMode == 0 {
		cfg.DeliveryMode = amqp.Persistent
	}
	if cfg.ExchangeType == "" {
		cfg.ExchangeType = amqp.ExchangeTopic
	}
	return &Publisher{cfg: cfg, logger: logger}
}

// Connect dials the broker and declares the exchange.
func (p *Publisher) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connectLocked(ctx)
}

func (p *Publisher) connectLocked(ctx context.Context) error {
	if p.ch != nil && !p.ch.IsClosed() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	conn, err := amqp.Dial(p.cfg.URL)
	if err != nil {
		return fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if p.cfg.Exchange != "" {
		err := ch.ExchangeDeclare(
			p.cfg.Exchange,
			p.cfg.ExchangeType,
			p.cfg.Durable,
			false, // auto-delete
			false, // internal
			false, // no-wait
			nil,
		)
		if err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return fmt.Errorf("declare exchange %s: %w", p.cfg.Exchange, err)
		}
	}

	p.conn = conn
	p.ch = ch
	p.logger.Info("rabbitmq publisher connected", slog.String("exchange", p.cfg.Exchange))
	return nil
}

// Publish sends the event to the configured exchange using topic as the
// routing key.
func (p *Publisher) Publish(ctx context.Context, topic string, event *events.Event) error {
	start := time.Now()
	defer func() {
		PublishDuration.WithLabelValues(topic).Observe(time.Since(start).Seconds())
	}()

	msg, err := buildPublishing(event, p.cfg.DeliveryMode)
	if err != nil {
		PublishErrors.WithLabelValues(topic).Inc()
		return err
	}

	p.mu.Lock()
	if err := p.connectLocked(ctx); err != nil {
		p.mu.Unlock()
		PublishErrors.WithLabelValues(topic).Inc()
		return fmt.Errorf("%w: %w", ErrNotConnected, err)
	}
	ch := p.ch
	p.mu.Unlock()

	if err := ch.PublishWithContext(ctx, p.cfg.Exchange, topic, p.cfg.Mandatory, false, msg); err != nil {
		PublishErrors.WithLabelValues(topic).Inc()
		if errors.Is(err, amqp.ErrClosed) {
			p.reset()
		}
		p.logger.ErrorContext(ctx, "failed to publish event",
			slog.String("routing_key", topic),
			slog.String("event_type", event.EventType),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("publish event to %s: %w", topic, err)
	}

	MessagesPublished.WithLabelValues(topic).Inc()
	p.logger.DebugContext(ctx, "event published",
		slog.String("routing_key", topic),
		slog.String("event_type", event.EventType),
		slog.String("aggregate_id", event.AggregateID),
	)
	return nil
}

func buildPublishing(event *events.Event, deliveryMode uint8) (amqp.Publishing, error) {
	body, err := event.Marshal()
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}

	headers := amqp.Table{}
	for k, v := range event.Headers() {
		headers[k] = v
	}

	return amqp.Publishing{
		Headers:       headers,
		ContentType:   "application/json",
		DeliveryMode:  deliveryMode,
		CorrelationId: event.CorrelationID,
		MessageId:     event.EventID,
		Timestamp:     event.Timestamp,
		Type:          event.EventType,
		AppId:         event.Source,
		Body:          body,
	}, nil
}

// Ping reports whether the publisher holds an open connection, dialing one if needed.
func (p *Publisher) Ping(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connectLocked(ctx); err != nil {
		return err
	}
	if p.conn.IsClosed() {
		return ErrNotConnected
	}
	return nil
}

func (p *Publisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close closes the channel and the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var lastErr error
	if p.ch != nil {
		if err := p.ch.Close(); err != nil {
			lastErr = err
		}
		p.ch = nil
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			lastErr = err
		}
		p.conn = nil
	}
	return lastErr
}
