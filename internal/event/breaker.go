package event

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"

	"github.com/utafrali/reviews/pkg/events"
)

// ErrCircuitOpen is returned while the breaker rejects publishes.
var ErrCircuitOpen = gobreaker.ErrOpenState

var publishBreakerState = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "publish_circuit_breaker_state",
		Help: "Current state of the publish circuit breaker (0=closed, 1=half-open, 2=open)",
	},
	[]string{"name"},
)

// BreakerConfig holds configuration for the publish circuit breaker.
type BreakerConfig struct {
	Name string

	// MaxRequests is the number of trial publishes allowed while half-open.
	MaxRequests uint32

	// Interval clears the failure counts while closed. 0 never clears them.
	Interval time.Duration

	// Timeout is how long the breaker stays open before going half-open.
	Timeout time.Duration

	// FailureRatio trips the breaker once at least MinRequests were made.
	FailureRatio float64
	MinRequests  uint32
}

// DefaultBreakerConfig returns the defaults used when none are configured.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// BreakerTransport wraps a Transport with a circuit breaker so publishing to
// a dead broker fails fast instead of waiting on every request.
type BreakerTransport struct {
	next    Transport
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewBreakerTransport wraps next.
func NewBreakerTransport(next Transport, cfg BreakerConfig, logger *slog.Logger) *BreakerTransport {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("publish circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			publishBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
		// A caller that gave up says nothing about broker health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}

	publishBreakerState.WithLabelValues(cfg.Name).Set(0)

	return &BreakerTransport{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

// Publish forwards to the wrapped transport unless the breaker is open.
func (t *BreakerTransport) Publish(ctx context.Context, topic string, event *events.Event) error {
	_, err := t.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, t.next.Publish(ctx, topic, event)
	})
	return err
}

// State returns the current breaker state.
func (t *BreakerTransport) State() gobreaker.State {
	return t.breaker.State()
}
