package command

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	commandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_commands_total",
			Help: "Total number of commands processed by outcome",
		},
		[]string{"command", "outcome"},
	)

	commandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "review_command_duration_seconds",
			Help:    "Duration of command processing in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)

	publicationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "review_event_publication_failures_total",
			Help: "Total number of review events that could not be published after the review was stored",
		},
	)

	idempotentReplays = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "review_idempotent_replays_total",
			Help: "Total number of create requests answered from the idempotency store",
		},
	)
)
