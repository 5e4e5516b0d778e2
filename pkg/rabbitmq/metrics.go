package rabbitmq

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rabbitmq_publisher_messages_published_total",
			Help: "Total number of RabbitMQ messages published",
		},
		[]string{"routing_key"},
	)

	PublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rabbitmq_publisher_publish_errors_total",
			Help: "Total number of RabbitMQ publish errors",
		},
		[]string{"routing_key"},
	)

	PublishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rabbitmq_publisher_publish_duration_seconds",
			Help:    "Duration of RabbitMQ publish operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"routing_key"},
	)
)
