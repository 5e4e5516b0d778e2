package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/reviews/pkg/health"
	"github.com/utafrali/reviews/pkg/middleware"
)

// Options tunes the router's edge middleware.
type Options struct {
	ServiceName string

	// JWTSecret switches identity from the X-User-ID header to signed bearer tokens.
	JWTSecret string

	// CreateRateLimit is the per-client limit on review creation in requests
	// per second. 0 disables it.
	CreateRateLimit float64
	CreateBurst     int
}

// NewRouter creates a chi router with all review service routes registered.
func NewRouter(
	commands Commands,
	queries Queries,
	healthHandler *health.Handler,
	opts Options,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(opts.ServiceName))
	r.Use(middleware.PrometheusMetrics(opts.ServiceName))
	if opts.JWTSecret != "" {
		r.Use(middleware.BearerIdentity(opts.JWTSecret, logger))
	} else {
		r.Use(middleware.Identity())
	}
	r.Use(middleware.RequestLogger(logger))

	// Health and metrics endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	// Review API endpoints
	reviewHandler := NewReviewHandler(commands, queries, logger)

	r.Route("/api/v1/reviews", func(r chi.Router) {
		if opts.CreateRateLimit > 0 {
			r.With(middleware.RateLimit(opts.CreateRateLimit, opts.CreateBurst, logger)).Post("/", reviewHandler.CreateReview)
		} else {
			r.Post("/", reviewHandler.CreateReview)
		}
		r.Get("/product/{productId}", reviewHandler.ListByProduct)
		r.Get("/product/{productId}/summary", reviewHandler.Summary)
		r.Get("/user", reviewHandler.ListByUser)
	})

	return r
}
