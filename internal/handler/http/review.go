package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/reviews/internal/command"
	"github.com/utafrali/reviews/internal/domain"
	apperrors "github.com/utafrali/reviews/pkg/errors"
	"github.com/utafrali/reviews/pkg/httputil"
	"github.com/utafrali/reviews/pkg/middleware"
	"github.com/utafrali/reviews/pkg/validator"
)

// IdempotencyKeyHeader lets a client retry a create without storing a second review.
const IdempotencyKeyHeader = "Idempotency-Key"

// Commands runs mutating review operations. *command.Pipeline implements it.
type Commands interface {
	CreateReview(ctx context.Context, cmd command.CreateReview) (*domain.Review, error)
}

// Queries answers review reads. *query.Service implements it.
type Queries interface {
	ReviewsByProduct(ctx context.Context, productID int64) ([]domain.Review, error)
	ReviewsByUser(ctx context.Context, userID string) ([]domain.Review, error)
	Summary(ctx context.Context, productID int64) (domain.ReviewSummary, error)
}

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	commands Commands
	queries  Queries
	logger   *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(commands Commands, queries Queries, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		commands: commands,
		queries:  queries,
		logger:   logger,
	}
}

// --- Request DTOs ---

// CreateReviewRequest is the JSON request body for creating a review. The
// author is taken from the caller's identity.
type CreateReviewRequest struct {
	ProductID  int64   `json:"product_id"`
	Rating     int     `json:"rating"`
	ReviewText *string `json:"review_text"`
}

// --- Handlers ---

// CreateReview handles POST /api/v1/reviews
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		httputil.WriteError(w, r, apperrors.Unauthorized("user must be authenticated"), h.logger)
		return
	}

	var req CreateReviewRequest
	if err := validator.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}

	review, err := h.commands.CreateReview(r.Context(), command.CreateReview{
		ProductID:      req.ProductID,
		UserID:         userID,
		Rating:         req.Rating,
		ReviewText:     req.ReviewText,
		IdempotencyKey: r.Header.Get(IdempotencyKeyHeader),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.Header().Set("Location", "/api/v1/reviews/"+strconv.FormatInt(review.ID, 10))
	httputil.WriteData(w, http.StatusCreated, review)
}

// ListByProduct handles GET /api/v1/reviews/product/{productId}
func (h *ReviewHandler) ListByProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseInt64(w, "productId", chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	reviews, err := h.queries.ReviewsByProduct(r.Context(), productID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, reviews)
}

// Summary handles GET /api/v1/reviews/product/{productId}/summary
func (h *ReviewHandler) Summary(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseInt64(w, "productId", chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	summary, err := h.queries.Summary(r.Context(), productID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, summary)
}

// ListByUser handles GET /api/v1/reviews/user. Anonymous callers get an empty list.
func (h *ReviewHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		httputil.WriteData(w, http.StatusOK, []domain.Review{})
		return
	}

	reviews, err := h.queries.ReviewsByUser(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, reviews)
}
