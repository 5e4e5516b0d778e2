package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/reviews/internal/command"
	"github.com/utafrali/reviews/internal/domain"
	"github.com/utafrali/reviews/internal/idempotency"
	"github.com/utafrali/reviews/internal/query"
	"github.com/utafrali/reviews/internal/repository/memory"
	apperrors "github.com/utafrali/reviews/pkg/errors"
	"github.com/utafrali/reviews/pkg/health"
	"github.com/utafrali/reviews/pkg/middleware"
)

// =============================================================================
// Test doubles
// =============================================================================

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishReviewCreated(ctx context.Context, review *domain.Review) error {
	return m.Called(ctx, review).Error(0)
}

type mockQueries struct {
	mock.Mock
}

func (m *mockQueries) ReviewsByProduct(ctx context.Context, productID int64) ([]domain.Review, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Review), args.Error(1)
}

func (m *mockQueries) ReviewsByUser(ctx context.Context, userID string) ([]domain.Review, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Review), args.Error(1)
}

func (m *mockQueries) Summary(ctx context.Context, productID int64) (domain.ReviewSummary, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).(domain.ReviewSummary), args.Error(1)
}

type failingCommands struct{ err error }

func (f failingCommands) CreateReview(context.Context, command.CreateReview) (*domain.Review, error) {
	return nil, f.err
}

// =============================================================================
// Helpers
// =============================================================================

type testEnv struct {
	router http.Handler
	repo   *memory.ReviewRepository
	pub    *mockPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	repo := memory.NewReviewRepository()
	pub := new(mockPublisher)
	pub.On("PublishReviewCreated", mock.Anything, mock.Anything).Return(nil).Maybe()

	pipeline := command.NewPipeline(
		command.NewCreateReviewHandler(repo, pub, logger),
		idempotency.NewMemoryStore(time.Hour),
		logger,
	)
	router := NewRouter(pipeline, query.NewService(repo, logger), health.NewHandler(), Options{ServiceName: "review-service"}, logger)

	return &testEnv{router: router, repo: repo, pub: pub}
}

func (e *testEnv) do(method, path, userID, body string, headers ...string) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(middleware.UserIDHeader, userID)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code       string                     `json:"code"`
		Message    string                     `json:"message"`
		Violations []apperrors.FieldViolation `json:"violations"`
		RequestID  string                     `json:"request_id"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

// =============================================================================
// CreateReview
// =============================================================================

func TestCreateReview_Created(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/reviews", "user-1",
		`{"product_id": 12, "rating": 4, "review_text": "Nice"}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var review domain.Review
	decode(t, rec, &review)
	assert.Positive(t, review.ID)
	assert.Equal(t, int64(12), review.ProductID)
	assert.Equal(t, "user-1", review.UserID)
	assert.Equal(t, 4, review.Rating)
	require.NotNil(t, review.ReviewText)
	assert.Equal(t, "Nice", *review.ReviewText)
	assert.WithinDuration(t, time.Now(), review.CreatedAt, time.Minute)
	assert.Equal(t, "/api/v1/reviews/"+strconv.FormatInt(review.ID, 10), rec.Header().Get("Location"))
}

func TestCreateReview_WithoutIdentity(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/reviews", "", `{"product_id": 1, "rating": 4}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decode(t, rec, nil).Error.Code)
	n, _ := env.repo.Count(context.Background())
	assert.Zero(t, n)
}

func TestCreateReview_ValidationFailed(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/reviews", "user-1", `{"product_id": 0, "rating": 6}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec, nil)
	assert.Equal(t, "VALIDATION_FAILED", body.Error.Code)
	assert.ElementsMatch(t, []apperrors.FieldViolation{
		{Field: "ProductId", Message: "ProductId must be greater than 0"},
		{Field: "Rating", Message: "Rating must be between 1 and 5"},
	}, body.Error.Violations)
	env.pub.AssertNotCalled(t, "PublishReviewCreated", mock.Anything, mock.Anything)
}

func TestCreateReview_MalformedBody(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/reviews", "user-1", `{"product_id": "abc"`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", decode(t, rec, nil).Error.Code)
}

func TestCreateReview_IdempotencyKey(t *testing.T) {
	env := newTestEnv(t)
	body := `{"product_id": 3, "rating": 5}`

	first := env.do(http.MethodPost, "/api/v1/reviews", "user-1", body, IdempotencyKeyHeader, "abc-123")
	second := env.do(http.MethodPost, "/api/v1/reviews", "user-1", body, IdempotencyKeyHeader, "abc-123")

	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Header().Get("Location"), second.Header().Get("Location"))
	n, _ := env.repo.Count(context.Background())
	assert.Equal(t, 1, n)
}

func TestCreateReview_PersistenceFailedHidesCause(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	cmds := failingCommands{err: apperrors.PersistenceFailed(errors.New("pq: relation reviews does not exist"))}
	router := NewRouter(cmds, new(mockQueries), health.NewHandler(), Options{ServiceName: "review-service"}, logger)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews", strings.NewReader(`{"product_id":1,"rating":3}`))
	req.Header.Set(middleware.UserIDHeader, "user-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "PERSISTENCE_FAILED", decode(t, rec, nil).Error.Code)
	assert.NotContains(t, rec.Body.String(), "relation reviews")
}

// =============================================================================
// Queries
// =============================================================================

func TestListByProduct_NewestFirst(t *testing.T) {
	env := newTestEnv(t)
	a := env.do(http.MethodPost, "/api/v1/reviews", "user-1", `{"product_id": 5, "rating": 5}`)
	b := env.do(http.MethodPost, "/api/v1/reviews", "user-2", `{"product_id": 5, "rating": 3}`)
	require.Equal(t, http.StatusCreated, a.Code)
	require.Equal(t, http.StatusCreated, b.Code)

	rec := env.do(http.MethodGet, "/api/v1/reviews/product/5", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var reviews []domain.Review
	decode(t, rec, &reviews)
	require.Len(t, reviews, 2)
	assert.Equal(t, "user-2", reviews[0].UserID)
	assert.Equal(t, "user-1", reviews[1].UserID)
}

func TestListByProduct_EmptyIsArray(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/v1/reviews/product/404", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())
}

func TestListByProduct_InvalidID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/v1/reviews/product/abc", "", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_PARAMETER", decode(t, rec, nil).Error.Code)
}

func TestSummary(t *testing.T) {
	env := newTestEnv(t)
	for _, rating := range []string{"5", "4", "5"} {
		rec := env.do(http.MethodPost, "/api/v1/reviews", "user-1", `{"product_id": 8, "rating": `+rating+`}`)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := env.do(http.MethodGet, "/api/v1/reviews/product/8/summary", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var summary domain.ReviewSummary
	decode(t, rec, &summary)
	assert.Equal(t, int64(8), summary.ProductID)
	assert.Equal(t, 3, summary.TotalReviews)
	assert.InDelta(t, 14.0/3.0, summary.AverageRating, 1e-9)
}

func TestSummary_NoReviews(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/v1/reviews/product/77/summary", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"product_id":77,"average_rating":0,"total_reviews":0}}`, rec.Body.String())
}

func TestSummary_StoreError(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	queries := new(mockQueries)
	queries.On("Summary", mock.Anything, int64(1)).Return(domain.ReviewSummary{}, errors.New("db down"))
	router := NewRouter(failingCommands{}, queries, health.NewHandler(), Options{ServiceName: "review-service"}, logger)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reviews/product/1/summary", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")
}

func TestListByUser(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/api/v1/reviews", "user-1", `{"product_id": 1, "rating": 5}`)
	env.do(http.MethodPost, "/api/v1/reviews", "user-2", `{"product_id": 1, "rating": 2}`)

	rec := env.do(http.MethodGet, "/api/v1/reviews/user", "user-2", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var reviews []domain.Review
	decode(t, rec, &reviews)
	require.Len(t, reviews, 1)
	assert.Equal(t, 2, reviews[0].Rating)
}

func TestListByUser_Anonymous(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/api/v1/reviews", "user-1", `{"product_id": 1, "rating": 5}`)

	rec := env.do(http.MethodGet, "/api/v1/reviews/user", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())
}

// =============================================================================
// Ambient routes
// =============================================================================

func TestHealthAndMetricsRoutes(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/health/live", "", "").Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/health/ready", "", "").Code)

	env.do(http.MethodGet, "/api/v1/reviews/product/1", "", "")
	metrics := env.do(http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "http_requests_total")
}

func TestCorrelationIDEchoed(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/v1/reviews/product/1", "", "", middleware.CorrelationIDHeader, "corr-42")

	assert.Equal(t, "corr-42", rec.Header().Get(middleware.CorrelationIDHeader))
}
