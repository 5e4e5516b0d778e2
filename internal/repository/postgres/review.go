// Package postgres implements the review store on PostgreSQL through pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/utafrali/reviews/internal/domain"
	"github.com/utafrali/reviews/internal/repository"
	"github.com/utafrali/reviews/pkg/database"
)

const (
	insertReviewSQL = `
		INSERT INTO reviews (product_id, user_id, rating, review_text, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	listByProductSQL = `
		SELECT id, product_id, user_id, rating, review_text, created_at
		FROM reviews
		WHERE product_id = $1
		ORDER BY created_at DESC, id DESC`

	listByUserSQL = `
		SELECT id, product_id, user_id, rating, review_text, created_at
		FROM reviews
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`

	countSQL = `SELECT COUNT(*) FROM reviews`
)

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Create inserts the review and sets its database-assigned ID.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) (err error) {
	ctx, end := database.TraceQuery(ctx, "CreateReview", insertReviewSQL)
	defer func() { end(err) }()

	err = r.pool.QueryRow(ctx, insertReviewSQL,
		review.ProductID,
		review.UserID,
		review.Rating,
		review.ReviewText,
		review.CreatedAt,
	).Scan(&review.ID)
	if err != nil {
		return classify("insert review", err)
	}
	return nil
}

// ListByProduct returns the product's reviews, newest first.
func (r *ReviewRepository) ListByProduct(ctx context.Context, productID int64) ([]domain.Review, error) {
	return r.list(ctx, "ListReviewsByProduct", listByProductSQL, productID)
}

// ListByUser returns the user's reviews, newest first.
func (r *ReviewRepository) ListByUser(ctx context.Context, userID string) ([]domain.Review, error) {
	return r.list(ctx, "ListReviewsByUser", listByUserSQL, userID)
}

// Count returns the total number of stored reviews.
func (r *ReviewRepository) Count(ctx context.Context) (n int, err error) {
	ctx, end := database.TraceQuery(ctx, "CountReviews", countSQL)
	defer func() { end(err) }()

	if err = r.pool.QueryRow(ctx, countSQL).Scan(&n); err != nil {
		return 0, classify("count reviews", err)
	}
	return n, nil
}

func (r *ReviewRepository) list(ctx context.Context, op, query string, arg any) (reviews []domain.Review, err error) {
	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, classify("list reviews", err)
	}
	defer rows.Close()

	reviews = make([]domain.Review, 0)
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(
			&rv.ID,
			&rv.ProductID,
			&rv.UserID,
			&rv.Rating,
			&rv.ReviewText,
			&rv.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		rv.CreatedAt = rv.CreatedAt.UTC()
		reviews = append(reviews, rv)
	}

	if err := rows.Err(); err != nil {
		return nil, classify("iterate review rows", err)
	}
	return reviews, nil
}

// classify wraps err with op and tags connection failures with
// repository.ErrStoreUnavailable.
func classify(op string, err error) error {
	if database.IsConnectionError(err) {
		return fmt.Errorf("%s: %w: %w", op, repository.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
