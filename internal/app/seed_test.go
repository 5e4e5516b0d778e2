package app

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/reviews/internal/domain"
	"github.com/utafrali/reviews/internal/repository/memory"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestSeed_EmptyStore(t *testing.T) {
	repo := memory.NewReviewRepository()
	now := time.Date(2026, 5, 20, 9, 0, 0, 0, time.UTC)

	require.NoError(t, Seed(context.Background(), repo, now, discardLogger()))

	product1, err := repo.ListByProduct(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, product1, 2)
	assert.Equal(t, "test-user-2", product1[0].UserID)
	assert.Equal(t, now.AddDate(0, 0, -5), product1[0].CreatedAt)
	assert.Equal(t, "test-user-1", product1[1].UserID)
	assert.Equal(t, 5, product1[1].Rating)

	product2, err := repo.ListByProduct(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, product2, 1)
	assert.Equal(t, "Average product, could be better.", *product2[0].ReviewText)
}

func TestSeed_SkipsNonEmptyStore(t *testing.T) {
	repo := memory.NewReviewRepository()
	require.NoError(t, repo.Create(context.Background(), &domain.Review{ProductID: 9, UserID: "u", Rating: 1, CreatedAt: time.Now()}))

	require.NoError(t, Seed(context.Background(), repo, time.Now(), discardLogger()))

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
