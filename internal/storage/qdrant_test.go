//go:build integration

package storage

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDimension = 8

// setupQdrantStore skips the test if Qdrant is not running on localhost.
func setupQdrantStore(t *testing.T) *QdrantStore {
	ctx, cancel := context.WithTimeout(context.Background(), testHealthTimeout)
	defer cancel()

	store, err := NewQdrantStore(ctx, "localhost", 6334, testDimension)
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}

	require.NoError(t, store.client.DeleteCollection(context.Background(), TableName))
	require.NoError(t, store.EnsureCollection(context.Background()), "Failed to ensure collection")
	return store
}

func unitVector(hot int) []float32 {
	v := make([]float32, testDimension)
	v[hot] = 1
	return v
}

func TestQdrantSearchRoundTrip(t *testing.T) {
	store := setupQdrantStore(t)
	defer store.Close()

	ctx := context.Background()
	ph := &Article{
		ID:        uuid.New().String(),
		Title:     "Understanding Soil pH for Crop Production",
		Content:   "Most crops prefer a pH between 6.0 and 7.0.",
		Category:  CategorySoil,
		Source:    "Todd Field Guide",
		Embedding: unitVector(0),
	}
	drip := &Article{
		ID:        uuid.New().String(),
		Title:     "Drip Irrigation Basics",
		Content:   "Drip lines deliver water at the root zone.",
		Category:  CategoryWater,
		Embedding: unitVector(1),
	}
	require.NoError(t, store.InsertArticles(ctx, []*Article{ph, drip}))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	results, err := store.Search(ctx, unitVector(0), 5, 0.5)
	require.NoError(t, err)
	require.Len(t, results, 1, "orthogonal article must fall below the floor")
	assert.Equal(t, ph.ID, results[0].Article.ID)
	assert.Equal(t, CategorySoil, results[0].Article.Category)
	assert.InDelta(t, 1.0, results[0].Score, 1e-5)

	got, err := store.GetArticle(ctx, drip.ID)
	require.NoError(t, err)
	assert.Equal(t, drip.Title, got.Title)
	assert.Len(t, got.Embedding, testDimension)

	_, err = store.GetArticle(ctx, uuid.New().String())
	assert.ErrorIs(t, err, ErrArticleNotFound)

	_, err = store.GetArticle(ctx, "no-such-id")
	assert.ErrorIs(t, err, ErrArticleNotFound)
}

func TestQdrantRejectsWrongDimension(t *testing.T) {
	store := setupQdrantStore(t)
	defer store.Close()

	_, err := store.Search(context.Background(), make([]float32, testDimension+1), 5, 0.5)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
