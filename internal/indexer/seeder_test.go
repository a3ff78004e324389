package indexer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toddagriscience/todd-kb/internal/catalog"
	"github.com/toddagriscience/todd-kb/internal/embedding"
	"github.com/toddagriscience/todd-kb/internal/embedding/embeddingtest"
	"github.com/toddagriscience/todd-kb/internal/storage"
	"github.com/toddagriscience/todd-kb/internal/storage/storagetest"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSeed_InsertsEveryEntry(t *testing.T) {
	entries, err := catalog.Default()
	require.NoError(t, err)

	embedder := embeddingtest.NewFake()
	store := storagetest.NewMemoryStore(embedder.Dimension())
	seeder := NewSeeder(store, embedder, quietLogger())

	result, err := seeder.Seed(context.Background(), entries)
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, len(entries), result.Inserted)
	assert.Equal(t, int64(len(entries)), embedder.Calls(), "one provider call per article")

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(len(entries)), n)
}

func TestSeed_IsIdempotent(t *testing.T) {
	entries, err := catalog.Default()
	require.NoError(t, err)

	embedder := embeddingtest.NewFake()
	store := storagetest.NewMemoryStore(embedder.Dimension())
	seeder := NewSeeder(store, embedder, quietLogger())

	_, err = seeder.Seed(context.Background(), entries)
	require.NoError(t, err)
	callsAfterFirst := embedder.Calls()
	insertsAfterFirst := store.InsertCalls()

	second, err := seeder.Seed(context.Background(), entries)
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.Zero(t, second.Inserted)
	assert.Equal(t, int64(len(entries)), second.Existing)
	assert.Equal(t, callsAfterFirst, embedder.Calls(), "skipped run must not embed")
	assert.Equal(t, insertsAfterFirst, store.InsertCalls(), "skipped run must not insert")
}

func TestSeed_EmbeddingFailureWritesNothing(t *testing.T) {
	entries, err := catalog.Default()
	require.NoError(t, err)

	embedder := embeddingtest.NewFake()
	var seen int
	embedder.Before = func(ctx context.Context, text string) error {
		seen++
		if seen == 3 {
			return embedding.ErrEmbeddingFailed
		}
		return nil
	}
	store := storagetest.NewMemoryStore(embedder.Dimension())

	_, err = NewSeeder(store, embedder, quietLogger()).Seed(context.Background(), entries)
	require.Error(t, err)
	assert.ErrorIs(t, err, embedding.ErrEmbeddingFailed)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, store.InsertCalls())
}

func TestSeed_StoreFailurePropagates(t *testing.T) {
	embedder := embeddingtest.NewFake()
	store := storagetest.NewMemoryStore(embedder.Dimension())
	store.InsertErr = errors.New("disk full")

	entries := []catalog.Entry{{Title: "Soil", Content: "soil ph", Category: storage.CategorySoil}}
	_, err := NewSeeder(store, embedder, nil).Seed(context.Background(), entries)
	assert.ErrorContains(t, err, "disk full")
}
