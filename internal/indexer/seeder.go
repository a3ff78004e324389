package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/toddagriscience/todd-kb/internal/catalog"
	"github.com/toddagriscience/todd-kb/internal/embedding"
	"github.com/toddagriscience/todd-kb/internal/storage"
)

// SeedResult contains statistics about a seeding run.
type SeedResult struct {
	Skipped  bool  // Table already had articles
	Existing int64 // Row count found before seeding
	Inserted int
	Duration time.Duration
}

// Seeder fills an empty article store from a catalog.
type Seeder struct {
	store    storage.ArticleStore
	embedder embedding.Embedder
	logger   *slog.Logger
}

// NewSeeder creates a seeder. A nil logger falls back to slog.Default().
func NewSeeder(store storage.ArticleStore, embedder embedding.Embedder, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		store:    store,
		embedder: embedder,
		logger:   logger,
	}
}

// Seed inserts every catalog entry with its embedding, or nothing at all.
//
// If the store already holds any article the run is skipped. Otherwise all
// embeddings are generated first and the rows are written in one atomic
// insert, so a provider failure part way through leaves the table empty and
// the next run starts over.
func (s *Seeder) Seed(ctx context.Context, entries []catalog.Entry) (*SeedResult, error) {
	start := time.Now()
	result := &SeedResult{}

	existing, err := s.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count articles: %w", err)
	}
	result.Existing = existing
	if existing > 0 {
		result.Skipped = true
		result.Duration = time.Since(start)
		s.logger.Info("Article store already seeded, skipping", "existing", existing)
		return result, nil
	}

	s.logger.Info("Seeding article store", "articles", len(entries))

	articles := make([]*storage.Article, 0, len(entries))
	for i, entry := range entries {
		vec, err := s.embedder.Embed(ctx, storage.EmbeddingText(entry.Title, entry.Content))
		if err != nil {
			return nil, fmt.Errorf("embed %q: %w", entry.Title, err)
		}
		s.logger.Debug("Embedded article", "title", entry.Title, "index", i)

		articles = append(articles, &storage.Article{
			ID:        uuid.New().String(),
			Title:     entry.Title,
			Content:   entry.Content,
			Category:  entry.Category,
			Source:    entry.Source,
			Embedding: vec,
			CreatedAt: time.Now().UTC(),
		})
	}

	if err := s.store.InsertArticles(ctx, articles); err != nil {
		return nil, fmt.Errorf("store articles: %w", err)
	}

	result.Inserted = len(articles)
	result.Duration = time.Since(start)
	s.logger.Info("Seeding complete",
		"inserted", result.Inserted,
		"duration", result.Duration,
	)
	return result, nil
}
