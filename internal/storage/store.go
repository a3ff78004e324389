package storage

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// ArticleStore persists knowledge articles and ranks them against a query vector.
// Implementations push the vector comparison into the backing store.
type ArticleStore interface {
	// Search returns at most limit articles whose similarity to query is at least
	// minRelevance, best match first. No match is an empty slice, not an error.
	Search(ctx context.Context, query []float32, limit int, minRelevance float64) ([]ScoredArticle, error)
	// Count returns the number of stored articles.
	Count(ctx context.Context) (int64, error)
	// InsertArticles stores all articles or none of them.
	InsertArticles(ctx context.Context, articles []*Article) error
	// GetArticle returns ErrArticleNotFound if id is unknown.
	GetArticle(ctx context.Context, id string) (*Article, error)
	Health(ctx context.Context) error
	Close() error
}

// RankResults enforces the search result contract on raw hits: scores below
// minRelevance are dropped, the rest are ordered by score descending with ties
// broken by article ID, and at most limit results are kept.
func RankResults(results []ScoredArticle, limit int, minRelevance float64) []ScoredArticle {
	if limit <= 0 {
		limit = DefaultLimit
	}

	ranked := make([]ScoredArticle, 0, len(results))
	for _, r := range results {
		// NaN compares false against the floor, so it is dropped explicitly.
		if r.Article == nil || math.IsNaN(r.Score) || r.Score < minRelevance {
			continue
		}
		ranked = append(ranked, r)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Article.ID < ranked[j].Article.ID
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func checkDimension(what string, vec []float32, dimension int) error {
	if len(vec) != dimension {
		return fmt.Errorf("%w: %s has %d dimensions, expected %d",
			ErrDimensionMismatch, what, len(vec), dimension)
	}
	if !hasDirection(vec) {
		return fmt.Errorf("%w: %s", ErrDegenerateVector, what)
	}
	return nil
}

// hasDirection reports whether vec is finite with a non-zero norm. Cosine
// similarity against anything else is NaN.
func hasDirection(vec []float32) bool {
	var norm float64
	for _, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
		norm += f * f
	}
	return norm > 0
}

func validateArticles(articles []*Article, dimension int) error {
	for i, a := range articles {
		if a == nil {
			return fmt.Errorf("article %d is nil", i)
		}
		if !a.Category.Valid() {
			return fmt.Errorf("article %q: %w: %q", a.Title, ErrUnknownCategory, a.Category)
		}
		if err := checkDimension(fmt.Sprintf("article %q", a.Title), a.Embedding, dimension); err != nil {
			return err
		}
	}
	return nil
}

// validArticleID reports whether id can name a stored article. IDs are UUIDs
// in every backend.
func validArticleID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// healthCheckWithRetry polls check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func healthCheckWithRetry(ctx context.Context, check func(context.Context) error) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		return check(ctx)
	}

	return backoff.Retry(operation, backoff.WithContext(exponentialBackoff, ctx))
}
