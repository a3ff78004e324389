// Package storagetest provides an in-memory ArticleStore for tests.
package storagetest

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/toddagriscience/todd-kb/internal/storage"
)

// MemoryStore ranks articles by cosine similarity in process.
type MemoryStore struct {
	dimension int

	mu       sync.RWMutex
	articles []*storage.Article

	// SearchErr, when set, is returned by Search.
	SearchErr error
	// InsertErr, when set, is returned by InsertArticles before anything is stored.
	InsertErr error
	// HealthErr, when set, is returned by Health.
	HealthErr error

	searches atomic.Int64
	inserts  atomic.Int64
}

var _ storage.ArticleStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store that accepts vectors of length dimension.
func NewMemoryStore(dimension int) *MemoryStore {
	return &MemoryStore{dimension: dimension}
}

// Searches reports how many times Search was called.
func (m *MemoryStore) Searches() int64 { return m.searches.Load() }

// InsertCalls reports how many times InsertArticles was called with a non-empty batch.
func (m *MemoryStore) InsertCalls() int64 { return m.inserts.Load() }

func (m *MemoryStore) Search(ctx context.Context, query []float32, limit int, minRelevance float64) ([]storage.ScoredArticle, error) {
	m.searches.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	if len(query) != m.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			storage.ErrDimensionMismatch, len(query), m.dimension)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	hits := make([]storage.ScoredArticle, 0, len(m.articles))
	for _, a := range m.articles {
		copied := *a
		hits = append(hits, storage.ScoredArticle{Article: &copied, Score: Cosine(query, a.Embedding)})
	}
	return storage.RankResults(hits, limit, minRelevance), nil
}

func (m *MemoryStore) Count(context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.articles)), nil
}

func (m *MemoryStore) InsertArticles(_ context.Context, articles []*storage.Article) error {
	if len(articles) == 0 {
		return nil
	}
	m.inserts.Add(1)
	if m.InsertErr != nil {
		return m.InsertErr
	}
	for _, a := range articles {
		if len(a.Embedding) != m.dimension {
			return fmt.Errorf("%w: article %q has %d dimensions, expected %d",
				storage.ErrDimensionMismatch, a.Title, len(a.Embedding), m.dimension)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.articles = append(m.articles, articles...)
	return nil
}

func (m *MemoryStore) GetArticle(_ context.Context, id string) (*storage.Article, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.articles {
		if a.ID == id {
			copied := *a
			return &copied, nil
		}
	}
	return nil, storage.ErrArticleNotFound
}

func (m *MemoryStore) Health(context.Context) error { return m.HealthErr }

func (m *MemoryStore) Close() error { return nil }

// Cosine returns the cosine similarity of a and b, or 0 if either is a zero vector.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		if i >= len(b) {
			break
		}
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
