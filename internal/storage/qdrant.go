package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"
)

const qdrantVectorName = "content"

// QdrantStore is an ArticleStore backed by a Qdrant collection.
type QdrantStore struct {
	client    *qdrant.Client
	dimension int
}

// NewQdrantStore connects to Qdrant over gRPC and waits until it is healthy.
func NewQdrantStore(ctx context.Context, host string, port, dimension int) (*QdrantStore, error) {
	if dimension <= 0 {
		dimension = DefaultVectorDimension
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	store := &QdrantStore{client: client, dimension: dimension}
	if err := healthCheckWithRetry(ctx, store.Health); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnreachable, err)
	}

	return store, nil
}

// Health performs a single health check against Qdrant.
func (s *QdrantStore) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// EnsureCollection creates the article collection with cosine distance and a
// category payload index. Idempotent.
func (s *QdrantStore) EnsureCollection(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	for _, name := range collections {
		if name == TableName {
			return nil
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: TableName,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			qdrantVectorName: {
				Size:     uint64(s.dimension),
				Distance: qdrant.Distance_Cosine,
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: TableName,
		FieldName:      "category",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("failed to create category index: %w", err)
	}
	return nil
}

// Close closes the Qdrant client connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// InsertArticles upserts all articles in one request.
func (s *QdrantStore) InsertArticles(ctx context.Context, articles []*Article) error {
	if len(articles) == 0 {
		return nil
	}
	if err := validateArticles(articles, s.dimension); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, len(articles))
	for i, a := range articles {
		if a.CreatedAt.IsZero() {
			a.CreatedAt = time.Now().UTC()
		}
		points[i] = &qdrant.PointStruct{
			Id: qdrant.NewIDUUID(a.ID),
			Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
				qdrantVectorName: qdrant.NewVector(a.Embedding...),
			}),
			Payload: qdrant.NewValueMap(map[string]any{
				"title":      a.Title,
				"content":    a.Content,
				"category":   string(a.Category),
				"source":     a.Source,
				"created_at": a.CreatedAt.Format(time.RFC3339),
			}),
		}
	}

	return s.upsertWithRetry(ctx, points)
}

func (s *QdrantStore) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: TableName,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		return err
	}

	if err := backoff.Retry(operation, backoff.WithContext(exponentialBackoff, ctx)); err != nil {
		return fmt.Errorf("failed to upsert articles: %w", err)
	}
	return nil
}

// Search queries the named content vector with Qdrant's score threshold.
func (s *QdrantStore) Search(ctx context.Context, query []float32, limit int, minRelevance float64) ([]ScoredArticle, error) {
	if err := checkDimension("query", query, s.dimension); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	vectorName := qdrantVectorName
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: TableName,
		Query:          qdrant.NewQuery(query...),
		Using:          &vectorName,
		Limit:          qdrant.PtrOf(uint64(limit)),
		ScoreThreshold: qdrant.PtrOf(float32(minRelevance)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search articles: %w", err)
	}

	scored := make([]ScoredArticle, 0, len(results))
	for _, result := range results {
		scored = append(scored, ScoredArticle{
			Article: articleFromPayload(result.Id.GetUuid(), result.Payload),
			Score:   float64(result.Score),
		})
	}

	return RankResults(scored, limit, minRelevance), nil
}

// Count returns the exact number of points in the collection.
func (s *QdrantStore) Count(ctx context.Context) (int64, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: TableName,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return int64(n), nil
}

// GetArticle retrieves an article and its vector by ID.
func (s *QdrantStore) GetArticle(ctx context.Context, id string) (*Article, error) {
	if !validArticleID(id) {
		return nil, ErrArticleNotFound
	}
	result, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: TableName,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(id)},
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	if len(result) == 0 {
		return nil, ErrArticleNotFound
	}

	point := result[0]
	article := articleFromPayload(id, point.Payload)
	if named := point.GetVectors().GetVectors(); named != nil {
		if v, ok := named.GetVectors()[qdrantVectorName]; ok {
			article.Embedding = v.GetData()
		}
	}
	return article, nil
}

func articleFromPayload(id string, payload map[string]*qdrant.Value) *Article {
	createdAt, err := time.Parse(time.RFC3339, payload["created_at"].GetStringValue())
	if err != nil {
		createdAt = time.Time{}
	}
	return &Article{
		ID:        id,
		Title:     payload["title"].GetStringValue(),
		Content:   payload["content"].GetStringValue(),
		Category:  Category(payload["category"].GetStringValue()),
		Source:    payload["source"].GetStringValue(),
		CreatedAt: createdAt,
	}
}
