package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PostgresStore keeps articles in a pgvector column and lets Postgres rank them
// by cosine distance.
type PostgresStore struct {
	pool      *pgxpool.Pool
	dimension int
}

// NewPostgresStore opens a connection pool and waits for the database to answer.
// It retries the health check with exponential backoff and fails fast after 30s.
func NewPostgresStore(ctx context.Context, databaseURL string, dimension int) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if dimension <= 0 {
		dimension = DefaultVectorDimension
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 25
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	store := &PostgresStore{pool: pool, dimension: dimension}
	if err := healthCheckWithRetry(ctx, store.Health); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnreachable, err)
	}

	return store, nil
}

// Pool exposes the connection pool to other repositories sharing the database.
func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

// Health pings the database once.
func (s *PostgresStore) Health(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close releases all pooled connections.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// VerifySchema checks that the embedding column was created with the configured
// dimension. For the vector type the column typmod is the dimension.
func (s *PostgresStore) VerifySchema(ctx context.Context) error {
	var typmod int
	err := s.pool.QueryRow(ctx, `
		SELECT atttypmod FROM pg_attribute
		WHERE attrelid = $1::regclass AND attname = 'embedding'`, TableName).Scan(&typmod)
	if err != nil {
		return fmt.Errorf("inspect embedding column: %w", err)
	}
	if typmod != s.dimension {
		return fmt.Errorf("%w: column is vector(%d), configured %d",
			ErrDimensionMismatch, typmod, s.dimension)
	}
	return nil
}

const searchSQL = `
SELECT id::text, title, content, category, source, created_at,
       1 - (embedding <=> $1) AS score
FROM knowledge_articles
WHERE 1 - (embedding <=> $1) >= $2
ORDER BY embedding <=> $1
LIMIT $3`

// Search ranks articles by cosine distance inside Postgres.
func (s *PostgresStore) Search(ctx context.Context, query []float32, limit int, minRelevance float64) ([]ScoredArticle, error) {
	if err := checkDimension("query", query, s.dimension); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.pool.Query(ctx, searchSQL, pgvector.NewVector(query), minRelevance, limit)
	if err != nil {
		return nil, fmt.Errorf("search articles: %w", err)
	}
	defer rows.Close()

	var results []ScoredArticle
	for rows.Next() {
		var (
			a        Article
			category string
			score    float64
		)
		if err := rows.Scan(&a.ID, &a.Title, &a.Content, &category, &a.Source, &a.CreatedAt, &score); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		a.Category = Category(category)
		results = append(results, ScoredArticle{Article: &a, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}

	// The query orders by distance alone so the HNSW index applies; ties are
	// broken by ID here.
	return RankResults(results, limit, minRelevance), nil
}

// Count returns the number of stored articles.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM knowledge_articles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return n, nil
}

// InsertArticles writes all articles in a single transaction.
func (s *PostgresStore) InsertArticles(ctx context.Context, articles []*Article) error {
	if len(articles) == 0 {
		return nil
	}
	if err := validateArticles(articles, s.dimension); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, a := range articles {
		if a.CreatedAt.IsZero() {
			a.CreatedAt = time.Now().UTC()
		}
		batch.Queue(`
			INSERT INTO knowledge_articles (id, title, content, category, source, embedding, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			a.ID, a.Title, a.Content, string(a.Category), a.Source, pgvector.NewVector(a.Embedding), a.CreatedAt)
	}

	results := tx.SendBatch(ctx, batch)
	for i := range articles {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("insert article %q: %w", articles[i].Title, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetArticle loads one article including its embedding.
func (s *PostgresStore) GetArticle(ctx context.Context, id string) (*Article, error) {
	var (
		a        Article
		category string
		vec      pgvector.Vector
	)
	if !validArticleID(id) {
		return nil, ErrArticleNotFound
	}
	err := s.pool.QueryRow(ctx, `
		SELECT id::text, title, content, category, source, embedding, created_at
		FROM knowledge_articles WHERE id = $1::uuid`, id).
		Scan(&a.ID, &a.Title, &a.Content, &category, &a.Source, &vec, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrArticleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get article: %w", err)
	}
	a.Category = Category(category)
	a.Embedding = vec.Slice()
	return &a, nil
}
