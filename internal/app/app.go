// Package app wires configuration into the stores and clients shared by the
// server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/toddagriscience/todd-kb/internal/auth"
	"github.com/toddagriscience/todd-kb/internal/catalog"
	"github.com/toddagriscience/todd-kb/internal/config"
	"github.com/toddagriscience/todd-kb/internal/dashboard"
	"github.com/toddagriscience/todd-kb/internal/embedding"
	ghclient "github.com/toddagriscience/todd-kb/internal/github"
	"github.com/toddagriscience/todd-kb/internal/storage"
)

// Deps are the long-lived components built from a Config.
type Deps struct {
	Store    storage.ArticleStore
	Layouts  dashboard.Repository
	Embedder embedding.Embedder
}

// Close releases the article store.
func (d *Deps) Close() error {
	if d.Store == nil {
		return nil
	}
	return d.Store.Close()
}

// OpenStore connects to the configured backend and prepares its schema:
// migrations and a dimension check for Postgres, the collection for Qdrant.
// Layouts live next to the articles in Postgres and in memory otherwise.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.ArticleStore, dashboard.Repository, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		if err := storage.Migrate(cfg.DatabaseURL); err != nil {
			return nil, nil, err
		}
		store, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL, cfg.EmbeddingDimension)
		if err != nil {
			return nil, nil, err
		}
		if err := store.VerifySchema(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		logger.Info("Connected to Postgres article store")
		return store, dashboard.NewLayoutStore(store.Pool()), nil

	case config.BackendQdrant:
		store, err := storage.NewQdrantStore(ctx, cfg.QdrantHost, cfg.QdrantPort, cfg.EmbeddingDimension)
		if err != nil {
			return nil, nil, err
		}
		if err := store.EnsureCollection(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		logger.Info("Connected to Qdrant article store", "host", cfg.QdrantHost, "port", cfg.QdrantPort)
		logger.Warn("Dashboard layouts are kept in memory with the qdrant backend")
		return store, dashboard.NewMemoryStore(), nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// Open builds the store and the embedding client. Both are sized by
// EMBEDDING_DIMENSION; OpenStore checks the stored schema against it.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Deps, error) {
	embedder, err := embedding.New(cfg.EmbeddingOptions())
	if err != nil {
		return nil, fmt.Errorf("create embedding client: %w", err)
	}
	store, layouts, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Deps{Store: store, Layouts: layouts, Embedder: embedder}, nil
}

// Verifier returns the session verifier, or nil when auth is disabled.
func Verifier(cfg *config.Config, logger *slog.Logger) (*auth.Verifier, error) {
	if cfg.AuthDisabled {
		logger.Warn("Authentication disabled, every request runs as the development user")
		return nil, nil
	}
	return auth.NewVerifier(cfg.AuthJWTSecret)
}

// LoadCatalog reads the catalog at location, fetching github:// locations
// through the rate-limited GitHub client.
func LoadCatalog(ctx context.Context, cfg *config.Config, location string) ([]catalog.Entry, error) {
	if location == "" {
		location = cfg.Catalog
	}
	var remote catalog.FileFetcher
	if location != catalog.DefaultLocation {
		client, err := ghclient.NewClient(cfg.GitHubToken)
		if err != nil {
			return nil, fmt.Errorf("create GitHub client: %w", err)
		}
		remote = ghclient.NewFetcher(client)
	}
	entries, err := catalog.Load(ctx, location, remote)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.New("catalog is empty")
	}
	return entries, nil
}
