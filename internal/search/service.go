// Package search turns a free-text question into ranked knowledge base articles.
package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/toddagriscience/todd-kb/internal/embedding"
	"github.com/toddagriscience/todd-kb/internal/metrics"
	"github.com/toddagriscience/todd-kb/internal/storage"
)

const (
	DefaultLimit        = storage.DefaultLimit
	DefaultMinRelevance = 0.5
)

// Config holds search defaults.
type Config struct {
	Limit        int     // Maximum results (default: 5)
	MinRelevance float64 // Relevance floor in [0, 1] (default: 0.5)

	// OnTransition, when set, is called on every state change.
	OnTransition func(session string, state State)
}

// DefaultConfig returns the production search defaults.
func DefaultConfig() Config {
	return Config{Limit: DefaultLimit, MinRelevance: DefaultMinRelevance}
}

// Params overrides Config for a single search. Zero fields use the config.
type Params struct {
	Limit        int
	MinRelevance *float64
}

// Service runs searches against an embedder and an article store.
type Service struct {
	embedder embedding.Embedder
	store    storage.ArticleStore
	tracker  *Tracker
	cfg      Config
	logger   *slog.Logger
}

// NewService creates a Service. A nil logger uses slog.Default().
func NewService(embedder embedding.Embedder, store storage.ArticleStore, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.MinRelevance < 0 || cfg.MinRelevance > 1 {
		cfg.MinRelevance = DefaultMinRelevance
	}
	return &Service{
		embedder: embedder,
		store:    store,
		tracker:  NewTracker(),
		cfg:      cfg,
		logger:   logger,
	}
}

// Tracker returns the service's supersession tracker.
func (s *Service) Tracker() *Tracker {
	return s.tracker
}

// Search runs rawQuery for session with the configured limit and floor.
// An empty session disables supersession.
func (s *Service) Search(ctx context.Context, session, rawQuery string) Outcome {
	return s.SearchWith(ctx, session, rawQuery, Params{})
}

// SearchWith runs rawQuery with per-call overrides. Failures are logged and
// reported as StateErrored; they are never returned to the caller.
func (s *Service) SearchWith(ctx context.Context, session, rawQuery string, p Params) Outcome {
	metrics.SearchRequestsTotal.Add(1)
	query := strings.TrimSpace(rawQuery)

	// A blank query still supersedes whatever the session had in flight.
	ctx, ticket := s.tracker.Begin(ctx, session)
	defer ticket.Done()

	if query == "" {
		return s.finish(session, Outcome{State: StateIdle, Message: PromptMessage})
	}

	limit, minRelevance := s.cfg.Limit, s.cfg.MinRelevance
	if p.Limit > 0 {
		limit = p.Limit
	}
	if p.MinRelevance != nil && *p.MinRelevance >= 0 && *p.MinRelevance <= 1 {
		minRelevance = *p.MinRelevance
	}

	s.transition(session, StateEmbedding)
	vec, err := s.embedder.Embed(ctx, query)
	if !ticket.Current() {
		return s.superseded(session, query)
	}
	if err != nil {
		metrics.EmbeddingsFailedTotal.Add(1)
		s.logFailure("embedding query failed", session, query, err)
		return s.finish(session, Outcome{State: StateErrored, Query: query, Message: FailureMessage})
	}

	s.transition(session, StateSearching)
	hits, err := s.store.Search(ctx, vec, limit, minRelevance)
	if !ticket.Current() {
		return s.superseded(session, query)
	}
	if err != nil {
		metrics.StoreErrorsTotal.Add(1)
		s.logFailure("similarity search failed", session, query, err)
		return s.finish(session, Outcome{State: StateErrored, Query: query, Message: FailureMessage})
	}

	if len(hits) == 0 {
		return s.finish(session, Outcome{
			State:   StateEmpty,
			Query:   query,
			Results: []storage.ScoredArticle{},
			Message: NoKnowledgeMessage(query),
		})
	}

	s.logger.Debug("search complete", "session", session, "query", query, "results", len(hits))
	return s.finish(session, Outcome{State: StateResultsReady, Query: query, Results: hits})
}

func (s *Service) superseded(session, query string) Outcome {
	s.logger.Debug("search superseded", "session", session, "query", query)
	return s.finish(session, Outcome{State: StateSuperseded, Query: query})
}

func (s *Service) logFailure(msg, session, query string, err error) {
	attrs := []any{"session", session, "query", query, "error", err}
	var apiErr *embedding.APIError
	if errors.As(err, &apiErr) {
		attrs = append(attrs, "status", apiErr.StatusCode)
	}
	s.logger.Error(msg, attrs...)
}

func (s *Service) finish(session string, out Outcome) Outcome {
	metrics.SearchOutcomes.Add(string(out.State), 1)
	s.transition(session, out.State)
	return out
}

func (s *Service) transition(session string, state State) {
	if s.cfg.OnTransition != nil {
		s.cfg.OnTransition(session, state)
	}
}
