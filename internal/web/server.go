// Package web serves the knowledge base pages, JSON API, and MCP endpoint.
package web

import (
	"expvar"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/toddagriscience/todd-kb/internal/auth"
	"github.com/toddagriscience/todd-kb/internal/dashboard"
	"github.com/toddagriscience/todd-kb/internal/markdown"
	"github.com/toddagriscience/todd-kb/internal/search"
	"github.com/toddagriscience/todd-kb/internal/storage"
)

// Config holds server dependencies.
type Config struct {
	Search  *search.Service
	Store   storage.ArticleStore
	Layouts dashboard.Repository

	// Verifier validates session tokens. Nil disables auth and every request
	// runs as auth.DevIdentity.
	Verifier *auth.Verifier

	// MCP, when set, is mounted at /mcp behind the approval gate.
	MCP http.Handler

	CORSOrigins []string
	Logger      *slog.Logger
}

// Server routes HTTP requests to the knowledge base.
type Server struct {
	router   *mux.Router
	search   *search.Service
	store    storage.ArticleStore
	layouts  dashboard.Repository
	renderer *markdown.Renderer
	pages    *pages
	logger   *slog.Logger

	corsOrigins []string
}

// NewServer creates a server with all routes registered.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:   mux.NewRouter(),
		search:   cfg.Search,
		store:    cfg.Store,
		layouts:  cfg.Layouts,
		renderer: markdown.NewRenderer(),
		pages:    mustParsePages(),
		logger:   logger,

		corsOrigins: cfg.CORSOrigins,
	}
	s.setupRoutes(cfg)
	return s
}

// setupRoutes configures public and approved-only routes.
func (s *Server) setupRoutes(cfg Config) {
	s.router.Use(auth.Middleware(cfg.Verifier, s.logger))

	s.router.HandleFunc("/", s.handleLanding).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/debug/vars", expvar.Handler()).Methods(http.MethodGet)

	// Everything below answers 404 unless the user is approved.
	gated := s.router.NewRoute().Subrouter()
	gated.Use(auth.RequireApproved)

	if cfg.MCP != nil {
		gated.Handle("/mcp", cfg.MCP)
	}
	gated.HandleFunc("/knowledge", s.handleKnowledgePage).Methods(http.MethodGet)
	gated.HandleFunc("/knowledge/articles/{id}", s.handleArticlePage).Methods(http.MethodGet)

	api := gated.PathPrefix("/api").Subrouter()
	api.HandleFunc("/knowledge/search", s.handleSearchAPI).Methods(http.MethodGet)
	api.HandleFunc("/knowledge/articles/{id}", s.handleArticleAPI).Methods(http.MethodGet)
	api.HandleFunc("/dashboard/layout", s.handleGetLayout).Methods(http.MethodGet)
	api.HandleFunc("/dashboard/layout", s.handlePutLayout).Methods(http.MethodPut)
	api.HandleFunc("/dashboard/widgets", s.handleListWidgets).Methods(http.MethodGet)
}

// Handler returns the router, wrapped with CORS when cross-origin callers are
// configured. Without origins only same-origin requests are served.
func (s *Server) Handler() http.Handler {
	if len(s.corsOrigins) == 0 {
		return s.router
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Mcp-Session-Id"},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}
