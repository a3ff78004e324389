// Package main provides the HTTP server for the Todd knowledge base.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/toddagriscience/todd-kb/internal/app"
	"github.com/toddagriscience/todd-kb/internal/config"
	mcpserver "github.com/toddagriscience/todd-kb/internal/mcp"
	"github.com/toddagriscience/todd-kb/internal/search"
	"github.com/toddagriscience/todd-kb/internal/web"
)

var version = "dev"

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	deps, err := app.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to open knowledge base: %v", err)
	}
	defer deps.Close()

	verifier, err := app.Verifier(cfg, logger)
	if err != nil {
		log.Fatalf("failed to configure auth: %v", err)
	}

	svc := search.NewService(deps.Embedder, deps.Store, cfg.SearchConfig(), logger)
	mcp := mcpserver.NewServer(&mcpserver.Config{
		Search:  svc,
		Store:   deps.Store,
		Version: version,
	})

	server := web.NewServer(web.Config{
		Search:      svc,
		Store:       deps.Store,
		Layouts:     deps.Layouts,
		Verifier:    verifier,
		MCP:         mcpserver.NewHTTPHandler(mcp),
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	})

	httpServer := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// Search waits on the embedding provider, so allow its timeout plus slack.
		WriteTimeout: cfg.EmbeddingTimeout + 15*time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "addr", httpServer.Addr, "backend", cfg.StoreBackend, "version", version)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
