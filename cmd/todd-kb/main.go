// Package main provides the todd-kb CLI for managing the knowledge base.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/toddagriscience/todd-kb/internal/app"
	"github.com/toddagriscience/todd-kb/internal/auth"
	"github.com/toddagriscience/todd-kb/internal/config"
	"github.com/toddagriscience/todd-kb/internal/indexer"
	mcpserver "github.com/toddagriscience/todd-kb/internal/mcp"
	"github.com/toddagriscience/todd-kb/internal/search"
	"github.com/toddagriscience/todd-kb/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:          "todd-kb",
	Short:        "Todd knowledge base management tool",
	Long:         "CLI tool for migrating, seeding, and querying the Todd Agriscience knowledge base",
	SilenceUsage: true,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long: `Applies the embedded schema migrations to DATABASE_URL.

Environment variables:
  DATABASE_URL   Postgres connection string (required)`,
	RunE: runMigrate,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the article catalog into an empty store",
	Long: `Embeds every catalog article and stores them in one atomic write.

This command:
1. Connects to the configured store and prepares its schema
2. Skips seeding if any article already exists
3. Loads the catalog (built-in field guide, a local YAML file, or github://owner/repo/path@ref)
4. Generates one embedding per article (title and content)
5. Inserts all articles together, or none if any step fails

Environment variables:
  STORE_BACKEND       postgres (default) or qdrant
  DATABASE_URL        Postgres connection string
  EMBEDDING_PROVIDER  gemini (default) or openai
  GEMINI_API_KEY      Gemini API key
  GITHUB_TOKEN        GitHub token for github:// catalogs (optional)`,
	RunE: runSeed,
}

var searchCmd = &cobra.Command{
	Use:   "search <question>",
	Short: "Run a knowledge base search from the terminal",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the MCP tools over stdio",
	Long:  "Runs the knowledge base MCP server on stdin/stdout for local assistant clients.",
	RunE:  runMCP,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a session token for local testing",
	Long: `Signs a session token with AUTH_JWT_SECRET.

Use it as a bearer token or as the todd_session cookie value.`,
	RunE: runToken,
}

var (
	catalogFlag      string
	limitFlag        int
	minRelevanceFlag float64
	subjectFlag      string
	emailFlag        string
	approvedFlag     bool
	ttlFlag          time.Duration
)

func init() {
	seedCmd.Flags().StringVar(&catalogFlag, "catalog", "", "catalog location (default: $CATALOG or builtin)")

	searchCmd.Flags().IntVar(&limitFlag, "limit", 0, "maximum results (default: $SEARCH_LIMIT)")
	searchCmd.Flags().Float64Var(&minRelevanceFlag, "min-relevance", -1, "relevance floor 0-1 (default: $SEARCH_MIN_RELEVANCE)")

	tokenCmd.Flags().StringVar(&subjectFlag, "sub", "dev", "user id")
	tokenCmd.Flags().StringVar(&emailFlag, "email", "", "user email")
	tokenCmd.Flags().BoolVar(&approvedFlag, "approved", true, "whether the user is approved")
	tokenCmd.Flags().DurationVar(&ttlFlag, "ttl", 24*time.Hour, "token lifetime")

	rootCmd.AddCommand(migrateCmd, seedCmd, searchCmd, mcpCmd, tokenCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	fmt.Println("Applying migrations...")
	if err := storage.Migrate(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	fmt.Println("Schema up to date")
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.Load()
	logger := cfg.NewLogger(os.Stderr)

	entries, err := app.LoadCatalog(ctx, cfg, catalogFlag)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	fmt.Printf("Loaded %d catalog articles\n", len(entries))

	deps, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open knowledge base: %w", err)
	}
	defer deps.Close()

	result, err := indexer.NewSeeder(deps.Store, deps.Embedder, logger).Seed(ctx, entries)
	if err != nil {
		return fmt.Errorf("seeding failed, nothing was written: %w", err)
	}

	fmt.Println()
	if result.Skipped {
		fmt.Printf("Store already holds %d articles, nothing to do\n", result.Existing)
		return nil
	}
	fmt.Println("Seed complete!")
	fmt.Printf("  Articles: %d\n", result.Inserted)
	fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Millisecond))
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.Load()
	logger := cfg.NewLogger(os.Stderr)

	deps, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open knowledge base: %w", err)
	}
	defer deps.Close()

	params := search.Params{Limit: limitFlag}
	if minRelevanceFlag >= 0 {
		params.MinRelevance = &minRelevanceFlag
	}

	svc := search.NewService(deps.Embedder, deps.Store, cfg.SearchConfig(), logger)
	out := svc.SearchWith(ctx, "", strings.Join(args, " "), params)

	switch out.State {
	case search.StateResultsReady:
		for i, hit := range out.Results {
			a := hit.Article
			fmt.Printf("%d. %s  [%s]  %.0f%%\n", i+1, a.Title, a.Category.Label(), hit.Score*100)
			fmt.Printf("   id: %s\n", a.ID)
		}
	case search.StateErrored:
		fmt.Println(out.Message)
		return fmt.Errorf("search failed, see log for details")
	default:
		fmt.Println(out.Message)
	}
	return nil
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.Load()
	// stdout carries the protocol, so logs go to stderr.
	logger := cfg.NewLogger(os.Stderr)

	deps, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open knowledge base: %w", err)
	}
	defer deps.Close()

	svc := search.NewService(deps.Embedder, deps.Store, cfg.SearchConfig(), logger)
	server := mcpserver.NewServer(&mcpserver.Config{Search: svc, Store: deps.Store})

	logger.Info("Starting Todd knowledge base MCP server (stdio mode)")
	return server.Run(ctx)
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	verifier, err := auth.NewVerifier(cfg.AuthJWTSecret)
	if err != nil {
		return fmt.Errorf("AUTH_JWT_SECRET: %w", err)
	}
	token, err := verifier.Issue(auth.Identity{
		Subject:  subjectFlag,
		Email:    emailFlag,
		Approved: approvedFlag,
	}, ttlFlag)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
