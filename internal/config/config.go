// Package config reads server and CLI settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/toddagriscience/todd-kb/internal/catalog"
	"github.com/toddagriscience/todd-kb/internal/embedding"
	"github.com/toddagriscience/todd-kb/internal/search"
)

const (
	BackendPostgres = "postgres"
	BackendQdrant   = "qdrant"
)

// Config holds all settings for the knowledge base server and CLI.
type Config struct {
	// Server settings
	Port        string
	CORSOrigins []string

	// Store settings
	StoreBackend string
	DatabaseURL  string
	QdrantHost   string
	QdrantPort   int

	// Embedding settings
	EmbeddingProvider  string
	GeminiAPIKey       string
	GeminiBaseURL      string
	OpenAIAPIKey       string
	EmbeddingModel     string
	EmbeddingDimension int
	EmbeddingTimeout   time.Duration

	// Search settings
	SearchLimit        int
	SearchMinRelevance float64

	// Auth settings
	AuthJWTSecret string
	AuthDisabled  bool

	// Catalog settings
	Catalog     string
	GitHubToken string

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnvList("CORS_ORIGINS"),

		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", BackendPostgres)),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		QdrantHost:   getEnv("QDRANT_HOST", "localhost"),
		QdrantPort:   getEnvInt("QDRANT_PORT", 6334),

		EmbeddingProvider:  strings.ToLower(getEnv("EMBEDDING_PROVIDER", "gemini")),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GeminiBaseURL:      getEnv("GEMINI_BASE_URL", embedding.DefaultGeminiBaseURL),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		EmbeddingModel:     getEnv("EMBEDDING_MODEL", ""),
		EmbeddingDimension: getEnvInt("EMBEDDING_DIMENSION", embedding.DefaultDimension),
		EmbeddingTimeout:   getEnvDuration("EMBEDDING_TIMEOUT", embedding.DefaultTimeout),

		SearchLimit:        getEnvInt("SEARCH_LIMIT", search.DefaultLimit),
		SearchMinRelevance: getEnvFloat("SEARCH_MIN_RELEVANCE", search.DefaultMinRelevance),

		AuthJWTSecret: getEnv("AUTH_JWT_SECRET", ""),
		AuthDisabled:  getEnvBool("AUTH_DISABLED", false),

		Catalog:     getEnv("CATALOG", catalog.DefaultLocation),
		GitHubToken: getEnv("GITHUB_TOKEN", ""),

		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}
}

// Validate reports every setting that would stop the server from starting.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	case BackendQdrant:
		if c.QdrantPort <= 0 {
			errs = append(errs, fmt.Errorf("QDRANT_PORT must be positive, got %d", c.QdrantPort))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendPostgres, BackendQdrant, c.StoreBackend))
	}

	switch c.EmbeddingProvider {
	case "gemini":
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required"))
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("EMBEDDING_PROVIDER must be gemini or openai, got %q", c.EmbeddingProvider))
	}

	if c.EmbeddingDimension <= 0 {
		errs = append(errs, fmt.Errorf("EMBEDDING_DIMENSION must be positive, got %d", c.EmbeddingDimension))
	}
	if c.SearchLimit <= 0 {
		errs = append(errs, fmt.Errorf("SEARCH_LIMIT must be positive, got %d", c.SearchLimit))
	}
	if c.SearchMinRelevance < 0 || c.SearchMinRelevance > 1 {
		errs = append(errs, fmt.Errorf("SEARCH_MIN_RELEVANCE must be within [0, 1], got %g", c.SearchMinRelevance))
	}
	if !c.AuthDisabled && c.AuthJWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required unless AUTH_DISABLED=true"))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// EmbeddingOptions returns the provider settings for embedding.New.
func (c *Config) EmbeddingOptions() embedding.Options {
	opts := embedding.Options{
		Provider:  c.EmbeddingProvider,
		Model:     c.EmbeddingModel,
		Dimension: c.EmbeddingDimension,
		Timeout:   c.EmbeddingTimeout,
	}
	if c.EmbeddingProvider == "openai" {
		opts.APIKey = c.OpenAIAPIKey
	} else {
		opts.APIKey = c.GeminiAPIKey
		opts.BaseURL = c.GeminiBaseURL
	}
	return opts
}

// SearchConfig returns the search defaults.
func (c *Config) SearchConfig() search.Config {
	return search.Config{Limit: c.SearchLimit, MinRelevance: c.SearchMinRelevance}
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
