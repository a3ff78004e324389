package config

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "STORE_BACKEND", "DATABASE_URL", "EMBEDDING_PROVIDER", "EMBEDDING_DIMENSION",
		"EMBEDDING_TIMEOUT", "SEARCH_LIMIT", "SEARCH_MIN_RELEVANCE", "CORS_ORIGINS", "CATALOG",
		"AUTH_DISABLED", "LOG_LEVEL", "LOG_FORMAT", "GEMINI_BASE_URL", "EMBEDDING_MODEL",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, "gemini", cfg.EmbeddingProvider)
	assert.Equal(t, 768, cfg.EmbeddingDimension)
	assert.Equal(t, 30*time.Second, cfg.EmbeddingTimeout)
	assert.Equal(t, 5, cfg.SearchLimit)
	assert.Equal(t, 0.5, cfg.SearchMinRelevance)
	assert.Equal(t, "builtin", cfg.Catalog)
	assert.Empty(t, cfg.CORSOrigins)
	assert.False(t, cfg.AuthDisabled)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Qdrant")
	t.Setenv("QDRANT_PORT", "7000")
	t.Setenv("EMBEDDING_TIMEOUT", "5s")
	t.Setenv("SEARCH_MIN_RELEVANCE", "0.7")
	t.Setenv("CORS_ORIGINS", "https://app.todd.test, ,https://admin.todd.test")
	t.Setenv("AUTH_DISABLED", "true")
	t.Setenv("SEARCH_LIMIT", "not-a-number")

	cfg := Load()
	assert.Equal(t, BackendQdrant, cfg.StoreBackend)
	assert.Equal(t, 7000, cfg.QdrantPort)
	assert.Equal(t, 5*time.Second, cfg.EmbeddingTimeout)
	assert.Equal(t, 0.7, cfg.SearchMinRelevance)
	assert.Equal(t, []string{"https://app.todd.test", "https://admin.todd.test"}, cfg.CORSOrigins)
	assert.True(t, cfg.AuthDisabled)
	assert.Equal(t, 5, cfg.SearchLimit, "unparseable values fall back to the default")
}

func validConfig() *Config {
	return &Config{
		StoreBackend:       BackendPostgres,
		DatabaseURL:        "postgres://localhost/todd",
		EmbeddingProvider:  "gemini",
		GeminiAPIKey:       "key",
		EmbeddingDimension: 768,
		SearchLimit:        5,
		SearchMinRelevance: 0.5,
		AuthJWTSecret:      "secret",
		LogLevel:           "info",
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := map[string]struct {
		mutate func(c *Config)
		want   string
	}{
		"missing database": {func(c *Config) { c.DatabaseURL = "" }, "DATABASE_URL"},
		"bad backend":      {func(c *Config) { c.StoreBackend = "sqlite" }, "STORE_BACKEND"},
		"missing gemini":   {func(c *Config) { c.GeminiAPIKey = "" }, "GEMINI_API_KEY"},
		"missing openai":   {func(c *Config) { c.EmbeddingProvider = "openai" }, "OPENAI_API_KEY"},
		"floor too high":   {func(c *Config) { c.SearchMinRelevance = 1.5 }, "SEARCH_MIN_RELEVANCE"},
		"no jwt secret":    {func(c *Config) { c.AuthJWTSecret = "" }, "AUTH_JWT_SECRET"},
		"bad log level":    {func(c *Config) { c.LogLevel = "loud" }, "LOG_LEVEL"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			assert.ErrorContains(t, c.Validate(), tt.want)
		})
	}

	c := validConfig()
	c.AuthJWTSecret = ""
	c.AuthDisabled = true
	assert.NoError(t, c.Validate())

	c = validConfig()
	c.StoreBackend = BackendQdrant
	c.DatabaseURL = ""
	c.QdrantPort = 6334
	assert.NoError(t, c.Validate())
}

func TestEmbeddingOptions(t *testing.T) {
	c := validConfig()
	c.GeminiBaseURL = "https://gemini.test"
	opts := c.EmbeddingOptions()
	assert.Equal(t, "key", opts.APIKey)
	assert.Equal(t, "https://gemini.test", opts.BaseURL)

	c.EmbeddingProvider = "openai"
	c.OpenAIAPIKey = "sk-test"
	opts = c.EmbeddingOptions()
	assert.Equal(t, "sk-test", opts.APIKey)
	assert.Empty(t, opts.BaseURL)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	c := validConfig()
	c.LogFormat = "json"
	c.LogLevel = "warn"

	logger := c.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.HasPrefix(out, "{"), "json handler expected, got %q", out)
	assert.Contains(t, out, `"k":"v"`)
}
