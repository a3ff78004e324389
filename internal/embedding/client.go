package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultGeminiBaseURL is the Generative Language API root.
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultGeminiModel produces 768-dimension vectors.
	DefaultGeminiModel = "text-embedding-004"

	// DefaultDimension matches DefaultGeminiModel and the article table.
	DefaultDimension = 768

	// DefaultTimeout bounds a single provider call.
	DefaultTimeout = 30 * time.Second

	maxErrorBody = 4 << 10
)

// Embedder turns text into a fixed-length vector.
// Every call goes to the provider; results are never cached or retried.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Options selects and configures an embedding provider.
type Options struct {
	Provider   string // "gemini" (default) or "openai"
	APIKey     string
	BaseURL    string
	Model      string
	Dimension  int
	Timeout    time.Duration
	HTTPClient *http.Client
}

// New builds the Embedder named by opts.Provider.
func New(opts Options) (Embedder, error) {
	switch strings.ToLower(opts.Provider) {
	case "", "gemini":
		return NewGeminiClient(opts)
	case "openai":
		return NewOpenAIClient(opts)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", opts.Provider)
	}
}

// GeminiClient calls the embedContent endpoint of the Gemini API.
type GeminiClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	dimension  int
}

type embedContentRequest struct {
	Content embedContent `json:"content"`
}

type embedContent struct {
	Parts []embedPart `json:"parts"`
}

type embedPart struct {
	Text string `json:"text"`
}

type embedContentResponse struct {
	Embedding *struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

// NewGeminiClient returns an error if no API key is configured.
func NewGeminiClient(opts Options) (*GeminiClient, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable not set")
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("invalid embedding base URL %q", baseURL)
	}

	model := opts.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	dimension := opts.Dimension
	if dimension <= 0 {
		dimension = DefaultDimension
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &GeminiClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     opts.APIKey,
		model:      model,
		dimension:  dimension,
	}, nil
}

// Dimension returns the vector length this client guarantees.
func (c *GeminiClient) Dimension() int {
	return c.dimension
}

// Embed sends text to the provider and validates the returned vector.
// All failures wrap ErrEmbeddingFailed; HTTP failures also wrap *APIError.
func (c *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	payload, err := json.Marshal(embedContentRequest{
		Content: embedContent{Parts: []embedPart{{Text: text}}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrEmbeddingFailed, err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:embedContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrEmbeddingFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, &APIError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		})
	}

	var decoded embedContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrEmbeddingFailed, err)
	}
	if decoded.Embedding == nil || len(decoded.Embedding.Values) == 0 {
		return nil, fmt.Errorf("%w: response has no embedding values", ErrEmbeddingFailed)
	}

	return checkDimension(decoded.Embedding.Values, c.dimension)
}

func checkDimension(vec []float32, dimension int) ([]float32, error) {
	if len(vec) != dimension {
		return nil, fmt.Errorf("%w: got %d dimensions, expected %d",
			ErrEmbeddingFailed, len(vec), dimension)
	}
	// A zero or non-finite vector has no cosine similarity to anything.
	var norm float64
	for _, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: vector has non-finite values", ErrEmbeddingFailed)
		}
		norm += f * f
	}
	if norm == 0 {
		return nil, fmt.Errorf("%w: vector has zero norm", ErrEmbeddingFailed)
	}
	return vec, nil
}
