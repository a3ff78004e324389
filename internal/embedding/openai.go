package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultOpenAIModel supports shortened output via the dimensions parameter.
const DefaultOpenAIModel = "text-embedding-3-small"

// OpenAIClient generates embeddings through the OpenAI API, asking the model
// for vectors of the configured dimension so they fit the article table.
type OpenAIClient struct {
	client    *openai.Client
	model     string
	dimension int
}

// NewOpenAIClient returns an error if no API key is configured.
func NewOpenAIClient(opts Options) (*OpenAIClient, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	if opts.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(opts.Timeout))
	}
	// Failures surface to the caller unchanged.
	reqOpts = append(reqOpts, option.WithMaxRetries(0))

	model := opts.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	dimension := opts.Dimension
	if dimension <= 0 {
		dimension = DefaultDimension
	}

	client := openai.NewClient(reqOpts...)
	return &OpenAIClient{client: &client, model: model, dimension: dimension}, nil
}

// Dimension returns the vector length this client guarantees.
func (c *OpenAIClient) Dimension() int {
	return c.dimension
}

// Embed generates one embedding for text.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
		Model:      openai.EmbeddingModel(c.model),
		Dimensions: openai.Int(int64(c.dimension)),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, &APIError{
				StatusCode: apiErr.StatusCode,
				Body:       apiErr.Message,
			})
		}
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: response has no embedding data", ErrEmbeddingFailed)
	}

	return checkDimension(toFloat32(resp.Data[0].Embedding), c.dimension)
}

// toFloat32 converts []float64 to []float32.
// OpenAI API returns float64, but storage uses float32.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
