package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func geminiServer(t *testing.T, handler http.HandlerFunc) (*GeminiClient, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := NewGeminiClient(Options{
		APIKey:    "test-key",
		BaseURL:   srv.URL,
		Dimension: 3,
	})
	require.NoError(t, err)
	return client, &calls
}

func TestGeminiEmbed_Success(t *testing.T) {
	client, _ := geminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/text-embedding-004:embedContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var body embedContentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Content.Parts, 1)
		assert.Equal(t, "soil pH", body.Content.Parts[0].Text)

		fmt.Fprint(w, `{"embedding":{"values":[0.1,0.2,0.3]}}`)
	})

	vec, err := client.Embed(context.Background(), "soil pH")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, 3, client.Dimension())
}

func TestGeminiEmbed_HTTPFailureCarriesStatus(t *testing.T) {
	client, calls := geminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"code":500,"message":"backend exploded"}}`)
	})

	_, err := client.Embed(context.Background(), "soil pH")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmbeddingFailed)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "backend exploded")
	assert.Equal(t, int32(1), atomic.LoadInt32(calls), "failures are not retried")
}

func TestGeminiEmbed_MalformedBody(t *testing.T) {
	cases := map[string]string{
		"not json":        `<html>oops</html>`,
		"no embedding":    `{}`,
		"empty values":    `{"embedding":{"values":[]}}`,
		"wrong dimension": `{"embedding":{"values":[1,2]}}`,
		"zero vector":     `{"embedding":{"values":[0,0,0]}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			client, _ := geminiServer(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, body)
			})
			_, err := client.Embed(context.Background(), "soil pH")
			assert.ErrorIs(t, err, ErrEmbeddingFailed)
		})
	}
}

func TestGeminiEmbed_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := NewGeminiClient(Options{APIKey: "k", BaseURL: url, Dimension: 3})
	require.NoError(t, err)

	_, err = client.Embed(context.Background(), "soil pH")
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
}

func TestGeminiEmbed_EmptyTextSkipsProvider(t *testing.T) {
	client, calls := geminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("provider must not be called")
	})

	_, err := client.Embed(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyText)
	assert.Zero(t, atomic.LoadInt32(calls))
}

func TestNewGeminiClient_Validation(t *testing.T) {
	_, err := NewGeminiClient(Options{})
	assert.Error(t, err)

	_, err = NewGeminiClient(Options{APIKey: "k", BaseURL: "ftp://example.com"})
	assert.Error(t, err)

	c, err := NewGeminiClient(Options{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultDimension, c.Dimension())
	assert.Equal(t, DefaultGeminiBaseURL, c.baseURL)
}

func TestNew_ProviderSelection(t *testing.T) {
	e, err := New(Options{APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &GeminiClient{}, e)

	e, err = New(Options{Provider: "OpenAI", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, e)

	_, err = New(Options{Provider: "cohere", APIKey: "k"})
	assert.Error(t, err)
}

func TestOpenAIEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/embeddings"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "soil pH", body["input"])
		assert.EqualValues(t, 3, body["dimensions"])

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"object":"list","model":"text-embedding-3-small",
			"data":[{"object":"embedding","index":0,"embedding":[0.5,0.25,0.125]}],
			"usage":{"prompt_tokens":2,"total_tokens":2}}`)
	}))
	defer srv.Close()

	client, err := NewOpenAIClient(Options{APIKey: "k", BaseURL: srv.URL + "/", Dimension: 3})
	require.NoError(t, err)

	vec, err := client.Embed(context.Background(), "soil pH")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25, 0.125}, vec)
}

func TestOpenAIEmbed_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	client, err := NewOpenAIClient(Options{APIKey: "k", BaseURL: srv.URL + "/", Dimension: 3})
	require.NoError(t, err)

	_, err = client.Embed(context.Background(), "soil pH")
	assert.ErrorIs(t, err, ErrEmbeddingFailed)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestCheckDimension_RejectsDegenerateVectors(t *testing.T) {
	_, err := checkDimension([]float32{0, 0, 0}, 3)
	assert.ErrorIs(t, err, ErrEmbeddingFailed)

	_, err = checkDimension([]float32{float32(math.NaN()), 1, 0}, 3)
	assert.ErrorIs(t, err, ErrEmbeddingFailed)

	vec, err := checkDimension([]float32{0, 0, 0.5}, 3)
	require.NoError(t, err)
	assert.Len(t, vec, 3)
}

func TestToFloat32(t *testing.T) {
	assert.Equal(t, []float32{1, 0.5}, toFloat32([]float64{1, 0.5}))
}
