package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/toddagriscience/todd-kb/internal/markdown"
	"github.com/toddagriscience/todd-kb/internal/search"
	"github.com/toddagriscience/todd-kb/internal/storage"
)

const maxResultsCap = 20

// makeSearchHandler creates the search_knowledge tool handler. It runs the
// same pipeline as the web page; failures come back as an errored outcome,
// not a tool error.
func makeSearchHandler(svc *search.Service, renderer *markdown.Renderer) func(
	context.Context, *mcp.CallToolRequest, SearchKnowledgeInput,
) (*mcp.CallToolResult, SearchKnowledgeOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchKnowledgeInput) (
		*mcp.CallToolResult, SearchKnowledgeOutput, error,
	) {
		params := search.Params{Limit: input.MaxResults, MinRelevance: input.MinScore}
		if params.Limit > maxResultsCap {
			params.Limit = maxResultsCap
		}

		out := svc.SearchWith(ctx, "", input.Query, params)

		results := make([]ArticleResult, 0, len(out.Results))
		for _, hit := range out.Results {
			a := hit.Article
			results = append(results, ArticleResult{
				ID:            a.ID,
				Title:         a.Title,
				Category:      string(a.Category),
				CategoryLabel: a.Category.Label(),
				Source:        a.Source,
				Excerpt:       renderer.Excerpt([]byte(a.Content), markdown.DefaultExcerptLength),
				Score:         hit.Score,
			})
		}

		return nil, SearchKnowledgeOutput{
			State:   string(out.State),
			Results: results,
			Message: out.Message,
		}, nil
	}
}

// makeGetArticleHandler creates the get_article tool handler.
// Prepends a title header to the markdown body.
func makeGetArticleHandler(store storage.ArticleStore) func(
	context.Context, *mcp.CallToolRequest, GetArticleInput,
) (*mcp.CallToolResult, GetArticleOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input GetArticleInput) (
		*mcp.CallToolResult, GetArticleOutput, error,
	) {
		// Article IDs are UUIDs; anything else cannot exist in any backend.
		if _, err := uuid.Parse(input.ID); err != nil {
			return nil, GetArticleOutput{Found: false, ID: input.ID}, nil
		}

		a, err := store.GetArticle(ctx, input.ID)
		if err != nil {
			if errors.Is(err, storage.ErrArticleNotFound) {
				return nil, GetArticleOutput{Found: false, ID: input.ID}, nil
			}
			return nil, GetArticleOutput{}, fmt.Errorf("failed to fetch article: %w", err)
		}

		return nil, GetArticleOutput{
			Found:    true,
			ID:       a.ID,
			Title:    a.Title,
			Category: string(a.Category),
			Source:   a.Source,
			Content:  fmt.Sprintf("# %s\n\n%s", a.Title, a.Content),
		}, nil
	}
}

// makeStatusHandler creates the knowledge_status tool handler.
func makeStatusHandler(store storage.ArticleStore) func(
	context.Context, *mcp.CallToolRequest, StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		if err := store.Health(ctx); err != nil {
			return nil, StatusOutput{Healthy: false, Error: err.Error()}, nil
		}
		n, err := store.Count(ctx)
		if err != nil {
			return nil, StatusOutput{Healthy: false, Error: err.Error()}, nil
		}
		return nil, StatusOutput{Healthy: true, Articles: n}, nil
	}
}
