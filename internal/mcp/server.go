package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/toddagriscience/todd-kb/internal/markdown"
	"github.com/toddagriscience/todd-kb/internal/search"
	"github.com/toddagriscience/todd-kb/internal/storage"
)

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
}

// Config holds server dependencies.
type Config struct {
	Search  *search.Service
	Store   storage.ArticleStore
	Version string
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "todd-knowledge-base",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_knowledge",
		Description: "Search the Todd Agriscience knowledge base for articles answering a farming question. Returns ranked article summaries. Use get_article for the full text.",
	}, makeSearchHandler(cfg.Search, markdown.NewRenderer()))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_article",
		Description: "Retrieve a knowledge base article by id. Returns the full markdown body.",
	}, makeGetArticleHandler(cfg.Store))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "knowledge_status",
		Description: "Report whether the knowledge base store is reachable and how many articles it holds.",
	}, makeStatusHandler(cfg.Store))

	return &Server{server: server}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
