// Package mcp exposes the knowledge base to AI assistants over the Model Context Protocol.
package mcp

// SearchKnowledgeInput defines the input parameters for the search_knowledge tool.
type SearchKnowledgeInput struct {
	// Query is the farmer's question in plain language.
	Query string `json:"query" jsonschema:"the question to search the Todd knowledge base for"`
	// MaxResults is the maximum number of articles to return.
	MaxResults int `json:"max_results,omitempty" jsonschema:"maximum number of articles to return, 1 to 20, default 5"`
	// MinScore is the minimum relevance threshold (0-1).
	MinScore *float64 `json:"min_score,omitempty" jsonschema:"minimum relevance score between 0 and 1, default 0.5"`
}

// SearchKnowledgeOutput contains the search outcome.
type SearchKnowledgeOutput struct {
	// State is the terminal search state (resultsReady, empty, errored, idle).
	State   string          `json:"state"`
	Results []ArticleResult `json:"results"`
	// Message is the user facing text for non-result states.
	Message string `json:"message,omitempty"`
}

// ArticleResult is one ranked article.
type ArticleResult struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Category      string  `json:"category"`
	CategoryLabel string  `json:"category_label"`
	Source        string  `json:"source,omitempty"`
	Excerpt       string  `json:"excerpt"`
	Score         float64 `json:"score"`
}

// GetArticleInput defines the input parameters for the get_article tool.
type GetArticleInput struct {
	ID string `json:"id" jsonschema:"article id returned by search_knowledge"`
}

// GetArticleOutput contains the full article.
type GetArticleOutput struct {
	Found    bool   `json:"found"`
	ID       string `json:"id"`
	Title    string `json:"title,omitempty"`
	Category string `json:"category,omitempty"`
	Source   string `json:"source,omitempty"`
	// Content is the markdown body with a title header prepended.
	Content string `json:"content,omitempty"`
}

// StatusInput takes no parameters.
type StatusInput struct{}

// StatusOutput reports whether the knowledge base is usable.
type StatusOutput struct {
	Healthy  bool   `json:"healthy"`
	Articles int64  `json:"articles"`
	Error    string `json:"error,omitempty"`
}
