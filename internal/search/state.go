package search

import (
	"fmt"

	"github.com/toddagriscience/todd-kb/internal/storage"
)

// State is a step of the search request lifecycle:
//
//	idle -> embedding -> searching -> {resultsReady | empty | errored}
//
// Any step may end in superseded when a newer search for the same session
// starts before this one finishes.
type State string

const (
	StateIdle         State = "idle"
	StateEmbedding    State = "embedding"
	StateSearching    State = "searching"
	StateResultsReady State = "resultsReady"
	StateEmpty        State = "empty"
	StateErrored      State = "errored"
	StateSuperseded   State = "superseded"
)

// Terminal reports whether s is a final state of a search.
func (s State) Terminal() bool {
	switch s {
	case StateIdle, StateResultsReady, StateEmpty, StateErrored, StateSuperseded:
		return true
	}
	return false
}

// User facing messages.
const (
	PromptMessage  = "Ask a question about your farm to search the Todd knowledge base."
	FailureMessage = "Search failed. Please try again."
)

// NoKnowledgeMessage invites the user to take query to a human advisor.
func NoKnowledgeMessage(query string) string {
	return fmt.Sprintf("We couldn't find anything about %q in our knowledge base. "+
		"Contact a Todd advisor and we'll help you with it directly.", query)
}

// Outcome is the terminal result of one search request.
type Outcome struct {
	State   State
	Query   string // Trimmed query text
	Results []storage.ScoredArticle
	Message string
}
