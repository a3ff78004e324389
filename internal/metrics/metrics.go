// Package metrics exposes process counters through expvar at /debug/vars.
package metrics

import (
	"expvar"
)

var (
	// SearchRequestsTotal counts knowledge base searches, blank ones included
	SearchRequestsTotal = expvar.NewInt("kb_search_requests_total")

	// SearchOutcomes counts searches by final state
	SearchOutcomes = expvar.NewMap("kb_search_outcomes")

	// EmbeddingsFailedTotal counts failed embedding provider calls on the search path
	EmbeddingsFailedTotal = expvar.NewInt("kb_embeddings_failed_total")

	// StoreErrorsTotal counts failed article store queries on the search path
	StoreErrorsTotal = expvar.NewInt("kb_store_errors_total")

	// LayoutWritesTotal counts dashboard widgets written by layout saves
	LayoutWritesTotal = expvar.NewInt("dashboard_layout_writes_total")
)
