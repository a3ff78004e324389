package web

import (
	"context"
	"net/http"
	"time"
)

// HealthResponse represents the JSON response from the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Store     string `json:"store"`
	Articles  int64  `json:"articles"`
	Timestamp string `json:"timestamp"`
}

// handleHealth reports article store connectivity: 200 when reachable, 503 otherwise.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	response := HealthResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	err := s.store.Health(ctx)
	if err == nil {
		response.Articles, err = s.store.Count(ctx)
	}
	if err != nil {
		s.logger.Warn("health check failed", "error", err)
		response.Status = "unhealthy"
		response.Store = "disconnected"
		s.writeJSON(w, http.StatusServiceUnavailable, response)
		return
	}

	response.Status = "healthy"
	response.Store = "connected"
	s.writeJSON(w, http.StatusOK, response)
}
