package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/toddagriscience/todd-kb/internal/auth"
	"github.com/toddagriscience/todd-kb/internal/dashboard"
)

const maxLayoutBody = 64 << 10

type layoutItemView struct {
	dashboard.Item
	Title string `json:"title"`
}

type layoutResponse struct {
	Items []layoutItemView `json:"items"`
	// Default is true when the user has never saved a layout.
	Default bool `json:"default"`
}

type layoutRequest struct {
	Items []dashboard.Item `json:"items"`
}

type layoutSaveResponse struct {
	Upserted int      `json:"upserted"`
	Deleted  []string `json:"deleted"`
}

func layoutView(items []dashboard.Item, isDefault bool) layoutResponse {
	views := make([]layoutItemView, 0, len(items))
	for _, it := range items {
		views = append(views, layoutItemView{Item: it, Title: dashboard.Resolve(it.Kind).Title})
	}
	return layoutResponse{Items: views, Default: isDefault}
}

func (s *Server) handleGetLayout(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	items, saved, err := s.layouts.Load(r.Context(), id.Subject)
	if err != nil {
		s.logger.Error("load dashboard layout", "user", id.Subject, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load layout")
		return
	}
	if !saved {
		s.writeJSON(w, http.StatusOK, layoutView(dashboard.DefaultLayout(), true))
		return
	}
	s.writeJSON(w, http.StatusOK, layoutView(items, false))
}

func (s *Server) handlePutLayout(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())

	var req layoutRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLayoutBody))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid layout body")
		return
	}

	change, err := s.layouts.Save(r.Context(), id.Subject, req.Items)
	if errors.Is(err, dashboard.ErrInvalidLayout) {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("save dashboard layout", "user", id.Subject, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to save layout")
		return
	}

	deleted := change.Deletes
	if deleted == nil {
		deleted = []string{}
	}
	s.writeJSON(w, http.StatusOK, layoutSaveResponse{Upserted: len(change.Upserts), Deleted: deleted})
}

func (s *Server) handleListWidgets(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, dashboard.Widgets())
}
