package web

import (
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/toddagriscience/todd-kb/internal/auth"
	"github.com/toddagriscience/todd-kb/internal/markdown"
	"github.com/toddagriscience/todd-kb/internal/search"
	"github.com/toddagriscience/todd-kb/internal/storage"
)

// resultView is one result card.
type resultView struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Category      string  `json:"category"`
	CategoryLabel string  `json:"categoryLabel"`
	Source        string  `json:"source,omitempty"`
	Excerpt       string  `json:"excerpt"`
	Score         float64 `json:"score"`
}

type searchResponse struct {
	State   search.State `json:"state"`
	Query   string       `json:"query"`
	Message string       `json:"message,omitempty"`
	Seq     int64        `json:"seq"`
	Results []resultView `json:"results"`
}

type articleResponse struct {
	ID            string             `json:"id"`
	Title         string             `json:"title"`
	Category      string             `json:"category"`
	CategoryLabel string             `json:"categoryLabel"`
	Source        string             `json:"source,omitempty"`
	HTML          string             `json:"html"`
	Outline       []markdown.Heading `json:"outline"`
	CreatedAt     time.Time          `json:"createdAt"`
}

type knowledgePage struct {
	Query   string
	State   search.State
	Message string
	Results []resultView
}

type articlePage struct {
	Title         string
	CategoryLabel string
	Source        string
	Outline       []markdown.Heading
	Body          template.HTML
}

// sessionKey scopes supersession of page re-queries to one user and, when the
// page sends one, one browser tab.
func sessionKey(r *http.Request) string {
	key := ""
	if id := auth.FromContext(r.Context()); id != nil {
		key = id.Subject
	}
	if tab := r.URL.Query().Get("tab"); tab != "" {
		key += "/" + tab
	}
	return key
}

func (s *Server) views(out search.Outcome) []resultView {
	views := make([]resultView, 0, len(out.Results))
	for _, hit := range out.Results {
		a := hit.Article
		views = append(views, resultView{
			ID:            a.ID,
			Title:         a.Title,
			Category:      string(a.Category),
			CategoryLabel: a.Category.Label(),
			Source:        a.Source,
			Excerpt:       s.renderer.Excerpt([]byte(a.Content), markdown.DefaultExcerptLength),
			Score:         hit.Score,
		})
	}
	return views
}

// handleKnowledgePage renders the search page with the outcome for ?q= already
// resolved, so the first paint shows results rather than a loading state.
// Each page load is its own view: it runs outside any session so another tab
// cannot supersede it.
func (s *Server) handleKnowledgePage(w http.ResponseWriter, r *http.Request) {
	out := s.search.Search(r.Context(), "", r.URL.Query().Get("q"))

	data := knowledgePage{
		Query:   out.Query,
		State:   out.State,
		Message: out.Message,
		Results: s.views(out),
	}
	if err := s.pages.render(w, http.StatusOK, "knowledge", data); err != nil {
		s.logger.Error("render knowledge page", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// handleSearchAPI runs one search for the page script. The seq parameter is
// echoed so the client can drop responses to queries it has moved past.
func (s *Server) handleSearchAPI(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var seq int64
	if raw := q.Get("seq"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "seq must be an integer")
			return
		}
		seq = parsed
	}

	out := s.search.Search(r.Context(), sessionKey(r), q.Get("q"))
	s.writeJSON(w, http.StatusOK, searchResponse{
		State:   out.State,
		Query:   out.Query,
		Message: out.Message,
		Seq:     seq,
		Results: s.views(out),
	})
}

// loadArticle resolves the {id} route variable. It writes the error response
// itself and returns nil when the article cannot be served.
func (s *Server) loadArticle(w http.ResponseWriter, r *http.Request) *storage.Article {
	id := mux.Vars(r)["id"]
	if _, err := uuid.Parse(id); err != nil {
		s.writeError(w, http.StatusNotFound, "article not found")
		return nil
	}

	a, err := s.store.GetArticle(r.Context(), id)
	if errors.Is(err, storage.ErrArticleNotFound) {
		s.writeError(w, http.StatusNotFound, "article not found")
		return nil
	}
	if err != nil {
		s.logger.Error("load article", "id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load article")
		return nil
	}
	return a
}

func (s *Server) handleArticleAPI(w http.ResponseWriter, r *http.Request) {
	a := s.loadArticle(w, r)
	if a == nil {
		return
	}
	doc, err := s.renderer.Render([]byte(a.Content))
	if err != nil {
		s.logger.Error("render article", "id", a.ID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to render article")
		return
	}

	outline := doc.Outline
	if outline == nil {
		outline = []markdown.Heading{}
	}
	s.writeJSON(w, http.StatusOK, articleResponse{
		ID:            a.ID,
		Title:         a.Title,
		Category:      string(a.Category),
		CategoryLabel: a.Category.Label(),
		Source:        a.Source,
		HTML:          doc.HTML,
		Outline:       outline,
		CreatedAt:     a.CreatedAt,
	})
}

func (s *Server) handleArticlePage(w http.ResponseWriter, r *http.Request) {
	a := s.loadArticle(w, r)
	if a == nil {
		return
	}
	doc, err := s.renderer.Render([]byte(a.Content))
	if err != nil {
		s.logger.Error("render article", "id", a.ID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	data := articlePage{
		Title:         a.Title,
		CategoryLabel: a.Category.Label(),
		Source:        a.Source,
		Outline:       doc.Outline,
		// Raw HTML in article markdown is escaped by the renderer.
		Body: template.HTML(doc.HTML),
	}
	if err := s.pages.render(w, http.StatusOK, "article", data); err != nil {
		s.logger.Error("render article page", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
