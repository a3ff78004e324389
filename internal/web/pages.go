package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"math"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"percent": func(score float64) string {
		return fmt.Sprintf("%d%%", int(math.Round(score*100)))
	},
}

type pages struct {
	t *template.Template
}

func mustParsePages() *pages {
	t := template.Must(template.New("pages").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html"))
	return &pages{t: t}
}

// render executes a page into a buffer first so a template error never
// leaves a half-written response.
func (p *pages) render(w http.ResponseWriter, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := p.t.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	if err := s.pages.render(w, http.StatusOK, "landing", nil); err != nil {
		s.logger.Error("render landing page", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
