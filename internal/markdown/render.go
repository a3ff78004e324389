// Package markdown renders article bodies for display: HTML, a heading
// outline, and plain-text excerpts for result cards.
package markdown

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// DefaultExcerptLength is the excerpt size used on result cards, in runes.
const DefaultExcerptLength = 220

// Heading is one entry of an article outline.
type Heading struct {
	Level int       `json:"level"`
	Title string    `json:"title"`
	ID    string    `json:"id"` // Anchor of the heading in the rendered HTML
	Items []Heading `json:"items,omitempty"`
}

// Document is a rendered article body.
type Document struct {
	HTML    string
	Outline []Heading
}

// Renderer converts article markdown. Raw HTML in the source is escaped.
type Renderer struct {
	md goldmark.Markdown
}

// NewRenderer creates a renderer with GitHub-flavoured tables and auto heading IDs.
func NewRenderer() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.Table, extension.Strikethrough),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
	return &Renderer{md: md}
}

// Render converts source to HTML and extracts the H2/H3 outline.
func (r *Renderer) Render(source []byte) (*Document, error) {
	doc := r.md.Parser().Parse(text.NewReader(source))

	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(2),
		toc.MaxDepth(3),
		toc.Compact(true),
	)
	if err != nil {
		return nil, fmt.Errorf("inspect TOC: %w", err)
	}

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, source, doc); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	return &Document{
		HTML:    buf.String(),
		Outline: outline(tree.Items, 2),
	}, nil
}

func outline(items toc.Items, level int) []Heading {
	if len(items) == 0 {
		return nil
	}
	headings := make([]Heading, 0, len(items))
	for _, item := range items {
		headings = append(headings, Heading{
			Level: level,
			Title: string(item.Title),
			ID:    string(item.ID),
			Items: outline(item.Items, level+1),
		})
	}
	return headings
}

// Excerpt returns the first maxRunes of the article's prose as plain text.
// Headings and code blocks are skipped, and a cut excerpt ends on a word
// boundary followed by an ellipsis.
func (r *Renderer) Excerpt(source []byte, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = DefaultExcerptLength
	}
	doc := r.md.Parser().Parse(text.NewReader(source))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch n.Kind() {
		case ast.KindHeading, ast.KindFencedCodeBlock, ast.KindCodeBlock, ast.KindHTMLBlock:
			return ast.WalkSkipChildren, nil
		}
		if !entering {
			if n.Type() == ast.TypeBlock {
				b.WriteByte(' ')
			}
			return ast.WalkContinue, nil
		}
		if t, ok := n.(*ast.Text); ok {
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})

	return truncate(strings.Join(strings.Fields(b.String()), " "), maxRunes)
}

func truncate(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	cut := []rune(s)[:maxRunes]
	if i := strings.LastIndexByte(string(cut), ' '); i > 0 {
		return strings.TrimRight(string(cut)[:i], ",;:.") + "…"
	}
	return string(cut) + "…"
}
