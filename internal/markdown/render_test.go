package markdown

import (
	"strings"
	"testing"
	"unicode/utf8"
)

const phArticle = `## Why pH matters

Soil pH controls how available nutrients are to plant roots. Most field crops
perform best between **pH 6.0 and 7.0**.

## Testing

Sample the top 15 cm of soil.

### Lab choice

Use an accredited lab.

## Correcting acidity

Apply agricultural lime.
`

// TestRender_Outline tests that H2 and H3 headings become a nested outline.
func TestRender_Outline(t *testing.T) {
	doc, err := NewRenderer().Render([]byte(phArticle))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if len(doc.Outline) != 3 {
		t.Fatalf("Expected 3 top-level headings, got %d", len(doc.Outline))
	}

	wantIDs := []string{"why-ph-matters", "testing", "correcting-acidity"}
	for i, id := range wantIDs {
		if doc.Outline[i].ID != id {
			t.Errorf("Heading %d ID: expected %q, got %q", i, id, doc.Outline[i].ID)
		}
		if doc.Outline[i].Level != 2 {
			t.Errorf("Heading %d level: expected 2, got %d", i, doc.Outline[i].Level)
		}
	}

	section := doc.Outline[1]
	if len(section.Items) != 1 || section.Items[0].Title != "Lab choice" || section.Items[0].Level != 3 {
		t.Errorf("Expected nested H3 'Lab choice', got %+v", section.Items)
	}
}

// TestRender_HTML tests heading anchors and emphasis in the rendered body.
func TestRender_HTML(t *testing.T) {
	doc, err := NewRenderer().Render([]byte(phArticle))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	for _, want := range []string{
		`<h2 id="why-ph-matters">Why pH matters</h2>`,
		`<strong>pH 6.0 and 7.0</strong>`,
	} {
		if !strings.Contains(doc.HTML, want) {
			t.Errorf("HTML missing %q", want)
		}
	}
}

// TestRender_EscapesRawHTML verifies article bodies cannot inject markup.
func TestRender_EscapesRawHTML(t *testing.T) {
	doc, err := NewRenderer().Render([]byte("Hello <script>alert(1)</script> world\n"))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if strings.Contains(doc.HTML, "<script>") {
		t.Errorf("Raw HTML was passed through: %s", doc.HTML)
	}
}

// TestRender_NoHeadings tests that plain prose has an empty outline.
func TestRender_NoHeadings(t *testing.T) {
	doc, err := NewRenderer().Render([]byte("Just a paragraph.\n"))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if len(doc.Outline) != 0 {
		t.Errorf("Expected no outline, got %+v", doc.Outline)
	}
}

func TestExcerpt_SkipsHeadingsAndMarkup(t *testing.T) {
	got := NewRenderer().Excerpt([]byte(phArticle), 1000)

	if !strings.HasPrefix(got, "Soil pH controls how available nutrients") {
		t.Errorf("Excerpt should start with the first paragraph, got %q", got)
	}
	if strings.Contains(got, "Why pH matters") || strings.Contains(got, "#") {
		t.Errorf("Excerpt should not include headings, got %q", got)
	}
	if strings.Contains(got, "**") {
		t.Errorf("Excerpt should not include emphasis markers, got %q", got)
	}
	if !strings.Contains(got, "plant roots. Most field crops perform") {
		t.Errorf("Soft line breaks should become spaces, got %q", got)
	}
}

func TestExcerpt_Truncates(t *testing.T) {
	got := NewRenderer().Excerpt([]byte(phArticle), 40)

	if !strings.HasSuffix(got, "…") {
		t.Errorf("Truncated excerpt should end with an ellipsis, got %q", got)
	}
	if n := utf8.RuneCountInString(got); n > 41 {
		t.Errorf("Excerpt too long: %d runes", n)
	}
	if strings.Contains(got, " …") {
		t.Errorf("Excerpt should cut on a word boundary, got %q", got)
	}
}

func TestExcerpt_ShortTextUnchanged(t *testing.T) {
	got := NewRenderer().Excerpt([]byte("Lime early."), 0)
	if got != "Lime early." {
		t.Errorf("Expected unchanged text, got %q", got)
	}
}
