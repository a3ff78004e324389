package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toddagriscience/todd-kb/internal/github"
	"github.com/toddagriscience/todd-kb/internal/storage"
)

func TestDefaultCatalog(t *testing.T) {
	entries, err := Default()
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	var found bool
	categories := make(map[storage.Category]bool)
	for _, e := range entries {
		categories[e.Category] = true
		if e.Title == "Understanding Soil pH for Crop Production" {
			found = true
			assert.Equal(t, storage.CategorySoil, e.Category)
			assert.Equal(t, "Todd Field Guide", e.Source)
		}
	}
	assert.True(t, found, "field guide must include the soil pH article")
	assert.Len(t, categories, 7, "every category should have at least one article")
}

func TestParse_Validation(t *testing.T) {
	cases := map[string]string{
		"missing title":   "articles:\n  - content: x\n    category: soil\n",
		"missing content": "articles:\n  - title: x\n    category: soil\n",
		"bad category":    "articles:\n  - title: x\n    content: y\n    category: weather\n",
		"duplicate":       "articles:\n  - {title: x, content: y, category: soil}\n  - {title: x, content: z, category: water}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.ErrorIs(t, err, ErrInvalidEntry)
		})
	}

	_, err := Parse([]byte("articles: [unclosed"))
	assert.Error(t, err)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.yaml")
	require.NoError(t, os.WriteFile(path, []byte("articles:\n  - {title: ' Drip ', content: Lines, category: water}\n"), 0o644))

	entries, err := Load(context.Background(), path, nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Drip", entries[0].Title)
}

type fakeFetcher struct {
	owner, repo, path, ref string
	content                string
}

func (f *fakeFetcher) FetchFile(_ context.Context, owner, repo, path, ref string) (*github.FetchedFile, error) {
	f.owner, f.repo, f.path, f.ref = owner, repo, path, ref
	return &github.FetchedFile{Path: path, Content: f.content}, nil
}

func TestLoad_GitHub(t *testing.T) {
	fetcher := &fakeFetcher{content: "articles:\n  - {title: Seed tags, content: Read them, category: seed_products}\n"}

	entries, err := Load(context.Background(), "github://todd/field-guide/catalog/kb.yaml@v2", fetcher)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "todd", fetcher.owner)
	assert.Equal(t, "field-guide", fetcher.repo)
	assert.Equal(t, "catalog/kb.yaml", fetcher.path)
	assert.Equal(t, "v2", fetcher.ref)

	_, err = Load(context.Background(), "github://todd/only-repo", fetcher)
	assert.Error(t, err)

	_, err = Load(context.Background(), "github://todd/field-guide/kb.yaml", nil)
	assert.Error(t, err)
}
