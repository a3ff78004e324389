// Package catalog loads the static list of knowledge articles used to seed the
// article store.
package catalog

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/toddagriscience/todd-kb/internal/github"
	"github.com/toddagriscience/todd-kb/internal/storage"
)

//go:embed field_guide.yaml
var fieldGuide []byte

// DefaultLocation names the catalog compiled into the binary.
const DefaultLocation = "builtin"

var ErrInvalidEntry = errors.New("invalid catalog entry")

// Entry is one article before it has been embedded.
type Entry struct {
	Title    string           `yaml:"title"`
	Content  string           `yaml:"content"`
	Category storage.Category `yaml:"category"`
	Source   string           `yaml:"source"`
}

type document struct {
	Articles []Entry `yaml:"articles"`
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) ([]Entry, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	seen := make(map[string]bool, len(doc.Articles))
	entries := make([]Entry, 0, len(doc.Articles))
	for i, e := range doc.Articles {
		e.Title = strings.TrimSpace(e.Title)
		e.Content = strings.TrimSpace(e.Content)
		e.Source = strings.TrimSpace(e.Source)

		switch {
		case e.Title == "":
			return nil, fmt.Errorf("%w: entry %d has no title", ErrInvalidEntry, i)
		case e.Content == "":
			return nil, fmt.Errorf("%w: %q has no content", ErrInvalidEntry, e.Title)
		case !e.Category.Valid():
			return nil, fmt.Errorf("%w: %q has unknown category %q", ErrInvalidEntry, e.Title, e.Category)
		case seen[e.Title]:
			return nil, fmt.Errorf("%w: duplicate title %q", ErrInvalidEntry, e.Title)
		}
		seen[e.Title] = true
		entries = append(entries, e)
	}
	return entries, nil
}

// Default returns the built-in field guide catalog.
func Default() ([]Entry, error) {
	return Parse(fieldGuide)
}

// FileFetcher reads a file from a remote repository.
type FileFetcher interface {
	FetchFile(ctx context.Context, owner, repo, path, ref string) (*github.FetchedFile, error)
}

// Load resolves a catalog location:
//
//	builtin                              the embedded field guide
//	github://owner/repo/path/kb.yaml@ref a file in a GitHub repository
//	anything else                        a local file path
//
// remote may be nil when no GitHub locations are used.
func Load(ctx context.Context, location string, remote FileFetcher) ([]Entry, error) {
	switch {
	case location == "" || location == DefaultLocation:
		return Default()

	case strings.HasPrefix(location, "github://"):
		if remote == nil {
			return nil, fmt.Errorf("no GitHub client configured for %s", location)
		}
		owner, repo, path, ref, err := parseGitHubLocation(location)
		if err != nil {
			return nil, err
		}
		file, err := remote.FetchFile(ctx, owner, repo, path, ref)
		if err != nil {
			return nil, err
		}
		return Parse([]byte(file.Content))

	default:
		data, err := os.ReadFile(location)
		if err != nil {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
		return Parse(data)
	}
}

func parseGitHubLocation(location string) (owner, repo, path, ref string, err error) {
	rest := strings.TrimPrefix(location, "github://")
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest, ref = rest[:at], rest[at+1:]
	}

	parts := strings.SplitN(rest, "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", "", fmt.Errorf("invalid GitHub catalog location %q, want github://owner/repo/path[@ref]", location)
	}
	return parts[0], parts[1], parts[2], ref, nil
}
