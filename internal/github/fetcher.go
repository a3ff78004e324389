package github

import (
	"context"
	"fmt"

	"github.com/google/go-github/v81/github"
)

// FetchedFile is a single file read from a repository.
type FetchedFile struct {
	Path    string
	Content string
	SHA     string // Git blob SHA
	URL     string // raw.githubusercontent.com URL
}

// Fetcher reads files from GitHub repositories.
type Fetcher struct {
	client *Client
}

// NewFetcher creates a new file fetcher
func NewFetcher(client *Client) *Fetcher {
	return &Fetcher{client: client}
}

// FetchFile downloads one file. An empty ref means the default branch.
func (f *Fetcher) FetchFile(ctx context.Context, owner, repo, path, ref string) (*FetchedFile, error) {
	var opts *github.RepositoryContentGetOptions
	if ref != "" {
		opts = &github.RepositoryContentGetOptions{Ref: ref}
	}

	fileContent, _, _, err := f.client.Repositories.GetContents(ctx, owner, repo, path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get content of %s/%s/%s: %w", owner, repo, path, err)
	}
	if fileContent == nil {
		return nil, fmt.Errorf("%s/%s/%s is not a file", owner, repo, path)
	}

	content, err := fileContent.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode content of %s: %w", path, err)
	}

	branch := ref
	if branch == "" {
		branch = "main"
	}

	return &FetchedFile{
		Path:    path,
		Content: content,
		SHA:     fileContent.GetSHA(),
		URL:     fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s/%s", owner, repo, branch, path),
	}, nil
}
