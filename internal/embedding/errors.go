package embedding

import (
	"errors"
	"fmt"
)

var (
	ErrEmbeddingFailed = errors.New("embedding failed")
	ErrEmptyText       = errors.New("embedding text is empty")
)

// APIError carries the provider's HTTP status and diagnostic body.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Body)
}
