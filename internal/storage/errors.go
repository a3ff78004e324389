package storage

import "errors"

var (
	ErrStoreUnreachable  = errors.New("article store unreachable")
	ErrArticleNotFound   = errors.New("article not found")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrUnknownCategory   = errors.New("unknown article category")
	ErrDegenerateVector  = errors.New("embedding has zero norm or non-finite values")
)
