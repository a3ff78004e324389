// Package embeddingtest provides a deterministic Embedder for tests.
package embeddingtest

import (
	"context"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/toddagriscience/todd-kb/internal/embedding"
)

// FieldGuideVocabulary is a small keyword space that separates the built-in
// field guide articles well enough for ranking tests.
var FieldGuideVocabulary = []string{
	"soil", "ph", "lime", "water", "corn", "seed", "grain", "disease", "market", "irrigation",
}

// Fake embeds text as a bag of keywords: dimension i is 1 when
// Vocabulary[i] occurs as a word in the text. Text without any keyword maps
// to the zero vector.
type Fake struct {
	Vocabulary []string

	// Err, when set, is returned by every call.
	Err error
	// Before, when set, runs at the start of every call. A non-nil return
	// aborts the call with that error.
	Before func(ctx context.Context, text string) error

	calls atomic.Int64
}

var _ embedding.Embedder = (*Fake)(nil)

// NewFake returns a Fake over FieldGuideVocabulary.
func NewFake() *Fake {
	return &Fake{Vocabulary: FieldGuideVocabulary}
}

// Calls reports how many times Embed was called.
func (f *Fake) Calls() int64 { return f.calls.Load() }

func (f *Fake) Dimension() int { return len(f.Vocabulary) }

func (f *Fake) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls.Add(1)
	if f.Before != nil {
		if err := f.Before(ctx, text); err != nil {
			return nil, err
		}
	}
	if f.Err != nil {
		return nil, f.Err
	}
	if strings.TrimSpace(text) == "" {
		return nil, embedding.ErrEmptyText
	}

	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	}) {
		words[w] = true
	}

	vec := make([]float32, len(f.Vocabulary))
	for i, keyword := range f.Vocabulary {
		if words[keyword] {
			vec[i] = 1
		}
	}
	return vec, nil
}
