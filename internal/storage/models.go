package storage

import (
	"fmt"
	"time"
)

// Category classifies a knowledge article. It is not used for ranking.
type Category string

const (
	CategorySoil           Category = "soil"
	CategoryPlanting       Category = "planting"
	CategoryWater          Category = "water"
	CategoryInsectsDisease Category = "insects_disease"
	CategoryHarvestStorage Category = "harvest_storage"
	CategoryGoToMarket     Category = "go_to_market"
	CategorySeedProducts   Category = "seed_products"
)

var categoryLabels = map[Category]string{
	CategorySoil:           "Soil",
	CategoryPlanting:       "Planting",
	CategoryWater:          "Water",
	CategoryInsectsDisease: "Insects & Disease",
	CategoryHarvestStorage: "Harvest & Storage",
	CategoryGoToMarket:     "Go to Market",
	CategorySeedProducts:   "Seed Products",
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label returns the human readable badge text for the category.
func (c Category) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return string(c)
}

// ParseCategory converts a raw string into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

// Article is a knowledge base entry with its precomputed embedding.
// Articles are written once by the seeder and are read-only afterwards.
type Article struct {
	ID        string    // UUID, assigned at insertion
	Title     string    // Short human-authored title
	Content   string    // Markdown body
	Category  Category  // Classification only
	Source    string    // Attribution, e.g. "Todd Field Guide" (optional)
	Embedding []float32 // Vector of EmbeddingText(Title, Content)
	CreatedAt time.Time
}

// EmbeddingText is the exact text an article's embedding is computed from.
// Changing either field means the embedding must be recomputed.
func EmbeddingText(title, content string) string {
	return title + " " + content
}

// ScoredArticle is a search hit with its cosine similarity to the query.
type ScoredArticle struct {
	Article *Article
	Score   float64
}

// TableName is the Postgres table and Qdrant collection holding articles.
const TableName = "knowledge_articles"

// DefaultVectorDimension matches Gemini text-embedding-004.
const DefaultVectorDimension = 768

// DefaultLimit is the top-K used when a caller passes a non-positive limit.
const DefaultLimit = 5
