package storage

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scored(id string, score float64) ScoredArticle {
	return ScoredArticle{Article: &Article{ID: id, Title: "t-" + id}, Score: score}
}

func TestRankResults_DropsBelowThreshold(t *testing.T) {
	in := []ScoredArticle{
		scored("a", 0.91),
		scored("b", 0.49),
		scored("c", 0.50),
		scored("d", 0.12),
	}

	for _, limit := range []int{1, 2, 5, 100} {
		out := RankResults(in, limit, 0.5)
		for _, r := range out {
			assert.GreaterOrEqual(t, r.Score, 0.5, "limit %d returned %s", limit, r.Article.ID)
		}
	}
}

func TestRankResults_LimitAndOrdering(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var in []ScoredArticle
	for i := 0; i < 50; i++ {
		in = append(in, scored(fmt.Sprintf("id-%02d", i), rng.Float64()))
	}

	out := RankResults(in, 5, 0.2)
	require.Len(t, out, 5)
	for i := 1; i < len(out); i++ {
		assert.GreaterOrEqual(t, out[i-1].Score, out[i].Score)
	}
}

func TestRankResults_TiesBrokenByID(t *testing.T) {
	in := []ScoredArticle{
		scored("c", 0.8),
		scored("a", 0.8),
		scored("b", 0.8),
		scored("z", 0.9),
	}

	out := RankResults(in, 10, 0)
	require.Len(t, out, 4)
	ids := []string{out[0].Article.ID, out[1].Article.ID, out[2].Article.ID, out[3].Article.ID}
	assert.Equal(t, []string{"z", "a", "b", "c"}, ids)
}

func TestRankResults_EmptyIsNotNilError(t *testing.T) {
	out := RankResults([]ScoredArticle{scored("a", 0.1)}, 5, 0.5)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestRankResults_DefaultLimit(t *testing.T) {
	var in []ScoredArticle
	for i := 0; i < DefaultLimit+3; i++ {
		in = append(in, scored(fmt.Sprintf("%d", i), 0.9))
	}
	assert.Len(t, RankResults(in, 0, 0.5), DefaultLimit)
}

func TestRankResults_DropsNaNScores(t *testing.T) {
	out := RankResults([]ScoredArticle{
		scored("a", math.NaN()),
		scored("b", 0.1),
		scored("c", 0.7),
	}, 5, 0.5)
	require.Len(t, out, 1)
	assert.Equal(t, "c", out[0].Article.ID)

	assert.Empty(t, RankResults([]ScoredArticle{scored("a", math.NaN())}, 5, 0))
}

func TestValidateArticles(t *testing.T) {
	good := &Article{Title: "ok", Category: CategorySoil, Embedding: []float32{1, 0, 0, 0}}

	assert.NoError(t, validateArticles([]*Article{good}, 4))

	short := &Article{Title: "short", Category: CategorySoil, Embedding: []float32{1, 0, 0}}
	assert.ErrorIs(t, validateArticles([]*Article{good, short}, 4), ErrDimensionMismatch)

	badCategory := &Article{Title: "bad", Category: "weather", Embedding: []float32{1, 0, 0, 0}}
	assert.ErrorIs(t, validateArticles([]*Article{badCategory}, 4), ErrUnknownCategory)

	zero := &Article{Title: "zero", Category: CategorySoil, Embedding: make([]float32, 4)}
	assert.ErrorIs(t, validateArticles([]*Article{zero}, 4), ErrDegenerateVector)
}

func TestValidArticleID(t *testing.T) {
	assert.True(t, validArticleID("3f2b8c1e-6d4a-4e7b-9c1f-2a5d8e9b0c7d"))
	assert.False(t, validArticleID("no-such-id"))
	assert.False(t, validArticleID(""))
}

func TestCheckDimension_RejectsDegenerateVectors(t *testing.T) {
	tests := []struct {
		name string
		vec  []float32
		want error
	}{
		{"unit", []float32{0, 1, 0}, nil},
		{"wrong length", []float32{1, 0}, ErrDimensionMismatch},
		{"zero norm", []float32{0, 0, 0}, ErrDegenerateVector},
		{"nan", []float32{1, float32(math.NaN()), 0}, ErrDegenerateVector},
		{"inf", []float32{float32(math.Inf(1)), 0, 0}, ErrDegenerateVector},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkDimension("query", tt.vec, 3)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("insects_disease")
	require.NoError(t, err)
	assert.Equal(t, CategoryInsectsDisease, c)
	assert.Equal(t, "Insects & Disease", c.Label())

	_, err = ParseCategory("livestock")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestEmbeddingText(t *testing.T) {
	assert.Equal(t, "Soil pH Acidity matters.", EmbeddingText("Soil pH", "Acidity matters."))
}

func TestMigrationURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@db:5432/todd", migrationURL("postgres://u:p@db:5432/todd"))
	assert.Equal(t, "pgx5://u@db/todd?sslmode=disable", migrationURL("postgresql://u@db/todd?sslmode=disable"))
	assert.Equal(t, "pgx5://already", migrationURL("pgx5://already"))
}
