package index_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/datasage-ai/membank-go/pkg/index"
)

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, index.CosineSimilarity([]float64{1, 2, 3}, []float64{1, 2, 3}), 1e-9)
	assert.InDelta(t, 0.0, index.CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, index.CosineSimilarity([]float64{1, 0}, []float64{-1, 0}), 1e-9)
}

func TestCosineSimilarityEdgeCases(t *testing.T) {
	// Zero-norm vectors score 0 instead of dividing by zero
	assert.Equal(t, 0.0, index.CosineSimilarity([]float64{0, 0}, []float64{1, 1}))
	assert.Equal(t, 0.0, index.CosineSimilarity([]float64{1, 1}, []float64{0, 0}))

	// Dimension mismatch scores 0
	assert.Equal(t, 0.0, index.CosineSimilarity([]float64{1, 2}, []float64{1, 2, 3}))
}

func TestSearchOrdering(t *testing.T) {
	ix := index.New()
	ix.Add("a", []float64{1, 0})
	ix.Add("b", []float64{0.9, 0.1})
	ix.Add("c", []float64{0, 1})

	hits := ix.Search([]float64{1, 0}, nil)
	assert.Len(t, hits, 3)
	assert.Equal(t, "a", hits[0].ID)
	assert.Equal(t, "b", hits[1].ID)
	assert.Equal(t, "c", hits[2].ID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-9)
}

func TestSearchTieBreak(t *testing.T) {
	ix := index.New()
	ix.Add("z", []float64{1, 0})
	ix.Add("a", []float64{1, 0})
	ix.Add("m", []float64{1, 0})

	// Equal similarity resolves by ascending id
	hits := ix.Search([]float64{1, 0}, nil)
	assert.Equal(t, []string{"a", "m", "z"}, []string{hits[0].ID, hits[1].ID, hits[2].ID})
}

func TestSearchCandidateRestriction(t *testing.T) {
	ix := index.New()
	ix.Add("a", []float64{1, 0})
	ix.Add("b", []float64{1, 0})
	ix.Add("c", []float64{1, 0})

	hits := ix.Search([]float64{1, 0}, []string{"b", "c", "missing"})
	assert.Len(t, hits, 2)
	for _, hit := range hits {
		assert.NotEqual(t, "a", hit.ID)
	}
}

func TestSearchEmptyCandidates(t *testing.T) {
	ix := index.New()
	ix.Add("a", []float64{1, 0})

	hits := ix.Search([]float64{1, 0}, []string{})
	assert.Empty(t, hits)
}

func TestUpdateReplacesVector(t *testing.T) {
	ix := index.New()
	ix.Add("a", []float64{1, 0})
	ix.Update("a", []float64{0, 1})

	hits := ix.Search([]float64{0, 1}, nil)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-9)
}

func TestDelete(t *testing.T) {
	ix := index.New()
	ix.Add("a", []float64{1, 0})

	assert.True(t, ix.Delete("a"))
	assert.False(t, ix.Delete("a"))
	assert.Equal(t, 0, ix.Len())
	assert.Empty(t, ix.Search([]float64{1, 0}, nil))
}

func TestGetReturnsCopy(t *testing.T) {
	ix := index.New()
	ix.Add("a", []float64{1, 2})

	v, ok := ix.Get("a")
	assert.True(t, ok)
	v[0] = 99

	again, _ := ix.Get("a")
	assert.Equal(t, []float64{1, 2}, again)
}
