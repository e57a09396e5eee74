package mock_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datasage-ai/membank-go/pkg/embedder/mock"
)

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func TestEmbedDeterministic(t *testing.T) {
	e := mock.New()
	ctx := context.Background()

	first, err := e.Embed(ctx, "Show sales by region for Q1")
	require.NoError(t, err)
	second, err := e.Embed(ctx, "Show sales by region for Q1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, first, mock.DefaultDimensions)
}

func TestEmbedUnitNorm(t *testing.T) {
	e := mock.New()

	vec, err := e.Embed(context.Background(), "a few distinct words here")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, math.Sqrt(dot(vec, vec)), 1e-9)
}

func TestEmbedCaseAndPunctuationInsensitive(t *testing.T) {
	e := mock.New()
	ctx := context.Background()

	plain, err := e.Embed(ctx, "sales by region")
	require.NoError(t, err)
	shouty, err := e.Embed(ctx, "Sales, by region!")
	require.NoError(t, err)
	assert.Equal(t, plain, shouty)
}

func TestEmbedSharedTokensOverlap(t *testing.T) {
	e := mock.New()
	ctx := context.Background()

	a, err := e.Embed(ctx, "quarterly sales by region")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "sales by region")
	require.NoError(t, err)
	assert.Greater(t, dot(a, b), 0.5)
}

func TestEmbedEmptyText(t *testing.T) {
	e := mock.New()

	vec, err := e.Embed(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 0.0, dot(vec, vec))
}

func TestEmbedCancelledContext(t *testing.T) {
	e := mock.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Embed(ctx, "anything")
	assert.Error(t, err)
}

func TestEmbedBatch(t *testing.T) {
	e := mock.NewWithDimensions(64)

	vecs, err := e.EmbedBatch(context.Background(), []string{"one", "two", "three"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for _, vec := range vecs {
		assert.Len(t, vec, 64)
	}
	assert.Equal(t, 64, e.Dimensions())
}
