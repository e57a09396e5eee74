// Package mock provides a deterministic, offline embedding provider.
//
// It hashes whitespace-separated tokens into a fixed number of buckets and
// L2-normalizes the counts. Identical texts embed identically (similarity
// 1.0), texts sharing tokens have positive similarity, and no network or
// model download is involved, which makes it the provider used in tests.
package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// DefaultDimensions is the bucket count used when none is configured.
const DefaultDimensions = 256

// Embedder is a deterministic bag-of-words embedding provider.
// It implements the embedder.Provider interface.
type Embedder struct {
	dimensions int
}

// New creates a mock embedder with DefaultDimensions buckets.
func New() *Embedder {
	return NewWithDimensions(DefaultDimensions)
}

// NewWithDimensions creates a mock embedder with a custom bucket count.
func NewWithDimensions(dimensions int) *Embedder {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &Embedder{dimensions: dimensions}
}

// Embed creates a deterministic embedding from text.
//
// Tokens are lowercased, stripped of surrounding punctuation, hashed into
// buckets, counted, and the resulting vector is normalized to unit length.
// Bucket counts are non-negative, so any two embeddings have similarity
// in [0, 1].
func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float64, e.dimensions)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		token = strings.Trim(token, ".,;:!?\"'()[]{}")
		if token == "" {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		vec[int(h.Sum32())%e.dimensions]++
	}

	return normalize(vec), nil
}

// EmbedBatch embeds each text independently.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the embedding size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the mock holds no resources.
func (e *Embedder) Close() error {
	return nil
}

func normalize(vec []float64) []float64 {
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}
