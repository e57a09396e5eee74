// Package index provides an in-process vector index with exhaustive
// cosine-similarity search.
//
// The index holds one vector per record ID and ranks a bounded candidate set
// by similarity. There is no approximate indexing: callers pre-filter
// candidates by user and kind, which keeps the exhaustive scan small.
package index

import (
	"math"
	"sort"
	"sync"
)

// Hit is one search result: a record ID and its cosine similarity to the
// query vector.
type Hit struct {
	ID         string
	Similarity float64
}

// Index is a thread-safe in-memory vector index.
//
// Reads (Search, Get) may run concurrently; writes take the exclusive lock.
type Index struct {
	mu      sync.RWMutex
	vectors map[string][]float64
}

// New creates an empty index.
func New() *Index {
	return &Index{vectors: make(map[string][]float64)}
}

// Add stores a vector under the given ID, replacing any previous vector.
func (ix *Index) Add(id string, vector []float64) {
	v := make([]float64, len(vector))
	copy(v, vector)

	ix.mu.Lock()
	ix.vectors[id] = v
	ix.mu.Unlock()
}

// Update replaces the vector stored under the given ID.
func (ix *Index) Update(id string, vector []float64) {
	ix.Add(id, vector)
}

// Delete removes the vector stored under the given ID.
// Returns true if a vector existed.
func (ix *Index) Delete(id string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	_, ok := ix.vectors[id]
	delete(ix.vectors, id)
	return ok
}

// Get returns the vector stored under the given ID.
func (ix *Index) Get(id string) ([]float64, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	v, ok := ix.vectors[id]
	if !ok {
		return nil, false
	}
	cp := make([]float64, len(v))
	copy(cp, v)
	return cp, true
}

// Len returns the number of vectors in the index.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.vectors)
}

// Search ranks candidates by cosine similarity to the query vector,
// highest first, ties broken by ascending ID for determinism.
//
// If candidateIDs is nil, every vector in the index is scanned. Candidate
// IDs with no stored vector are skipped.
func (ix *Index) Search(query []float64, candidateIDs []string) []Hit {
	ix.mu.RLock()

	var hits []Hit
	if candidateIDs == nil {
		hits = make([]Hit, 0, len(ix.vectors))
		for id, v := range ix.vectors {
			hits = append(hits, Hit{ID: id, Similarity: CosineSimilarity(query, v)})
		}
	} else {
		hits = make([]Hit, 0, len(candidateIDs))
		for _, id := range candidateIDs {
			v, ok := ix.vectors[id]
			if !ok {
				continue
			}
			hits = append(hits, Hit{ID: id, Similarity: CosineSimilarity(query, v)})
		}
	}
	ix.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ID < hits[j].ID
	})
	return hits
}

// CosineSimilarity calculates the cosine similarity between two vectors.
//
// The formula is: similarity = (A · B) / (||A|| * ||B||)
//
// Returns 0.0 if the vectors have different dimensions or either has zero
// norm, so the function never divides by zero and never panics.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
