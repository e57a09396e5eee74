// Package core provides the memory manager and the conversation/artifact
// policies layered on top of it.
package core

import "time"

// Kind values for Record.Kind.
const (
	// KindConversation marks a dialogue memory.
	KindConversation = "conversation"

	// KindArtifact marks a derived data artifact (table, visualization, ...).
	KindArtifact = "artifact"
)

// Record represents a single memory stored in the system.
//
// A record contains:
//   - Content: the text content or serialized payload
//   - Embedding: vector representation for similarity search
//   - RelevanceScore: stored relevance in [0, 1], decayed over time
//   - AccessCount / LastAccessedAt: reinforcement state
//
// Example:
//
//	record := &core.Record{
//	    ID:      "2iVXq8p1",
//	    UserID:  "user_001",
//	    Kind:    core.KindConversation,
//	    Content: "Show sales by region for Q1",
//	}
type Record struct {
	// ID is the unique identifier of the record, immutable once assigned.
	ID string `json:"id"`

	// UserID identifies the user who owns this record.
	UserID string `json:"user_id"`

	// Kind is either KindConversation or KindArtifact.
	Kind string `json:"kind"`

	// Content is the text content or serialized payload.
	Content string `json:"content"`

	// Summary is a human-readable description. For artifacts it is the
	// embedding source instead of the raw payload, which keeps embeddings
	// bounded and meaningful for large payloads.
	Summary string `json:"summary,omitempty"`

	// DataType describes an artifact payload (e.g. "table", "network_diagram").
	DataType string `json:"data_type,omitempty"`

	// LinkedMemoryID is an optional back-reference from an artifact to the
	// conversation memory that produced it.
	LinkedMemoryID string `json:"linked_memory_id,omitempty"`

	// ContentHash is the digest of canonicalized content, present only for
	// artifacts. At most one record exists per (UserID, ContentHash) pair.
	ContentHash string `json:"content_hash,omitempty"`

	// Embedding is the vector embedding for similarity search.
	// Omitted from JSON to reduce payload size.
	Embedding []float64 `json:"embedding,omitempty"`

	// Metadata contains additional structured information about the record.
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// CreatedAt is when the record was created.
	CreatedAt time.Time `json:"created_at"`

	// LastAccessedAt is when the record was last accessed (reinforced).
	LastAccessedAt time.Time `json:"last_accessed_at"`

	// DecayedAt is when a decay write-back last ran (nil if never).
	// Retrieval-time decay starts from this point when set, so an eager
	// write-back never compounds with the lazy calculation.
	DecayedAt *time.Time `json:"decayed_at,omitempty"`

	// RelevanceScore is the stored relevance in [0, 1], initialized to 1.0.
	RelevanceScore float64 `json:"relevance_score"`

	// AccessCount is the number of times the record was reinforced.
	AccessCount int `json:"access_count"`
}

// DecayBase returns the point in time the stored relevance score was last
// written: the last decay write-back, or creation if none ever ran.
func (r *Record) DecayBase() time.Time {
	if r.DecayedAt != nil {
		return *r.DecayedAt
	}
	return r.CreatedAt
}

// MemoryType returns the caller-supplied memory type attribute, defaulting
// to "conversation".
func (r *Record) MemoryType() string {
	if r.Metadata != nil {
		if t, ok := r.Metadata["memory_type"].(string); ok && t != "" {
			return t
		}
	}
	return "conversation"
}

// Result is one retrieval result: a record together with its raw cosine
// similarity and the blended score it was ranked by.
type Result struct {
	// Record is the matching record.
	Record *Record `json:"record"`

	// Similarity is the cosine similarity between the query and the record.
	Similarity float64 `json:"similarity"`

	// Score is the blended rank key: (decayed relevance + similarity) / 2.
	Score float64 `json:"score"`
}
