// Package metastore provides interfaces and types for memory metadata storage backends.
//
// It defines the Store interface that all storage implementations must satisfy,
// along with the Record type and equality-filter semantics shared by every backend.
package metastore

import (
	"context"
	"fmt"
	"time"
)

// Kind values for Record.Kind.
const (
	// KindConversation marks a dialogue memory.
	KindConversation = "conversation"

	// KindArtifact marks a derived data artifact (table, visualization, ...).
	KindArtifact = "artifact"
)

// Record represents one memory as persisted by a metadata store.
//
// This type is defined in the metastore package to avoid circular dependencies
// with the core package. It mirrors the core.Record structure.
type Record struct {
	// ID is the unique identifier of the record, immutable once assigned.
	ID string

	// UserID identifies the user who owns this record. All retrieval is
	// scoped to a single UserID.
	UserID string

	// Kind is either KindConversation or KindArtifact.
	Kind string

	// Content is the text content or serialized payload.
	Content string

	// Summary is a human-readable description. For artifacts it is the
	// embedding source instead of the raw payload.
	Summary string

	// DataType describes an artifact payload (e.g. "table", "network_diagram").
	DataType string

	// LinkedMemoryID is an optional back-reference from an artifact to the
	// conversation memory that produced it.
	LinkedMemoryID string

	// ContentHash is the digest of canonicalized content. Present only for
	// artifacts; empty for conversation records.
	ContentHash string

	// Embedding is the vector embedding, persisted so the in-process vector
	// index can be rebuilt after a restart.
	Embedding []float64

	// Metadata contains additional structured information.
	Metadata map[string]interface{}

	// CreatedAt is when the record was created.
	CreatedAt time.Time

	// LastAccessedAt is when the record was last accessed (reinforced).
	LastAccessedAt time.Time

	// DecayedAt is when a decay write-back last ran (nil if never).
	// Lazy decay at scoring time starts from this point when set.
	DecayedAt *time.Time

	// RelevanceScore is the stored relevance in [0, 1], initialized to 1.0.
	RelevanceScore float64

	// AccessCount is the number of times the record was reinforced.
	AccessCount int
}

// Clone returns a deep copy of the record. Stores hand out clones so callers
// can never mutate persisted state through a returned pointer.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	cp := *r
	if r.Embedding != nil {
		cp.Embedding = make([]float64, len(r.Embedding))
		copy(cp.Embedding, r.Embedding)
	}
	if r.Metadata != nil {
		cp.Metadata = make(map[string]interface{}, len(r.Metadata))
		for k, v := range r.Metadata {
			cp.Metadata[k] = v
		}
	}
	if r.DecayedAt != nil {
		t := *r.DecayedAt
		cp.DecayedAt = &t
	}
	return &cp
}

// FilterKeys lists the top-level fields that Query filters may match on.
// Filters with keys outside this set match nothing.
var FilterKeys = []string{"id", "user_id", "kind", "content_hash", "linked_memory_id", "data_type"}

// Store defines the interface for metadata storage backends.
//
// All implementations (memory, SQLite, PostgreSQL, MySQL) must satisfy it.
type Store interface {
	// Get retrieves a record by ID. Returns (nil, nil) when the record is
	// absent; an error only signals a backend failure.
	Get(ctx context.Context, id string) (*Record, error)

	// Insert inserts a record if neither its ID nor, for artifacts, its
	// (user_id, content_hash) pair already exists. Returns false when a
	// conflicting record was present and nothing was written.
	//
	// This guarded insert is what makes artifact deduplication safe under
	// concurrent writers: the lookup-then-insert race collapses into the
	// backend's uniqueness check.
	Insert(ctx context.Context, record *Record) (bool, error)

	// Set upserts a record, replacing it entirely if it exists.
	Set(ctx context.Context, record *Record) error

	// Delete removes a record by ID. Returns true if a record existed
	// and was removed.
	Delete(ctx context.Context, id string) (bool, error)

	// Query returns every record whose fields match all filter equalities
	// (AND semantics), keyed by ID. Zero matches yield an empty map, never
	// an error. See FilterKeys for the matchable fields.
	Query(ctx context.Context, filters map[string]interface{}) (map[string]*Record, error)

	// All returns every record in the store. Used to rebuild the vector
	// index on startup.
	All(ctx context.Context) ([]*Record, error)

	// Close closes the store and releases resources.
	Close() error
}

// FieldValue returns the value of a filterable top-level field.
// The second return is false for keys outside FilterKeys.
func FieldValue(r *Record, key string) (string, bool) {
	switch key {
	case "id":
		return r.ID, true
	case "user_id":
		return r.UserID, true
	case "kind":
		return r.Kind, true
	case "content_hash":
		return r.ContentHash, true
	case "linked_memory_id":
		return r.LinkedMemoryID, true
	case "data_type":
		return r.DataType, true
	default:
		return "", false
	}
}

// Matches reports whether a record satisfies all filter equalities.
// Non-string filter values are compared by their string form.
func Matches(r *Record, filters map[string]interface{}) bool {
	for key, want := range filters {
		have, ok := FieldValue(r, key)
		if !ok {
			return false
		}
		if have != filterString(want) {
			return false
		}
	}
	return true
}

func filterString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
