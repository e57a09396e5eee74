package mysql

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/datasage-ai/membank-go/pkg/metastore"
)

// recordColumns is the column list shared by every SELECT and INSERT.
const recordColumns = "id, user_id, kind, content, summary, data_type, linked_memory_id, content_hash, embedding, metadata, created_at, last_accessed_at, decayed_at, relevance_score, access_count"

// filterColumns maps metastore filter keys to table columns.
var filterColumns = map[string]string{
	"id":               "id",
	"user_id":          "user_id",
	"kind":             "kind",
	"content_hash":     "content_hash",
	"linked_memory_id": "linked_memory_id",
	"data_type":        "data_type",
}

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// recordArgs serializes a record into the VALUES order of recordColumns.
// An empty content hash becomes NULL; MySQL unique keys admit any number of
// NULLs, so conversation records never collide.
func recordArgs(r *metastore.Record) ([]interface{}, error) {
	embeddingJSON, err := json.Marshal(r.Embedding)
	if err != nil {
		return nil, err
	}
	metadataJSON, err := json.Marshal(r.Metadata)
	if err != nil {
		return nil, err
	}

	var contentHash interface{}
	if r.ContentHash != "" {
		contentHash = r.ContentHash
	}
	var decayedAt interface{}
	if r.DecayedAt != nil {
		decayedAt = *r.DecayedAt
	}

	return []interface{}{
		r.ID,
		r.UserID,
		r.Kind,
		r.Content,
		r.Summary,
		r.DataType,
		r.LinkedMemoryID,
		contentHash,
		string(embeddingJSON),
		string(metadataJSON),
		r.CreatedAt,
		r.LastAccessedAt,
		decayedAt,
		r.RelevanceScore,
		r.AccessCount,
	}, nil
}

// scanRecord reads one row in recordColumns order.
func scanRecord(row rowScanner) (*metastore.Record, error) {
	var (
		r             metastore.Record
		summary       sql.NullString
		dataType      sql.NullString
		linkedMemory  sql.NullString
		contentHash   sql.NullString
		metadataJSON  sql.NullString
		embeddingJSON string
		decayedAt     sql.NullTime
	)

	err := row.Scan(
		&r.ID,
		&r.UserID,
		&r.Kind,
		&r.Content,
		&summary,
		&dataType,
		&linkedMemory,
		&contentHash,
		&embeddingJSON,
		&metadataJSON,
		&r.CreatedAt,
		&r.LastAccessedAt,
		&decayedAt,
		&r.RelevanceScore,
		&r.AccessCount,
	)
	if err != nil {
		return nil, err
	}

	r.Summary = summary.String
	r.DataType = dataType.String
	r.LinkedMemoryID = linkedMemory.String
	r.ContentHash = contentHash.String
	if decayedAt.Valid {
		t := decayedAt.Time
		r.DecayedAt = &t
	}

	if err := json.Unmarshal([]byte(embeddingJSON), &r.Embedding); err != nil {
		return nil, fmt.Errorf("scanRecord: invalid embedding: %w", err)
	}
	if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "null" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &r.Metadata); err != nil {
			return nil, fmt.Errorf("scanRecord: invalid metadata: %w", err)
		}
	}

	return &r, nil
}

// buildWhereClause builds an AND-equality WHERE clause from filters.
// The third return is false when a filter key is not queryable.
func buildWhereClause(filters map[string]interface{}) (string, []interface{}, bool) {
	if len(filters) == 0 {
		return "", nil, true
	}

	var conditions []string
	var args []interface{}
	for key, value := range filters {
		column, ok := filterColumns[key]
		if !ok {
			return "", nil, false
		}
		conditions = append(conditions, column+" = ?")
		args = append(args, value)
	}

	return "WHERE " + strings.Join(conditions, " AND "), args, true
}
