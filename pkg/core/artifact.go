package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// previewRowBudget caps the serialized length of each row in a preview.
const previewRowBudget = 100

// ArtifactMemory is the data-artifact policy over a shared Manager.
//
// Artifacts are derived data (query result tables, visualizations) whose
// payloads can be large and repetitive, so the policy diverges from
// conversation memories in two ways: repeated content is deduplicated by a
// digest of the canonicalized payload, and the embedding source is a short
// summary rather than the payload itself.
type ArtifactMemory struct {
	manager *Manager
}

// NewArtifactMemory creates the artifact policy over a manager.
// Multiple policies may share one manager instance.
func NewArtifactMemory(manager *Manager) *ArtifactMemory {
	return &ArtifactMemory{manager: manager}
}

// Store stores a data artifact and returns its id.
//
// The method:
//  1. Canonicalizes dataContent (strings pass through, everything else is
//     JSON-encoded) and hashes it
//  2. Returns the existing id unchanged if the user already stored this
//     content; no new embedding or record is created
//  3. Synthesizes a summary from the data type when none was supplied
//  4. Embeds the summary, never the raw payload, and delegates to the
//     manager with the content hash attached
//
// Storing identical content twice for the same user returns the same id
// both times, even under concurrent calls: the metadata store's guarded
// insert closes the lookup-then-insert race.
func (a *ArtifactMemory) Store(ctx context.Context, dataContent interface{}, userID string, opts ...StoreOption) (string, error) {
	if userID == "" {
		return "", NewMemoryError("Store", ErrInvalidInput)
	}

	content, err := canonicalContent(dataContent)
	if err != nil {
		return "", NewMemoryError("Store", fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}

	digest := sha256.Sum256([]byte(content))
	contentHash := hex.EncodeToString(digest[:])

	existing, err := a.manager.store.Query(ctx, map[string]interface{}{
		"user_id":      userID,
		"content_hash": contentHash,
	})
	if err != nil {
		return "", NewMemoryError("Store", err)
	}
	for id := range existing {
		return id, nil
	}

	o := applyStoreOptions(opts)
	summary := o.Summary
	if summary == "" {
		summary = synthesizeSummary(content, o.DataType)
	}

	opts = append(opts,
		WithKind(KindArtifact),
		WithContentHash(contentHash),
		WithSummary(summary),
		WithEmbedText(summary),
	)
	return a.manager.Store(ctx, content, userID, opts...)
}

// Retrieve returns the user's artifacts ranked by blended score.
func (a *ArtifactMemory) Retrieve(ctx context.Context, query, userID string, opts ...RetrieveOption) ([]*Result, error) {
	opts = append(opts, WithKindFilter(KindArtifact))
	return a.manager.Retrieve(ctx, query, userID, opts...)
}

// Update merges fields into an artifact record. See Manager.Update.
func (a *ArtifactMemory) Update(ctx context.Context, id string, updates map[string]interface{}) (bool, error) {
	return a.manager.Update(ctx, id, updates)
}

// Delete removes an artifact record. See Manager.Delete.
func (a *ArtifactMemory) Delete(ctx context.Context, id string) (bool, error) {
	return a.manager.Delete(ctx, id)
}

// GetPreview returns a bounded textual rendering of a tabular artifact.
//
// At most maxRows rows are rendered (default 5) and each row's serialized
// form is truncated to a fixed character budget. Missing records and
// unsupported data types yield fixed sentinel strings; the method never
// returns an error.
func (a *ArtifactMemory) GetPreview(ctx context.Context, id string, maxRows int) string {
	if maxRows <= 0 {
		maxRows = 5
	}

	record, err := a.manager.store.Get(ctx, id)
	if err != nil || record == nil {
		return "Data preview unavailable"
	}

	if record.DataType == "table" {
		var rows []interface{}
		if err := json.Unmarshal([]byte(record.Content), &rows); err == nil && len(rows) > 0 {
			shown := len(rows)
			if shown > maxRows {
				shown = maxRows
			}
			preview := fmt.Sprintf("Table preview (%d of %d rows):\n", shown, len(rows))
			for i := 0; i < shown; i++ {
				rowJSON, err := json.Marshal(rows[i])
				if err != nil {
					continue
				}
				preview += fmt.Sprintf("Row %d: %s\n", i+1, truncate(string(rowJSON), previewRowBudget))
			}
			return preview
		}
	}

	dataType := record.DataType
	if dataType == "" {
		dataType = "unknown"
	}
	return fmt.Sprintf("Preview for %s not available", dataType)
}

// canonicalContent converts artifact content to its canonical string form.
// Strings and byte slices pass through; any other value is JSON-encoded,
// which gives map keys a deterministic order.
func canonicalContent(dataContent interface{}) (string, error) {
	switch v := dataContent.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(encoded), nil
	}
}

// synthesizeSummary derives a summary from the payload shape when the
// caller supplied none.
func synthesizeSummary(content, dataType string) string {
	switch dataType {
	case "table":
		var rows []map[string]interface{}
		if err := json.Unmarshal([]byte(content), &rows); err == nil && len(rows) > 0 {
			return fmt.Sprintf("Table with %d rows and %d columns", len(rows), len(rows[0]))
		}
	case "network_diagram":
		var graph struct {
			Nodes []interface{} `json:"nodes"`
			Edges []interface{} `json:"edges"`
		}
		if err := json.Unmarshal([]byte(content), &graph); err == nil {
			return fmt.Sprintf("Network diagram with %d nodes and %d connections", len(graph.Nodes), len(graph.Edges))
		}
	}

	if dataType == "" {
		dataType = "unknown"
	}
	return fmt.Sprintf("Data artifact of type %s", dataType)
}

func truncate(s string, budget int) string {
	if len(s) <= budget {
		return s
	}
	return s[:budget] + "..."
}
