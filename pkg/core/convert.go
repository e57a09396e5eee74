package core

import (
	"time"

	"github.com/datasage-ai/membank-go/pkg/metastore"
)

// toStoreRecord converts a core.Record to a metastore.Record.
func toStoreRecord(r *Record) *metastore.Record {
	if r == nil {
		return nil
	}
	return &metastore.Record{
		ID:             r.ID,
		UserID:         r.UserID,
		Kind:           r.Kind,
		Content:        r.Content,
		Summary:        r.Summary,
		DataType:       r.DataType,
		LinkedMemoryID: r.LinkedMemoryID,
		ContentHash:    r.ContentHash,
		Embedding:      r.Embedding,
		Metadata:       r.Metadata,
		CreatedAt:      r.CreatedAt,
		LastAccessedAt: r.LastAccessedAt,
		DecayedAt:      r.DecayedAt,
		RelevanceScore: r.RelevanceScore,
		AccessCount:    r.AccessCount,
	}
}

// fromStoreRecord converts a metastore.Record to a core.Record.
func fromStoreRecord(r *metastore.Record) *Record {
	if r == nil {
		return nil
	}
	return &Record{
		ID:             r.ID,
		UserID:         r.UserID,
		Kind:           r.Kind,
		Content:        r.Content,
		Summary:        r.Summary,
		DataType:       r.DataType,
		LinkedMemoryID: r.LinkedMemoryID,
		ContentHash:    r.ContentHash,
		Embedding:      r.Embedding,
		Metadata:       r.Metadata,
		CreatedAt:      r.CreatedAt,
		LastAccessedAt: r.LastAccessedAt,
		DecayedAt:      r.DecayedAt,
		RelevanceScore: r.RelevanceScore,
		AccessCount:    r.AccessCount,
	}
}

// storeDecayBase mirrors Record.DecayBase for the storage-side type.
func storeDecayBase(r *metastore.Record) (base time.Time) {
	if r.DecayedAt != nil {
		return *r.DecayedAt
	}
	return r.CreatedAt
}
