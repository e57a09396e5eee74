// Package memory provides an in-process implementation of the metadata store.
//
// It is the default backend for tests and single-process deployments that do
// not need session continuity across restarts. A secondary index over
// (user_id, content_hash) makes the guarded insert used by artifact
// deduplication a constant-time check.
package memory

import (
	"context"
	"sync"

	"github.com/datasage-ai/membank-go/pkg/metastore"
)

// Store implements metastore.Store backed by in-process maps.
type Store struct {
	mu      sync.RWMutex
	records map[string]*metastore.Record

	// byHash maps user_id + "\x00" + content_hash to a record ID, for
	// records that carry a content hash.
	byHash map[string]string
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		records: make(map[string]*metastore.Record),
		byHash:  make(map[string]string),
	}
}

// Get retrieves a record by ID. Returns (nil, nil) when absent.
func (s *Store) Get(ctx context.Context, id string) (*metastore.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.records[id].Clone(), nil
}

// Insert inserts a record unless its ID or (user_id, content_hash) pair
// already exists. The check and the write happen under one lock, so two
// concurrent inserts of identical artifact content cannot both succeed.
func (s *Store) Insert(ctx context.Context, record *metastore.Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[record.ID]; ok {
		return false, nil
	}
	key := hashKey(record)
	if key != "" {
		if _, ok := s.byHash[key]; ok {
			return false, nil
		}
	}

	s.records[record.ID] = record.Clone()
	if key != "" {
		s.byHash[key] = record.ID
	}
	return true, nil
}

// Set upserts a record, replacing any existing one with the same ID.
func (s *Store) Set(ctx context.Context, record *metastore.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.records[record.ID]; ok {
		if key := hashKey(old); key != "" {
			delete(s.byHash, key)
		}
	}
	s.records[record.ID] = record.Clone()
	if key := hashKey(record); key != "" {
		s.byHash[key] = record.ID
	}
	return nil
}

// Delete removes a record by ID. Returns true if a record was removed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return false, nil
	}
	delete(s.records, id)
	if key := hashKey(record); key != "" {
		delete(s.byHash, key)
	}
	return true, nil
}

// Query returns every record matching all filter equalities, keyed by ID.
func (s *Store) Query(ctx context.Context, filters map[string]interface{}) (map[string]*metastore.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*metastore.Record)
	for id, record := range s.records {
		if metastore.Matches(record, filters) {
			out[id] = record.Clone()
		}
	}
	return out, nil
}

// All returns every record in the store.
func (s *Store) All(ctx context.Context) ([]*metastore.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*metastore.Record, 0, len(s.records))
	for _, record := range s.records {
		out = append(out, record.Clone())
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

func hashKey(r *metastore.Record) string {
	if r.ContentHash == "" {
		return ""
	}
	return r.UserID + "\x00" + r.ContentHash
}
