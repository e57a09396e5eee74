package core

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/datasage-ai/membank-go/pkg/embedder"
	"github.com/datasage-ai/membank-go/pkg/index"
	"github.com/datasage-ai/membank-go/pkg/metastore"
	"github.com/datasage-ai/membank-go/pkg/scoring"
)

// lockStripes is the number of per-id mutex stripes. Mutations on the same
// id always hash to the same stripe, so read-modify-write sequences on one
// record are serialized without a store-wide lock.
const lockStripes = 64

// defaultEmbedTimeout bounds each call to the embedding provider.
const defaultEmbedTimeout = 10 * time.Second

// Manager orchestrates the embedding provider, vector index, metadata store
// and scoring into the store/retrieve/update/delete surface shared by both
// memory kinds.
//
// The manager is safe for concurrent use. Retrieval reads run without locks
// against point-in-time snapshots of each candidate; mutations on the same
// record id are serialized through striped mutexes. Embedding calls always
// happen before any lock is taken and before any state is written, so a
// failed or timed-out embedding leaves the store untouched.
//
// Example usage:
//
//	manager, _ := core.NewManager(provider, store)
//	id, _ := manager.Store(ctx, "User prefers quarterly summaries", "user_001")
//	results, _ := manager.Retrieve(ctx, "summaries", "user_001")
type Manager struct {
	embedder embedder.Provider
	store    metastore.Store
	index    *index.Index

	// node generates collision-free record ids. Two calls within the same
	// clock tick must not collide, so ids are never derived from the wall
	// clock alone.
	node *snowflake.Node

	defaults     MemoryDefaults
	embedTimeout time.Duration

	locks [lockStripes]sync.Mutex
}

// ManagerOption configures a Manager at construction time.
type ManagerOption func(*Manager)

// WithDefaults replaces the manager's retrieval and reinforcement defaults.
func WithDefaults(defaults MemoryDefaults) ManagerOption {
	return func(m *Manager) {
		m.defaults = defaults
	}
}

// WithEmbedTimeout bounds each embedding provider call. Zero disables the
// bound.
func WithEmbedTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		m.embedTimeout = timeout
	}
}

// NewManager creates a memory manager over the given embedding provider and
// metadata store.
func NewManager(provider embedder.Provider, store metastore.Store, opts ...ManagerOption) (*Manager, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, NewMemoryError("NewManager", err)
	}

	m := &Manager{
		embedder:     provider,
		store:        store,
		index:        index.New(),
		node:         node,
		defaults:     DefaultMemoryDefaults(),
		embedTimeout: defaultEmbedTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Defaults returns the manager's retrieval and reinforcement defaults.
func (m *Manager) Defaults() MemoryDefaults {
	return m.defaults
}

// Store embeds content and persists a new record owned by userID.
//
// The method:
//  1. Embeds the content (or the EmbedText override) via the provider
//  2. Assigns a collision-free id
//  3. Inserts the record with relevance 1.0 and zero access count
//  4. Adds the vector to the index
//
// For artifact records carrying a content hash, a concurrent insert of
// identical content loses the store race and the pre-existing record's id is
// returned instead, so duplicate stores are idempotent.
//
// Returns ErrInvalidInput for an empty user id or blank content, and
// ErrEmbeddingFailed when the provider fails; neither mutates the store.
func (m *Manager) Store(ctx context.Context, content, userID string, opts ...StoreOption) (string, error) {
	if userID == "" || strings.TrimSpace(content) == "" {
		return "", NewMemoryError("Store", ErrInvalidInput)
	}

	o := applyStoreOptions(opts)

	embedText := o.EmbedText
	if embedText == "" {
		embedText = content
	}
	vector, err := m.embed(ctx, embedText)
	if err != nil {
		return "", NewMemoryError("Store", err)
	}

	now := time.Now().UTC()
	record := &metastore.Record{
		ID:             m.node.Generate().Base58(),
		UserID:         userID,
		Kind:           o.Kind,
		Content:        content,
		Summary:        o.Summary,
		DataType:       o.DataType,
		LinkedMemoryID: o.LinkedMemoryID,
		ContentHash:    o.ContentHash,
		Embedding:      vector,
		Metadata:       buildMetadata(o),
		CreatedAt:      now,
		LastAccessedAt: now,
		RelevanceScore: 1.0,
	}

	inserted, err := m.store.Insert(ctx, record)
	if err != nil {
		return "", NewMemoryError("Store", err)
	}
	if !inserted {
		// Snowflake ids do not collide, so the conflict is a concurrent
		// insert of the same (user, content hash); the winner's id is the
		// canonical one.
		if o.ContentHash != "" {
			existing, err := m.store.Query(ctx, map[string]interface{}{
				"user_id":      userID,
				"content_hash": o.ContentHash,
			})
			if err != nil {
				return "", NewMemoryError("Store", err)
			}
			for id := range existing {
				return id, nil
			}
		}
		return "", NewMemoryError("Store", ErrStorageOperation)
	}

	m.index.Add(record.ID, vector)
	return record.ID, nil
}

// Retrieve returns the records most relevant to the query for one user,
// ranked by the blended score of time-decayed relevance and cosine
// similarity.
//
// The method:
//  1. Embeds the query
//  2. Collects candidates scoped to userID (and kind, when filtered)
//  3. Scores each candidate: (decayed relevance + similarity) / 2
//  4. Drops candidates below the threshold (default 0.5)
//  5. Sorts by score descending, ties broken most-recent-first
//  6. Returns the first limit results (default 5)
//
// Zero matches yield an empty slice and a nil error.
func (m *Manager) Retrieve(ctx context.Context, query, userID string, opts ...RetrieveOption) ([]*Result, error) {
	if userID == "" {
		return nil, NewMemoryError("Retrieve", ErrInvalidInput)
	}

	o := applyRetrieveOptions(opts, m.defaults)

	queryVector, err := m.embed(ctx, query)
	if err != nil {
		return nil, NewMemoryError("Retrieve", err)
	}

	filters := map[string]interface{}{"user_id": userID}
	if o.Kind != "" {
		filters["kind"] = o.Kind
	}
	candidates, err := m.store.Query(ctx, filters)
	if err != nil {
		return nil, NewMemoryError("Retrieve", err)
	}

	candidateIDs := make([]string, 0, len(candidates))
	for id := range candidates {
		candidateIDs = append(candidateIDs, id)
	}
	hits := m.index.Search(queryVector, candidateIDs)

	now := time.Now().UTC()
	results := make([]*Result, 0, len(hits))
	for _, hit := range hits {
		record := candidates[hit.ID]
		score := scoring.Score(record.RelevanceScore, storeDecayBase(record), now, o.DecayRate, hit.Similarity)
		if score < o.Threshold {
			continue
		}
		results = append(results, &Result{
			Record:     fromStoreRecord(record),
			Similarity: hit.Similarity,
			Score:      score,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if !results[i].Record.CreatedAt.Equal(results[j].Record.CreatedAt) {
			return results[i].Record.CreatedAt.After(results[j].Record.CreatedAt)
		}
		return results[i].Record.ID < results[j].Record.ID
	})

	if len(results) > o.Limit {
		results = results[:o.Limit]
	}
	return results, nil
}

// Get retrieves a record by its id.
//
// Returns ErrNotFound (wrapped) when the id is unknown.
func (m *Manager) Get(ctx context.Context, id string) (*Record, error) {
	record, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, NewMemoryError("Get", err)
	}
	if record == nil {
		return nil, NewMemoryError("Get", ErrNotFound)
	}
	return fromStoreRecord(record), nil
}

// Update merges fields into the stored record. If "content" is among the
// updates the embedding is recomputed and replaced.
//
// Recognized keys: content, summary, data_type, relevance_score (clamped to
// [0, 1]); any other key is merged into the record's metadata.
//
// Returns (false, nil) when the id is unknown; the update is a no-op.
func (m *Manager) Update(ctx context.Context, id string, updates map[string]interface{}) (bool, error) {
	if id == "" || len(updates) == 0 {
		return false, nil
	}

	// Embed before taking the lock, so a provider failure cannot leave a
	// half-applied update behind.
	var newVector []float64
	newContent, hasContent := updates["content"].(string)
	if hasContent {
		var err error
		newVector, err = m.embed(ctx, newContent)
		if err != nil {
			return false, NewMemoryError("Update", err)
		}
	}

	mu := m.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	record, err := m.store.Get(ctx, id)
	if err != nil {
		return false, NewMemoryError("Update", err)
	}
	if record == nil {
		return false, nil
	}

	for key, value := range updates {
		switch key {
		case "content":
			// Applied below together with the embedding.
		case "summary":
			if s, ok := value.(string); ok {
				record.Summary = s
			}
		case "data_type":
			if s, ok := value.(string); ok {
				record.DataType = s
			}
		case "relevance_score":
			if f, ok := toFloat(value); ok {
				record.RelevanceScore = clampScore(f)
			}
		default:
			if record.Metadata == nil {
				record.Metadata = make(map[string]interface{})
			}
			record.Metadata[key] = value
		}
	}
	if hasContent {
		record.Content = newContent
		record.Embedding = newVector
	}

	if err := m.store.Set(ctx, record); err != nil {
		return false, NewMemoryError("Update", err)
	}
	if hasContent {
		m.index.Update(id, newVector)
	}
	return true, nil
}

// Delete removes a record from both the metadata store and the vector
// index. The two removals happen under the record's lock, so no retrieval
// ever observes the record in one store but not the other after Delete
// returns.
//
// Returns (false, nil) when the id is unknown.
func (m *Manager) Delete(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}

	mu := m.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	removed, err := m.store.Delete(ctx, id)
	if err != nil {
		return false, NewMemoryError("Delete", err)
	}
	if !removed {
		return false, nil
	}
	m.index.Delete(id)
	return true, nil
}

// LoadIndex rebuilds the vector index from every persisted record. Call it
// once after opening a durable store so earlier sessions stay retrievable.
// Returns the number of vectors loaded.
func (m *Manager) LoadIndex(ctx context.Context) (int, error) {
	records, err := m.store.All(ctx)
	if err != nil {
		return 0, NewMemoryError("LoadIndex", err)
	}
	for _, record := range records {
		m.index.Add(record.ID, record.Embedding)
	}
	return len(records), nil
}

// Close closes the metadata store and the embedding provider.
func (m *Manager) Close() error {
	var first error
	if err := m.store.Close(); err != nil {
		first = err
	}
	if err := m.embedder.Close(); err != nil && first == nil {
		first = err
	}
	return first
}

// mutate runs a read-modify-write on one record under its lock. The
// function receives the stored record and may edit it in place; the edited
// record is written back before the lock is released.
//
// Returns (false, nil) when the id is unknown.
func (m *Manager) mutate(ctx context.Context, id string, fn func(*metastore.Record)) (bool, error) {
	mu := m.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	record, err := m.store.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if record == nil {
		return false, nil
	}

	fn(record)

	if err := m.store.Set(ctx, record); err != nil {
		return false, err
	}
	return true, nil
}

// embed calls the provider under the configured timeout.
func (m *Manager) embed(ctx context.Context, text string) ([]float64, error) {
	if m.embedTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.embedTimeout)
		defer cancel()
	}

	vector, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	return vector, nil
}

// lockFor returns the mutex stripe owning the given id.
func (m *Manager) lockFor(id string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &m.locks[h.Sum32()%lockStripes]
}

func buildMetadata(o *StoreOptions) map[string]interface{} {
	if o.Metadata == nil && o.MemoryType == "" {
		return nil
	}
	metadata := make(map[string]interface{}, len(o.Metadata)+1)
	for k, v := range o.Metadata {
		metadata[k] = v
	}
	if o.MemoryType != "" {
		metadata["memory_type"] = o.MemoryType
	}
	return metadata
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
