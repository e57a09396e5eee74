package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datasage-ai/membank-go/pkg/metastore"
	"github.com/datasage-ai/membank-go/pkg/metastore/memory"
)

func newRecord(id, userID string) *metastore.Record {
	now := time.Now().UTC()
	return &metastore.Record{
		ID:             id,
		UserID:         userID,
		Kind:           metastore.KindConversation,
		Content:        "content of " + id,
		Embedding:      []float64{0.1, 0.2, 0.3},
		CreatedAt:      now,
		LastAccessedAt: now,
		RelevanceScore: 1.0,
	}
}

func TestInsertAndGet(t *testing.T) {
	store := memory.New()
	defer store.Close()
	ctx := context.Background()

	inserted, err := store.Insert(ctx, newRecord("m1", "alice"))
	require.NoError(t, err)
	assert.True(t, inserted)

	got, err := store.Get(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.UserID)
	assert.Equal(t, 1.0, got.RelevanceScore)
}

func TestGetMissing(t *testing.T) {
	store := memory.New()
	defer store.Close()

	got, err := store.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInsertDuplicateID(t *testing.T) {
	store := memory.New()
	defer store.Close()
	ctx := context.Background()

	_, err := store.Insert(ctx, newRecord("m1", "alice"))
	require.NoError(t, err)

	inserted, err := store.Insert(ctx, newRecord("m1", "alice"))
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestInsertDuplicateContentHash(t *testing.T) {
	store := memory.New()
	defer store.Close()
	ctx := context.Background()

	first := newRecord("a1", "alice")
	first.Kind = metastore.KindArtifact
	first.ContentHash = "deadbeef"
	inserted, err := store.Insert(ctx, first)
	require.NoError(t, err)
	assert.True(t, inserted)

	second := newRecord("a2", "alice")
	second.Kind = metastore.KindArtifact
	second.ContentHash = "deadbeef"
	inserted, err = store.Insert(ctx, second)
	require.NoError(t, err)
	assert.False(t, inserted, "same user and hash must conflict")

	// A different user may store the same content
	other := newRecord("a3", "bob")
	other.Kind = metastore.KindArtifact
	other.ContentHash = "deadbeef"
	inserted, err = store.Insert(ctx, other)
	require.NoError(t, err)
	assert.True(t, inserted)
}

func TestInsertEmptyHashNeverConflicts(t *testing.T) {
	store := memory.New()
	defer store.Close()
	ctx := context.Background()

	for _, id := range []string{"c1", "c2", "c3"} {
		inserted, err := store.Insert(ctx, newRecord(id, "alice"))
		require.NoError(t, err)
		assert.True(t, inserted)
	}
}

func TestConcurrentGuardedInsert(t *testing.T) {
	store := memory.New()
	defer store.Close()
	ctx := context.Background()

	const writers = 16
	var wg sync.WaitGroup
	results := make([]bool, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			record := newRecord("a"+string(rune('0'+i)), "alice")
			record.Kind = metastore.KindArtifact
			record.ContentHash = "samehash"
			inserted, err := store.Insert(ctx, record)
			assert.NoError(t, err)
			results[i] = inserted
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, inserted := range results {
		if inserted {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "exactly one concurrent insert may win")
}

func TestSetUpserts(t *testing.T) {
	store := memory.New()
	defer store.Close()
	ctx := context.Background()

	record := newRecord("m1", "alice")
	require.NoError(t, store.Set(ctx, record))

	record.Content = "updated"
	record.AccessCount = 3
	require.NoError(t, store.Set(ctx, record))

	got, err := store.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "updated", got.Content)
	assert.Equal(t, 3, got.AccessCount)
}

func TestDelete(t *testing.T) {
	store := memory.New()
	defer store.Close()
	ctx := context.Background()

	record := newRecord("a1", "alice")
	record.ContentHash = "h1"
	_, err := store.Insert(ctx, record)
	require.NoError(t, err)

	removed, err := store.Delete(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.Delete(ctx, "a1")
	require.NoError(t, err)
	assert.False(t, removed)

	// The hash slot is released with the record
	again := newRecord("a2", "alice")
	again.ContentHash = "h1"
	inserted, err := store.Insert(ctx, again)
	require.NoError(t, err)
	assert.True(t, inserted)
}

func TestQueryFilters(t *testing.T) {
	store := memory.New()
	defer store.Close()
	ctx := context.Background()

	_, err := store.Insert(ctx, newRecord("m1", "alice"))
	require.NoError(t, err)
	_, err = store.Insert(ctx, newRecord("m2", "bob"))
	require.NoError(t, err)

	artifact := newRecord("a1", "alice")
	artifact.Kind = metastore.KindArtifact
	artifact.ContentHash = "h1"
	_, err = store.Insert(ctx, artifact)
	require.NoError(t, err)

	matches, err := store.Query(ctx, map[string]interface{}{"user_id": "alice"})
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	matches, err = store.Query(ctx, map[string]interface{}{
		"user_id": "alice",
		"kind":    metastore.KindArtifact,
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Contains(t, matches, "a1")

	matches, err = store.Query(ctx, map[string]interface{}{"user_id": "carol"})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestQueryUnknownFilterKey(t *testing.T) {
	store := memory.New()
	defer store.Close()
	ctx := context.Background()

	_, err := store.Insert(ctx, newRecord("m1", "alice"))
	require.NoError(t, err)

	matches, err := store.Query(ctx, map[string]interface{}{"no_such_field": "x"})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestReadsReturnClones(t *testing.T) {
	store := memory.New()
	defer store.Close()
	ctx := context.Background()

	_, err := store.Insert(ctx, newRecord("m1", "alice"))
	require.NoError(t, err)

	got, err := store.Get(ctx, "m1")
	require.NoError(t, err)
	got.Content = "mutated through the pointer"
	got.Embedding[0] = 99

	again, err := store.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "content of m1", again.Content)
	assert.Equal(t, 0.1, again.Embedding[0])
}

func TestAll(t *testing.T) {
	store := memory.New()
	defer store.Close()
	ctx := context.Background()

	_, err := store.Insert(ctx, newRecord("m1", "alice"))
	require.NoError(t, err)
	_, err = store.Insert(ctx, newRecord("m2", "bob"))
	require.NoError(t, err)

	all, err := store.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
