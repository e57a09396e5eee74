package core_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datasage-ai/membank-go/pkg/core"
)

const tableJSON = `[{"region":"EMEA","revenue":120000},{"region":"APAC","revenue":95000}]`

func TestArtifactStoreSetsKindAndHash(t *testing.T) {
	manager, _ := newTestManager(t)
	artifacts := core.NewArtifactMemory(manager)
	ctx := context.Background()

	id, err := artifacts.Store(ctx, tableJSON, "user_001", core.WithDataType("table"))
	require.NoError(t, err)

	record, err := manager.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.KindArtifact, record.Kind)
	assert.Equal(t, "table", record.DataType)
	assert.Len(t, record.ContentHash, 64, "sha-256 hex digest")
	assert.Equal(t, tableJSON, record.Content)
}

func TestArtifactDeduplication(t *testing.T) {
	manager, store := newTestManager(t)
	artifacts := core.NewArtifactMemory(manager)
	ctx := context.Background()

	first, err := artifacts.Store(ctx, tableJSON, "user_001", core.WithDataType("table"))
	require.NoError(t, err)

	second, err := artifacts.Store(ctx, tableJSON, "user_001", core.WithDataType("table"))
	require.NoError(t, err)
	assert.Equal(t, first, second, "identical content returns the original id")

	all, err := store.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestArtifactDeduplicationScopedPerUser(t *testing.T) {
	manager, _ := newTestManager(t)
	artifacts := core.NewArtifactMemory(manager)
	ctx := context.Background()

	aliceID, err := artifacts.Store(ctx, tableJSON, "alice", core.WithDataType("table"))
	require.NoError(t, err)
	bobID, err := artifacts.Store(ctx, tableJSON, "bob", core.WithDataType("table"))
	require.NoError(t, err)
	assert.NotEqual(t, aliceID, bobID)
}

func TestArtifactConcurrentDeduplication(t *testing.T) {
	manager, store := newTestManager(t)
	artifacts := core.NewArtifactMemory(manager)
	ctx := context.Background()

	const writers = 16
	ids := make([]string, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := artifacts.Store(ctx, tableJSON, "user_001", core.WithDataType("table"))
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id, "all concurrent stores converge on one id")
	}
	all, err := store.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestArtifactNonStringContentCanonicalized(t *testing.T) {
	manager, _ := newTestManager(t)
	artifacts := core.NewArtifactMemory(manager)
	ctx := context.Background()

	payload := map[string]interface{}{"nodes": []string{"a", "b"}, "edges": []string{"a-b"}}
	first, err := artifacts.Store(ctx, payload, "user_001", core.WithDataType("network_diagram"))
	require.NoError(t, err)
	second, err := artifacts.Store(ctx, payload, "user_001", core.WithDataType("network_diagram"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestArtifactSummarySynthesis(t *testing.T) {
	manager, _ := newTestManager(t)
	artifacts := core.NewArtifactMemory(manager)
	ctx := context.Background()

	id, err := artifacts.Store(ctx, tableJSON, "user_001", core.WithDataType("table"))
	require.NoError(t, err)
	record, err := manager.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Table with 2 rows and 2 columns", record.Summary)

	graphJSON := `{"nodes":[{"id":"a"},{"id":"b"},{"id":"c"}],"edges":[{"from":"a","to":"b"}]}`
	id, err = artifacts.Store(ctx, graphJSON, "user_001", core.WithDataType("network_diagram"))
	require.NoError(t, err)
	record, err = manager.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Network diagram with 3 nodes and 1 connections", record.Summary)

	id, err = artifacts.Store(ctx, "opaque blob", "user_001", core.WithDataType("chart"))
	require.NoError(t, err)
	record, err = manager.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Data artifact of type chart", record.Summary)
}

func TestArtifactCallerSummaryWins(t *testing.T) {
	manager, _ := newTestManager(t)
	artifacts := core.NewArtifactMemory(manager)
	ctx := context.Background()

	id, err := artifacts.Store(ctx, tableJSON, "user_001",
		core.WithDataType("table"),
		core.WithSummary("Quarterly revenue by region"))
	require.NoError(t, err)

	record, err := manager.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Quarterly revenue by region", record.Summary)
}

func TestArtifactRetrievalMatchesSummaryNotPayload(t *testing.T) {
	manager, _ := newTestManager(t)
	artifacts := core.NewArtifactMemory(manager)
	ctx := context.Background()

	id, err := artifacts.Store(ctx, tableJSON, "user_001",
		core.WithDataType("table"),
		core.WithSummary("Quarterly revenue by region"))
	require.NoError(t, err)

	results, err := artifacts.Retrieve(ctx, "Quarterly revenue by region", "user_001")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, id, results[0].Record.ID)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-9, "the summary is the embedding source")
}

func TestGetPreviewTable(t *testing.T) {
	manager, _ := newTestManager(t)
	artifacts := core.NewArtifactMemory(manager)
	ctx := context.Background()

	rows := `[{"n":1},{"n":2},{"n":3},{"n":4},{"n":5},{"n":6},{"n":7}]`
	id, err := artifacts.Store(ctx, rows, "user_001", core.WithDataType("table"))
	require.NoError(t, err)

	preview := artifacts.GetPreview(ctx, id, 5)
	assert.True(t, strings.HasPrefix(preview, "Table preview (5 of 7 rows):\n"), preview)
	assert.Contains(t, preview, "Row 1:")
	assert.Contains(t, preview, "Row 5:")
	assert.NotContains(t, preview, "Row 6:")
}

func TestGetPreviewDefaultsToFiveRows(t *testing.T) {
	manager, _ := newTestManager(t)
	artifacts := core.NewArtifactMemory(manager)
	ctx := context.Background()

	rows := `[{"n":1},{"n":2},{"n":3},{"n":4},{"n":5},{"n":6}]`
	id, err := artifacts.Store(ctx, rows, "user_001", core.WithDataType("table"))
	require.NoError(t, err)

	preview := artifacts.GetPreview(ctx, id, 0)
	assert.True(t, strings.HasPrefix(preview, "Table preview (5 of 6 rows):\n"), preview)
}

func TestGetPreviewTruncatesLongRows(t *testing.T) {
	manager, _ := newTestManager(t)
	artifacts := core.NewArtifactMemory(manager)
	ctx := context.Background()

	long := strings.Repeat("x", 500)
	id, err := artifacts.Store(ctx, `[{"blob":"`+long+`"}]`, "user_001", core.WithDataType("table"))
	require.NoError(t, err)

	preview := artifacts.GetPreview(ctx, id, 1)
	for _, line := range strings.Split(preview, "\n") {
		if strings.HasPrefix(line, "Row ") {
			assert.LessOrEqual(t, len(line), len("Row 1: ")+100+len("..."))
		}
	}
}

func TestGetPreviewSentinels(t *testing.T) {
	manager, _ := newTestManager(t)
	artifacts := core.NewArtifactMemory(manager)
	ctx := context.Background()

	assert.Equal(t, "Data preview unavailable", artifacts.GetPreview(ctx, "no-such-id", 5))

	id, err := artifacts.Store(ctx, `{"nodes":[],"edges":[]}`, "user_001",
		core.WithDataType("network_diagram"))
	require.NoError(t, err)
	assert.Equal(t, "Preview for network_diagram not available", artifacts.GetPreview(ctx, id, 5))
}

func TestArtifactStoreInvalidInput(t *testing.T) {
	manager, _ := newTestManager(t)
	artifacts := core.NewArtifactMemory(manager)

	_, err := artifacts.Store(context.Background(), tableJSON, "")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}
