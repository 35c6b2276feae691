package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/mcp-amazon-photos/pkg/amazon"
)

func hashedNode(id, md5 string, created *time.Time) amazon.Node {
	return amazon.Node{
		ID:          id,
		Name:        id + ".jpg",
		Kind:        "FILE",
		CreatedDate: created,
		ContentProperties: &amazon.ContentProperties{
			MD5: md5,
		},
	}
}

func datePtr(year, month, day int) *time.Time {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestDuplicateGroups(t *testing.T) {
	nodes := []amazon.Node{
		hashedNode("a", "h1", datePtr(2021, 1, 1)),
		hashedNode("b", "h1", datePtr(2022, 1, 1)),
		hashedNode("c", "h2", datePtr(2020, 1, 1)),
		hashedNode("d", "h2", datePtr(2023, 1, 1)),
		hashedNode("e", "h2", nil),
		hashedNode("f", "h3", datePtr(2021, 5, 5)), // unique, not a duplicate
		{ID: "g", Name: "folder", Kind: "FOLDER"},  // no hash, ignored
	}

	groups := duplicateGroups(nodes)

	require.Len(t, groups, 2)
	// Largest group first.
	assert.Equal(t, "h2", groups[0].MD5)
	assert.Len(t, groups[0].Files, 3)
	assert.Equal(t, "h1", groups[1].MD5)
	assert.Len(t, groups[1].Files, 2)

	totalFiles := len(groups[0].Files) + len(groups[1].Files)
	assert.Equal(t, 5, totalFiles)
	assert.Equal(t, 3, totalFiles-len(groups)) // removable copies
}

func TestDuplicateGroupsNoneFound(t *testing.T) {
	nodes := []amazon.Node{
		hashedNode("a", "h1", nil),
		hashedNode("b", "h2", nil),
	}
	assert.Empty(t, duplicateGroups(nodes))
}

func TestSortForDisplayNullsFirst(t *testing.T) {
	files := []amazon.Node{
		hashedNode("a", "h1", datePtr(2022, 1, 1)),
		hashedNode("b", "h1", nil),
		hashedNode("c", "h1", datePtr(2021, 1, 1)),
	}

	sorted := sortForDisplay(files)

	assert.Equal(t, "b", sorted[0].ID)
	assert.Equal(t, "c", sorted[1].ID)
	assert.Equal(t, "a", sorted[2].ID)
}

func TestSortForKeepNullsLast(t *testing.T) {
	files := []amazon.Node{
		hashedNode("a", "h1", datePtr(2022, 1, 1)),
		hashedNode("b", "h1", nil),
		hashedNode("c", "h1", datePtr(2021, 1, 1)),
	}

	sorted := sortForKeep(files)

	assert.Equal(t, "c", sorted[0].ID)
	assert.Equal(t, "a", sorted[1].ID)
	assert.Equal(t, "b", sorted[2].ID)
}

func TestPlanKeepKeepsEarliest(t *testing.T) {
	files := []amazon.Node{
		hashedNode("a", "h1", datePtr(2022, 1, 1)),
		hashedNode("b", "h1", datePtr(2021, 1, 1)),
		hashedNode("c", "h1", nil),
	}

	keep, trash := planKeep(files)

	assert.Equal(t, "b", keep.ID)
	require.Len(t, trash, 2)
	assert.Equal(t, "a", trash[0].ID)
	assert.Equal(t, "c", trash[1].ID)
}

func TestPlanKeepAllDatesMissing(t *testing.T) {
	files := []amazon.Node{
		hashedNode("z", "h1", nil),
		hashedNode("a", "h1", nil),
	}

	keep, trash := planKeep(files)

	// Deterministic fallback on id.
	assert.Equal(t, "a", keep.ID)
	require.Len(t, trash, 1)
	assert.Equal(t, "z", trash[0].ID)
}

func TestBatchIDs(t *testing.T) {
	ids := make([]string, 250)
	for i := range ids {
		ids[i] = "id"
	}

	batches := batchIDs(ids, 100)

	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 100)
	assert.Len(t, batches[1], 100)
	assert.Len(t, batches[2], 50)
}

func TestBatchIDsEmpty(t *testing.T) {
	assert.Empty(t, batchIDs(nil, 100))
}

func TestHasAnyMD5(t *testing.T) {
	assert.False(t, hasAnyMD5([]amazon.Node{{ID: "a"}, {ID: "b"}}))
	assert.True(t, hasAnyMD5([]amazon.Node{{ID: "a"}, hashedNode("b", "h1", nil)}))
}

// h1: a (2021) kept, b trashed. h2: c (2020) kept, d and e trashed.
func duplicateScenario() []amazon.Node {
	return []amazon.Node{
		hashedNode("a", "h1", datePtr(2021, 1, 1)),
		hashedNode("b", "h1", datePtr(2022, 1, 1)),
		hashedNode("c", "h2", datePtr(2020, 1, 1)),
		hashedNode("d", "h2", datePtr(2023, 1, 1)),
		hashedNode("e", "h2", nil),
	}
}

func TestProcessDuplicateTrashDryRunIssuesNoTrashCalls(t *testing.T) {
	calls := 0
	trash := func(ctx context.Context, ids []string) error {
		calls++
		return nil
	}

	result, err := processDuplicateTrash(context.Background(), duplicateScenario(), nil, true, trash)
	require.NoError(t, err)

	assert.Zero(t, calls)
	assert.Equal(t, "dry_run", result["action"])
	assert.Equal(t, 2, result["groups_processed"])
	assert.Equal(t, 2, result["files_kept"])
	assert.Equal(t, 3, result["files_trashed"])
	assert.Len(t, result["sample_trashed"], 3)
}

func TestProcessDuplicateTrashExecuteBatchesNonKeptIDs(t *testing.T) {
	var batches [][]string
	trash := func(ctx context.Context, ids []string) error {
		batches = append(batches, ids)
		return nil
	}

	result, err := processDuplicateTrash(context.Background(), duplicateScenario(), nil, false, trash)
	require.NoError(t, err)

	assert.Equal(t, "trashed", result["action"])
	assert.Equal(t, 3, result["files_trashed"])

	var trashed []string
	for _, batch := range batches {
		assert.LessOrEqual(t, len(batch), trashBatchSize)
		trashed = append(trashed, batch...)
	}
	assert.ElementsMatch(t, []string{"b", "d", "e"}, trashed)
}

func TestProcessDuplicateTrashExecuteSplitsLargeBatches(t *testing.T) {
	nodes := make([]amazon.Node, 0, 150)
	for i := 0; i < 150; i++ {
		nodes = append(nodes, hashedNode(fmt.Sprintf("n%03d", i), "h1", datePtr(2020, 1, 1)))
	}

	var batches [][]string
	trash := func(ctx context.Context, ids []string) error {
		batches = append(batches, ids)
		return nil
	}

	result, err := processDuplicateTrash(context.Background(), nodes, nil, false, trash)
	require.NoError(t, err)

	assert.Equal(t, 149, result["files_trashed"])
	require.Len(t, batches, 2)
	assert.Len(t, batches[0], trashBatchSize)
	assert.Len(t, batches[1], 49)
}

func TestProcessDuplicateTrashFiltersByHash(t *testing.T) {
	var trashed []string
	trash := func(ctx context.Context, ids []string) error {
		trashed = append(trashed, ids...)
		return nil
	}

	result, err := processDuplicateTrash(context.Background(), duplicateScenario(), []string{"h1"}, false, trash)
	require.NoError(t, err)

	assert.Equal(t, 1, result["groups_processed"])
	assert.Equal(t, []string{"b"}, trashed)
}

func TestProcessDuplicateTrashNoMD5Data(t *testing.T) {
	nodes := []amazon.Node{{ID: "a"}, {ID: "b"}}

	result, err := processDuplicateTrash(context.Background(), nodes, nil, true, nil)
	require.NoError(t, err)
	assert.Contains(t, result["error"], "refresh_library")
}

func newDuplicateTestProvider(t *testing.T) *amazon.Provider {
	t.Helper()
	t.Setenv(amazon.CookiesEnv, `{"ubid-main":"u","at-main":"t","session-id":"s"}`)

	provider := amazon.NewProvider(amazon.ProviderOptions{
		DBPath: filepath.Join(t.TempDir(), "ap.db"),
	})
	t.Cleanup(func() { _ = provider.Close() })

	store, err := provider.Store()
	require.NoError(t, err)
	require.NoError(t, store.Upsert(duplicateScenario()))

	return provider
}

func TestTrashDuplicatesHandlerDefaultsToDryRun(t *testing.T) {
	handler := trashDuplicatesHandler(newDuplicateTestProvider(t))

	// No dryRun field at all; the tool must preview, not trash.
	request := mcp.CallToolRequest{}
	request.Params.Arguments = map[string]interface{}{}

	result, err := handler(context.Background(), request)
	require.NoError(t, err)

	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &payload))

	assert.Equal(t, "dry_run", payload["action"])
	assert.Equal(t, float64(2), payload["groups_processed"])
	assert.Equal(t, float64(2), payload["files_kept"])
	assert.Equal(t, float64(3), payload["files_trashed"])
}

func TestTrashDuplicatesHandlerExplicitDryRun(t *testing.T) {
	handler := trashDuplicatesHandler(newDuplicateTestProvider(t))

	request := mcp.CallToolRequest{}
	request.Params.Arguments = map[string]interface{}{"dryRun": true, "md5Hashes": []string{"h2"}}

	result, err := handler(context.Background(), request)
	require.NoError(t, err)

	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &payload))

	assert.Equal(t, "dry_run", payload["action"])
	assert.Equal(t, float64(1), payload["groups_processed"])
	assert.Equal(t, float64(2), payload["files_trashed"])
}
