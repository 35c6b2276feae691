package amazon

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *NodeStore {
	t.Helper()

	store, err := OpenNodeStore(filepath.Join(t.TempDir(), "nodes", "ap.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestNodeStoreUpsertIsIdempotent(t *testing.T) {
	created := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	size := int64(1024)

	store := openTestStore(t)

	nodes := []Node{
		{ID: "n1", Name: "a.jpg", Kind: "FILE", CreatedDate: &created,
			ContentProperties: &ContentProperties{MD5: "h1", Size: &size}},
		{ID: "n1", Name: "a.jpg", Kind: "FILE", CreatedDate: &created,
			ContentProperties: &ContentProperties{MD5: "h1", Size: &size}},
		{ID: "n2", Name: "b.jpg", Kind: "FILE"},
	}
	require.NoError(t, store.Upsert(nodes))

	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	all, err := store.All()
	require.NoError(t, err)
	require.Len(t, all, 2)

	for _, n := range all {
		if n.ID == "n1" {
			md5, ok := n.MD5()
			assert.True(t, ok)
			assert.Equal(t, "h1", md5)
			sz, ok := n.Size()
			assert.True(t, ok)
			assert.Equal(t, int64(1024), sz)
			require.NotNil(t, n.CreatedDate)
			assert.True(t, created.Equal(*n.CreatedDate))
		}
	}
}

func TestNodeStoreSkipsEmptyIDs(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Upsert([]Node{{ID: "", Name: "ghost"}, {ID: "n1"}}))

	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNodeStoreEmpty(t *testing.T) {
	store := openTestStore(t)

	all, err := store.All()
	require.NoError(t, err)
	assert.Empty(t, all)
}
