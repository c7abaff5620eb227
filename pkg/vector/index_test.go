package vector

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := New(3, filepath.Join(t.TempDir(), "vectors.index"))
	require.NoError(t, err)
	return idx
}

func TestInsertSearchRoundTrip(t *testing.T) {
	idx := newTestIndex(t)

	_, err := idx.Insert("a", []float32{1, 2, 3}, map[string]any{"type": "message"})
	require.NoError(t, err)

	results, err := idx.Search([]float32{1, 2, 3}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
	assert.InDelta(t, 0.0, float64(results[0].Distance), 1e-6)
	assert.Equal(t, "message", results[0].Metadata["type"])
}

func TestInsertDimensionMismatch(t *testing.T) {
	idx := newTestIndex(t)

	_, err := idx.Insert("a", []float32{1, 2}, nil)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = idx.Search([]float32{1, 2, 3, 4}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestSearchOrderingAndTieBreak(t *testing.T) {
	idx := newTestIndex(t)

	// b 与 c 与查询向量等距，b 先插入应排在前面。
	_, err := idx.Insert("far", []float32{10, 10, 10}, nil)
	require.NoError(t, err)
	_, err = idx.Insert("b", []float32{1, 0, 0}, nil)
	require.NoError(t, err)
	_, err = idx.Insert("c", []float32{0, 1, 0}, nil)
	require.NoError(t, err)

	results, err := idx.Search([]float32{0, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "b", results[0].ID)
	assert.Equal(t, "c", results[1].ID)
	assert.Equal(t, "far", results[2].ID)
}

func TestSearchReturnsFewerThanK(t *testing.T) {
	idx := newTestIndex(t)

	_, err := idx.Insert("only", []float32{1, 1, 1}, nil)
	require.NoError(t, err)

	results, err := idx.Search([]float32{0, 0, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestInsertReplacesExistingID(t *testing.T) {
	idx := newTestIndex(t)

	_, err := idx.Insert("a", []float32{1, 0, 0}, map[string]any{"v": float64(1)})
	require.NoError(t, err)
	_, err = idx.Insert("b", []float32{0, 5, 0}, nil)
	require.NoError(t, err)

	_, err = idx.Insert("a", []float32{0, 0, 9}, map[string]any{"v": float64(2)})
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())

	vec, meta, err := idx.Get("a")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 9}, vec)
	assert.Equal(t, float64(2), meta["v"])

	// b 的向量保持不变
	vec, _, err = idx.Get("b")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 5, 0}, vec)
}

func TestDeleteRemovesAndRenumbers(t *testing.T) {
	idx := newTestIndex(t)

	_, err := idx.Insert("a", []float32{1, 0, 0}, nil)
	require.NoError(t, err)
	_, err = idx.Insert("b", []float32{0, 1, 0}, nil)
	require.NoError(t, err)
	_, err = idx.Insert("c", []float32{0, 0, 1}, nil)
	require.NoError(t, err)

	require.NoError(t, idx.Delete("a"))
	assert.Equal(t, 2, idx.Len())

	results, err := idx.Search([]float32{0, 0, 0}, 10)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "a", r.ID)
	}

	// 剩余向量与其 ID 的对应关系保持正确
	vec, _, err := idx.Get("b")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, 0}, vec)
	vec, _, err = idx.Get("c")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 1}, vec)
}

func TestDeleteMissingReturnsNotFound(t *testing.T) {
	idx := newTestIndex(t)
	assert.ErrorIs(t, idx.Delete("ghost"), ErrNotFound)
}

func TestPersistenceReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.index")

	idx, err := New(3, path)
	require.NoError(t, err)
	_, err = idx.Insert("a", []float32{1, 2, 3}, map[string]any{"context_id": "ctx-1"})
	require.NoError(t, err)
	_, err = idx.Insert("b", []float32{4, 5, 6}, nil)
	require.NoError(t, err)
	require.NoError(t, idx.Delete("a"))

	// 重新加载后状态与最后一次变更完全一致
	reloaded, err := New(3, path)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.Len())

	vec, _, err := reloaded.Get("b")
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 5, 6}, vec)

	_, _, err = reloaded.Get("a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReloadDimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.index")

	idx, err := New(3, path)
	require.NoError(t, err)
	_, err = idx.Insert("a", []float32{1, 2, 3}, nil)
	require.NoError(t, err)

	_, err = New(4, path)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
