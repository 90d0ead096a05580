package vectorstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDims = 4

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "vec.db"), testDims)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_UpsertAndGetByPath(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	records := []Record{
		{ChunkID: "1", Path: "a.go", Embedding: Vector{1, 0, 0, 0}, StartLine: 1, EndLine: 5},
		{ChunkID: "2", Path: "a.go", Embedding: Vector{0, 1, 0, 0}, StartLine: 6, EndLine: 10},
	}
	require.NoError(t, s.Upsert(ctx, records))

	got, err := s.GetByPath(ctx, "a.go")
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestSQLiteStore_UpsertRejectsWrongDimensions(t *testing.T) {
	s := newTestStore(t)
	err := s.Upsert(context.Background(), []Record{{ChunkID: "1", Path: "a.go", Embedding: Vector{1, 2}}})
	assert.Error(t, err)
}

func TestSQLiteStore_DeleteByPath(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []Record{
		{ChunkID: "1", Path: "a.go", Embedding: Vector{1, 0, 0, 0}},
		{ChunkID: "2", Path: "b.go", Embedding: Vector{0, 1, 0, 0}},
	}))
	require.NoError(t, s.DeleteByPath(ctx, "a.go"))

	count, err := s.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSQLiteStore_DeleteByIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []Record{
		{ChunkID: "1", Path: "a.go", Embedding: Vector{1, 0, 0, 0}},
		{ChunkID: "2", Path: "a.go", Embedding: Vector{0, 1, 0, 0}},
	}))
	require.NoError(t, s.DeleteByIDs(ctx, []string{"1"}))

	got, err := s.GetByPath(ctx, "a.go")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ChunkID)
}

func TestSQLiteStore_GetIndexedFiles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []Record{
		{ChunkID: "1", Path: "a.go", Embedding: Vector{1, 0, 0, 0}},
		{ChunkID: "2", Path: "b.go", Embedding: Vector{0, 1, 0, 0}},
	}))

	files, err := s.GetIndexedFiles(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.go", "b.go"}, files)
}

func TestSQLiteStore_SearchByVectorOrdersByDistance(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []Record{
		{ChunkID: "close", Path: "a.go", Embedding: Vector{1, 0, 0, 0}},
		{ChunkID: "far", Path: "b.go", Embedding: Vector{0, 0, 0, 1}},
	}))

	matches, err := s.SearchByVector(ctx, Vector{0.9, 0.1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "close", matches[0].ChunkID)
}

func TestSQLiteStore_UpsertIsIdempotentPerID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []Record{{ChunkID: "1", Path: "a.go", Embedding: Vector{1, 0, 0, 0}}}))
	require.NoError(t, s.Upsert(ctx, []Record{{ChunkID: "1", Path: "a.go", Embedding: Vector{0, 1, 0, 0}}}))

	got, err := s.GetByPath(ctx, "a.go")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, Vector{0, 1, 0, 0}, got[0].Embedding)
}

func TestSQLiteStore_RoundTripsChunkHashAndText(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []Record{
		{ChunkID: "1", Path: "a.go", Embedding: Vector{1, 0, 0, 0}, StartLine: 1, EndLine: 2, ChunkHash: "abc", Text: "func f() {}"},
	}))

	got, err := s.GetByPath(ctx, "a.go")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "abc", got[0].ChunkHash)
	assert.Equal(t, "func f() {}", got[0].Text)
}

func TestSQLiteStore_StorageSizeNonZero(t *testing.T) {
	s := newTestStore(t)
	size, err := s.StorageSize(context.Background())
	require.NoError(t, err)
	assert.Greater(t, size, int64(0))
}
