package diff

import (
	"testing"

	"github.com/blakazulu/search-mcp-sub002/internal/chunk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute_UnchangedSameHashSameSpan(t *testing.T) {
	existing := []ExistingChunk{{ID: "id-1", ChunkHash: "h1", StartLine: 1, EndLine: 5}}
	newChunks := []chunk.Chunk{{ID: "new", ChunkHash: "h1", StartLine: 1, EndLine: 5}}

	r := Compute(existing, newChunks)
	require.Len(t, r.Unchanged, 1)
	assert.Equal(t, "id-1", r.Unchanged[0].ID)
	assert.Empty(t, r.Moved)
	assert.Empty(t, r.Added)
	assert.Empty(t, r.Removed)
}

func TestCompute_MovedSameHashDifferentSpan(t *testing.T) {
	existing := []ExistingChunk{{ID: "id-1", ChunkHash: "h1", StartLine: 1, EndLine: 5}}
	newChunks := []chunk.Chunk{{ID: "new", ChunkHash: "h1", StartLine: 10, EndLine: 15}}

	r := Compute(existing, newChunks)
	require.Len(t, r.Moved, 1)
	assert.Equal(t, "id-1", r.Moved[0].ID)
	assert.Equal(t, 10, r.Moved[0].New.StartLine)
}

func TestCompute_AddedNewHash(t *testing.T) {
	r := Compute(nil, []chunk.Chunk{{ID: "new", ChunkHash: "h-new", StartLine: 1, EndLine: 2}})
	require.Len(t, r.Added, 1)
}

func TestCompute_RemovedLeftoverBucketEntries(t *testing.T) {
	existing := []ExistingChunk{{ID: "id-1", ChunkHash: "h1", StartLine: 1, EndLine: 5}}
	r := Compute(existing, nil)
	require.Len(t, r.Removed, 1)
	assert.Equal(t, "id-1", r.Removed[0].ID)
}

func TestCompute_FIFOAmongDuplicateHashes(t *testing.T) {
	existing := []ExistingChunk{
		{ID: "id-1", ChunkHash: "dup", StartLine: 1, EndLine: 2},
		{ID: "id-2", ChunkHash: "dup", StartLine: 100, EndLine: 101},
	}
	newChunks := []chunk.Chunk{
		{ID: "n1", ChunkHash: "dup", StartLine: 50, EndLine: 51},
		{ID: "n2", ChunkHash: "dup", StartLine: 60, EndLine: 61},
	}

	r := Compute(existing, newChunks)
	require.Len(t, r.Moved, 2)
	assert.Equal(t, "id-1", r.Moved[0].ID)
	assert.Equal(t, "id-2", r.Moved[1].ID)
}

func TestShouldUseIncremental(t *testing.T) {
	assert.False(t, ShouldUseIncremental(0))
	assert.False(t, ShouldUseIncremental(3))
	assert.True(t, ShouldUseIncremental(4))
}

func TestWasIncrementalWorthwhile(t *testing.T) {
	assert.False(t, WasIncrementalWorthwhile(Result{}))
	assert.True(t, WasIncrementalWorthwhile(Result{
		Unchanged: make([]Unchanged, 3),
		Added:     make([]Added, 1),
	}))
	assert.False(t, WasIncrementalWorthwhile(Result{
		Unchanged: make([]Unchanged, 1),
		Added:     make([]Added, 10),
	}))
}
