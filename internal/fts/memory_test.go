package fts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blakazulu/search-mcp-sub002/internal/chunk"
)

func sampleChunk(id, path, text string) chunk.Chunk {
	return chunk.Chunk{
		ID:       id,
		Path:     path,
		Text:     text,
		Metadata: &chunk.Metadata{Kind: chunk.KindFunction},
	}
}

func sampleChunkWithLines(id, path, text string, startLine, endLine int) chunk.Chunk {
	c := sampleChunk(id, path, text)
	c.StartLine = startLine
	c.EndLine = endLine
	return c
}

func TestMemoryEngine_AddAndSearch(t *testing.T) {
	e, err := NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })

	ctx := context.Background()
	require.NoError(t, e.AddChunk(ctx, sampleChunk("1", "a.go", "func retryRequest() error")))
	require.NoError(t, e.AddChunk(ctx, sampleChunk("2", "b.go", "func parseConfig() error")))

	results, err := e.Search(ctx, "retryRequest", SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "1", results[0].ChunkID)
}

func TestMemoryEngine_RemoveByPath(t *testing.T) {
	e, err := NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })

	ctx := context.Background()
	require.NoError(t, e.AddChunks(ctx, []chunk.Chunk{
		sampleChunk("1", "a.go", "alpha"),
		sampleChunk("2", "a.go", "beta"),
		sampleChunk("3", "b.go", "gamma"),
	}))

	require.NoError(t, e.RemoveByPath(ctx, "a.go"))

	has, err := e.HasData(ctx)
	require.NoError(t, err)
	assert.True(t, has)

	stats, err := e.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalChunks)
}

func TestMemoryEngine_HasDataFalseWhenEmpty(t *testing.T) {
	e, err := NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })

	has, err := e.HasData(context.Background())
	require.NoError(t, err)
	assert.False(t, has)
}

func TestMemoryEngine_EngineType(t *testing.T) {
	e, err := NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	assert.Equal(t, EngineJS, e.EngineType())
}

func TestNormalizeScores_ScalesToUnitMax(t *testing.T) {
	results := []Result{{Score: 4}, {Score: 2}, {Score: 1}}
	out := NormalizeScores(results)
	assert.InDelta(t, 1.0, out[0].Score, 1e-9)
	assert.InDelta(t, 0.5, out[1].Score, 1e-9)
	assert.InDelta(t, 0.25, out[2].Score, 1e-9)
}

func TestNormalizeScores_EmptyInput(t *testing.T) {
	assert.Empty(t, NormalizeScores(nil))
}

func TestMemoryEngine_SearchReportsLineSpan(t *testing.T) {
	e, err := NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })

	ctx := context.Background()
	require.NoError(t, e.AddChunk(ctx, sampleChunkWithLines("1", "a.go", "func retryRequest() error", 10, 20)))

	results, err := e.Search(ctx, "retryRequest", SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 10, results[0].StartLine)
	assert.Equal(t, 20, results[0].EndLine)
}

func TestMemoryEngine_SerializeDeserializeRoundTrips(t *testing.T) {
	e, err := NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })

	ctx := context.Background()
	require.NoError(t, e.AddChunks(ctx, []chunk.Chunk{
		sampleChunkWithLines("1", "a.go", "func retryRequest() error", 1, 5),
		sampleChunkWithLines("2", "b.go", "func parseConfig() error", 3, 9),
	}))

	dump, err := e.Serialize(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, dump)

	fresh, err := NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { fresh.Close() })

	require.NoError(t, fresh.Deserialize(ctx, dump))

	stats, err := fresh.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalChunks)

	results, err := fresh.Search(ctx, "retryRequest", SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "1", results[0].ChunkID)
	assert.Equal(t, 1, results[0].StartLine)
	assert.Equal(t, 5, results[0].EndLine)
}
