package docs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blakazulu/search-mcp-sub002/internal/chunk"
	"github.com/blakazulu/search-mcp-sub002/internal/config"
	"github.com/blakazulu/search-mcp-sub002/internal/embedding"
	"github.com/blakazulu/search-mcp-sub002/internal/fingerprint"
	"github.com/blakazulu/search-mcp-sub002/internal/policy"
	"github.com/blakazulu/search-mcp-sub002/internal/vectorstore"
)

func newTestPipeline(t *testing.T, root string) *Pipeline {
	t.Helper()

	cfg := config.Default()
	pol, err := policy.New(root, cfg)
	require.NoError(t, err)

	chunker := chunk.NewChunker(chunk.ChunkingTuning{CodeChunkSize: 4000, CodeOverlap: 800, ProseChunkSize: 8000, ProseOverlap: 2000})

	indexDir := filepath.Join(root, ".searchindex-docs")
	require.NoError(t, os.MkdirAll(indexDir, 0o755))

	fps, err := fingerprint.Load(indexDir)
	require.NoError(t, err)

	vs, err := vectorstore.NewSQLiteStore(filepath.Join(indexDir, "docs.db"), embedding.MockDimensions)
	require.NoError(t, err)
	t.Cleanup(func() { vs.Close() })

	return New(root, pol, chunker, fps, vs, embedding.NewMockProvider())
}

func TestIndex_OnlyProcessesDocFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("# Title\n\nSome documentation content long enough to chunk.\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n\nfunc main() {}\n"), 0o644))

	p := newTestPipeline(t, root)
	result, err := p.Index(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesProcessed)
}

func TestUpdateFile_NonDocFileDelegatesToRemove(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("Some notes that are long enough to be chunked on their own.\n"), 0o644))

	p := newTestPipeline(t, root)
	ctx := context.Background()
	_, err := p.Index(ctx)
	require.NoError(t, err)

	require.NoError(t, p.UpdateFile(ctx, "main.go"))

	stats, err := p.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalDocFiles)
}
