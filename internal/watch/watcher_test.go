package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blakazulu/search-mcp-sub002/internal/chunk"
	"github.com/blakazulu/search-mcp-sub002/internal/config"
	"github.com/blakazulu/search-mcp-sub002/internal/embedding"
	"github.com/blakazulu/search-mcp-sub002/internal/fingerprint"
	"github.com/blakazulu/search-mcp-sub002/internal/fts"
	"github.com/blakazulu/search-mcp-sub002/internal/indexmanager"
	"github.com/blakazulu/search-mcp-sub002/internal/policy"
	"github.com/blakazulu/search-mcp-sub002/internal/vectorstore"
)

func newTestSetup(t *testing.T) (string, *policy.Policy, *indexmanager.Manager, *fingerprint.Store) {
	t.Helper()
	root := t.TempDir()

	cfg := config.Default()
	pol, err := policy.New(root, cfg)
	require.NoError(t, err)

	chunker := chunk.NewChunker(chunk.ChunkingTuning{CodeChunkSize: 4000, CodeOverlap: 800, ProseChunkSize: 8000, ProseOverlap: 2000})

	indexDir := filepath.Join(root, ".searchindex")
	require.NoError(t, os.MkdirAll(indexDir, 0o755))

	fps, err := fingerprint.Load(indexDir)
	require.NoError(t, err)

	vs, err := vectorstore.NewSQLiteStore(filepath.Join(indexDir, "vec.db"), embedding.MockDimensions)
	require.NoError(t, err)
	t.Cleanup(func() { vs.Close() })

	ftsEngine, err := fts.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { ftsEngine.Close() })

	m := indexmanager.New(root, pol, chunker, fps, vs, ftsEngine, embedding.NewMockProvider())
	return root, pol, m, fps
}

func TestWatcher_NewFileTriggersUpdateFile(t *testing.T) {
	root, pol, m, fps := newTestSetup(t)
	w, err := New(root, pol, m, fps)
	require.NoError(t, err)
	defer w.Stop()

	w.Start(context.Background())

	require.NoError(t, os.WriteFile(filepath.Join(root, "new.go"), []byte("package main\n\nfunc New() {}\n"), 0o644))

	assert.Eventually(t, func() bool {
		return fps.Has("new.go")
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatcher_PauseSuppressesUpdates(t *testing.T) {
	root, pol, m, fps := newTestSetup(t)
	w, err := New(root, pol, m, fps)
	require.NoError(t, err)
	defer w.Stop()

	w.Pause()
	w.Start(context.Background())

	require.NoError(t, os.WriteFile(filepath.Join(root, "paused.go"), []byte("package main\n"), 0o644))
	time.Sleep(800 * time.Millisecond)

	assert.False(t, fps.Has("paused.go"))
}

func TestWatcher_DeletedFileTriggersRemoveFile(t *testing.T) {
	root, pol, m, fps := newTestSetup(t)

	path := filepath.Join(root, "gone.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n\nfunc Gone() {}\n"), 0o644))
	_, err := m.CreateIndex(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, fps.Has("gone.go"))

	w, err := New(root, pol, m, fps)
	require.NoError(t, err)
	defer w.Stop()
	w.Start(context.Background())

	require.NoError(t, os.Remove(path))

	assert.Eventually(t, func() bool {
		return !fps.Has("gone.go")
	}, 3*time.Second, 20*time.Millisecond)
}
