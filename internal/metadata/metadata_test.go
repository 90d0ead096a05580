package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileSeedsFreshRecord(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(dir, "/proj")
	require.NoError(t, err)
	got := s.Get()
	assert.Equal(t, "/proj", got.ProjectPath)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestRecordFullIndex_PersistAndReload(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(dir, "/proj")
	require.NoError(t, err)

	s.RecordFullIndex("bge-small-en-v1.5", 384, 12, 57, 4096, "js")
	require.NoError(t, s.Persist())

	reloaded, err := Load(dir, "/proj")
	require.NoError(t, err)
	got := reloaded.Get()
	assert.Equal(t, "bge-small-en-v1.5", got.ModelName)
	assert.Equal(t, 384, got.EmbeddingDimension)
	assert.Equal(t, 12, got.TotalFiles)
	assert.Equal(t, 57, got.TotalChunks)
	assert.Equal(t, int64(4096), got.StorageSizeBytes)
	assert.Equal(t, "js", got.FtsEngineType)
	assert.False(t, got.LastFullIndex.IsZero())
	assert.Equal(t, got.LastFullIndex, got.LastIncrementalUpdate)
}

func TestRecordIncrementalUpdate_LeavesLastFullIndexAlone(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(dir, "/proj")
	require.NoError(t, err)

	s.RecordFullIndex("m", 8, 1, 2, 10, "native")
	full := s.Get().LastFullIndex

	s.RecordIncrementalUpdate(1, 3, 20)
	got := s.Get()
	assert.Equal(t, full, got.LastFullIndex)
	assert.True(t, got.LastIncrementalUpdate.After(full) || got.LastIncrementalUpdate.Equal(full))
	assert.Equal(t, 3, got.TotalChunks)
	assert.Equal(t, int64(20), got.StorageSizeBytes)
}

func TestPersist_WritesAtomicallyToMetadataJSON(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(dir, "/proj")
	require.NoError(t, err)
	require.NoError(t, s.Persist())

	path := filepath.Join(dir, "metadata.json")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, filepath.Ext(e.Name()) == ".tmp", "temp file left behind: %s", e.Name())
	}
}
