package fingerprint

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_ComputeClassifiesAddedModifiedUnchangedRemoved(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(dir)
	require.NoError(t, err)

	s.ApplyObservation(Observation{Path: "a.go", Content: "package a", Mtime: time.Now(), Size: 9})
	s.ApplyObservation(Observation{Path: "b.go", Content: "package b", Mtime: time.Now(), Size: 9})

	deltas := s.Compute([]Observation{
		{Path: "a.go", Content: "package a"},        // unchanged
		{Path: "b.go", Content: "package b changed"}, // modified
		{Path: "c.go", Content: "package c"},         // added
	})

	byPath := map[string]Status{}
	for _, d := range deltas {
		byPath[d.Path] = d.Status
	}
	require.Len(t, deltas, 3)
	assert.Equal(t, StatusUnchanged, byPath["a.go"])
	assert.Equal(t, StatusModified, byPath["b.go"])
	assert.Equal(t, StatusAdded, byPath["c.go"])
}

func TestStore_RemovedWhenNotObserved(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(dir)
	require.NoError(t, err)
	s.ApplyObservation(Observation{Path: "gone.go", Content: "x", Mtime: time.Now(), Size: 1})

	deltas := s.Compute(nil)
	require.Len(t, deltas, 1)
	assert.Equal(t, "gone.go", deltas[0].Path)
	assert.Equal(t, StatusRemoved, deltas[0].Status)
}

func TestStore_PersistAndReload(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(dir)
	require.NoError(t, err)
	s.ApplyObservation(Observation{Path: "a.go", Content: "package a", Mtime: time.Now(), Size: 9})
	require.NoError(t, s.Persist())

	s2, err := Load(dir)
	require.NoError(t, err)
	assert.True(t, s2.Has("a.go"))

	_, err = filepath.Abs(dir)
	require.NoError(t, err)
}

func TestStore_LoadMissingFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(filepath.Join(dir, "nested"))
	require.NoError(t, err)
	assert.Empty(t, s.Paths())
}
