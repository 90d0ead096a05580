package projectroot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetector_FindsGoMod(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module x\n"), 0o644))
	sub := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	got, err := New().Find(sub)
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestDetector_PrefersNearestMarker(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module x\n"), 0o644))
	nested := filepath.Join(root, "sub")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "package.json"), []byte("{}"), 0o644))

	got, err := New().Find(nested)
	require.NoError(t, err)
	assert.Equal(t, nested, got)
}

func TestDetector_GitAsFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".git"), []byte("gitdir: ../.git/worktrees/x\n"), 0o644))

	got, err := New().Find(root)
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestDetector_NoMarkerReturnsStart(t *testing.T) {
	root := t.TempDir()
	got, err := New().Find(root)
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestDetector_ExtraMarkers(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".searchindex-root"), []byte(""), 0o644))

	got, err := New("searchindex-root-never-matches", ".searchindex-root").Find(root)
	require.NoError(t, err)
	assert.Equal(t, root, got)
}
