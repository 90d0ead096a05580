package fts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSAlwaysGivesMemoryEngine(t *testing.T) {
	e, reason, err := New("js", t.TempDir(), 999999)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	assert.Equal(t, EngineJS, e.EngineType())
	assert.Empty(t, reason)
}

func TestNew_AutoPrefersMemoryBelowThreshold(t *testing.T) {
	e, reason, err := New("auto", t.TempDir(), 100)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	assert.Equal(t, EngineJS, e.EngineType())
	assert.Empty(t, reason)
}

func TestNew_UnknownPreferenceErrors(t *testing.T) {
	_, _, err := New("bogus", t.TempDir(), 10)
	assert.Error(t, err)
}
