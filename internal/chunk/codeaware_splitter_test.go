package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLanguageForPath(t *testing.T) {
	assert.Equal(t, "go", LanguageForPath("main.go"))
	assert.Equal(t, "python", LanguageForPath("pkg/mod.py"))
	assert.Equal(t, "", LanguageForPath("README.md"))
}

func TestSupportsCodeAwareChunking(t *testing.T) {
	assert.True(t, SupportsCodeAwareChunking("main.go"))
	assert.False(t, SupportsCodeAwareChunking("README.md"))
}

func TestCodeAwareSplitter_FindsGoFunctionBoundaries(t *testing.T) {
	text := "package main\n\nfunc A() {\n\treturn\n}\n\nfunc B() {\n\treturn\n}\n"
	s := NewCodeAwareSplitter(CodePreset())
	pieces, ok := s.Split("main.go", text)
	require.True(t, ok)
	require.NotEmpty(t, pieces)
	joined := ""
	for _, p := range pieces {
		joined += p.Text
	}
	assert.Contains(t, joined, "func A()")
	assert.Contains(t, joined, "func B()")
}

func TestCodeAwareSplitter_FallbackWhenNoBoundariesAndTooLarge(t *testing.T) {
	preset := CharPreset{Separators: []string{"\n"}, ChunkSize: 10, Overlap: 2, MaxChunkSize: 10}
	s := NewCodeAwareSplitter(preset)
	text := strings.Repeat("x = 1\n", 20)
	_, ok := s.Split("data.go", text)
	assert.False(t, ok)
}

func TestCodeAwareSplitter_UnsupportedExtension(t *testing.T) {
	s := NewCodeAwareSplitter(CodePreset())
	_, ok := s.Split("notes.txt", "hello")
	assert.False(t, ok)
}

func TestCountLines(t *testing.T) {
	assert.Equal(t, 1, countLines(""))
	assert.Equal(t, 1, countLines("a"))
	assert.Equal(t, 2, countLines("a\nb"))
}

func TestSortInts(t *testing.T) {
	s := []int{5, 1, 4, 2, 3}
	sortInts(s)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, s)
}
