package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownChunker_HeaderSections(t *testing.T) {
	text := "# Title\n\nIntro text.\n\n## Section A\n\nBody A.\n\n## Section B\n\nBody B.\n"
	m := NewMarkdownChunker(ProsePreset())
	pieces := m.Split(text)
	require.Len(t, pieces, 3)
	assert.Contains(t, pieces[1].Text, "[Title > Section A]")
	assert.Contains(t, pieces[2].Text, "[Title > Section B]")
}

func TestMarkdownChunker_StripsFrontmatter(t *testing.T) {
	text := "---\ntitle: Doc\n---\n\n# Heading\n\nbody\n"
	m := NewMarkdownChunker(ProsePreset())
	pieces := m.Split(text)
	require.NotEmpty(t, pieces)
	for _, p := range pieces {
		assert.NotContains(t, p.Text, "title: Doc")
	}
}

func TestMarkdownChunker_IgnoresHeadersInFencedCode(t *testing.T) {
	text := "# Real Header\n\n```\n# not a header\n```\n\nbody\n"
	m := NewMarkdownChunker(ProsePreset())
	pieces := m.Split(text)
	require.Len(t, pieces, 1)
	assert.Contains(t, pieces[0].Text, "# not a header")
}

func TestMarkdownChunker_OversizedSectionSplitsWithContinuedMarker(t *testing.T) {
	preset := CharPreset{Separators: []string{"\n\n", "\n", " ", ""}, ChunkSize: 100, Overlap: 10, MaxChunkSize: 100}
	var body strings.Builder
	body.WriteString("## Big Section\n\n")
	for i := 0; i < 20; i++ {
		body.WriteString("This is a paragraph of text that takes some space.\n\n")
	}
	m := NewMarkdownChunker(preset)
	pieces := m.Split(body.String())
	require.Greater(t, len(pieces), 1)
	found := false
	for _, p := range pieces[1:] {
		if strings.Contains(p.Text, "(continued)") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestMarkdownChunker_SetextHeaders(t *testing.T) {
	text := "Title\n=====\n\nbody text\n\nSubtitle\n--------\n\nmore text\n"
	m := NewMarkdownChunker(ProsePreset())
	pieces := m.Split(text)
	require.Len(t, pieces, 2)
	assert.Contains(t, pieces[0].Text, "[Title]")
	assert.Contains(t, pieces[1].Text, "[Title > Subtitle]")
}
