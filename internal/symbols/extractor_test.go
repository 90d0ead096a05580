package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/blakazulu/search-mcp-sub002/internal/chunk"
)

func TestExtract_SymbolsAndExports(t *testing.T) {
	chunks := []chunk.Chunk{
		{
			Path:      "src/auth.py",
			StartLine: 1,
			EndLine:   3,
			Metadata: &chunk.Metadata{
				Kind:     chunk.KindFunction,
				Name:     "login",
				IsExport: true,
			},
		},
		{
			Path:      "src/auth.py",
			StartLine: 5,
			EndLine:   6,
			Metadata: &chunk.Metadata{
				Kind:       chunk.KindMethod,
				Name:       "_hash",
				ParentName: "AuthService",
				IsExport:   false,
			},
		},
	}

	text := "import os\nfrom hashlib import sha256\n\ndef login():\n    if os:\n        pass\n"
	summary := Extract("src/auth.py", text, chunks)

	assert.Equal(t, "python", summary.Language)
	assert.Len(t, summary.Symbols, 2)
	assert.Equal(t, []string{"login"}, summary.Exports)
	assert.ElementsMatch(t, []string{"os", "hashlib"}, summary.Imports)
	assert.GreaterOrEqual(t, summary.Complexity, 2)
}

func TestExtract_SkipsSectionAndOtherKinds(t *testing.T) {
	chunks := []chunk.Chunk{
		{Metadata: &chunk.Metadata{Kind: chunk.KindSection, Name: "Intro"}},
		{Metadata: &chunk.Metadata{Kind: chunk.KindOther, Name: "blob"}},
	}
	summary := Extract("README.md", "# Intro\n", chunks)
	assert.Empty(t, summary.Symbols)
}

func TestHasDocstring(t *testing.T) {
	assert.False(t, HasDocstring(""))
	assert.False(t, HasDocstring("  hi "))
	assert.True(t, HasDocstring("Computes the thing carefully."))
}
