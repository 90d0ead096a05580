package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupportsASTChunking(t *testing.T) {
	assert.True(t, SupportsASTChunking("mod.py"))
	assert.True(t, SupportsASTChunking("app.ts"))
	assert.False(t, SupportsASTChunking("main.go"))
	assert.False(t, SupportsASTChunking("README.md"))
}

func TestASTChunker_PythonFunctionsAndClasses(t *testing.T) {
	src := "def add(a, b):\n    return a + b\n\n\nclass Greeter:\n    def hello(self):\n        return 'hi'\n"
	a := NewASTChunker(CodePreset())
	pieces, ok := a.Split("mod.py", src)
	require.True(t, ok)
	require.NotEmpty(t, pieces)

	var names []string
	for _, p := range pieces {
		if p.Metadata != nil {
			names = append(names, p.Metadata.Name)
		}
	}
	assert.Contains(t, names, "add")
	assert.Contains(t, names, "Greeter")
	assert.Contains(t, names, "hello")
}

func TestASTChunker_PythonMethodHasParentName(t *testing.T) {
	src := "class Greeter:\n    def hello(self):\n        return 'hi'\n"
	a := NewASTChunker(CodePreset())
	pieces, ok := a.Split("mod.py", src)
	require.True(t, ok)

	var method *Piece
	for i := range pieces {
		if pieces[i].Metadata != nil && pieces[i].Metadata.Kind == KindMethod {
			method = &pieces[i]
		}
	}
	require.NotNil(t, method)
	assert.Equal(t, "Greeter", method.Metadata.ParentName)
}

func TestASTChunker_UnsupportedLanguageFalls(t *testing.T) {
	a := NewASTChunker(CodePreset())
	_, ok := a.Split("main.go", "package main\n")
	assert.False(t, ok)
}
