package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentHash_Deterministic(t *testing.T) {
	assert.Equal(t, ContentHash("abc"), ContentHash("abc"))
	assert.NotEqual(t, ContentHash("abc"), ContentHash("abd"))
}

func TestChunkHash_IgnoresWhitespaceReformatting(t *testing.T) {
	a := "func  Foo()   {\n\treturn\n}"
	b := "func Foo() {\nreturn\n}"
	assert.Equal(t, ChunkHash(a), ChunkHash(b))
}

func TestChunkHash_DetectsRealChange(t *testing.T) {
	assert.NotEqual(t, ChunkHash("func Foo() {}"), ChunkHash("func Bar() {}"))
}
