package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockProvider_Deterministic(t *testing.T) {
	p := NewMockProvider()
	ctx := context.Background()

	v1, err := p.Embed(ctx, []string{"hello world"}, ModePassage)
	require.NoError(t, err)
	v2, err := p.Embed(ctx, []string{"hello world"}, ModePassage)
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
}

func TestMockProvider_DifferentTextsDiffer(t *testing.T) {
	p := NewMockProvider()
	ctx := context.Background()

	v1, err := p.Embed(ctx, []string{"alpha"}, ModePassage)
	require.NoError(t, err)
	v2, err := p.Embed(ctx, []string{"beta"}, ModePassage)
	require.NoError(t, err)

	assert.NotEqual(t, v1[0], v2[0])
}

func TestMockProvider_QueryAndPassageModeDiffer(t *testing.T) {
	p := NewMockProvider()
	ctx := context.Background()

	asQuery, err := p.Embed(ctx, []string{"search term"}, ModeQuery)
	require.NoError(t, err)
	asPassage, err := p.Embed(ctx, []string{"search term"}, ModePassage)
	require.NoError(t, err)

	assert.NotEqual(t, asQuery[0], asPassage[0])
}

func TestMockProvider_DimensionsMatchDeclared(t *testing.T) {
	p := NewMockProvider()
	ctx := context.Background()

	vecs, err := p.Embed(ctx, []string{"x"}, ModePassage)
	require.NoError(t, err)
	assert.Len(t, vecs[0], p.Dimensions())
}

func TestMockProvider_L2Normalized(t *testing.T) {
	p := NewMockProvider()
	ctx := context.Background()

	vecs, err := p.Embed(ctx, []string{"normalize me"}, ModePassage)
	require.NoError(t, err)

	var sumSquares float64
	for _, x := range vecs[0] {
		sumSquares += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSquares), 1e-4)
}

func TestMockProvider_EmbedBatchHandlesMultipleTexts(t *testing.T) {
	p := NewMockProvider()
	ctx := context.Background()

	vecs, err := p.Embed(ctx, []string{"one", "two", "three"}, ModePassage)
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.NotEqual(t, vecs[0], vecs[1])
	assert.NotEqual(t, vecs[1], vecs[2])
}

func TestL2Normalize_ZeroVectorUnchanged(t *testing.T) {
	v := make([]float32, 4)
	out := l2Normalize(v)
	assert.Equal(t, []float32{0, 0, 0, 0}, out)
}
