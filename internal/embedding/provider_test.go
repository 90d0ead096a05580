package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingProvider errors on any text containing "bad", otherwise delegates
// to a MockProvider — used to exercise partial-failure isolation.
type failingProvider struct {
	inner *MockProvider
}

func (f *failingProvider) Dimensions() int { return f.inner.Dimensions() }
func (f *failingProvider) Close() error    { return nil }

func (f *failingProvider) Embed(ctx context.Context, texts []string, mode Mode) ([][]float32, error) {
	for _, t := range texts {
		if t == "bad" {
			return nil, errors.New("simulated failure")
		}
	}
	return f.inner.Embed(ctx, texts, mode)
}

// wrongDimProvider succeeds wholesale but returns a vector of the wrong
// length for any text equal to "short", used to exercise isolation of a
// bad-dimension vector inside an otherwise-successful bulk call.
type wrongDimProvider struct {
	inner *MockProvider
}

func (w *wrongDimProvider) Dimensions() int { return w.inner.Dimensions() }
func (w *wrongDimProvider) Close() error    { return nil }

func (w *wrongDimProvider) Embed(ctx context.Context, texts []string, mode Mode) ([][]float32, error) {
	vectors, err := w.inner.Embed(ctx, texts, mode)
	if err != nil {
		return nil, err
	}
	for i, t := range texts {
		if t == "short" {
			vectors[i] = vectors[i][:len(vectors[i])-1]
		}
	}
	return vectors, nil
}

func TestEmbedBatch_EmptyInput(t *testing.T) {
	p := NewMockProvider()
	result, err := EmbedBatch(context.Background(), p, nil, ModePassage, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Vectors)
}

func TestEmbedBatch_AllSucceed(t *testing.T) {
	p := NewMockProvider()
	texts := []string{"a", "b", "c"}

	result, err := EmbedBatch(context.Background(), p, texts, ModePassage, nil)
	require.NoError(t, err)
	assert.Len(t, result.Vectors, 3)
	assert.Equal(t, []int{0, 1, 2}, result.SuccessIndices)
	assert.Equal(t, 0, result.FailedCount)
}

func TestEmbedBatch_IsolatesSingleFailure(t *testing.T) {
	p := &failingProvider{inner: NewMockProvider()}
	texts := []string{"good1", "bad", "good2"}

	result, err := EmbedBatch(context.Background(), p, texts, ModePassage, nil)
	require.NoError(t, err)
	assert.Len(t, result.Vectors, 2)
	assert.Equal(t, []int{0, 2}, result.SuccessIndices)
	assert.Equal(t, 1, result.FailedCount)
}

func TestEmbedBatch_ProgressCallbackReachesTotal(t *testing.T) {
	p := NewMockProvider()
	texts := []string{"a", "b", "c", "d"}

	var lastCompleted, lastTotal int
	onProgress := func(completed, total int) {
		lastCompleted = completed
		lastTotal = total
	}

	_, err := EmbedBatch(context.Background(), p, texts, ModePassage, onProgress)
	require.NoError(t, err)
	assert.Equal(t, 4, lastCompleted)
	assert.Equal(t, 4, lastTotal)
}

func TestEmbedBatch_SplitsAcrossMultipleInternalBatches(t *testing.T) {
	p := NewMockProvider()
	texts := make([]string, DefaultBatchSize+5)
	for i := range texts {
		texts[i] = string(rune('a' + (i % 26)))
	}

	result, err := EmbedBatch(context.Background(), p, texts, ModePassage, nil)
	require.NoError(t, err)
	assert.Len(t, result.Vectors, len(texts))
	assert.Len(t, result.SuccessIndices, len(texts))
}

func TestEmbedBatch_DimensionMismatchIsolatesOnlyThatVector(t *testing.T) {
	p := &wrongDimProvider{inner: NewMockProvider()}
	texts := []string{"good1", "short", "good2"}

	result, err := EmbedBatch(context.Background(), p, texts, ModePassage, nil)
	require.NoError(t, err)
	assert.Len(t, result.Vectors, 2)
	assert.Equal(t, []int{0, 2}, result.SuccessIndices)
	assert.Equal(t, 1, result.FailedCount)
}

func TestEmbedBatch_DimensionMismatchAcrossMultipleSubBatchesKeepsEarlierSuccesses(t *testing.T) {
	p := &wrongDimProvider{inner: NewMockProvider()}
	texts := make([]string, DefaultBatchSize+3)
	for i := range texts {
		texts[i] = string(rune('a' + (i % 26)))
	}
	// Put the bad-dimension text in the second internal sub-batch, so a
	// hard failure there would previously have discarded every vector
	// already accumulated from the first sub-batch.
	texts[DefaultBatchSize+1] = "short"

	result, err := EmbedBatch(context.Background(), p, texts, ModePassage, nil)
	require.NoError(t, err)
	assert.Len(t, result.Vectors, len(texts)-1)
	assert.Equal(t, 1, result.FailedCount)
}

func TestEmbedBatch_NoPlaceholderVectorsOnFailure(t *testing.T) {
	p := &failingProvider{inner: NewMockProvider()}
	texts := []string{"bad"}

	result, err := EmbedBatch(context.Background(), p, texts, ModePassage, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Vectors)
	assert.Empty(t, result.SuccessIndices)
	assert.Equal(t, 1, result.FailedCount)
}
