// Package embedding implements a fixed-dimension, L2-normalized vector
// provider with a process-wide lazily initialized singleton and batch
// partial-failure isolation.
package embedding

import (
	"context"
	"errors"
	"fmt"
)

// Mode specifies whether text is being embedded as a search query or as
// indexed passage content; BGE-style asymmetric models prepend an
// instruction prefix for queries only.
type Mode string

const (
	ModeQuery   Mode = "query"
	ModePassage Mode = "passage"
)

// DefaultBatchSize is the fixed batch size EmbedBatch uses internally.
const DefaultBatchSize = 32

// ErrDimensionMismatch names the failure of a provider yielding a vector
// whose length does not match its own declared Dimensions(). EmbedBatch
// does not return it: such a vector is dropped and counted as a failed
// slot.
var ErrDimensionMismatch = errors.New("embedding: dimension mismatch")

// Provider converts text into fixed-dimension, L2-normalized vectors.
type Provider interface {
	Embed(ctx context.Context, texts []string, mode Mode) ([][]float32, error)
	Dimensions() int
	Close() error
}

// BatchResult reports which input indices succeeded, in order, and how
// many failed — partial failures are skipped, never replaced with zero
// vectors.
type BatchResult struct {
	Vectors        [][]float32
	SuccessIndices []int
	FailedCount    int
}

// ProgressFunc is invoked after each completed text during a batch embed.
type ProgressFunc func(completed, total int)

// EmbedBatch embeds texts in fixed-size batches, validating each result's
// dimension and isolating per-text failures so one bad input does not
// fail the whole call.
func EmbedBatch(ctx context.Context, p Provider, texts []string, mode Mode, onProgress ProgressFunc) (BatchResult, error) {
	if len(texts) == 0 {
		return BatchResult{}, nil
	}

	dim := p.Dimensions()
	result := BatchResult{
		Vectors:        make([][]float32, 0, len(texts)),
		SuccessIndices: make([]int, 0, len(texts)),
	}

	completed := 0
	for start := 0; start < len(texts); start += DefaultBatchSize {
		end := start + DefaultBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		vectors, err := embedWithIsolation(ctx, p, batch, mode, dim)
		if err != nil {
			return BatchResult{}, err
		}

		for i, v := range vectors {
			completed++
			if onProgress != nil {
				onProgress(completed, len(texts))
			}
			if v == nil {
				result.FailedCount++
				continue
			}
			result.Vectors = append(result.Vectors, v)
			result.SuccessIndices = append(result.SuccessIndices, start+i)
		}
	}

	return result, nil
}

// embedWithIsolation calls the provider once for the whole sub-batch and,
// if it errors wholesale, falls back to embedding each text individually
// so a single bad input doesn't sink its siblings. A dimension mismatch
// on one vector within an otherwise-successful bulk call is likewise
// isolated to that slot rather than failing the whole sub-batch.
func embedWithIsolation(ctx context.Context, p Provider, texts []string, mode Mode, dim int) ([][]float32, error) {
	vectors, err := p.Embed(ctx, texts, mode)
	if err == nil {
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("embedding: provider returned %d vectors for %d inputs", len(vectors), len(texts))
		}
		for i, v := range vectors {
			if len(v) != dim {
				vectors[i] = nil
				continue
			}
		}
		return vectors, nil
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		single, singleErr := p.Embed(ctx, []string{text}, mode)
		if singleErr != nil || len(single) != 1 {
			out[i] = nil
			continue
		}
		if len(single[0]) != dim {
			out[i] = nil
			continue
		}
		out[i] = single[0]
	}
	return out, nil
}
