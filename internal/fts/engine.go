// Package fts implements a pluggable lexical search engine: an in-memory
// BM25 index for small projects and a native SQLite FTS5 index for large
// ones, behind one Engine interface.
package fts

import (
	"context"
	"errors"

	"github.com/blakazulu/search-mcp-sub002/internal/chunk"
)

// EngineType names which lexical backend an Engine instance uses.
type EngineType string

const (
	EngineJS     EngineType = "js"
	EngineNative EngineType = "native"
)

// ErrNotAvailable is returned by NewNative when the native backend cannot
// be constructed at the given path (e.g. driver missing at build time).
var ErrNotAvailable = errors.New("fts: native engine not available")

// Result is one lexical match, scored and optionally snippeted.
type Result struct {
	ChunkID   string
	Path      string
	StartLine int
	EndLine   int
	Score     float64
	Snippet   string
}

// Stats reports size and health of an Engine's underlying index.
type Stats struct {
	TotalChunks int
	IndexBytes  int64
}

// SearchOptions narrows a lexical search by structured filters in
// addition to the free-text query string.
type SearchOptions struct {
	Limit     int
	ChunkType string
	Path      string
}

// Engine is the lexical search contract every backend satisfies.
type Engine interface {
	AddChunk(ctx context.Context, c chunk.Chunk) error
	AddChunks(ctx context.Context, chunks []chunk.Chunk) error
	Search(ctx context.Context, query string, opts SearchOptions) ([]Result, error)
	RemoveByPath(ctx context.Context, path string) error
	HasData(ctx context.Context) (bool, error)
	GetStats(ctx context.Context) (Stats, error)
	EngineType() EngineType
	// Serialize dumps the engine's full index to a portable byte stream,
	// and Deserialize restores it into a fresh, empty engine of the same
	// concrete type.
	Serialize(ctx context.Context) ([]byte, error)
	Deserialize(ctx context.Context, data []byte) error
	Close() error
}

// NormalizeScores rescales raw engine scores to [0, 1] by dividing by the
// maximum observed score, so lexical and vector result sets can be
// combined on a common scale.
func NormalizeScores(results []Result) []Result {
	if len(results) == 0 {
		return results
	}
	max := results[0].Score
	for _, r := range results[1:] {
		if r.Score > max {
			max = r.Score
		}
	}
	if max <= 0 {
		return results
	}
	out := make([]Result, len(results))
	for i, r := range results {
		r.Score = r.Score / max
		out[i] = r
	}
	return out
}

// AutoThreshold is the indexed-file count at or below which the factory
// prefers the in-memory engine over the native one.
const AutoThreshold = 5000

// NativeDBFileName is the file name a native engine's SQLite database is
// created at beneath an index directory.
const NativeDBFileName = "fts.sqlite"
