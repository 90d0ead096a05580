// Package diff implements the FIFO multiset matching algorithm that turns
// a file's old and newly re-chunked text into an unchanged/moved/added/
// removed partition.
package diff

import "github.com/blakazulu/search-mcp-sub002/internal/chunk"

// ExistingChunk is a previously indexed chunk, carrying the vector-store
// identity the diff must try to preserve.
type ExistingChunk struct {
	ID        string
	ChunkHash string
	StartLine int
	EndLine   int
}

// Unchanged is an existing chunk whose text and line span both matched a
// new chunk exactly: no re-embedding, no line-range update needed.
type Unchanged struct {
	ID  string
	New chunk.Chunk
}

// Moved is an existing chunk whose text matched but line span did not:
// the vector and id are preserved, only the stored line range changes.
type Moved struct {
	ID  string
	New chunk.Chunk
}

// Added is a new chunk with no matching prior text; it gets a fresh id
// and must be embedded.
type Added struct {
	New chunk.Chunk
}

// Removed is a prior chunk with no corresponding new chunk; it must be
// deleted from the vector store and FTS index.
type Removed struct {
	ID string
}

// Result is the full partition produced by Compute.
type Result struct {
	Unchanged []Unchanged
	Moved     []Moved
	Added     []Added
	Removed   []Removed
}

// Compute buckets existingChunks by ChunkHash into FIFO queues, then
// matches each newChunk in order: same hash + same line span is
// unchanged, same hash alone is moved (preserving id, losing only its
// line range), otherwise added. Anything left in the buckets afterward is
// removed.
func Compute(existingChunks []ExistingChunk, newChunks []chunk.Chunk) Result {
	buckets := make(map[string][]ExistingChunk, len(existingChunks))
	for _, ec := range existingChunks {
		buckets[ec.ChunkHash] = append(buckets[ec.ChunkHash], ec)
	}

	var result Result

	for _, nc := range newChunks {
		queue := buckets[nc.ChunkHash]
		if len(queue) == 0 {
			result.Added = append(result.Added, Added{New: nc})
			continue
		}

		// Prefer an exact line-span match within the bucket so unrelated
		// duplicate-text chunks don't steal each other's "unchanged" status,
		// while still honoring FIFO order among equally-good candidates.
		matchIdx := -1
		for i, ec := range queue {
			if ec.StartLine == nc.StartLine && ec.EndLine == nc.EndLine {
				matchIdx = i
				break
			}
		}

		if matchIdx == 0 {
			ec := queue[0]
			buckets[nc.ChunkHash] = queue[1:]
			result.Unchanged = append(result.Unchanged, Unchanged{ID: ec.ID, New: nc})
			continue
		}
		if matchIdx > 0 {
			ec := queue[matchIdx]
			buckets[nc.ChunkHash] = append(append([]ExistingChunk{}, queue[:matchIdx]...), queue[matchIdx+1:]...)
			result.Unchanged = append(result.Unchanged, Unchanged{ID: ec.ID, New: nc})
			continue
		}

		ec := queue[0]
		buckets[nc.ChunkHash] = queue[1:]
		result.Moved = append(result.Moved, Moved{ID: ec.ID, New: nc})
	}

	for _, queue := range buckets {
		for _, ec := range queue {
			result.Removed = append(result.Removed, Removed{ID: ec.ID})
		}
	}

	return result
}

// ShouldUseIncremental reports whether the new chunk count is large
// enough to make the diffing overhead worthwhile.
func ShouldUseIncremental(newChunkCount int) bool {
	return newChunkCount > 3
}

// WasIncrementalWorthwhile reports, post-hoc, whether the diff saved at
// least 25% of embeddings versus re-embedding every new chunk.
func WasIncrementalWorthwhile(r Result) bool {
	total := len(r.Unchanged) + len(r.Moved) + len(r.Added)
	if total == 0 {
		return false
	}
	saved := len(r.Unchanged) + len(r.Moved)
	return float64(saved)/float64(total) >= 0.25
}
