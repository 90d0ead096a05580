// Package docs implements a parallel, simpler sibling of the index
// manager scoped to markdown/text files only, with its own vector store
// and fingerprint map. It drops FTS — documentation search here is
// vector-only — and the AST/code-aware chunking paths a doc file never
// takes.
package docs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/blakazulu/search-mcp-sub002/internal/chunk"
	"github.com/blakazulu/search-mcp-sub002/internal/diff"
	"github.com/blakazulu/search-mcp-sub002/internal/embedding"
	"github.com/blakazulu/search-mcp-sub002/internal/fingerprint"
	"github.com/blakazulu/search-mcp-sub002/internal/policy"
	"github.com/blakazulu/search-mcp-sub002/internal/vectorstore"
)

// Stats is the docs pipeline's own statistics bag, distinct from the
// code index's.
type Stats struct {
	TotalDocFiles int
	TotalChunks   int
	StorageBytes  int64
}

// Result summarizes one Index or UpdateFile run.
type Result struct {
	FilesProcessed int
	ChunksAdded    int
	ChunksUpdated  int
	ChunksRemoved  int
	Errors         []string
	Duration       time.Duration
}

// Pipeline indexes a project's documentation files independently of its
// code index.
type Pipeline struct {
	rootDir      string
	pol          *policy.Policy
	chunker      *chunk.Chunker
	fingerprints *fingerprint.Store
	vectors      vectorstore.Store
	embedder     embedding.Provider
}

// New builds a Pipeline. chunker should be configured with the prose
// presets; vectors and fingerprints must be distinct instances from the
// code index's.
func New(rootDir string, pol *policy.Policy, chunker *chunk.Chunker, fingerprints *fingerprint.Store, vectors vectorstore.Store, embedder embedding.Provider) *Pipeline {
	return &Pipeline{rootDir: rootDir, pol: pol, chunker: chunker, fingerprints: fingerprints, vectors: vectors, embedder: embedder}
}

// docPaths walks the project and keeps only files IsDocFile accepts.
func (p *Pipeline) docPaths() ([]string, error) {
	all, err := p.pol.Walk(p.rootDir)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(all))
	for _, rel := range all {
		if chunk.IsDocFile(rel) {
			out = append(out, rel)
		}
	}
	return out, nil
}

// Index performs a full scan/chunk/embed/store pass over the project's
// documentation files, skipping any whose content hash is unchanged.
func (p *Pipeline) Index(ctx context.Context) (Result, error) {
	start := time.Now()
	files, err := p.docPaths()
	if err != nil {
		return Result{}, fmt.Errorf("docs: scan: %w", err)
	}

	result := Result{}
	observed := make(map[string]bool, len(files))
	for _, rel := range files {
		observed[rel] = true
		added, updated, removed, perr := p.processFile(ctx, rel)
		if perr != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", rel, perr))
			continue
		}
		result.FilesProcessed++
		result.ChunksAdded += added
		result.ChunksUpdated += updated
		result.ChunksRemoved += removed
	}

	for _, tracked := range p.fingerprints.Paths() {
		if observed[tracked] {
			continue
		}
		if err := p.removeFile(ctx, tracked); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", tracked, err))
			continue
		}
		result.ChunksRemoved++
	}

	if err := p.fingerprints.Persist(); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("persist fingerprints: %v", err))
	}
	result.Duration = time.Since(start)
	return result, nil
}

// UpdateFile re-chunks and re-embeds one doc file, or removes it if it
// is no longer a recognized doc file or no longer exists.
func (p *Pipeline) UpdateFile(ctx context.Context, relPath string) error {
	if !chunk.IsDocFile(relPath) {
		return p.RemoveFile(ctx, relPath)
	}
	if _, _, _, err := p.processFile(ctx, relPath); err != nil {
		return err
	}
	return p.fingerprints.Persist()
}

// RemoveFile deletes relPath's chunks and fingerprint.
func (p *Pipeline) RemoveFile(ctx context.Context, relPath string) error {
	if err := p.removeFile(ctx, relPath); err != nil {
		return err
	}
	return p.fingerprints.Persist()
}

func (p *Pipeline) removeFile(ctx context.Context, relPath string) error {
	if err := p.vectors.DeleteByPath(ctx, relPath); err != nil {
		return fmt.Errorf("docs: delete %s: %w", relPath, err)
	}
	p.fingerprints.Delete(relPath)
	return nil
}

func (p *Pipeline) processFile(ctx context.Context, relPath string) (added, updated, removed int, err error) {
	absPath := filepath.Join(p.rootDir, relPath)
	info, statErr := os.Stat(absPath)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return 0, 0, 0, p.removeFile(ctx, relPath)
		}
		return 0, 0, 0, statErr
	}

	data, readErr := os.ReadFile(absPath)
	if readErr != nil {
		return 0, 0, 0, fmt.Errorf("docs: read %s: %w", relPath, readErr)
	}
	text := string(data)
	contentHash := chunk.ContentHash(text)

	if prev, ok := p.fingerprints.Get(relPath); ok && prev.ContentHash == contentHash {
		return 0, 0, 0, nil
	}

	newChunks := p.chunker.Chunk(relPath, text)

	existingRecords, getErr := p.vectors.GetByPath(ctx, relPath)
	if getErr != nil {
		return 0, 0, 0, fmt.Errorf("docs: get existing chunks for %s: %w", relPath, getErr)
	}
	recordsByID := make(map[string]vectorstore.Record, len(existingRecords))
	existingChunks := make([]diff.ExistingChunk, 0, len(existingRecords))
	for _, r := range existingRecords {
		recordsByID[r.ChunkID] = r
		existingChunks = append(existingChunks, diff.ExistingChunk{
			ID: r.ChunkID, ChunkHash: r.ChunkHash, StartLine: r.StartLine, EndLine: r.EndLine,
		})
	}

	diffResult := diff.Compute(existingChunks, newChunks)

	var upserts []vectorstore.Record
	for _, mv := range diffResult.Moved {
		prev := recordsByID[mv.ID]
		upserts = append(upserts, vectorstore.Record{
			ChunkID: mv.ID, Path: relPath, Embedding: prev.Embedding,
			StartLine: mv.New.StartLine, EndLine: mv.New.EndLine,
			ChunkHash: mv.New.ChunkHash, Text: mv.New.Text,
		})
	}
	updated = len(diffResult.Moved)

	if len(diffResult.Added) > 0 {
		texts := make([]string, len(diffResult.Added))
		for i, a := range diffResult.Added {
			texts[i] = a.New.Text
		}
		batch, embErr := embedding.EmbedBatch(ctx, p.embedder, texts, embedding.ModePassage, nil)
		if embErr != nil {
			return 0, 0, 0, fmt.Errorf("docs: embed %s: %w", relPath, embErr)
		}
		successAt := make(map[int]bool, len(batch.SuccessIndices))
		for _, idx := range batch.SuccessIndices {
			successAt[idx] = true
		}
		vecAt := 0
		for i, a := range diffResult.Added {
			if !successAt[i] {
				continue
			}
			upserts = append(upserts, vectorstore.Record{
				ChunkID: a.New.ID, Path: relPath, Embedding: batch.Vectors[vecAt],
				StartLine: a.New.StartLine, EndLine: a.New.EndLine,
				ChunkHash: a.New.ChunkHash, Text: a.New.Text,
			})
			vecAt++
			added++
		}
	}

	removedIDs := make([]string, 0, len(diffResult.Removed))
	for _, r := range diffResult.Removed {
		removedIDs = append(removedIDs, r.ID)
	}
	removed = len(removedIDs)

	if len(upserts) > 0 {
		if err := p.vectors.Upsert(ctx, upserts); err != nil {
			return 0, 0, 0, fmt.Errorf("docs: upsert %s: %w", relPath, err)
		}
	}
	if len(removedIDs) > 0 {
		if err := p.vectors.DeleteByIDs(ctx, removedIDs); err != nil {
			return 0, 0, 0, fmt.Errorf("docs: delete ids for %s: %w", relPath, err)
		}
	}

	p.fingerprints.Set(relPath, fingerprint.Entry{
		ContentHash: contentHash, Mtime: info.ModTime(), Size: info.Size(),
	})

	return added, updated, removed, nil
}

// GetStats reports the docs pipeline's current size.
func (p *Pipeline) GetStats(ctx context.Context) (Stats, error) {
	chunks, err := p.vectors.CountChunks(ctx)
	if err != nil {
		return Stats{}, err
	}
	storageBytes, err := p.vectors.StorageSize(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		TotalDocFiles: len(p.fingerprints.Paths()),
		TotalChunks:   chunks,
		StorageBytes:  storageBytes,
	}, nil
}
