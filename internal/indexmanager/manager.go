// Package indexmanager implements the index orchestrator: scan, chunk,
// diff, embed, and store for a full index pass, plus the single-file
// add/modify/remove and batched delta-apply operations that a file
// watcher or integrity reconciler drives.
package indexmanager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blakazulu/search-mcp-sub002/internal/chunk"
	"github.com/blakazulu/search-mcp-sub002/internal/diff"
	"github.com/blakazulu/search-mcp-sub002/internal/embedding"
	"github.com/blakazulu/search-mcp-sub002/internal/fingerprint"
	"github.com/blakazulu/search-mcp-sub002/internal/fts"
	"github.com/blakazulu/search-mcp-sub002/internal/metadata"
	"github.com/blakazulu/search-mcp-sub002/internal/policy"
	"github.com/blakazulu/search-mcp-sub002/internal/progressreporter"
	"github.com/blakazulu/search-mcp-sub002/internal/vectorstore"
)

// FileBatchSize bounds how many files a full index processes between
// progress reports, so a caller watching progress sees steady updates
// across a large project.
const FileBatchSize = 50

// ErrIndexingActive is returned by updateFile/removeFile/applyDelta/
// rebuildIndex when a full index or reconcile already holds the
// indexingActive gate.
var ErrIndexingActive = errors.New("indexmanager: indexing already in progress")

// IndexResult summarizes one createIndex, rebuildIndex, or applyDelta run.
type IndexResult struct {
	FilesProcessed int
	ChunksAdded    int
	ChunksUpdated  int
	ChunksRemoved  int
	Errors         []string
	Duration       time.Duration
}

// Stats reports the current index's size across its backing stores.
type Stats struct {
	TotalFiles   int
	TotalChunks  int
	StorageBytes int64
	FtsChunks    int
	FtsBytes     int64
}

// Delta is a batched add/modify/remove set, as produced by an integrity
// engine's drift calculation.
type Delta struct {
	Added    []string
	Modified []string
	Removed  []string
}

// VectorStoreFactory opens (creating if needed) a vector store backed by
// the file at dbPath, sized for dimensions-wide embeddings.
type VectorStoreFactory func(dbPath string, dimensions int) (vectorstore.Store, error)

// StagedRebuildConfig switches CreateIndex (and therefore RebuildIndex)
// from mutating the live vector store and FTS engine file-by-file to a
// two-phase build: the new index is assembled in a staging directory and
// only swapped into place once it's complete, so a concurrent reader or
// searcher never observes a half-built index.
type StagedRebuildConfig struct {
	// IndexDir is the directory the live vector store and FTS engine
	// files live in; the staging directory is created inside it.
	IndexDir string
	// VectorDBFileName names the vector store's file within IndexDir.
	VectorDBFileName string
	// FTSPreference is the "auto"/"js"/"native" engine preference passed
	// to fts.New when opening the staged FTS engine.
	FTSPreference string
	// NewVectorStore opens a vector store at a given path. Defaults to
	// vectorstore.NewSQLiteStore when left nil.
	NewVectorStore VectorStoreFactory
}

func defaultVectorStoreFactory(dbPath string, dimensions int) (vectorstore.Store, error) {
	return vectorstore.NewSQLiteStore(dbPath, dimensions)
}

// Manager orchestrates one project's index across its chunker, vector
// store, FTS engine, embedding provider, and fingerprint map.
type Manager struct {
	rootDir      string
	pol          *policy.Policy
	chunker      *chunk.Chunker
	fingerprints *fingerprint.Store
	vectors      vectorstore.Store
	fts          fts.Engine
	embedder     embedding.Provider
	meta         *metadata.Store
	modelName    string
	staging      *StagedRebuildConfig

	indexingActive atomic.Bool
	pathLocks      sync.Map // path -> *sync.Mutex
}

// New builds a Manager from its already-constructed collaborators;
// wiring together the concrete Policy/Chunker/Store/Engine/Provider is
// the caller's responsibility (typically a cmd/ entrypoint).
func New(rootDir string, pol *policy.Policy, chunker *chunk.Chunker, fingerprints *fingerprint.Store, vectors vectorstore.Store, ftsEngine fts.Engine, embedder embedding.Provider) *Manager {
	return &Manager{
		rootDir:      rootDir,
		pol:          pol,
		chunker:      chunker,
		fingerprints: fingerprints,
		vectors:      vectors,
		fts:          ftsEngine,
		embedder:     embedder,
	}
}

// SetMetadataStore attaches the index metadata store this Manager updates
// after each full index or incremental run, stamped with modelName
// (advisory, recorded alongside the rest of the metadata snapshot).
// Metadata tracking is optional: a Manager with no store attached simply
// skips recording it.
func (m *Manager) SetMetadataStore(store *metadata.Store, modelName string) {
	m.meta = store
	m.modelName = modelName
}

// EnableStagedRebuild attaches a StagedRebuildConfig, switching CreateIndex
// from its default in-place full scan to a staged build-then-swap. A
// Manager with no config attached keeps the original in-place behavior.
func (m *Manager) EnableStagedRebuild(cfg StagedRebuildConfig) {
	if cfg.VectorDBFileName == "" {
		cfg.VectorDBFileName = "vec.db"
	}
	if cfg.FTSPreference == "" {
		cfg.FTSPreference = "auto"
	}
	if cfg.NewVectorStore == nil {
		cfg.NewVectorStore = defaultVectorStoreFactory
	}
	m.staging = &cfg
}

// SetIndexingActive raises or lowers the mutual-exclusion gate an
// integrity reconciler checks before running.
func (m *Manager) SetIndexingActive(active bool) {
	m.indexingActive.Store(active)
}

// IsIndexingActive reports the current gate state.
func (m *Manager) IsIndexingActive() bool {
	return m.indexingActive.Load()
}

func (m *Manager) lockPath(relPath string) func() {
	lockAny, _ := m.pathLocks.LoadOrStore(relPath, &sync.Mutex{})
	lock := lockAny.(*sync.Mutex)
	lock.Lock()
	return lock.Unlock
}

// IsIndexed reports whether this project has any indexed chunks yet.
func (m *Manager) IsIndexed(ctx context.Context) (bool, error) {
	count, err := m.vectors.CountChunks(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetStats reports the current index's size across its backing stores.
func (m *Manager) GetStats(ctx context.Context) (Stats, error) {
	chunks, err := m.vectors.CountChunks(ctx)
	if err != nil {
		return Stats{}, err
	}
	storageBytes, err := m.vectors.StorageSize(ctx)
	if err != nil {
		return Stats{}, err
	}
	ftsStats, err := m.fts.GetStats(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		TotalFiles:   len(m.fingerprints.Paths()),
		TotalChunks:  chunks,
		StorageBytes: storageBytes,
		FtsChunks:    ftsStats.TotalChunks,
		FtsBytes:     ftsStats.IndexBytes,
	}, nil
}

// DeleteIndex removes every indexed file from the vector store, the FTS
// engine, and the fingerprint map, leaving an empty index behind.
func (m *Manager) DeleteIndex(ctx context.Context) error {
	paths, err := m.vectors.GetIndexedFiles(ctx)
	if err != nil {
		return err
	}
	for _, p := range paths {
		if err := m.vectors.DeleteByPath(ctx, p); err != nil {
			return err
		}
		if err := m.fts.RemoveByPath(ctx, p); err != nil {
			return err
		}
		m.fingerprints.Delete(p)
	}
	return m.fingerprints.Persist()
}

// CreateIndex performs a full scan, chunk, embed, and store pass over the
// project root, reporting progress through onProgress (which may be nil).
// A file whose content hash matches its stored fingerprint is skipped
// entirely, so a no-op rebuild issues zero embedding calls. When a
// StagedRebuildConfig has been attached via EnableStagedRebuild, the new
// index is built in a staging directory and swapped into place atomically
// once complete; otherwise the live vector store and FTS engine are
// mutated file-by-file in place.
func (m *Manager) CreateIndex(ctx context.Context, onProgress progressreporter.Func) (IndexResult, error) {
	if !m.indexingActive.CompareAndSwap(false, true) {
		return IndexResult{}, ErrIndexingActive
	}
	defer m.indexingActive.Store(false)

	if m.staging != nil {
		return m.createIndexStaged(ctx, onProgress)
	}
	return m.createIndexInPlace(ctx, onProgress)
}

// RebuildIndex forces a full from-scratch reprocessing of every file,
// discarding all fingerprint-tracked state first so no file is skipped as
// unchanged, then runs exactly the same build CreateIndex would (staged,
// if configured).
func (m *Manager) RebuildIndex(ctx context.Context, onProgress progressreporter.Func) (IndexResult, error) {
	if m.indexingActive.Load() {
		return IndexResult{}, ErrIndexingActive
	}
	m.fingerprints.ReplaceAll(map[string]fingerprint.Entry{})
	return m.CreateIndex(ctx, onProgress)
}

func (m *Manager) createIndexInPlace(ctx context.Context, onProgress progressreporter.Func) (IndexResult, error) {
	start := time.Now()
	report(onProgress, progressreporter.PhaseScanning, 0, 0, "")

	files, err := m.pol.Walk(m.rootDir)
	if err != nil {
		return IndexResult{}, fmt.Errorf("indexmanager: scan: %w", err)
	}

	result := IndexResult{}
	for i := 0; i < len(files); i++ {
		relPath := files[i]
		report(onProgress, progressreporter.PhaseChunking, i+1, len(files), relPath)

		added, updated, removed, perr := m.processFile(ctx, relPath)
		if perr != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", relPath, perr))
			continue
		}
		result.FilesProcessed++
		result.ChunksAdded += added
		result.ChunksUpdated += updated
		result.ChunksRemoved += removed

		if (i+1)%FileBatchSize == 0 {
			report(onProgress, progressreporter.PhaseStoring, i+1, len(files), relPath)
			if err := m.fingerprints.Persist(); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("persist fingerprints: %v", err))
			}
		}
	}

	report(onProgress, progressreporter.PhaseFinalizing, len(files), len(files), "")

	// Anything tracked in fingerprints but absent from this scan no longer
	// exists on disk and must be removed from both indexes.
	observed := make(map[string]bool, len(files))
	for _, f := range files {
		observed[f] = true
	}
	for _, tracked := range m.fingerprints.Paths() {
		if observed[tracked] {
			continue
		}
		if err := m.removeFileLocked(ctx, tracked); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", tracked, err))
			continue
		}
		result.ChunksRemoved++
	}

	if err := m.fingerprints.Persist(); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("persist fingerprints: %v", err))
	}

	if err := m.recordMetadata(ctx, true); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("persist metadata: %v", err))
	}

	result.Duration = time.Since(start)
	return result, nil
}

// createIndexStaged builds a complete new index in a staging directory
// under the configured IndexDir, then swaps the new vector store and FTS
// engine files into place and reopens live handles at the canonical
// paths. Unchanged files are carried forward from the live store without
// re-embedding, preserving the no-op-rebuild guarantee; added or modified
// files are re-chunked and embedded directly into the staged stores.
func (m *Manager) createIndexStaged(ctx context.Context, onProgress progressreporter.Func) (IndexResult, error) {
	cfg := m.staging

	stagingDir := filepath.Join(cfg.IndexDir, fmt.Sprintf(".staging-%d", time.Now().UnixNano()))
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return IndexResult{}, fmt.Errorf("indexmanager: create staging dir: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	report(onProgress, progressreporter.PhaseScanning, 0, 0, "")
	files, err := m.pol.Walk(m.rootDir)
	if err != nil {
		return IndexResult{}, fmt.Errorf("indexmanager: scan: %w", err)
	}

	stagedVectorPath := filepath.Join(stagingDir, cfg.VectorDBFileName)
	newVS, err := cfg.NewVectorStore(stagedVectorPath, m.embedder.Dimensions())
	if err != nil {
		return IndexResult{}, fmt.Errorf("indexmanager: open staged vector store: %w", err)
	}

	newFTS, _, err := fts.New(cfg.FTSPreference, stagingDir, len(files))
	if err != nil {
		newVS.Close()
		return IndexResult{}, fmt.Errorf("indexmanager: open staged fts engine: %w", err)
	}

	result, newFingerprints, err := m.buildFreshIndex(ctx, onProgress, files, newVS, newFTS)
	if err != nil {
		newVS.Close()
		newFTS.Close()
		return IndexResult{}, err
	}

	if err := newVS.Close(); err != nil {
		newFTS.Close()
		return IndexResult{}, fmt.Errorf("indexmanager: close staged vector store: %w", err)
	}
	if err := m.vectors.Close(); err != nil {
		newFTS.Close()
		return IndexResult{}, fmt.Errorf("indexmanager: close live vector store: %w", err)
	}

	liveVectorPath := filepath.Join(cfg.IndexDir, cfg.VectorDBFileName)
	if err := swapSQLiteFile(stagedVectorPath, liveVectorPath); err != nil {
		newFTS.Close()
		return IndexResult{}, fmt.Errorf("indexmanager: swap vector store: %w", err)
	}
	reopenedVS, err := cfg.NewVectorStore(liveVectorPath, m.embedder.Dimensions())
	if err != nil {
		newFTS.Close()
		return IndexResult{}, fmt.Errorf("indexmanager: reopen vector store: %w", err)
	}
	m.vectors = reopenedVS

	if newFTS.EngineType() == fts.EngineNative {
		if err := newFTS.Close(); err != nil {
			return IndexResult{}, fmt.Errorf("indexmanager: close staged fts engine: %w", err)
		}
		if err := m.fts.Close(); err != nil {
			return IndexResult{}, fmt.Errorf("indexmanager: close live fts engine: %w", err)
		}
		stagedFTSPath := filepath.Join(stagingDir, fts.NativeDBFileName)
		liveFTSPath := filepath.Join(cfg.IndexDir, fts.NativeDBFileName)
		if err := swapSQLiteFile(stagedFTSPath, liveFTSPath); err != nil {
			return IndexResult{}, fmt.Errorf("indexmanager: swap fts engine: %w", err)
		}
		reopenedFTS, err := fts.NewNative(liveFTSPath)
		if err != nil {
			return IndexResult{}, fmt.Errorf("indexmanager: reopen fts engine: %w", err)
		}
		m.fts = reopenedFTS
	} else {
		if err := m.fts.Close(); err != nil {
			return IndexResult{}, fmt.Errorf("indexmanager: close live fts engine: %w", err)
		}
		m.fts = newFTS
	}

	m.fingerprints.ReplaceAll(newFingerprints)
	if err := m.fingerprints.Persist(); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("persist fingerprints: %v", err))
	}
	if err := m.recordMetadata(ctx, true); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("persist metadata: %v", err))
	}
	return result, nil
}

// buildFreshIndex populates newVS/newFTS from scratch: a file whose
// content hash still matches the live fingerprint map is carried forward
// from the live store without re-embedding; everything else is
// re-chunked and embedded directly into the staged stores.
func (m *Manager) buildFreshIndex(ctx context.Context, onProgress progressreporter.Func, files []string, newVS vectorstore.Store, newFTS fts.Engine) (IndexResult, map[string]fingerprint.Entry, error) {
	start := time.Now()
	result := IndexResult{}
	newFingerprints := make(map[string]fingerprint.Entry, len(files))

	for i, relPath := range files {
		report(onProgress, progressreporter.PhaseChunking, i+1, len(files), relPath)

		absPath := filepath.Join(m.rootDir, relPath)
		info, statErr := os.Stat(absPath)
		if statErr != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", relPath, statErr))
			continue
		}
		data, readErr := os.ReadFile(absPath)
		if readErr != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", relPath, readErr))
			continue
		}
		text := string(data)
		contentHash := chunk.ContentHash(text)

		if prev, ok := m.fingerprints.Get(relPath); ok && prev.ContentHash == contentHash {
			if _, cfErr := m.carryForward(ctx, relPath, newVS, newFTS); cfErr != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", relPath, cfErr))
				continue
			}
		} else {
			n, esErr := m.embedAndStore(ctx, relPath, text, newVS, newFTS)
			if esErr != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", relPath, esErr))
				continue
			}
			result.ChunksAdded += n
		}

		result.FilesProcessed++
		newFingerprints[relPath] = fingerprint.Entry{ContentHash: contentHash, Mtime: info.ModTime(), Size: info.Size()}

		if (i+1)%FileBatchSize == 0 {
			report(onProgress, progressreporter.PhaseStoring, i+1, len(files), relPath)
		}
	}

	report(onProgress, progressreporter.PhaseFinalizing, len(files), len(files), "")
	result.Duration = time.Since(start)
	return result, newFingerprints, nil
}

// carryForward copies relPath's already-stored vector and FTS records
// from the live store into the staged store, without calling the
// embedding provider.
func (m *Manager) carryForward(ctx context.Context, relPath string, newVS vectorstore.Store, newFTS fts.Engine) (int, error) {
	records, err := m.vectors.GetByPath(ctx, relPath)
	if err != nil {
		return 0, fmt.Errorf("get existing records for %s: %w", relPath, err)
	}
	if len(records) == 0 {
		return 0, nil
	}
	if err := newVS.Upsert(ctx, records); err != nil {
		return 0, fmt.Errorf("carry forward vectors for %s: %w", relPath, err)
	}

	chunks := make([]chunk.Chunk, 0, len(records))
	for _, r := range records {
		chunks = append(chunks, chunk.Chunk{
			ID:        r.ChunkID,
			Path:      r.Path,
			Text:      r.Text,
			StartLine: r.StartLine,
			EndLine:   r.EndLine,
			ChunkHash: r.ChunkHash,
			Metadata: &chunk.Metadata{
				Kind:      chunk.Kind(r.ChunkType),
				Name:      r.ChunkName,
				Docstring: r.ChunkDocstring,
			},
		})
	}
	if err := newFTS.AddChunks(ctx, chunks); err != nil {
		return 0, fmt.Errorf("carry forward fts for %s: %w", relPath, err)
	}
	return len(records), nil
}

// embedAndStore re-chunks relPath's text, embeds every resulting chunk,
// and writes the successfully embedded ones into the staged store and FTS
// engine, isolating any per-chunk embedding failure.
func (m *Manager) embedAndStore(ctx context.Context, relPath, text string, newVS vectorstore.Store, newFTS fts.Engine) (int, error) {
	newChunks := m.chunker.Chunk(relPath, text)
	if len(newChunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(newChunks))
	for i, c := range newChunks {
		texts[i] = c.Text
	}
	batch, err := embedding.EmbedBatch(ctx, m.embedder, texts, embedding.ModePassage, nil)
	if err != nil {
		return 0, fmt.Errorf("embed %s: %w", relPath, err)
	}
	successAt := make(map[int]bool, len(batch.SuccessIndices))
	for _, idx := range batch.SuccessIndices {
		successAt[idx] = true
	}

	records := make([]vectorstore.Record, 0, len(batch.Vectors))
	stored := make([]chunk.Chunk, 0, len(batch.Vectors))
	vecAt := 0
	for i, c := range newChunks {
		if !successAt[i] {
			continue
		}
		records = append(records, vectorstore.Record{
			ChunkID:   c.ID,
			Path:      relPath,
			Embedding: batch.Vectors[vecAt],
			StartLine: c.StartLine,
			EndLine:   c.EndLine,
			ChunkHash: c.ChunkHash,
			Text:      c.Text,
		})
		stored = append(stored, c)
		vecAt++
	}
	if len(records) == 0 {
		return 0, nil
	}
	if err := newVS.Upsert(ctx, records); err != nil {
		return 0, fmt.Errorf("store vectors for %s: %w", relPath, err)
	}
	if err := newFTS.AddChunks(ctx, stored); err != nil {
		return 0, fmt.Errorf("store fts for %s: %w", relPath, err)
	}
	return len(records), nil
}

// swapSQLiteFile moves srcPath (and its -wal/-shm sidecars, when present)
// onto dstPath, removing any stale sidecar left behind by the file dstPath
// previously named.
func swapSQLiteFile(srcPath, dstPath string) error {
	for _, suffix := range []string{"", "-wal", "-shm"} {
		src := srcPath + suffix
		dst := dstPath + suffix
		if _, err := os.Stat(src); err != nil {
			if os.IsNotExist(err) {
				os.Remove(dst)
				continue
			}
			return fmt.Errorf("stat %s: %w", src, err)
		}
		if err := os.Rename(src, dst); err != nil {
			return fmt.Errorf("rename %s to %s: %w", src, dst, err)
		}
	}
	return nil
}

// UpdateFile re-chunks relPath, diffs against its existing indexed
// chunks, embeds only the added chunks, and writes the result. A missing
// file delegates to RemoveFile.
func (m *Manager) UpdateFile(ctx context.Context, relPath string) error {
	if m.indexingActive.Load() {
		return ErrIndexingActive
	}
	unlock := m.lockPath(relPath)
	defer unlock()

	if _, _, _, err := m.processFile(ctx, relPath); err != nil {
		return err
	}
	if err := m.fingerprints.Persist(); err != nil {
		return err
	}
	return m.recordMetadata(ctx, false)
}

// RemoveFile deletes relPath's chunks from the vector store and FTS
// index and forgets its fingerprint.
func (m *Manager) RemoveFile(ctx context.Context, relPath string) error {
	if m.indexingActive.Load() {
		return ErrIndexingActive
	}
	unlock := m.lockPath(relPath)
	defer unlock()

	if err := m.removeFileLocked(ctx, relPath); err != nil {
		return err
	}
	if err := m.fingerprints.Persist(); err != nil {
		return err
	}
	return m.recordMetadata(ctx, false)
}

func (m *Manager) removeFileLocked(ctx context.Context, relPath string) error {
	if err := m.vectors.DeleteByPath(ctx, relPath); err != nil {
		return fmt.Errorf("indexmanager: delete vectors for %s: %w", relPath, err)
	}
	if err := m.fts.RemoveByPath(ctx, relPath); err != nil {
		return fmt.Errorf("indexmanager: delete fts for %s: %w", relPath, err)
	}
	m.fingerprints.Delete(relPath)
	return nil
}

// ApplyDelta batches UpdateFile/RemoveFile across one drift result, as
// produced by an integrity engine's drift calculation.
func (m *Manager) ApplyDelta(ctx context.Context, delta Delta, onProgress progressreporter.Func) (IndexResult, error) {
	if !m.indexingActive.CompareAndSwap(false, true) {
		return IndexResult{}, ErrIndexingActive
	}
	defer m.indexingActive.Store(false)

	start := time.Now()
	var result IndexResult
	toUpdate := append(append([]string{}, delta.Added...), delta.Modified...)

	for i, relPath := range toUpdate {
		report(onProgress, progressreporter.PhaseAdding, i+1, len(toUpdate)+len(delta.Removed), relPath)
		unlock := m.lockPath(relPath)
		added, updated, removed, err := m.processFile(ctx, relPath)
		unlock()
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", relPath, err))
			continue
		}
		result.FilesProcessed++
		result.ChunksAdded += added
		result.ChunksUpdated += updated
		result.ChunksRemoved += removed
	}

	for i, relPath := range delta.Removed {
		report(onProgress, progressreporter.PhaseRemoving, len(toUpdate)+i+1, len(toUpdate)+len(delta.Removed), relPath)
		unlock := m.lockPath(relPath)
		err := m.removeFileLocked(ctx, relPath)
		unlock()
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", relPath, err))
			continue
		}
		result.FilesProcessed++
	}

	if err := m.fingerprints.Persist(); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("persist fingerprints: %v", err))
	}
	if err := m.recordMetadata(ctx, false); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("persist metadata: %v", err))
	}
	result.Duration = time.Since(start)
	return result, nil
}

// recordMetadata refreshes and persists the attached index metadata
// store, a no-op if none was attached via SetMetadataStore. isFull marks
// whether the caller just completed a full index pass rather than an
// incremental one.
func (m *Manager) recordMetadata(ctx context.Context, isFull bool) error {
	if m.meta == nil {
		return nil
	}
	stats, err := m.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("indexmanager: stats for metadata: %w", err)
	}
	if isFull {
		m.meta.RecordFullIndex(m.modelName, m.embedder.Dimensions(), stats.TotalFiles, stats.TotalChunks, stats.StorageBytes, string(m.fts.EngineType()))
	} else {
		m.meta.RecordIncrementalUpdate(stats.TotalFiles, stats.TotalChunks, stats.StorageBytes)
	}
	return m.meta.Persist()
}

// processFile is the shared per-file pipeline behind createIndexInPlace,
// updateFile, and applyDelta: short-circuit on an unchanged content hash,
// otherwise re-chunk, diff against the vector store's existing records,
// embed only the added chunks, and write vector/FTS/fingerprint state in
// that order so a mid-sequence failure leaves the fingerprint stale and
// the file eligible for re-examination on the next pass.
func (m *Manager) processFile(ctx context.Context, relPath string) (added, updated, removed int, err error) {
	absPath := filepath.Join(m.rootDir, relPath)
	info, statErr := os.Stat(absPath)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			if rmErr := m.removeFileLocked(ctx, relPath); rmErr != nil {
				return 0, 0, 0, rmErr
			}
			return 0, 0, 0, nil
		}
		return 0, 0, 0, statErr
	}

	data, readErr := os.ReadFile(absPath)
	if readErr != nil {
		return 0, 0, 0, fmt.Errorf("indexmanager: read %s: %w", relPath, readErr)
	}
	text := string(data)
	contentHash := chunk.ContentHash(text)

	if prev, ok := m.fingerprints.Get(relPath); ok && prev.ContentHash == contentHash {
		return 0, 0, 0, nil
	}

	newChunks := m.chunker.Chunk(relPath, text)

	existingRecords, getErr := m.vectors.GetByPath(ctx, relPath)
	if getErr != nil {
		return 0, 0, 0, fmt.Errorf("indexmanager: get existing chunks for %s: %w", relPath, getErr)
	}
	recordsByID := make(map[string]vectorstore.Record, len(existingRecords))
	existingChunks := make([]diff.ExistingChunk, 0, len(existingRecords))
	for _, r := range existingRecords {
		recordsByID[r.ChunkID] = r
		existingChunks = append(existingChunks, diff.ExistingChunk{
			ID:        r.ChunkID,
			ChunkHash: r.ChunkHash,
			StartLine: r.StartLine,
			EndLine:   r.EndLine,
		})
	}

	result := diff.Compute(existingChunks, newChunks)

	var upserts []vectorstore.Record
	currentChunks := make([]chunk.Chunk, 0, len(result.Unchanged)+len(result.Moved)+len(result.Added))
	for _, u := range result.Unchanged {
		currentChunks = append(currentChunks, withID(u.New, u.ID))
	}

	for _, mv := range result.Moved {
		prev := recordsByID[mv.ID]
		upserts = append(upserts, vectorstore.Record{
			ChunkID:   mv.ID,
			Path:      relPath,
			Embedding: prev.Embedding,
			StartLine: mv.New.StartLine,
			EndLine:   mv.New.EndLine,
			ChunkHash: mv.New.ChunkHash,
			Text:      mv.New.Text,
		})
		currentChunks = append(currentChunks, withID(mv.New, mv.ID))
	}
	updated = len(result.Moved)

	if len(result.Added) > 0 {
		texts := make([]string, len(result.Added))
		for i, a := range result.Added {
			texts[i] = a.New.Text
		}
		batch, embErr := embedding.EmbedBatch(ctx, m.embedder, texts, embedding.ModePassage, nil)
		if embErr != nil {
			return 0, 0, 0, fmt.Errorf("indexmanager: embed %s: %w", relPath, embErr)
		}
		successAt := make(map[int]bool, len(batch.SuccessIndices))
		for _, idx := range batch.SuccessIndices {
			successAt[idx] = true
		}
		vecAt := 0
		for i, a := range result.Added {
			if !successAt[i] {
				continue
			}
			rec := vectorstore.Record{
				ChunkID:   a.New.ID,
				Path:      relPath,
				Embedding: batch.Vectors[vecAt],
				StartLine: a.New.StartLine,
				EndLine:   a.New.EndLine,
				ChunkHash: a.New.ChunkHash,
				Text:      a.New.Text,
			}
			upserts = append(upserts, rec)
			currentChunks = append(currentChunks, withID(a.New, a.New.ID))
			vecAt++
			added++
		}
	}

	removedIDs := make([]string, 0, len(result.Removed))
	for _, r := range result.Removed {
		removedIDs = append(removedIDs, r.ID)
	}
	removed = len(removedIDs)

	if len(upserts) > 0 {
		if err := m.vectors.Upsert(ctx, upserts); err != nil {
			return 0, 0, 0, fmt.Errorf("indexmanager: upsert %s: %w", relPath, err)
		}
	}
	if len(removedIDs) > 0 {
		if err := m.vectors.DeleteByIDs(ctx, removedIDs); err != nil {
			return 0, 0, 0, fmt.Errorf("indexmanager: delete ids for %s: %w", relPath, err)
		}
	}

	if err := m.fts.RemoveByPath(ctx, relPath); err != nil {
		return 0, 0, 0, fmt.Errorf("indexmanager: fts remove %s: %w", relPath, err)
	}
	if len(currentChunks) > 0 {
		if err := m.fts.AddChunks(ctx, currentChunks); err != nil {
			return 0, 0, 0, fmt.Errorf("indexmanager: fts add %s: %w", relPath, err)
		}
	}

	m.fingerprints.Set(relPath, fingerprint.Entry{
		ContentHash: contentHash,
		Mtime:       info.ModTime(),
		Size:        info.Size(),
	})

	return added, updated, removed, nil
}

func withID(c chunk.Chunk, id string) chunk.Chunk {
	c.ID = id
	return c
}

func report(fn progressreporter.Func, phase progressreporter.Phase, current, total int, currentFile string) {
	if fn == nil {
		return
	}
	fn(progressreporter.Update{Phase: phase, Current: current, Total: total, CurrentFile: currentFile})
}
