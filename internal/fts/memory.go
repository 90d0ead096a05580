package fts

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/blakazulu/search-mcp-sub002/internal/chunk"
)

// MemoryEngine is an in-memory BM25 lexical index backed by bleve,
// suitable for small-to-medium projects where keeping the whole index in
// process memory is cheaper than round-tripping through SQLite.
type MemoryEngine struct {
	mu    sync.RWMutex
	index bleve.Index
	// paths tracks which chunk IDs belong to which file, since bleve has
	// no native "delete by field value" operation.
	paths map[string]map[string]bool
	// lines holds the line span bleve itself doesn't store (it isn't part
	// of the search-scored text), keyed by chunk ID, so Search can still
	// report startLine/endLine.
	lines map[string][2]int
	// snapshot keeps the original chunk alongside the index, so Serialize
	// can dump a portable, bleve-version-independent record set and
	// Deserialize can rebuild the index by simply re-adding everything.
	snapshot map[string]chunk.Chunk
}

// NewMemory creates an empty in-memory lexical index.
func NewMemory() (*MemoryEngine, error) {
	index, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("fts: create in-memory index: %w", err)
	}
	return &MemoryEngine{
		index:    index,
		paths:    make(map[string]map[string]bool),
		lines:    make(map[string][2]int),
		snapshot: make(map[string]chunk.Chunk),
	}, nil
}

func buildMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	text := bleve.NewTextFieldMapping()
	text.Analyzer = "standard"
	text.Store = true
	text.IncludeTermVectors = true

	keyword := bleve.NewTextFieldMapping()
	keyword.Analyzer = "keyword"
	keyword.Store = true

	path := bleve.NewTextFieldMapping()
	path.Analyzer = "keyword"
	path.Store = true

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("text", text)
	doc.AddFieldMappingsAt("chunk_type", keyword)
	doc.AddFieldMappingsAt("path", path)

	im.DefaultMapping = doc
	return im
}

type memoryDoc struct {
	Text      string `json:"text"`
	ChunkType string `json:"chunk_type"`
	Path      string `json:"path"`
}

func (e *MemoryEngine) EngineType() EngineType { return EngineJS }

func (e *MemoryEngine) AddChunk(ctx context.Context, c chunk.Chunk) error {
	return e.AddChunks(ctx, []chunk.Chunk{c})
}

func (e *MemoryEngine) AddChunks(ctx context.Context, chunks []chunk.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	batch := e.index.NewBatch()
	for _, c := range chunks {
		kind := ""
		if c.Metadata != nil {
			kind = string(c.Metadata.Kind)
		}
		doc := memoryDoc{Text: c.Text, ChunkType: kind, Path: c.Path}
		if err := batch.Index(c.ID, doc); err != nil {
			return fmt.Errorf("fts: batch index chunk %s: %w", c.ID, err)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.index.Batch(batch); err != nil {
		return fmt.Errorf("fts: execute batch: %w", err)
	}
	for _, c := range chunks {
		e.trackPath(c.Path, c.ID)
		e.lines[c.ID] = [2]int{c.StartLine, c.EndLine}
		e.snapshot[c.ID] = c
	}
	return nil
}

// trackPath must be called with e.mu held.
func (e *MemoryEngine) trackPath(path, id string) {
	set, ok := e.paths[path]
	if !ok {
		set = make(map[string]bool)
		e.paths[path] = set
	}
	set[id] = true
}

func (e *MemoryEngine) Search(ctx context.Context, q string, opts SearchOptions) ([]Result, error) {
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 20
	}

	var queries []query.Query
	queries = append(queries, bleve.NewQueryStringQuery(q))
	if opts.ChunkType != "" {
		mq := bleve.NewMatchQuery(opts.ChunkType)
		mq.SetField("chunk_type")
		queries = append(queries, mq)
	}
	if opts.Path != "" {
		wq := bleve.NewWildcardQuery(opts.Path)
		wq.SetField("path")
		queries = append(queries, wq)
	}

	var finalQuery query.Query
	if len(queries) == 1 {
		finalQuery = queries[0]
	} else {
		finalQuery = bleve.NewConjunctionQuery(queries...)
	}

	req := bleve.NewSearchRequestOptions(finalQuery, limit, 0, false)
	style := "html"
	req.Highlight = bleve.NewHighlight()
	req.Highlight.Style = &style
	req.Highlight.Fields = []string{"text"}
	req.Fields = []string{"text", "path"}

	e.mu.RLock()
	defer e.mu.RUnlock()

	searchResult, err := e.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("fts: bleve search: %w", err)
	}

	results := make([]Result, 0, len(searchResult.Hits))
	for _, hit := range searchResult.Hits {
		path, _ := hit.Fields["path"].(string)
		snippet := ""
		if fragments, ok := hit.Fragments["text"]; ok && len(fragments) > 0 {
			snippet = fragments[0]
		}
		span := e.lines[hit.ID]
		results = append(results, Result{
			ChunkID:   hit.ID,
			Path:      path,
			StartLine: span[0],
			EndLine:   span[1],
			Score:     hit.Score,
			Snippet:   snippet,
		})
	}
	return results, nil
}

func (e *MemoryEngine) RemoveByPath(ctx context.Context, path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids, ok := e.paths[path]
	if !ok || len(ids) == 0 {
		return nil
	}

	batch := e.index.NewBatch()
	for id := range ids {
		batch.Delete(id)
	}
	if err := e.index.Batch(batch); err != nil {
		return fmt.Errorf("fts: delete batch for %s: %w", path, err)
	}
	delete(e.paths, path)
	for id := range ids {
		delete(e.lines, id)
		delete(e.snapshot, id)
	}
	return nil
}

// serializedMemoryIndex is the on-disk shape Serialize/Deserialize
// exchange: the full set of chunks needed to rebuild an equivalent
// bleve.MemOnly index from scratch.
type serializedMemoryIndex struct {
	Chunks []chunk.Chunk `json:"chunks"`
}

// Serialize dumps every indexed chunk as JSON. bleve's in-memory index
// has no stable on-disk format of its own, so rather than reach into its
// internals this rebuilds the index on Deserialize by re-adding each
// chunk.
func (e *MemoryEngine) Serialize(ctx context.Context) ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	dump := serializedMemoryIndex{Chunks: make([]chunk.Chunk, 0, len(e.snapshot))}
	for _, c := range e.snapshot {
		dump.Chunks = append(dump.Chunks, c)
	}
	data, err := json.Marshal(dump)
	if err != nil {
		return nil, fmt.Errorf("fts: serialize: %w", err)
	}
	return data, nil
}

// Deserialize replaces this engine's contents with the chunks encoded in
// data, as produced by Serialize.
func (e *MemoryEngine) Deserialize(ctx context.Context, data []byte) error {
	var dump serializedMemoryIndex
	if err := json.Unmarshal(data, &dump); err != nil {
		return fmt.Errorf("fts: deserialize: %w", err)
	}

	index, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return fmt.Errorf("fts: deserialize: recreate index: %w", err)
	}

	e.mu.Lock()
	oldIndex := e.index
	e.index = index
	e.paths = make(map[string]map[string]bool)
	e.lines = make(map[string][2]int)
	e.snapshot = make(map[string]chunk.Chunk)
	e.mu.Unlock()

	if oldIndex != nil {
		_ = oldIndex.Close()
	}

	return e.AddChunks(ctx, dump.Chunks)
}

func (e *MemoryEngine) HasData(ctx context.Context) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	count, err := e.index.DocCount()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (e *MemoryEngine) GetStats(ctx context.Context) (Stats, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	count, err := e.index.DocCount()
	if err != nil {
		return Stats{}, err
	}
	return Stats{TotalChunks: int(count)}, nil
}

func (e *MemoryEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index.Close()
}
