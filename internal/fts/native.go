package fts

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/blakazulu/search-mcp-sub002/internal/chunk"
)

// NativeEngine is a lexical index backed by SQLite's FTS5 virtual table,
// used for large projects where an in-memory index would be too costly.
type NativeEngine struct {
	db *sql.DB
}

// NewNative opens (creating if needed) a SQLite database at dbPath and
// ensures its chunks_fts virtual table exists.
func NewNative(dbPath string) (*NativeEngine, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrNotAvailable, dbPath, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
			chunk_id UNINDEXED,
			path UNINDEXED,
			chunk_type UNINDEXED,
			start_line UNINDEXED,
			end_line UNINDEXED,
			text,
			tokenize = 'unicode61 remove_diacritics 0'
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: create schema: %v", ErrNotAvailable, err)
	}

	return &NativeEngine{db: db}, nil
}

func (e *NativeEngine) EngineType() EngineType { return EngineNative }

func (e *NativeEngine) AddChunk(ctx context.Context, c chunk.Chunk) error {
	return e.AddChunks(ctx, []chunk.Chunk{c})
}

func (e *NativeEngine) AddChunks(ctx context.Context, chunks []chunk.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("fts: begin tx: %w", err)
	}
	defer tx.Rollback()

	del, err := tx.PrepareContext(ctx, "DELETE FROM chunks_fts WHERE chunk_id = ?")
	if err != nil {
		return fmt.Errorf("fts: prepare delete: %w", err)
	}
	defer del.Close()

	ins, err := tx.PrepareContext(ctx, "INSERT INTO chunks_fts (chunk_id, path, chunk_type, start_line, end_line, text) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("fts: prepare insert: %w", err)
	}
	defer ins.Close()

	for _, c := range chunks {
		if _, err := del.ExecContext(ctx, c.ID); err != nil {
			return fmt.Errorf("fts: delete existing %s: %w", c.ID, err)
		}
		kind := ""
		if c.Metadata != nil {
			kind = string(c.Metadata.Kind)
		}
		if _, err := ins.ExecContext(ctx, c.ID, c.Path, kind, c.StartLine, c.EndLine, c.Text); err != nil {
			return fmt.Errorf("fts: insert %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("fts: commit: %w", err)
	}
	return nil
}

func (e *NativeEngine) Search(ctx context.Context, q string, opts SearchOptions) ([]Result, error) {
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 20
	}

	sqlQuery := `
		SELECT chunk_id, path, start_line, end_line, bm25(chunks_fts) as rank,
			snippet(chunks_fts, 5, '<mark>', '</mark>', '...', 32)
		FROM chunks_fts
		WHERE chunks_fts MATCH ?
	`
	args := []interface{}{q}
	if opts.ChunkType != "" {
		sqlQuery += " AND chunk_type = ?"
		args = append(args, opts.ChunkType)
	}
	if opts.Path != "" {
		sqlQuery += " AND path = ?"
		args = append(args, opts.Path)
	}
	sqlQuery += " ORDER BY rank LIMIT ?"
	args = append(args, limit)

	rows, err := e.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		if isFTSSyntaxError(err) {
			return e.searchLikeFallback(ctx, q, opts, limit)
		}
		return nil, fmt.Errorf("fts: query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		// bm25() returns more-negative-is-better; normalize to a
		// positive, higher-is-better score for callers.
		var rank float64
		if err := rows.Scan(&r.ChunkID, &r.Path, &r.StartLine, &r.EndLine, &rank, &r.Snippet); err != nil {
			return nil, fmt.Errorf("fts: scan: %w", err)
		}
		r.Score = -rank
		results = append(results, r)
	}
	return results, rows.Err()
}

// searchLikeFallback handles FTS5 query-syntax errors (unbalanced quotes,
// stray operators) by degrading to a per-term substring match: each
// whitespace-separated term, with surrounding quote, prefix and grouping
// characters trimmed, becomes one LIKE clause, and a chunk matching any
// term is returned. A malformed query string never hard-fails a search.
func (e *NativeEngine) searchLikeFallback(ctx context.Context, q string, opts SearchOptions, limit int) ([]Result, error) {
	var clauses []string
	var args []interface{}
	for _, term := range strings.Fields(q) {
		term = strings.Trim(term, `"*()`)
		if term == "" {
			continue
		}
		clauses = append(clauses, "text LIKE ?")
		args = append(args, "%"+term+"%")
	}
	if len(clauses) == 0 {
		return nil, nil
	}
	sqlQuery := "SELECT chunk_id, path, start_line, end_line, text FROM chunks_fts WHERE (" + strings.Join(clauses, " OR ") + ")"
	if opts.ChunkType != "" {
		sqlQuery += " AND chunk_type = ?"
		args = append(args, opts.ChunkType)
	}
	if opts.Path != "" {
		sqlQuery += " AND path = ?"
		args = append(args, opts.Path)
	}
	sqlQuery += " LIMIT ?"
	args = append(args, limit)

	rows, err := e.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("fts: like fallback: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var text string
		if err := rows.Scan(&r.ChunkID, &r.Path, &r.StartLine, &r.EndLine, &text); err != nil {
			return nil, fmt.Errorf("fts: scan fallback: %w", err)
		}
		r.Score = 1.0
		r.Snippet = text
		results = append(results, r)
	}
	return results, rows.Err()
}

func isFTSSyntaxError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "fts5: syntax error") || strings.Contains(msg, "unterminated string")
}

func (e *NativeEngine) RemoveByPath(ctx context.Context, path string) error {
	_, err := e.db.ExecContext(ctx, "DELETE FROM chunks_fts WHERE path = ?", path)
	if err != nil {
		return fmt.Errorf("fts: delete by path %s: %w", path, err)
	}
	return nil
}

func (e *NativeEngine) HasData(ctx context.Context) (bool, error) {
	var count int
	if err := e.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks_fts").Scan(&count); err != nil {
		return false, fmt.Errorf("fts: count: %w", err)
	}
	return count > 0, nil
}

func (e *NativeEngine) GetStats(ctx context.Context) (Stats, error) {
	var count int
	if err := e.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks_fts").Scan(&count); err != nil {
		return Stats{}, fmt.Errorf("fts: stats count: %w", err)
	}

	var pageCount, pageSize int64
	_ = e.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	_ = e.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)

	return Stats{TotalChunks: count, IndexBytes: pageCount * pageSize}, nil
}

// serializedNativeRow is one chunks_fts row as exchanged by
// Serialize/Deserialize, in the same portable JSON shape MemoryEngine
// uses so callers need not care which backend produced a dump.
type serializedNativeRow struct {
	ChunkID   string `json:"chunk_id"`
	Path      string `json:"path"`
	ChunkType string `json:"chunk_type"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Text      string `json:"text"`
}

// Serialize dumps every row of chunks_fts as JSON rather than the raw
// SQLite file, since FTS5 shadow tables aren't meaningfully portable
// across database files without going through SQL.
func (e *NativeEngine) Serialize(ctx context.Context) ([]byte, error) {
	rows, err := e.db.QueryContext(ctx, "SELECT chunk_id, path, chunk_type, start_line, end_line, text FROM chunks_fts")
	if err != nil {
		return nil, fmt.Errorf("fts: serialize query: %w", err)
	}
	defer rows.Close()

	var out []serializedNativeRow
	for rows.Next() {
		var r serializedNativeRow
		if err := rows.Scan(&r.ChunkID, &r.Path, &r.ChunkType, &r.StartLine, &r.EndLine, &r.Text); err != nil {
			return nil, fmt.Errorf("fts: serialize scan: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("fts: serialize marshal: %w", err)
	}
	return data, nil
}

// Deserialize replaces chunks_fts's contents with the rows encoded in
// data, as produced by Serialize.
func (e *NativeEngine) Deserialize(ctx context.Context, data []byte) error {
	var rows []serializedNativeRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("fts: deserialize unmarshal: %w", err)
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("fts: deserialize begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks_fts"); err != nil {
		return fmt.Errorf("fts: deserialize clear: %w", err)
	}

	ins, err := tx.PrepareContext(ctx, "INSERT INTO chunks_fts (chunk_id, path, chunk_type, start_line, end_line, text) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("fts: deserialize prepare: %w", err)
	}
	defer ins.Close()

	for _, r := range rows {
		if _, err := ins.ExecContext(ctx, r.ChunkID, r.Path, r.ChunkType, r.StartLine, r.EndLine, r.Text); err != nil {
			return fmt.Errorf("fts: deserialize insert %s: %w", r.ChunkID, err)
		}
	}

	return tx.Commit()
}

func (e *NativeEngine) Close() error {
	return e.db.Close()
}

// DBFileExists reports whether a native engine's backing file is already
// present on disk at dbPath.
func DBFileExists(dbPath string) bool {
	_, err := os.Stat(dbPath)
	return err == nil
}
