package vectorstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	sqlitevec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

var extensionOnce sync.Once

// initExtension registers the sqlite-vec extension with the sqlite3
// driver exactly once per process, regardless of how many SQLiteStore
// instances are opened.
func initExtension() {
	extensionOnce.Do(func() {
		sqlitevec.Auto()
	})
}

// SQLiteStore is the reference Store implementation: a sqlite-vec vec0
// virtual table keyed by chunk ID, alongside a plain table carrying path
// and line-span metadata for reconstruction.
type SQLiteStore struct {
	db         *sql.DB
	dimensions int
}

// NewSQLiteStore opens (creating if needed) a SQLite database at dbPath
// with a vector index sized for dimensions-wide embeddings.
func NewSQLiteStore(dbPath string, dimensions int) (*SQLiteStore, error) {
	initExtension()

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("vectorstore: open %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS chunk_locations (
			chunk_id        TEXT PRIMARY KEY,
			path            TEXT NOT NULL,
			start_line      INTEGER NOT NULL,
			end_line        INTEGER NOT NULL,
			chunk_hash      TEXT NOT NULL DEFAULT '',
			text            TEXT NOT NULL DEFAULT '',
			chunk_type      TEXT NOT NULL DEFAULT '',
			chunk_name      TEXT NOT NULL DEFAULT '',
			chunk_docstring TEXT NOT NULL DEFAULT ''
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("vectorstore: create chunk_locations: %w", err)
	}
	if _, err := db.Exec("CREATE INDEX IF NOT EXISTS idx_chunk_locations_path ON chunk_locations(path)"); err != nil {
		db.Close()
		return nil, fmt.Errorf("vectorstore: create path index: %w", err)
	}

	createSQL := fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS chunks_vec USING vec0(
			chunk_id TEXT PRIMARY KEY,
			embedding float[%d]
		)
	`, dimensions)
	if _, err := db.Exec(createSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("vectorstore: create chunks_vec: %w", err)
	}

	return &SQLiteStore{db: db, dimensions: dimensions}, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("vectorstore: begin tx: %w", err)
	}
	defer tx.Rollback()

	delLoc, err := tx.PrepareContext(ctx, "DELETE FROM chunk_locations WHERE chunk_id = ?")
	if err != nil {
		return fmt.Errorf("vectorstore: prepare delete location: %w", err)
	}
	defer delLoc.Close()

	insLoc, err := tx.PrepareContext(ctx, "INSERT INTO chunk_locations (chunk_id, path, start_line, end_line, chunk_hash, text, chunk_type, chunk_name, chunk_docstring) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("vectorstore: prepare insert location: %w", err)
	}
	defer insLoc.Close()

	delVec, err := tx.PrepareContext(ctx, "DELETE FROM chunks_vec WHERE chunk_id = ?")
	if err != nil {
		return fmt.Errorf("vectorstore: prepare delete vector: %w", err)
	}
	defer delVec.Close()

	insVec, err := tx.PrepareContext(ctx, "INSERT INTO chunks_vec (chunk_id, embedding) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("vectorstore: prepare insert vector: %w", err)
	}
	defer insVec.Close()

	for _, r := range records {
		if len(r.Embedding) != s.dimensions {
			return fmt.Errorf("vectorstore: record %s has %d dims, store expects %d", r.ChunkID, len(r.Embedding), s.dimensions)
		}

		if _, err := delLoc.ExecContext(ctx, r.ChunkID); err != nil {
			return fmt.Errorf("vectorstore: delete location %s: %w", r.ChunkID, err)
		}
		if _, err := insLoc.ExecContext(ctx, r.ChunkID, r.Path, r.StartLine, r.EndLine, r.ChunkHash, r.Text, r.ChunkType, r.ChunkName, r.ChunkDocstring); err != nil {
			return fmt.Errorf("vectorstore: insert location %s: %w", r.ChunkID, err)
		}

		if _, err := delVec.ExecContext(ctx, r.ChunkID); err != nil {
			return fmt.Errorf("vectorstore: delete vector %s: %w", r.ChunkID, err)
		}
		embBytes, err := sqlitevec.SerializeFloat32(r.Embedding)
		if err != nil {
			return fmt.Errorf("vectorstore: serialize embedding %s: %w", r.ChunkID, err)
		}
		if _, err := insVec.ExecContext(ctx, r.ChunkID, embBytes); err != nil {
			return fmt.Errorf("vectorstore: insert vector %s: %w", r.ChunkID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("vectorstore: commit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteByPath(ctx context.Context, path string) error {
	ids, err := s.idsForPath(ctx, path)
	if err != nil {
		return err
	}
	return s.DeleteByIDs(ctx, ids)
}

func (s *SQLiteStore) idsForPath(ctx context.Context, path string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT chunk_id FROM chunk_locations WHERE path = ?", path)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: query ids for path %s: %w", path, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("vectorstore: scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("vectorstore: begin tx: %w", err)
	}
	defer tx.Rollback()

	delLoc, err := tx.PrepareContext(ctx, "DELETE FROM chunk_locations WHERE chunk_id = ?")
	if err != nil {
		return fmt.Errorf("vectorstore: prepare delete location: %w", err)
	}
	defer delLoc.Close()

	delVec, err := tx.PrepareContext(ctx, "DELETE FROM chunks_vec WHERE chunk_id = ?")
	if err != nil {
		return fmt.Errorf("vectorstore: prepare delete vector: %w", err)
	}
	defer delVec.Close()

	for _, id := range ids {
		if _, err := delLoc.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("vectorstore: delete location %s: %w", id, err)
		}
		if _, err := delVec.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("vectorstore: delete vector %s: %w", id, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetByPath(ctx context.Context, path string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cl.chunk_id, cl.path, cl.start_line, cl.end_line, cl.chunk_hash, cl.text,
		       cl.chunk_type, cl.chunk_name, cl.chunk_docstring, cv.embedding
		FROM chunk_locations cl
		JOIN chunks_vec cv ON cv.chunk_id = cl.chunk_id
		WHERE cl.path = ?
	`, path)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: get by path %s: %w", path, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var embBytes []byte
		if err := rows.Scan(&r.ChunkID, &r.Path, &r.StartLine, &r.EndLine, &r.ChunkHash, &r.Text,
			&r.ChunkType, &r.ChunkName, &r.ChunkDocstring, &embBytes); err != nil {
			return nil, fmt.Errorf("vectorstore: scan record: %w", err)
		}
		r.Embedding = deserializeFloat32(embBytes)
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) GetIndexedFiles(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT path FROM chunk_locations ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("vectorstore: get indexed files: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("vectorstore: scan path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

func (s *SQLiteStore) SearchByVector(ctx context.Context, query Vector, limit int) ([]Match, error) {
	if len(query) != s.dimensions {
		return nil, fmt.Errorf("vectorstore: query has %d dims, store expects %d", len(query), s.dimensions)
	}
	if limit <= 0 {
		limit = 10
	}

	queryBytes, err := sqlitevec.SerializeFloat32(query)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: serialize query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT cv.chunk_id, cl.path, cl.text, cl.start_line, cl.end_line, vec_distance_cosine(cv.embedding, ?) as distance
		FROM chunks_vec cv
		JOIN chunk_locations cl ON cl.chunk_id = cv.chunk_id
		ORDER BY distance
		LIMIT ?
	`, queryBytes, limit)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: search: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ChunkID, &m.Path, &m.Text, &m.StartLine, &m.EndLine, &m.Distance); err != nil {
			return nil, fmt.Errorf("vectorstore: scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *SQLiteStore) CountChunks(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunk_locations").Scan(&count); err != nil {
		return 0, fmt.Errorf("vectorstore: count: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) StorageSize(ctx context.Context) (int64, error) {
	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0, fmt.Errorf("vectorstore: page_count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0, fmt.Errorf("vectorstore: page_size: %w", err)
	}
	return pageCount * pageSize, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func deserializeFloat32(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		bits := binary.LittleEndian.Uint32(b[i*4:])
		out[i] = math.Float32frombits(bits)
	}
	return out
}
