// Package metadata persists summary statistics about one project's
// index, written atomically alongside the fingerprint map so a reader
// never observes a half-written file.
package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Metadata is one project's index summary.
type Metadata struct {
	ProjectPath           string    `json:"projectPath"`
	CreatedAt             time.Time `json:"createdAt"`
	LastFullIndex         time.Time `json:"lastFullIndex,omitempty"`
	LastIncrementalUpdate time.Time `json:"lastIncrementalUpdate,omitempty"`
	ModelName             string    `json:"modelName"`
	EmbeddingDimension    int       `json:"embeddingDimension"`
	TotalFiles            int       `json:"totalFiles"`
	TotalChunks           int       `json:"totalChunks"`
	StorageSizeBytes      int64     `json:"storageSizeBytes"`
	FtsEngineType         string    `json:"ftsEngineType"`
}

// Store wraps a Metadata record with atomic load/persist against
// indexDir/metadata.json.
type Store struct {
	mu   sync.RWMutex
	file string
	data Metadata
}

// Load reads indexDir/metadata.json, returning a Store seeded with a
// fresh Metadata (stamped with projectPath/createdAt) if the file does
// not yet exist.
func Load(indexDir, projectPath string) (*Store, error) {
	s := &Store{
		file: filepath.Join(indexDir, "metadata.json"),
		data: Metadata{ProjectPath: projectPath, CreatedAt: time.Now()},
	}

	raw, err := os.ReadFile(s.file)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("metadata: read %s: %w", s.file, err)
	}
	if len(raw) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("metadata: decode %s: %w", s.file, err)
	}
	return s, nil
}

// Get returns a copy of the current record.
func (s *Store) Get() Metadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// RecordFullIndex updates the record after a full CreateIndex run.
func (s *Store) RecordFullIndex(modelName string, embeddingDimension, totalFiles, totalChunks int, storageSizeBytes int64, ftsEngineType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.data.LastFullIndex = now
	s.data.LastIncrementalUpdate = now
	s.data.ModelName = modelName
	s.data.EmbeddingDimension = embeddingDimension
	s.data.TotalFiles = totalFiles
	s.data.TotalChunks = totalChunks
	s.data.StorageSizeBytes = storageSizeBytes
	s.data.FtsEngineType = ftsEngineType
}

// RecordIncrementalUpdate updates the record after an UpdateFile/
// RemoveFile/ApplyDelta run, without touching LastFullIndex.
func (s *Store) RecordIncrementalUpdate(totalFiles, totalChunks int, storageSizeBytes int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.LastIncrementalUpdate = time.Now()
	s.data.TotalFiles = totalFiles
	s.data.TotalChunks = totalChunks
	s.data.StorageSizeBytes = storageSizeBytes
}

// Persist atomically writes the current record to disk (write temp +
// rename), matching fingerprint.Store's persistence pattern.
func (s *Store) Persist() error {
	s.mu.RLock()
	data, err := json.Marshal(s.data)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("metadata: encode: %w", err)
	}

	dir := filepath.Dir(s.file)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("metadata: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".metadata-*.tmp")
	if err != nil {
		return fmt.Errorf("metadata: create temp: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("metadata: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("metadata: close temp: %w", err)
	}

	if err := os.Rename(tmpPath, s.file); err != nil {
		return fmt.Errorf("metadata: rename to %s: %w", s.file, err)
	}
	return nil
}
