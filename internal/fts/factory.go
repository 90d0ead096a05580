package fts

import (
	"errors"
	"fmt"
	"path/filepath"
)

// New builds an Engine per the project's ftsEngine preference
// ("auto", "js", or "native"). "auto" picks the in-memory engine for
// projects at or below AutoThreshold indexed files and native otherwise.
// The returned reason is non-empty only when the requested engine wasn't
// available and New silently fell back to the in-memory engine instead.
func New(preference string, indexDir string, estimatedFileCount int) (Engine, string, error) {
	switch preference {
	case "js":
		e, err := NewMemory()
		return e, "", err
	case "native":
		e, err := NewNative(filepath.Join(indexDir, NativeDBFileName))
		if err != nil {
			if errors.Is(err, ErrNotAvailable) {
				mem, memErr := NewMemory()
				return mem, "native engine unavailable: " + err.Error(), memErr
			}
			return nil, "", err
		}
		return e, "", nil
	case "auto", "":
		if estimatedFileCount <= AutoThreshold {
			e, err := NewMemory()
			return e, "", err
		}
		e, err := NewNative(filepath.Join(indexDir, NativeDBFileName))
		if err != nil {
			if errors.Is(err, ErrNotAvailable) {
				mem, memErr := NewMemory()
				return mem, "native engine unavailable: " + err.Error(), memErr
			}
			return nil, "", err
		}
		return e, "", nil
	default:
		return nil, "", fmt.Errorf("fts: unknown engine preference %q", preference)
	}
}
