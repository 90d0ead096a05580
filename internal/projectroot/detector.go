// Package projectroot walks a starting directory's ancestors looking for
// a project marker.
package projectroot

import (
	"os"
	"path/filepath"
)

// DefaultMarkers is the required, ordered marker set: first found wins.
var DefaultMarkers = []string{".git", "package.json", "pyproject.toml", "Cargo.toml", "go.mod"}

// Detector walks parent directories looking for a project marker.
type Detector struct {
	markers []string
}

// New creates a Detector using DefaultMarkers plus any extra markers the
// caller wants checked, appended after the required set.
func New(extraMarkers ...string) *Detector {
	markers := make([]string, 0, len(DefaultMarkers)+len(extraMarkers))
	markers = append(markers, DefaultMarkers...)
	markers = append(markers, extraMarkers...)
	return &Detector{markers: markers}
}

// Find walks from startDir upward to the filesystem root, returning the
// first directory containing any registered marker. If none is found it
// returns startDir unchanged, since a search index must always have a
// root.
func (d *Detector) Find(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		for _, marker := range d.markers {
			p := filepath.Join(dir, marker)
			if _, err := os.Lstat(p); err == nil {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	return abs, nil
}
