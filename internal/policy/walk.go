package policy

import (
	"os"
	"path/filepath"
)

// Walk traverses rootDir and returns every regular file's slash-separated
// path (relative to rootDir) that ShouldIndex allows, skipping hardcoded-
// denied directories outright so traversal never descends into e.g.
// node_modules or .git. Shared by indexmanager's full-scan and
// integrity's reconciliation scan so both walk the project tree exactly
// the same way.
func (p *Policy) Walk(rootDir string) ([]string, error) {
	var out []string

	err := filepath.Walk(rootDir, func(absPath string, info os.FileInfo, err error) error {
		if err != nil {
			return nil //nolint:nilerr // best-effort: a stat error skips that entry, not the whole walk
		}
		rel, relErr := filepath.Rel(rootDir, absPath)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if info.IsDir() {
			if IsHardcodedDenied(p.matchKey(rel)) {
				return filepath.SkipDir
			}
			return nil
		}

		if p.ShouldIndex(rel, absPath).Allow {
			out = append(out, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
