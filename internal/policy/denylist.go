package policy

import (
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// hardcodedDenyDirs names path components that are always excluded,
// regardless of user config.
var hardcodedDenyDirs = map[string]bool{
	"node_modules":  true,
	"vendor":        true,
	".git":          true,
	"dist":          true,
	"build":         true,
	".searchindex":  true,
	".idea":         true,
	".vscode":       true,
	"coverage":      true,
	"__pycache__":   true,
	".pytest_cache": true,
	"target":        true,
	".next":         true,
}

var hardcodedDenyGlobs = compileGlobs([]string{
	".env",
	".env.*",
	"*.pem",
	"*.key",
	"*.p12",
	"*.log",
	"package-lock.json",
	"yarn.lock",
	"pnpm-lock.yaml",
	"Cargo.lock",
	"go.sum",
})

func compileGlobs(patterns []string) []glob.Glob {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			continue
		}
		out = append(out, g)
	}
	return out
}

// IsHardcodedDenied reports whether relPath falls under the fixed deny
// categories: dependency directories, VCS metadata, build artifacts,
// secrets, logs, lock files, IDE directories, coverage output.
func IsHardcodedDenied(relPath string) bool {
	slash := filepath.ToSlash(relPath)
	for _, part := range strings.Split(slash, "/") {
		if hardcodedDenyDirs[part] {
			return true
		}
	}

	base := filepath.Base(slash)
	for _, g := range hardcodedDenyGlobs {
		if g.Match(base) {
			return true
		}
	}
	return false
}
