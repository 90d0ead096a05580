package policy

import (
	"os"
	"runtime"
	"strings"

	"github.com/blakazulu/search-mcp-sub002/internal/config"
	"github.com/gobwas/glob"
)

// Policy evaluates shouldIndex for one project root.
type Policy struct {
	rootDir          string
	include          []glob.Glob
	exclude          []glob.Glob
	respectGitignore bool
	gitignore        *Gitignore
	maxFileSize      int64
	caseSensitive    bool
}

// New builds a Policy from a loaded project Config, eagerly loading
// nested .gitignore files when respectGitignore is set.
func New(rootDir string, cfg *config.Config) (*Policy, error) {
	p := &Policy{
		rootDir:          rootDir,
		respectGitignore: cfg.RespectGitignore,
		caseSensitive:    runtime.GOOS != "windows" && runtime.GOOS != "darwin",
	}

	include, err := compileGlobList(cfg.Include)
	if err != nil {
		return nil, err
	}
	p.include = include

	exclude, err := compileGlobList(cfg.Exclude)
	if err != nil {
		return nil, err
	}
	p.exclude = exclude

	maxSize, err := config.ParseSize(cfg.MaxFileSize)
	if err != nil {
		return nil, err
	}
	p.maxFileSize = maxSize

	if cfg.RespectGitignore {
		gi, giErr := LoadGitignore(rootDir)
		if giErr != nil {
			return nil, giErr
		}
		p.gitignore = gi
	}

	return p, nil
}

func compileGlobList(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

// ShouldIndex evaluates the layered decision order against relPath
// (slash-separated, relative to the project root) and the matching
// absolute path.
func (p *Policy) ShouldIndex(relPath, absPath string) Decision {
	matchPath := p.matchKey(relPath)

	if IsHardcodedDenied(matchPath) {
		return Decision{Allow: false, Category: CategoryHardcoded}
	}

	if matchesAny(matchPath, p.exclude) {
		return Decision{Allow: false, Category: CategoryUserExclude}
	}

	if p.respectGitignore && p.gitignore.Match(matchPath, false) {
		return Decision{Allow: false, Category: CategoryGitignore}
	}

	if IsBinaryPath(relPath, absPath) {
		return Decision{Allow: false, Category: CategoryBinary}
	}

	if info, err := os.Stat(absPath); err == nil && p.maxFileSize > 0 && info.Size() > p.maxFileSize {
		return Decision{Allow: false, Category: CategorySize}
	}

	if len(p.include) > 0 && !matchesAny(matchPath, p.include) {
		return Decision{Allow: false, Category: CategoryIncludeMismatch}
	}

	return Decision{Allow: true, Category: CategoryAllow}
}

// matchKey applies the security-hardening transforms required before any
// pattern match: NFC normalization, invisible-character stripping, and
// platform-appropriate case folding.
func (p *Policy) matchKey(relPath string) string {
	normalized := NormalizePath(relPath)
	if !p.caseSensitive {
		normalized = strings.ToLower(normalized)
	}
	return normalized
}

func matchesAny(path string, patterns []glob.Glob) bool {
	for _, g := range patterns {
		if g.Match(path) {
			return true
		}
	}
	return false
}
