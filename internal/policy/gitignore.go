package policy

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// gitignoreRule is one compiled line from a .gitignore file, scoped to
// the directory that contained it.
type gitignoreRule struct {
	dir      string // slash-separated, relative to project root ("" for root)
	pattern  glob.Glob
	negate   bool
	dirOnly  bool
	anchored bool
}

// Gitignore aggregates every nested .gitignore under a project root,
// matching paths against the most specific applicable rules with
// negation support.
type Gitignore struct {
	rules []gitignoreRule
}

// LoadGitignore recursively discovers every .gitignore beneath rootDir,
// skipping hardcoded-denied directories during traversal.
func LoadGitignore(rootDir string) (*Gitignore, error) {
	gi := &Gitignore{}

	err := filepath.Walk(rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil //nolint:nilerr // best-effort: a stat error skips that entry, not the whole walk
		}
		rel, relErr := filepath.Rel(rootDir, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if rel != "." && IsHardcodedDenied(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if filepath.Base(path) != ".gitignore" {
			return nil
		}

		dir := filepath.ToSlash(filepath.Dir(rel))
		if dir == "." {
			dir = ""
		}
		rules, readErr := parseGitignoreFile(path, dir)
		if readErr != nil {
			return nil
		}
		gi.rules = append(gi.rules, rules...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return gi, nil
}

func parseGitignoreFile(path, dir string) ([]gitignoreRule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rules []gitignoreRule
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimRight(line, " ")
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		negate := strings.HasPrefix(trimmed, "!")
		if negate {
			trimmed = trimmed[1:]
		}

		dirOnly := strings.HasSuffix(trimmed, "/")
		trimmed = strings.TrimSuffix(trimmed, "/")

		leadingSlash := strings.HasPrefix(trimmed, "/")
		pattern := strings.TrimPrefix(trimmed, "/")
		// Per gitignore semantics, a pattern is anchored to the .gitignore's
		// directory if it has a leading slash OR contains a slash anywhere
		// but the end; a bare single-segment pattern matches at any depth,
		// which this package implements by matching against each path
		// segment instead of relying on "**" glob semantics.
		anchored := leadingSlash || strings.Contains(pattern, "/")

		g, compileErr := glob.Compile(pattern, '/')
		if compileErr != nil {
			continue
		}

		rules = append(rules, gitignoreRule{
			dir:      dir,
			pattern:  g,
			negate:   negate,
			dirOnly:  dirOnly,
			anchored: anchored,
		})
	}
	return rules, scanner.Err()
}

// Match reports whether relPath (slash-separated, relative to the project
// root) is ignored. A path is ignored if it falls under an ignored
// ancestor directory OR the path itself matches a file pattern; the last
// matching rule, in file-then-line order, wins, honoring negation.
func (gi *Gitignore) Match(relPath string, isDir bool) bool {
	if gi == nil {
		return false
	}
	relPath = filepath.ToSlash(relPath)

	ignored := false
	for _, r := range gi.rules {
		if r.dir != "" && !strings.HasPrefix(relPath, r.dir+"/") {
			continue
		}

		candidate := relPath
		if r.dir != "" {
			candidate = strings.TrimPrefix(relPath, r.dir+"/")
		}
		if candidate == "" {
			continue
		}

		if r.matches(candidate, isDir) {
			ignored = !r.negate
		}
	}
	return ignored
}

// matches tests candidate (relative to the rule's directory) against the
// rule: an anchored pattern is checked against every directory prefix of
// candidate plus the full path; an unanchored pattern is checked against
// every individual path segment. dirOnly rules never match the final
// segment when candidate itself denotes the leaf file being tested
// (isDir false), since a directory-only pattern cannot ignore a file by
// its own name, only the directories it lives under.
func (r gitignoreRule) matches(candidate string, isDir bool) bool {
	segments := strings.Split(candidate, "/")

	if r.anchored {
		prefix := ""
		for i, seg := range segments {
			if i == 0 {
				prefix = seg
			} else {
				prefix = prefix + "/" + seg
			}
			isLeaf := i == len(segments)-1
			if isLeaf && r.dirOnly && !isDir {
				continue
			}
			if r.pattern.Match(prefix) {
				return true
			}
		}
		return false
	}

	for i, seg := range segments {
		isLeaf := i == len(segments)-1
		if isLeaf && r.dirOnly && !isDir {
			continue
		}
		if r.pattern.Match(seg) {
			return true
		}
	}
	return false
}
