// Package symbols produces a structured per-file summary — symbols,
// imports, exports, complexity — from an AST, built on top of the same
// tree-sitter parse that backs internal/chunk's ASTChunker.
package symbols

import (
	"regexp"
	"strings"

	"github.com/blakazulu/search-mcp-sub002/internal/chunk"
)

// Symbol is one named declaration found in a file.
type Symbol struct {
	Name      string
	Kind      chunk.Kind
	StartLine int
	EndLine   int
	IsExport  bool
	Docstring string
}

// FileSummary is the structured per-file summary SymbolExtractor
// produces: symbols, imports, exports, and a coarse complexity score.
type FileSummary struct {
	Path       string
	Language   string
	Symbols    []Symbol
	Imports    []string
	Exports    []string
	Complexity int
}

// branchKeywordPattern matches the control-flow keywords counted toward
// the coarse cyclomatic-style complexity score. This is a textual
// approximation (not a true control-flow graph) deliberately kept simple
// since SymbolExtractor's complexity figure is advisory ranking input,
// not a correctness-critical value.
var branchKeywordPattern = regexp.MustCompile(`\b(if|else if|elif|for|while|case|catch|except|&&|\|\|)\b`)

// importPatterns maps a language name to the regex that extracts its
// import/require statements, one pattern per language the chunker's
// multi-language parser already discriminates on.
var importPatterns = map[string]*regexp.Regexp{
	"python":     regexp.MustCompile(`(?m)^\s*(?:from\s+(\S+)\s+import|import\s+(\S+))`),
	"typescript": regexp.MustCompile(`(?m)^\s*import\s+.*?from\s+['"]([^'"]+)['"]`),
	"javascript": regexp.MustCompile(`(?m)^\s*(?:import\s+.*?from\s+['"]([^'"]+)['"]|require\(['"]([^'"]+)['"]\))`),
	"rust":       regexp.MustCompile(`(?m)^\s*use\s+([\w:]+)`),
	"java":       regexp.MustCompile(`(?m)^\s*import\s+([\w.]+);`),
	"ruby":       regexp.MustCompile(`(?m)^\s*require(?:_relative)?\s+['"]([^'"]+)['"]`),
	"php":        regexp.MustCompile(`(?m)^\s*(?:use|require|require_once|include|include_once)\s+['"]?([\w\\/.]+)`),
	"go":         regexp.MustCompile(`(?m)^\s*"([\w./\-]+)"`),
}

// Extract builds a FileSummary from a file's already-computed chunk list
// (produced by chunk.Chunker.Chunk) and its raw text. Reusing the
// chunker's AST-derived metadata rather than re-parsing keeps the symbol
// table and the chunk boundaries provably consistent with each other.
func Extract(relPath, text string, chunks []chunk.Chunk) FileSummary {
	lang := chunk.LanguageForPath(relPath)
	summary := FileSummary{Path: relPath, Language: lang}

	for _, c := range chunks {
		if c.Metadata == nil || c.Metadata.Kind == chunk.KindSection || c.Metadata.Kind == chunk.KindOther {
			continue
		}
		sym := Symbol{
			Name:      qualifiedName(c.Metadata),
			Kind:      c.Metadata.Kind,
			StartLine: c.StartLine,
			EndLine:   c.EndLine,
			IsExport:  c.Metadata.IsExport,
			Docstring: c.Metadata.Docstring,
		}
		summary.Symbols = append(summary.Symbols, sym)
		if sym.IsExport && sym.Name != "" {
			summary.Exports = append(summary.Exports, sym.Name)
		}
	}

	if re, ok := importPatterns[lang]; ok {
		summary.Imports = extractImports(re, text)
	}

	summary.Complexity = complexity(text)
	return summary
}

func qualifiedName(m *chunk.Metadata) string {
	if m.ParentName != "" && m.Name != "" {
		return m.ParentName + "." + m.Name
	}
	return m.Name
}

func extractImports(re *regexp.Regexp, text string) []string {
	matches := re.FindAllStringSubmatch(text, -1)
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		for _, group := range m[1:] {
			if group == "" {
				continue
			}
			if !seen[group] {
				seen[group] = true
				out = append(out, group)
			}
		}
	}
	return out
}

// complexity counts branch-introducing tokens as a coarse proxy for
// cyclomatic complexity, plus a baseline of 1 for the file's single
// implicit path, generalized to a language-agnostic textual scan.
func complexity(text string) int {
	return 1 + len(branchKeywordPattern.FindAllStringIndex(text, -1))
}

// HasDocstring reports whether s is a non-trivial docstring, the same
// predicate the ranker's docstring bonus factor uses.
func HasDocstring(s string) bool {
	return len(strings.TrimSpace(s)) >= 10
}
