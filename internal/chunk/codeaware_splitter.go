package chunk

import (
	"path/filepath"
	"regexp"
	"strings"
)

// boundaryPatterns maps each language family to the compiled regexes that
// match the start of a semantic code boundary (function, class, struct,
// impl, trait, interface, namespace, resource, rule) in that language.
var boundaryPatterns = map[string][]*regexp.Regexp{
	"go": {
		regexp.MustCompile(`(?m)^func\s`),
		regexp.MustCompile(`(?m)^type\s+\w+\s+(struct|interface)\s`),
	},
	"typescript": {
		regexp.MustCompile(`(?m)^\s*(export\s+)?(default\s+)?(async\s+)?function\s`),
		regexp.MustCompile(`(?m)^\s*(export\s+)?(default\s+)?class\s`),
		regexp.MustCompile(`(?m)^\s*(export\s+)?interface\s`),
		regexp.MustCompile(`(?m)^\s*(export\s+)?(type|namespace|enum)\s`),
	},
	"python": {
		regexp.MustCompile(`(?m)^(async\s+)?def\s`),
		regexp.MustCompile(`(?m)^class\s`),
	},
	"rust": {
		regexp.MustCompile(`(?m)^\s*(pub\s+)?(async\s+)?fn\s`),
		regexp.MustCompile(`(?m)^\s*(pub\s+)?(struct|enum|trait|impl|mod)\s`),
	},
	"java": {
		regexp.MustCompile(`(?m)^\s*(public|private|protected)?\s*(static\s+)?(final\s+)?(class|interface|enum)\s`),
	},
	"ruby": {
		regexp.MustCompile(`(?m)^\s*(def|class|module)\s`),
	},
	"c": {
		regexp.MustCompile(`(?m)^\w[\w\s\*]*\([^;{]*\)\s*\{`),
		regexp.MustCompile(`(?m)^(typedef\s+)?struct\s`),
	},
	"php": {
		regexp.MustCompile(`(?m)^\s*(public|private|protected)?\s*(static\s+)?function\s`),
		regexp.MustCompile(`(?m)^\s*(abstract\s+)?class\s`),
		regexp.MustCompile(`(?m)^\s*interface\s`),
	},
	"terraform": {
		regexp.MustCompile(`(?m)^resource\s`),
		regexp.MustCompile(`(?m)^rule\s`),
	},
}

var extLanguage = map[string]string{
	".go":   "go",
	".ts":   "typescript",
	".tsx":  "typescript",
	".js":   "typescript",
	".jsx":  "typescript",
	".py":   "python",
	".rs":   "rust",
	".java": "java",
	".rb":   "ruby",
	".c":    "c",
	".h":    "c",
	".cpp":  "c",
	".cc":   "c",
	".hpp":  "c",
	".php":  "php",
	".tf":   "terraform",
}

// LanguageForPath returns the code-aware-splitter language family for a
// path, or "" if none is registered.
func LanguageForPath(relPath string) string {
	return extLanguage[strings.ToLower(filepath.Ext(relPath))]
}

// SupportsCodeAwareChunking reports whether relPath has a registered
// boundary-pattern catalogue.
func SupportsCodeAwareChunking(relPath string) bool {
	lang := LanguageForPath(relPath)
	_, ok := boundaryPatterns[lang]
	return ok
}

// CodeAwareSplitter packs consecutive boundary-to-boundary regions into
// chunks respecting ChunkSize/MaxChunkSize, signalling fallback when the
// file is too large and no boundaries are found.
type CodeAwareSplitter struct {
	preset CharPreset
}

// NewCodeAwareSplitter creates a splitter using the code chunk-size preset.
func NewCodeAwareSplitter(preset CharPreset) *CodeAwareSplitter {
	return &CodeAwareSplitter{preset: preset}
}

// Split returns the packed chunks, or (nil, false) if it cannot produce
// boundaries for a file larger than ChunkSize — the caller must then fall
// back to CharacterSplitter.
func (s *CodeAwareSplitter) Split(relPath, text string) ([]Piece, bool) {
	lang := LanguageForPath(relPath)
	patterns := boundaryPatterns[lang]
	if len(patterns) == 0 {
		return nil, false
	}

	starts := s.findBoundaries(text, patterns)
	if len(starts) == 0 {
		if len(text) > s.preset.ChunkSize {
			return nil, false
		}
		return []Piece{{Text: text, StartLine: 1, EndLine: countLines(text)}}, true
	}

	// Region 0 covers the file header up to the first boundary.
	regions := make([]string, 0, len(starts)+1)
	offsets := make([]int, 0, len(starts)+1)
	if starts[0] > 0 {
		regions = append(regions, text[:starts[0]])
		offsets = append(offsets, 0)
	}
	for i, start := range starts {
		end := len(text)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		regions = append(regions, text[start:end])
		offsets = append(offsets, start)
	}

	return s.pack(regions, offsets, text), true
}

func (s *CodeAwareSplitter) findBoundaries(text string, patterns []*regexp.Regexp) []int {
	set := map[int]struct{}{}
	for _, p := range patterns {
		for _, loc := range p.FindAllStringIndex(text, -1) {
			set[loc[0]] = struct{}{}
		}
	}
	starts := make([]int, 0, len(set))
	for s := range set {
		starts = append(starts, s)
	}
	sortInts(starts)
	return starts
}

// pack greedily merges consecutive regions while the accumulated size
// stays within ChunkSize, splitting any single region that alone exceeds
// MaxChunkSize using the character splitter as a nested fallback.
func (s *CodeAwareSplitter) pack(regions []string, offsets []int, original string) []Piece {
	var out []Piece
	var cur strings.Builder
	curStart := -1

	flush := func(endOffset int) {
		if cur.Len() == 0 {
			return
		}
		out = append(out, Piece{
			Text:      cur.String(),
			StartLine: lineAt(original, curStart),
			EndLine:   lineAt(original, endOffset),
		})
		cur.Reset()
		curStart = -1
	}

	for i, region := range regions {
		regionEnd := offsets[i] + len(region) - 1
		if len(region) > s.preset.MaxChunkSize {
			flush(offsets[i] - 1)
			sub := NewCharacterSplitter(s.preset).Split(region)
			base := lineAt(original, offsets[i]) - 1
			for _, p := range sub {
				out = append(out, Piece{Text: p.Text, StartLine: p.StartLine + base, EndLine: p.EndLine + base})
			}
			continue
		}
		if cur.Len() > 0 && cur.Len()+len(region) > s.preset.ChunkSize {
			flush(offsets[i] - 1)
		}
		if curStart < 0 {
			curStart = offsets[i]
		}
		cur.WriteString(region)
		_ = regionEnd
	}
	if cur.Len() > 0 {
		flush(offsets[len(offsets)-1] + len(regions[len(regions)-1]) - 1)
	}
	return out
}

func countLines(s string) int {
	if s == "" {
		return 1
	}
	return 1 + strings.Count(s, "\n")
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
