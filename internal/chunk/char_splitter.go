package chunk

import "strings"

// CharPreset configures a CharacterSplitter. The two built-in presets are
// Code and Prose.
type CharPreset struct {
	Separators   []string
	ChunkSize    int
	Overlap      int
	MaxChunkSize int
}

// CodePreset is the recursive-splitter configuration used for source
// files that have no AST or code-aware splitter available.
func CodePreset() CharPreset {
	return CharPreset{
		Separators:   []string{"\n\n", "\n", " ", ""},
		ChunkSize:    4000,
		Overlap:      800,
		MaxChunkSize: 4000,
	}
}

// ProsePreset is the recursive-splitter configuration used for
// non-markdown prose files.
func ProsePreset() CharPreset {
	return CharPreset{
		Separators:   []string{"\n\n", "\n", ". ", " ", ""},
		ChunkSize:    8000,
		Overlap:      2000,
		MaxChunkSize: 8000,
	}
}

// CharacterSplitter recursively splits text on an ordered separator list,
// packing pieces into chunks that respect ChunkSize with a trailing
// Overlap carried into the next chunk.
type CharacterSplitter struct {
	preset CharPreset
}

// NewCharacterSplitter creates a splitter for the given preset.
func NewCharacterSplitter(preset CharPreset) *CharacterSplitter {
	return &CharacterSplitter{preset: preset}
}

// Split implements the recursive-separator packing algorithm.
func (s *CharacterSplitter) Split(text string) []Piece {
	if text == "" {
		return nil
	}

	pieces := s.recursiveSplit(text, s.preset.Separators)
	return s.pack(pieces, text)
}

// recursiveSplit finds the first separator in order that produces pieces
// all within MaxChunkSize; pieces still too large are recursively split
// with the remaining separators.
func (s *CharacterSplitter) recursiveSplit(text string, seps []string) []string {
	if len(text) <= s.preset.MaxChunkSize || len(seps) == 0 {
		return []string{text}
	}

	sep := seps[0]
	var parts []string
	if sep == "" {
		// Last resort: split by rune so we never infinite-loop.
		runes := []rune(text)
		for i := 0; i < len(runes); i += s.preset.MaxChunkSize {
			end := i + s.preset.MaxChunkSize
			if end > len(runes) {
				end = len(runes)
			}
			parts = append(parts, string(runes[i:end]))
		}
		return parts
	}

	raw := strings.Split(text, sep)
	for i, p := range raw {
		if i < len(raw)-1 {
			p = p + sep
		}
		if p == "" {
			continue
		}
		if len(p) > s.preset.MaxChunkSize {
			parts = append(parts, s.recursiveSplit(p, seps[1:])...)
		} else {
			parts = append(parts, p)
		}
	}
	return parts
}

// pack greedily accumulates pieces into chunks respecting ChunkSize,
// carrying Overlap trailing characters of the previous chunk forward, and
// reconstructs 1-based line numbers by counting newlines up to each
// chunk's start offset in the original text.
func (s *CharacterSplitter) pack(pieces []string, original string) []Piece {
	var chunks []Piece
	var current strings.Builder
	offset := 0
	chunkStartOffset := 0

	flush := func() {
		if current.Len() == 0 {
			return
		}
		text := current.String()
		startLine := lineAt(original, chunkStartOffset)
		endLine := lineAt(original, chunkStartOffset+len(text)-1)
		chunks = append(chunks, Piece{Text: text, StartLine: startLine, EndLine: endLine})
	}

	for _, p := range pieces {
		if current.Len() > 0 && current.Len()+len(p) > s.preset.ChunkSize {
			flush()
			overlap := tailOverlap(current.String(), s.preset.Overlap)
			current.Reset()
			current.WriteString(overlap)
			chunkStartOffset = offset - len(overlap)
			if chunkStartOffset < 0 {
				chunkStartOffset = 0
			}
		}
		if current.Len() == 0 {
			chunkStartOffset = offset
		}
		current.WriteString(p)
		offset += len(p)
	}
	flush()

	return chunks
}

// tailOverlap returns up to n trailing characters of s, not splitting a
// multi-byte rune.
func tailOverlap(s string, n int) string {
	if n <= 0 || len(s) == 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}

// lineAt returns the 1-based line number containing byte offset off in s.
func lineAt(s string, off int) int {
	if off < 0 {
		off = 0
	}
	if off > len(s) {
		off = len(s)
	}
	return 1 + strings.Count(s[:off], "\n")
}
