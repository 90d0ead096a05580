package chunk

import (
	"path/filepath"
	"strings"
)

var markdownExts = map[string]bool{
	".md":       true,
	".markdown": true,
	".mdx":      true,
}

var docExts = map[string]bool{
	".md":       true,
	".markdown": true,
	".mdx":      true,
	".txt":      true,
	".rst":      true,
}

// IsDocFile reports whether relPath should go through the prose chunking
// path rather than code chunking.
func IsDocFile(relPath string) bool {
	return docExts[strings.ToLower(filepath.Ext(relPath))]
}

func isMarkdownFile(relPath string) bool {
	return markdownExts[strings.ToLower(filepath.Ext(relPath))]
}

// Chunker dispatches a file's text to the appropriate splitter and wraps
// the resulting Pieces into identity-bearing Chunks.
type Chunker struct {
	markdown  *MarkdownChunker
	ast       *ASTChunker
	codeAware *CodeAwareSplitter
	code      *CharacterSplitter
	prose     *CharacterSplitter
}

// NewChunker builds a Chunker wired with the standard presets.
func NewChunker(chunking ChunkingTuning) *Chunker {
	codePreset := CharPreset{
		Separators:   []string{"\n\n", "\n", " ", ""},
		ChunkSize:    chunking.CodeChunkSize,
		Overlap:      chunking.CodeOverlap,
		MaxChunkSize: chunking.CodeChunkSize,
	}
	prosePreset := CharPreset{
		Separators:   []string{"\n\n", "\n", ". ", " ", ""},
		ChunkSize:    chunking.ProseChunkSize,
		Overlap:      chunking.ProseOverlap,
		MaxChunkSize: chunking.ProseChunkSize,
	}
	return &Chunker{
		markdown:  NewMarkdownChunker(prosePreset),
		ast:       NewASTChunker(codePreset),
		codeAware: NewCodeAwareSplitter(codePreset),
		code:      NewCharacterSplitter(codePreset),
		prose:     NewCharacterSplitter(prosePreset),
	}
}

// ChunkingTuning carries the subset of config.ChunkingConfig the chunker
// needs, decoupling this package from internal/config.
type ChunkingTuning struct {
	CodeChunkSize  int
	CodeOverlap    int
	ProseChunkSize int
	ProseOverlap   int
}

// Chunk splits text from relPath into identity-bearing Chunks, dispatching
// by file type and language support.
func (c *Chunker) Chunk(relPath, text string) []Chunk {
	pieces := c.splitPieces(relPath, text)
	contentHash := ContentHash(text)

	chunks := make([]Chunk, 0, len(pieces))
	for _, p := range pieces {
		chunks = append(chunks, Chunk{
			ID:          NewID(),
			Path:        relPath,
			Text:        p.Text,
			StartLine:   p.StartLine,
			EndLine:     p.EndLine,
			ContentHash: contentHash,
			ChunkHash:   ChunkHash(p.Text),
			Metadata:    p.Metadata,
		})
	}
	return chunks
}

func (c *Chunker) splitPieces(relPath, text string) []Piece {
	if IsDocFile(relPath) {
		if isMarkdownFile(relPath) {
			return c.markdown.Split(text)
		}
		return c.prose.Split(text)
	}

	if SupportsASTChunking(relPath) {
		if pieces, ok := c.ast.Split(relPath, text); ok {
			return pieces
		}
	}

	if SupportsCodeAwareChunking(relPath) {
		if pieces, ok := c.codeAware.Split(relPath, text); ok {
			return pieces
		}
	}

	return c.code.Split(text)
}
