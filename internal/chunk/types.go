// Package chunk implements the data model and splitting strategies for
// an ordered, line-spanned decomposition of a file's text into stable,
// individually embeddable units.
package chunk

import "github.com/google/uuid"

// Kind is the tagged-variant set a chunk's metadata.Kind draws from.
type Kind string

const (
	KindClass     Kind = "class"
	KindFunction  Kind = "function"
	KindMethod    Kind = "method"
	KindInterface Kind = "interface"
	KindImpl      Kind = "impl"
	KindStruct    Kind = "struct"
	KindEnum      Kind = "enum"
	KindType      Kind = "type"
	KindSection   Kind = "section"
	KindOther     Kind = "other"
)

// Metadata carries the optional, language-aware facts a splitter attaches
// to a chunk.
type Metadata struct {
	Kind       Kind
	Name       string
	ParentName string
	Language   string
	Visibility string
	IsExport   bool
	IsAsync    bool
	IsStatic   bool
	Docstring  string
	Decorators []string
	HeaderPath []string
	Part       int
	TotalParts int
}

// Chunk is a stable, individually indexed unit of a file's text.
type Chunk struct {
	ID          string
	Path        string
	Text        string
	StartLine   int
	EndLine     int
	ContentHash string
	ChunkHash   string
	Metadata    *Metadata
}

// Piece is what a splitter produces before the dispatcher assigns
// identity and hashes: an ordered (text, line span, optional metadata)
// tuple.
type Piece struct {
	Text      string
	StartLine int
	EndLine   int
	Metadata  *Metadata
}

// NewID mints a new stable chunk identifier: a UUID v4 generated at
// creation time.
func NewID() string {
	return uuid.NewString()
}
