package chunk

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// ASTChunker splits source text into one chunk per top-level declaration
// (and one per method inside a class/struct/impl container), carrying
// symbol metadata, using the tree-sitter grammar registered for the
// file's language.
type ASTChunker struct {
	preset CharPreset
}

// NewASTChunker creates an AST chunker using the code chunk-size preset.
func NewASTChunker(preset CharPreset) *ASTChunker {
	return &ASTChunker{preset: preset}
}

// Split returns the extracted declaration chunks, or (nil, false) if
// relPath's language has no grammar registered or the parse failed.
func (a *ASTChunker) Split(relPath, text string) ([]Piece, bool) {
	langName := LanguageForPath(relPath)
	lang, ok := astLanguages[langName]
	if !ok {
		return nil, false
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang.language)

	source := []byte(text)
	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, false
	}
	defer tree.Close()

	var pieces []Piece
	root := tree.RootNode()
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(uint(i))
		if child == nil {
			continue
		}
		pieces = append(pieces, a.visitTopLevel(child, source, lang, text)...)
	}

	if len(pieces) == 0 {
		return nil, false
	}
	return pieces, true
}

func (a *ASTChunker) visitTopLevel(node *sitter.Node, source []byte, lang *astLanguage, original string) []Piece {
	kind := node.Kind()

	if metaKind, ok := lang.topLevel[kind]; ok {
		return a.makePieces(node, source, lang, metaKind, "", original)
	}

	if metaKind, ok := lang.containers[kind]; ok {
		name := nodeName(node, source)
		var out []Piece
		out = append(out, a.makePieces(node, source, lang, metaKind, "", original)...)
		out = append(out, a.visitMethods(node, source, lang, name, original)...)
		return out
	}

	return nil
}

// visitMethods walks a container node's descendants (but does not cross
// into nested containers) looking for method-kind nodes.
func (a *ASTChunker) visitMethods(node *sitter.Node, source []byte, lang *astLanguage, parentName string, original string) []Piece {
	var out []Piece
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		for i := 0; i < int(n.ChildCount()); i++ {
			child := n.Child(uint(i))
			if child == nil {
				continue
			}
			if _, isContainer := lang.containers[child.Kind()]; isContainer && child != node {
				continue // nested container handled by its own visitTopLevel pass
			}
			if metaKind, ok := lang.methods[child.Kind()]; ok {
				out = append(out, a.makePieces(child, source, lang, metaKind, parentName, original)...)
				continue
			}
			walk(child)
		}
	}
	walk(node)
	return out
}

// makePieces converts a declaration node into one Piece, or several when
// the node's text exceeds MaxChunkSize, in which case it is sub-split by
// the character splitter with Part/TotalParts metadata set.
func (a *ASTChunker) makePieces(node *sitter.Node, source []byte, lang *astLanguage, kind Kind, parentName string, original string) []Piece {
	text := string(source[node.StartByte():node.EndByte()])
	startLine := int(node.StartPosition().Row) + 1
	endLine := int(node.EndPosition().Row) + 1

	name := nodeName(node, source)
	meta := &Metadata{
		Kind:       kind,
		Name:       name,
		ParentName: parentName,
		Language:   lang.name,
		Visibility: visibilityOf(lang.name, name),
		IsAsync:    strings.Contains(leadingKeywords(node, source), "async"),
		IsStatic:   strings.Contains(leadingKeywords(node, source), "static"),
		Docstring:  docstringFor(node, source, lang.name),
	}
	meta.IsExport = meta.Visibility == "public"

	if len(text) <= a.preset.MaxChunkSize {
		return []Piece{{Text: text, StartLine: startLine, EndLine: endLine, Metadata: meta}}
	}

	sub := NewCharacterSplitter(a.preset).Split(text)
	out := make([]Piece, 0, len(sub))
	for i, p := range sub {
		m := *meta
		m.Part = i + 1
		m.TotalParts = len(sub)
		out = append(out, Piece{
			Text:      p.Text,
			StartLine: p.StartLine + startLine - 1,
			EndLine:   p.EndLine + startLine - 1,
			Metadata:  &m,
		})
	}
	return out
}

func nodeName(node *sitter.Node, source []byte) string {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return ""
	}
	return string(source[nameNode.StartByte():nameNode.EndByte()])
}

// visibilityOf applies per-language visibility conventions by name only:
// a Python name with a leading underscore is private, and every other
// name in every language is public. Modifier keywords such as
// public/private/protected are not inspected.
func visibilityOf(lang, name string) string {
	switch lang {
	case "python":
		if strings.HasPrefix(name, "_") {
			return "private"
		}
		return "public"
	case "ruby":
		return "public"
	default:
		return "public"
	}
}

// leadingKeywords returns the raw text immediately preceding node on its
// own line, used to sniff modifier keywords like async/static/public.
func leadingKeywords(node *sitter.Node, source []byte) string {
	start := int(node.StartByte())
	lineStart := start
	for lineStart > 0 && source[lineStart-1] != '\n' {
		lineStart--
	}
	return string(source[lineStart:start])
}

// docstringFor extracts a leading comment or docstring preceding node,
// when the grammar places one as a named sibling or first statement.
func docstringFor(node *sitter.Node, source []byte, lang string) string {
	if lang == "python" {
		body := node.ChildByFieldName("body")
		if body != nil && body.ChildCount() > 0 {
			first := body.Child(0)
			if first != nil && first.Kind() == "expression_statement" && first.ChildCount() > 0 {
				str := first.Child(0)
				if str != nil && str.Kind() == "string" {
					return strings.Trim(string(source[str.StartByte():str.EndByte()]), "\"' \t\n")
				}
			}
		}
	}
	prev := node.PrevSibling()
	if prev != nil && strings.Contains(prev.Kind(), "comment") {
		return strings.TrimSpace(string(source[prev.StartByte():prev.EndByte()]))
	}
	return ""
}
