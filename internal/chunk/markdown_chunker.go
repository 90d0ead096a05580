package chunk

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	atxHeaderRe    = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	setextEqRe     = regexp.MustCompile(`^=+\s*$`)
	setextDashRe   = regexp.MustCompile(`^-+\s*$`)
	frontmatterRe  = regexp.MustCompile(`^(---|\+\+\+)\s*$`)
	fenceBacktick  = regexp.MustCompile("^```")
	fenceTilde     = regexp.MustCompile(`^~~~`)
)

// mdSection is one node in the markdown breadcrumb tree.
type mdSection struct {
	level     int
	title     string
	path      []string
	startLine int
	lines     []string
}

// MarkdownChunker parses a markdown document into breadcrumb-tagged
// sections, one chunk per section (sub-chunked on paragraph boundaries
// when oversized).
type MarkdownChunker struct {
	preset CharPreset
}

// NewMarkdownChunker creates a markdown chunker using the prose preset.
func NewMarkdownChunker(preset CharPreset) *MarkdownChunker {
	return &MarkdownChunker{preset: preset}
}

// Split parses text and returns one or more Pieces, each carrying a
// rendered breadcrumb-prefixed section body.
func (m *MarkdownChunker) Split(text string) []Piece {
	lineOffset, body := stripFrontmatter(text)
	lines := strings.Split(body, "\n")
	fenced := fencedLineMask(lines)

	sections := m.buildSections(lines, fenced, lineOffset)

	var pieces []Piece
	for _, sec := range sections {
		pieces = append(pieces, m.renderSection(sec)...)
	}
	return pieces
}

// stripFrontmatter removes a leading YAML/TOML frontmatter block and
// returns the number of lines it occupied (so later line numbers can be
// offset back to the original file) plus the remaining body.
func stripFrontmatter(text string) (int, string) {
	lines := strings.Split(text, "\n")
	if len(lines) == 0 || !frontmatterRe.MatchString(strings.TrimSpace(lines[0])) {
		return 0, text
	}
	delim := strings.TrimSpace(lines[0])
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == delim {
			return i + 1, strings.Join(lines[i+1:], "\n")
		}
	}
	return 0, text
}

// fencedLineMask marks every line inside a ``` or ~~~ fenced code block so
// header scanning can skip it.
func fencedLineMask(lines []string) []bool {
	mask := make([]bool, len(lines))
	inFence := false
	var fenceRe *regexp.Regexp
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !inFence {
			if fenceBacktick.MatchString(trimmed) {
				inFence = true
				fenceRe = fenceBacktick
				mask[i] = true
				continue
			}
			if fenceTilde.MatchString(trimmed) {
				inFence = true
				fenceRe = fenceTilde
				mask[i] = true
				continue
			}
		} else {
			mask[i] = true
			if fenceRe.MatchString(trimmed) {
				inFence = false
			}
			continue
		}
	}
	return mask
}

// buildSections walks the document building a breadcrumb tree: each ATX
// or setext header starts a new section at its level; content before any
// header becomes an unnamed root section.
func (m *MarkdownChunker) buildSections(lines []string, fenced []bool, lineOffset int) []mdSection {
	var sections []mdSection
	var stack []string // titles at each active level, index 0 = level 1

	cur := mdSection{level: 0, title: "", path: nil, startLine: lineOffset + 1}

	flush := func(nextStart int) {
		if len(cur.lines) > 0 {
			sections = append(sections, cur)
		}
		cur = mdSection{startLine: nextStart}
	}

	i := 0
	for i < len(lines) {
		line := lines[i]
		if fenced[i] {
			cur.lines = append(cur.lines, line)
			i++
			continue
		}

		if mATX := atxHeaderRe.FindStringSubmatch(line); mATX != nil {
			flush(lineOffset + i + 1)
			level := len(mATX[1])
			title := strings.TrimSpace(mATX[2])
			stack = pathAtLevel(stack, level, title)
			cur.level = level
			cur.title = title
			cur.path = append([]string(nil), stack...)
			cur.lines = append(cur.lines, line)
			i++
			continue
		}

		// Setext header: current line is the title, next is the underline.
		if i+1 < len(lines) && !fenced[i+1] && strings.TrimSpace(line) != "" {
			next := lines[i+1]
			if setextEqRe.MatchString(next) || setextDashRe.MatchString(next) {
				level := 1
				if setextDashRe.MatchString(next) {
					level = 2
				}
				flush(lineOffset + i + 1)
				title := strings.TrimSpace(line)
				stack = pathAtLevel(stack, level, title)
				cur.level = level
				cur.title = title
				cur.path = append([]string(nil), stack...)
				cur.lines = append(cur.lines, line, next)
				i += 2
				continue
			}
		}

		cur.lines = append(cur.lines, line)
		i++
	}
	flush(lineOffset + len(lines) + 1)

	return sections
}

// pathAtLevel truncates/extends the breadcrumb stack to represent title
// at level (1-based), returning the new stack.
func pathAtLevel(stack []string, level int, title string) []string {
	if level > len(stack)+1 {
		level = len(stack) + 1
	}
	newStack := make([]string, level)
	copy(newStack, stack)
	newStack[level-1] = title
	return newStack
}

// renderSection converts one mdSection into one or more Pieces, splitting
// on paragraph boundaries with overlap when the rendered body exceeds
// MaxChunkSize, and prefixing a "[A > B]" breadcrumb for non-root
// sections.
func (m *MarkdownChunker) renderSection(sec mdSection) []Piece {
	body := strings.Join(sec.lines, "\n")
	breadcrumb := renderBreadcrumb(sec.path)
	rendered := body
	if breadcrumb != "" {
		rendered = breadcrumb + "\n" + body
	}

	endLine := sec.startLine + len(sec.lines) - 1
	if len(sec.lines) == 0 {
		endLine = sec.startLine
	}

	if len(rendered) <= m.preset.MaxChunkSize {
		return []Piece{{Text: rendered, StartLine: sec.startLine, EndLine: endLine}}
	}

	paragraphs := splitParagraphs(sec.lines, sec.startLine)
	var pieces []Piece
	var cur strings.Builder
	curStart, curEnd := sec.startLine, sec.startLine

	flush := func() {
		if cur.Len() == 0 {
			return
		}
		part := cur.String()
		text := part
		if breadcrumb != "" {
			if len(pieces) > 0 {
				text = breadcrumb + " (continued)\n" + part
			} else {
				text = breadcrumb + "\n" + part
			}
		}
		pieces = append(pieces, Piece{Text: text, StartLine: curStart, EndLine: curEnd})
		cur.Reset()
	}

	for _, para := range paragraphs {
		if cur.Len() > 0 && cur.Len()+len(para.text) > m.preset.ChunkSize {
			overlap := tailOverlap(cur.String(), m.preset.Overlap)
			flush()
			cur.WriteString(overlap)
			curStart = curEnd
		}
		if cur.Len() == 0 {
			curStart = para.startLine
		}
		cur.WriteString(para.text)
		curEnd = para.endLine
	}
	flush()

	if len(pieces) == 0 {
		return []Piece{{Text: rendered, StartLine: sec.startLine, EndLine: endLine}}
	}
	return pieces
}

type mdParagraph struct {
	text      string
	startLine int
	endLine   int
}

// splitParagraphs splits lines on blank-line boundaries into paragraphs
// carrying their own line spans.
func splitParagraphs(lines []string, startLine int) []mdParagraph {
	var paras []mdParagraph
	var cur []string
	curStart := startLine

	flush := func(endLine int) {
		if len(cur) == 0 {
			return
		}
		paras = append(paras, mdParagraph{
			text:      strings.Join(cur, "\n") + "\n\n",
			startLine: curStart,
			endLine:   endLine,
		})
		cur = nil
	}

	for i, line := range lines {
		ln := startLine + i
		if strings.TrimSpace(line) == "" {
			flush(startLine + i - 1)
			curStart = ln + 1
			continue
		}
		if len(cur) == 0 {
			curStart = ln
		}
		cur = append(cur, line)
	}
	flush(startLine + len(lines) - 1)
	return paras
}

// renderBreadcrumb renders a section's full path (root section, which has
// no title, renders as "" — only sections reached via a header get a
// breadcrumb).
func renderBreadcrumb(path []string) string {
	nonEmpty := make([]string, 0, len(path))
	for _, p := range path {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	if len(nonEmpty) == 0 {
		return ""
	}
	return fmt.Sprintf("[%s]", strings.Join(nonEmpty, " > "))
}
