package policy

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// isInvisible reports whether r is a zero-width, BiDi control/override, or
// other formatting character that must never silently participate in path
// matching. Unicode's Cf (format) category covers zero-width joiners,
// BOM, LRM/RLM, and the embedding and isolate override characters.
func isInvisible(r rune) bool {
	return unicode.Is(unicode.Cf, r)
}

// NormalizePath NFC-normalizes relPath and strips invisible characters
// before any matching occurs.
func NormalizePath(relPath string) string {
	normalized := norm.NFC.String(relPath)
	var b strings.Builder
	b.Grow(len(normalized))
	for _, r := range normalized {
		if isInvisible(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
