package policy

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// knownBinaryExts short-circuits the sniff step for common binary
// extensions.
var knownBinaryExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true, ".ico": true,
	".pdf": true, ".zip": true, ".tar": true, ".gz": true, ".7z": true, ".rar": true,
	".exe": true, ".dll": true, ".so": true, ".dylib": true, ".bin": true,
	".woff": true, ".woff2": true, ".ttf": true, ".otf": true, ".eot": true,
	".mp3": true, ".mp4": true, ".mov": true, ".avi": true, ".webm": true,
	".db": true, ".sqlite": true, ".sqlite3": true,
}

const binarySniffSize = 8 * 1024

// IsBinaryPath classifies relPath using its extension, falling back to
// sniffing the first 8 KiB of absPath for unknown extensions.
func IsBinaryPath(relPath, absPath string) bool {
	ext := strings.ToLower(filepath.Ext(relPath))
	if knownBinaryExts[ext] {
		return true
	}

	f, err := os.Open(absPath)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, binarySniffSize)
	n, _ := f.Read(buf)
	return LooksBinary(buf[:n])
}

// LooksBinary reports whether a byte sample should be treated as binary:
// the presence of a NUL byte, or more than 30% non-printable bytes.
func LooksBinary(sample []byte) bool {
	if len(sample) == 0 {
		return false
	}
	if bytes.IndexByte(sample, 0) >= 0 {
		return true
	}

	nonPrintable := 0
	i := 0
	for i < len(sample) {
		r, size := utf8.DecodeRune(sample[i:])
		if r == utf8.RuneError && size == 1 {
			nonPrintable++
			i++
			continue
		}
		if !isPrintableOrWhitespace(r) {
			nonPrintable++
		}
		i += size
	}

	return float64(nonPrintable)/float64(len(sample)) > 0.30
}

func isPrintableOrWhitespace(r rune) bool {
	switch r {
	case '\n', '\r', '\t':
		return true
	}
	return r >= 0x20 && r != 0x7f
}
