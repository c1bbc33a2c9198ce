package textutil

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SanitizeFileName keeps only characters the external tools handle reliably:
// ASCII letters and digits, '-', '_', '.', and spaces. Accented Latin letters
// are folded to their base letter. Runes outside the Latin-1 range are left
// untouched. When nothing survives, the original name is returned.
func SanitizeFileName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 0x100:
			b.WriteRune(r)
		case r >= 0x80:
			for _, base := range foldLatin1(r) {
				if allowedFileRune(unicode.ToLower(base)) {
					b.WriteRune(base)
				}
			}
		case allowedFileRune(unicode.ToLower(r)):
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return name
	}
	return b.String()
}

// SanitizeStem sanitizes the base name of path without its extension.
func SanitizeStem(path string) string {
	return SanitizeFileName(Stem(path))
}

// Stem returns the base name of path without its final extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// foldLatin1 strips combining marks from a Latin-1 letter ("é" -> "e").
// Transformers carry state, so a fresh chain is built per call.
func foldLatin1(r rune) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(folder, string(r))
	if err != nil {
		return ""
	}
	return out
}

func allowedFileRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_' || r == '.' || r == ' ':
		return true
	default:
		return false
	}
}
