package indexer

import (
	"strings"
	"unicode"
)

// Preprocess normalizes text for chunking: drops control and format characters (BOM,
// zero-width space), collapses whitespace runs to one space, and trims the ends.
func Preprocess(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	pendingSpace := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = b.Len() > 0
		case unicode.IsControl(r), unicode.Is(unicode.Cf, r):
			continue
		default:
			if pendingSpace {
				b.WriteByte(' ')
				pendingSpace = false
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}
