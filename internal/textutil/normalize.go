// Package textutil provides text canonicalization and denoising helpers
// used by the extraction pipeline.
package textutil

import "strings"

// Normalize canonicalizes extracted text: NUL bytes are removed, line
// endings become LF, runs of tabs and spaces between words collapse to a
// single space (runs next to a line break are dropped), three or more
// consecutive newlines collapse to exactly two, and the
// result is trimmed. Normalize is idempotent.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	var b strings.Builder
	b.Grow(len(s))

	spaceRun := false
	newlineRun := 0
	for _, r := range s {
		switch r {
		case ' ', '\t':
			spaceRun = true
		case '\n':
			spaceRun = false
			newlineRun++
		default:
			if newlineRun > 0 {
				if newlineRun > 2 {
					newlineRun = 2
				}
				for i := 0; i < newlineRun; i++ {
					b.WriteByte('\n')
				}
				newlineRun = 0
			} else if spaceRun && b.Len() > 0 {
				b.WriteByte(' ')
			}
			spaceRun = false
			b.WriteRune(r)
		}
	}

	return strings.TrimSpace(b.String())
}
