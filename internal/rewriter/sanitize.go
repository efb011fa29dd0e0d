package rewriter

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Sanitize drops characters the generator's typesetting backend cannot take
// verbatim and collapses runs of whitespace to a single space. Accented
// letters are decomposed first so only their marks are lost.
func Sanitize(text string) string {
	text = norm.NFD.String(text)
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r > 0x7f {
			continue
		}
		switch r {
		case '\\', '{', '}', '$', '%', '#', '&', '_', '^', '~':
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
