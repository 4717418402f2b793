// Package textnorm canonicalizes free text before keyword matching.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lower-cases text, folds accents, drops every character outside
// [a-z0-9] and whitespace, then collapses runs of whitespace into a single
// space. It never fails: any input, including "", yields a (possibly empty)
// string.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	folded := foldAccents(strings.ToLower(text))

	var b strings.Builder
	b.Grow(len(folded))
	pendingSpace := false
	for _, r := range folded {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = b.Len() > 0
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pendingSpace {
				b.WriteByte(' ')
				pendingSpace = false
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Tokens returns the whitespace-delimited tokens of the normalized text.
func Tokens(text string) []string {
	return strings.Fields(Normalize(text))
}

func foldAccents(s string) string {
	// A transformer chain holds state, so one is built per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
