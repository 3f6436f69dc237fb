// Package names canonicalizes free-text team and participant names for
// comparison. Normalized forms are used only for matching — the display name
// stored on a canonical event is always the raw provider name.
package names

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// noiseTokens are provider artifacts that carry no identity information.
var noiseTokens = map[string]bool{
	"live": true,
	"fc":   true,
	"afc":  true,
	"cf":   true,
	"sc":   true,
}

var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases, strips diacritics and punctuation, collapses
// whitespace, and drops noise tokens. Pure and total — any input yields a
// (possibly empty) string, never an error.
func Normalize(name string) string {
	name = strings.ToLower(name)

	if out, _, err := transform.String(stripDiacritics, name); err == nil {
		name = out
	}

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		default:
			// Punctuation separates words rather than joining them:
			// "St.Louis" must not collapse to "stlouis".
			b.WriteRune(' ')
		}
	}

	fields := strings.Fields(b.String())
	kept := fields[:0]
	for _, f := range fields {
		if !noiseTokens[f] {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}

// Match reports whether two normalized names refer to the same participant:
// either exactly equal or one containing the other ("lakers" vs
// "los angeles lakers").
func Match(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
