// Package slug derives filesystem-safe folder names from display names.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	nonWord    = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

	// đ and Đ do not decompose under NFD.
	strokeReplacer = strings.NewReplacer("đ", "d", "Đ", "D")
)

// Make lower-cases s, strips accents, turns whitespace runs into hyphens and
// drops every remaining character outside [A-Za-z0-9_-].
func Make(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	stripped = strokeReplacer.Replace(stripped)
	stripped = strings.TrimSpace(strings.ToLower(stripped))
	stripped = whitespace.ReplaceAllString(stripped, "-")
	return nonWord.ReplaceAllString(stripped, "")
}
