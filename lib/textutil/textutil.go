// Package textutil canonicalizes the free text the portal hands back:
// actuación names, file descriptions and extracted PDF content all go
// through Normalize before any keyword matching happens.
package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

var stripMarks = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Normalize upper-cases, strips diacritics and collapses whitespace runs
// into single spaces. It is idempotent and never fails; inputs that cannot
// be decomposed are passed through as-is.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToUpper(s)
	stripped, _, err := transform.String(stripMarks, s)
	if err == nil {
		s = stripped
	}
	s = whitespaceRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

var filenameForbidden = regexp.MustCompile(`[\\/*?:"<>|]`)

// SanitizeFilename removes the characters Windows and the portal's own
// viewer refuse in file names, then collapses whitespace.
func SanitizeFilename(name string) string {
	name = filenameForbidden.ReplaceAllString(name, "")
	return strings.Join(strings.Fields(name), " ")
}

// ContainsAny reports whether the already-normalized haystack contains any
// of the given keywords, returning the first keyword that matched so callers
// can attribute the decision in logs.
func ContainsAny(normalized string, keywords []string) (string, bool) {
	for _, kw := range keywords {
		if strings.Contains(normalized, kw) {
			return kw, true
		}
	}
	return "", false
}
