// Package match resolves free-text client names to known clients.
package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var punctuation = strings.NewReplacer(
	"'", "",
	"’", "",
	"-", "",
	".", "",
)

// Normalize standardizes a client name for comparison by:
//  1. Converting to lowercase
//  2. Decomposing (NFD) and dropping combining marks, so "é" becomes "e"
//  3. Removing apostrophes, hyphens and periods
//  4. Trimming surrounding whitespace
//
// Empty input yields "". Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	s = strings.ToLower(s)

	// Chains keep state, so build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	if out, _, err := transform.String(t, s); err == nil {
		s = out
	}

	s = punctuation.Replace(s)
	return strings.TrimSpace(s)
}

// Tokens returns the set of whitespace-delimited words of Normalize(s).
func Tokens(s string) map[string]struct{} {
	fields := strings.Fields(Normalize(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
