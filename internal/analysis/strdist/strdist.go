// Package strdist provides the string normalisation and edit-distance
// primitives shared by the brand matcher and the phoneme analyzer.
//
// All functions are pure and deterministic. Distance is classic Levenshtein
// (unit-cost insert/delete/substitute), delegated to the matchr library.
package strdist

import (
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

// Normalize projects s onto its lowercase alphanumeric form: ASCII letters
// are lowercased, digits are kept, and every other rune is dropped.
// Normalisation is idempotent — Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		}
	}
	return b.String()
}

// Distance returns the Levenshtein edit distance between a and b: the minimum
// number of single-character insertions, deletions, and substitutions needed
// to transform a into b. Distance(a, a) == 0 and Distance(a, "") == len(a).
func Distance(a, b string) int {
	return matchr.Levenshtein(a, b)
}

// Similarity returns 1 - Distance(a, b)/max(runes(a), runes(b)), a value in
// [0, 1] where 1 means identical. The divisor counts runes, matching the
// rune-based edit distance, so multi-byte input cannot skew the ratio. Two
// empty strings are defined as fully similar to avoid a zero division.
func Similarity(a, b string) float64 {
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(Distance(a, b))/float64(maxLen)
}
