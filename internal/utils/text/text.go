// Package text provides rune-aware helpers for cleaning and capping scraped text.
package text

import (
	"strings"
	"unicode/utf8"
)

// CountRunes counts the number of Unicode characters (runes) in the given text.
//
// Examples:
//
//	CountRunes("choque")    // returns 6
//	CountRunes("colisión")  // returns 8
//	CountRunes("")          // returns 0
func CountRunes(text string) int {
	return utf8.RuneCountInString(text)
}

// Truncate returns text cut to at most maxRunes runes.
// A non-positive maxRunes disables the cap.
func Truncate(text string, maxRunes int) string {
	if maxRunes <= 0 {
		return text
	}
	n := 0
	for i := range text {
		if n == maxRunes {
			return text[:i]
		}
		n++
	}
	return text
}

// CollapseSpace trims text and replaces every run of whitespace with a single
// space, which is how listing titles and extracted bodies are stored.
func CollapseSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
