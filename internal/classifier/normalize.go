package classifier

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize returns the lowercased concatenation of title and body that every
// strategy operates on. Text is NFC-composed first so that precomposed and
// decomposed accents compare equal.
func Normalize(title, body string) string {
	text := strings.TrimSpace(title + " " + body)
	if text == "" {
		return ""
	}
	// cases.Caser は状態を持つため呼び出しごとに生成する
	return cases.Lower(language.Spanish).String(norm.NFC.String(text))
}

// normalizeTerm applies the same folding as Normalize to a vocabulary entry
// and collapses inner whitespace.
func normalizeTerm(s string) string {
	return strings.Join(strings.Fields(Normalize(s, "")), " ")
}

// Tokenize splits text into runs of letters and digits.
func Tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// foldAccents strips combining marks ("colisión" -> "colision").
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
