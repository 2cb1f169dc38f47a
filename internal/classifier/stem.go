package classifier

import (
	"github.com/kljensen/snowball"
)

// stemSpanish reduces a lowercased token with the Snowball Spanish stemmer.
// Stop-words are stemmed as well; they are filtered before this point.
func stemSpanish(tok string) string {
	stemmed, err := snowball.Stem(tok, "spanish", true)
	if err != nil || stemmed == "" {
		return tok
	}
	return stemmed
}
