package classifier

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed lemmas.yaml
var lemmasYAML []byte

// Lemmatizer reduces Spanish tokens to dictionary lemmas using an embedded
// irregular-form table plus plural rules. Output is accent-folded.
type Lemmatizer struct {
	forms map[string]string
}

// NewLemmatizer builds a Lemmatizer from the embedded form table.
func NewLemmatizer() (*Lemmatizer, error) {
	forms := make(map[string]string)
	if err := yaml.Unmarshal(lemmasYAML, &forms); err != nil {
		return nil, fmt.Errorf("%w: lemma table: %v", ErrInvalidConfig, err)
	}
	return &Lemmatizer{forms: forms}, nil
}

// Lemma returns the lemma of a single lowercased token.
func (l *Lemmatizer) Lemma(tok string) string {
	key := foldAccents(tok)
	if lemma, ok := l.forms[key]; ok {
		return lemma
	}
	return singular(key)
}

// singular applies the regular Spanish plural rules: -ces -> -z, -es after a
// consonant that can end a singular noun (camiones -> camion), and -s after a
// vowel (heridos -> herido).
func singular(w string) string {
	n := len(w)
	if n <= 3 {
		return w
	}
	switch {
	case strings.HasSuffix(w, "ces") && n > 4:
		return w[:n-3] + "z"
	case strings.HasSuffix(w, "es") && strings.IndexByte("lnrdjsxy", w[n-3]) >= 0:
		return w[:n-2]
	case strings.HasSuffix(w, "s") && isVowel(w[n-2]):
		return w[:n-1]
	}
	return w
}

func isVowel(b byte) bool {
	return strings.IndexByte("aeiou", b) >= 0
}
