package classifier

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Thresholds holds the per-strategy vote thresholds.
type Thresholds struct {
	Literal  int `yaml:"literal"`
	Stem     int `yaml:"stem"`
	Lemma    int `yaml:"lemma"`
	Weighted int `yaml:"weighted"`
}

// DefaultThresholds returns 2 for every strategy.
func DefaultThresholds() Thresholds {
	return Thresholds{Literal: 2, Stem: 2, Lemma: 2, Weighted: 2}
}

var presets = map[string]Thresholds{
	"default": DefaultThresholds(),
	"strict":  {Literal: 2, Stem: 2, Lemma: 2, Weighted: 3},
	"lenient": {Literal: 1, Stem: 1, Lemma: 1, Weighted: 1},
}

// Preset returns a named threshold set: default, strict or lenient.
func Preset(name string) (Thresholds, error) {
	if name == "" {
		return DefaultThresholds(), nil
	}
	th, ok := presets[strings.ToLower(name)]
	if !ok {
		return Thresholds{}, fmt.Errorf("%w: unknown preset %q (have %s)", ErrInvalidThreshold, name, strings.Join(PresetNames(), ", "))
	}
	return th, nil
}

// PresetNames lists the known preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Validate rejects thresholds below 1; a zero threshold would vote true on
// empty text.
func (t Thresholds) Validate() error {
	for name, v := range t.asMap() {
		if v < 1 {
			return fmt.Errorf("%w: %s=%d must be >= 1", ErrInvalidThreshold, name, v)
		}
	}
	return nil
}

func (t Thresholds) asMap() map[string]int {
	return map[string]int{
		StrategyLiteral:  t.Literal,
		StrategyStem:     t.Stem,
		StrategyLemma:    t.Lemma,
		StrategyWeighted: t.Weighted,
	}
}

// For returns the threshold of the named strategy.
func (t Thresholds) For(strategy string) int {
	return t.asMap()[strategy]
}

// keyAliases maps accepted override keys, including the legacy names used by
// older operational scripts, onto strategy names.
var keyAliases = map[string]string{
	"literal":     StrategyLiteral,
	"simple":      StrategyLiteral,
	"stem":        StrategyStem,
	"stemmer":     StrategyStem,
	"lemma":       StrategyLemma,
	"lemmatizer":  StrategyLemma,
	"weighted":    StrategyWeighted,
	"ml_weighted": StrategyWeighted,
}

// WithOverrides applies "key=value" overrides on top of t.
// Keys are literal, stem, lemma and weighted.
func (t Thresholds) WithOverrides(overrides []string) (Thresholds, error) {
	out := t
	for _, o := range overrides {
		for _, kv := range strings.Split(o, ",") {
			kv = strings.TrimSpace(kv)
			if kv == "" {
				continue
			}
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return Thresholds{}, fmt.Errorf("%w: %q is not key=value", ErrInvalidThreshold, kv)
			}
			name, known := keyAliases[strings.ToLower(strings.TrimSpace(k))]
			if !known {
				return Thresholds{}, fmt.Errorf("%w: unknown key %q", ErrInvalidThreshold, k)
			}
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return Thresholds{}, fmt.Errorf("%w: %s: %v", ErrInvalidThreshold, k, err)
			}
			switch name {
			case StrategyLiteral:
				out.Literal = n
			case StrategyStem:
				out.Stem = n
			case StrategyLemma:
				out.Lemma = n
			case StrategyWeighted:
				out.Weighted = n
			}
		}
	}
	if err := out.Validate(); err != nil {
		return Thresholds{}, err
	}
	return out, nil
}

func (t Thresholds) String() string {
	return fmt.Sprintf("literal=%d,stem=%d,lemma=%d,weighted=%d", t.Literal, t.Stem, t.Lemma, t.Weighted)
}
