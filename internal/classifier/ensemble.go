// Package classifier implements the road-traffic accident classification
// ensemble: four independent, deterministic text strategies (literal,
// stem, lemma and weighted) combined by a two-of-four majority vote.
//
// An Ensemble is immutable after New and safe for concurrent use.
package classifier

import (
	ahocorasick "github.com/cloudflare/ahocorasick"

	"crashscraper/internal/domain/entity"
)

// Result is the outcome of classifying one article.
type Result struct {
	Votes    entity.Votes
	Label    entity.Label
	Scores   map[string]int
	Excluded bool
	Matched  []string
}

// Ensemble runs the four strategies over a shared normalized document.
type Ensemble struct {
	literal    LiteralStrategy
	stem       StemStrategy
	lemma      LemmaStrategy
	weighted   WeightedStrategy
	substrings *substringIndex
	exclusions *ahocorasick.Matcher
}

// New builds an Ensemble from cfg. The vocabulary is compiled once into an
// Aho-Corasick automaton and into stem and lemma sequences.
func New(cfg Config) (*Ensemble, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	lem, err := NewLemmatizer()
	if err != nil {
		return nil, err
	}

	sub := newSubstringIndex(cfg.Vocabulary)
	e := &Ensemble{
		literal:    LiteralStrategy{idx: sub},
		weighted:   WeightedStrategy{idx: sub},
		stem:       StemStrategy{idx: newSequenceIndex(cfg.Vocabulary, stemSpanish)},
		lemma:      LemmaStrategy{idx: newSequenceIndex(cfg.Vocabulary, lem.Lemma)},
		substrings: sub,
	}
	if len(cfg.Exclusions) > 0 {
		ex := make([]string, 0, len(cfg.Exclusions))
		for _, x := range cfg.Exclusions {
			ex = append(ex, normalizeTerm(x))
		}
		e.exclusions = ahocorasick.NewStringMatcher(ex)
	}
	return e, nil
}

// Strategies returns the four voters in vote order.
func (e *Ensemble) Strategies() []Strategy {
	return []Strategy{e.literal, e.stem, e.lemma, e.weighted}
}

// Document normalizes title and body and evaluates the exclusion set.
func (e *Ensemble) Document(title, body string) *Document {
	text := Normalize(title, body)
	d := &Document{Text: text}
	if e.exclusions != nil && text != "" {
		d.Excluded = len(e.exclusions.MatchThreadSafe([]byte(text))) > 0
	}
	return d
}

// Classify computes the four votes and the majority label.
func (e *Ensemble) Classify(title, body string, th Thresholds) Result {
	d := e.Document(title, body)
	scores := make(map[string]int, 4)
	votes := make(map[string]bool, 4)
	for _, s := range e.Strategies() {
		score := s.Score(d)
		scores[s.Name()] = score
		votes[s.Name()] = vote(s, d, score, th.For(s.Name()))
	}
	v := entity.NewVotes(votes[StrategyLiteral], votes[StrategyStem], votes[StrategyLemma], votes[StrategyWeighted])
	return Result{
		Votes:    v,
		Label:    entity.LabelFromVotes(v),
		Scores:   scores,
		Excluded: d.Excluded,
		Matched:  e.substrings.Matched(d.Text),
	}
}
