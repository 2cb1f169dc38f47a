package classifier

import (
	"sort"
	"strings"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

// Strategy names, also used as metric labels and threshold keys.
const (
	StrategyLiteral  = "literal"
	StrategyStem     = "stem"
	StrategyLemma    = "lemma"
	StrategyWeighted = "weighted"
)

// Document is the per-classification input shared by all strategies.
// Token views are computed lazily and cached.
type Document struct {
	Text     string
	Excluded bool

	tokens []string
	tokOK  bool
}

func (d *Document) contentTokens() []string {
	if !d.tokOK {
		d.tokens = contentTokens(d.Text)
		d.tokOK = true
	}
	return d.tokens
}

// Strategy is one independent voter of the ensemble. Score must be a pure
// function of the document; the vote is Score >= threshold.
type Strategy interface {
	Name() string
	Score(d *Document) int
	// ExclusionGated reports whether an exclusion hit forces a false vote.
	ExclusionGated() bool
}

// vote applies the threshold and the exclusion gate to a computed score.
func vote(s Strategy, d *Document, score, threshold int) bool {
	if s.ExclusionGated() && d.Excluded {
		return false
	}
	return score >= threshold
}

/* ─── 部分文字列マッチ（Literal / Weighted 共通） ─── */

type substringIndex struct {
	terms   []string
	weights []int
	matcher *ahocorasick.Matcher
}

func newSubstringIndex(vocab []Term) *substringIndex {
	idx := &substringIndex{
		terms:   make([]string, 0, len(vocab)),
		weights: make([]int, 0, len(vocab)),
	}
	for _, t := range vocab {
		idx.terms = append(idx.terms, normalizeTerm(t.Text))
		idx.weights = append(idx.weights, t.Weight)
	}
	if len(idx.terms) > 0 {
		idx.matcher = ahocorasick.NewStringMatcher(idx.terms)
	}
	return idx
}

// hits returns the distinct vocabulary indexes found as substrings of text.
func (x *substringIndex) hits(text string) []int {
	if x.matcher == nil || text == "" {
		return nil
	}
	raw := x.matcher.MatchThreadSafe([]byte(text))
	seen := make(map[int]struct{}, len(raw))
	out := make([]int, 0, len(raw))
	for _, i := range raw {
		if i < 0 || i >= len(x.terms) {
			continue
		}
		if _, ok := seen[i]; ok {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Matched returns the vocabulary terms present in text, in vocabulary order.
func (x *substringIndex) Matched(text string) []string {
	hits := x.hits(text)
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = x.terms[h]
	}
	return out
}

// LiteralStrategy counts distinct vocabulary terms occurring as substrings.
type LiteralStrategy struct{ idx *substringIndex }

func (LiteralStrategy) Name() string         { return StrategyLiteral }
func (LiteralStrategy) ExclusionGated() bool { return true }

func (s LiteralStrategy) Score(d *Document) int { return len(s.idx.hits(d.Text)) }

// WeightedStrategy sums the weights of the distinct vocabulary terms present.
type WeightedStrategy struct{ idx *substringIndex }

func (WeightedStrategy) Name() string         { return StrategyWeighted }
func (WeightedStrategy) ExclusionGated() bool { return true }

func (s WeightedStrategy) Score(d *Document) int {
	score := 0
	for _, h := range s.idx.hits(d.Text) {
		score += s.idx.weights[h]
	}
	return score
}

/* ─── トークン列マッチ（Stem / Lemma 共通） ─── */

// sequenceIndex holds vocabulary terms reduced to token sequences by a
// reducer (stemmer or lemmatizer). Terms that reduce to the same sequence are
// counted once.
type sequenceIndex struct {
	reduce func(string) string
	seqs   [][]string
}

func newSequenceIndex(vocab []Term, reduce func(string) string) *sequenceIndex {
	idx := &sequenceIndex{reduce: reduce}
	seen := make(map[string]struct{}, len(vocab))
	for _, t := range vocab {
		seq := reduceAll(contentTokens(normalizeTerm(t.Text)), reduce)
		if len(seq) == 0 {
			continue
		}
		key := strings.Join(seq, " ")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		idx.seqs = append(idx.seqs, seq)
	}
	return idx
}

func reduceAll(toks []string, reduce func(string) string) []string {
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = reduce(t)
	}
	return out
}

// count returns how many distinct reduced terms occur as contiguous
// subsequences of the reduced document tokens.
func (x *sequenceIndex) count(toks []string) int {
	if len(toks) == 0 {
		return 0
	}
	reduced := reduceAll(toks, x.reduce)
	n := 0
	for _, seq := range x.seqs {
		if containsSeq(reduced, seq) {
			n++
		}
	}
	return n
}

func containsSeq(hay, needle []string) bool {
	if len(needle) == 0 || len(needle) > len(hay) {
		return false
	}
outer:
	for i := 0; i+len(needle) <= len(hay); i++ {
		for j := range needle {
			if hay[i+j] != needle[j] {
				continue outer
			}
		}
		return true
	}
	return false
}

// StemStrategy compares Snowball stems of content tokens and vocabulary terms.
type StemStrategy struct{ idx *sequenceIndex }

func (StemStrategy) Name() string         { return StrategyStem }
func (StemStrategy) ExclusionGated() bool { return true }

func (s StemStrategy) Score(d *Document) int { return s.idx.count(d.contentTokens()) }

// LemmaStrategy compares dictionary lemmas of content tokens and vocabulary
// terms. It is not exclusion-gated.
type LemmaStrategy struct{ idx *sequenceIndex }

func (LemmaStrategy) Name() string         { return StrategyLemma }
func (LemmaStrategy) ExclusionGated() bool { return false }

func (s LemmaStrategy) Score(d *Document) int { return s.idx.count(d.contentTokens()) }
