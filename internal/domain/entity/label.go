package entity

import "fmt"

// Label is the final verdict of the classification ensemble.
type Label string

const (
	LabelAccident     Label = "ACCIDENT"
	LabelNotAccident  Label = "NOT_ACCIDENT"
	LabelUnclassified Label = "UNCLASSIFIED"
)

// MajorityQuorum is the number of positive votes required for LabelAccident.
// A 2-2 split is therefore positive.
const MajorityQuorum = 2

// ParseLabel converts a stored label string back into a Label.
// An empty string maps to LabelUnclassified.
func ParseLabel(s string) (Label, error) {
	switch Label(s) {
	case LabelAccident, LabelNotAccident, LabelUnclassified:
		return Label(s), nil
	case "":
		return LabelUnclassified, nil
	default:
		return LabelUnclassified, fmt.Errorf("%w: unknown label %q", ErrInvalidInput, s)
	}
}

// Votes holds the per-strategy boolean votes. A nil field means the strategy
// has not run yet.
type Votes struct {
	Literal  *bool
	Stem     *bool
	Lemma    *bool
	Weighted *bool
}

// NewVotes builds a fully populated Votes value.
func NewVotes(literal, stem, lemma, weighted bool) Votes {
	return Votes{Literal: &literal, Stem: &stem, Lemma: &lemma, Weighted: &weighted}
}

// Complete reports whether all four votes are present.
func (v Votes) Complete() bool {
	return v.Literal != nil && v.Stem != nil && v.Lemma != nil && v.Weighted != nil
}

// Positive returns the number of true votes. Missing votes count as false.
func (v Votes) Positive() int {
	n := 0
	for _, b := range []*bool{v.Literal, v.Stem, v.Lemma, v.Weighted} {
		if b != nil && *b {
			n++
		}
	}
	return n
}

// LabelFromVotes derives the final label. Incomplete votes are UNCLASSIFIED,
// otherwise at least MajorityQuorum true votes yield ACCIDENT.
func LabelFromVotes(v Votes) Label {
	if !v.Complete() {
		return LabelUnclassified
	}
	if v.Positive() >= MajorityQuorum {
		return LabelAccident
	}
	return LabelNotAccident
}
