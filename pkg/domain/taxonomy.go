// Package domain defines the value types exchanged between the aggregation
// core, the classifiers that feed it, and the persistence backends that store
// its results.
package domain

import "errors"

// DefaultConfidence is the confidence threshold applied when none is configured.
const DefaultConfidence = 0.8

// RootRank is the rank label carried by the taxonomy root.
const RootRank = "rootrank"

// Canonical ranks in coarse-to-fine order. Classifiers may emit additional
// intermediate ranks (subclass, suborder, ...); those are carried through the
// core untouched.
var CanonicalRanks = []string{"domain", "phylum", "class", "order", "family", "genus"}

// ErrShortSequence is returned by classifiers for sequences that are too short
// to classify. The orchestrator records such sequences as bad and continues.
var ErrShortSequence = errors.New("sequence too short to classify")

// Taxon identifies a named taxon at a rank.
type Taxon struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Rank string `json:"rank"`
}

// DefaultRoot is the root taxon used when no training taxonomy supplies one.
var DefaultRoot = Taxon{ID: "0", Name: "Root", Rank: RootRank}

// RankAssignment is the classifier's best candidate taxon at one rank.
type RankAssignment struct {
	TaxonID    string  `json:"taxon_id"`
	Name       string  `json:"name"`
	Rank       string  `json:"rank"`
	Confidence float64 `json:"confidence"`
}

// Taxon returns the identity portion of the assignment.
func (a RankAssignment) Taxon() Taxon {
	return Taxon{ID: a.TaxonID, Name: a.Name, Rank: a.Rank}
}

// Chain is an ordered list of rank assignments from the highest rank to the lowest.
type Chain []RankAssignment

// Last returns the lowest-rank assignment, if any.
func (c Chain) Last() (RankAssignment, bool) {
	if len(c) == 0 {
		return RankAssignment{}, false
	}
	return c[len(c)-1], true
}

// AtRank returns the assignment carrying the given rank label.
func (c Chain) AtRank(rank string) (RankAssignment, bool) {
	for _, a := range c {
		if a.Rank == rank {
			return a, true
		}
	}
	return RankAssignment{}, false
}

// Confident returns the prefix of the chain whose assignments all meet the
// threshold. Assignments after the first low-confidence rank are excluded
// even when they are individually confident.
func (c Chain) Confident(threshold float64) Chain {
	for i, a := range c {
		if a.Confidence < threshold {
			return c[:i]
		}
	}
	return c
}

// Classification pairs a sequence identifier with its assignment chain.
type Classification struct {
	SequenceID string `json:"sequence_id"`
	Reversed   bool   `json:"reversed,omitempty"`
	Chain      Chain  `json:"chain"`
}
