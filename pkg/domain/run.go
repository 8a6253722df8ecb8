package domain

import "time"

// NodeRecord is the serialized form of one taxonomy tree node. ID and ParentID
// are display forms; the parent is identified by ParentTaxonID and
// ParentUnclassified.
type NodeRecord struct {
	ID                 string         `json:"id"`
	ParentID           string         `json:"parent_id,omitempty"`
	ParentTaxonID      string         `json:"parent_taxon_id,omitempty"`
	ParentUnclassified bool           `json:"parent_unclassified,omitempty"`
	TaxonID            string         `json:"taxon_id"`
	Name               string         `json:"name"`
	Rank               string         `json:"rank"`
	Unclassified       bool           `json:"unclassified,omitempty"`
	Lineage            string         `json:"lineage"`
	Counts             map[string]int `json:"counts,omitempty"`
}

// SampleRecord summarizes a sample's contribution to a run.
type SampleRecord struct {
	Name       string         `json:"name"`
	RankCounts map[string]int `json:"rank_counts,omitempty"`
}

// RunRecord is a persisted snapshot of one aggregation run. Nodes are stored
// in pre-order so that every parent precedes its children; the first node is
// the root.
type RunRecord struct {
	ID           string         `json:"id"`
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   time.Time      `json:"finished_at"`
	Confidence   float64        `json:"confidence"`
	Root         Taxon          `json:"root"`
	Samples      []SampleRecord `json:"samples"`
	BadSequences []string       `json:"bad_sequences,omitempty"`
	RankTally    map[string]int `json:"rank_tally"`
	Nodes        []NodeRecord   `json:"nodes"`
}

// Summary returns the listing view of the record.
func (r RunRecord) Summary() RunSummary {
	names := make([]string, 0, len(r.Samples))
	for _, s := range r.Samples {
		names = append(names, s.Name)
	}
	return RunSummary{
		ID:           r.ID,
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
		Confidence:   r.Confidence,
		Samples:      names,
		NodeCount:    len(r.Nodes),
		BadSequences: len(r.BadSequences),
	}
}

// RunSummary is the listing view of a stored run.
type RunSummary struct {
	ID           string    `json:"id"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Confidence   float64   `json:"confidence"`
	Samples      []string  `json:"samples"`
	NodeCount    int       `json:"node_count"`
	BadSequences int       `json:"bad_sequences"`
}
