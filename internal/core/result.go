package core

import (
	"time"

	"multicompare/pkg/domain"
)

// Result is the bundle returned by one aggregation run. It is read-only once
// returned.
type Result struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   time.Time
	Confidence   float64
	Tree         *Tree
	Samples      []Sample
	BadSequences []string
	RankTally    RankTally
}

// Root returns the root of the aggregated tree.
func (r Result) Root() *Node { return r.Tree.Root() }

// SampleNames returns the sample names in run order.
func (r Result) SampleNames() []string {
	out := make([]string, len(r.Samples))
	for i, s := range r.Samples {
		out[i] = s.Name()
	}
	return out
}

// Record converts the result to its persisted form.
func (r Result) Record() domain.RunRecord {
	root := r.Tree.Root()
	samples := make([]domain.SampleRecord, len(r.Samples))
	for i, s := range r.Samples {
		samples[i] = domain.SampleRecord{Name: s.Name(), RankCounts: s.RankCounts()}
	}
	bad := make([]string, len(r.BadSequences))
	copy(bad, r.BadSequences)
	return domain.RunRecord{
		ID:           r.ID,
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
		Confidence:   r.Confidence,
		Root:         domain.Taxon{ID: root.TaxonID(), Name: root.Name(), Rank: root.Rank()},
		Samples:      samples,
		BadSequences: bad,
		RankTally:    map[string]int(r.RankTally.Clone()),
		Nodes:        r.Tree.Snapshot(),
	}
}

// recordedSample is a read-only Sample rebuilt from a run record.
type recordedSample struct {
	name   string
	counts map[string]int
}

func (s recordedSample) Name() string                            { return s.name }
func (s recordedSample) DupCount(string) int                     { return 1 }
func (s recordedSample) AddRankCount(domain.Chain, float64, int) {}
func (s recordedSample) RankCounts() map[string]int {
	out := make(map[string]int, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}

// ResultFromRecord rebuilds a result bundle from a stored record.
func ResultFromRecord(rec domain.RunRecord) (Result, error) {
	tree, err := RestoreTree(rec.Nodes)
	if err != nil {
		return Result{}, err
	}
	samples := make([]Sample, len(rec.Samples))
	for i, s := range rec.Samples {
		samples[i] = recordedSample{name: s.Name, counts: s.RankCounts}
	}
	tally := make(RankTally, len(rec.RankTally))
	for k, v := range rec.RankTally {
		tally[k] = v
	}
	return Result{
		ID:           rec.ID,
		StartedAt:    rec.StartedAt,
		FinishedAt:   rec.FinishedAt,
		Confidence:   rec.Confidence,
		Tree:         tree,
		Samples:      samples,
		BadSequences: append([]string(nil), rec.BadSequences...),
		RankTally:    tally,
	}, nil
}
