package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"multicompare/pkg/domain"
)

var fixedClock = ClockFunc(func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) })

func liveSamples() []SequenceSample {
	return []SequenceSample{
		NewMemorySample("soil", seqs("s1", "s2", "bad1", "s3"), map[string]int{"s1": 2}),
		NewMemorySample("water", seqs("s4", "s5"), nil),
	}
}

func TestRunAggregatesSamples(t *testing.T) {
	logger := &captureLogger{}
	writer := &captureWriter{}
	metrics := NewExpvarMetricsRecorder("")
	tracer := NewJSONTracer(nil)
	r := NewRunner(WithClock(fixedClock), WithLogger(logger), WithAssignmentWriter(writer),
		WithMetricsRecorder(metrics), WithTracer(tracer))

	res, err := r.Run(context.Background(), fixtureClassifier(), liveSamples())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.ID) != 36 || !res.StartedAt.Equal(fixedClock()) || res.Confidence != domain.DefaultConfidence {
		t.Fatalf("unexpected run header %+v", res)
	}
	if diff := cmp.Diff([]string{"bad1"}, res.BadSequences); diff != "" {
		t.Fatalf("bad sequences (-want +got):\n%s", diff)
	}
	if logger.count("warn", "sequence not classified") != 1 {
		t.Fatalf("expected one warning, got %+v", logger.entries)
	}
	if diff := cmp.Diff([]string{"s1", "s2", "s3", "s4", "s5"}, writer.ids); diff != "" {
		t.Fatalf("written assignments (-want +got):\n%s", diff)
	}

	bacteria, _ := res.Tree.Get(NodeID{TaxonID: "Bacteria"})
	if bacteria.Count("soil") != 4 || bacteria.Count("water") != 1 {
		t.Fatalf("unexpected Bacteria counts %v", bacteria.Counts())
	}
	rootUncl, ok := res.Tree.Get(NodeID{TaxonID: "0", Unclassified: true})
	if !ok || rootUncl.Count("water") != 1 {
		t.Fatalf("expected unplaced water sequence under root")
	}
	wantTally := RankTally{"domain": 2, "phylum": 3, "class": 1, domain.RootRank: 1}
	if diff := cmp.Diff(wantTally, res.RankTally); diff != "" {
		t.Fatalf("tally (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]int{"domain": 4, "phylum": 3, "class": 2}, res.Samples[0].RankCounts()); diff != "" {
		t.Fatalf("soil rank counts (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"soil", "water"}, res.SampleNames()); diff != "" {
		t.Fatalf("sample names (-want +got):\n%s", diff)
	}

	snap := metrics.Snapshot()
	if snap.Results["run"]["success"] != 1 || snap.Results["classify_sequence"]["success"] != 5 || snap.Results["classify_sequence"]["error"] != 1 {
		t.Fatalf("unexpected metrics %+v", snap.Results)
	}
	if entries := tracer.Entries(); len(entries) != 1 || entries[0].Operation != "run" || entries[0].Status != "success" {
		t.Fatalf("unexpected trace entries %+v", entries)
	}
}

func TestRunWorkersMatchSequential(t *testing.T) {
	defer goleak.VerifyNone(t)
	seq, err := NewRunner(WithClock(fixedClock)).Run(context.Background(), fixtureClassifier(), liveSamples())
	if err != nil {
		t.Fatalf("sequential run: %v", err)
	}
	par, err := NewRunner(WithClock(fixedClock), WithWorkers(4), WithBatchSize(2)).Run(context.Background(), fixtureClassifier(), liveSamples())
	if err != nil {
		t.Fatalf("parallel run: %v", err)
	}
	a, b := seq.Record(), par.Record()
	a.ID, b.ID = "", ""
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("parallel run differs (-seq +par):\n%s", diff)
	}
}

func TestRunRejectsDuplicateSamples(t *testing.T) {
	samples := []SequenceSample{NewMemorySample("soil", nil, nil), NewMemorySample("soil", nil, nil)}
	if _, err := NewRunner().Run(context.Background(), fixtureClassifier(), samples); !errors.Is(err, ErrDuplicateSample) {
		t.Fatalf("expected ErrDuplicateSample, got %v", err)
	}
	parsed := []ResultSample{newParsedSample("a", nil), newParsedSample("a", nil)}
	if _, err := NewRunner().RunParsed(context.Background(), parsed, ParseFilter{}); !errors.Is(err, ErrDuplicateSample) {
		t.Fatalf("expected ErrDuplicateSample, got %v", err)
	}
}

func TestRunStopsOnCancellation(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	classifier := ClassifierFunc(func(ctx context.Context, seq Sequence) (domain.Chain, error) {
		if seq.ID == "s2" {
			cancel()
			return nil, ctx.Err()
		}
		return fixtureChains[seq.ID], nil
	})
	logger := &captureLogger{}
	tracer := NewJSONTracer(nil)
	_, err := NewRunner(WithLogger(logger), WithTracer(tracer), WithWorkers(2)).Run(ctx, classifier, liveSamples())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if logger.count("error", "operation failed") != 1 {
		t.Fatalf("expected failure to be logged once")
	}
	if entries := tracer.Entries(); len(entries) != 1 || entries[0].Status != "error" {
		t.Fatalf("expected failed span, got %+v", entries)
	}
}

func TestRunParsedAppliesFilter(t *testing.T) {
	parsed := func() []ResultSample {
		return []ResultSample{
			newParsedSample("soil", map[string]int{"s1": 2}, "s1", "s2", "s3"),
			newParsedSample("water", nil, "s4", "s5"),
		}
	}
	cases := []struct {
		name   string
		filter ParseFilter
		want   []string
	}{
		{"first result rank", ParseFilter{}, []string{"s1"}},
		{"print rank", ParseFilter{PrintRank: "Domain"}, []string{"s1", "s2", "s3", "s5"}},
		{"taxon filter", ParseFilter{TaxonFilter: map[string]struct{}{"Firmicutes": {}}}, []string{"s1"}},
	}
	for _, tc := range cases {
		writer := &captureWriter{}
		res, err := NewRunner(WithAssignmentWriter(writer)).RunParsed(context.Background(), parsed(), tc.filter)
		if err != nil {
			t.Fatalf("%s: run parsed: %v", tc.name, err)
		}
		if diff := cmp.Diff(tc.want, writer.ids); diff != "" {
			t.Fatalf("%s: written (-want +got):\n%s", tc.name, diff)
		}
		bacteria, _ := res.Tree.Get(NodeID{TaxonID: "Bacteria"})
		if bacteria.Count("soil") != 4 || bacteria.Count("water") != 1 {
			t.Fatalf("%s: filter must not affect aggregation, got %v", tc.name, bacteria.Counts())
		}
	}
}

func TestRunParsedFixesDefaultPrintRankFromFirstResult(t *testing.T) {
	writer := &captureWriter{}
	_, err := NewRunner(WithAssignmentWriter(writer)).RunParsed(context.Background(), []ResultSample{
		newParsedSample("water", nil, "s5", "s4"),
		newParsedSample("soil", nil, "s1", "s2", "s3"),
	}, ParseFilter{})
	if err != nil {
		t.Fatalf("run parsed: %v", err)
	}
	// s5 ends at phylum, so phylum gates every later result including deeper chains.
	if diff := cmp.Diff([]string{"s5", "s1", "s2"}, writer.ids); diff != "" {
		t.Fatalf("written (-want +got):\n%s", diff)
	}
}

func TestRunParsedMatchesLiveRun(t *testing.T) {
	live, err := NewRunner(WithClock(fixedClock)).Run(context.Background(), fixtureClassifier(), liveSamples())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	parsed, err := NewRunner(WithClock(fixedClock)).RunParsed(context.Background(), []ResultSample{
		newParsedSample("soil", map[string]int{"s1": 2}, "s1", "s2", "s3"),
		newParsedSample("water", nil, "s4", "s5"),
	}, ParseFilter{})
	if err != nil {
		t.Fatalf("run parsed: %v", err)
	}
	if diff := cmp.Diff(live.Tree.Snapshot(), parsed.Tree.Snapshot()); diff != "" {
		t.Fatalf("trees differ (-live +parsed):\n%s", diff)
	}
	for i := range live.Samples {
		if diff := cmp.Diff(live.Samples[i].RankCounts(), parsed.Samples[i].RankCounts()); diff != "" {
			t.Fatalf("%s rank counts differ (-live +parsed):\n%s", live.Samples[i].Name(), diff)
		}
	}
}

func TestRunParsedErrors(t *testing.T) {
	s := newParsedSample("soil", nil)
	s.openErr = errors.New("no such file")
	if _, err := NewRunner().RunParsed(context.Background(), []ResultSample{s}, ParseFilter{}); err == nil || !strings.Contains(err.Error(), "open results") {
		t.Fatalf("expected open error, got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewRunner().RunParsed(ctx, []ResultSample{newParsedSample("soil", nil, "s1")}, ParseFilter{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestOptionsIgnoreInvalidValues(t *testing.T) {
	r := NewRunner(WithConfidence(1.5), WithWorkers(0), WithBatchSize(-1), WithRoot(domain.Taxon{}),
		WithLogger(nil), WithMetricsRecorder(nil), WithTracer(nil), WithClock(nil), nil)
	if r.Confidence() != domain.DefaultConfidence || r.opts.workers != 1 || r.opts.batchSize != defaultBatchSize || r.opts.root != domain.DefaultRoot {
		t.Fatalf("invalid options must keep defaults: %+v", r.opts)
	}
	r = NewRunner(WithConfidence(0.5), WithRoot(domain.Taxon{ID: "1", Name: "Life", Rank: "norank"}))
	if r.Confidence() != 0.5 || r.opts.root.Name != "Life" {
		t.Fatalf("options not applied: %+v", r.opts)
	}
}

func TestSampleCounts(t *testing.T) {
	c := NewSampleCounts(map[string]int{"a": 3, "z": 0})
	if c.DupCount("a") != 3 || c.DupCount("z") != 1 || c.DupCount("missing") != 1 {
		t.Fatalf("unexpected dup counts")
	}
	c.AddRankCount(domain.Chain{ra("B", "domain", 1), ra("F", "phylum", 0.2), ra("C", "class", 1)}, 0.8, 2)
	if diff := cmp.Diff(map[string]int{"domain": 2}, c.RankCounts()); diff != "" {
		t.Fatalf("rank counts (-want +got):\n%s", diff)
	}
	var bad BadSequenceLog
	bad.Add("x")
	bad.Add("y")
	if bad.Len() != 2 || bad.IDs()[1] != "y" {
		t.Fatalf("unexpected bad log %v", bad.IDs())
	}
}
