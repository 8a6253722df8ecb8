package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"multicompare/pkg/domain"
)

// RunFixture returns a small two-sample run record rooted at domain.DefaultRoot.
func RunFixture(id string, started time.Time) domain.RunRecord {
	root := domain.DefaultRoot
	return domain.RunRecord{
		ID:         id,
		StartedAt:  started.UTC(),
		FinishedAt: started.Add(time.Second).UTC(),
		Confidence: domain.DefaultConfidence,
		Root:       root,
		Samples: []domain.SampleRecord{
			{Name: "soil", RankCounts: map[string]int{"domain": 3, "phylum": 2}},
			{Name: "water", RankCounts: map[string]int{"domain": 1}},
		},
		BadSequences: []string{"seq9"},
		RankTally:    map[string]int{"domain": 2, "phylum": 1},
		Nodes: []domain.NodeRecord{
			{ID: root.ID, TaxonID: root.ID, Name: root.Name, Rank: root.Rank},
			{ID: "2", ParentID: root.ID, ParentTaxonID: root.ID, TaxonID: "2", Name: "Bacteria", Rank: "domain", Lineage: "Bacteria;domain;",
				Counts: map[string]int{"soil": 3, "water": 1}},
			{ID: "3", ParentID: "2", ParentTaxonID: "2", TaxonID: "3", Name: "Firmicutes", Rank: "phylum", Lineage: "Bacteria;domain;Firmicutes;phylum;",
				Counts: map[string]int{"soil": 2}},
			{ID: "2_unclassified", ParentID: root.ID, ParentTaxonID: root.ID, TaxonID: "2", Name: "Bacteria", Rank: "domain", Unclassified: true,
				Lineage: "Bacteria;domain;", Counts: map[string]int{"soil": 1, "water": 1}},
		},
	}
}

// RunStoreContract exercises the behavior every domain.RunStore must share:
// round-trip, upsert by id, ErrRunNotFound and start-time ordering. The store
// must be empty on entry; it is not closed.
func RunStoreContract(t *testing.T, store domain.RunStore) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	if runs, err := store.ListRuns(ctx); err != nil || len(runs) != 0 {
		t.Fatalf("expected empty store, got %v %v", runs, err)
	}
	later := RunFixture("run-b", base.Add(time.Hour))
	earlier := RunFixture("run-a", base)
	for _, rec := range []domain.RunRecord{later, earlier} {
		if err := store.SaveRun(ctx, rec); err != nil {
			t.Fatalf("save %s: %v", rec.ID, err)
		}
	}

	got, err := store.GetRun(ctx, "run-a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(earlier, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	updated := RunFixture("run-a", base)
	updated.BadSequences = append(updated.BadSequences, "seq10")
	if err := store.SaveRun(ctx, updated); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err = store.GetRun(ctx, "run-a")
	if err != nil || len(got.BadSequences) != 2 {
		t.Fatalf("expected upserted record, got %v %v", got.BadSequences, err)
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-a" || runs[1].ID != "run-b" {
		t.Fatalf("expected runs ordered by start time, got %+v", runs)
	}
	want := domain.RunSummary{
		ID: "run-a", StartedAt: base, FinishedAt: base.Add(time.Second), Confidence: domain.DefaultConfidence,
		Samples: []string{"soil", "water"}, NodeCount: 4, BadSequences: 2,
	}
	if diff := cmp.Diff(want, runs[0]); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}

	if _, err := store.GetRun(ctx, "missing"); !errors.Is(err, domain.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}
