package core

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"multicompare/pkg/domain"
)

func TestTreeInsertErrors(t *testing.T) {
	tree := NewTree(domain.DefaultRoot)
	if err := tree.Insert(newNode(NodeID{TaxonID: "a"}, "A", "domain"), NodeID{TaxonID: "nope"}); !errors.Is(err, ErrParentNotFound) {
		t.Fatalf("expected ErrParentNotFound, got %v", err)
	}
	if err := tree.Insert(newNode(NodeID{TaxonID: "a"}, "A", "domain"), tree.RootID()); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := tree.Insert(newNode(NodeID{TaxonID: "a"}, "A", "domain"), tree.RootID()); !errors.Is(err, ErrDuplicateNode) {
		t.Fatalf("expected ErrDuplicateNode, got %v", err)
	}
	if err := tree.Insert(newNode(NodeID{TaxonID: "a", Unclassified: true}, "A", "domain"), tree.RootID()); err != nil {
		t.Fatalf("unclassified variant is a distinct node: %v", err)
	}
	if (NodeID{TaxonID: "a", Unclassified: true}).String() != "a_unclassified" {
		t.Fatalf("unexpected id rendering")
	}
}

func TestTreeWalkPreOrderAndSkip(t *testing.T) {
	e := NewEngine(domain.DefaultRoot)
	for _, id := range []string{"s1", "s3", "s5"} {
		if err := e.Process(fixtureChains[id], "x", 1, 0.8); err != nil {
			t.Fatalf("process: %v", err)
		}
	}
	var visited []string
	e.Tree().Walk(func(n *Node, depth int) bool {
		visited = append(visited, n.ID().String())
		return n.Name() != "Firmicutes"
	})
	want := []string{"0", "Bacteria", "Firmicutes", "Proteobacteria", "Bacteria_unclassified"}
	if diff := cmp.Diff(want, visited); diff != "" {
		t.Fatalf("walk order (-want +got):\n%s", diff)
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	e := NewEngine(domain.DefaultRoot)
	for _, id := range []string{"s1", "s2", "s3", "s4", "s5"} {
		if err := e.Process(fixtureChains[id], "soil", 2, 0.8); err != nil {
			t.Fatalf("process: %v", err)
		}
	}
	snap := e.Tree().Snapshot()
	if snap[0].ID != "0" || snap[0].ParentID != "" {
		t.Fatalf("root must come first: %+v", snap[0])
	}
	restored, err := RestoreTree(snap)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if diff := cmp.Diff(snap, restored.Snapshot()); diff != "" {
		t.Fatalf("round trip (-want +got):\n%s", diff)
	}
}

func TestRestoreTreeErrors(t *testing.T) {
	if _, err := RestoreTree(nil); err == nil {
		t.Fatalf("expected error for empty records")
	}
	if _, err := RestoreTree([]domain.NodeRecord{{ID: "x", ParentID: "y"}}); err == nil {
		t.Fatalf("expected error for non-root first record")
	}
	recs := []domain.NodeRecord{{ID: "0", TaxonID: "0"}, {ID: "a", TaxonID: "a", ParentTaxonID: "missing"}}
	if _, err := RestoreTree(recs); !errors.Is(err, ErrParentNotFound) {
		t.Fatalf("expected ErrParentNotFound, got %v", err)
	}
	recs = []domain.NodeRecord{{ID: "0", TaxonID: "0"}, {ID: "a", TaxonID: "a", ParentTaxonID: "0"}, {ID: "a", TaxonID: "a", ParentTaxonID: "0"}}
	if _, err := RestoreTree(recs); !errors.Is(err, ErrDuplicateNode) {
		t.Fatalf("expected ErrDuplicateNode, got %v", err)
	}
}

func TestRestoreTreeKeepsParentVariantApart(t *testing.T) {
	tree := NewTree(domain.DefaultRoot)
	unclassified := NodeID{TaxonID: "2", Unclassified: true}
	lookalike := NodeID{TaxonID: "2_unclassified"}
	for _, id := range []NodeID{unclassified, lookalike} {
		if err := tree.Insert(newNode(id, id.TaxonID, "domain"), tree.RootID()); err != nil {
			t.Fatalf("insert %s: %v", id.TaxonID, err)
		}
	}
	child := NodeID{TaxonID: "9"}
	if err := tree.Insert(newNode(child, "Child", "phylum"), lookalike); err != nil {
		t.Fatalf("insert child: %v", err)
	}
	snap := tree.Snapshot()
	if snap[1].ID != snap[2].ID {
		t.Fatalf("expected colliding display ids, got %q and %q", snap[1].ID, snap[2].ID)
	}
	restored, err := RestoreTree(snap)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	n, ok := restored.Get(child)
	if !ok {
		t.Fatalf("child missing after restore")
	}
	if got := n.Parent().ID(); got != lookalike {
		t.Fatalf("child restored under %+v, want %+v", got, lookalike)
	}
	if diff := cmp.Diff(snap, restored.Snapshot()); diff != "" {
		t.Fatalf("round trip (-want +got):\n%s", diff)
	}
}
