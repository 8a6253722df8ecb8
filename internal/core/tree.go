package core

import (
	"errors"
	"fmt"

	"multicompare/pkg/domain"
)

var (
	// ErrParentNotFound reports an insert under a parent that is not in the tree.
	// Chains are folded root to leaf, so this is a structural defect.
	ErrParentNotFound = errors.New("parent node not found")
	// ErrDuplicateNode reports an insert of an id that is already present.
	ErrDuplicateNode = errors.New("node already present")
)

// Tree is the shared taxonomy tree of one aggregation run. It owns every node
// and guarantees at most one node per NodeID.
type Tree struct {
	root  *Node
	nodes map[NodeID]*Node
}

// NewTree constructs a tree seeded with the given root taxon.
func NewTree(root domain.Taxon) *Tree {
	r := newNode(NodeID{TaxonID: root.ID}, root.Name, root.Rank)
	return &Tree{
		root:  r,
		nodes: map[NodeID]*Node{r.id: r},
	}
}

// Root returns the root node.
func (t *Tree) Root() *Node { return t.root }

// RootID returns the root node's id.
func (t *Tree) RootID() NodeID { return t.root.id }

// Get returns the node for id, if present.
func (t *Tree) Get(id NodeID) (*Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Len returns the number of nodes including the root.
func (t *Tree) Len() int { return len(t.nodes) }

// Insert attaches a newly constructed node under an existing parent.
func (t *Tree) Insert(node *Node, parentID NodeID) error {
	parent, ok := t.nodes[parentID]
	if !ok {
		return fmt.Errorf("%w: %s (inserting %s)", ErrParentNotFound, parentID, node.id)
	}
	if _, exists := t.nodes[node.id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, node.id)
	}
	node.parent = parent
	parent.children = append(parent.children, node)
	t.nodes[node.id] = node
	return nil
}

// Walk visits nodes in pre-order starting at the root (depth 0). Returning
// false from fn skips the node's subtree.
func (t *Tree) Walk(fn func(n *Node, depth int) bool) {
	var visit func(n *Node, depth int)
	visit = func(n *Node, depth int) {
		if !fn(n, depth) {
			return
		}
		for _, c := range n.children {
			visit(c, depth+1)
		}
	}
	visit(t.root, 0)
}

// Snapshot returns the tree as pre-order node records, root first.
func (t *Tree) Snapshot() []domain.NodeRecord {
	out := make([]domain.NodeRecord, 0, len(t.nodes))
	t.Walk(func(n *Node, _ int) bool {
		out = append(out, n.record())
		return true
	})
	return out
}

// RestoreTree rebuilds a tree from pre-order node records. The first record
// must be the root and supplies the root taxon; every other record must
// reference an earlier parent by taxon id and unclassified flag.
func RestoreTree(records []domain.NodeRecord) (*Tree, error) {
	if len(records) == 0 {
		return nil, errors.New("restore tree: no root record")
	}
	rootRec := records[0]
	if rootRec.ParentTaxonID != "" || rootRec.ParentID != "" || rootRec.Unclassified {
		return nil, fmt.Errorf("restore tree: first record %s is not a root", rootRec.ID)
	}
	t := NewTree(domain.Taxon{ID: rootRec.TaxonID, Name: rootRec.Name, Rank: rootRec.Rank})
	for _, rec := range records[1:] {
		parentID := NodeID{TaxonID: rec.ParentTaxonID, Unclassified: rec.ParentUnclassified}
		n := newNode(NodeID{TaxonID: rec.TaxonID, Unclassified: rec.Unclassified}, rec.Name, rec.Rank)
		n.lineage = rec.Lineage
		for sample, c := range rec.Counts {
			n.counts[sample] = c
		}
		if err := t.Insert(n, parentID); err != nil {
			return nil, fmt.Errorf("restore tree: record %s: %w", rec.ID, err)
		}
	}
	return t, nil
}
