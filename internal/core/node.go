package core

import (
	"sort"

	"multicompare/pkg/domain"
)

const unclassifiedSuffix = "_unclassified"

// NodeID is the dedup identity of a tree node. A confident placement and an
// unclassified placement of the same taxon are distinct nodes.
type NodeID struct {
	TaxonID      string
	Unclassified bool
}

// String renders the id as stored in run records.
func (id NodeID) String() string {
	if id.Unclassified {
		return id.TaxonID + unclassifiedSuffix
	}
	return id.TaxonID
}

// Node is one taxon placement in the shared tree. Nodes are owned by their Tree
// and expose read-only accessors only.
type Node struct {
	id       NodeID
	name     string
	rank     string
	lineage  string
	parent   *Node
	children []*Node
	counts   map[string]int
}

func newNode(id NodeID, name, rank string) *Node {
	return &Node{id: id, name: name, rank: rank, counts: make(map[string]int)}
}

// ID returns the node's dedup identity.
func (n *Node) ID() NodeID { return n.id }

// TaxonID returns the underlying taxon id, shared by confident and unclassified variants.
func (n *Node) TaxonID() string { return n.id.TaxonID }

// Name returns the taxon name.
func (n *Node) Name() string { return n.name }

// Rank returns the rank label.
func (n *Node) Rank() string { return n.rank }

// Unclassified reports whether the node stands for sequences confidently placed
// at the parent rank of this taxon but no further.
func (n *Node) Unclassified() bool { return n.id.Unclassified }

// Lineage returns the name;rank; path fixed when the node was created.
func (n *Node) Lineage() string { return n.lineage }

// Parent returns the parent node, or nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the node's children in insertion order.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Count returns the accumulated sequence count for a sample.
func (n *Node) Count(sample string) int { return n.counts[sample] }

// Counts returns a copy of the per-sample counts.
func (n *Node) Counts() map[string]int {
	out := make(map[string]int, len(n.counts))
	for k, v := range n.counts {
		out[k] = v
	}
	return out
}

// Total returns the count summed over all samples.
func (n *Node) Total() int {
	total := 0
	for _, v := range n.counts {
		total += v
	}
	return total
}

// Samples returns the names of samples with a non-zero count, sorted.
func (n *Node) Samples() []string {
	out := make([]string, 0, len(n.counts))
	for k := range n.counts {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (n *Node) addCount(sample string, count int) {
	n.counts[sample] += count
}

func (n *Node) record() domain.NodeRecord {
	rec := domain.NodeRecord{
		ID:           n.id.String(),
		TaxonID:      n.id.TaxonID,
		Name:         n.name,
		Rank:         n.rank,
		Unclassified: n.id.Unclassified,
		Lineage:      n.lineage,
	}
	if n.parent != nil {
		rec.ParentID = n.parent.id.String()
		rec.ParentTaxonID = n.parent.id.TaxonID
		rec.ParentUnclassified = n.parent.id.Unclassified
	}
	if len(n.counts) > 0 {
		rec.Counts = n.Counts()
	}
	return rec
}
