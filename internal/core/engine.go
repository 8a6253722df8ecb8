package core

import (
	"fmt"
	"sync"

	"multicompare/pkg/domain"
)

// Engine folds assignment chains into a shared Tree and RankTally. A mutex is
// held for the duration of each walk so find-or-create never races.
type Engine struct {
	mu    sync.Mutex
	tree  *Tree
	tally RankTally
}

// NewEngine constructs an engine over a fresh tree rooted at root.
func NewEngine(root domain.Taxon) *Engine {
	return &Engine{tree: NewTree(root), tally: make(RankTally)}
}

// Tree returns the tree being aggregated into.
func (e *Engine) Tree() *Tree { return e.tree }

// Tally returns the rank tally being aggregated into.
func (e *Engine) Tally() RankTally { return e.tally }

// Process folds one sequence's chain into the tree, adding dupCount to every
// node on the accepted path for sample.
//
// Assignments are accepted top-down while their confidence meets threshold.
// At the first low-confidence rank the walk stops and the sequence is
// recorded on the unclassified variant of the last confident taxon, parented
// at the confident rank before that. When the very first rank is already
// below threshold the sequence lands on the unclassified variant of the root.
func (e *Engine) Process(chain domain.Chain, sample string, dupCount int, threshold float64) error {
	if dupCount < 1 {
		dupCount = 1
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	var (
		last, twoAgo *domain.RankAssignment
		prefix       string // lineage through last
		prevPrefix   string // lineage through twoAgo
	)
	for i := range chain {
		a := &chain[i]
		parent := e.tree.RootID()
		if last != nil {
			parent = NodeID{TaxonID: last.TaxonID}
		}

		if a.Confidence >= threshold {
			n, err := e.findOrCreate(a.Taxon(), parent, false, prefix)
			if err != nil {
				return err
			}
			n.addCount(sample, dupCount)
			prevPrefix = prefix
			prefix += a.Name + ";" + a.Rank + ";"
			twoAgo, last = last, a
			continue
		}

		fallback := e.tree.RootID()
		if twoAgo != nil {
			fallback = NodeID{TaxonID: twoAgo.TaxonID}
		}
		identity := e.rootTaxon()
		if last != nil {
			identity = last.Taxon()
		} else {
			prevPrefix = ""
		}
		n, err := e.findOrCreate(identity, fallback, true, prevPrefix)
		if err != nil {
			return err
		}
		n.addCount(sample, dupCount)
		return nil
	}
	return nil
}

// findOrCreate returns the node for (taxon, unclassified), creating it under
// parent with lineage prefix+name;rank; when absent. Existing nodes are never
// revised.
func (e *Engine) findOrCreate(taxon domain.Taxon, parent NodeID, unclassified bool, prefix string) (*Node, error) {
	id := NodeID{TaxonID: taxon.ID, Unclassified: unclassified}
	if n, ok := e.tree.Get(id); ok {
		return n, nil
	}
	n := newNode(id, taxon.Name, taxon.Rank)
	if err := e.tree.Insert(n, parent); err != nil {
		return nil, fmt.Errorf("fold %s: %w", taxon.Name, err)
	}
	n.lineage = prefix + taxon.Name + ";" + taxon.Rank + ";"
	e.tally.Inc(taxon.Rank)
	return n, nil
}

func (e *Engine) rootTaxon() domain.Taxon {
	r := e.tree.root
	return domain.Taxon{ID: r.id.TaxonID, Name: r.name, Rank: r.rank}
}
