package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"multicompare/internal/core"
)

// UnclassifiedPrefix marks unclassified nodes in the hierarchy table.
const UnclassifiedPrefix = "unclassified_"

// DisplayName returns the node name as shown in reports.
func DisplayName(n *core.Node) string {
	if n.Unclassified() {
		return UnclassifiedPrefix + n.Name()
	}
	return n.Name()
}

// WriteHierarchy writes a tab separated table with one pre-order row per
// non-root node and one count column per sample.
func WriteHierarchy(w io.Writer, tree *core.Tree, samples []string) error {
	bw := bufio.NewWriter(w)
	header := append([]string{"taxid", "lineage", "name", "rank"}, samples...)
	if _, err := bw.WriteString(strings.Join(header, "\t") + "\n"); err != nil {
		return err
	}
	var werr error
	tree.Walk(func(n *core.Node, depth int) bool {
		if werr != nil {
			return false
		}
		if depth == 0 {
			return true
		}
		row := make([]string, 0, 4+len(samples))
		row = append(row, n.TaxonID(), n.Lineage(), DisplayName(n), n.Rank())
		for _, s := range samples {
			row = append(row, strconv.Itoa(n.Count(s)))
		}
		if _, err := bw.WriteString(strings.Join(row, "\t") + "\n"); err != nil {
			werr = err
			return false
		}
		return true
	})
	if werr != nil {
		return fmt.Errorf("write hierarchy: %w", werr)
	}
	return bw.Flush()
}

// WriteRankTally writes "rank<TAB>count" lines sorted by rank label.
func WriteRankTally(w io.Writer, tally core.RankTally) error {
	bw := bufio.NewWriter(w)
	for _, rank := range tally.Ranks() {
		if _, err := fmt.Fprintf(bw, "%s\t%d\n", rank, tally.Get(rank)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteSampleRankCounts writes one row per sample with its per-rank sequence
// counts, one column per rank seen in any sample.
func WriteSampleRankCounts(w io.Writer, samples []core.Sample) error {
	ranks := make(core.RankTally)
	counts := make([]map[string]int, len(samples))
	for i, s := range samples {
		counts[i] = s.RankCounts()
		for r := range counts[i] {
			ranks.Inc(r)
		}
	}
	labels := ranks.Ranks()
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(append([]string{"sample"}, labels...), "\t") + "\n"); err != nil {
		return err
	}
	for i, s := range samples {
		row := []string{s.Name()}
		for _, r := range labels {
			row = append(row, strconv.Itoa(counts[i][r]))
		}
		if _, err := bw.WriteString(strings.Join(row, "\t") + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteBadSequences writes one sequence identifier per line.
func WriteBadSequences(w io.Writer, ids []string) error {
	bw := bufio.NewWriter(w)
	for _, id := range ids {
		if _, err := bw.WriteString(id + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
