// Package report renders aggregation output: per-sequence assignment lines
// and the per-sample hierarchy count table.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"multicompare/pkg/domain"
)

// Format selects the assignment line layout.
type Format string

const (
	// FormatAllRank prints every rank as name, rank, confidence.
	FormatAllRank Format = "allrank"
	// FormatFixRank prints only the canonical ranks, one triple each.
	FormatFixRank Format = "fixrank"
	// FormatFilterByConf prints canonical rank names, replacing those below
	// the threshold with unclassified_<last confident name>.
	FormatFilterByConf Format = "filterbyconf"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatAllRank, FormatFixRank, FormatFilterByConf:
		return f, nil
	case "":
		return FormatAllRank, nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

// AssignmentWriter writes one line per classification. It is safe for
// concurrent use.
type AssignmentWriter struct {
	mu          sync.Mutex
	w           io.Writer
	format      Format
	wroteHeader bool
}

// NewAssignmentWriter returns a writer emitting lines in format.
func NewAssignmentWriter(w io.Writer, format Format) *AssignmentWriter {
	return &AssignmentWriter{w: w, format: format}
}

// WriteAssignment renders c. threshold only affects filterbyconf.
func (a *AssignmentWriter) WriteAssignment(c domain.Classification, threshold float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	var line string
	switch a.format {
	case FormatFixRank:
		line = fixRankLine(c)
	case FormatFilterByConf:
		if !a.wroteHeader {
			if _, err := io.WriteString(a.w, "seqID\t"+strings.Join(domain.CanonicalRanks, "\t")+"\n"); err != nil {
				return err
			}
			a.wroteHeader = true
		}
		line = filterByConfLine(c, threshold)
	default:
		line = allRankLine(c)
	}
	_, err := io.WriteString(a.w, line+"\n")
	return err
}

func orientation(c domain.Classification) string {
	if c.Reversed {
		return "-"
	}
	return ""
}

func formatConf(conf float64) string { return strconv.FormatFloat(conf, 'f', -1, 64) }

func allRankLine(c domain.Classification) string {
	parts := []string{c.SequenceID, orientation(c)}
	for _, a := range c.Chain {
		parts = append(parts, a.Name, a.Rank, formatConf(a.Confidence))
	}
	return strings.Join(parts, "\t")
}

func fixRankLine(c domain.Classification) string {
	parts := []string{c.SequenceID, orientation(c)}
	for _, rank := range domain.CanonicalRanks {
		a, ok := c.Chain.AtRank(rank)
		if !ok {
			parts = append(parts, "", rank, "")
			continue
		}
		parts = append(parts, a.Name, rank, formatConf(a.Confidence))
	}
	return strings.Join(parts, "\t")
}

func filterByConfLine(c domain.Classification, threshold float64) string {
	confident := c.Chain.Confident(threshold)
	parts := []string{c.SequenceID}
	last := "Root"
	for _, rank := range domain.CanonicalRanks {
		if a, ok := confident.AtRank(rank); ok {
			last = a.Name
			parts = append(parts, a.Name)
			continue
		}
		parts = append(parts, "unclassified_"+last)
	}
	return strings.Join(parts, "\t")
}
