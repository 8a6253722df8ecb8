package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"multicompare/internal/core"
	"multicompare/pkg/domain"
)

func chain(items ...any) domain.Chain {
	var c domain.Chain
	for i := 0; i < len(items); i += 3 {
		name := items[i].(string)
		c = append(c, domain.RankAssignment{TaxonID: name, Name: name, Rank: items[i+1].(string), Confidence: items[i+2].(float64)})
	}
	return c
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatAllRank, "FixRank": FormatFixRank, " filterbyconf ": FormatFilterByConf} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestAssignmentWriter_Formats(t *testing.T) {
	c := domain.Classification{
		SequenceID: "s1",
		Reversed:   true,
		Chain:      chain("Bacteria", "domain", 1.0, "Firmicutes", "phylum", 0.95, "Bacilli", "class", 0.5),
	}
	cases := map[Format]string{
		FormatAllRank: "s1\t-\tBacteria\tdomain\t1\tFirmicutes\tphylum\t0.95\tBacilli\tclass\t0.5\n",
		FormatFixRank: "s1\t-\tBacteria\tdomain\t1\tFirmicutes\tphylum\t0.95\tBacilli\tclass\t0.5\t\torder\t\t\tfamily\t\t\tgenus\t\n",
		FormatFilterByConf: "seqID\tdomain\tphylum\tclass\torder\tfamily\tgenus\n" +
			"s1\tBacteria\tFirmicutes\tunclassified_Firmicutes\tunclassified_Firmicutes\tunclassified_Firmicutes\tunclassified_Firmicutes\n",
	}
	for format, want := range cases {
		var buf bytes.Buffer
		if err := NewAssignmentWriter(&buf, format).WriteAssignment(c, 0.8); err != nil {
			t.Fatalf("%s: %v", format, err)
		}
		if diff := cmp.Diff(want, buf.String()); diff != "" {
			t.Fatalf("%s output (-want +got):\n%s", format, diff)
		}
	}
}

func TestAssignmentWriter_FilterByConfHeaderOnce(t *testing.T) {
	var buf bytes.Buffer
	w := NewAssignmentWriter(&buf, FormatFilterByConf)
	for _, id := range []string{"a", "b"} {
		if err := w.WriteAssignment(domain.Classification{SequenceID: id, Chain: chain("Bacteria", "domain", 0.2)}, 0.8); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "seqID") {
		t.Fatalf("unexpected output %q", buf.String())
	}
	if !strings.HasPrefix(lines[1], "a\tunclassified_Root\t") {
		t.Fatalf("expected unclassified_Root for first-rank miss, got %q", lines[1])
	}
}

func buildResult(t *testing.T) core.Result {
	t.Helper()
	e := core.NewEngine(domain.DefaultRoot)
	steps := []struct {
		sample string
		chain  domain.Chain
	}{
		{"A", chain("Bacteria", "domain", 1.0, "Firmicutes", "phylum", 0.9)},
		{"B", chain("Bacteria", "domain", 1.0, "Firmicutes", "phylum", 0.3)},
	}
	for _, s := range steps {
		if err := e.Process(s.chain, s.sample, 1, 0.8); err != nil {
			t.Fatalf("process: %v", err)
		}
	}
	return core.Result{Tree: e.Tree(), RankTally: e.Tally()}
}

func TestWriteHierarchy(t *testing.T) {
	res := buildResult(t)
	var buf bytes.Buffer
	if err := WriteHierarchy(&buf, res.Tree, []string{"A", "B"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := "taxid\tlineage\tname\trank\tA\tB\n" +
		"Bacteria\tBacteria;domain;\tBacteria\tdomain\t1\t1\n" +
		"Firmicutes\tBacteria;domain;Firmicutes;phylum;\tFirmicutes\tphylum\t1\t0\n" +
		"Bacteria\tBacteria;domain;\tunclassified_Bacteria\tdomain\t0\t1\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Fatalf("hierarchy (-want +got):\n%s", diff)
	}
}

func TestWriteRankTallyAndBadSequences(t *testing.T) {
	res := buildResult(t)
	var buf bytes.Buffer
	if err := WriteRankTally(&buf, res.RankTally); err != nil {
		t.Fatalf("tally: %v", err)
	}
	if diff := cmp.Diff("domain\t2\nphylum\t1\n", buf.String()); diff != "" {
		t.Fatalf("tally (-want +got):\n%s", diff)
	}
	buf.Reset()
	if err := WriteBadSequences(&buf, []string{"x1", "x2"}); err != nil {
		t.Fatalf("bad: %v", err)
	}
	if buf.String() != "x1\nx2\n" {
		t.Fatalf("unexpected bad sequences %q", buf.String())
	}
}

func TestWriteSampleRankCounts(t *testing.T) {
	a := core.NewMemorySample("A", nil, nil)
	a.AddRankCount(chain("Bacteria", "domain", 1.0, "Firmicutes", "phylum", 0.9), 0.8, 2)
	b := core.NewMemorySample("B", nil, nil)
	b.AddRankCount(chain("Bacteria", "domain", 1.0, "Firmicutes", "phylum", 0.1), 0.8, 1)
	var buf bytes.Buffer
	if err := WriteSampleRankCounts(&buf, []core.Sample{a, b}); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := "sample\tdomain\tphylum\nA\t2\t2\nB\t1\t0\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Fatalf("rank counts (-want +got):\n%s", diff)
	}
}
