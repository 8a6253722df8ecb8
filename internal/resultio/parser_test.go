package resultio

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"multicompare/pkg/domain"
)

const taxonomyFixture = `0*Root*-1*0*rootrank
1*Bacteria*0*1*domain
2*Firmicutes*1*2*phylum
3*Bacilli*2*3*class
4*Proteobacteria*1*2*phylum
`

func readAll(t *testing.T, p *Parser) []domain.Classification {
	t.Helper()
	var out []domain.Classification
	for {
		c, err := p.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		out = append(out, c)
	}
}

func TestParser_SynthesizedIDs(t *testing.T) {
	input := "# header\n\n" +
		"s1\t\tRoot\trootrank\t1.0\tBacteria\tdomain\t1.0\tFirmicutes\tphylum\t0.95\n" +
		"s2\t-\tRoot\trootrank\t1.0\tBacteria\tdomain\t0.5\n" +
		"s3\tBacteria\tdomain\t0.9\n"
	got := readAll(t, NewParser(strings.NewReader(input), nil))
	want := []domain.Classification{
		{SequenceID: "s1", Chain: domain.Chain{
			{TaxonID: "Bacteria", Name: "Bacteria", Rank: "domain", Confidence: 1.0},
			{TaxonID: "Bacteria/Firmicutes", Name: "Firmicutes", Rank: "phylum", Confidence: 0.95},
		}},
		{SequenceID: "s2", Reversed: true, Chain: domain.Chain{
			{TaxonID: "Bacteria", Name: "Bacteria", Rank: "domain", Confidence: 0.5},
		}},
		{SequenceID: "s3", Chain: domain.Chain{
			{TaxonID: "Bacteria", Name: "Bacteria", Rank: "domain", Confidence: 0.9},
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected classifications (-want +got):\n%s", diff)
	}
}

func TestParser_TaxonomyIDs(t *testing.T) {
	idx, err := LoadTaxonomy(strings.NewReader(taxonomyFixture))
	if err != nil {
		t.Fatalf("load taxonomy: %v", err)
	}
	input := "s1\tRoot\trootrank\t1.0\tBacteria\tdomain\t1.0\tFirmicutes\tphylum\t0.9\tBacilli\tclass\t0.7\n"
	got := readAll(t, NewParser(strings.NewReader(input), idx))
	if len(got) != 1 || len(got[0].Chain) != 3 {
		t.Fatalf("unexpected parse %+v", got)
	}
	ids := []string{got[0].Chain[0].TaxonID, got[0].Chain[1].TaxonID, got[0].Chain[2].TaxonID}
	if diff := cmp.Diff([]string{"1", "2", "3"}, ids); diff != "" {
		t.Fatalf("unexpected ids (-want +got):\n%s", diff)
	}

	_, err = NewParser(strings.NewReader("s1\tBacteria\tdomain\t1.0\tFusobacteria\tphylum\t0.9\n"), idx).Next(context.Background())
	var perr *ParseError
	if !errors.As(err, &perr) || perr.Line != 1 {
		t.Fatalf("expected parse error for unknown taxon, got %v", err)
	}
}

func TestParser_MalformedLines(t *testing.T) {
	cases := map[string]string{
		"missing triples":  "s1\n",
		"short triple":     "s1\tBacteria\tdomain\n",
		"bad confidence":   "s1\tBacteria\tdomain\thigh\n",
		"out of range":     "s1\tBacteria\tdomain\t1.5\n",
		"bad orientation":  "s1\t+\tBacteria\tdomain\t0.9\n",
		"empty sequence":   "\tBacteria\tdomain\t0.9\n",
		"empty taxon name": "s1\t\tdomain\t0.9\n",
	}
	for name, input := range cases {
		_, err := NewParser(strings.NewReader("# c\n"+input), nil).Next(context.Background())
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Fatalf("%s: expected ParseError, got %v", name, err)
		}
		if perr.Line != 2 {
			t.Fatalf("%s: expected line 2, got %d", name, perr.Line)
		}
	}
}

func TestParser_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewParser(strings.NewReader("s1\tBacteria\tdomain\t1\n"), nil).Next(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestLoadTaxonomy(t *testing.T) {
	idx, err := LoadTaxonomy(strings.NewReader(taxonomyFixture))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if idx.Root() != (domain.Taxon{ID: "0", Name: "Root", Rank: "rootrank"}) || idx.Len() != 5 {
		t.Fatalf("unexpected index root=%+v len=%d", idx.Root(), idx.Len())
	}
	if id, ok := idx.Resolve("1", "Proteobacteria", "Phylum"); !ok || id != "4" {
		t.Fatalf("resolve proteobacteria: %s %v", id, ok)
	}
	if _, ok := idx.Resolve("2", "Proteobacteria", "phylum"); ok {
		t.Fatalf("expected resolution scoped by parent")
	}
	bad := []string{
		"1*Bacteria*0*1*domain\n",
		"0*Root*-1*0*rootrank\n0*Root2*-1*0*rootrank\n",
		"0*Root*-1*0*rootrank\n1*Bacteria*0*x*domain\n",
		"0*Root*-1*0\n",
		"0*Root*-1*0*rootrank\n1*Bacteria*0*1*domain\n2*Bacteria*0*1*domain\n",
	}
	for _, in := range bad {
		if _, err := LoadTaxonomy(strings.NewReader(in)); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestReadDupCounts(t *testing.T) {
	got, err := ReadDupCounts(strings.NewReader("# id count\ns1\t3\ns2 2\n\ns1\t1\n"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff(map[string]int{"s1": 4, "s2": 2}, got); diff != "" {
		t.Fatalf("unexpected counts (-want +got):\n%s", diff)
	}
	for _, in := range []string{"s1\n", "s1\t0\n", "s1\tx\n"} {
		if _, err := ReadDupCounts(strings.NewReader(in)); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}
