package resultio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"multicompare/pkg/domain"
)

type taxonKey struct {
	parent string
	name   string
	rank   string
}

// TaxonomyIndex resolves (parent, name, rank) to the taxon ids of a training
// taxonomy. Each line of the source has the form taxid*name*parentid*depth*rank;
// the entry whose parent is -1 is the root.
type TaxonomyIndex struct {
	root  domain.Taxon
	ids   map[taxonKey]string
	count int
}

// LoadTaxonomy reads a taxonomy in the star-separated training format.
func LoadTaxonomy(r io.Reader) (*TaxonomyIndex, error) {
	return loadTaxonomy(r, "")
}

// OpenTaxonomy loads a taxonomy file from disk.
func OpenTaxonomy(path string) (*TaxonomyIndex, error) {
	f, err := os.Open(path) // #nosec G304 -- operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("open taxonomy: %w", err)
	}
	defer func() { _ = f.Close() }()
	return loadTaxonomy(f, path)
}

func loadTaxonomy(r io.Reader, source string) (*TaxonomyIndex, error) {
	idx := &TaxonomyIndex{ids: make(map[taxonKey]string)}
	rootSeen := false
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Split(text, "*")
		if len(fields) != 5 {
			return nil, parseErr(source, line, "expected 5 '*' separated fields, got %d", len(fields))
		}
		id, name, parent, rank := fields[0], fields[1], fields[2], fields[4]
		if id == "" || name == "" {
			return nil, parseErr(source, line, "empty taxon id or name")
		}
		if _, err := strconv.Atoi(fields[3]); err != nil {
			return nil, parseErr(source, line, "invalid depth %q", fields[3])
		}
		if parent == "-1" {
			if rootSeen {
				return nil, parseErr(source, line, "second root %q", name)
			}
			rootSeen = true
			idx.root = domain.Taxon{ID: id, Name: name, Rank: rank}
			idx.count++
			continue
		}
		key := taxonKey{parent: parent, name: name, rank: strings.ToLower(rank)}
		if prev, dup := idx.ids[key]; dup {
			return nil, parseErr(source, line, "taxon %s %s already defined as %s", rank, name, prev)
		}
		idx.ids[key] = id
		idx.count++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read taxonomy: %w", err)
	}
	if !rootSeen {
		return nil, fmt.Errorf("taxonomy has no root entry")
	}
	return idx, nil
}

// Root returns the taxonomy root.
func (t *TaxonomyIndex) Root() domain.Taxon { return t.root }

// Len returns the number of taxa including the root.
func (t *TaxonomyIndex) Len() int { return t.count }

// Resolve returns the id of the taxon named name at rank directly under parentID.
func (t *TaxonomyIndex) Resolve(parentID, name, rank string) (string, bool) {
	id, ok := t.ids[taxonKey{parent: parentID, name: name, rank: strings.ToLower(rank)}]
	return id, ok
}
