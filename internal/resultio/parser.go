package resultio

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"multicompare/pkg/domain"
)

const maxLineBytes = 1 << 20

// Parser reads classification results in the tab separated allrank layout:
//
//	seqID [TAB -] TAB name TAB rank TAB conf [TAB name TAB rank TAB conf ...]
//
// The optional second column marks a reverse-complemented query. Blank lines
// and lines starting with '#' are skipped. Entries of rank rootrank are the
// tree root and are not part of the returned chain.
type Parser struct {
	sc     *bufio.Scanner
	source string
	line   int
	index  *TaxonomyIndex
}

// NewParser reads from r. A nil index synthesizes taxon ids from the name path.
func NewParser(r io.Reader, index *TaxonomyIndex) *Parser {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &Parser{sc: sc, index: index}
}

// Next returns the next classification, or io.EOF when the input is exhausted.
func (p *Parser) Next(ctx context.Context) (domain.Classification, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.Classification{}, err
		}
		if !p.sc.Scan() {
			if err := p.sc.Err(); err != nil {
				return domain.Classification{}, fmt.Errorf("read results: %w", err)
			}
			return domain.Classification{}, io.EOF
		}
		p.line++
		text := strings.TrimRight(p.sc.Text(), "\r\n")
		if strings.TrimSpace(text) == "" || strings.HasPrefix(text, "#") {
			continue
		}
		return p.parseLine(text)
	}
}

func (p *Parser) parseLine(text string) (domain.Classification, error) {
	fields := strings.Split(text, "\t")
	c := domain.Classification{SequenceID: strings.TrimSpace(fields[0])}
	if c.SequenceID == "" {
		return domain.Classification{}, parseErr(p.source, p.line, "missing sequence id")
	}
	rest := fields[1:]
	if len(rest)%3 == 1 {
		switch strings.TrimSpace(rest[0]) {
		case "-":
			c.Reversed = true
		case "":
		default:
			return domain.Classification{}, parseErr(p.source, p.line, "unexpected orientation marker %q", rest[0])
		}
		rest = rest[1:]
	}
	if len(rest) == 0 || len(rest)%3 != 0 {
		return domain.Classification{}, parseErr(p.source, p.line, "expected name/rank/confidence triples")
	}
	parent := ""
	if p.index != nil {
		parent = p.index.Root().ID
	}
	var path []string
	for i := 0; i < len(rest); i += 3 {
		name := strings.TrimSpace(rest[i])
		rank := strings.TrimSpace(rest[i+1])
		conf, err := strconv.ParseFloat(strings.TrimSpace(rest[i+2]), 64)
		if err != nil || conf < 0 || conf > 1 {
			return domain.Classification{}, parseErr(p.source, p.line, "invalid confidence %q", rest[i+2])
		}
		if name == "" || rank == "" {
			return domain.Classification{}, parseErr(p.source, p.line, "empty name or rank")
		}
		if strings.EqualFold(rank, domain.RootRank) {
			continue
		}
		var id string
		if p.index != nil {
			resolved, ok := p.index.Resolve(parent, name, rank)
			if !ok {
				return domain.Classification{}, parseErr(p.source, p.line, "taxon %s %s not found under %s", rank, name, parent)
			}
			id = resolved
			parent = resolved
		} else {
			path = append(path, name)
			id = strings.Join(path, "/")
		}
		c.Chain = append(c.Chain, domain.RankAssignment{TaxonID: id, Name: name, Rank: rank, Confidence: conf})
	}
	return c, nil
}
