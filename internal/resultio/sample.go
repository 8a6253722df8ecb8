package resultio

import (
	"context"
	"fmt"
	"os"

	"multicompare/internal/core"
)

// FileSample is a core.ResultSample backed by a result file on disk.
type FileSample struct {
	*core.SampleCounts
	name  string
	path  string
	index *TaxonomyIndex
}

// NewFileSample returns a sample reading path. dups may be nil; index may be
// nil to synthesize taxon ids.
func NewFileSample(name, path string, dups map[string]int, index *TaxonomyIndex) *FileSample {
	return &FileSample{SampleCounts: core.NewSampleCounts(dups), name: name, path: path, index: index}
}

// Name implements core.Sample.
func (s *FileSample) Name() string { return s.name }

// Path returns the result file path.
func (s *FileSample) Path() string { return s.path }

// OpenResults implements core.ResultSample.
func (s *FileSample) OpenResults(_ context.Context) (core.ResultReader, error) {
	f, err := os.Open(s.path) // #nosec G304 -- operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("open results for sample %s: %w", s.name, err)
	}
	p := NewParser(f, s.index)
	p.source = s.path
	return &fileReader{Parser: p, f: f}, nil
}

type fileReader struct {
	*Parser
	f *os.File
}

func (r *fileReader) Close() error { return r.f.Close() }
