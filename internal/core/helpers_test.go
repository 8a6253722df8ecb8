package core

import (
	"context"
	"fmt"
	"io"
	"sync"

	"multicompare/pkg/domain"
)

type logEntry struct {
	level string
	msg   string
	args  []any
}

type captureLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *captureLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *captureLogger) Debug(msg string, args ...any) { l.add("debug", msg, args) }
func (l *captureLogger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.add("warn", msg, args) }
func (l *captureLogger) Error(msg string, args ...any) { l.add("error", msg, args) }

func (l *captureLogger) count(level, msg string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			n++
		}
	}
	return n
}

type captureWriter struct {
	mu  sync.Mutex
	ids []string
}

func (w *captureWriter) WriteAssignment(c domain.Classification, _ float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ids = append(w.ids, c.SequenceID)
	return nil
}

// ra builds a rank assignment whose taxon id is the name.
func ra(name, rank string, conf float64) domain.RankAssignment {
	return domain.RankAssignment{TaxonID: name, Name: name, Rank: rank, Confidence: conf}
}

// fixtureChains maps sequence ids to chains; ids missing here fail classification.
var fixtureChains = map[string]domain.Chain{
	"s1": {ra("Bacteria", "domain", 1), ra("Firmicutes", "phylum", 0.95), ra("Bacilli", "class", 0.9)},
	"s2": {ra("Bacteria", "domain", 1), ra("Firmicutes", "phylum", 0.92), ra("Bacilli", "class", 0.65)},
	"s3": {ra("Bacteria", "domain", 0.99), ra("Proteobacteria", "phylum", 0.4)},
	"s4": {ra("Archaea", "domain", 0.3)},
	"s5": {ra("Bacteria", "domain", 1), ra("Proteobacteria", "phylum", 0.85)},
}

func fixtureClassifier() Classifier {
	return ClassifierFunc(func(ctx context.Context, seq Sequence) (domain.Chain, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, ok := fixtureChains[seq.ID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrShortSequence, seq.ID)
		}
		return c, nil
	})
}

func seqs(ids ...string) []Sequence {
	out := make([]Sequence, len(ids))
	for i, id := range ids {
		out[i] = Sequence{ID: id, Bases: []byte("ACGT")}
	}
	return out
}

// parsedSample is a ResultSample over in-memory classifications.
type parsedSample struct {
	*SampleCounts
	name    string
	results []domain.Classification
	openErr error
}

func newParsedSample(name string, dups map[string]int, ids ...string) *parsedSample {
	s := &parsedSample{SampleCounts: NewSampleCounts(dups), name: name}
	for _, id := range ids {
		s.results = append(s.results, domain.Classification{SequenceID: id, Chain: fixtureChains[id]})
	}
	return s
}

func (s *parsedSample) Name() string { return s.name }

func (s *parsedSample) OpenResults(context.Context) (ResultReader, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	return &sliceReader{results: s.results}, nil
}

type sliceReader struct {
	results []domain.Classification
	next    int
}

func (r *sliceReader) Next(context.Context) (domain.Classification, error) {
	if r.next >= len(r.results) {
		return domain.Classification{}, io.EOF
	}
	c := r.results[r.next]
	r.next++
	return c, nil
}

func (r *sliceReader) Close() error { return nil }
