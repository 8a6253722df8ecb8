package core

import (
	"context"
	"io"
	"sync"

	"multicompare/pkg/domain"
)

// Sequence is one representative sequence pulled from a sample.
type Sequence struct {
	ID    string
	Bases []byte
}

// Sample is a named group of sequences whose counts are kept separately in
// every tree node.
type Sample interface {
	Name() string
	// DupCount returns how many raw sequences seqID stands for (at least 1).
	DupCount(seqID string) int
	// AddRankCount records the ranks a chain confidently covers.
	AddRankCount(chain domain.Chain, threshold float64, dupCount int)
	RankCounts() map[string]int
}

// SequenceSample is a sample classified live.
type SequenceSample interface {
	Sample
	// NextSequence returns io.EOF once the sample is exhausted.
	NextSequence(ctx context.Context) (Sequence, error)
}

// ResultReader yields previously persisted classification results.
type ResultReader interface {
	// Next returns io.EOF once the reader is exhausted.
	Next(ctx context.Context) (domain.Classification, error)
	Close() error
}

// ResultSample is a sample whose classifications were computed earlier.
type ResultSample interface {
	Sample
	OpenResults(ctx context.Context) (ResultReader, error)
}

// SampleCounts implements the counting half of Sample and is meant to be
// embedded by concrete samples.
type SampleCounts struct {
	mu         sync.Mutex
	dups       map[string]int
	rankCounts map[string]int
}

// NewSampleCounts returns counts seeded with duplicate counts per sequence id.
func NewSampleCounts(dups map[string]int) *SampleCounts {
	c := &SampleCounts{dups: make(map[string]int, len(dups)), rankCounts: make(map[string]int)}
	for id, n := range dups {
		c.dups[id] = n
	}
	return c
}

// DupCount returns the duplicate count for seqID, defaulting to 1.
func (c *SampleCounts) DupCount(seqID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n, ok := c.dups[seqID]; ok && n > 0 {
		return n
	}
	return 1
}

// AddRankCount adds dupCount to each rank the chain confidently covers.
func (c *SampleCounts) AddRankCount(chain domain.Chain, threshold float64, dupCount int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rankCounts == nil {
		c.rankCounts = make(map[string]int)
	}
	for _, a := range chain.Confident(threshold) {
		c.rankCounts[a.Rank] += dupCount
	}
}

// RankCounts returns a copy of the per-rank tallies.
func (c *SampleCounts) RankCounts() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.rankCounts))
	for k, v := range c.rankCounts {
		out[k] = v
	}
	return out
}

// MemorySample is a SequenceSample over an in-memory slice.
type MemorySample struct {
	*SampleCounts
	name string
	seqs []Sequence
	next int
}

// NewMemorySample constructs a sample; dups may be nil.
func NewMemorySample(name string, seqs []Sequence, dups map[string]int) *MemorySample {
	return &MemorySample{SampleCounts: NewSampleCounts(dups), name: name, seqs: seqs}
}

// Name returns the sample name.
func (s *MemorySample) Name() string { return s.name }

// NextSequence returns the next sequence or io.EOF.
func (s *MemorySample) NextSequence(ctx context.Context) (Sequence, error) {
	if err := ctx.Err(); err != nil {
		return Sequence{}, err
	}
	if s.next >= len(s.seqs) {
		return Sequence{}, io.EOF
	}
	seq := s.seqs[s.next]
	s.next++
	return seq, nil
}
