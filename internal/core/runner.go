package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"multicompare/pkg/domain"
)

// ErrDuplicateSample is returned when two samples of a run share a name.
var ErrDuplicateSample = errors.New("duplicate sample name")

// Classifier computes an assignment chain for a sequence. Any error other than
// a context error marks the sequence as bad without aborting the run.
type Classifier interface {
	Classify(ctx context.Context, seq Sequence) (domain.Chain, error)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ctx context.Context, seq Sequence) (domain.Chain, error)

// Classify implements Classifier.
func (f ClassifierFunc) Classify(ctx context.Context, seq Sequence) (domain.Chain, error) {
	return f(ctx, seq)
}

// ParseFilter selects which pre-computed results produce assignment output.
// Every result is aggregated regardless of the filter.
type ParseFilter struct {
	// PrintRank is the rank whose confidence gates output. Empty means the
	// last rank of the first result of the run, fixed for every later result.
	PrintRank string
	// TaxonFilter restricts output to chains naming one of these taxa.
	TaxonFilter map[string]struct{}
}

// resolve fixes an empty PrintRank from the first chain seen.
func (f *ParseFilter) resolve(chain domain.Chain) {
	if f.PrintRank != "" {
		return
	}
	if last, ok := chain.Last(); ok {
		f.PrintRank = last.Rank
	}
}

func (f ParseFilter) match(chain domain.Chain, threshold float64) bool {
	if f.PrintRank == "" {
		return false
	}
	if len(f.TaxonFilter) > 0 {
		found := false
		for _, a := range chain {
			if _, ok := f.TaxonFilter[a.Name]; ok {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, a := range chain {
		if strings.EqualFold(a.Rank, f.PrintRank) && a.Confidence >= threshold {
			return true
		}
	}
	return false
}

// Runner iterates samples, obtains assignment chains and folds them into one
// shared tree per run.
type Runner struct {
	opts runnerOptions
}

// NewRunner constructs a runner.
func NewRunner(opts ...Option) *Runner {
	o := defaultRunnerOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return &Runner{opts: o}
}

// Confidence returns the configured threshold.
func (r *Runner) Confidence() float64 { return r.opts.confidence }

type runState struct {
	id      string
	started time.Time
	engine  *Engine
	bad     *BadSequenceLog
	samples []Sample
}

func (r *Runner) newRun(samples []Sample) (*runState, error) {
	seen := make(map[string]struct{}, len(samples))
	for _, s := range samples {
		if _, ok := seen[s.Name()]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSample, s.Name())
		}
		seen[s.Name()] = struct{}{}
	}
	return &runState{
		id:      uuid.NewString(),
		started: r.opts.clock.Now(),
		engine:  NewEngine(r.opts.root),
		bad:     &BadSequenceLog{},
		samples: samples,
	}, nil
}

func (r *Runner) finish(st *runState) Result {
	return Result{
		ID:           st.id,
		StartedAt:    st.started,
		FinishedAt:   r.opts.clock.Now(),
		Confidence:   r.opts.confidence,
		Tree:         st.engine.Tree(),
		Samples:      st.samples,
		BadSequences: st.bad.IDs(),
		RankTally:    st.engine.Tally(),
	}
}

// observe wraps an operation with tracing, metrics and error logging.
func (r *Runner) observe(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, span := r.opts.tracer.Start(ctx, op)
	start := time.Now()
	err := fn(ctx)
	r.opts.metrics.Observe(ctx, op, err == nil, time.Since(start))
	span.End(err)
	if err != nil {
		r.opts.logger.Error("operation failed", "operation", op, "error", err)
	}
	return err
}

// fold aggregates one classified sequence and updates the sample's rank counts.
func (r *Runner) fold(st *runState, s Sample, c domain.Classification) error {
	dup := s.DupCount(c.SequenceID)
	if err := st.engine.Process(c.Chain, s.Name(), dup, r.opts.confidence); err != nil {
		return fmt.Errorf("sample %s sequence %s: %w", s.Name(), c.SequenceID, err)
	}
	s.AddRankCount(c.Chain, r.opts.confidence, dup)
	return nil
}

// Run classifies every sequence of every sample and aggregates the results.
func (r *Runner) Run(ctx context.Context, classifier Classifier, samples []SequenceSample) (Result, error) {
	generic := make([]Sample, len(samples))
	for i, s := range samples {
		generic[i] = s
	}
	st, err := r.newRun(generic)
	if err != nil {
		return Result{}, err
	}
	r.opts.logger.Info("run started", "run_id", st.id, "samples", len(samples), "confidence", r.opts.confidence, "workers", r.opts.workers)
	err = r.observe(ctx, "run", func(ctx context.Context) error {
		for _, s := range samples {
			if err := r.runSample(ctx, st, classifier, s); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	res := r.finish(st)
	r.opts.logger.Info("run finished", "run_id", st.id, "nodes", res.Tree.Len(), "bad_sequences", len(res.BadSequences))
	return res, nil
}

type classified struct {
	seq   Sequence
	chain domain.Chain
	err   error
}

func (r *Runner) runSample(ctx context.Context, st *runState, classifier Classifier, s SequenceSample) error {
	batch := make([]Sequence, 0, r.opts.batchSize)
	for {
		batch = batch[:0]
		exhausted := false
		for len(batch) < r.opts.batchSize {
			seq, err := s.NextSequence(ctx)
			if errors.Is(err, io.EOF) {
				exhausted = true
				break
			}
			if err != nil {
				return fmt.Errorf("sample %s: next sequence: %w", s.Name(), err)
			}
			batch = append(batch, seq)
		}
		results, err := r.classifyBatch(ctx, classifier, batch)
		if err != nil {
			return err
		}
		for _, res := range results {
			if res.err != nil {
				st.bad.Add(res.seq.ID)
				r.opts.logger.Warn("sequence not classified", "sample", s.Name(), "sequence", res.seq.ID, "error", res.err)
				continue
			}
			c := domain.Classification{SequenceID: res.seq.ID, Chain: res.chain}
			if r.opts.writer != nil {
				if err := r.opts.writer.WriteAssignment(c, r.opts.confidence); err != nil {
					return fmt.Errorf("write assignment %s: %w", res.seq.ID, err)
				}
			}
			if err := r.fold(st, s, c); err != nil {
				return err
			}
		}
		if exhausted {
			return nil
		}
	}
}

// classifyBatch classifies a batch with up to workers goroutines. Results keep
// input order so folding is deterministic.
func (r *Runner) classifyBatch(ctx context.Context, classifier Classifier, batch []Sequence) ([]classified, error) {
	out := make([]classified, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.workers)
	for i, seq := range batch {
		g.Go(func() error {
			start := time.Now()
			chain, err := classifier.Classify(gctx, seq)
			r.opts.metrics.Observe(gctx, "classify_sequence", err == nil, time.Since(start))
			if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
				return err
			}
			out[i] = classified{seq: seq, chain: chain, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// RunParsed aggregates previously computed classification results.
func (r *Runner) RunParsed(ctx context.Context, samples []ResultSample, filter ParseFilter) (Result, error) {
	generic := make([]Sample, len(samples))
	for i, s := range samples {
		generic[i] = s
	}
	st, err := r.newRun(generic)
	if err != nil {
		return Result{}, err
	}
	r.opts.logger.Info("parsed run started", "run_id", st.id, "samples", len(samples), "confidence", r.opts.confidence)
	err = r.observe(ctx, "run_parsed", func(ctx context.Context) error {
		for _, s := range samples {
			if err := r.parseSample(ctx, st, s, &filter); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	res := r.finish(st)
	r.opts.logger.Info("parsed run finished", "run_id", st.id, "nodes", res.Tree.Len())
	return res, nil
}

func (r *Runner) parseSample(ctx context.Context, st *runState, s ResultSample, filter *ParseFilter) (retErr error) {
	reader, err := s.OpenResults(ctx)
	if err != nil {
		return fmt.Errorf("sample %s: open results: %w", s.Name(), err)
	}
	defer func() {
		if cerr := reader.Close(); cerr != nil && retErr == nil {
			retErr = fmt.Errorf("sample %s: close results: %w", s.Name(), cerr)
		}
	}()
	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		c, err := reader.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("sample %s: %w", s.Name(), err)
		}
		if err := r.fold(st, s, c); err != nil {
			return err
		}
		filter.resolve(c.Chain)
		if r.opts.writer != nil && filter.match(c.Chain, r.opts.confidence) {
			if err := r.opts.writer.WriteAssignment(c, r.opts.confidence); err != nil {
				return fmt.Errorf("write assignment %s: %w", c.SequenceID, err)
			}
		}
		n++
	}
	r.opts.logger.Debug("sample aggregated", "sample", s.Name(), "results", n)
	return nil
}
