package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"multicompare/internal/artifact"
	"multicompare/internal/blob"
	"multicompare/internal/core"
	"multicompare/internal/report"
	"multicompare/internal/resultio"
	"multicompare/pkg/domain"
)

type parseOptions struct {
	conf        float64
	format      string
	assignOut   string
	hierOut     string
	printRank   string
	taxonFilter []string
	taxonomy    string
	dupCounts   []string
	traceOut    string
	trace       string
	persist     bool
	publish     bool
	metricsAddr string
}

func newParseCmd(a *app) *cobra.Command {
	opts := &parseOptions{}
	cmd := &cobra.Command{
		Use:   "parse [flags] <result-file | name=result-file>...",
		Short: "Aggregate pre-computed classification result files, one sample per file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("conf") {
				a.cfg.Confidence = opts.conf
			}
			if flags.Changed("format") {
				a.cfg.Format = opts.format
			}
			if flags.Changed("metrics-addr") {
				a.cfg.Metrics.Addr = opts.metricsAddr
			}
			if flags.Changed("trace") {
				a.cfg.Tracing.Exporter = opts.trace
			} else if opts.traceOut != "" && a.cfg.Tracing.Exporter == "none" {
				a.cfg.Tracing.Exporter = "json"
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return a.runParse(cmd.Context(), opts, args)
		},
	}
	f := cmd.Flags()
	f.Float64Var(&opts.conf, "conf", domain.DefaultConfidence, "assignment confidence cutoff in [0,1]")
	f.StringVarP(&opts.format, "format", "f", "allrank", "assignment output format: allrank|fixrank|filterbyconf")
	f.StringVarP(&opts.assignOut, "assign-out", "o", "", "assignment detail output file ('-' for stdout); omitted disables it")
	f.StringVar(&opts.hierOut, "hier-out", "-", "hierarchy count table output file ('-' for stdout)")
	f.StringVar(&opts.printRank, "print-rank", "", "rank whose confidence gates assignment output (default: last rank of the first result)")
	f.StringArrayVar(&opts.taxonFilter, "taxon-filter", nil, "only print assignments naming this taxon (repeatable)")
	f.StringVarP(&opts.taxonomy, "taxonomy", "t", "", "training taxonomy file (taxid*name*parentid*depth*rank)")
	f.StringArrayVarP(&opts.dupCounts, "dup-counts", "d", nil, "duplicate counts for a sample as name=path (repeatable)")
	f.StringVar(&opts.traceOut, "trace-out", "", "write json or stdout exporter spans to this file (default stderr); implies --trace json")
	f.StringVar(&opts.trace, "trace", "", "span exporter: none|json|stdout|otlp (overrides config)")
	f.BoolVar(&opts.persist, "persist", false, "save the run to the configured run store")
	f.BoolVar(&opts.publish, "publish", false, "publish run artifacts to the configured blob store")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve /metrics on this address during the run")
	return cmd
}

type sampleArg struct {
	name, path string
}

func parseSampleArgs(args []string) ([]sampleArg, error) {
	out := make([]sampleArg, 0, len(args))
	for _, arg := range args {
		name, path, ok := strings.Cut(arg, "=")
		if !ok {
			path = arg
			base := filepath.Base(arg)
			name = strings.TrimSuffix(base, filepath.Ext(base))
		}
		if name == "" || path == "" {
			return nil, fmt.Errorf("invalid sample argument %q", arg)
		}
		out = append(out, sampleArg{name: name, path: path})
	}
	return out, nil
}

func parseDupArgs(args []string) (map[string]map[string]int, error) {
	out := make(map[string]map[string]int, len(args))
	for _, arg := range args {
		name, path, ok := strings.Cut(arg, "=")
		if !ok || name == "" || path == "" {
			return nil, fmt.Errorf("--dup-counts expects name=path, got %q", arg)
		}
		counts, err := resultio.OpenDupCounts(path)
		if err != nil {
			return nil, err
		}
		out[name] = counts
	}
	return out, nil
}

// openOutput returns a writer for path; "-" is stdout.
func (a *app) openOutput(path string) (io.Writer, func() error, error) {
	if path == "-" {
		return a.stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path) // #nosec G304 -- operator-supplied output path
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func (a *app) runParse(ctx context.Context, opts *parseOptions, args []string) (err error) {
	sampleArgs, err := parseSampleArgs(args)
	if err != nil {
		return err
	}
	dups, err := parseDupArgs(opts.dupCounts)
	if err != nil {
		return err
	}
	var index *resultio.TaxonomyIndex
	root := domain.DefaultRoot
	if opts.taxonomy != "" {
		if index, err = resultio.OpenTaxonomy(opts.taxonomy); err != nil {
			return err
		}
		root = index.Root()
		a.logger.Debug("loaded taxonomy", "path", opts.taxonomy, "taxa", index.Len())
	}
	samples := make([]core.ResultSample, len(sampleArgs))
	for i, s := range sampleArgs {
		samples[i] = resultio.NewFileSample(s.name, s.path, dups[s.name], index)
	}

	metrics, err := newMetrics(a.cfg.Metrics)
	if err != nil {
		return err
	}
	if err := metrics.serve(a.cfg.Metrics.Addr, a.logger); err != nil {
		return err
	}
	defer metrics.shutdown()

	runnerOpts := []core.Option{
		core.WithLogger(a.logger),
		core.WithMetricsRecorder(metrics.recorder),
		core.WithConfidence(a.cfg.Confidence),
		core.WithRoot(root),
	}
	traceW := a.stderr
	if opts.traceOut != "" {
		w, closeTrace, err := a.openOutput(opts.traceOut)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := closeTrace(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		traceW = w
	}
	tracing, err := newTracing(ctx, a.cfg.Tracing, traceW)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := tracing.shutdown(context.WithoutCancel(ctx)); cerr != nil && err == nil {
			err = fmt.Errorf("flush traces: %w", cerr)
		}
	}()
	if tracing.tracer != nil {
		runnerOpts = append(runnerOpts, core.WithTracer(tracing.tracer))
	}
	if opts.assignOut != "" {
		format, err := report.ParseFormat(a.cfg.Format)
		if err != nil {
			return err
		}
		w, closeAssign, err := a.openOutput(opts.assignOut)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := closeAssign(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		runnerOpts = append(runnerOpts, core.WithAssignmentWriter(report.NewAssignmentWriter(w, format)))
	}

	filter := core.ParseFilter{PrintRank: opts.printRank}
	if len(opts.taxonFilter) > 0 {
		filter.TaxonFilter = make(map[string]struct{}, len(opts.taxonFilter))
		for _, name := range opts.taxonFilter {
			filter.TaxonFilter[name] = struct{}{}
		}
	}
	res, err := core.NewRunner(runnerOpts...).RunParsed(ctx, samples, filter)
	if err != nil {
		return err
	}
	a.logger.Info("run complete",
		"run", res.ID,
		"samples", len(res.Samples),
		"nodes", res.Tree.Len(),
		"bad_sequences", len(res.BadSequences))

	if opts.hierOut != "" {
		w, closeHier, err := a.openOutput(opts.hierOut)
		if err != nil {
			return err
		}
		werr := report.WriteHierarchy(w, res.Tree, res.SampleNames())
		if cerr := closeHier(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			return werr
		}
	}
	if opts.persist {
		if err := a.persist(ctx, res); err != nil {
			return err
		}
	}
	if opts.publish {
		if err := a.publish(ctx, res); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) persist(ctx context.Context, res core.Result) (err error) {
	store, err := core.OpenRunStore(ctx, a.cfg.Storage)
	if err != nil {
		return fmt.Errorf("open run store: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := store.SaveRun(ctx, res.Record()); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	a.logger.Info("run saved", "run", res.ID, "driver", a.cfg.Storage.Driver)
	return nil
}

func (a *app) publish(ctx context.Context, res core.Result) (err error) {
	store, err := blob.Open(ctx, a.cfg.Blob)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	defer func() {
		if cerr := blob.Close(store); cerr != nil && err == nil {
			err = cerr
		}
	}()
	infos, err := artifact.NewPublisher(store, a.logger).Publish(ctx, res)
	if err != nil {
		return err
	}
	for _, info := range infos {
		a.logger.Debug("artifact", "key", info.Key, "size", info.Size, "url", info.URL)
	}
	return nil
}
