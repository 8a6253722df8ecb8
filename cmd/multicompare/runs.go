package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"multicompare/internal/artifact"
	"multicompare/internal/blob"
	"multicompare/internal/core"
	"multicompare/internal/report"
	"multicompare/pkg/domain"
)

func newRunsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect saved runs",
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List runs in the configured run store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withRunStore(cmd.Context(), func(store domain.RunStore) error {
				summaries, err := store.ListRuns(cmd.Context())
				if err != nil {
					return err
				}
				return writeSummaries(a.stdout, summaries)
			})
		},
	}
	var fromBlob bool
	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the summary and hierarchy table of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if fromBlob {
				store, err := blob.Open(ctx, a.cfg.Blob)
				if err != nil {
					return fmt.Errorf("open blob store: %w", err)
				}
				defer func() { _ = blob.Close(store) }()
				rec, err := artifact.NewPublisher(store, a.logger).Load(ctx, args[0])
				if err != nil {
					return err
				}
				return showRecord(a.stdout, rec)
			}
			return a.withRunStore(ctx, func(store domain.RunStore) error {
				rec, err := store.GetRun(ctx, args[0])
				if err != nil {
					return err
				}
				return showRecord(a.stdout, rec)
			})
		},
	}
	show.Flags().BoolVar(&fromBlob, "from-blob", false, "read the published run.json from the blob store instead")
	cmd.AddCommand(list, show)
	return cmd
}

func (a *app) withRunStore(ctx context.Context, fn func(domain.RunStore) error) (err error) {
	store, err := core.OpenRunStore(ctx, a.cfg.Storage)
	if err != nil {
		return fmt.Errorf("open run store: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(store)
}

func writeSummaries(w io.Writer, summaries []domain.RunSummary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tSTARTED\tCONFIDENCE\tSAMPLES\tNODES\tBAD")
	for _, s := range summaries {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%g\t%s\t%d\t%d\n",
			s.ID, s.StartedAt.UTC().Format(time.RFC3339), s.Confidence,
			strings.Join(s.Samples, ","), s.NodeCount, s.BadSequences)
	}
	return tw.Flush()
}

func showRecord(w io.Writer, rec domain.RunRecord) error {
	res, err := core.ResultFromRecord(rec)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "run:           %s\n", res.ID)
	_, _ = fmt.Fprintf(w, "started:       %s\n", res.StartedAt.UTC().Format(time.RFC3339))
	_, _ = fmt.Fprintf(w, "finished:      %s\n", res.FinishedAt.UTC().Format(time.RFC3339))
	_, _ = fmt.Fprintf(w, "confidence:    %g\n", res.Confidence)
	_, _ = fmt.Fprintf(w, "bad sequences: %d\n\n", len(res.BadSequences))
	if err := report.WriteSampleRankCounts(w, res.Samples); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(w)
	return report.WriteHierarchy(w, res.Tree, res.SampleNames())
}
