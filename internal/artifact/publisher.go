// Package artifact publishes the files of a finished run to blob storage.
package artifact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"

	"multicompare/internal/blob"
	"multicompare/internal/core"
	"multicompare/internal/report"
	"multicompare/pkg/domain"
)

// Artifact names under runs/<id>/.
const (
	HierarchyFile    = "hierarchy.tsv"
	RankTallyFile    = "rank_tally.tsv"
	SampleCountsFile = "sample_rank_counts.tsv"
	BadSequencesFile = "bad_sequences.txt"
	RecordFile       = "run.json"
)

const runsPrefix = "runs"

// Publisher writes run artifacts to a blob store.
type Publisher struct {
	store  blob.Store
	logger core.Logger
}

// NewPublisher returns a publisher over store. A nil logger discards output.
func NewPublisher(store blob.Store, logger core.Logger) *Publisher {
	if logger == nil {
		logger = discard{}
	}
	return &Publisher{store: store, logger: logger}
}

// Key returns the blob key of an artifact of run id.
func Key(id, name string) string { return path.Join(runsPrefix, id, name) }

type renderFunc func(io.Writer) error

// Publish uploads every artifact of res and returns their blob infos. URLs
// are presigned when the driver supports it. Publishing the same run twice
// fails with blob.ErrExists.
func (p *Publisher) Publish(ctx context.Context, res core.Result) ([]blob.Info, error) {
	if res.ID == "" {
		return nil, fmt.Errorf("publish: run has no id")
	}
	files := []struct {
		name        string
		contentType string
		render      renderFunc
	}{
		{HierarchyFile, "text/tab-separated-values", func(w io.Writer) error {
			return report.WriteHierarchy(w, res.Tree, res.SampleNames())
		}},
		{RankTallyFile, "text/tab-separated-values", func(w io.Writer) error {
			return report.WriteRankTally(w, res.RankTally)
		}},
		{SampleCountsFile, "text/tab-separated-values", func(w io.Writer) error {
			return report.WriteSampleRankCounts(w, res.Samples)
		}},
		{BadSequencesFile, "text/plain", func(w io.Writer) error {
			return report.WriteBadSequences(w, res.BadSequences)
		}},
		{RecordFile, "application/json", func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(res.Record())
		}},
	}
	meta := map[string]string{"run-id": res.ID}
	infos := make([]blob.Info, 0, len(files))
	for _, f := range files {
		var buf bytes.Buffer
		if err := f.render(&buf); err != nil {
			return infos, fmt.Errorf("render %s: %w", f.name, err)
		}
		key := Key(res.ID, f.name)
		info, err := p.store.Put(ctx, key, &buf, blob.PutOptions{ContentType: f.contentType, Metadata: meta})
		if err != nil {
			return infos, fmt.Errorf("publish %s: %w", key, err)
		}
		url, err := p.store.PresignURL(ctx, key, blob.SignedURLOptions{})
		switch {
		case err == nil:
			info.URL = url
		case !errors.Is(err, blob.ErrUnsupported):
			p.logger.Warn("presign artifact failed", "key", key, "error", err)
		}
		infos = append(infos, info)
	}
	p.logger.Info("published run artifacts", "run", res.ID, "driver", string(p.store.Driver()), "files", len(infos))
	return infos, nil
}

// Load reads the run record published for id.
func (p *Publisher) Load(ctx context.Context, id string) (domain.RunRecord, error) {
	key := Key(id, RecordFile)
	_, rc, err := p.store.Get(ctx, key)
	if errors.Is(err, blob.ErrNotFound) {
		return domain.RunRecord{}, domain.NotFound(id)
	}
	if err != nil {
		return domain.RunRecord{}, fmt.Errorf("load %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()
	var rec domain.RunRecord
	if err := json.NewDecoder(rc).Decode(&rec); err != nil {
		return domain.RunRecord{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return rec, nil
}

// List returns the artifacts published for id.
func (p *Publisher) List(ctx context.Context, id string) ([]blob.Info, error) {
	return p.store.List(ctx, path.Join(runsPrefix, id)+"/")
}

type discard struct{}

func (discard) Debug(string, ...any) {}
func (discard) Info(string, ...any)  {}
func (discard) Warn(string, ...any)  {}
func (discard) Error(string, ...any) {}
