package integration

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"multicompare/internal/artifact"
	"multicompare/internal/blob"
	"multicompare/internal/core"
	"multicompare/internal/infra/persistence/badger"
	"multicompare/internal/infra/persistence/memory"
	"multicompare/internal/infra/persistence/sqlite"
	"multicompare/internal/report"
	"multicompare/internal/resultio"
	"multicompare/pkg/domain"
)

const (
	soilResults = "s1\t\tRoot\trootrank\t1.0\tBacteria\tdomain\t1.0\tFirmicutes\tphylum\t0.95\tBacilli\tclass\t0.6\n" +
		"s2\t-\tRoot\trootrank\t1.0\tBacteria\tdomain\t0.99\tProteobacteria\tphylum\t0.9\n" +
		"s3\t\tRoot\trootrank\t1.0\tArchaea\tdomain\t0.2\n"
	waterResults = "w1\t\tRoot\trootrank\t1.0\tBacteria\tdomain\t1.0\tProteobacteria\tphylum\t0.85\n"
)

// TestPipeline folds result files through the runner, persists the run in
// each in-process run store, publishes artifacts to each blob driver and
// checks that both copies rebuild the same hierarchy report.
func TestPipeline(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		return p
	}
	soil := write("soil.txt", soilResults)
	water := write("water.txt", waterResults)
	dups, err := resultio.ReadDupCounts(strings.NewReader("s1 4\ns2 2\n"))
	if err != nil {
		t.Fatalf("dups: %v", err)
	}

	stores := []struct {
		name string
		open func(t *testing.T) domain.RunStore
	}{
		{"memory", func(*testing.T) domain.RunStore { return memory.NewStore() }},
		{"sqlite", func(t *testing.T) domain.RunStore {
			s, err := sqlite.NewStore(filepath.Join(t.TempDir(), "runs.db"))
			if err != nil {
				t.Fatalf("sqlite: %v", err)
			}
			return s
		}},
		{"badger", func(*testing.T) domain.RunStore {
			s, err := badger.NewStore(badger.Config{InMemory: true})
			if err != nil {
				t.Fatalf("badger: %v", err)
			}
			return s
		}},
	}
	blobs := []struct {
		name string
		open func(t *testing.T) blob.Store
	}{
		{"memory", func(*testing.T) blob.Store { return blob.NewMemory() }},
		{"fs", func(t *testing.T) blob.Store {
			s, err := blob.NewFilesystem(t.TempDir())
			if err != nil {
				t.Fatalf("fs: %v", err)
			}
			return s
		}},
		{"mock-s3", func(*testing.T) blob.Store { return blob.NewMockS3ForTests() }},
	}

	for _, sv := range stores {
		for _, bv := range blobs {
			t.Run(sv.name+"/"+bv.name, func(t *testing.T) {
				var assignments bytes.Buffer
				runner := core.NewRunner(
					core.WithAssignmentWriter(report.NewAssignmentWriter(&assignments, report.FormatAllRank)),
					core.WithMetricsRecorder(core.NewExpvarMetricsRecorder("")),
				)
				samples := []core.ResultSample{
					resultio.NewFileSample("soil", soil, dups, nil),
					resultio.NewFileSample("water", water, nil, nil),
				}
				res, err := runner.RunParsed(ctx, samples, core.ParseFilter{PrintRank: "domain"})
				if err != nil {
					t.Fatalf("run parsed: %v", err)
				}
				if got := strings.Count(assignments.String(), "\n"); got != 3 {
					t.Fatalf("expected 3 assignment lines, got %d:\n%s", got, assignments.String())
				}

				var want bytes.Buffer
				if err := report.WriteHierarchy(&want, res.Tree, res.SampleNames()); err != nil {
					t.Fatalf("hierarchy: %v", err)
				}

				store := sv.open(t)
				defer func() { _ = store.Close() }()
				if err := store.SaveRun(ctx, res.Record()); err != nil {
					t.Fatalf("save: %v", err)
				}
				stored, err := store.GetRun(ctx, res.ID)
				if err != nil {
					t.Fatalf("get: %v", err)
				}

				pub := artifact.NewPublisher(bv.open(t), nil)
				infos, err := pub.Publish(ctx, res)
				if err != nil {
					t.Fatalf("publish: %v", err)
				}
				if len(infos) != 5 {
					t.Fatalf("expected 5 artifacts, got %d", len(infos))
				}
				published, err := pub.Load(ctx, res.ID)
				if err != nil {
					t.Fatalf("load: %v", err)
				}
				if diff := cmp.Diff(stored, published); diff != "" {
					t.Fatalf("stored and published records differ (-store +blob):\n%s", diff)
				}

				restored, err := core.ResultFromRecord(stored)
				if err != nil {
					t.Fatalf("restore: %v", err)
				}
				var got bytes.Buffer
				if err := report.WriteHierarchy(&got, restored.Tree, restored.SampleNames()); err != nil {
					t.Fatalf("hierarchy: %v", err)
				}
				if diff := cmp.Diff(want.String(), got.String()); diff != "" {
					t.Fatalf("hierarchy differs after restore (-want +got):\n%s", diff)
				}
				if !strings.Contains(got.String(), "\tBacteria\tdomain\t6\t1\n") {
					t.Fatalf("expected Bacteria row with soil 6 water 1:\n%s", got.String())
				}
			})
		}
	}
}
