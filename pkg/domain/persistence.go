package domain

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrRunNotFound is returned by RunStore.GetRun for unknown run ids.
var ErrRunNotFound = errors.New("run not found")

// RunStore is a minimal abstraction over durable backends holding run records.
type RunStore interface {
	// SaveRun inserts or replaces the record with the same id.
	SaveRun(ctx context.Context, run RunRecord) error
	// GetRun returns the record or an error wrapping ErrRunNotFound.
	GetRun(ctx context.Context, id string) (RunRecord, error)
	// ListRuns returns summaries ordered by start time, oldest first.
	ListRuns(ctx context.Context) ([]RunSummary, error)
	Close() error
}

// NotFound wraps ErrRunNotFound with the missing id.
func NotFound(id string) error {
	return fmt.Errorf("%w: %s", ErrRunNotFound, id)
}

// SortSummaries orders summaries by start time, breaking ties by id.
func SortSummaries(out []RunSummary) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
}
