// Package badger implements domain.RunStore on an embedded BadgerDB.
//
// Each run is one key, run/<id>, holding the JSON-encoded record.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"

	"multicompare/pkg/domain"
)

var _ domain.RunStore = (*Store)(nil)

const runPrefix = "run/"

// Config configures a Badger store.
type Config struct {
	// Path is the database directory; ignored when InMemory is set.
	Path string
	// InMemory keeps all data in RAM (tests).
	InMemory bool
	// SyncWrites fsyncs every commit.
	SyncWrites bool
}

// Store persists runs in BadgerDB.
type Store struct {
	db *badger.DB
}

// NewStore opens the database described by cfg.
func NewStore(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badger path is required for persistent database")
	}
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Store{db: db}, nil
}

func runKey(id string) []byte { return []byte(runPrefix + id) }

// SaveRun inserts or replaces a run.
func (s *Store) SaveRun(_ context.Context, run domain.RunRecord) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", run.ID, err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(runKey(run.ID), payload)
	}); err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun returns a run by id.
func (s *Store) GetRun(_ context.Context, id string) (domain.RunRecord, error) {
	var run domain.RunRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(runKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &run)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.RunRecord{}, domain.NotFound(id)
	}
	if err != nil {
		return domain.RunRecord{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns summaries of all runs, oldest first.
func (s *Store) ListRuns(_ context.Context) ([]domain.RunSummary, error) {
	var out []domain.RunSummary
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(runPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var run domain.RunRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &run)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			out = append(out, run.Summary())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	domain.SortSummaries(out)
	return out, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }
