package core

import (
	"context"
	"fmt"

	"multicompare/internal/config"
	"multicompare/internal/infra/persistence/badger"
	"multicompare/internal/infra/persistence/memory"
	"multicompare/internal/infra/persistence/postgres"
	"multicompare/internal/infra/persistence/sqlite"
	"multicompare/pkg/domain"
)

// StorageDriver identifies a concrete run store implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
	StorageBadger   StorageDriver = "badger"   // embedded badger directory
)

// OpenRunStore selects a run store backend from configuration. An empty
// driver defaults to sqlite.
func OpenRunStore(ctx context.Context, cfg config.Storage) (domain.RunStore, error) {
	driver := StorageDriver(cfg.Driver)
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		return sqlite.NewStore(cfg.SQLitePath)
	case StoragePostgres:
		return postgres.NewStore(ctx, cfg.PostgresDSN)
	case StorageBadger:
		return badger.NewStore(badger.Config{Path: cfg.BadgerPath, SyncWrites: true})
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
