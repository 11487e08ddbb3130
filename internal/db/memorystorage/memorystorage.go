// Package memorystorage is the volatile default backend: the jsondb
// maps without any file behind them.
package memorystorage

import (
	"context"

	"github.com/patric-chuzhbe/tinyapp/internal/db/jsondb"
)

// MemoryStorage holds all state for the life of the process only.
type MemoryStorage struct {
	*jsondb.JSONDB
}

// New returns an empty in-memory backend.
func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		JSONDB: jsondb.NewVolatile(),
	}, nil
}

// Close is a no-op: there is nothing to flush.
func (theStorage *MemoryStorage) Close() error {
	return nil
}

// Ping always succeeds.
func (theStorage *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}
