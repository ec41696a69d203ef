// Package db defines the low level database contract used by the
// schema and population layers.
package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Operator manages the PostgreSQL connection shared by the pipeline.
type Operator interface {
	// Connect establishes the connection pool and verifies it
	// with a ping.
	Connect(ctx context.Context) error

	// Pool returns the active connection pool. Connect must have
	// succeeded first.
	Pool() *pgxpool.Pool

	// TableExists reports whether a table is present in the
	// public schema.
	TableExists(ctx context.Context, table string) (bool, error)

	// HasTables reports whether the database contains any tables
	// at all. Used to distinguish a fresh database from one that
	// needs migration.
	HasTables(ctx context.Context) (bool, error)

	// Close releases the pool.
	Close()
}
