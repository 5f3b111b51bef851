// Package adapter provides database adapter interfaces and implementations
// for LeapORM's query executor and migration ledger.
//
// This package contains the public contract that all database adapters must implement.
// Concrete adapter implementations are in pkg/adapters/ subdirectories.
package adapter

import (
	"context"

	"github.com/leapstack-labs/leaporm/pkg/core"
	"github.com/leapstack-labs/leaporm/pkg/dialect"
)

// Type aliases so adapter implementations only import this package.
type (
	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Rows is an alias for core.Rows.
	Rows = core.Rows
)

// Adapter defines the interface that all database adapters must implement.
// It provides methods for connecting to databases, executing SQL, and
// checking for tables.
type Adapter interface {
	// Connect establishes a connection to the database using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error

	// Exec executes a statement that doesn't return rows (e.g., INSERT, UPDATE, CREATE)
	// and returns the number of rows affected when the driver reports it.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)

	// Query executes a statement that returns rows.
	Query(ctx context.Context, sql string, args ...any) (*Rows, error)

	// HasTable reports whether the named table exists.
	HasTable(ctx context.Context, table string) (bool, error)

	// Dialect returns the SQL dialect used to build statements for this adapter.
	Dialect() *dialect.Dialect
}
