// Package schema is the storage-layer surface used by migrations and model sync:
// a handle bound to one adapter connection plus a fluent table builder whose
// column types are rendered through the dialect's column type mapper.
package schema

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/leaporm/pkg/adapter"
	"github.com/leapstack-labs/leaporm/pkg/core"
	"github.com/leapstack-labs/leaporm/pkg/dialect"
)

// Schema is an explicit handle to one store connection.
type Schema struct {
	adapter adapter.Adapter
}

// New binds a schema handle to a connected adapter.
func New(a adapter.Adapter) *Schema {
	return &Schema{adapter: a}
}

// Adapter returns the underlying adapter.
func (s *Schema) Adapter() adapter.Adapter {
	return s.adapter
}

// Dialect returns the adapter's dialect.
func (s *Schema) Dialect() *dialect.Dialect {
	return s.adapter.Dialect()
}

// HasTable reports whether the table exists.
func (s *Schema) HasTable(ctx context.Context, name string) (bool, error) {
	ok, err := s.adapter.HasTable(ctx, name)
	if err != nil {
		return false, &core.StoreError{Op: "has table " + name, Err: err}
	}
	return ok, nil
}

// CreateTable creates a table described by build.
func (s *Schema) CreateTable(ctx context.Context, name string, build func(*Table)) error {
	t := NewTable(name)
	build(t)
	return s.Create(ctx, t)
}

// CreateTableIfNotExists is CreateTable guarded with IF NOT EXISTS, relying on
// the store's atomic conditional create.
func (s *Schema) CreateTableIfNotExists(ctx context.Context, name string, build func(*Table)) error {
	t := NewTable(name)
	build(t)
	t.ifNotExists = true
	return s.Create(ctx, t)
}

// CreateIfNotExists creates a prepared table definition guarded with IF NOT EXISTS.
func (s *Schema) CreateIfNotExists(ctx context.Context, t *Table) error {
	t.ifNotExists = true
	return s.Create(ctx, t)
}

// Create issues the statements for a prepared table definition.
func (s *Schema) Create(ctx context.Context, t *Table) error {
	stmts, err := t.CreateStatements(s.Dialect())
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := s.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// DropTableIfExists drops the table when present.
func (s *Schema) DropTableIfExists(ctx context.Context, name string) error {
	_, err := s.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", s.Dialect().QuoteIdentifierIfNeeded(name)))
	return err
}

// Exec runs a raw statement, wrapping failures in *core.StoreError.
func (s *Schema) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	n, err := s.adapter.Exec(ctx, sql, args...)
	if err != nil {
		return 0, &core.StoreError{Op: "exec", Statement: sql, Err: err}
	}
	return n, nil
}
