package orm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leaporm/pkg/adapter"
	"github.com/leapstack-labs/leaporm/pkg/core"
	"github.com/leapstack-labs/leaporm/pkg/dialect"
	"github.com/leapstack-labs/leaporm/pkg/schema"
)

// ErrDetached is returned by terminals of a query created with NewQuery.
var ErrDetached = errors.New("query is not bound to a database")

// Row is one result row keyed by model field key. Columns that do not map
// to a field (aggregates, raw names) keep their storage name.
type Row map[string]any

// DB binds models to a connected adapter and executes terminal operations.
// Terminals block until the store responds; run them in separate goroutines
// for concurrency. DB holds no per-query state.
type DB struct {
	adapter adapter.Adapter
	models  *Registry
	logger  *slog.Logger
}

// NewDB returns a DB over a connected adapter. models may be nil.
// If logger is nil, a discard logger is used.
func NewDB(a adapter.Adapter, models *Registry, logger *slog.Logger) *DB {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if models == nil {
		models, _ = NewRegistry()
	}
	return &DB{adapter: a, models: models, logger: logger}
}

// Adapter returns the underlying adapter.
func (db *DB) Adapter() adapter.Adapter { return db.adapter }

// Dialect returns the adapter's dialect.
func (db *DB) Dialect() *dialect.Dialect { return db.adapter.Dialect() }

// Models returns the model registry.
func (db *DB) Models() *Registry { return db.models }

// Query starts a query on m.
func (db *DB) Query(m *Model) *Query {
	return &Query{model: m, db: db}
}

// Model starts a query on a registered model, looked up by model or table name.
func (db *DB) Model(name string) (*Query, error) {
	m, ok := db.models.Get(name)
	if !ok {
		return nil, fmt.Errorf("model %q is not registered", name)
	}
	return db.Query(m), nil
}

// Insert validates values and inserts one row.
func (db *DB) Insert(ctx context.Context, m *Model, values map[string]any) (int64, error) {
	clean, err := m.Validate(values, true)
	if err != nil {
		return 0, err
	}
	stmt, err := buildInsert(db.Dialect(), m, clean)
	if err != nil {
		return 0, err
	}
	return db.exec(ctx, m, "insert", stmt)
}

// Sync creates the tables of all registered models that do not exist yet and
// returns the names of the tables it created.
func (db *DB) Sync(ctx context.Context) ([]string, error) {
	s := schema.New(db.adapter)
	var created []string
	for _, m := range db.models.Models() {
		exists, err := s.HasTable(ctx, m.table)
		if err != nil {
			return created, err
		}
		if exists {
			continue
		}
		if err := s.CreateIfNotExists(ctx, m.Table()); err != nil {
			return created, fmt.Errorf("failed to create table for model %s: %w", m.name, err)
		}
		db.logger.Info("created table", slog.String("model", m.name), slog.String("table", m.table))
		created = append(created, m.table)
	}
	return created, nil
}

func (db *DB) exec(ctx context.Context, m *Model, op string, stmt Statement) (int64, error) {
	db.logger.Debug("executing statement",
		slog.String("model", m.name), slog.String("op", op), slog.String("sql", stmt.SQL))

	n, err := db.adapter.Exec(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return 0, &core.StoreError{Op: op, Statement: stmt.SQL, Err: err}
	}
	return n, nil
}

func (db *DB) fetch(ctx context.Context, m *Model, op string, stmt Statement) ([]Row, error) {
	db.logger.Debug("executing query",
		slog.String("model", m.name), slog.String("op", op), slog.String("sql", stmt.SQL))

	rows, err := db.adapter.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, &core.StoreError{Op: op, Statement: stmt.SQL, Err: err}
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &core.StoreError{Op: op, Statement: stmt.SQL, Err: err}
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &core.StoreError{Op: op, Statement: stmt.SQL, Err: err}
		}
		out = append(out, decodeRow(m, cols, values))
	}
	if err := rows.Err(); err != nil {
		return nil, &core.StoreError{Op: op, Statement: stmt.SQL, Err: err}
	}
	return out, nil
}

func decodeRow(m *Model, cols []string, values []any) Row {
	row := make(Row, len(cols))
	for i, name := range cols {
		v := values[i]
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		key := name
		if field, ok := m.FieldFor(name); ok {
			key = field
			// drivers without a native boolean hand back integers
			if m.columns[field].Type == core.TypeBool {
				if n, ok := v.(int64); ok {
					v = n != 0
				}
			}
		}
		row[key] = v
	}
	return row
}

func (q *Query) ready() error {
	if q.err != nil {
		return q.err
	}
	if q.db == nil {
		return ErrDetached
	}
	return nil
}

func (q *Query) storeDialect() *dialect.Dialect {
	if q.db == nil {
		return nil
	}
	return q.db.Dialect()
}

// ToSQL renders the SELECT the query would issue, without I/O.
func (q *Query) ToSQL() (Statement, error) {
	if q.err != nil {
		return Statement{}, q.err
	}
	return buildSelect(q.storeDialect(), q.model, q.acc.entries)
}

// All returns every matching row in store order.
func (q *Query) All(ctx context.Context) ([]Row, error) {
	if err := q.ready(); err != nil {
		return nil, err
	}
	stmt, err := buildSelect(q.storeDialect(), q.model, q.acc.entries)
	if err != nil {
		return nil, err
	}
	return q.db.fetch(ctx, q.model, "all", stmt)
}

// First returns the first matching row; the bool is false when none matched.
func (q *Query) First(ctx context.Context) (Row, bool, error) {
	if err := q.ready(); err != nil {
		return nil, false, err
	}
	stmt, err := buildFirst(q.storeDialect(), q.model, q.acc.entries)
	if err != nil {
		return nil, false, err
	}
	return q.one(ctx, "first", stmt)
}

// Find returns the matching row whose primary key equals id.
func (q *Query) Find(ctx context.Context, id any) (Row, bool, error) {
	if err := q.ready(); err != nil {
		return nil, false, err
	}
	stmt, err := buildFind(q.storeDialect(), q.model, q.acc.entries, id)
	if err != nil {
		return nil, false, err
	}
	return q.one(ctx, "find", stmt)
}

func (q *Query) one(ctx context.Context, op string, stmt Statement) (Row, bool, error) {
	rows, err := q.db.fetch(ctx, q.model, op, stmt)
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0], true, nil
}

// Count returns the number of matching rows.
func (q *Query) Count(ctx context.Context) (int64, error) {
	if err := q.ready(); err != nil {
		return 0, err
	}
	stmt, err := buildCount(q.storeDialect(), q.model, q.acc.entries)
	if err != nil {
		return 0, err
	}

	q.db.logger.Debug("executing query",
		slog.String("model", q.model.name), slog.String("op", "count"), slog.String("sql", stmt.SQL))

	rows, err := q.db.adapter.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return 0, &core.StoreError{Op: "count", Statement: stmt.SQL, Err: err}
	}
	defer func() { _ = rows.Close() }()

	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, &core.StoreError{Op: "count", Statement: stmt.SQL, Err: err}
		}
	}
	if err := rows.Err(); err != nil {
		return 0, &core.StoreError{Op: "count", Statement: stmt.SQL, Err: err}
	}
	return n, nil
}

// Update validates values and applies them to every matching row.
// Only where-family operations may be recorded on the query.
func (q *Query) Update(ctx context.Context, values map[string]any) (int64, error) {
	if err := q.ready(); err != nil {
		return 0, err
	}
	clean, err := q.model.Validate(values, false)
	if err != nil {
		return 0, err
	}
	stmt, err := buildUpdate(q.storeDialect(), q.model, q.acc.entries, clean)
	if err != nil {
		return 0, err
	}
	return q.db.exec(ctx, q.model, "update", stmt)
}

// Delete removes every matching row.
// Only where-family operations may be recorded on the query.
func (q *Query) Delete(ctx context.Context) (int64, error) {
	if err := q.ready(); err != nil {
		return 0, err
	}
	stmt, err := buildDelete(q.storeDialect(), q.model, q.acc.entries)
	if err != nil {
		return 0, err
	}
	return q.db.exec(ctx, q.model, "delete", stmt)
}
