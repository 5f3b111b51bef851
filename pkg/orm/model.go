// Package orm is the query composition and scope chaining engine.
//
// A Model declares columns and named scopes. A Query bound to a model records
// every chained operation as a core.Snapshot; scopes are resolved at runtime by
// name through Query.Invoke and fold their own snapshots into the caller's
// sequence. Nothing touches the store until a terminal (All, First, Find,
// Count, Update, Delete) replays the snapshots into a single statement.
package orm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/leaporm/pkg/core"
	"github.com/leapstack-labs/leaporm/pkg/schema"
)

// ScopeFunc builds a reusable filter on a fresh nested query.
// Returning an error aborts the invoking chain.
type ScopeFunc func(q *Query, args ...any) error

// Model is an immutable description of one table: its columns and scopes.
type Model struct {
	name       string
	table      string
	primaryKey string
	columns    map[string]core.Column
	scopes     map[string]ScopeFunc

	// storage column name -> field key
	fields map[string]string
}

// Name returns the model name, e.g. "Post".
func (m *Model) Name() string { return m.name }

// TableName returns the table the model is stored in.
func (m *Model) TableName() string { return m.table }

// PrimaryKey returns the field key of the primary key.
func (m *Model) PrimaryKey() string { return m.primaryKey }

// HasScope reports whether name is a declared scope of this model.
func (m *Model) HasScope(name string) bool {
	_, ok := m.scopes[name]
	return ok
}

// Scopes returns a copy of the scope mapping.
func (m *Model) Scopes() map[string]ScopeFunc {
	out := make(map[string]ScopeFunc, len(m.scopes))
	for k, v := range m.scopes {
		out[k] = v
	}
	return out
}

// ScopeNames returns the declared scope names, sorted.
func (m *Model) ScopeNames() []string {
	return sortedKeys(m.scopes)
}

// Columns returns a copy of the field key -> column mapping.
func (m *Model) Columns() map[string]core.Column {
	out := make(map[string]core.Column, len(m.columns))
	for k, v := range m.columns {
		out[k] = v
	}
	return out
}

// ColumnKeys returns the field keys, sorted.
func (m *Model) ColumnKeys() []string {
	return sortedKeys(m.columns)
}

// Column returns the descriptor for a field key.
func (m *Model) Column(field string) (core.Column, bool) {
	c, ok := m.columns[field]
	return c, ok
}

// ColumnName maps a field key to its storage column name.
// A storage column name is accepted as well.
func (m *Model) ColumnName(field string) (string, bool) {
	if c, ok := m.columns[field]; ok {
		return c.NameFor(field), true
	}
	if _, ok := m.fields[field]; ok {
		return field, true
	}
	return "", false
}

// FieldFor maps a storage column name back to its field key.
func (m *Model) FieldFor(column string) (string, bool) {
	f, ok := m.fields[column]
	return f, ok
}

// Table returns the table definition used to create the model's table.
func (m *Model) Table() *schema.Table {
	return schema.FromColumns(m.table, m.primaryKey, m.columns)
}

func (m *Model) String() string {
	return fmt.Sprintf("%s(%s)", m.name, m.table)
}

// ModelBuilder collects a model definition. Use Define to start one.
type ModelBuilder struct {
	model *Model
	err   error
}

// Define starts a model definition. The table name defaults to the
// pluralized snake_case model name and the primary key to "id".
func Define(name string) *ModelBuilder {
	return &ModelBuilder{
		model: &Model{
			name:       name,
			table:      Pluralize(core.SnakeCase(name)),
			primaryKey: "id",
			columns:    make(map[string]core.Column),
			scopes:     make(map[string]ScopeFunc),
		},
	}
}

// Table overrides the table name.
func (b *ModelBuilder) Table(name string) *ModelBuilder {
	b.model.table = name
	return b
}

// PrimaryKey overrides the primary key field.
func (b *ModelBuilder) PrimaryKey(field string) *ModelBuilder {
	b.model.primaryKey = field
	return b
}

// Column declares a field.
func (b *ModelBuilder) Column(field string, col core.Column) *ModelBuilder {
	if _, dup := b.model.columns[field]; dup && b.err == nil {
		b.err = fmt.Errorf("model %s: duplicate column %q", b.model.name, field)
	}
	col.Values = append([]string(nil), col.Values...)
	b.model.columns[field] = col
	return b
}

// Scope declares a named scope.
func (b *ModelBuilder) Scope(name string, fn ScopeFunc) *ModelBuilder {
	switch {
	case b.err != nil:
	case name == "":
		b.err = fmt.Errorf("model %s: scope name must not be empty", b.model.name)
	case fn == nil:
		b.err = fmt.Errorf("model %s: scope %q has no function", b.model.name, name)
	case b.model.HasScope(name):
		b.err = fmt.Errorf("model %s: duplicate scope %q", b.model.name, name)
	}
	b.model.scopes[name] = fn
	return b
}

// Build validates and returns the model. The builder must not be reused.
func (b *ModelBuilder) Build() (*Model, error) {
	if b.err != nil {
		return nil, b.err
	}
	m := b.model
	if m.name == "" {
		return nil, fmt.Errorf("model name must not be empty")
	}
	if m.table == "" {
		return nil, fmt.Errorf("model %s: table name must not be empty", m.name)
	}

	m.fields = make(map[string]string, len(m.columns))
	for _, field := range sortedKeys(m.columns) {
		col := m.columns[field]
		if !col.Type.IsValid() {
			return nil, fmt.Errorf("model %s: field %s: %w", m.name, field,
				&core.UnsupportedColumnTypeError{Type: col.Type})
		}
		if col.Type == core.TypeEnum && len(col.Values) == 0 {
			return nil, fmt.Errorf("model %s: enum field %s declares no values", m.name, field)
		}
		name := col.NameFor(field)
		if other, dup := m.fields[name]; dup {
			return nil, fmt.Errorf("model %s: fields %s and %s share column %s", m.name, other, field, name)
		}
		m.fields[name] = field
	}
	if len(m.columns) > 0 {
		if _, ok := m.columns[m.primaryKey]; !ok {
			return nil, fmt.Errorf("model %s: primary key %q is not a declared column", m.name, m.primaryKey)
		}
	}
	return m, nil
}

// MustBuild is Build for package-level model variables; it panics on error.
func (b *ModelBuilder) MustBuild() *Model {
	m, err := b.Build()
	if err != nil {
		panic(err)
	}
	return m
}

// Pluralize applies simple English pluralization to a snake_case name.
func Pluralize(name string) string {
	switch {
	case name == "":
		return name
	case strings.HasSuffix(name, "s"), strings.HasSuffix(name, "x"),
		strings.HasSuffix(name, "ch"), strings.HasSuffix(name, "sh"):
		return name + "es"
	case strings.HasSuffix(name, "y") && len(name) > 1 && !strings.ContainsRune("aeiou", rune(name[len(name)-2])):
		return name[:len(name)-1] + "ies"
	default:
		return name + "s"
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
