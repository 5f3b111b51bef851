package orm

import (
	"github.com/leapstack-labs/leaporm/pkg/core"
)

// Query is one logical query expression bound to a model.
//
// Every chain call records onto the query's own accumulator and returns the
// same *Query. A Query is not safe for concurrent use; distinct queries share
// no mutable state. Once a chain call fails the error is sticky: later chain
// calls are ignored and terminals return it.
//
// The typed verb methods (Where, Limit and the rest) always record the
// built-in verb. Only Invoke and Scope resolve names against the model, where
// a scope shadows a verb of the same name; callers that chain by name from
// user input go through Invoke.
type Query struct {
	model *Model
	db    *DB
	acc   Accumulator
	err   error
	depth int
}

// NewQuery returns a query that is not bound to a store. It can be chained
// and rendered with ToSQL, but its terminals fail with ErrDetached.
func NewQuery(m *Model) *Query {
	return &Query{model: m}
}

// Model returns the model the query is bound to.
func (q *Query) Model() *Model { return q.model }

// Snapshots returns a read-only copy of the recorded operations.
func (q *Query) Snapshots() []core.Snapshot { return q.acc.Snapshots() }

// Err returns the sticky chain error, if any.
func (q *Query) Err() error { return q.err }

// nested returns a fresh query on the same model for a scope to build on.
func (q *Query) nested() *Query {
	return &Query{model: q.model, db: q.db, depth: q.depth + 1}
}

// record runs a verb's argument adapter and appends the resulting snapshot.
func (q *Query) record(v *Verb, args []any) error {
	if q.err != nil {
		return q.err
	}
	normalized, err := v.adapt(v.Name, args)
	if err != nil {
		q.err = err
		return err
	}
	q.acc.Append(core.Snapshot{Operation: v.Name, Arguments: normalized})
	return nil
}

func (q *Query) verb(name string, args []any) *Query {
	_ = q.record(verbs[name], args)
	return q
}

// Where records an AND-ed condition: (map[string]any), (field, value) or
// (field, op, value). A nil value compares with IS NULL.
func (q *Query) Where(args ...any) *Query { return q.verb(OpWhere, args) }

// WhereNot records a negated Where.
func (q *Query) WhereNot(args ...any) *Query { return q.verb(OpWhereNot, args) }

// WhereIn records field IN (values...). values may be any slice.
func (q *Query) WhereIn(field string, values any) *Query {
	return q.verb(OpWhereIn, []any{field, values})
}

func (q *Query) WhereNull(field string) *Query { return q.verb(OpWhereNull, []any{field}) }

func (q *Query) WhereNotNull(field string) *Query { return q.verb(OpWhereNotNull, []any{field}) }

// OrderBy records a sort key; direction is "asc" (default) or "desc".
func (q *Query) OrderBy(field string, direction ...string) *Query {
	args := []any{field}
	for _, d := range direction {
		args = append(args, d)
	}
	return q.verb(OpOrderBy, args)
}

func (q *Query) Limit(n int) *Query { return q.verb(OpLimit, []any{n}) }

func (q *Query) Offset(n int) *Query { return q.verb(OpOffset, []any{n}) }

// Select restricts the returned fields.
func (q *Query) Select(fields ...string) *Query {
	args := make([]any, len(fields))
	for i, f := range fields {
		args[i] = f
	}
	return q.verb(OpSelect, args)
}

// Scope invokes a named scope (or verb) and returns q for further chaining.
// Failures are kept on the query and surface from the terminal.
func (q *Query) Scope(name string, args ...any) *Query {
	_, _ = q.Invoke(name, args...)
	return q
}
