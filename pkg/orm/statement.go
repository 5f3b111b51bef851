package orm

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leaporm/pkg/core"
	"github.com/leapstack-labs/leaporm/pkg/dialect"
)

// Statement is a rendered SQL statement with its bound arguments, in order.
type Statement struct {
	SQL  string
	Args []any
}

func (s Statement) String() string {
	return s.SQL
}

// genericDialect renders statements for queries that are not bound to a store.
var genericDialect = dialect.NewDialect("generic").
	PlaceholderStyle(dialect.PlaceholderQuestion).
	Build()

// builder replays snapshots into the clauses of a single statement.
// Every value is bound as a parameter; only identifiers and validated
// integers are written into the SQL text.
type builder struct {
	d     *dialect.Dialect
	model *Model

	args    []any
	columns []string
	where   []string
	order   []string
	limit   *int
	offset  *int
}

func newBuilder(d *dialect.Dialect, m *Model) *builder {
	if d == nil {
		d = genericDialect
	}
	return &builder{d: d, model: m}
}

func (b *builder) bind(v any) string {
	b.args = append(b.args, v)
	return b.d.FormatPlaceholder(len(b.args))
}

func (b *builder) table() string {
	return b.d.QuoteIdentifierIfNeeded(b.model.table)
}

func (b *builder) column(field string) (string, error) {
	name, ok := b.model.ColumnName(field)
	if !ok {
		return "", &core.ValidationError{Field: field, Reason: fmt.Sprintf("unknown field on model %s", b.model.name)}
	}
	return b.d.QuoteIdentifierIfNeeded(name), nil
}

// replay dispatches each snapshot, in order, to its builder primitive.
func (b *builder) replay(snaps []core.Snapshot) error {
	for _, s := range snaps {
		if err := b.apply(s); err != nil {
			if s.OriginScope != "" {
				return fmt.Errorf("replaying %s from scope %s: %w", s.Operation, s.OriginScope, err)
			}
			return fmt.Errorf("replaying %s: %w", s.Operation, err)
		}
	}
	return nil
}

func (b *builder) apply(s core.Snapshot) error {
	a := s.Arguments
	switch s.Operation {
	case OpWhere, OpWhereNot:
		cond, err := b.condition(a)
		if err != nil {
			return err
		}
		if s.Operation == OpWhereNot {
			cond = "NOT (" + cond + ")"
		}
		b.where = append(b.where, cond)
	case OpWhereIn:
		col, err := b.column(a[0].(string))
		if err != nil {
			return err
		}
		values := a[1].([]any)
		if len(values) == 0 {
			b.where = append(b.where, "1 = 0")
			return nil
		}
		phs := make([]string, len(values))
		for i, v := range values {
			phs[i] = b.bind(v)
		}
		b.where = append(b.where, fmt.Sprintf("%s IN (%s)", col, strings.Join(phs, ", ")))
	case OpWhereNull, OpWhereNotNull:
		col, err := b.column(a[0].(string))
		if err != nil {
			return err
		}
		if s.Operation == OpWhereNull {
			b.where = append(b.where, col+" IS NULL")
		} else {
			b.where = append(b.where, col+" IS NOT NULL")
		}
	case OpOrderBy:
		col, err := b.column(a[0].(string))
		if err != nil {
			return err
		}
		b.order = append(b.order, col+" "+strings.ToUpper(a[1].(string)))
	case OpLimit:
		n := a[0].(int)
		b.limit = &n
	case OpOffset:
		n := a[0].(int)
		b.offset = &n
	case OpSelect:
		for _, f := range a {
			col, err := b.column(f.(string))
			if err != nil {
				return err
			}
			b.columns = append(b.columns, col)
		}
	default:
		return fmt.Errorf("no statement primitive for operation %q", s.Operation)
	}
	return nil
}

// condition renders (map), (field, value) or (field, op, value).
// Map keys are sorted so equal snapshots render identically.
func (b *builder) condition(a []any) (string, error) {
	switch len(a) {
	case 1:
		m := a[0].(map[string]any)
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			part, err := b.compare(k, "=", m[k])
			if err != nil {
				return "", err
			}
			parts = append(parts, part)
		}
		return strings.Join(parts, " AND "), nil
	case 2:
		return b.compare(a[0].(string), "=", a[1])
	default:
		return b.compare(a[0].(string), a[1].(string), a[2])
	}
}

func (b *builder) compare(field, op string, v any) (string, error) {
	col, err := b.column(field)
	if err != nil {
		return "", err
	}
	if v == nil {
		if op == "=" {
			return col + " IS NULL", nil
		}
		return col + " IS NOT NULL", nil
	}
	return fmt.Sprintf("%s %s %s", col, operators[op], b.bind(v)), nil
}

func (b *builder) whereClause() string {
	if len(b.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.where, " AND ")
}

func (b *builder) selectSQL() string {
	cols := "*"
	if len(b.columns) > 0 {
		cols = strings.Join(b.columns, ", ")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(cols)
	sb.WriteString(" FROM ")
	sb.WriteString(b.table())
	sb.WriteString(b.whereClause())
	if len(b.order) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(b.order, ", "))
	}
	if b.limit != nil {
		sb.WriteString(" LIMIT " + strconv.Itoa(*b.limit))
	}
	if b.offset != nil {
		// SQLite only accepts OFFSET after a LIMIT
		if b.limit == nil && b.d.Name == "sqlite" {
			sb.WriteString(" LIMIT -1")
		}
		sb.WriteString(" OFFSET " + strconv.Itoa(*b.offset))
	}
	return sb.String()
}

func (b *builder) statement(sql string) Statement {
	return Statement{SQL: sql, Args: b.args}
}

// buildSelect renders the full snapshot sequence as a SELECT.
func buildSelect(d *dialect.Dialect, m *Model, snaps []core.Snapshot) (Statement, error) {
	b := newBuilder(d, m)
	if err := b.replay(snaps); err != nil {
		return Statement{}, err
	}
	return b.statement(b.selectSQL()), nil
}

// buildFirst is buildSelect capped at one row. The snapshots are not touched.
func buildFirst(d *dialect.Dialect, m *Model, snaps []core.Snapshot) (Statement, error) {
	b := newBuilder(d, m)
	if err := b.replay(snaps); err != nil {
		return Statement{}, err
	}
	if b.limit == nil || *b.limit > 1 {
		one := 1
		b.limit = &one
	}
	return b.statement(b.selectSQL()), nil
}

// buildFind adds primary key equality after the replayed snapshots.
func buildFind(d *dialect.Dialect, m *Model, snaps []core.Snapshot, id any) (Statement, error) {
	b := newBuilder(d, m)
	if err := b.replay(snaps); err != nil {
		return Statement{}, err
	}
	cond, err := b.compare(m.primaryKey, "=", id)
	if err != nil {
		return Statement{}, err
	}
	b.where = append(b.where, cond)
	one := 1
	b.limit = &one
	return b.statement(b.selectSQL()), nil
}

// buildCount counts matching rows. Chains that page, sort or project are
// wrapped in a subquery so the count honors them.
func buildCount(d *dialect.Dialect, m *Model, snaps []core.Snapshot) (Statement, error) {
	b := newBuilder(d, m)
	if err := b.replay(snaps); err != nil {
		return Statement{}, err
	}
	if filtersOnly(snaps) {
		return b.statement("SELECT COUNT(*) FROM " + b.table() + b.whereClause()), nil
	}
	return b.statement("SELECT COUNT(*) FROM (" + b.selectSQL() + ") AS counted"), nil
}

// buildUpdate binds the SET values before the replayed conditions so
// numbered placeholders stay in argument order.
func buildUpdate(d *dialect.Dialect, m *Model, snaps []core.Snapshot, values map[string]any) (Statement, error) {
	if err := requireFilters(snaps); err != nil {
		return Statement{}, err
	}
	if len(values) == 0 {
		return Statement{}, fmt.Errorf("update: %w: no values", ErrInvalidArguments)
	}
	b := newBuilder(d, m)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	sets := make([]string, 0, len(keys))
	for _, k := range keys {
		col, err := b.column(k)
		if err != nil {
			return Statement{}, err
		}
		sets = append(sets, col+" = "+b.bind(values[k]))
	}
	if err := b.replay(snaps); err != nil {
		return Statement{}, err
	}
	return b.statement("UPDATE " + b.table() + " SET " + strings.Join(sets, ", ") + b.whereClause()), nil
}

func buildDelete(d *dialect.Dialect, m *Model, snaps []core.Snapshot) (Statement, error) {
	if err := requireFilters(snaps); err != nil {
		return Statement{}, err
	}
	b := newBuilder(d, m)
	if err := b.replay(snaps); err != nil {
		return Statement{}, err
	}
	return b.statement("DELETE FROM " + b.table() + b.whereClause()), nil
}

func buildInsert(d *dialect.Dialect, m *Model, values map[string]any) (Statement, error) {
	b := newBuilder(d, m)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	cols := make([]string, 0, len(keys))
	phs := make([]string, 0, len(keys))
	for _, k := range keys {
		col, err := b.column(k)
		if err != nil {
			return Statement{}, err
		}
		cols = append(cols, col)
		phs = append(phs, b.bind(values[k]))
	}
	if len(cols) == 0 {
		return b.statement("INSERT INTO " + b.table() + " DEFAULT VALUES"), nil
	}
	return b.statement(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		b.table(), strings.Join(cols, ", "), strings.Join(phs, ", "))), nil
}

func filtersOnly(snaps []core.Snapshot) bool {
	for _, s := range snaps {
		if v, ok := verbs[s.Operation]; !ok || !v.Filter {
			return false
		}
	}
	return true
}

func requireFilters(snaps []core.Snapshot) error {
	for _, s := range snaps {
		if v, ok := verbs[s.Operation]; !ok || !v.Filter {
			return fmt.Errorf("%w: found %s", ErrWriteFilter, s.Operation)
		}
	}
	return nil
}
