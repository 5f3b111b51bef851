package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/leaporm/pkg/core"
	"github.com/leapstack-labs/leaporm/pkg/dialect"
)

// CreateStatements renders the table as a CREATE TABLE statement followed by
// one CREATE INDEX per declared index.
func (t *Table) CreateStatements(d *dialect.Dialect) ([]string, error) {
	if len(t.columns) == 0 {
		return nil, fmt.Errorf("table %s has no columns", t.Name)
	}

	defs := make([]string, 0, len(t.columns)+1)
	for _, c := range t.columns {
		def, err := columnDefinition(d, c, len(t.primary) == 0)
		if err != nil {
			return nil, fmt.Errorf("failed to render column %s.%s: %w", t.Name, c.Name, err)
		}
		defs = append(defs, def)
	}
	if len(t.primary) > 0 {
		defs = append(defs, "PRIMARY KEY ("+quoteList(d, t.primary)+")")
	}

	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	if t.ifNotExists {
		sb.WriteString("IF NOT EXISTS ")
	}
	sb.WriteString(d.QuoteIdentifierIfNeeded(t.Name))
	sb.WriteString(" (")
	sb.WriteString(strings.Join(defs, ", "))
	sb.WriteString(")")

	stmts := []string{sb.String()}
	for _, idx := range t.indexes {
		prefix := "CREATE INDEX "
		if t.ifNotExists {
			prefix += "IF NOT EXISTS "
		}
		stmts = append(stmts, fmt.Sprintf("%s%s ON %s (%s)",
			prefix, d.QuoteIdentifierIfNeeded(idx.Name), d.QuoteIdentifierIfNeeded(t.Name), quoteList(d, idx.Columns)))
	}
	return stmts, nil
}

func columnDefinition(d *dialect.Dialect, c *ColumnDef, inlinePrimary bool) (string, error) {
	sqlType, err := d.TypeForColumn(c.Column)
	if err != nil {
		return "", err
	}

	parts := []string{d.QuoteIdentifierIfNeeded(c.Name), sqlType}

	// increments mappings already carry PRIMARY KEY
	if c.Column.Type == core.TypeIncrements {
		return strings.Join(parts, " "), nil
	}

	switch {
	case c.primary && inlinePrimary:
		parts = append(parts, "PRIMARY KEY")
	case !c.Column.Nullable:
		parts = append(parts, "NOT NULL")
	}
	if c.Column.Unique {
		parts = append(parts, "UNIQUE")
	}
	if c.Column.HasDefault() {
		lit, err := literal(c.Column.DefaultValue)
		if err != nil {
			return "", err
		}
		parts = append(parts, "DEFAULT "+lit)
	}
	if c.Column.Type == core.TypeEnum && len(c.Column.Values) > 0 {
		members := make([]string, len(c.Column.Values))
		for i, v := range c.Column.Values {
			members[i] = quoteString(v)
		}
		parts = append(parts, fmt.Sprintf("CHECK (%s IN (%s))",
			d.QuoteIdentifierIfNeeded(c.Name), strings.Join(members, ", ")))
	}
	return strings.Join(parts, " "), nil
}

// literal renders a default value as a SQL literal.
func literal(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return quoteString(val), nil
	case bool:
		if val {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int:
		return strconv.Itoa(val), nil
	case int32:
		return strconv.FormatInt(int64(val), 10), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), nil
	case time.Time:
		return quoteString(val.UTC().Format(time.RFC3339)), nil
	default:
		return "", fmt.Errorf("unsupported default value %v (%T)", v, v)
	}
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func quoteList(d *dialect.Dialect, names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = d.QuoteIdentifierIfNeeded(n)
	}
	return strings.Join(quoted, ", ")
}
