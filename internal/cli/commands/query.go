package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leaporm/pkg/orm"
	"github.com/spf13/cobra"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Scopes []string
	Where  []string
	Order  []string
	Select []string
	Limit  int
	Offset int
	Find   string
	Count  bool
	First  bool
	SQL    bool
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query <model>",
		Short: "Query a model through its scopes",
		Long: `Build a query on a model from scopes and filters, then run it against
the configured target.

Scopes are applied first, in the order given, followed by filters, ordering,
column selection, limit and offset. Scope arguments and filter values are
parsed as integers, floats, booleans or null where possible and fall back
to strings.`,
		Example: `  # All published posts
  leaporm query Post --scope published

  # Scopes with arguments
  leaporm query Post --scope visibleBy:42 --scope latest:10

  # Ad-hoc filters
  leaporm query Post --where "views>=100" --where "title~%go%" --order id:desc

  # Show the SQL without running it
  leaporm query Post --scope popular --sql`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Scopes, "scope", "s", nil, "Apply a scope, as name or name:arg,arg (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Where, "where", nil, "Filter as field<op>value with op one of = != <> < <= > >= ~ (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Order, "order", nil, "Order by field or field:asc|desc (repeatable)")
	cmd.Flags().StringSliceVar(&opts.Select, "select", nil, "Fields to select (comma-separated)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum number of rows")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Number of rows to skip")
	cmd.Flags().StringVar(&opts.Find, "find", "", "Fetch the row with this primary key")
	cmd.Flags().BoolVar(&opts.Count, "count", false, "Print the number of matching rows")
	cmd.Flags().BoolVar(&opts.First, "first", false, "Print only the first matching row")
	cmd.Flags().BoolVar(&opts.SQL, "sql", false, "Print the SELECT statement instead of running it")
	cmd.MarkFlagsMutuallyExclusive("count", "first", "find", "sql")

	return cmd
}

func runQuery(cmd *cobra.Command, model string, opts *QueryOptions) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	q, err := cc.DB.Model(model)
	if err != nil {
		return err
	}
	q, err = buildQuery(q, opts, cmd.Flags().Changed("limit"), cmd.Flags().Changed("offset"))
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	switch {
	case opts.SQL:
		stmt, err := q.ToSQL()
		if err != nil {
			return err
		}
		if cc.Format == FormatJSON {
			return renderJSON(cc.Out, map[string]any{"sql": stmt.SQL, "args": stmt.Args})
		}
		_, _ = fmt.Fprintln(cc.Out, stmt.String())
		return nil

	case opts.Count:
		n, err := q.Count(ctx)
		if err != nil {
			return err
		}
		if cc.Format == FormatJSON {
			return renderJSON(cc.Out, map[string]any{"count": n})
		}
		_, _ = fmt.Fprintln(cc.Out, n)
		return nil

	case opts.First, opts.Find != "":
		var (
			row   orm.Row
			found bool
		)
		if opts.Find != "" {
			row, found, err = q.Find(ctx, parseScalar(opts.Find))
		} else {
			row, found, err = q.First(ctx)
		}
		if err != nil {
			return err
		}
		var rows []orm.Row
		if found {
			rows = append(rows, row)
		}
		return renderRows(cc, q.Model(), opts.Select, rows)
	}

	rows, err := q.All(ctx)
	if err != nil {
		return err
	}
	return renderRows(cc, q.Model(), opts.Select, rows)
}

// buildQuery applies the options to q. Every step goes through the scope
// interceptor, so a model scope named like a verb wins here as it does for
// --scope. Scope and verb failures surface here rather than at execution.
func buildQuery(q *orm.Query, opts *QueryOptions, hasLimit, hasOffset bool) (*orm.Query, error) {
	apply := func(name string, args ...any) {
		_, _ = q.Invoke(name, args...)
	}

	for _, s := range opts.Scopes {
		name, args := parseScopeFlag(s)
		apply(name, args...)
	}
	for _, w := range opts.Where {
		field, op, value, err := parseWhere(w)
		if err != nil {
			return nil, err
		}
		apply(orm.OpWhere, field, op, value)
	}
	for _, o := range opts.Order {
		field, dir, _ := strings.Cut(o, ":")
		if dir == "" {
			apply(orm.OpOrderBy, field)
		} else {
			apply(orm.OpOrderBy, field, dir)
		}
	}
	if len(opts.Select) > 0 {
		fields := make([]any, len(opts.Select))
		for i, f := range opts.Select {
			fields[i] = f
		}
		apply(orm.OpSelect, fields...)
	}
	if hasLimit {
		apply(orm.OpLimit, opts.Limit)
	}
	if hasOffset {
		apply(orm.OpOffset, opts.Offset)
	}
	return q, q.Err()
}

// parseScopeFlag splits "name:a,b" into the scope name and its arguments.
func parseScopeFlag(s string) (string, []any) {
	name, rest, ok := strings.Cut(s, ":")
	if !ok || rest == "" {
		return name, nil
	}
	parts := strings.Split(rest, ",")
	args := make([]any, len(parts))
	for i, p := range parts {
		args[i] = parseScalar(p)
	}
	return name, args
}

// where operators, two-character forms first
var whereOps = []string{">=", "<=", "!=", "<>", "=", "<", ">", "~"}

// parseWhere splits "field<op>value" at the first operator. "~" means like.
func parseWhere(s string) (field, op string, value any, err error) {
	for i := range s {
		for _, candidate := range whereOps {
			if !strings.HasPrefix(s[i:], candidate) {
				continue
			}
			field = strings.TrimSpace(s[:i])
			if field == "" {
				return "", "", nil, fmt.Errorf("invalid --where %q: missing field", s)
			}
			op = candidate
			if op == "~" {
				op = "like"
			}
			return field, op, parseScalar(strings.TrimSpace(s[i+len(candidate):])), nil
		}
	}
	return "", "", nil, fmt.Errorf("invalid --where %q: expected field<op>value", s)
}

// parseScalar interprets a command-line value.
func parseScalar(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	return s
}

func renderRows(cc *CommandContext, m *orm.Model, selected []string, rows []orm.Row) error {
	records := make([]map[string]any, len(rows))
	for i, r := range rows {
		records[i] = r
	}
	if cc.Format == FormatJSON {
		return renderJSON(cc.Out, records)
	}
	preferred := selected
	if len(preferred) == 0 {
		preferred = m.ColumnKeys()
	}
	return renderRecords(cc.Out, cc.Format, recordColumns(preferred, records), records)
}
