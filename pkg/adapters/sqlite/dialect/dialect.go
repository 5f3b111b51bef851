// Package dialect provides the SQLite SQL dialect definition.
package dialect

import (
	"github.com/leapstack-labs/leaporm/pkg/core"
	"github.com/leapstack-labs/leaporm/pkg/dialect"
)

func init() {
	dialect.Register(SQLite)
}

var sqliteReservedWords = []string{
	"abort", "action", "add", "after", "all", "alter", "and", "as", "asc",
	"autoincrement", "before", "begin", "between", "by", "cascade", "case",
	"cast", "check", "collate", "column", "commit", "conflict", "constraint",
	"create", "cross", "default", "delete", "desc", "distinct", "drop",
	"else", "end", "escape", "except", "exists", "foreign", "from", "full",
	"group", "having", "in", "index", "inner", "insert", "intersect", "into",
	"is", "isnull", "join", "key", "left", "like", "limit", "natural", "not",
	"notnull", "null", "offset", "on", "or", "order", "outer", "primary",
	"references", "replace", "right", "select", "set", "table", "then", "to",
	"transaction", "union", "unique", "update", "using", "values", "when",
	"where", "with",
}

// sqliteColumnTypes maps every abstract column type to SQLite type names.
// SQLite stores by affinity; the names are kept descriptive for schema dumps.
var sqliteColumnTypes = map[core.ColumnType]string{
	core.TypeFloating:   "REAL",
	core.TypeEnum:       "TEXT",
	core.TypeBool:       "BOOLEAN",
	core.TypeVarchar:    "VARCHAR",
	core.TypeChar:       "CHAR",
	core.TypeBigInteger: "BIGINT",
	core.TypeInteger:    "INTEGER",
	core.TypeIncrements: "INTEGER PRIMARY KEY AUTOINCREMENT",
	core.TypeText:       "TEXT",
	core.TypeTimestamp:  "DATETIME",
	core.TypeJSON:       "TEXT",
	core.TypeUUID:       "TEXT",
}

// SQLite is the SQLite dialect configuration.
var SQLite = dialect.NewDialect("sqlite").
	Identifiers(`"`, `"`, `""`, dialect.NormCaseInsensitive).
	DefaultSchema("main").
	PlaceholderStyle(dialect.PlaceholderQuestion).
	ColumnTypes(sqliteColumnTypes).
	WithReservedWords(sqliteReservedWords...).
	Build()
