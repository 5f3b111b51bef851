// Package dialect provides the DuckDB SQL dialect definition.
// This package is lightweight and has no database driver dependencies,
// making it suitable for tools that need dialect information without the
// overhead of database connections.
package dialect

import (
	"github.com/leapstack-labs/leaporm/pkg/core"
	"github.com/leapstack-labs/leaporm/pkg/dialect"
)

func init() {
	dialect.Register(DuckDB)
}

var duckdbReservedWords = []string{
	"user", "order", "group", "table", "select", "from", "where", "index",
	"all", "and", "any", "array", "as", "asc", "between", "both", "case",
	"cast", "check", "collate", "column", "constraint", "create", "cross",
	"default", "desc", "distinct", "do", "else", "end", "except", "false",
	"fetch", "for", "foreign", "from", "full", "grant", "having", "in",
	"inner", "intersect", "into", "is", "join", "lateral", "left", "like",
	"limit", "not", "null", "offset", "on", "only", "or", "outer", "pivot",
	"primary", "qualify", "references", "returning", "right", "semi",
	"anti", "then", "to", "true", "union", "unique", "unpivot", "using",
	"when", "where", "window", "with",
}

// duckdbColumnTypes maps every abstract column type to DuckDB.
// DuckDB has no auto-increment column; increments keys must be supplied on insert.
var duckdbColumnTypes = map[core.ColumnType]string{
	core.TypeFloating:   "DOUBLE",
	core.TypeEnum:       "VARCHAR",
	core.TypeBool:       "BOOLEAN",
	core.TypeVarchar:    "VARCHAR",
	core.TypeChar:       "CHAR",
	core.TypeBigInteger: "BIGINT",
	core.TypeInteger:    "INTEGER",
	core.TypeIncrements: "INTEGER PRIMARY KEY",
	core.TypeText:       "VARCHAR",
	core.TypeTimestamp:  "TIMESTAMP",
	core.TypeJSON:       "JSON",
	core.TypeUUID:       "UUID",
}

// DuckDB is the DuckDB dialect configuration.
var DuckDB = dialect.NewDialect("duckdb").
	Identifiers(`"`, `"`, `""`, dialect.NormCaseInsensitive).
	DefaultSchema("main").
	PlaceholderStyle(dialect.PlaceholderQuestion).
	ColumnTypes(duckdbColumnTypes).
	WithReservedWords(duckdbReservedWords...).
	Build()
