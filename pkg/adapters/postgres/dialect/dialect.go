// Package dialect provides the PostgreSQL SQL dialect definition.
// This package is lightweight and has no database driver dependencies,
// making it suitable for tools that need dialect information without the
// overhead of database connections.
package dialect

import (
	"github.com/leapstack-labs/leaporm/pkg/core"
	"github.com/leapstack-labs/leaporm/pkg/dialect"
)

func init() {
	dialect.Register(Postgres)
}

// postgresReservedWords contains common PostgreSQL reserved words.
// This is a manually maintained list of frequently problematic identifiers.
// For a complete list, use pg_get_keywords() at runtime.
var postgresReservedWords = []string{
	"user", "order", "group", "table", "select", "from", "where", "index",
	"all", "and", "any", "array", "as", "asc", "asymmetric", "authorization",
	"between", "binary", "both", "case", "cast", "check", "collate", "column",
	"constraint", "create", "cross", "current_catalog", "current_date",
	"current_role", "current_schema", "current_time", "current_timestamp",
	"current_user", "default", "deferrable", "desc", "distinct", "do", "else",
	"end", "except", "false", "fetch", "for", "foreign", "freeze", "full",
	"grant", "having", "ilike", "in", "initially", "inner", "intersect",
	"into", "is", "isnull", "join", "lateral", "leading", "left", "like",
	"limit", "localtime", "localtimestamp", "natural", "not", "notnull",
	"null", "offset", "on", "only", "or", "outer", "overlaps", "placing",
	"primary", "references", "returning", "right", "session_user", "similar",
	"some", "symmetric", "then", "to", "trailing", "true", "union", "unique",
	"using", "variadic", "verbose", "when", "window", "with",
}

// postgresColumnTypes maps every abstract column type to PostgreSQL.
// Enums are stored as TEXT; membership is enforced with a CHECK constraint.
var postgresColumnTypes = map[core.ColumnType]string{
	core.TypeFloating:   "DOUBLE PRECISION",
	core.TypeEnum:       "TEXT",
	core.TypeBool:       "BOOLEAN",
	core.TypeVarchar:    "VARCHAR",
	core.TypeChar:       "CHAR",
	core.TypeBigInteger: "BIGINT",
	core.TypeInteger:    "INTEGER",
	core.TypeIncrements: "SERIAL PRIMARY KEY",
	core.TypeText:       "TEXT",
	core.TypeTimestamp:  "TIMESTAMPTZ",
	core.TypeJSON:       "JSONB",
	core.TypeUUID:       "UUID",
}

// Postgres is the PostgreSQL dialect configuration.
var Postgres = dialect.NewDialect("postgres").
	Identifiers(`"`, `"`, `""`, dialect.NormLowercase). // Postgres normalizes unquoted identifiers to lowercase
	DefaultSchema("public").
	PlaceholderStyle(dialect.PlaceholderDollar).
	ColumnTypes(postgresColumnTypes).
	WithReservedWords(postgresReservedWords...).
	Build()
