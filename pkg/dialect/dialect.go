// Package dialect provides SQL dialect configuration and the column type mapper.
//
// This package contains the public contract for dialect definitions used by the
// schema builder, the query executor and the migration ledger. Concrete dialect
// definitions are registered from pkg/adapters/*/dialect packages.
package dialect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leaporm/pkg/core"
)

// Re-exported so dialect definitions only need to import this package.
const (
	NormLowercase       = core.NormLowercase
	NormCaseInsensitive = core.NormCaseInsensitive

	PlaceholderQuestion = core.PlaceholderQuestion
	PlaceholderDollar   = core.PlaceholderDollar
)

// Dialect represents a SQL dialect configuration.
type Dialect struct {
	Name        string
	Identifiers core.IdentifierConfig

	// Database-specific settings
	DefaultSchema string                // Default schema name ("main" for DuckDB, "public" for Postgres)
	Placeholder   core.PlaceholderStyle // How to format query parameters

	columnTypes   map[core.ColumnType]string
	reservedWords map[string]struct{}
}

// Config returns the pure data configuration for this dialect.
func (d *Dialect) Config() *core.DialectConfig {
	types := make(map[core.ColumnType]string, len(d.columnTypes))
	for t, kw := range d.columnTypes {
		types[t] = kw
	}
	return &core.DialectConfig{
		Name:          d.Name,
		Identifiers:   d.Identifiers,
		DefaultSchema: d.DefaultSchema,
		Placeholder:   d.Placeholder,
		ColumnTypes:   types,
	}
}

// TypeForColumn maps a column's abstract type to this dialect's SQL keyword.
// Length-bounded types (varchar, char) carry MaxLength when it is set.
// A type outside the supported enumeration, or one this dialect has no mapping
// for, yields *core.UnsupportedColumnTypeError; there is no fallback.
func (d *Dialect) TypeForColumn(col core.Column) (string, error) {
	kw, ok := d.columnTypes[col.Type]
	if !ok || !col.Type.IsValid() {
		return "", &core.UnsupportedColumnTypeError{Dialect: d.Name, Type: col.Type}
	}
	switch col.Type {
	case core.TypeVarchar, core.TypeChar:
		if col.MaxLength > 0 {
			return fmt.Sprintf("%s(%d)", kw, col.MaxLength), nil
		}
	}
	return kw, nil
}

// NormalizeName normalizes an identifier according to dialect rules.
func (d *Dialect) NormalizeName(name string) string {
	switch d.Identifiers.Normalization {
	case core.NormLowercase, core.NormCaseInsensitive:
		return strings.ToLower(name)
	default:
		return name
	}
}

// GetName returns the dialect name.
func (d *Dialect) GetName() string {
	return d.Name
}

// FormatPlaceholder returns a placeholder for the given parameter index (1-based).
// Returns "?" for PlaceholderQuestion style, "$1", "$2" etc. for PlaceholderDollar style.
func (d *Dialect) FormatPlaceholder(index int) string {
	switch d.Placeholder {
	case core.PlaceholderDollar:
		return "$" + strconv.Itoa(index)
	default: // PlaceholderQuestion
		return "?"
	}
}

// IsReservedWord returns true if the word needs quoting when used as an identifier.
func (d *Dialect) IsReservedWord(word string) bool {
	_, ok := d.reservedWords[d.NormalizeName(word)]
	return ok
}

// QuoteIdentifier quotes an identifier using the dialect's quote characters.
func (d *Dialect) QuoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, d.Identifiers.QuoteEnd, d.Identifiers.Escape)
	return d.Identifiers.Quote + escaped + d.Identifiers.QuoteEnd
}

// QuoteIdentifierIfNeeded quotes an identifier only if it's a reserved word or
// would not survive unquoted (mixed case, spaces, punctuation).
// Qualified names are handled part by part.
func (d *Dialect) QuoteIdentifierIfNeeded(name string) string {
	if strings.Contains(name, ".") {
		parts := strings.Split(name, ".")
		for i, p := range parts {
			parts[i] = d.QuoteIdentifierIfNeeded(p)
		}
		return strings.Join(parts, ".")
	}
	if d.IsReservedWord(name) || !isSimpleIdentifier(name) {
		return d.QuoteIdentifier(name)
	}
	return name
}

func isSimpleIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r == '_':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// Builder provides a fluent API for constructing dialects.
type Builder struct {
	dialect *Dialect
}

// NewDialect creates a new dialect builder with the given name.
func NewDialect(name string) *Builder {
	return &Builder{
		dialect: &Dialect{
			Name: name,
			Identifiers: core.IdentifierConfig{
				Quote:         `"`,
				QuoteEnd:      `"`,
				Escape:        `""`,
				Normalization: core.NormLowercase,
			},
			columnTypes:   make(map[core.ColumnType]string),
			reservedWords: make(map[string]struct{}),
		},
	}
}

// Identifiers configures identifier quoting and normalization.
func (b *Builder) Identifiers(quote, quoteEnd, escape string, norm core.NormalizationStrategy) *Builder {
	b.dialect.Identifiers = core.IdentifierConfig{
		Quote:         quote,
		QuoteEnd:      quoteEnd,
		Escape:        escape,
		Normalization: norm,
	}
	return b
}

// DefaultSchema sets the default schema name.
func (b *Builder) DefaultSchema(schema string) *Builder {
	b.dialect.DefaultSchema = schema
	return b
}

// PlaceholderStyle sets how query parameters are formatted.
func (b *Builder) PlaceholderStyle(style core.PlaceholderStyle) *Builder {
	b.dialect.Placeholder = style
	return b
}

// ColumnTypes registers SQL keywords for abstract column types.
func (b *Builder) ColumnTypes(types map[core.ColumnType]string) *Builder {
	for t, kw := range types {
		b.dialect.columnTypes[t] = kw
	}
	return b
}

// WithReservedWords registers words that need quoting when used as identifiers.
func (b *Builder) WithReservedWords(words ...string) *Builder {
	for _, w := range words {
		b.dialect.reservedWords[b.dialect.NormalizeName(w)] = struct{}{}
	}
	return b
}

// Build returns the constructed dialect.
func (b *Builder) Build() *Dialect {
	return b.dialect
}
