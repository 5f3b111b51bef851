package core

import (
	"strings"
	"unicode"
)

// ColumnType is an abstract, dialect-independent column type token.
type ColumnType string

// Supported column types. The set is closed: dialects map every one of these
// to a SQL keyword and nothing else.
const (
	TypeFloating   ColumnType = "floating"
	TypeEnum       ColumnType = "enum"
	TypeBool       ColumnType = "bool"
	TypeVarchar    ColumnType = "varchar"
	TypeChar       ColumnType = "char"
	TypeBigInteger ColumnType = "bigInteger"
	TypeInteger    ColumnType = "integer"
	TypeIncrements ColumnType = "increments" // auto-incrementing integer key
	TypeText       ColumnType = "text"
	TypeTimestamp  ColumnType = "timestamp"
	TypeJSON       ColumnType = "json"
	TypeUUID       ColumnType = "uuid"
)

// ColumnTypes returns every supported column type in declaration order.
func ColumnTypes() []ColumnType {
	return []ColumnType{
		TypeFloating, TypeEnum, TypeBool, TypeVarchar, TypeChar,
		TypeBigInteger, TypeInteger, TypeIncrements, TypeText,
		TypeTimestamp, TypeJSON, TypeUUID,
	}
}

// IsValid reports whether t belongs to the supported enumeration.
func (t ColumnType) IsValid() bool {
	for _, known := range ColumnTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// Column describes a single model field and how it is stored.
type Column struct {
	Type         ColumnType
	Nullable     bool
	MaxLength    int    // 0 means unset
	ColumnName   string // storage name; derived from the field key when empty
	DefaultValue any    // nil means no default
	Values       []string
	Unique       bool
}

// HasDefault reports whether the column declares a default value.
func (c Column) HasDefault() bool {
	return c.DefaultValue != nil
}

// NameFor returns the storage column name for the given field key.
func (c Column) NameFor(field string) string {
	if c.ColumnName != "" {
		return c.ColumnName
	}
	return SnakeCase(field)
}

// SnakeCase converts a camelCase or PascalCase field key to snake_case.
// Keys that are already snake_case are returned unchanged.
func SnakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
