package schema

import (
	"sort"

	"github.com/leapstack-labs/leaporm/pkg/core"
)

// Table collects column and index definitions for a single CREATE TABLE.
type Table struct {
	Name string

	columns     []*ColumnDef
	primary     []string
	indexes     []Index
	ifNotExists bool
}

// ColumnDef is one column of a Table. Modifier methods return the receiver.
type ColumnDef struct {
	Name   string
	Column core.Column

	primary bool
}

// Index is a secondary index over one or more columns.
type Index struct {
	Name    string
	Columns []string
}

// NewTable returns an empty table definition.
func NewTable(name string) *Table {
	return &Table{Name: name}
}

// Columns returns the column definitions in declaration order.
func (t *Table) Columns() []*ColumnDef {
	out := make([]*ColumnDef, len(t.columns))
	copy(out, t.columns)
	return out
}

// Indexes returns the declared secondary indexes.
func (t *Table) Indexes() []Index {
	out := make([]Index, len(t.indexes))
	copy(out, t.indexes)
	return out
}

// PrimaryColumns returns the table-level composite primary key, if any.
func (t *Table) PrimaryColumns() []string {
	return append([]string(nil), t.primary...)
}

// Column returns the column definition with the given name.
func (t *Table) Column(name string) (*ColumnDef, bool) {
	for _, c := range t.columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Add appends an arbitrary column.
func (t *Table) Add(name string, col core.Column) *ColumnDef {
	col.ColumnName = name
	def := &ColumnDef{Name: name, Column: col}
	t.columns = append(t.columns, def)
	return def
}

// Increments adds an auto-incrementing integer primary key.
func (t *Table) Increments(name string) *ColumnDef {
	return t.Add(name, core.Column{Type: core.TypeIncrements})
}

// String adds a VARCHAR column. The optional length bounds it.
func (t *Table) String(name string, length ...int) *ColumnDef {
	col := core.Column{Type: core.TypeVarchar}
	if len(length) > 0 {
		col.MaxLength = length[0]
	}
	return t.Add(name, col)
}

// Char adds a fixed-length CHAR column.
func (t *Table) Char(name string, length int) *ColumnDef {
	return t.Add(name, core.Column{Type: core.TypeChar, MaxLength: length})
}

func (t *Table) Integer(name string) *ColumnDef {
	return t.Add(name, core.Column{Type: core.TypeInteger})
}

func (t *Table) BigInteger(name string) *ColumnDef {
	return t.Add(name, core.Column{Type: core.TypeBigInteger})
}

func (t *Table) Floating(name string) *ColumnDef {
	return t.Add(name, core.Column{Type: core.TypeFloating})
}

func (t *Table) Boolean(name string) *ColumnDef {
	return t.Add(name, core.Column{Type: core.TypeBool})
}

func (t *Table) Text(name string) *ColumnDef {
	return t.Add(name, core.Column{Type: core.TypeText})
}

// Enum adds a text column constrained to the given members.
func (t *Table) Enum(name string, values ...string) *ColumnDef {
	return t.Add(name, core.Column{Type: core.TypeEnum, Values: append([]string(nil), values...)})
}

func (t *Table) Timestamp(name string) *ColumnDef {
	return t.Add(name, core.Column{Type: core.TypeTimestamp})
}

// Timestamps adds nullable created_at and updated_at columns.
func (t *Table) Timestamps() {
	t.Timestamp("created_at").Nullable()
	t.Timestamp("updated_at").Nullable()
}

func (t *Table) JSON(name string) *ColumnDef {
	return t.Add(name, core.Column{Type: core.TypeJSON})
}

func (t *Table) UUID(name string) *ColumnDef {
	return t.Add(name, core.Column{Type: core.TypeUUID})
}

// Index declares a secondary index named idx_<table>_<columns>.
func (t *Table) Index(columns ...string) {
	name := "idx_" + t.Name
	for _, c := range columns {
		name += "_" + c
	}
	t.indexes = append(t.indexes, Index{Name: name, Columns: append([]string(nil), columns...)})
}

// Primary declares a table-level (possibly composite) primary key.
func (t *Table) Primary(columns ...string) {
	t.primary = append([]string(nil), columns...)
}

// Primary marks the column as the primary key.
func (c *ColumnDef) Primary() *ColumnDef {
	c.primary = true
	return c
}

// Nullable allows NULL values.
func (c *ColumnDef) Nullable() *ColumnDef {
	c.Column.Nullable = true
	return c
}

// Unique adds a UNIQUE constraint.
func (c *ColumnDef) Unique() *ColumnDef {
	c.Column.Unique = true
	return c
}

// Default sets the column default.
func (c *ColumnDef) Default(v any) *ColumnDef {
	c.Column.DefaultValue = v
	return c
}

// IsPrimary reports whether the column carries an inline primary key.
func (c *ColumnDef) IsPrimary() bool {
	return c.primary || c.Column.Type == core.TypeIncrements
}

// FromColumns builds a table definition from field-keyed column descriptors.
// Columns are emitted with the primary key first, then by column name.
func FromColumns(name, primaryKey string, columns map[string]core.Column) *Table {
	t := NewTable(name)

	keys := make([]string, 0, len(columns))
	for k := range columns {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if (keys[i] == primaryKey) != (keys[j] == primaryKey) {
			return keys[i] == primaryKey
		}
		return columns[keys[i]].NameFor(keys[i]) < columns[keys[j]].NameFor(keys[j])
	})

	for _, k := range keys {
		col := columns[k]
		def := t.Add(col.NameFor(k), col)
		if k == primaryKey {
			def.Primary()
		}
	}
	return t
}
