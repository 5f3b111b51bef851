package schema

import (
	"errors"
	"testing"

	pgdialect "github.com/leapstack-labs/leaporm/pkg/adapters/postgres/dialect"
	sqlitedialect "github.com/leapstack-labs/leaporm/pkg/adapters/sqlite/dialect"
	"github.com/leapstack-labs/leaporm/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postsTable() *Table {
	t := NewTable("posts")
	t.Increments("id")
	t.String("title", 255)
	t.Boolean("is_public").Default(false)
	t.Enum("status", "draft", "published")
	t.Timestamps()
	t.Index("status")
	return t
}

func TestCreateStatements(t *testing.T) {
	tests := []struct {
		name  string
		table func() *Table
		pg    []string
		lite  []string
	}{
		{
			name:  "posts",
			table: postsTable,
			pg: []string{
				"CREATE TABLE posts (id SERIAL PRIMARY KEY, title VARCHAR(255) NOT NULL, " +
					"is_public BOOLEAN NOT NULL DEFAULT FALSE, " +
					"status TEXT NOT NULL CHECK (status IN ('draft', 'published')), " +
					"created_at TIMESTAMPTZ, updated_at TIMESTAMPTZ)",
				"CREATE INDEX idx_posts_status ON posts (status)",
			},
			lite: []string{
				"CREATE TABLE posts (id INTEGER PRIMARY KEY AUTOINCREMENT, title VARCHAR(255) NOT NULL, " +
					"is_public BOOLEAN NOT NULL DEFAULT FALSE, " +
					"status TEXT NOT NULL CHECK (status IN ('draft', 'published')), " +
					"created_at DATETIME, updated_at DATETIME)",
				"CREATE INDEX idx_posts_status ON posts (status)",
			},
		},
		{
			name: "ledger table",
			table: func() *Table {
				t := NewTable("migrations")
				t.Char("version", 16).Primary()
				return t
			},
			pg:   []string{"CREATE TABLE migrations (version CHAR(16) PRIMARY KEY)"},
			lite: []string{"CREATE TABLE migrations (version CHAR(16) PRIMARY KEY)"},
		},
		{
			name: "composite key with reserved column",
			table: func() *Table {
				t := NewTable("memberships")
				t.Integer("user").Unique()
				t.BigInteger("group_id")
				t.Floating("weight").Nullable().Default(1.5)
				t.Primary("user", "group_id")
				return t
			},
			pg: []string{
				`CREATE TABLE memberships ("user" INTEGER NOT NULL UNIQUE, group_id BIGINT NOT NULL, ` +
					`weight DOUBLE PRECISION DEFAULT 1.5, PRIMARY KEY ("user", group_id))`,
			},
			lite: []string{
				`CREATE TABLE memberships (user INTEGER NOT NULL UNIQUE, group_id BIGINT NOT NULL, ` +
					`weight REAL DEFAULT 1.5, PRIMARY KEY (user, group_id))`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pg, err := tt.table().CreateStatements(pgdialect.Postgres)
			require.NoError(t, err)
			assert.Equal(t, tt.pg, pg)

			lite, err := tt.table().CreateStatements(sqlitedialect.SQLite)
			require.NoError(t, err)
			assert.Equal(t, tt.lite, lite)
		})
	}
}

func TestCreateStatements_IfNotExists(t *testing.T) {
	tbl := postsTable()
	tbl.ifNotExists = true

	stmts, err := tbl.CreateStatements(sqlitedialect.SQLite)
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "CREATE TABLE IF NOT EXISTS posts (")
	assert.Equal(t, "CREATE INDEX IF NOT EXISTS idx_posts_status ON posts (status)", stmts[1])
}

func TestCreateStatements_Errors(t *testing.T) {
	t.Run("no columns", func(t *testing.T) {
		_, err := NewTable("empty").CreateStatements(sqlitedialect.SQLite)
		assert.ErrorContains(t, err, "has no columns")
	})

	t.Run("unsupported column type", func(t *testing.T) {
		tbl := NewTable("things")
		tbl.Add("shape", core.Column{Type: "geometry"})

		_, err := tbl.CreateStatements(pgdialect.Postgres)
		require.Error(t, err)
		assert.True(t, errors.Is(err, core.ErrUnsupportedColumnType))

		var unsupported *core.UnsupportedColumnTypeError
		require.ErrorAs(t, err, &unsupported)
		assert.Equal(t, core.ColumnType("geometry"), unsupported.Type)
	})

	t.Run("unsupported default", func(t *testing.T) {
		tbl := NewTable("things")
		tbl.Text("tags").Default([]string{"a"})

		_, err := tbl.CreateStatements(pgdialect.Postgres)
		assert.ErrorContains(t, err, "unsupported default value")
	})
}

func TestLiteral(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"it's", "'it''s'"},
		{true, "TRUE"},
		{42, "42"},
		{int64(7), "7"},
		{0.25, "0.25"},
	}
	for _, tt := range tests {
		got, err := literal(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestFromColumns(t *testing.T) {
	tbl := FromColumns("posts", "id", map[string]core.Column{
		"title":    {Type: core.TypeVarchar, MaxLength: 80},
		"isPublic": {Type: core.TypeBool, DefaultValue: false},
		"id":       {Type: core.TypeIncrements},
		"authorID": {Type: core.TypeInteger, ColumnName: "author"},
	})

	var names []string
	for _, c := range tbl.Columns() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"id", "author", "is_public", "title"}, names)

	id, ok := tbl.Column("id")
	require.True(t, ok)
	assert.True(t, id.IsPrimary())

	title, ok := tbl.Column("title")
	require.True(t, ok)
	assert.False(t, title.IsPrimary())
	assert.Equal(t, 80, title.Column.MaxLength)
}
