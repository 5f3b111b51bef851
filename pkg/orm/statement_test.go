package orm

import (
	"testing"

	pgdialect "github.com/leapstack-labs/leaporm/pkg/adapters/postgres/dialect"
	sqlitedialect "github.com/leapstack-labs/leaporm/pkg/adapters/sqlite/dialect"
	"github.com/leapstack-labs/leaporm/pkg/core"
	"github.com/leapstack-labs/leaporm/pkg/dialect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSelect(t *testing.T) {
	tests := []struct {
		name    string
		dialect *dialect.Dialect
		chain   func(q *Query)
		sql     string
		args    []any
	}{
		{
			name:  "no operations",
			chain: func(*Query) {},
			sql:   "SELECT * FROM posts",
		},
		{
			name: "map keys are sorted",
			chain: func(q *Query) {
				q.Where(map[string]any{"title": "a", "isPublic": true})
			},
			sql:  "SELECT * FROM posts WHERE is_public = ? AND title = ?",
			args: []any{true, "a"},
		},
		{
			name: "operators and nulls",
			chain: func(q *Query) {
				q.Where("title", "LIKE", "%go%").
					Where("views", "<", 10).
					Where("authorID", nil).
					Where("meta", "!=", nil)
			},
			sql:  "SELECT * FROM posts WHERE title LIKE ? AND views < ? AND author_id IS NULL AND meta IS NOT NULL",
			args: []any{"%go%", 10},
		},
		{
			name: "negation, membership and null checks",
			chain: func(q *Query) {
				q.WhereNot("status", "draft").
					WhereIn("id", []int64{1, 2}).
					WhereNull("authorID").
					WhereNotNull("meta")
			},
			sql:  "SELECT * FROM posts WHERE NOT (status = ?) AND id IN (?, ?) AND author_id IS NULL AND meta IS NOT NULL",
			args: []any{"draft", int64(1), int64(2)},
		},
		{
			name:  "empty membership matches nothing",
			chain: func(q *Query) { q.WhereIn("id", []int{}) },
			sql:   "SELECT * FROM posts WHERE 1 = 0",
		},
		{
			name: "scopes, ordering and paging",
			chain: func(q *Query) {
				q.Scope("isPublic").Scope("popular", 50).Scope("latest").OrderBy("title").Limit(10).Offset(20)
			},
			sql:  "SELECT * FROM posts WHERE is_public = ? AND views >= ? ORDER BY id DESC, title ASC LIMIT 10 OFFSET 20",
			args: []any{true, 50},
		},
		{
			name:  "later limit replaces earlier",
			chain: func(q *Query) { q.Limit(5).Limit(2) },
			sql:   "SELECT * FROM posts LIMIT 2",
		},
		{
			name:  "projection",
			chain: func(q *Query) { q.Select("id", "isPublic").Select("title") },
			sql:   "SELECT id, is_public, title FROM posts",
		},
		{
			name:    "numbered placeholders",
			dialect: pgdialect.Postgres,
			chain: func(q *Query) {
				q.Scope("visibleBy", 3).WhereIn("status", []string{"draft", "published"})
			},
			sql:  "SELECT * FROM posts WHERE is_public = $1 AND author_id = $2 AND status IN ($3, $4)",
			args: []any{true, 3, "draft", "published"},
		},
		{
			name:    "sqlite offset without limit",
			dialect: sqlitedialect.SQLite,
			chain:   func(q *Query) { q.Offset(5) },
			sql:     "SELECT * FROM posts LIMIT -1 OFFSET 5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQuery(newPostModel(t))
			tt.chain(q)
			require.NoError(t, q.Err())

			stmt, err := buildSelect(tt.dialect, q.model, q.Snapshots())
			require.NoError(t, err)
			assert.Equal(t, tt.sql, stmt.SQL)
			assert.Equal(t, tt.args, stmt.Args)
		})
	}
}

func TestBuildSelect_Deterministic(t *testing.T) {
	q := NewQuery(newPostModel(t)).
		Where(map[string]any{"views": 1, "title": "x", "status": "draft", "isPublic": true}).
		Scope("latest")

	first, err := q.ToSQL()
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := q.ToSQL()
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestBuildSelect_UnknownField(t *testing.T) {
	q := NewQuery(newPostModel(t)).Scope("isPublic").Where("rating", 5)

	_, err := q.ToSQL()
	require.Error(t, err)

	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "rating", vErr.Field)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestBuildSelect_ReportsOriginScope(t *testing.T) {
	m := Define("Post").
		Column("id", core.Column{Type: core.TypeIncrements}).
		Scope("stale", func(q *Query, _ ...any) error {
			q.Where("updatedAt", "<", "2020-01-01")
			return nil
		}).
		MustBuild()

	_, err := NewQuery(m).Scope("stale").ToSQL()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from scope stale")
}

func TestBuildFirstAndFind(t *testing.T) {
	m := newPostModel(t)
	q := NewQuery(m).Scope("isPublic").Limit(5)
	before := q.Snapshots()

	first, err := buildFirst(pgdialect.Postgres, m, q.Snapshots())
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM posts WHERE is_public = $1 LIMIT 1", first.SQL)

	find, err := buildFind(pgdialect.Postgres, m, q.Snapshots(), 42)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM posts WHERE is_public = $1 AND id = $2 LIMIT 1", find.SQL)
	assert.Equal(t, []any{true, 42}, find.Args)

	assert.Equal(t, before, q.Snapshots(), "terminals do not record snapshots")
}

func TestBuildCount(t *testing.T) {
	m := newPostModel(t)

	plain, err := buildCount(pgdialect.Postgres, m, NewQuery(m).Scope("isPublic").Snapshots())
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM posts WHERE is_public = $1", plain.SQL)

	paged, err := buildCount(pgdialect.Postgres, m, NewQuery(m).Scope("isPublic").Limit(5).Snapshots())
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM (SELECT * FROM posts WHERE is_public = $1 LIMIT 5) AS counted", paged.SQL)
	assert.Equal(t, []any{true}, paged.Args)
}

func TestBuildUpdateAndDelete(t *testing.T) {
	m := newPostModel(t)
	filtered := NewQuery(m).Scope("byAuthor", 9).WhereNull("meta").Snapshots()

	upd, err := buildUpdate(pgdialect.Postgres, m, filtered, map[string]any{"title": "t", "isPublic": true})
	require.NoError(t, err)
	assert.Equal(t, "UPDATE posts SET is_public = $1, title = $2 WHERE author_id = $3 AND meta IS NULL", upd.SQL)
	assert.Equal(t, []any{true, "t", 9}, upd.Args)

	del, err := buildDelete(pgdialect.Postgres, m, filtered)
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM posts WHERE author_id = $1 AND meta IS NULL", del.SQL)

	everything, err := buildDelete(nil, m, nil)
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM posts", everything.SQL)

	paged := NewQuery(m).Scope("isPublic").Scope("latest").Snapshots()
	_, err = buildDelete(nil, m, paged)
	assert.ErrorIs(t, err, ErrWriteFilter)
	_, err = buildUpdate(nil, m, paged, map[string]any{"title": "t"})
	assert.ErrorIs(t, err, ErrWriteFilter)

	_, err = buildUpdate(nil, m, nil, map[string]any{})
	assert.ErrorIs(t, err, ErrInvalidArguments)
}

func TestBuildInsert(t *testing.T) {
	m := newPostModel(t)

	stmt, err := buildInsert(pgdialect.Postgres, m, map[string]any{"title": "hello", "isPublic": false})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO posts (is_public, title) VALUES ($1, $2)", stmt.SQL)
	assert.Equal(t, []any{false, "hello"}, stmt.Args)

	stmt, err = buildInsert(nil, m, nil)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO posts DEFAULT VALUES", stmt.SQL)
}

func TestVerbArguments(t *testing.T) {
	tests := []struct {
		name  string
		chain func(q *Query)
	}{
		{"where without args", func(q *Query) { q.Where() }},
		{"where empty map", func(q *Query) { q.Where(map[string]any{}) }},
		{"where non-string field", func(q *Query) { q.Where(1, 2) }},
		{"where unknown operator", func(q *Query) { q.Where("id", "~", 1) }},
		{"where ordered null", func(q *Query) { q.Where("id", ">", nil) }},
		{"where too many args", func(q *Query) { q.Where("id", "=", 1, 2) }},
		{"whereIn non-slice", func(q *Query) { q.WhereIn("id", 3) }},
		{"whereNull empty field", func(q *Query) { q.WhereNull("") }},
		{"orderBy bad direction", func(q *Query) { q.OrderBy("id", "up") }},
		{"negative offset", func(q *Query) { q.Offset(-2) }},
		{"select nothing", func(q *Query) { q.Select() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQuery(newPostModel(t))
			tt.chain(q)
			assert.ErrorIs(t, q.Err(), ErrInvalidArguments)
			assert.Empty(t, q.Snapshots())
		})
	}
}

func TestVerbs(t *testing.T) {
	assert.Equal(t, []string{
		"limit", "offset", "orderBy", "select", "where", "whereIn", "whereNot", "whereNotNull", "whereNull",
	}, Verbs())
}
