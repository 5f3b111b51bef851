package starlark

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/leapstack-labs/leaporm/internal/testutil"
	"github.com/leapstack-labs/leaporm/pkg/core"
	"github.com/leapstack-labs/leaporm/pkg/orm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const postScopes = `
def published(q):
    q.where({"status": "published"})

def popular(q, min_views = 100):
    q.where("views", ">=", min_views)

def recent(q, n):
    q.order_by("id", "desc").limit(n)

def visible_by(q, author):
    q.scope("published").where("authorID", author)

def for_target(q):
    if target.type == "postgres":
        q.where("title", "like", "%pg%")
    else:
        q.where_not_null("title")

def tagged(q, *statuses):
    q.where_in("status", list(statuses)).select("id", "title")

def broken(q):
    q.where("nope", 1)

def _helper(q):
    q.limit(1)

LIMIT = 10
`

func writeScopes(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
	return dir
}

func postModel(t *testing.T, loader *ScopeLoader) *orm.Model {
	t.Helper()
	b := orm.Define("BlogPost").
		Table("posts").
		Column("id", core.Column{Type: core.TypeIncrements}).
		Column("title", core.Column{Type: core.TypeVarchar, MaxLength: 80, Nullable: true}).
		Column("status", core.Column{Type: core.TypeEnum, Values: []string{"draft", "published"}}).
		Column("views", core.Column{Type: core.TypeInteger}).
		Column("authorID", core.Column{Type: core.TypeInteger, Nullable: true})

	scopes, err := loader.Scopes("BlogPost")
	require.NoError(t, err)
	for name, fn := range scopes {
		b.Scope(name, fn)
	}
	m, err := b.Build()
	require.NoError(t, err)
	return m
}

func TestScopeLoader_Exports(t *testing.T) {
	dir := writeScopes(t, "blog_post.star", postScopes)
	loader := NewScopeLoader(dir, &TargetInfo{Type: "sqlite", Schema: "main"}, testutil.NewTestLogger(t))

	assert.Equal(t, filepath.Join(dir, "blog_post.star"), loader.Path("BlogPost"))

	m := postModel(t, loader)
	assert.Equal(t, []string{"broken", "for_target", "popular", "published", "recent", "tagged", "visible_by"}, m.ScopeNames())
}

func TestScopeLoader_Chains(t *testing.T) {
	dir := writeScopes(t, "BlogPost.star", postScopes)

	tests := []struct {
		name   string
		target string
		scope  string
		args   []any
		sql    string
		params []any
	}{
		{name: "dict argument", scope: "published", sql: "SELECT * FROM posts WHERE status = ?", params: []any{"published"}},
		{name: "default parameter", scope: "popular", sql: "SELECT * FROM posts WHERE views >= ?", params: []any{int64(100)}},
		{name: "explicit parameter", scope: "popular", args: []any{5}, sql: "SELECT * FROM posts WHERE views >= ?", params: []any{int64(5)}},
		{name: "chained methods", scope: "recent", args: []any{3}, sql: "SELECT * FROM posts ORDER BY id DESC LIMIT 3"},
		{name: "nested scope", scope: "visible_by", args: []any{7}, sql: "SELECT * FROM posts WHERE status = ? AND author_id = ?", params: []any{"published", int64(7)}},
		{name: "target global", target: "postgres", scope: "for_target", sql: "SELECT * FROM posts WHERE title LIKE ?", params: []any{"%pg%"}},
		{name: "target fallback", target: "sqlite", scope: "for_target", sql: "SELECT * FROM posts WHERE title IS NOT NULL"},
		{name: "varargs", scope: "tagged", args: []any{"draft", "published"}, sql: "SELECT id, title FROM posts WHERE status IN (?, ?)", params: []any{"draft", "published"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := tt.target
			if target == "" {
				target = "sqlite"
			}
			m := postModel(t, NewScopeLoader(dir, &TargetInfo{Type: target}, nil))

			q := orm.NewQuery(m).Scope(tt.scope, tt.args...)
			require.NoError(t, q.Err())
			for _, s := range q.Snapshots() {
				assert.Equal(t, tt.scope, s.OriginScope)
			}

			stmt, err := q.ToSQL()
			require.NoError(t, err)
			assert.Equal(t, tt.sql, stmt.SQL)
			assert.Equal(t, tt.params, stmt.Args)
		})
	}
}

func TestScopeLoader_FailingScope(t *testing.T) {
	dir := writeScopes(t, "BlogPost.star", postScopes)
	m := postModel(t, NewScopeLoader(dir, nil, nil))

	t.Run("script error is sticky and folds nothing", func(t *testing.T) {
		q := orm.NewQuery(m).Where("views", 1).Scope("recent")
		require.Error(t, q.Err())

		var sre *core.ScopeResolutionError
		require.ErrorAs(t, q.Err(), &sre)
		assert.Equal(t, "recent", sre.Scope)
		assert.Len(t, q.Snapshots(), 1)
	})

	t.Run("unknown field surfaces at render", func(t *testing.T) {
		_, err := orm.NewQuery(m).Scope("broken").ToSQL()
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrValidation)
	})

	t.Run("unsupported argument", func(t *testing.T) {
		q := orm.NewQuery(m).Scope("popular", struct{}{})
		require.Error(t, q.Err())
		assert.Contains(t, q.Err().Error(), "argument 1")
	})
}

func TestScopeLoader_ConcurrentCalls(t *testing.T) {
	dir := writeScopes(t, "BlogPost.star", postScopes)
	m := postModel(t, NewScopeLoader(dir, nil, nil))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			stmt, err := orm.NewQuery(m).Scope("popular", n).ToSQL()
			assert.NoError(t, err)
			assert.Equal(t, []any{int64(n)}, stmt.Args)
		}(i)
	}
	wg.Wait()
}

func TestScopeLoader_MissingFile(t *testing.T) {
	loader := NewScopeLoader(t.TempDir(), nil, nil)
	scopes, err := loader.Scopes("Comment")
	require.NoError(t, err)
	assert.Empty(t, scopes)

	empty := NewScopeLoader("", nil, nil)
	assert.Equal(t, "", empty.Path("Comment"))
}

func TestScopeLoader_Errors(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		errSubstr string
	}{
		{name: "syntax error", content: "def broken(q)\n", errSubstr: "Starlark execution error"},
		{name: "no query parameter", content: "def nothing():\n    pass\n", errSubstr: "must accept the query"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeScopes(t, "Comment.star", tt.content)
			_, err := NewScopeLoader(dir, nil, nil).Scopes("Comment")
			var lerr *LoadError
			require.ErrorAs(t, err, &lerr)
			assert.Contains(t, err.Error(), tt.errSubstr)
			assert.Contains(t, err.Error(), "scopes/Comment.star")
		})
	}
}

func TestQuery_Attrs(t *testing.T) {
	m := postModel(t, NewScopeLoader("", nil, nil))
	v := NewQuery(orm.NewQuery(m))

	assert.Equal(t, "query", v.Type())
	assert.Equal(t, "<query BlogPost>", v.String())
	assert.Contains(t, v.AttrNames(), "where_not_null")
	assert.Contains(t, v.AttrNames(), "scope")

	model, err := v.Attr("model")
	require.NoError(t, err)
	assert.Equal(t, `"BlogPost"`, model.String())

	missing, err := v.Attr("group_by")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
