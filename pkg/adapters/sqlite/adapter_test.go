package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leaporm/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapter_Lifecycle(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, core.AdapterConfig{Path: ":memory:"}))
	defer func() { _ = adp.Close() }()

	ok, err := adp.HasTable(ctx, "posts")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = adp.Exec(ctx, `CREATE TABLE posts (id INTEGER PRIMARY KEY AUTOINCREMENT, title TEXT)`)
	require.NoError(t, err)

	ok, err = adp.HasTable(ctx, "main.posts")
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := adp.Exec(ctx, `INSERT INTO posts (title) VALUES (?), (?)`, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	rows, err := adp.Query(ctx, `SELECT COUNT(*) FROM posts`)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()
	require.True(t, rows.Next())
	var count int
	require.NoError(t, rows.Scan(&count))
	assert.Equal(t, 2, count)
}

func TestAdapter_FileDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "app.db")

	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, core.AdapterConfig{Path: path}))
	_, err := adp.Exec(ctx, `CREATE TABLE t (id INTEGER)`)
	require.NoError(t, err)
	require.NoError(t, adp.Close())

	reopened := New(nil)
	require.NoError(t, reopened.Connect(ctx, core.AdapterConfig{Path: path}))
	defer func() { _ = reopened.Close() }()

	ok, err := reopened.HasTable(ctx, "t")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAdapter_Pragmas(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, core.AdapterConfig{
		Path:   ":memory:",
		Params: map[string]any{"pragmas": map[string]string{"foreign_keys": "on"}},
	}))
	defer func() { _ = adp.Close() }()

	rows, err := adp.Query(ctx, `PRAGMA foreign_keys`)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()
	require.True(t, rows.Next())
	var enabled int
	require.NoError(t, rows.Scan(&enabled))
	assert.Equal(t, 1, enabled)
}

func TestAdapter_NotConnected(t *testing.T) {
	adp := New(nil)
	_, err := adp.HasTable(context.Background(), "posts")
	assert.ErrorContains(t, err, "not established")
}

func TestAdapter_Dialect(t *testing.T) {
	adp := New(nil)
	assert.Equal(t, "sqlite", adp.DialectName())
	assert.Equal(t, "sqlite", adp.Dialect().Name)
	assert.Contains(t, []string{"sqlite", "sqlite3"}, DriverName())
}
