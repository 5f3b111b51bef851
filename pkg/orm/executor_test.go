package orm

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/leaporm/internal/testutil"
	"github.com/leapstack-labs/leaporm/pkg/adapters/postgres"
	"github.com/leapstack-labs/leaporm/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockDB returns a DB over a postgres adapter backed by sqlmock with exact
// statement matching.
func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	adp := postgres.New(nil)
	adp.DB = conn

	reg, err := NewRegistry(newPostModel(t))
	require.NoError(t, err)
	return NewDB(adp, reg, testutil.NewTestLogger(t)), mock
}

func TestExecutor_All(t *testing.T) {
	db, mock := newMockDB(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT * FROM posts WHERE is_public = $1 ORDER BY id DESC").
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "is_public", "author_id"}).
			AddRow(int64(2), []byte("second"), true, nil).
			AddRow(int64(1), "first", true, int64(4)))

	q, err := db.Model("Post")
	require.NoError(t, err)

	rows, err := q.Scope("isPublic").Scope("latest").All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Row{
		{"id": int64(2), "title": "second", "isPublic": true, "authorID": nil},
		{"id": int64(1), "title": "first", "isPublic": true, "authorID": int64(4)},
	}, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutor_ReissuesEquivalentStatement(t *testing.T) {
	db, mock := newMockDB(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		mock.ExpectQuery("SELECT * FROM posts WHERE is_public = $1").
			WithArgs(true).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(i)))
	}

	q, err := db.Model("posts")
	require.NoError(t, err)
	q.Scope("isPublic")

	first, err := q.All(ctx)
	require.NoError(t, err)
	second, err := q.All(ctx)
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "rows may change between calls")
	assert.Len(t, q.Snapshots(), 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutor_FirstAndFind(t *testing.T) {
	db, mock := newMockDB(t)
	ctx := context.Background()
	post, _ := db.Models().Get("Post")

	mock.ExpectQuery("SELECT * FROM posts WHERE is_public = $1 LIMIT 1").
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))

	row, ok, err := db.Query(post).Scope("isPublic").First(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Row{"id": int64(5)}, row)

	mock.ExpectQuery("SELECT * FROM posts WHERE id = $1 LIMIT 1").
		WithArgs(99).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	row, ok, err = db.Query(post).Find(ctx, 99)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, row)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutor_Count(t *testing.T) {
	db, mock := newMockDB(t)
	ctx := context.Background()
	post, _ := db.Models().Get("Post")

	mock.ExpectQuery("SELECT COUNT(*) FROM posts WHERE is_public = $1").
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))

	n, err := db.Query(post).Scope("isPublic").Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutor_Writes(t *testing.T) {
	db, mock := newMockDB(t)
	ctx := context.Background()
	post, _ := db.Models().Get("Post")

	mock.ExpectExec("INSERT INTO posts (is_public, status, title, views) VALUES ($1, $2, $3, $4)").
		WithArgs(false, "draft", "hello", int64(0)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	n, err := db.Insert(ctx, post, map[string]any{"title": "hello"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	mock.ExpectExec("UPDATE posts SET status = $1 WHERE author_id = $2").
		WithArgs("published", 4).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err = db.Query(post).Scope("byAuthor", 4).Update(ctx, map[string]any{"status": "published"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	mock.ExpectExec("DELETE FROM posts WHERE is_public = $1").
		WithArgs(false).
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err = db.Query(post).Where("isPublic", false).Delete(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutor_ValidationBeforeWrite(t *testing.T) {
	db, mock := newMockDB(t)
	ctx := context.Background()
	post, _ := db.Models().Get("Post")

	_, err := db.Insert(ctx, post, map[string]any{"title": "x", "status": "deleted"})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = db.Query(post).Scope("isPublic").Update(ctx, map[string]any{"views": "many"})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = db.Query(post).Limit(3).Delete(ctx)
	assert.ErrorIs(t, err, ErrWriteFilter)

	// nothing reached the store
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutor_StoreError(t *testing.T) {
	db, mock := newMockDB(t)
	post, _ := db.Models().Get("Post")
	boom := errors.New("connection reset")

	mock.ExpectQuery("SELECT * FROM posts").WillReturnError(boom)

	_, err := db.Query(post).All(context.Background())
	require.Error(t, err)

	var storeErr *core.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "all", storeErr.Op)
	assert.Equal(t, "SELECT * FROM posts", storeErr.Statement)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, core.ErrStore)
}

func TestExecutor_StickyErrorSkipsStore(t *testing.T) {
	db, mock := newMockDB(t)
	post, _ := db.Models().Get("Post")

	q := db.Query(post).Scope("nope")
	_, err := q.All(context.Background())
	assert.ErrorIs(t, err, core.ErrUnknownScope)
	_, err = q.Count(context.Background())
	assert.ErrorIs(t, err, core.ErrUnknownScope)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutor_Detached(t *testing.T) {
	q := NewQuery(newPostModel(t))

	_, err := q.All(context.Background())
	assert.ErrorIs(t, err, ErrDetached)
	_, _, err = q.First(context.Background())
	assert.ErrorIs(t, err, ErrDetached)
	_, err = q.Delete(context.Background())
	assert.ErrorIs(t, err, ErrDetached)
}

func TestDB_ModelNotRegistered(t *testing.T) {
	db, _ := newMockDB(t)
	_, err := db.Model("Comment")
	assert.ErrorContains(t, err, `model "Comment" is not registered`)
}
