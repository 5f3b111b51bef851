package schema_test

import (
	"context"
	"testing"

	"github.com/leapstack-labs/leaporm/pkg/adapters/sqlite"
	"github.com/leapstack-labs/leaporm/pkg/core"
	"github.com/leapstack-labs/leaporm/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSchema(t *testing.T) *schema.Schema {
	t.Helper()
	adp := sqlite.New(nil)
	require.NoError(t, adp.Connect(context.Background(), core.AdapterConfig{Path: ":memory:"}))
	t.Cleanup(func() { _ = adp.Close() })
	return schema.New(adp)
}

func TestSchema_CreateAndDrop(t *testing.T) {
	ctx := context.Background()
	s := openSchema(t)

	ok, err := s.HasTable(ctx, "posts")
	require.NoError(t, err)
	assert.False(t, ok)

	err = s.CreateTable(ctx, "posts", func(t *schema.Table) {
		t.Increments("id")
		t.String("title")
		t.Boolean("is_public").Default(false)
		t.Index("is_public")
	})
	require.NoError(t, err)

	ok, err = s.HasTable(ctx, "posts")
	require.NoError(t, err)
	assert.True(t, ok)

	// a second plain create fails, the guarded one does not
	err = s.CreateTable(ctx, "posts", func(t *schema.Table) { t.Increments("id") })
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrStore)

	err = s.CreateTableIfNotExists(ctx, "posts", func(t *schema.Table) {
		t.Increments("id")
		t.Index("id")
	})
	require.NoError(t, err)

	require.NoError(t, s.DropTableIfExists(ctx, "posts"))
	require.NoError(t, s.DropTableIfExists(ctx, "posts"))

	ok, err = s.HasTable(ctx, "posts")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSchema_Exec(t *testing.T) {
	ctx := context.Background()
	s := openSchema(t)

	require.NoError(t, s.CreateTable(ctx, "tags", func(t *schema.Table) {
		t.String("name", 32).Primary()
	}))

	n, err := s.Exec(ctx, "INSERT INTO tags (name) VALUES (?), (?)", "go", "sql")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = s.Exec(ctx, "INSERT INTO tags (name) VALUES (?)", "go")
	var storeErr *core.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "INSERT INTO tags (name) VALUES (?)", storeErr.Statement)
}
