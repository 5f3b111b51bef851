package orm

import (
	"errors"
	"testing"

	"github.com/leapstack-labs/leaporm/pkg/core"
	"github.com/stretchr/testify/require"
)

// newPostModel returns the Post model used throughout the package tests.
func newPostModel(t *testing.T) *Model {
	t.Helper()
	m, err := Define("Post").
		Column("id", core.Column{Type: core.TypeIncrements}).
		Column("title", core.Column{Type: core.TypeVarchar, MaxLength: 80}).
		Column("isPublic", core.Column{Type: core.TypeBool, DefaultValue: false}).
		Column("status", core.Column{Type: core.TypeEnum, Values: []string{"draft", "published"}, DefaultValue: "draft"}).
		Column("views", core.Column{Type: core.TypeInteger, DefaultValue: 0}).
		Column("authorID", core.Column{Type: core.TypeInteger, Nullable: true}).
		Column("meta", core.Column{Type: core.TypeJSON, Nullable: true}).
		Scope("isPublic", func(q *Query, _ ...any) error {
			q.Where(map[string]any{"isPublic": true})
			return nil
		}).
		Scope("popular", func(q *Query, args ...any) error {
			minViews := 100
			if len(args) > 0 {
				minViews = args[0].(int)
			}
			q.Where("views", ">=", minViews)
			return nil
		}).
		Scope("byAuthor", func(q *Query, args ...any) error {
			if len(args) != 1 {
				return errors.New("expected one author id")
			}
			q.Where("authorID", args[0])
			return nil
		}).
		Scope("visibleBy", func(q *Query, args ...any) error {
			if _, err := q.Invoke("isPublic"); err != nil {
				return err
			}
			_, err := q.Invoke("byAuthor", args...)
			return err
		}).
		Scope("latest", func(q *Query, _ ...any) error {
			q.OrderBy("id", "desc")
			return nil
		}).
		Build()
	require.NoError(t, err)
	return m
}
