package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leaporm/internal/cli/config"
	"github.com/leapstack-labs/leaporm/internal/testutil"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const testModels = `
models:
  - name: Post
    columns:
      id: {type: increments}
      title: {type: varchar, max_length: 80}
      isPublic: {type: bool, default: false}
      status: {type: enum, values: [draft, published], default: draft}
      views: {type: integer, default: 0}
    scopes:
      isPublic:
        - where: {isPublic: true}
      latest:
        - orderBy: [id, desc]
        - limit: $1
`

const testScopes = `
def hot(q, min_views = 10):
    q.where("views", ">=", min_views)

def published_hot(q):
    q.scope("isPublic").scope("hot", 100)
`

const testSeedMigration = `-- +goose Up
INSERT INTO posts (title, is_public, status, views) VALUES ('hello', 1, 'published', 5);
INSERT INTO posts (title, is_public, status, views) VALUES ('draft post', 0, 'draft', 50);
INSERT INTO posts (title, is_public, status, views) VALUES ('go tips', 1, 'published', 200);

-- +goose Down
DELETE FROM posts;
`

// writeProject lays out a sqlite project in a temp dir and returns the
// path of its config file.
func writeProject(t *testing.T, output string) string {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"leaporm.yaml":                   "models_file: models.yaml\noutput: " + output + "\ntarget:\n  type: sqlite\n  database: blog.db\n",
		"models.yaml":                    testModels,
		"scopes/Post.star":               testScopes,
		"migrations/001_seed_posts.sql":  testSeedMigration,
		"migrations/002_index_views.sql": "-- +goose Up\nCREATE INDEX posts_views ON posts (views);\n",
		"migrations/README.md":           "not a migration",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	}
	return filepath.Join(dir, "leaporm.yaml")
}

// runCommand loads cfgPath as the current config and executes cmd.
func runCommand(t *testing.T, cfgPath string, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	_, err := config.LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	cmd.SetContext(config.WithLogger(context.Background(), testutil.NewTestLogger(t)))

	err = cmd.Execute()
	return buf.String(), err
}

// seedProject creates the tables and applies the migrations.
func seedProject(t *testing.T, cfgPath string) {
	t.Helper()
	_, err := runCommand(t, cfgPath, NewSyncCommand())
	require.NoError(t, err)
	_, err = runCommand(t, cfgPath, NewMigrateCommand(), "up")
	require.NoError(t, err)
}

func decodeJSON[T any](t *testing.T, s string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(s), &v), "output: %s", s)
	return v
}

func removeFile(cfgPath, name string) error {
	return os.Remove(filepath.Join(filepath.Dir(cfgPath), name))
}
