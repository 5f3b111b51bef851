package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leaporm/pkg/adapters/sqlite"
	"github.com/leapstack-labs/leaporm/pkg/core"
)

// NewMemoryStore connects a SQLite adapter to a private in-memory database
// that is closed when the test ends.
func NewMemoryStore(t testing.TB) *sqlite.Adapter {
	t.Helper()
	return connect(t, ":memory:")
}

// NewFileStore connects a SQLite adapter to a database file in a temporary
// directory and returns the adapter with the file path, so further
// connections to the same database can be opened with OpenStore.
func NewFileStore(t testing.TB) (*sqlite.Adapter, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "leaporm.db")
	return connect(t, path), path
}

// OpenStore opens another connection to an existing database file.
func OpenStore(t testing.TB, path string) *sqlite.Adapter {
	t.Helper()
	return connect(t, path)
}

func connect(t testing.TB, path string) *sqlite.Adapter {
	t.Helper()
	adp := sqlite.New(NewTestLogger(t))
	err := adp.Connect(context.Background(), core.AdapterConfig{
		Path: path,
		Params: map[string]any{
			"pragmas": map[string]string{"busy_timeout": "5000"},
		},
	})
	if err != nil {
		t.Fatalf("failed to open sqlite store %s: %v", path, err)
	}
	t.Cleanup(func() { _ = adp.Close() })
	return adp
}
