// Package sqlite provides a SQLite database adapter for LeapORM.
//
// Build modes:
//   - Default (CGO_ENABLED=0): uses pure Go modernc.org/sqlite
//   - CGO mode (-tags cgo_sqlite): uses mattn/go-sqlite3
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"

	"github.com/go-viper/mapstructure/v2"
	"github.com/leapstack-labs/leaporm/pkg/adapter"
	sqlitedialect "github.com/leapstack-labs/leaporm/pkg/adapters/sqlite/dialect"
	"github.com/leapstack-labs/leaporm/pkg/dialect"
)

// Params holds SQLite-specific configuration decoded from adapter.Config.Params.
type Params struct {
	// Pragmas are applied after connecting, e.g. foreign_keys: "on".
	Pragmas map[string]string `mapstructure:"pragmas"`
}

// Adapter implements the adapter.Adapter interface for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQLite adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

func init() {
	adapter.Register("sqlite", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}

// DriverName returns the database/sql driver in use ("sqlite" or "sqlite3").
func DriverName() string {
	return driverName
}

// DriverType returns "cgo" for mattn/go-sqlite3 and "purego" for modernc.org/sqlite.
func DriverType() string {
	return driverType
}

// DialectName returns the SQL dialect for this adapter.
func (a *Adapter) DialectName() string {
	return "sqlite"
}

// Dialect returns the SQLite dialect.
func (a *Adapter) Dialect() *dialect.Dialect {
	return sqlitedialect.SQLite
}

// Connect opens the database file at cfg.Path, or an in-memory database
// when the path is empty or ":memory:".
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	var params Params
	if len(cfg.Params) > 0 {
		if err := mapstructure.Decode(cfg.Params, &params); err != nil {
			return fmt.Errorf("failed to decode sqlite params: %w", err)
		}
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	a.Logger.Debug("opening sqlite database",
		slog.String("path", path),
		slog.String("driver", driverType))

	db, err := sql.Open(driverName, path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// Every new connection to ":memory:" is a fresh database.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite: %w", err)
	}

	names := make([]string, 0, len(params.Pragmas))
	for name := range params.Pragmas {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		stmt := fmt.Sprintf("PRAGMA %s = %s", name, params.Pragmas[name])
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to apply pragma %s: %w", name, err)
		}
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// HasTable reports whether a table with the given name exists.
// SQLite has no information_schema, so sqlite_master is consulted instead.
func (a *Adapter) HasTable(ctx context.Context, table string) (bool, error) {
	if a.DB == nil {
		return false, fmt.Errorf("database connection not established")
	}

	_, name := adapter.ParseQualifiedName(table, sqlitedialect.SQLite)

	var count int
	err := a.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", table, err)
	}
	return count > 0, nil
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
