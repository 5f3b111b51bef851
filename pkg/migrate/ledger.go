// Package migrate keeps the migration ledger: a bookkeeping table that records
// which schema versions have been applied, plus a runner that applies pending
// migrations in version order.
package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/leapstack-labs/leaporm/pkg/core"
	"github.com/leapstack-labs/leaporm/pkg/schema"
	"golang.org/x/sync/errgroup"
)

// Ledger is bound to one store connection through its schema handle.
// Correctness under concurrent callers rests on the store's conditional
// create and conflict-ignoring insert; the ledger takes no locks.
type Ledger struct {
	schema *schema.Schema
	logger *slog.Logger
}

// NewLedger returns a ledger over the given schema handle.
// If logger is nil, a discard logger is used.
func NewLedger(s *schema.Schema, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Ledger{schema: s, logger: logger}
}

// Schema returns the schema handle the ledger writes through.
func (l *Ledger) Schema() *schema.Schema {
	return l.schema
}

// Ensure makes sure the migrations table exists. It reports true when the
// table was absent at check time; concurrent callers may all see true, but
// only one table is ever created.
func (l *Ledger) Ensure(ctx context.Context) (bool, error) {
	exists, err := l.schema.HasTable(ctx, core.MigrationTable)
	if err != nil {
		return false, fmt.Errorf("failed to check migration ledger: %w", err)
	}
	if exists {
		return false, nil
	}

	err = l.schema.CreateTableIfNotExists(ctx, core.MigrationTable, func(t *schema.Table) {
		t.Char("version", core.MigrationVersionLength).Primary()
	})
	if err != nil {
		return false, fmt.Errorf("failed to create migration ledger: %w", err)
	}
	l.logger.Debug("created migration ledger", slog.String("table", core.MigrationTable))
	return true, nil
}

// EnsureConcurrently runs Ensure from workers goroutines at once, the way
// independently booting worker processes would. workers <= 0 means one per
// CPU. It returns how many workers found the table absent.
func (l *Ledger) EnsureConcurrently(ctx context.Context, workers int) (int, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var created atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			ok, err := l.Ensure(ctx)
			if err != nil {
				return fmt.Errorf("worker %d: %w", i, err)
			}
			if ok {
				created.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(created.Load()), err
	}
	return int(created.Load()), nil
}

// ValidateVersion checks that a version fits the ledger's key column, which
// bounds characters rather than bytes.
func ValidateVersion(version string) error {
	switch {
	case version == "":
		return &core.ValidationError{Field: "version", Value: version, Reason: "must not be empty"}
	case !utf8.ValidString(version):
		return &core.ValidationError{Field: "version", Value: version, Reason: "must be valid UTF-8"}
	case utf8.RuneCountInString(version) > core.MigrationVersionLength:
		return &core.ValidationError{Field: "version", Value: version,
			Reason: fmt.Sprintf("longer than %d characters", core.MigrationVersionLength)}
	case strings.TrimSpace(version) != version:
		return &core.ValidationError{Field: "version", Value: version, Reason: "must not have surrounding spaces"}
	}
	return nil
}

// Record marks version as applied. It reports false, without error, when the
// version was already recorded.
func (l *Ledger) Record(ctx context.Context, version string) (bool, error) {
	if err := ValidateVersion(version); err != nil {
		return false, err
	}

	applied, err := l.IsApplied(ctx, version)
	if err != nil {
		return false, err
	}
	if applied {
		return false, nil
	}

	d := l.schema.Dialect()
	stmt := fmt.Sprintf("INSERT INTO %s (version) VALUES (%s) ON CONFLICT DO NOTHING",
		d.QuoteIdentifierIfNeeded(core.MigrationTable), d.FormatPlaceholder(1))
	n, err := l.schema.Exec(ctx, stmt, version)
	if err != nil {
		return false, fmt.Errorf("failed to record migration %s: %w", version, err)
	}
	return n > 0, nil
}

// IsApplied reports whether version is recorded.
func (l *Ledger) IsApplied(ctx context.Context, version string) (bool, error) {
	d := l.schema.Dialect()
	stmt := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE version = %s",
		d.QuoteIdentifierIfNeeded(core.MigrationTable), d.FormatPlaceholder(1))

	rows, err := l.schema.Adapter().Query(ctx, stmt, version)
	if err != nil {
		return false, &core.StoreError{Op: "lookup migration", Statement: stmt, Err: err}
	}
	defer func() { _ = rows.Close() }()

	var count int64
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return false, &core.StoreError{Op: "lookup migration", Statement: stmt, Err: err}
		}
	}
	if err := rows.Err(); err != nil {
		return false, &core.StoreError{Op: "lookup migration", Statement: stmt, Err: err}
	}
	return count > 0, nil
}

// Applied lists recorded versions in ascending order.
func (l *Ledger) Applied(ctx context.Context) ([]core.MigrationRecord, error) {
	stmt := fmt.Sprintf("SELECT version FROM %s ORDER BY version",
		l.schema.Dialect().QuoteIdentifierIfNeeded(core.MigrationTable))

	rows, err := l.schema.Adapter().Query(ctx, stmt)
	if err != nil {
		return nil, &core.StoreError{Op: "list migrations", Statement: stmt, Err: err}
	}
	defer func() { _ = rows.Close() }()

	var out []core.MigrationRecord
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, &core.StoreError{Op: "list migrations", Statement: stmt, Err: err}
		}
		// CHAR columns come back blank-padded on some stores
		out = append(out, core.MigrationRecord{Version: strings.TrimRight(version, " ")})
	}
	if err := rows.Err(); err != nil {
		return nil, &core.StoreError{Op: "list migrations", Statement: stmt, Err: err}
	}
	return out, nil
}
