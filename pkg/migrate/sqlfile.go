package migrate

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/leapstack-labs/leaporm/pkg/schema"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/sqlparser"
)

// LoadSQLDir reads <version>_<name>.sql files from dir. Each file uses goose
// annotations; the statements of its "-- +goose Up" section become the
// migration. Files are returned in version order by NewRunner.
func LoadSQLDir(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations dir %s: %w", dir, err)
	}

	var out []Migration
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}
		m, err := loadSQLFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func loadSQLFile(fsys fs.FS, file string) (Migration, error) {
	base := path.Base(file)
	if _, err := goose.NumericComponent(base); err != nil {
		return Migration{}, fmt.Errorf("invalid migration file name %s: %w", base, err)
	}
	version, rest, _ := strings.Cut(strings.TrimSuffix(base, ".sql"), "_")
	if err := ValidateVersion(version); err != nil {
		return Migration{}, fmt.Errorf("migration file %s: %w", base, err)
	}

	f, err := fsys.Open(file)
	if err != nil {
		return Migration{}, fmt.Errorf("failed to open migration %s: %w", file, err)
	}
	defer func() { _ = f.Close() }()

	stmts, _, err := sqlparser.ParseSQLMigration(f, sqlparser.DirectionUp, false)
	if err != nil {
		return Migration{}, fmt.Errorf("failed to parse migration %s: %w", file, err)
	}

	return Migration{
		Version: version,
		Name:    rest,
		Up: func(ctx context.Context, s *schema.Schema) error {
			for _, stmt := range stmts {
				if _, err := s.Exec(ctx, stmt); err != nil {
					return err
				}
			}
			return nil
		},
	}, nil
}
