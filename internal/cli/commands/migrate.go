package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/leapstack-labs/leaporm/pkg/migrate"
	"github.com/leapstack-labs/leaporm/pkg/orm"
	"github.com/leapstack-labs/leaporm/pkg/schema"
	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command and its subcommands.
func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply and inspect schema migrations",
		Long: `Apply SQL migrations from the migrations directory and inspect the
migration ledger.

Migration files are named <version>_<name>.sql and use goose annotations;
the statements of the "-- +goose Up" section are applied. Each applied
version is recorded once in the migrations table.`,
	}

	cmd.AddCommand(newMigrateUpCommand())
	cmd.AddCommand(newMigrateStatusCommand())
	cmd.AddCommand(newMigrateEnsureCommand())
	return cmd
}

func newMigrateUpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Example: `  leaporm migrate up
  leaporm migrate up --env prod`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := newMigrateContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			runner, err := newRunner(cc)
			if err != nil {
				return err
			}

			res, err := runner.Run(cmd.Context())
			if cc.Format == FormatJSON {
				if rerr := renderJSON(cc.Out, res); rerr != nil {
					return rerr
				}
				return err
			}

			for _, v := range res.Applied {
				_, _ = fmt.Fprintf(cc.Out, "Applied %s\n", v)
			}
			if res.Failed != "" {
				_, _ = fmt.Fprintf(cc.Out, "Failed %s\n", res.Failed)
			}
			if err != nil {
				return err
			}
			if len(res.Applied) == 0 {
				_, _ = fmt.Fprintln(cc.Out, "No pending migrations")
			}
			return nil
		},
	}
}

func newMigrateStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which migrations are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := newMigrateContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			runner, err := newRunner(cc)
			if err != nil {
				return err
			}
			records, err := migrationStatus(cmd.Context(), runner)
			if err != nil {
				return err
			}
			return renderRecords(cc.Out, cc.Format, []string{"version", "name", "status"}, records)
		},
	}
}

func newMigrateEnsureCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure",
		Short: "Create the migrations table if it does not exist",
		Long: `Create the migrations table if it does not exist. The check runs from
--workers concurrent workers at once; only one table is ever created.`,
		Example: `  leaporm migrate ensure
  leaporm migrate ensure --workers 8`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := newMigrateContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			n := cc.Cfg.Workers
			if n <= 0 {
				n = 1
			}

			ledger := migrate.NewLedger(schema.New(cc.DB.Adapter()), cc.Logger)
			absent, err := ledger.EnsureConcurrently(cmd.Context(), n)
			if err != nil {
				return err
			}

			if cc.Format == FormatJSON {
				return renderJSON(cc.Out, map[string]any{"workers": n, "found_absent": absent})
			}
			if absent == 0 {
				_, _ = fmt.Fprintln(cc.Out, "Migrations table already exists")
				return nil
			}
			_, _ = fmt.Fprintf(cc.Out, "Migrations table ready (%d of %d workers found it absent)\n", absent, n)
			return nil
		},
	}
}

// newMigrateContext connects without requiring a models file.
func newMigrateContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cc := NewCommandContextWithoutDB(cmd)
	adp, err := connect(cmd.Context(), cc.Cfg.Target, cc.Logger)
	if err != nil {
		return nil, nil, err
	}
	cc.DB = orm.NewDB(adp, nil, cc.Logger)
	return cc, func() { _ = adp.Close() }, nil
}

func newRunner(cc *CommandContext) (*migrate.Runner, error) {
	var migrations []migrate.Migration
	if _, err := os.Stat(cc.Cfg.MigrationsDir); err == nil {
		migrations, err = migrate.LoadSQLDir(os.DirFS(cc.Cfg.MigrationsDir), ".")
		if err != nil {
			return nil, err
		}
	} else {
		cc.Logger.Debug("no migrations directory", slog.String("dir", cc.Cfg.MigrationsDir))
	}

	ledger := migrate.NewLedger(schema.New(cc.DB.Adapter()), cc.Logger)
	return migrate.NewRunner(ledger, cc.Logger, migrations...)
}

func migrationStatus(ctx context.Context, runner *migrate.Runner) ([]map[string]any, error) {
	pending, err := runner.Pending(ctx)
	if err != nil {
		return nil, err
	}
	isPending := make(map[string]bool, len(pending))
	for _, m := range pending {
		isPending[m.Version] = true
	}

	migrations := runner.Migrations()
	records := make([]map[string]any, 0, len(migrations))
	for _, m := range migrations {
		status := "applied"
		if isPending[m.Version] {
			status = "pending"
		}
		records = append(records, map[string]any{
			"version": m.Version,
			"name":    m.Name,
			"status":  status,
		})
	}
	return records, nil
}
