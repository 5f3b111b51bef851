package commands

import (
	"context"
	"io"
	"log/slog"

	"github.com/leapstack-labs/leaporm/internal/cli/config"
	intconfig "github.com/leapstack-labs/leaporm/internal/config"
	"github.com/leapstack-labs/leaporm/internal/loader"
	starctx "github.com/leapstack-labs/leaporm/internal/starlark"
	"github.com/leapstack-labs/leaporm/pkg/adapter"
	"github.com/leapstack-labs/leaporm/pkg/core"
	"github.com/leapstack-labs/leaporm/pkg/orm"
	"github.com/spf13/cobra"

	// Register the bundled adapters.
	_ "github.com/leapstack-labs/leaporm/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/leaporm/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/leaporm/pkg/adapters/sqlite"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg    *config.Config
	Logger *slog.Logger
	DB     *orm.DB
	Out    io.Writer
	Format string
}

// NewCommandContext creates a CommandContext connected to the configured
// target with the project's models loaded.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cc := NewCommandContextWithoutDB(cmd)

	models, err := loadModels(cc.Cfg, cc.Logger)
	if err != nil {
		return nil, nil, err
	}

	adp, err := connect(cmd.Context(), cc.Cfg.Target, cc.Logger)
	if err != nil {
		return nil, nil, err
	}

	cc.DB = orm.NewDB(adp, models, cc.Logger)
	return cc, func() { _ = adp.Close() }, nil
}

// NewCommandContextWithoutDB creates a CommandContext without a connection.
// Useful for commands that only inspect the project.
func NewCommandContextWithoutDB(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	return &CommandContext{
		Cfg:    cfg,
		Logger: config.GetLogger(cmd.Context()),
		Out:    cmd.OutOrStdout(),
		Format: resolveFormat(cfg.OutputFormat, cmd.OutOrStdout()),
	}
}

// getConfig returns the loaded configuration, or defaults when the root
// command did not load one.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	target := &core.TargetConfig{Type: intconfig.DefaultTargetType}
	intconfig.ApplyTargetDefaults(target)
	return &config.Config{
		ModelsFile:    config.DefaultModelsFile,
		ScopesDir:     config.DefaultScopesDir,
		MigrationsDir: config.DefaultMigrationsDir,
		Environment:   config.DefaultEnv,
		LogLevel:      config.DefaultLogLevel,
		OutputFormat:  config.DefaultOutput,
		Target:        target,
	}
}

// loadModels reads the models file and attaches Starlark scopes from the
// scopes directory.
func loadModels(cfg *config.Config, logger *slog.Logger) (*orm.Registry, error) {
	if err := cfg.ValidateModelsFile(); err != nil {
		return nil, err
	}
	scopes := starctx.NewScopeLoader(cfg.ScopesDir, starctx.TargetInfoFromConfig(cfg.Target), logger)
	return loader.LoadFile(cfg.ModelsFile, scopes)
}

func connect(ctx context.Context, target *core.TargetConfig, logger *slog.Logger) (adapter.Adapter, error) {
	adp, err := adapter.Open(ctx, target.AdapterConfig(), logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("connected", slog.String("type", target.Type), slog.String("database", target.Database))
	return adp, nil
}
