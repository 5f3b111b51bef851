// Package config provides configuration management for the leaporm CLI.
//
// It extends the shared project configuration from internal/config with
// CLI-specific fields (log level, output format, named environments).
package config

import (
	sharedcfg "github.com/leapstack-labs/leaporm/internal/config"
	"github.com/leapstack-labs/leaporm/pkg/core"
)

// TargetConfig is an alias for the shared target configuration.
type TargetConfig = core.TargetConfig

// Config holds all CLI configuration options.
type Config struct {
	ModelsFile    string               `koanf:"models_file"`
	ScopesDir     string               `koanf:"scopes_dir"`
	MigrationsDir string               `koanf:"migrations_dir"`
	Workers       int                  `koanf:"workers"`
	Environment   string               `koanf:"environment"`
	LogLevel      string               `koanf:"log_level"`
	OutputFormat  string               `koanf:"output"`
	Target        *TargetConfig        `koanf:"target"`
	Environments  map[string]EnvConfig `koanf:"environments"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// EnvConfig holds environment-specific configuration overrides.
type EnvConfig struct {
	ModelsFile    string        `koanf:"models_file"`
	MigrationsDir string        `koanf:"migrations_dir"`
	Target        *TargetConfig `koanf:"target"`
}

// Project returns the shared project view of the CLI config.
func (c *Config) Project() *core.ProjectConfig {
	return &core.ProjectConfig{
		ModelsFile:    c.ModelsFile,
		ScopesDir:     c.ScopesDir,
		MigrationsDir: c.MigrationsDir,
		Workers:       c.Workers,
		Target:        c.Target,
	}
}

// Default configuration values - uses shared defaults from internal/config
const (
	DefaultModelsFile    = sharedcfg.DefaultModelsFile
	DefaultScopesDir     = sharedcfg.DefaultScopesDir
	DefaultMigrationsDir = sharedcfg.DefaultMigrationsDir
	DefaultEnv           = "dev"
	DefaultLogLevel      = "warn"
	DefaultOutput        = "auto" // table on a terminal, json otherwise
)
