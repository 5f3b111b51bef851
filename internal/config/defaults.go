package config

import (
	"github.com/leapstack-labs/leaporm/pkg/core"
)

// Default configuration values.
const (
	DefaultModelsFile    = "models.yaml"
	DefaultScopesDir     = "scopes"
	DefaultMigrationsDir = "migrations"
	DefaultTargetType    = "sqlite"
	DefaultDatabase      = ":memory:"
)

// ApplyDefaults applies default values to a ProjectConfig.
func ApplyDefaults(c *core.ProjectConfig) {
	if c == nil {
		return
	}
	if c.ModelsFile == "" {
		c.ModelsFile = DefaultModelsFile
	}
	if c.ScopesDir == "" {
		c.ScopesDir = DefaultScopesDir
	}
	if c.MigrationsDir == "" {
		c.MigrationsDir = DefaultMigrationsDir
	}
	if c.Workers < 0 {
		c.Workers = 0
	}
}

// ApplyTargetDefaults applies default values to a TargetConfig based on the target type.
func ApplyTargetDefaults(t *core.TargetConfig) {
	if t == nil {
		return
	}

	if t.Schema == "" {
		t.Schema = DefaultSchemaForType(t.Type)
	}

	switch t.Type {
	case "postgres":
		if t.Port == 0 {
			t.Port = 5432
		}
		if t.Host == "" {
			t.Host = "localhost"
		}
	case "sqlite", "duckdb":
		if t.Database == "" {
			t.Database = DefaultDatabase
		}
	}
}
