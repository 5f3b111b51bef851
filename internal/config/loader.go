package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/leapstack-labs/leaporm/pkg/core"
)

// ConfigFileName is the name of the config file.
const ConfigFileName = "leaporm.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "leaporm.yml"

// LoadFromDir loads a ProjectConfig from the given directory.
// Returns nil, nil if no config file is found (not an error condition).
func LoadFromDir(dir string) (*core.ProjectConfig, error) {
	configPath := FindConfigFile(dir)
	if configPath == "" {
		return nil, nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", configPath, err)
	}

	var cfg core.ProjectConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", configPath, err)
	}

	ApplyDefaults(&cfg)
	if cfg.Target != nil {
		cfg.Target.Type = strings.ToLower(cfg.Target.Type)
		ApplyTargetDefaults(cfg.Target)
	}
	ResolvePaths(&cfg, dir)

	return &cfg, nil
}

// ResolvePaths makes the project's relative paths relative to root.
func ResolvePaths(cfg *core.ProjectConfig, root string) {
	cfg.ModelsFile = resolvePath(cfg.ModelsFile, root)
	cfg.ScopesDir = resolvePath(cfg.ScopesDir, root)
	cfg.MigrationsDir = resolvePath(cfg.MigrationsDir, root)
	if t := cfg.Target; t != nil && t.Database != "" && t.Database != DefaultDatabase &&
		(t.Type == "sqlite" || t.Type == "duckdb") {
		t.Database = resolvePath(t.Database, root)
	}
}

func resolvePath(path, root string) string {
	if path == "" || filepath.IsAbs(path) || root == "" {
		return path
	}
	return filepath.Join(root, path)
}

// FindConfigFile finds the config file in the given directory.
// Returns empty string if not found.
func FindConfigFile(dir string) string {
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// FindProjectRoot walks up from the given directory to find a directory
// containing leaporm.yaml or leaporm.yml.
// Returns empty string if not found.
func FindProjectRoot(startDir string) string {
	dir := startDir
	for {
		if FindConfigFile(dir) != "" {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
