package config

import (
	"fmt"
	"os"
	"strings"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.ModelsFile == "" {
		return fmt.Errorf("models_file is required")
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q (want debug, info, warn or error)", c.LogLevel)
	}
	switch c.OutputFormat {
	case "", "auto", "table", "json", "csv", "markdown":
	default:
		return fmt.Errorf("invalid output %q (want auto, table, json, csv or markdown)", c.OutputFormat)
	}
	return nil
}

// ValidateModelsFile checks that the models file exists.
// Only commands that load models call it so help works without a project.
func (c *Config) ValidateModelsFile() error {
	if _, err := os.Stat(c.ModelsFile); os.IsNotExist(err) {
		return fmt.Errorf("models file does not exist: %s\nHint: Create it or use --models-file to specify a different path", c.ModelsFile)
	}
	return nil
}
