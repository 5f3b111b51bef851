package duckdb

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Params holds DuckDB-specific configuration decoded from adapter.Config.Params.
type Params struct {
	// Extensions to install and load before any statement runs (e.g. "json").
	Extensions []string `mapstructure:"extensions"`

	// Settings applied with SET at session level (e.g. memory_limit, threads).
	Settings map[string]string `mapstructure:"settings"`
}

// ParseParams decodes the free-form target params into Params.
// A nil map yields an empty Params.
func ParseParams(raw map[string]any) (*Params, error) {
	params := &Params{}
	if len(raw) == 0 {
		return params, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           params,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create params decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode duckdb params: %w", err)
	}
	return params, nil
}
