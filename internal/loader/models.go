// Package loader builds model registries from declarative YAML definitions.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leaporm/pkg/core"
	"github.com/leapstack-labs/leaporm/pkg/orm"
	"gopkg.in/yaml.v3"
)

// File is the top-level shape of a models file.
type File struct {
	Models []ModelDef `yaml:"models"`
}

// ModelDef declares one model.
type ModelDef struct {
	Name       string               `yaml:"name"`
	Table      string               `yaml:"table"`
	PrimaryKey string               `yaml:"primary_key"`
	Columns    map[string]ColumnDef `yaml:"columns"`
	Scopes     map[string][]StepDef `yaml:"scopes"`
}

// ColumnDef declares one column.
type ColumnDef struct {
	Type      string   `yaml:"type"`
	Nullable  bool     `yaml:"nullable"`
	MaxLength int      `yaml:"max_length"`
	Column    string   `yaml:"column"`
	Default   any      `yaml:"default"`
	Values    []string `yaml:"values"`
	Unique    bool     `yaml:"unique"`
}

// StepDef is one chain call inside a declarative scope, written as a
// single-key mapping: {verb-or-scope: args}. Args may be a scalar, a list
// (spread as positional arguments) or a mapping (passed as one argument).
// Strings of the form "$n" are replaced with the scope's n-th argument.
type StepDef struct {
	Name string
	Args []any
}

// UnmarshalYAML decodes the single-key mapping form.
func (s *StepDef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		// bare name, e.g. "- latest"
		s.Name = node.Value
		return nil
	}
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return fmt.Errorf("line %d: scope step must be a single-key mapping", node.Line)
	}
	s.Name = node.Content[0].Value

	var raw any
	if err := node.Content[1].Decode(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
	case []any:
		s.Args = v
	default:
		s.Args = []any{v}
	}
	return nil
}

// ScopeProvider supplies scopes defined outside the models file.
type ScopeProvider interface {
	Scopes(model string) (map[string]orm.ScopeFunc, error)
}

// ParseError reports a malformed models file.
type ParseError struct {
	File    string
	Message string
}

func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return e.Message
}

// LoadFile reads the models file at path and builds a registry.
func LoadFile(path string, providers ...ScopeProvider) (*orm.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read models file: %w", err)
	}
	reg, err := Load(bytes.NewReader(data), providers...)
	var perr *ParseError
	if errors.As(err, &perr) {
		perr.File = path
	}
	return reg, err
}

// Load parses a models document and builds a registry. Unknown keys are
// rejected. Scopes from providers are added after the declarative ones; a
// name defined in both places is an error.
func Load(r io.Reader, providers ...ScopeProvider) (*orm.Registry, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, &ParseError{Message: fmt.Sprintf("invalid YAML: %v", err)}
	}

	models := make([]*orm.Model, 0, len(f.Models))
	for i := range f.Models {
		m, err := f.Models[i].build(providers)
		if err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	return orm.NewRegistry(models...)
}

func (d *ModelDef) build(providers []ScopeProvider) (*orm.Model, error) {
	if d.Name == "" {
		return nil, &ParseError{Message: "model without a name"}
	}
	b := orm.Define(d.Name)
	if d.Table != "" {
		b.Table(d.Table)
	}
	if d.PrimaryKey != "" {
		b.PrimaryKey(d.PrimaryKey)
	}
	for field, c := range d.Columns {
		b.Column(field, core.Column{
			Type:         core.ColumnType(c.Type),
			Nullable:     c.Nullable,
			MaxLength:    c.MaxLength,
			ColumnName:   c.Column,
			DefaultValue: c.Default,
			Values:       c.Values,
			Unique:       c.Unique,
		})
	}
	for name, steps := range d.Scopes {
		b.Scope(name, Declarative(steps))
	}
	for _, p := range providers {
		scopes, err := p.Scopes(d.Name)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", d.Name, err)
		}
		for name, fn := range scopes {
			b.Scope(name, fn)
		}
	}
	return b.Build()
}

// Declarative turns a list of steps into a scope function.
func Declarative(steps []StepDef) orm.ScopeFunc {
	steps = append([]StepDef(nil), steps...)
	return func(q *orm.Query, args ...any) error {
		for _, step := range steps {
			bound, err := bindArgs(step.Args, args)
			if err != nil {
				return fmt.Errorf("%s: %w", step.Name, err)
			}
			if _, err := q.Invoke(step.Name, bound...); err != nil {
				return err
			}
		}
		return nil
	}
}

func bindArgs(tmpl []any, args []any) ([]any, error) {
	out := make([]any, len(tmpl))
	for i, v := range tmpl {
		bound, err := bindValue(v, args)
		if err != nil {
			return nil, err
		}
		out[i] = bound
	}
	return out, nil
}

func bindValue(v any, args []any) (any, error) {
	switch t := v.(type) {
	case string:
		n, ok := placeholder(t)
		if !ok {
			return t, nil
		}
		if n > len(args) {
			return nil, fmt.Errorf("%w: placeholder %s needs %d arguments, got %d",
				orm.ErrInvalidArguments, t, n, len(args))
		}
		return args[n-1], nil
	case []any:
		return bindArgs(t, args)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			bound, err := bindValue(item, args)
			if err != nil {
				return nil, err
			}
			out[k] = bound
		}
		return out, nil
	default:
		return v, nil
	}
}

// placeholder parses "$n" with n >= 1.
func placeholder(s string) (int, bool) {
	rest, ok := strings.CutPrefix(s, "$")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
