package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leaporm/pkg/dialect"
	"github.com/leapstack-labs/leaporm/pkg/orm"
	"github.com/spf13/cobra"
)

// NewModelsCommand creates the models command.
func NewModelsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models defined in the project",
		Long: `List every model in the models file with its table, primary key and
scopes. Scopes include both declarative scopes from the models file and
Starlark scopes from the scopes directory.`,
		Example: `  leaporm models
  leaporm models -o json
  leaporm models show Post`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContextWithoutDB(cmd)
			models, err := loadModels(cc.Cfg, cc.Logger)
			if err != nil {
				return err
			}
			return renderModelList(cc, models.Models())
		},
	}

	cmd.AddCommand(newModelsShowCommand())
	return cmd
}

func newModelsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <model>",
		Short: "Show a model's fields and table definition",
		Long: `Show the fields of a model and the CREATE TABLE statements it renders
to for the configured target.`,
		Example: `  leaporm models show Post
  leaporm models show posts --target prod`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContextWithoutDB(cmd)
			models, err := loadModels(cc.Cfg, cc.Logger)
			if err != nil {
				return err
			}
			m, ok := models.Get(args[0])
			if !ok {
				return fmt.Errorf("model %q not found", args[0])
			}
			return renderModel(cc, m)
		},
	}
}

func renderModelList(cc *CommandContext, models []*orm.Model) error {
	records := make([]map[string]any, 0, len(models))
	for _, m := range models {
		scopes := m.ScopeNames()
		if scopes == nil {
			scopes = []string{}
		}
		records = append(records, map[string]any{
			"model":       m.Name(),
			"table":       m.TableName(),
			"primary_key": m.PrimaryKey(),
			"scopes":      scopes,
		})
	}

	if cc.Format == FormatJSON {
		return renderJSON(cc.Out, records)
	}
	for _, r := range records {
		r["scopes"] = strings.Join(r["scopes"].([]string), ", ")
	}
	return renderRecords(cc.Out, cc.Format, []string{"model", "table", "primary_key", "scopes"}, records)
}

func renderModel(cc *CommandContext, m *orm.Model) error {
	fields := make([]map[string]any, 0, len(m.ColumnKeys()))
	for _, key := range m.ColumnKeys() {
		col, _ := m.Column(key)
		name, _ := m.ColumnName(key)
		fields = append(fields, map[string]any{
			"field":    key,
			"column":   name,
			"type":     string(col.Type),
			"nullable": col.Nullable,
			"default":  col.DefaultValue,
		})
	}

	d, ok := dialect.Get(cc.Cfg.Target.Type)
	if !ok {
		return fmt.Errorf("no dialect registered for target type %q", cc.Cfg.Target.Type)
	}
	ddl, err := m.Table().CreateStatements(d)
	if err != nil {
		return fmt.Errorf("failed to render table for model %s: %w", m.Name(), err)
	}

	if cc.Format == FormatJSON {
		return renderJSON(cc.Out, map[string]any{
			"model":       m.Name(),
			"table":       m.TableName(),
			"primary_key": m.PrimaryKey(),
			"scopes":      m.ScopeNames(),
			"fields":      fields,
			"ddl":         ddl,
		})
	}

	_, _ = fmt.Fprintf(cc.Out, "Model: %s\nTable: %s\nPrimary key: %s\n", m.Name(), m.TableName(), m.PrimaryKey())
	if names := m.ScopeNames(); len(names) > 0 {
		_, _ = fmt.Fprintf(cc.Out, "Scopes: %s\n", strings.Join(names, ", "))
	}
	_, _ = fmt.Fprintln(cc.Out)

	if err := renderRecords(cc.Out, cc.Format, []string{"field", "column", "type", "nullable", "default"}, fields); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cc.Out, "\n-- %s\n", d.Name)
	for _, stmt := range ddl {
		_, _ = fmt.Fprintf(cc.Out, "%s;\n", stmt)
	}
	return nil
}
