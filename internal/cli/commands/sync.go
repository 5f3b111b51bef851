package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewSyncCommand creates the sync command.
func NewSyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Create missing tables for all models",
		Long: `Create the table of every model whose table does not exist yet.
Existing tables are left untouched; sync never alters or drops.`,
		Example: `  leaporm sync
  leaporm sync --database ./blog.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			created, err := cc.DB.Sync(cmd.Context())
			if err != nil {
				return err
			}

			if cc.Format == FormatJSON {
				if created == nil {
					created = []string{}
				}
				return renderJSON(cc.Out, map[string]any{"created": created})
			}
			if len(created) == 0 {
				_, _ = fmt.Fprintln(cc.Out, "All tables exist")
				return nil
			}
			for _, t := range created {
				_, _ = fmt.Fprintf(cc.Out, "Created table %s\n", t)
			}
			return nil
		},
	}
}
