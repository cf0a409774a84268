package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MJE43/galactic-survival/internal/store"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the game tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			tables := rootOpts.Config.Tables()
			if sq, ok := a.DB.(*store.SQLiteDB); ok {
				version, err := sq.SchemaVersion(cmd.Context())
				if err != nil {
					return WrapExitError(ExitFailure, "read schema version", err)
				}
				fmt.Fprintf(out, "sqlite schema at version %d (%s)\n", version, rootOpts.Config.SQLitePath)
				return nil
			}
			fmt.Fprintf(out, "%s store migrated: %s, %s\n", rootOpts.Config.Backend,
				tables.Qualified(tables.Game), tables.Qualified(tables.Leaderboard))
			return nil
		},
	}
}
