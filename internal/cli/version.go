package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MJE43/galactic-survival/internal/api"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := api.GetVersionInfo()
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), info)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "galactic %s (commit %s, built %s)\n", info.Version, info.GitCommit, info.BuildTime)
			return nil
		},
	}
}
