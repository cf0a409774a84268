// Package cli implements the galactic command line.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MJE43/galactic-survival/internal/app"
	"github.com/MJE43/galactic-survival/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format     string // "json" | "text"
	Backend    string
	SQLitePath string
	Seed       string

	Config config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the galactic CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "galactic",
		Short: "Galactic Survival - a turn-based space survival game",
		Long: "Mine, rest, travel and trade to keep your ship alive. Every action takes a day;\n" +
			"the mission ends when health, oxygen or fuel runs out.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.loadConfig(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Backend, "store", "", "store backend (sqlite|postgres|warehouse); overrides GALACTIC_STORE")
	cmd.PersistentFlags().StringVar(&opts.SQLitePath, "db", "", "SQLite database path; overrides GALACTIC_SQLITE_PATH")
	cmd.PersistentFlags().StringVar(&opts.Seed, "seed", "", "server seed for turn randomness; overrides GALACTIC_SERVER_SEED")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewStartCommand(opts))
	cmd.AddCommand(NewPlayCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewLeaderboardCommand(opts))
	cmd.AddCommand(NewAutopilotCommand(opts))
	cmd.AddCommand(NewJournalCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewAuthCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))

	return cmd
}

// loadConfig reads the environment and applies flag overrides.
func (o *RootOptions) loadConfig(cmd *cobra.Command) error {
	var cfg config.Config
	if err := config.ParseEnv(&cfg); err != nil {
		return WrapExitError(ExitCommandError, "invalid environment", err)
	}
	flags := cmd.Flags()
	if flags.Changed("store") {
		cfg.Backend = o.Backend
	}
	if flags.Changed("db") {
		cfg.SQLitePath = o.SQLitePath
	}
	if flags.Changed("seed") {
		cfg.ServerSeed = o.Seed
	}
	o.Config = cfg
	return nil
}

// openApp validates the configuration and opens the game.
func (o *RootOptions) openApp(ctx context.Context, skipMigrate bool) (*app.App, error) {
	if err := o.Config.Validate(); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	a, err := app.Open(ctx, o.Config, app.Options{SkipMigrate: skipMigrate})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open game store", err)
	}
	return a, nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
