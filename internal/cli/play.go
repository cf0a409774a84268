package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MJE43/galactic-survival/internal/games"
	"github.com/MJE43/galactic-survival/internal/session"
)

// NewStartCommand creates the start command.
func NewStartCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "start <player>",
		Short: "Start (or restart) a mission for a player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if name == "" {
				return NewExitError(ExitCommandError, "player name must not be empty")
			}
			a, err := rootOpts.openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			view, err := a.Controller.StartMission(cmd.Context(), name)
			if err != nil {
				return WrapExitError(ExitFailure, "start mission", err)
			}
			return rootOpts.emitView(cmd, view)
		},
	}
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play <player> <action>...",
		Short: "Perform one or more actions on a player's mission",
		Long:  "Perform actions in order. Known actions:\n" + actionHelp(),
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			var view session.View
			for _, action := range args[1:] {
				view, err = a.Controller.PerformAction(cmd.Context(), args[0], action)
				if errors.Is(err, session.ErrNoMission) {
					return NewExitError(ExitFailure, fmt.Sprintf("no active mission for %q; run `galactic start %s`", args[0], args[0]))
				}
				if err != nil {
					return WrapExitError(ExitFailure, "perform action", err)
				}
				if rootOpts.Format == "text" && len(args) > 2 {
					fmt.Fprintf(cmd.OutOrStdout(), "> %s\n", action)
					for _, n := range view.Notices {
						fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", strings.ToUpper(n.Level), n.Text)
					}
					view.Notices = nil
				}
				if view.Status == session.StatusGameOver {
					break
				}
			}
			return rootOpts.emitView(cmd, view)
		},
	}
	return cmd
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <player>",
		Short: "Show a player's mission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			view, err := a.Controller.ViewStatus(cmd.Context(), args[0])
			if err != nil {
				return WrapExitError(ExitFailure, "read status", err)
			}
			return rootOpts.emitView(cmd, view)
		},
	}
}

// NewLeaderboardCommand creates the leaderboard command.
func NewLeaderboardCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "List the longest-surviving missions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.openApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.Controller.ViewLeaderboard(cmd.Context(), limit)
			if err != nil {
				return WrapExitError(ExitFailure, "read leaderboard", err)
			}
			if rootOpts.Format == "json" {
				if entries == nil {
					entries = []games.LeaderboardEntry{}
				}
				return writeJSON(cmd.OutOrStdout(), entries)
			}
			printLeaderboard(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "number of entries (default GALACTIC_LEADERBOARD_SIZE)")
	return cmd
}

func (o *RootOptions) emitView(cmd *cobra.Command, view session.View) error {
	if o.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), view)
	}
	printView(cmd.OutOrStdout(), view)
	return nil
}

func actionHelp() string {
	var b strings.Builder
	for _, spec := range games.ListActions() {
		fmt.Fprintf(&b, "  %-8s %s\n", spec.ID, spec.Effects)
	}
	return b.String()
}
