package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/MJE43/galactic-survival/internal/scripting"
	"github.com/MJE43/galactic-survival/internal/session"
)

// AutopilotOptions holds flags for the autopilot command.
type AutopilotOptions struct {
	Script      string
	MaxTurns    int
	CallTimeout time.Duration
	Start       bool
}

// NewAutopilotCommand creates the autopilot command.
func NewAutopilotCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AutopilotOptions{}

	cmd := &cobra.Command{
		Use:   "autopilot <player>",
		Short: "Let a JavaScript decide() function fly the mission",
		Long: `Run a script against a player's mission. The script defines decide(), which
reads the globals credits, oxygen, fuel, health, distance, days, planet and
events and returns one of MINE, REST, TRAVEL or TRADE. Returning nothing or
calling stop() ends the run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAutopilot(cmd, rootOpts, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Script, "script", "", "path to the autopilot script (required)")
	cmd.Flags().IntVar(&opts.MaxTurns, "max-turns", scripting.DefaultMaxTurns, "maximum number of turns")
	cmd.Flags().DurationVar(&opts.CallTimeout, "call-timeout", time.Second, "time limit for each decide() call")
	cmd.Flags().BoolVar(&opts.Start, "start", false, "start a fresh mission before flying")
	_ = cmd.MarkFlagRequired("script")

	return cmd
}

func runAutopilot(cmd *cobra.Command, rootOpts *RootOptions, opts *AutopilotOptions, player string) error {
	source, err := os.ReadFile(opts.Script)
	if err != nil {
		return WrapExitError(ExitCommandError, "read script", err)
	}

	a, err := rootOpts.openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	if opts.Start {
		if _, err := a.Controller.StartMission(cmd.Context(), player); err != nil {
			return WrapExitError(ExitFailure, "start mission", err)
		}
	}

	rep, err := scripting.Run(cmd.Context(), a.Controller, player, string(source), scripting.Options{
		MaxTurns:    opts.MaxTurns,
		CallTimeout: opts.CallTimeout,
	})
	if errors.Is(err, session.ErrNoMission) {
		return NewExitError(ExitFailure, fmt.Sprintf("no active mission for %q; pass --start", player))
	}

	out := cmd.OutOrStdout()
	if rootOpts.Format == "json" {
		if werr := writeJSON(out, rep); werr != nil {
			return werr
		}
	} else {
		for _, l := range rep.Logs {
			fmt.Fprintf(out, "log: %s\n", l.Message)
		}
		for i, s := range rep.Steps {
			fmt.Fprintf(out, "%3d %-7s credits=%d oxygen=%d fuel=%d health=%d\n",
				i+1, s.Action, s.State.Credits, s.State.Oxygen, s.State.Fuel, s.State.Health)
			for _, e := range s.Events {
				fmt.Fprintf(out, "    ! %s\n", e.Message)
			}
		}
		if err == nil {
			fmt.Fprintf(out, "Autopilot finished after %d turns (%s)\n", rep.Turns, rep.Reason)
			printState(out, rep.Final)
		}
	}
	if err != nil {
		return WrapExitError(ExitFailure, "autopilot", err)
	}
	return nil
}
