package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	var verifyOnly bool

	cmd := &cobra.Command{
		Use:   "journal <player>",
		Short: "Show and verify the turn journal of a player's latest mission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rootOpts.openApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.Journal == nil {
				return NewExitError(ExitCommandError, "journal is disabled (GALACTIC_JOURNAL=false)")
			}

			var missionID string
			if view, err := a.Controller.ViewStatus(ctx, args[0]); err == nil && view.State != nil {
				missionID = view.State.MissionID
			}
			if missionID == "" {
				if missionID, err = a.Journal.LatestMission(ctx, args[0]); err != nil {
					return WrapExitError(ExitFailure, "find mission", err)
				}
			}
			if missionID == "" {
				return NewExitError(ExitFailure, fmt.Sprintf("no journaled mission for %q", args[0]))
			}

			verification, err := a.Journal.Verify(ctx, missionID)
			if err != nil {
				return WrapExitError(ExitFailure, "verify journal", err)
			}

			out := cmd.OutOrStdout()
			if rootOpts.Format == "json" {
				payload := map[string]interface{}{"verification": verification}
				if !verifyOnly {
					entries, err := a.Journal.Entries(ctx, missionID)
					if err != nil {
						return WrapExitError(ExitFailure, "read journal", err)
					}
					payload["entries"] = entries
				}
				if err := writeJSON(out, payload); err != nil {
					return err
				}
			} else {
				if !verifyOnly {
					entries, err := a.Journal.Entries(ctx, missionID)
					if err != nil {
						return WrapExitError(ExitFailure, "read journal", err)
					}
					for _, e := range entries {
						action := string(e.Turn.Action)
						if action == "" {
							action = "start"
						}
						fmt.Fprintf(out, "%4d %-7s day=%d credits=%d hash=%s\n",
							e.Seq, action, e.Turn.State.DaysSurvived, e.Turn.State.Credits, e.Hash[:12])
					}
				}
				if verification.Valid {
					fmt.Fprintf(out, "Mission %s: %d entries, chain intact\n", missionID, verification.Entries)
				} else {
					fmt.Fprintf(out, "Mission %s: chain broken at entry %d (%s)\n", missionID, verification.BrokenAt, verification.Reason)
				}
			}

			if !verification.Valid {
				return NewExitError(ExitFailure, "journal chain is broken")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&verifyOnly, "verify-only", false, "only check the hash chain")

	return cmd
}
