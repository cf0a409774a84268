package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/MJE43/galactic-survival/internal/games"
	"github.com/MJE43/galactic-survival/internal/session"
	"github.com/MJE43/galactic-survival/internal/web"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Game-level failure (no mission, broken journal chain, script error)
	ExitCommandError = 2 // Command error (bad flags, store unreachable)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printView renders a view as plain text.
func printView(w io.Writer, v session.View) {
	for _, n := range v.Notices {
		fmt.Fprintf(w, "[%s] %s\n", strings.ToUpper(n.Level), n.Text)
	}
	if v.State == nil {
		fmt.Fprintln(w, "No active mission. Start one with `galactic start <name>`.")
		return
	}
	printState(w, *v.State)
	if v.Status == session.StatusGameOver {
		fmt.Fprintln(w, "Status: GAME OVER")
	}
}

func printState(w io.Writer, st games.PlayerState) {
	fmt.Fprintf(w, "Mission Status: %s\n", st.PlayerName)
	fmt.Fprintf(w, "  Credits:  %s\n", web.Number(st.Credits))
	fmt.Fprintf(w, "  Oxygen:   %d%%\n", st.Oxygen)
	fmt.Fprintf(w, "  Fuel:     %d%%\n", st.Fuel)
	fmt.Fprintf(w, "  Health:   %d%%\n", st.Health)
	fmt.Fprintf(w, "  Distance: %s light years\n", web.Number(st.DistanceTraveled))
	fmt.Fprintf(w, "  Days:     %s\n", web.Number(st.DaysSurvived))
	fmt.Fprintf(w, "  Planet:   %d\n", st.CurrentPlanet)
}

func printLeaderboard(w io.Writer, entries []games.LeaderboardEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, session.EmptyLeaderboardText)
		return
	}
	fmt.Fprintf(w, "%-4s %-24s %8s %12s\n", "#", "PLAYER", "DAYS", "DISTANCE")
	for i, e := range entries {
		fmt.Fprintf(w, "%-4d %-24s %8s %12s\n", i+1, e.PlayerName, web.Number(e.DaysSurvived), web.Number(e.DistanceTraveled))
	}
}
