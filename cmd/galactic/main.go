// Command galactic is the Galactic Survival command line: it serves the game
// over HTTP and plays missions from the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/MJE43/galactic-survival/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
