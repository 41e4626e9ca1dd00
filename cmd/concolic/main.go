// Command concolic drives the exploration engine against one of the
// bundled instrumented programs. Loading an arbitrary user program by
// name (the hardest part of a real tool like this) is out of scope;
// this CLI exists to exercise the engine end to end and to give the
// configuration/persistence layers a real process to run in.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is the current version of the concolic CLI.
const Version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "concolic",
	Short:         "Concolic execution engine",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `concolic drives an SMT-guided concolic exploration engine against a
small set of bundled instrumented programs, negating recorded branches
one at a time to discover new execution paths.

Typical invocation:
  concolic explore romanToInt --workers 4 --solver z3 --max-iterations 200
  concolic explore escape --config concolic.yaml --set workers=8
  concolic list`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate("concolic version {{.Version}}\n")
	rootCmd.AddCommand(listCmd, exploreCmd)
}
