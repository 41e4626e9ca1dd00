package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the bundled instrumented programs available to 'explore'",
	RunE: func(cmd *cobra.Command, args []string) error {
		names := make([]string, 0, len(fixtureRegistry))
		for name := range fixtureRegistry {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, n := range names {
			fmt.Fprintln(cmd.OutOrStdout(), n)
		}
		return nil
	},
}
