package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/philipparndt/meshdash/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "meshdash %s\n", version.GetFullVersion())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
