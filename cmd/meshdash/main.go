package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/philipparndt/meshdash/version"
)

var rootCmd = &cobra.Command{
	Use:   "meshdash [mesh]",
	Short: "Interactive mesh decimation viewer",
	Long: `meshdash loads a mesh and serves a browser dashboard with a resolution
slider. Moving the slider re-renders the mesh decimated to that resolution.

The optional argument is a path to an STL, OBJ or OpenSCAD file, or the name
of a downloadable example such as "cad_model". Without an argument, or when
the argument cannot be loaded, a sphere is shown.`,
	Args:          cobra.MaximumNArgs(1),
	Version:       version.GetFullVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
