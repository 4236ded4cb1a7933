package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/philipparndt/meshdash/internal/loader"
	"github.com/philipparndt/meshdash/internal/logger"
	"github.com/philipparndt/meshdash/pkg/analysis"
	"github.com/philipparndt/meshdash/pkg/decimate"
	"github.com/philipparndt/meshdash/pkg/mesh"
	"github.com/philipparndt/meshdash/pkg/stl"
)

var infoCmd = &cobra.Command{
	Use:   "info [mesh]",
	Short: "Display general information about a mesh",
	Long: `Show point and triangle counts, dimensions, surface area, enclosed volume
and edge statistics of the mesh the dashboard would load for the same
argument. With --resolution the decimated counts are shown as well, and
--output writes the decimated mesh as STL.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInfo,
}

func init() {
	infoCmd.Flags().Float64("resolution", 0, "also decimate to this resolution in (0, 1]")
	infoCmd.Flags().StringP("output", "o", "", "write the decimated mesh to this STL file")
	infoCmd.Flags().Bool("ascii", false, "write ASCII instead of binary STL")
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)
	log := logger.Discard()
	if cmd.Flags().Changed("log-level") {
		log = newLogger(cfg)
	}

	chain, examples := newChain(cfg, log)
	res, err := chain.Load(cmd.Context(), meshArg(args))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, a := range res.Attempts {
		fmt.Fprintf(out, "Skipped %s loader: %v\n", a.Loader, a.Err)
		if errors.Is(a.Err, loader.ErrUnknownExample) {
			fmt.Fprintf(out, "  known examples: %s\n", strings.Join(examples.Names(), ", "))
		}
	}
	printInfo(out, res.Loader, res.Mesh)

	if !cmd.Flags().Changed("resolution") {
		return nil
	}
	r, _ := cmd.Flags().GetFloat64("resolution")
	if r <= 0 || r > 1 {
		return fmt.Errorf("resolution must be in (0, 1], got %v", r)
	}
	start := time.Now()
	dec, err := decimate.Decimate(res.Mesh, 1-r)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nDecimated (resolution %.2f):\n", r)
	fmt.Fprintf(out, "  Points: %d\n", dec.NPoints())
	fmt.Fprintf(out, "  Triangles: %d (%.1f%% of base)\n", dec.NFaces(), 100*float64(dec.NFaces())/float64(res.Mesh.NFaces()))
	fmt.Fprintf(out, "  Time: %s\n", time.Since(start).Round(time.Millisecond))

	if path, _ := cmd.Flags().GetString("output"); path != "" {
		ascii, _ := cmd.Flags().GetBool("ascii")
		if err := writeSTL(path, dec, ascii); err != nil {
			return err
		}
		fmt.Fprintf(out, "  Written: %s\n", path)
	}
	return nil
}

func writeSTL(path string, m *mesh.Mesh, ascii bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	write := stl.WriteBinary
	if ascii {
		write = stl.WriteASCII
	}
	if err := write(f, m.ToSTL()); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func printInfo(out io.Writer, source string, m *mesh.Mesh) {
	result := analysis.Analyze(m)

	fmt.Fprintln(out, "Mesh Information")
	fmt.Fprintln(out, "================")
	if m.Name != "" {
		fmt.Fprintf(out, "Name: %s\n", m.Name)
	}
	fmt.Fprintf(out, "Source: %s\n\n", source)

	fmt.Fprintln(out, "Model Statistics:")
	fmt.Fprintf(out, "  Points: %d\n", result.PointCount)
	fmt.Fprintf(out, "  Triangles: %d\n", result.TriangleCount)
	fmt.Fprintf(out, "  Edges: %d (%d boundary, %d non-manifold)\n", result.EdgeCount, result.BoundaryEdges, result.NonManifold)
	fmt.Fprintf(out, "  Closed: %t (Euler characteristic %d)\n", result.Closed, result.Euler)
	fmt.Fprintf(out, "  Surface Area: %.6f square units\n", result.SurfaceArea)
	if result.Closed {
		fmt.Fprintf(out, "  Volume: %.6f cubic units\n", result.Volume)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Bounding Box:")
	fmt.Fprintf(out, "  Min: %s\n", analysis.FormatVector(result.BoundingBox.Min))
	fmt.Fprintf(out, "  Max: %s\n", analysis.FormatVector(result.BoundingBox.Max))
	fmt.Fprintf(out, "  Center: %s\n\n", analysis.FormatVector(result.BoundingBox.Center()))

	fmt.Fprintln(out, "Dimensions:")
	fmt.Fprintf(out, "  Width (X): %.6f units\n", result.Dimensions.X)
	fmt.Fprintf(out, "  Depth (Y): %.6f units\n", result.Dimensions.Y)
	fmt.Fprintf(out, "  Height (Z): %.6f units\n", result.Dimensions.Z)
	fmt.Fprintf(out, "  Diagonal: %.6f units\n\n", result.BoundingBox.Diagonal())

	fmt.Fprintln(out, "Edge Lengths:")
	fmt.Fprintf(out, "  Minimum: %.6f units\n", result.MinEdgeLength)
	fmt.Fprintf(out, "  Maximum: %.6f units\n", result.MaxEdgeLength)
	fmt.Fprintf(out, "  Average: %.6f units\n", result.AvgEdgeLength)

	if longest := analysis.FindLongestEdges(result, 3); len(longest) > 0 {
		fmt.Fprintln(out, "  Longest:")
		for _, e := range longest {
			fmt.Fprintf(out, "    %d-%d: %.6f units\n", e.A, e.B, e.Length)
		}
	}
	if shortest := analysis.FindShortestEdges(result, 3); len(shortest) > 0 {
		fmt.Fprintln(out, "  Shortest:")
		for _, e := range shortest {
			fmt.Fprintf(out, "    %d-%d: %.6f units\n", e.A, e.B, e.Length)
		}
	}
}
