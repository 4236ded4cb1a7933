// Package obj reads the geometry subset of Wavefront OBJ files.
package obj

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/philipparndt/meshdash/pkg/geometry"
)

// Model holds the vertices and triangulated faces of an OBJ document
type Model struct {
	Name     string
	Vertices []geometry.Vector3
	Faces    [][3]int
}

// Parse reads an OBJ file from disk
func Parse(filename string) (*Model, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return ParseReader(file)
}

// ParseReader reads an OBJ document. Polygons with more than three vertices
// are fan-triangulated; texture coordinates, normals and materials are ignored.
func ParseReader(r io.Reader) (*Model, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	model := &Model{}
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		switch fields[0] {
		case "o":
			if model.Name == "" && len(fields) > 1 {
				model.Name = strings.Join(fields[1:], " ")
			}

		case "v":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: vertex needs 3 coordinates", lineNo)
			}
			var c [3]float64
			for i := 0; i < 3; i++ {
				v, err := strconv.ParseFloat(fields[i+1], 64)
				if err != nil {
					return nil, fmt.Errorf("line %d: invalid coordinate %q: %w", lineNo, fields[i+1], err)
				}
				c[i] = v
			}
			model.Vertices = append(model.Vertices, geometry.NewVector3(c[0], c[1], c[2]))

		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: face needs at least 3 vertices", lineNo)
			}
			idx := make([]int, 0, len(fields)-1)
			for _, ref := range fields[1:] {
				i, err := resolveIndex(ref, len(model.Vertices))
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
				idx = append(idx, i)
			}
			for k := 1; k+1 < len(idx); k++ {
				model.Faces = append(model.Faces, [3]int{idx[0], idx[k], idx[k+1]})
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading OBJ: %w", err)
	}

	return model, nil
}

// resolveIndex converts a face vertex reference like "3", "3/1" or "-1//2"
// into a zero-based vertex index
func resolveIndex(ref string, vertexCount int) (int, error) {
	head, _, _ := strings.Cut(ref, "/")
	n, err := strconv.Atoi(head)
	if err != nil {
		return 0, fmt.Errorf("invalid face index %q: %w", ref, err)
	}

	var i int
	switch {
	case n > 0:
		i = n - 1
	case n < 0:
		i = vertexCount + n
	default:
		return 0, fmt.Errorf("face index %q must not be zero", ref)
	}

	if i < 0 || i >= vertexCount {
		return 0, fmt.Errorf("face index %q out of range (%d vertices)", ref, vertexCount)
	}
	return i, nil
}
