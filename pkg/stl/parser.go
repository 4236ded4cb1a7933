package stl

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/philipparndt/meshdash/pkg/geometry"
)

const (
	binaryHeaderSize   = 80
	binaryTriangleSize = 50
)

// Parse reads an STL file and returns a Model
// It automatically detects whether the file is ASCII or binary format
func Parse(filename string) (*Model, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ParseBytes(data)
}

// ParseReader reads a complete STL document from r
func ParseReader(r io.Reader) (*Model, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read STL data: %w", err)
	}
	return ParseBytes(data)
}

// ParseBytes parses an in-memory STL document.
// Binary files whose header happens to start with "solid" are recognised by
// their size matching the declared triangle count.
func ParseBytes(data []byte) (*Model, error) {
	if len(data) < 6 {
		return nil, fmt.Errorf("failed to read file header: file too short (%d bytes)", len(data))
	}

	if bytes.HasPrefix(data, []byte("solid")) && !looksBinary(data) {
		return parseASCII(bytes.NewReader(data))
	}

	return parseBinary(bytes.NewReader(data))
}

func looksBinary(data []byte) bool {
	if len(data) < binaryHeaderSize+4 {
		return false
	}
	count := binary.LittleEndian.Uint32(data[binaryHeaderSize : binaryHeaderSize+4])
	return int64(len(data)) == int64(binaryHeaderSize+4)+int64(count)*binaryTriangleSize
}

// parseASCII parses an ASCII STL file
func parseASCII(reader io.Reader) (*Model, error) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	model := NewModel("")

	var currentNormal geometry.Vector3
	var vertices []geometry.Vector3
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		fields := strings.Fields(line)

		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "solid":
			if len(fields) > 1 {
				model.Name = strings.Join(fields[1:], " ")
			}

		case "facet":
			if len(fields) >= 5 && fields[1] == "normal" {
				n, err := parseVector(fields[2:5])
				if err != nil {
					return nil, fmt.Errorf("line %d: invalid normal: %w", lineNo, err)
				}
				currentNormal = n
			}

		case "vertex":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: vertex needs 3 coordinates", lineNo)
			}
			v, err := parseVector(fields[1:4])
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid vertex: %w", lineNo, err)
			}
			vertices = append(vertices, v)

		case "endfacet":
			if len(vertices) == 3 {
				triangle := geometry.NewTriangle(
					currentNormal,
					vertices[0],
					vertices[1],
					vertices[2],
				)
				model.AddTriangle(triangle)
			}
			vertices = vertices[:0]
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading ASCII STL: %w", err)
	}

	return model, nil
}

func parseVector(fields []string) (geometry.Vector3, error) {
	var c [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return geometry.Vector3{}, err
		}
		c[i] = v
	}
	return geometry.NewVector3(c[0], c[1], c[2]), nil
}

// binaryFacet mirrors the on-disk layout of one binary STL triangle
type binaryFacet struct {
	Normal    [3]float32
	V1        [3]float32
	V2        [3]float32
	V3        [3]float32
	Attribute uint16
}

// parseBinary parses a binary STL file
func parseBinary(reader io.Reader) (*Model, error) {
	model := NewModel("")

	header := make([]byte, binaryHeaderSize)
	if _, err := io.ReadFull(reader, header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	headerStr := strings.TrimSpace(string(bytes.TrimRight(header, "\x00")))
	if len(headerStr) > 0 {
		model.Name = headerStr
	}

	var triangleCount uint32
	if err := binary.Read(reader, binary.LittleEndian, &triangleCount); err != nil {
		return nil, fmt.Errorf("failed to read triangle count: %w", err)
	}

	model.Triangles = make([]geometry.Triangle, 0, triangleCount)
	for i := uint32(0); i < triangleCount; i++ {
		var f binaryFacet
		if err := binary.Read(reader, binary.LittleEndian, &f); err != nil {
			return nil, fmt.Errorf("failed to read triangle %d: %w", i, err)
		}

		model.AddTriangle(geometry.NewTriangle(
			toVector(f.Normal),
			toVector(f.V1),
			toVector(f.V2),
			toVector(f.V3),
		))
	}

	return model, nil
}

func toVector(c [3]float32) geometry.Vector3 {
	return geometry.NewVector3(float64(c[0]), float64(c[1]), float64(c[2]))
}
