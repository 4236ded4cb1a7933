package stl

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/philipparndt/meshdash/pkg/geometry"
)

const asciiCube = `solid tetra
  facet normal 0 0 -1
    outer loop
      vertex 0 0 0
      vertex 1 0 0
      vertex 0 1 0
    endloop
  endfacet
  facet normal 0 -1 0
    outer loop
      vertex 0 0 0
      vertex 0 0 1
      vertex 1 0 0
    endloop
  endfacet
endsolid tetra
`

func TestParseASCII(t *testing.T) {
	model, err := ParseBytes([]byte(asciiCube))
	if err != nil {
		t.Fatalf("ParseBytes failed: %v", err)
	}

	if model.Name != "tetra" {
		t.Errorf("Name failed: expected %q, got %q", "tetra", model.Name)
	}
	if model.TriangleCount() != 2 {
		t.Fatalf("TriangleCount failed: expected 2, got %d", model.TriangleCount())
	}
	expected := geometry.NewVector3(1, 0, 0)
	if model.Triangles[0].V2 != expected {
		t.Errorf("Vertex failed: expected %v, got %v", expected, model.Triangles[0].V2)
	}
}

func TestParseASCIIInvalidVertex(t *testing.T) {
	doc := "solid bad\nfacet normal 0 0 1\nouter loop\nvertex 0 zero 0\n"
	if _, err := ParseBytes([]byte(doc)); err == nil {
		t.Errorf("expected an error for a malformed vertex")
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	model := NewModel("solid-looking header")
	model.AddTriangle(geometry.NewTriangle(
		geometry.Vector3{},
		geometry.NewVector3(0, 0, 0),
		geometry.NewVector3(2, 0, 0),
		geometry.NewVector3(0, 2, 0),
	))

	var buf bytes.Buffer
	if err := WriteBinary(&buf, model); err != nil {
		t.Fatalf("WriteBinary failed: %v", err)
	}
	if buf.Len() != binaryHeaderSize+4+binaryTriangleSize {
		t.Fatalf("binary size failed: expected %d, got %d", binaryHeaderSize+4+binaryTriangleSize, buf.Len())
	}

	parsed, err := ParseBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseBytes failed: %v", err)
	}
	if parsed.TriangleCount() != 1 {
		t.Fatalf("TriangleCount failed: expected 1, got %d", parsed.TriangleCount())
	}
	if parsed.Triangles[0].V3 != geometry.NewVector3(0, 2, 0) {
		t.Errorf("Vertex failed: got %v", parsed.Triangles[0].V3)
	}
	expectedNormal := geometry.NewVector3(0, 0, 1)
	if parsed.Triangles[0].Normal != expectedNormal {
		t.Errorf("Normal failed: expected %v, got %v", expectedNormal, parsed.Triangles[0].Normal)
	}
}

func TestASCIIRoundTrip(t *testing.T) {
	model, err := ParseBytes([]byte(asciiCube))
	if err != nil {
		t.Fatalf("ParseBytes failed: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteASCII(&buf, model); err != nil {
		t.Fatalf("WriteASCII failed: %v", err)
	}

	again, err := ParseBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseBytes failed: %v", err)
	}
	if again.TriangleCount() != model.TriangleCount() {
		t.Errorf("TriangleCount failed: expected %d, got %d", model.TriangleCount(), again.TriangleCount())
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "part.stl")
	if err := os.WriteFile(path, []byte(asciiCube), 0o644); err != nil {
		t.Fatal(err)
	}

	model, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if model.TriangleCount() != 2 {
		t.Errorf("TriangleCount failed: expected 2, got %d", model.TriangleCount())
	}

	if _, err := Parse(filepath.Join(t.TempDir(), "missing.stl")); err == nil {
		t.Errorf("expected an error for a missing file")
	}
}

func TestParseTooShort(t *testing.T) {
	if _, err := ParseBytes([]byte("so")); err == nil {
		t.Errorf("expected an error for a truncated file")
	}
}
