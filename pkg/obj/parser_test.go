package obj

import (
	"strings"
	"testing"

	"github.com/philipparndt/meshdash/pkg/geometry"
)

const quad = `# unit quad
o plane
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vn 0 0 1
f 1/1/1 2/2/1 3/3/1 4/4/1
`

func TestParseQuadIsTriangulated(t *testing.T) {
	model, err := ParseReader(strings.NewReader(quad))
	if err != nil {
		t.Fatalf("ParseReader failed: %v", err)
	}

	if model.Name != "plane" {
		t.Errorf("Name failed: expected %q, got %q", "plane", model.Name)
	}
	if len(model.Vertices) != 4 {
		t.Errorf("Vertices failed: expected 4, got %d", len(model.Vertices))
	}
	if len(model.Faces) != 2 {
		t.Fatalf("Faces failed: expected 2, got %d", len(model.Faces))
	}

	expected := [3]int{0, 2, 3}
	if model.Faces[1] != expected {
		t.Errorf("Face failed: expected %v, got %v", expected, model.Faces[1])
	}
	if model.Vertices[2] != geometry.NewVector3(1, 1, 0) {
		t.Errorf("Vertex failed: got %v", model.Vertices[2])
	}
}

func TestParseNegativeIndices(t *testing.T) {
	doc := "v 0 0 0\nv 1 0 0\nv 0 1 0\nf -3 -2 -1\n"
	model, err := ParseReader(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ParseReader failed: %v", err)
	}
	expected := [3]int{0, 1, 2}
	if model.Faces[0] != expected {
		t.Errorf("Face failed: expected %v, got %v", expected, model.Faces[0])
	}
}

func TestParseOutOfRangeIndex(t *testing.T) {
	doc := "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 4\n"
	if _, err := ParseReader(strings.NewReader(doc)); err == nil {
		t.Errorf("expected an error for an out of range face index")
	}
}

func TestParseZeroIndex(t *testing.T) {
	doc := "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 0 1 2\n"
	if _, err := ParseReader(strings.NewReader(doc)); err == nil {
		t.Errorf("expected an error for a zero face index")
	}
}
