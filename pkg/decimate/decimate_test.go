package decimate

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/philipparndt/meshdash/pkg/geometry"
	"github.com/philipparndt/meshdash/pkg/mesh"
)

func grid(n int) *mesh.Mesh {
	points := make([]geometry.Vector3, 0, (n+1)*(n+1))
	for y := 0; y <= n; y++ {
		for x := 0; x <= n; x++ {
			points = append(points, geometry.NewVector3(float64(x), float64(y), 0))
		}
	}
	idx := func(x, y int) int { return y*(n+1) + x }
	faces := make([][3]int, 0, 2*n*n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			faces = append(faces,
				[3]int{idx(x, y), idx(x+1, y), idx(x+1, y+1)},
				[3]int{idx(x, y), idx(x+1, y+1), idx(x, y+1)},
			)
		}
	}
	m, _ := mesh.New("grid", points, faces)
	return m
}

func edgeUse(m *mesh.Mesh) map[[2]int]int {
	edges := make(map[[2]int]int)
	for _, f := range m.Faces {
		for k := 0; k < 3; k++ {
			edges[edgeKey(f[k], f[(k+1)%3])]++
		}
	}
	return edges
}

func TestDecimateInvalidReduction(t *testing.T) {
	m := mesh.DefaultSphere()
	for _, r := range []float64{-0.1, 1, 1.5, math.NaN()} {
		if _, err := Decimate(m, r); !errors.Is(err, ErrInvalidReduction) {
			t.Errorf("reduction %v: expected ErrInvalidReduction, got %v", r, err)
		}
	}
}

func TestDecimateEmpty(t *testing.T) {
	if _, err := Decimate(&mesh.Mesh{}, 0.5); !errors.Is(err, mesh.ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
}

func TestDecimateZeroReductionKeepsEverything(t *testing.T) {
	m := mesh.DefaultSphere()
	out, err := Decimate(m, 0)
	if err != nil {
		t.Fatalf("Decimate failed: %v", err)
	}
	if out.NFaces() != m.NFaces() {
		t.Errorf("NFaces failed: expected %d, got %d", m.NFaces(), out.NFaces())
	}
	if out.NPoints() != m.NPoints() {
		t.Errorf("NPoints failed: expected %d, got %d", m.NPoints(), out.NPoints())
	}
	if out == m {
		t.Errorf("Decimate returned the input mesh instead of a new one")
	}
}

func TestDecimateReachesTarget(t *testing.T) {
	m := mesh.DefaultSphere()
	for _, r := range []float64{0.2, 0.5, 0.9} {
		out, err := Decimate(m, r)
		if err != nil {
			t.Fatalf("reduction %v: Decimate failed: %v", r, err)
		}
		target := int(math.Round(float64(m.NFaces()) * (1 - r)))
		if out.NFaces() > target {
			t.Errorf("reduction %v: expected at most %d faces, got %d", r, target, out.NFaces())
		}
		if out.NFaces() < target-2 {
			t.Errorf("reduction %v: overshot target %d, got %d", r, target, out.NFaces())
		}
	}
}

func TestDecimateIsMonotonic(t *testing.T) {
	m := mesh.DefaultSphere()
	prev := m.NFaces() + 1
	for _, r := range []float64{0, 0.3, 0.6, 0.9} {
		out, err := Decimate(m, r)
		if err != nil {
			t.Fatalf("reduction %v: Decimate failed: %v", r, err)
		}
		if out.NFaces() >= prev {
			t.Errorf("reduction %v: expected fewer than %d faces, got %d", r, prev, out.NFaces())
		}
		prev = out.NFaces()
	}
}

func TestDecimateKeepsSphereClosed(t *testing.T) {
	out, err := Decimate(mesh.DefaultSphere(), 0.5)
	if err != nil {
		t.Fatalf("Decimate failed: %v", err)
	}
	for e, n := range edgeUse(out) {
		if n != 2 {
			t.Fatalf("edge %v used by %d faces, expected 2", e, n)
		}
	}
}

func TestDecimateStaysNearSurface(t *testing.T) {
	out, err := Decimate(mesh.DefaultSphere(), 0.8)
	if err != nil {
		t.Fatalf("Decimate failed: %v", err)
	}
	for i, p := range out.Points {
		r := p.Length()
		if r < 0.35 || r > 0.6 {
			t.Errorf("point %d drifted off the sphere: radius %v", i, r)
		}
	}
}

func TestDecimateIsDeterministic(t *testing.T) {
	a, err := Decimate(mesh.DefaultSphere(), 0.7)
	if err != nil {
		t.Fatalf("Decimate failed: %v", err)
	}
	b, err := Decimate(mesh.DefaultSphere(), 0.7)
	if err != nil {
		t.Fatalf("Decimate failed: %v", err)
	}
	if !reflect.DeepEqual(a.Points, b.Points) || !reflect.DeepEqual(a.Faces, b.Faces) {
		t.Errorf("two runs with the same input produced different meshes")
	}
}

func TestDecimateDoesNotModifyInput(t *testing.T) {
	m := mesh.DefaultSphere()
	id := m.ID()
	if _, err := Decimate(m, 0.5); err != nil {
		t.Fatalf("Decimate failed: %v", err)
	}
	if m.ID() != id {
		t.Errorf("input mesh was modified")
	}
}

func TestDecimateFlatGridKeepsOutline(t *testing.T) {
	m := grid(8)
	out, err := Decimate(m, 0.5)
	if err != nil {
		t.Fatalf("Decimate failed: %v", err)
	}
	if out.NFaces() >= m.NFaces() {
		t.Fatalf("expected fewer faces than %d, got %d", m.NFaces(), out.NFaces())
	}

	want := m.BoundingBox()
	got := out.BoundingBox()
	if got.Min.Distance(want.Min) > 1e-6 || got.Max.Distance(want.Max) > 1e-6 {
		t.Errorf("outline changed: expected %v, got %v", want, got)
	}
	for i, p := range out.Points {
		if math.Abs(p.Z) > 1e-9 {
			t.Errorf("point %d left the plane: %v", i, p)
		}
	}
	if math.Abs(out.SurfaceArea()-m.SurfaceArea()) > 1e-6 {
		t.Errorf("SurfaceArea failed: expected %v, got %v", m.SurfaceArea(), out.SurfaceArea())
	}
}
