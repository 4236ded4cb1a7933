// Package mesh provides the indexed triangle mesh shared by the loaders, the
// decimator and the scene.
package mesh

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/philipparndt/meshdash/pkg/geometry"
	"github.com/philipparndt/meshdash/pkg/obj"
	"github.com/philipparndt/meshdash/pkg/stl"
)

// ErrEmpty is returned when a mesh would have no faces
var ErrEmpty = errors.New("mesh has no faces")

// Mesh is an indexed triangle mesh. A Mesh is treated as immutable once it
// has been handed to a cache or a scene.
type Mesh struct {
	Name   string
	Points []geometry.Vector3
	Faces  [][3]int
}

// New validates the connectivity and returns a mesh
func New(name string, points []geometry.Vector3, faces [][3]int) (*Mesh, error) {
	if len(faces) == 0 {
		return nil, ErrEmpty
	}
	for i, f := range faces {
		for _, idx := range f {
			if idx < 0 || idx >= len(points) {
				return nil, fmt.Errorf("face %d references point %d, mesh has %d points", i, idx, len(points))
			}
		}
	}
	return &Mesh{Name: name, Points: points, Faces: faces}, nil
}

// FromSTL welds the triangle soup of an STL model into an indexed mesh.
// Vertices with identical coordinates become one point.
func FromSTL(model *stl.Model) (*Mesh, error) {
	if model.IsEmpty() {
		return nil, ErrEmpty
	}

	index := make(map[geometry.Vector3]int, len(model.Triangles))
	points := make([]geometry.Vector3, 0, len(model.Triangles))
	faces := make([][3]int, 0, len(model.Triangles))

	weld := func(v geometry.Vector3) int {
		if i, ok := index[v]; ok {
			return i
		}
		i := len(points)
		index[v] = i
		points = append(points, v)
		return i
	}

	for _, t := range model.Triangles {
		f := [3]int{weld(t.V1), weld(t.V2), weld(t.V3)}
		if f[0] == f[1] || f[1] == f[2] || f[0] == f[2] {
			continue
		}
		faces = append(faces, f)
	}

	return New(model.Name, points, faces)
}

// FromOBJ converts a parsed OBJ document
func FromOBJ(model *obj.Model) (*Mesh, error) {
	return New(model.Name, model.Vertices, model.Faces)
}

// NPoints returns the number of points
func (m *Mesh) NPoints() int {
	return len(m.Points)
}

// NFaces returns the number of triangles
func (m *Mesh) NFaces() int {
	return len(m.Faces)
}

// Triangle returns face i as a geometry.Triangle with a computed normal
func (m *Mesh) Triangle(i int) geometry.Triangle {
	f := m.Faces[i]
	t := geometry.Triangle{V1: m.Points[f[0]], V2: m.Points[f[1]], V3: m.Points[f[2]]}
	t.Normal = t.CalculateNormal()
	return t
}

// BoundingBox calculates the bounding box of all referenced points
func (m *Mesh) BoundingBox() geometry.BoundingBox {
	bbox := geometry.NewBoundingBox()
	for _, p := range m.Points {
		bbox.Extend(p)
	}
	return bbox
}

// SurfaceArea sums the area of all faces
func (m *Mesh) SurfaceArea() float64 {
	total := 0.0
	for i := range m.Faces {
		total += m.Triangle(i).Area()
	}
	return total
}

// ToSTL expands the mesh back into an STL triangle soup
func (m *Mesh) ToSTL() *stl.Model {
	model := stl.NewModel(m.Name)
	for i := range m.Faces {
		model.AddTriangle(m.Triangle(i))
	}
	return model
}

// VertexNormals returns area-weighted normals, one per point
func (m *Mesh) VertexNormals() []geometry.Vector3 {
	normals := make([]geometry.Vector3, len(m.Points))
	for _, f := range m.Faces {
		a, b, c := m.Points[f[0]], m.Points[f[1]], m.Points[f[2]]
		// the unnormalised cross product is already weighted by twice the area
		n := b.Sub(a).Cross(c.Sub(a))
		for _, idx := range f {
			normals[idx] = normals[idx].Add(n)
		}
	}
	for i := range normals {
		normals[i] = normals[i].Normalize()
	}
	return normals
}

// ID hashes the geometry and connectivity. Two meshes with the same ID are
// interchangeable as a decimation base.
func (m *Mesh) ID() uint64 {
	h := xxhash.New()
	var buf [8]byte
	for _, p := range m.Points {
		for _, c := range [3]float64{p.X, p.Y, p.Z} {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(c))
			_, _ = h.Write(buf[:])
		}
	}
	for _, f := range m.Faces {
		for _, idx := range f {
			binary.LittleEndian.PutUint64(buf[:], uint64(idx))
			_, _ = h.Write(buf[:])
		}
	}
	return h.Sum64()
}

// Clone returns a deep copy
func (m *Mesh) Clone() *Mesh {
	points := make([]geometry.Vector3, len(m.Points))
	copy(points, m.Points)
	faces := make([][3]int, len(m.Faces))
	copy(faces, m.Faces)
	return &Mesh{Name: m.Name, Points: points, Faces: faces}
}
