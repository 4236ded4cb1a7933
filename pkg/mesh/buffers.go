package mesh

// Buffers is the flat array layout consumed by WebGL clients
type Buffers struct {
	Positions []float32 `json:"positions"`
	Normals   []float32 `json:"normals"`
	Indices   []uint32  `json:"indices"`
}

// Flatten converts the mesh into GPU-ready buffers
func (m *Mesh) Flatten() Buffers {
	normals := m.VertexNormals()
	b := Buffers{
		Positions: make([]float32, 0, 3*len(m.Points)),
		Normals:   make([]float32, 0, 3*len(normals)),
		Indices:   make([]uint32, 0, 3*len(m.Faces)),
	}
	for _, p := range m.Points {
		b.Positions = append(b.Positions, float32(p.X), float32(p.Y), float32(p.Z))
	}
	for _, n := range normals {
		b.Normals = append(b.Normals, float32(n.X), float32(n.Y), float32(n.Z))
	}
	for _, f := range m.Faces {
		b.Indices = append(b.Indices, uint32(f[0]), uint32(f[1]), uint32(f[2]))
	}
	return b
}
