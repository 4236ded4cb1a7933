package stl

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/philipparndt/meshdash/pkg/geometry"
)

// WriteBinary encodes the model as a binary STL document
func WriteBinary(w io.Writer, model *Model) error {
	header := make([]byte, binaryHeaderSize)
	copy(header, model.Name)
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(len(model.Triangles))); err != nil {
		return fmt.Errorf("failed to write triangle count: %w", err)
	}

	for i, t := range model.Triangles {
		normal := t.Normal
		if normal == (geometry.Vector3{}) {
			normal = t.CalculateNormal()
		}
		f := binaryFacet{
			Normal: fromVector(normal),
			V1:     fromVector(t.V1),
			V2:     fromVector(t.V2),
			V3:     fromVector(t.V3),
		}
		if err := binary.Write(w, binary.LittleEndian, &f); err != nil {
			return fmt.Errorf("failed to write triangle %d: %w", i, err)
		}
	}
	return nil
}

// WriteASCII encodes the model as an ASCII STL document
func WriteASCII(w io.Writer, model *Model) error {
	if _, err := fmt.Fprintf(w, "solid %s\n", model.Name); err != nil {
		return err
	}
	for _, t := range model.Triangles {
		n := t.Normal
		if n == (geometry.Vector3{}) {
			n = t.CalculateNormal()
		}
		if _, err := fmt.Fprintf(w, "  facet normal %g %g %g\n    outer loop\n", n.X, n.Y, n.Z); err != nil {
			return err
		}
		for _, v := range [3]geometry.Vector3{t.V1, t.V2, t.V3} {
			if _, err := fmt.Fprintf(w, "      vertex %g %g %g\n", v.X, v.Y, v.Z); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprint(w, "    endloop\n  endfacet\n"); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "endsolid %s\n", model.Name)
	return err
}

func fromVector(v geometry.Vector3) [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}
