// Package analysis computes statistics for the info command.
package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/philipparndt/meshdash/pkg/geometry"
	"github.com/philipparndt/meshdash/pkg/mesh"
)

// EdgeInfo describes one unique edge of an indexed mesh
type EdgeInfo struct {
	A, B   int
	Length float64
	// Faces is the number of triangles using the edge
	Faces int
}

// MeasurementResult contains various measurements of a mesh
type MeasurementResult struct {
	BoundingBox   geometry.BoundingBox
	Dimensions    geometry.Vector3
	BoxVolume     float64
	Volume        float64 // enclosed volume, only meaningful when Closed
	SurfaceArea   float64
	PointCount    int
	TriangleCount int
	EdgeCount     int
	BoundaryEdges int
	NonManifold   int
	Closed        bool
	Euler         int
	MinEdgeLength float64
	MaxEdgeLength float64
	AvgEdgeLength float64
	Edges         []EdgeInfo
}

// Analyze performs comprehensive analysis on a mesh
func Analyze(m *mesh.Mesh) *MeasurementResult {
	result := &MeasurementResult{
		BoundingBox:   m.BoundingBox(),
		SurfaceArea:   m.SurfaceArea(),
		PointCount:    m.NPoints(),
		TriangleCount: m.NFaces(),
	}
	result.Dimensions = result.BoundingBox.Size()
	result.BoxVolume = result.BoundingBox.Volume()

	uses := make(map[[2]int]int)
	for _, f := range m.Faces {
		for k := 0; k < 3; k++ {
			a, b := f[k], f[(k+1)%3]
			if a > b {
				a, b = b, a
			}
			uses[[2]int{a, b}]++
		}
		p0, p1, p2 := m.Points[f[0]], m.Points[f[1]], m.Points[f[2]]
		result.Volume += p0.Dot(p1.Cross(p2)) / 6
	}
	result.Volume = math.Abs(result.Volume)

	result.Edges = make([]EdgeInfo, 0, len(uses))
	for key, n := range uses {
		result.Edges = append(result.Edges, EdgeInfo{
			A:      key[0],
			B:      key[1],
			Length: m.Points[key[0]].Distance(m.Points[key[1]]),
			Faces:  n,
		})
	}
	sort.Slice(result.Edges, func(i, j int) bool {
		if result.Edges[i].A != result.Edges[j].A {
			return result.Edges[i].A < result.Edges[j].A
		}
		return result.Edges[i].B < result.Edges[j].B
	})

	minLength := math.MaxFloat64
	maxLength := 0.0
	totalLength := 0.0
	for _, e := range result.Edges {
		switch {
		case e.Faces == 1:
			result.BoundaryEdges++
		case e.Faces > 2:
			result.NonManifold++
		}
		totalLength += e.Length
		minLength = math.Min(minLength, e.Length)
		maxLength = math.Max(maxLength, e.Length)
	}

	result.EdgeCount = len(result.Edges)
	result.Closed = result.BoundaryEdges == 0 && result.NonManifold == 0
	result.Euler = result.PointCount - result.EdgeCount + result.TriangleCount
	if result.EdgeCount > 0 {
		result.MinEdgeLength = minLength
		result.MaxEdgeLength = maxLength
		result.AvgEdgeLength = totalLength / float64(result.EdgeCount)
	}
	if !result.Closed {
		result.Volume = 0
	}

	return result
}

// FindLongestEdges returns the N longest edges in the mesh
func FindLongestEdges(result *MeasurementResult, count int) []EdgeInfo {
	edges := make([]EdgeInfo, len(result.Edges))
	copy(edges, result.Edges)

	sort.SliceStable(edges, func(i, j int) bool {
		return edges[i].Length > edges[j].Length
	})

	return edges[:min(count, len(edges))]
}

// FindShortestEdges returns the N shortest edges in the mesh
func FindShortestEdges(result *MeasurementResult, count int) []EdgeInfo {
	edges := make([]EdgeInfo, len(result.Edges))
	copy(edges, result.Edges)

	sort.SliceStable(edges, func(i, j int) bool {
		return edges[i].Length < edges[j].Length
	})

	return edges[:min(count, len(edges))]
}

// FormatVector formats a 3D vector
func FormatVector(v geometry.Vector3) string {
	return fmt.Sprintf("(%.6f, %.6f, %.6f)", v.X, v.Y, v.Z)
}
