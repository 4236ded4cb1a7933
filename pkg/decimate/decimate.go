// Package decimate reduces the triangle count of a mesh by quadric error
// edge collapse (Garland & Heckbert).
package decimate

import (
	"container/heap"
	"errors"
	"fmt"
	"math"

	"github.com/philipparndt/meshdash/pkg/geometry"
	"github.com/philipparndt/meshdash/pkg/mesh"
)

// ErrInvalidReduction is returned for a target reduction outside [0, 1)
var ErrInvalidReduction = errors.New("target reduction must be in [0, 1)")

// Options tunes the collapse
type Options struct {
	// BoundaryWeight scales the penalty planes added along open borders.
	// Zero lets borders shrink freely.
	BoundaryWeight float64
	// MaxNormalFlip is the smallest allowed cosine between a face normal
	// before and after a collapse.
	MaxNormalFlip float64
}

// DefaultOptions keeps open borders in place and rejects folded faces
func DefaultOptions() Options {
	return Options{
		BoundaryWeight: 1000,
		MaxNormalFlip:  0,
	}
}

// Decimate removes targetReduction of the faces of m: 0.9 leaves roughly
// 10% of the triangles. The input mesh is not modified.
func Decimate(m *mesh.Mesh, targetReduction float64) (*mesh.Mesh, error) {
	return DecimateWithOptions(m, targetReduction, DefaultOptions())
}

// DecimateWithOptions is Decimate with explicit options
func DecimateWithOptions(m *mesh.Mesh, targetReduction float64, opts Options) (*mesh.Mesh, error) {
	if math.IsNaN(targetReduction) || targetReduction < 0 || targetReduction >= 1 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidReduction, targetReduction)
	}
	if m == nil || m.NFaces() == 0 {
		return nil, mesh.ErrEmpty
	}

	target := int(math.Round(float64(m.NFaces()) * (1 - targetReduction)))
	target = max(target, 1)

	c := newCollapser(m, opts)
	c.run(target)
	return c.result(m.Name)
}

// collapser holds the mutable working copy of the mesh during decimation
type collapser struct {
	opts      Options
	points    []geometry.Vector3
	quadrics  []quadric
	faces     [][3]int
	faceAlive []bool
	vertFaces [][]int
	stamp     []uint32
	removed   []bool
	live      int
	queue     candidateHeap
}

func newCollapser(m *mesh.Mesh, opts Options) *collapser {
	c := &collapser{
		opts:      opts,
		points:    make([]geometry.Vector3, len(m.Points)),
		quadrics:  make([]quadric, len(m.Points)),
		faces:     make([][3]int, len(m.Faces)),
		faceAlive: make([]bool, len(m.Faces)),
		vertFaces: make([][]int, len(m.Points)),
		stamp:     make([]uint32, len(m.Points)),
		removed:   make([]bool, len(m.Points)),
		live:      len(m.Faces),
	}
	copy(c.points, m.Points)
	copy(c.faces, m.Faces)

	edgeFaces := make(map[[2]int][]int)
	for fi, f := range c.faces {
		c.faceAlive[fi] = true
		for _, v := range f {
			c.vertFaces[v] = append(c.vertFaces[v], fi)
		}

		cross := c.faceCross(f)
		area := cross.Length() / 2
		for k := 0; k < 3; k++ {
			key := edgeKey(f[k], f[(k+1)%3])
			edgeFaces[key] = append(edgeFaces[key], fi)
		}
		if area == 0 {
			continue
		}
		n := cross.Normalize()
		q := planeQuadric(n, -n.Dot(c.points[f[0]]), area)
		for _, v := range f {
			c.quadrics[v].add(q)
		}
	}

	if opts.BoundaryWeight > 0 {
		for key, fs := range edgeFaces {
			if len(fs) != 1 {
				continue
			}
			c.addBoundaryPenalty(key[0], key[1], fs[0])
		}
	}

	// pop order is fixed by candidateHeap.Less, not by map iteration order
	c.queue = make(candidateHeap, 0, len(edgeFaces))
	for key := range edgeFaces {
		c.queue = append(c.queue, c.evaluate(key[0], key[1]))
	}
	heap.Init(&c.queue)
	return c
}

func edgeKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

func (c *collapser) faceCross(f [3]int) geometry.Vector3 {
	a, b, d := c.points[f[0]], c.points[f[1]], c.points[f[2]]
	return b.Sub(a).Cross(d.Sub(a))
}

// addBoundaryPenalty pins a border edge with a plane perpendicular to its face
func (c *collapser) addBoundaryPenalty(a, b, face int) {
	edge := c.points[b].Sub(c.points[a])
	faceNormal := c.faceCross(c.faces[face]).Normalize()
	n := edge.Cross(faceNormal).Normalize()
	if n.Length() == 0 {
		return
	}
	lengthSq := edge.Dot(edge)
	q := planeQuadric(n, -n.Dot(c.points[a]), c.opts.BoundaryWeight*lengthSq)
	c.quadrics[a].add(q)
	c.quadrics[b].add(q)
}

// evaluate picks the cheapest placement for collapsing edge (a, b)
func (c *collapser) evaluate(a, b int) candidate {
	if a > b {
		a, b = b, a
	}
	q := c.quadrics[a].sum(c.quadrics[b])
	pa, pb := c.points[a], c.points[b]
	mid := pa.Lerp(pb, 0.5)

	best := candidate{a: a, b: b, stampA: c.stamp[a], stampB: c.stamp[b], target: pa, cost: q.eval(pa)}
	options := []geometry.Vector3{pb, mid}
	if opt, ok := q.minimizer(); ok && opt.Distance(mid) <= pa.Distance(pb) {
		options = append([]geometry.Vector3{opt}, options...)
	}
	for _, p := range options {
		if cost := q.eval(p); cost < best.cost {
			best.cost = cost
			best.target = p
		}
	}
	return best
}

func (c *collapser) run(target int) {
	for c.live > target && c.queue.Len() > 0 {
		cand := heap.Pop(&c.queue).(candidate)
		if c.removed[cand.a] || c.removed[cand.b] {
			continue
		}
		if cand.stampA != c.stamp[cand.a] || cand.stampB != c.stamp[cand.b] {
			continue
		}
		if !c.canCollapse(cand.a, cand.b, cand.target) {
			continue
		}
		c.collapse(cand.a, cand.b, cand.target)
	}
}

func (c *collapser) liveFaces(v int) []int {
	out := c.vertFaces[v][:0]
	seen := make(map[int]struct{}, len(c.vertFaces[v]))
	for _, f := range c.vertFaces[v] {
		if !c.faceAlive[f] {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	c.vertFaces[v] = out
	return out
}

func (c *collapser) neighbors(v int) map[int]struct{} {
	out := make(map[int]struct{})
	for _, f := range c.liveFaces(v) {
		for _, u := range c.faces[f] {
			if u != v {
				out[u] = struct{}{}
			}
		}
	}
	return out
}

func contains(f [3]int, v int) bool {
	return f[0] == v || f[1] == v || f[2] == v
}

// canCollapse enforces the link condition, which keeps a manifold mesh
// manifold, and rejects placements that flip or flatten a surviving face
func (c *collapser) canCollapse(a, b int, target geometry.Vector3) bool {
	shared := 0
	for _, f := range c.liveFaces(a) {
		if contains(c.faces[f], b) {
			shared++
		}
	}
	if shared == 0 {
		return false
	}

	nb := c.neighbors(b)
	common := 0
	for u := range c.neighbors(a) {
		if _, ok := nb[u]; ok {
			common++
		}
	}
	if common != shared {
		return false
	}
	// an interior edge joining two border vertices would pinch the surface
	if shared == 2 && c.onBoundary(a) && c.onBoundary(b) {
		return false
	}

	for _, v := range [2]int{a, b} {
		for _, fi := range c.liveFaces(v) {
			f := c.faces[fi]
			if contains(f, a) && contains(f, b) {
				continue
			}
			before := c.faceCross(f)
			moved := f
			for k := range moved {
				if moved[k] == a || moved[k] == b {
					moved[k] = -1
				}
			}
			after := c.crossWith(moved, target)
			if after.Length() == 0 {
				return false
			}
			if before.Normalize().Dot(after.Normalize()) < c.opts.MaxNormalFlip {
				return false
			}
		}
	}
	return true
}

// onBoundary reports whether v touches an edge used by a single face
func (c *collapser) onBoundary(v int) bool {
	uses := make(map[int]int)
	for _, fi := range c.liveFaces(v) {
		for _, u := range c.faces[fi] {
			if u != v {
				uses[u]++
			}
		}
	}
	for _, n := range uses {
		if n == 1 {
			return true
		}
	}
	return false
}

// crossWith computes a face cross product where index -1 stands for target
func (c *collapser) crossWith(f [3]int, target geometry.Vector3) geometry.Vector3 {
	var p [3]geometry.Vector3
	for k, v := range f {
		if v < 0 {
			p[k] = target
		} else {
			p[k] = c.points[v]
		}
	}
	return p[1].Sub(p[0]).Cross(p[2].Sub(p[0]))
}

// collapse merges b into a and places a at target
func (c *collapser) collapse(a, b int, target geometry.Vector3) {
	c.points[a] = target
	c.quadrics[a].add(c.quadrics[b])
	c.removed[b] = true

	for _, fi := range c.liveFaces(b) {
		f := c.faces[fi]
		if contains(f, a) {
			c.faceAlive[fi] = false
			c.live--
			continue
		}
		for k := range f {
			if f[k] == b {
				c.faces[fi][k] = a
			}
		}
		c.vertFaces[a] = append(c.vertFaces[a], fi)
	}
	c.vertFaces[b] = nil

	c.stamp[a]++
	c.stamp[b]++

	for u := range c.neighbors(a) {
		heap.Push(&c.queue, c.evaluate(a, u))
	}
}

// result compacts the surviving points and faces into a new mesh
func (c *collapser) result(name string) (*mesh.Mesh, error) {
	remap := make([]int, len(c.points))
	for i := range remap {
		remap[i] = -1
	}

	points := make([]geometry.Vector3, 0)
	faces := make([][3]int, 0, c.live)
	for fi, f := range c.faces {
		if !c.faceAlive[fi] {
			continue
		}
		var out [3]int
		for k, v := range f {
			if remap[v] < 0 {
				remap[v] = len(points)
				points = append(points, c.points[v])
			}
			out[k] = remap[v]
		}
		faces = append(faces, out)
	}
	return mesh.New(name, points, faces)
}
