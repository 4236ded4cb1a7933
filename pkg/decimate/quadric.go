package decimate

import (
	"math"

	"github.com/philipparndt/meshdash/pkg/geometry"
)

// quadric is a symmetric 4x4 error matrix stored as its upper triangle:
// a², ab, ac, ad, b², bc, bd, c², cd, d²
type quadric [10]float64

// planeQuadric returns the squared-distance quadric of the plane n·p + d = 0
// scaled by weight. n must be unit length.
func planeQuadric(n geometry.Vector3, d, weight float64) quadric {
	a, b, c := n.X, n.Y, n.Z
	return quadric{
		weight * a * a, weight * a * b, weight * a * c, weight * a * d,
		weight * b * b, weight * b * c, weight * b * d,
		weight * c * c, weight * c * d,
		weight * d * d,
	}
}

func (q *quadric) add(o quadric) {
	for i := range q {
		q[i] += o[i]
	}
}

func (q quadric) sum(o quadric) quadric {
	q.add(o)
	return q
}

// eval returns the quadric error at v
func (q quadric) eval(v geometry.Vector3) float64 {
	x, y, z := v.X, v.Y, v.Z
	e := q[0]*x*x + 2*q[1]*x*y + 2*q[2]*x*z + 2*q[3]*x +
		q[4]*y*y + 2*q[5]*y*z + 2*q[6]*y +
		q[7]*z*z + 2*q[8]*z +
		q[9]
	// rounding can push a true zero slightly negative
	return math.Max(e, 0)
}

// minimizer solves for the point of least error. ok is false when the
// system is close to singular.
func (q quadric) minimizer() (geometry.Vector3, bool) {
	a11, a12, a13 := q[0], q[1], q[2]
	a22, a23 := q[4], q[5]
	a33 := q[7]
	b1, b2, b3 := -q[3], -q[6], -q[8]

	det := a11*(a22*a33-a23*a23) - a12*(a12*a33-a23*a13) + a13*(a12*a23-a22*a13)
	scale := math.Abs(a11) + math.Abs(a22) + math.Abs(a33)
	if scale == 0 || math.Abs(det) < 1e-9*scale*scale*scale {
		return geometry.Vector3{}, false
	}

	x := (b1*(a22*a33-a23*a23) - a12*(b2*a33-a23*b3) + a13*(b2*a23-a22*b3)) / det
	y := (a11*(b2*a33-b3*a23) - b1*(a12*a33-a23*a13) + a13*(a12*b3-b2*a13)) / det
	z := (a11*(a22*b3-a23*b2) - a12*(a12*b3-b2*a13) + b1*(a12*a23-a22*a13)) / det

	v := geometry.NewVector3(x, y, z)
	return v, v.IsFinite()
}
