package mesh

import (
	"math"

	"github.com/philipparndt/meshdash/pkg/geometry"
)

// Default sphere parameters used when no mesh could be loaded
const (
	DefaultSphereRadius    = 0.5
	DefaultThetaResolution = 30
	DefaultPhiResolution   = 30
	minSphereThetaSteps    = 3
	minSpherePhiSteps      = 3
	defaultSphereName      = "sphere"
)

// Sphere builds a closed latitude/longitude sphere centred at the origin.
// thetaRes is the number of points around the z axis, phiRes the number of
// points from pole to pole including both poles.
func Sphere(radius float64, thetaRes, phiRes int) *Mesh {
	thetaRes = max(thetaRes, minSphereThetaSteps)
	phiRes = max(phiRes, minSpherePhiSteps)
	rings := phiRes - 2

	points := make([]geometry.Vector3, 0, 2+thetaRes*rings)
	points = append(points,
		geometry.NewVector3(0, 0, radius),
		geometry.NewVector3(0, 0, -radius),
	)
	for i := 0; i < thetaRes; i++ {
		theta := 2 * math.Pi * float64(i) / float64(thetaRes)
		for j := 1; j <= rings; j++ {
			phi := math.Pi * float64(j) / float64(phiRes-1)
			points = append(points, geometry.NewVector3(
				radius*math.Sin(phi)*math.Cos(theta),
				radius*math.Sin(phi)*math.Sin(theta),
				radius*math.Cos(phi),
			))
		}
	}

	ring := func(i, j int) int {
		return 2 + (i%thetaRes)*rings + (j - 1)
	}

	faces := make([][3]int, 0, 2*thetaRes+2*thetaRes*(rings-1))
	for i := 0; i < thetaRes; i++ {
		faces = append(faces, [3]int{0, ring(i, 1), ring(i+1, 1)})
	}
	for i := 0; i < thetaRes; i++ {
		faces = append(faces, [3]int{1, ring(i+1, rings), ring(i, rings)})
	}
	for i := 0; i < thetaRes; i++ {
		for j := 1; j < rings; j++ {
			a, b := ring(i, j), ring(i, j+1)
			c, d := ring(i+1, j+1), ring(i+1, j)
			faces = append(faces, [3]int{a, b, c}, [3]int{a, c, d})
		}
	}

	return &Mesh{Name: defaultSphereName, Points: points, Faces: faces}
}

// DefaultSphere is the fallback mesh: radius 0.5, 30x30 resolution
func DefaultSphere() *Mesh {
	return Sphere(DefaultSphereRadius, DefaultThetaResolution, DefaultPhiResolution)
}
