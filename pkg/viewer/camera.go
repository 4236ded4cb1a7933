// Package viewer computes the camera the browser view resets to.
package viewer

import (
	"math"

	"github.com/philipparndt/meshdash/pkg/geometry"
)

// DefaultFOV is the vertical view angle in degrees
const DefaultFOV = 30.0

// Camera represents a 3D camera for viewing the model
type Camera struct {
	Position geometry.Vector3 `json:"position"`
	Target   geometry.Vector3 `json:"target"`
	Up       geometry.Vector3 `json:"up"`
	FOV      float64          `json:"fov"` // degrees
	Distance float64          `json:"distance"`
	// Near and far clip planes enclosing the bounding sphere
	Near float64 `json:"near"`
	Far  float64 `json:"far"`
}

// NewCamera frames a bounding box from the isometric direction (1, 1, 1),
// far enough away that the bounding sphere fits the view angle
func NewCamera(bbox geometry.BoundingBox) *Camera {
	if bbox.IsEmpty() {
		bbox = geometry.BoundingBox{
			Min: geometry.NewVector3(-0.5, -0.5, -0.5),
			Max: geometry.NewVector3(0.5, 0.5, 0.5),
		}
	}
	center := bbox.Center()
	radius := bbox.Diagonal() / 2
	if radius == 0 {
		radius = 0.5
	}
	distance := radius / math.Sin(DefaultFOV*math.Pi/360)

	c := &Camera{
		Target:   center,
		Up:       geometry.NewVector3(0, 0, 1),
		FOV:      DefaultFOV,
		Distance: distance,
		Near:     math.Max(distance-radius, distance*0.001),
		Far:      distance + radius,
	}
	c.UpdatePosition()
	return c
}

// UpdatePosition places the camera Distance away from Target along the
// isometric diagonal
func (c *Camera) UpdatePosition() {
	dir := geometry.NewVector3(1, 1, 1).Normalize()
	c.Position = c.Target.Add(dir.Mul(c.Distance))
}

// Project projects a 3D point to 2D screen coordinates
func (c *Camera) Project(point geometry.Vector3, width, height float64) (float64, float64, float64) {
	forward := c.Target.Sub(c.Position).Normalize()
	right := forward.Cross(c.Up).Normalize()
	up := right.Cross(forward).Normalize()

	relative := point.Sub(c.Position)
	x := relative.Dot(right)
	y := relative.Dot(up)
	z := relative.Dot(forward)

	if z <= 0.01 {
		z = 0.01
	}

	aspect := width / height
	fovScale := math.Tan(c.FOV * math.Pi / 360)

	screenX := (x/(z*fovScale*aspect))*(width/2) + (width / 2)
	screenY := (-y/(z*fovScale))*(height/2) + (height / 2)

	return screenX, screenY, z
}
