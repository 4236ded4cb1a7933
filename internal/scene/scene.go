// Package scene holds the actors currently shown in the viewport.
package scene

import (
	"strconv"
	"sync"

	"github.com/philipparndt/meshdash/pkg/mesh"
)

// Style is the fixed presentation of a mesh actor
type Style struct {
	Color     string `json:"color"`
	ShowEdges bool   `json:"showEdges"`
}

// DefaultStyle is used for every actor the dashboard adds
var DefaultStyle = Style{Color: "tan", ShowEdges: true}

// Actor is one renderable mesh instance
type Actor struct {
	Mesh       *mesh.Mesh
	Style      Style
	Resolution float64

	payloadOnce sync.Once
	payload     ActorPayload
}

// NewActor wraps m for display
func NewActor(m *mesh.Mesh, style Style, resolution float64) *Actor {
	return &Actor{Mesh: m, Style: style, Resolution: resolution}
}

// ActorPayload is the wire form of an actor sent to browsers
type ActorPayload struct {
	MeshID     string  `json:"meshId"`
	Resolution float64 `json:"resolution"`
	Points     int     `json:"points"`
	Faces      int     `json:"faces"`
	Style      Style   `json:"style"`
	mesh.Buffers
}

// Payload flattens the mesh once and reuses the result
func (a *Actor) Payload() ActorPayload {
	a.payloadOnce.Do(func() {
		a.payload = ActorPayload{
			MeshID:     strconv.FormatUint(a.Mesh.ID(), 16),
			Resolution: a.Resolution,
			Points:     a.Mesh.NPoints(),
			Faces:      a.Mesh.NFaces(),
			Style:      a.Style,
			Buffers:    a.Mesh.Flatten(),
		}
	})
	return a.payload
}

// Snapshot is an immutable view of the scene at one version
type Snapshot struct {
	Version uint64         `json:"version"`
	Actors  []ActorPayload `json:"actors"`
}

// Scene holds zero or more actors; the dashboard keeps at most one. It is
// mutated only from the controller's event loop.
type Scene struct {
	actors   []*Actor
	version  uint64
	onRender []func(Snapshot)
}

func New() *Scene {
	return &Scene{}
}

// Clear removes every actor
func (s *Scene) Clear() {
	s.actors = nil
	s.version++
}

// Add inserts an actor
func (s *Scene) Add(a *Actor) {
	s.actors = append(s.actors, a)
	s.version++
}

// Actors returns the current actors
func (s *Scene) Actors() []*Actor {
	out := make([]*Actor, len(s.actors))
	copy(out, s.actors)
	return out
}

// Version increases with every mutation
func (s *Scene) Version() uint64 {
	return s.version
}

// OnRender registers a sink for rendered snapshots
func (s *Scene) OnRender(fn func(Snapshot)) {
	s.onRender = append(s.onRender, fn)
}

// Snapshot captures the current actors
func (s *Scene) Snapshot() Snapshot {
	snap := Snapshot{Version: s.version, Actors: make([]ActorPayload, 0, len(s.actors))}
	for _, a := range s.actors {
		snap.Actors = append(snap.Actors, a.Payload())
	}
	return snap
}

// Render pushes the current snapshot to every sink
func (s *Scene) Render() Snapshot {
	snap := s.Snapshot()
	for _, fn := range s.onRender {
		fn(snap)
	}
	return snap
}
