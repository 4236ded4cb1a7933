package scene

import (
	"testing"

	"github.com/philipparndt/meshdash/pkg/mesh"
)

func TestClearThenAddReplacesActor(t *testing.T) {
	s := New()
	first := NewActor(mesh.Sphere(1, 6, 4), DefaultStyle, 0.5)
	second := NewActor(mesh.Sphere(1, 8, 6), DefaultStyle, 0.8)

	s.Add(first)
	s.Clear()
	s.Add(second)

	actors := s.Actors()
	if len(actors) != 1 {
		t.Fatalf("Actors failed: expected 1, got %d", len(actors))
	}
	if actors[0] != second {
		t.Errorf("Actors failed: stale actor still present")
	}
	if s.Version() != 3 {
		t.Errorf("Version failed: expected 3, got %d", s.Version())
	}
}

func TestRenderPublishesSnapshot(t *testing.T) {
	s := New()
	m := mesh.Sphere(1, 6, 4)
	s.Add(NewActor(m, DefaultStyle, 0.5))

	var got []Snapshot
	s.OnRender(func(snap Snapshot) { got = append(got, snap) })
	s.Render()

	if len(got) != 1 {
		t.Fatalf("Render failed: expected 1 snapshot, got %d", len(got))
	}
	snap := got[0]
	if len(snap.Actors) != 1 {
		t.Fatalf("Snapshot failed: expected 1 actor, got %d", len(snap.Actors))
	}
	a := snap.Actors[0]
	if a.Points != m.NPoints() || a.Faces != m.NFaces() {
		t.Errorf("Snapshot failed: expected %d/%d, got %d/%d", m.NPoints(), m.NFaces(), a.Points, a.Faces)
	}
	if a.Style.Color != "tan" || !a.Style.ShowEdges {
		t.Errorf("Style failed: got %+v", a.Style)
	}
	if len(a.Indices) != 3*m.NFaces() {
		t.Errorf("Indices failed: expected %d, got %d", 3*m.NFaces(), len(a.Indices))
	}
}

func TestEmptySceneSnapshot(t *testing.T) {
	snap := New().Snapshot()
	if snap.Actors == nil || len(snap.Actors) != 0 {
		t.Errorf("Snapshot failed: expected empty non-nil actors, got %v", snap.Actors)
	}
}
