package controller

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/philipparndt/meshdash/internal/logger"
	"github.com/philipparndt/meshdash/pkg/decimate"
	"github.com/philipparndt/meshdash/pkg/mesh"
)

// countingDecimator records every reduction it is asked for
type countingDecimator struct {
	mu    sync.Mutex
	calls []float64
	fail  error
}

func (d *countingDecimator) decimate(base *mesh.Mesh, reduction float64) (*mesh.Mesh, error) {
	d.mu.Lock()
	d.calls = append(d.calls, reduction)
	d.mu.Unlock()
	if d.fail != nil {
		return nil, d.fail
	}
	return decimate.Decimate(base, reduction)
}

func (d *countingDecimator) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

func start(t *testing.T, base *mesh.Mesh, d *countingDecimator) *Controller {
	t.Helper()
	c := New(base, Options{
		Decimate: d.decimate,
		Log:      logger.Discard(),
	})
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-errCh; err != nil {
			t.Errorf("Run failed: %v", err)
		}
	})
	return c
}

// inspect runs fn on the event loop. fn must not call t.Fatal since it
// does not run on the test goroutine.
func inspect(t *testing.T, c *Controller, fn func()) {
	t.Helper()
	_, err := c.submit(context.Background(), func() (any, error) {
		fn()
		return nil, nil
	})
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
}

func TestInitialRenderAtDefaultResolution(t *testing.T) {
	d := &countingDecimator{}
	c := start(t, mesh.DefaultSphere(), d)

	st, err := c.State(context.Background())
	if err != nil {
		t.Fatalf("State failed: %v", err)
	}
	if st.Resolution != 0.5 {
		t.Errorf("Resolution failed: expected 0.5, got %v", st.Resolution)
	}
	if len(st.Scene.Actors) != 1 {
		t.Fatalf("Actors failed: expected 1, got %d", len(st.Scene.Actors))
	}
	a := st.Scene.Actors[0]
	if a.Style.Color != "tan" || !a.Style.ShowEdges {
		t.Errorf("Style failed: got %+v", a.Style)
	}
	if a.Resolution != 0.5 {
		t.Errorf("actor Resolution failed: expected 0.5, got %v", a.Resolution)
	}
	if d.count() != 1 {
		t.Errorf("computations failed: expected 1, got %d", d.count())
	}
	if st.Base.Points != 842 {
		t.Errorf("Base.Points failed: expected 842, got %d", st.Base.Points)
	}
}

func TestSetResolutionShowsCachedMesh(t *testing.T) {
	d := &countingDecimator{}
	c := start(t, mesh.DefaultSphere(), d)
	ctx := context.Background()

	if err := c.SetResolution(ctx, 0.8); err != nil {
		t.Fatalf("SetResolution failed: %v", err)
	}
	if d.count() != 2 {
		t.Errorf("computations failed: expected 2 after 0.5 -> 0.8, got %d", d.count())
	}

	inspect(t, c, func() {
		actors := c.scene.Actors()
		if len(actors) != 1 {
			t.Errorf("Actors failed: expected 1, got %d", len(actors))
			return
		}
		want, err := c.cache.Get(0.8)
		if err != nil {
			t.Errorf("cache.Get failed: %v", err)
			return
		}
		if actors[0].Mesh != want {
			t.Error("scene failed: expected the cached mesh for 0.8")
		}
		if c.cache.Len() != 2 {
			t.Errorf("cache.Len failed: expected 2, got %d", c.cache.Len())
		}
	})
	if d.count() != 2 {
		t.Errorf("computations failed: expected cache hit, got %d computations", d.count())
	}
}

func TestSequentialChangesNoStaleActor(t *testing.T) {
	d := &countingDecimator{}
	c := start(t, mesh.DefaultSphere(), d)
	ctx := context.Background()

	for _, r := range []float64{0.3, 0.9, 0.3, 1.0, 0.1} {
		if err := c.SetResolution(ctx, r); err != nil {
			t.Fatalf("SetResolution(%v) failed: %v", r, err)
		}
		inspect(t, c, func() {
			actors := c.scene.Actors()
			if len(actors) != 1 {
				t.Errorf("Actors failed: expected 1 at %v, got %d", r, len(actors))
				return
			}
			want, _ := c.cache.Get(r)
			if actors[0].Mesh != want || actors[0].Resolution != r {
				t.Errorf("scene failed: stale actor at %v", r)
			}
		})
	}
	// 0.5 initial, then 0.3, 0.9, 1.0, 0.1; the second 0.3 is a hit
	if d.count() != 5 {
		t.Errorf("computations failed: expected 5, got %d", d.count())
	}
}

func TestFullResolutionKeepsAllFaces(t *testing.T) {
	d := &countingDecimator{}
	base := mesh.DefaultSphere()
	c := start(t, base, d)
	ctx := context.Background()

	if err := c.SetResolution(ctx, 1.0); err != nil {
		t.Fatalf("SetResolution failed: %v", err)
	}
	full, _ := c.State(ctx)
	if err := c.SetResolution(ctx, 0.1); err != nil {
		t.Fatalf("SetResolution failed: %v", err)
	}
	coarse, _ := c.State(ctx)

	if full.Scene.Actors[0].Faces != base.NFaces() {
		t.Errorf("1.0 failed: expected %d faces, got %d", base.NFaces(), full.Scene.Actors[0].Faces)
	}
	if coarse.Scene.Actors[0].Faces >= full.Scene.Actors[0].Faces {
		t.Errorf("0.1 failed: expected fewer faces than %d, got %d",
			full.Scene.Actors[0].Faces, coarse.Scene.Actors[0].Faces)
	}
}

func TestSameResolutionIsNoop(t *testing.T) {
	d := &countingDecimator{}
	c := start(t, mesh.DefaultSphere(), d)
	ctx := context.Background()

	before, _ := c.State(ctx)
	if err := c.SetResolution(ctx, 0.5); err != nil {
		t.Fatalf("SetResolution failed: %v", err)
	}
	after, _ := c.State(ctx)

	if after.Scene.Version != before.Scene.Version {
		t.Errorf("Version failed: expected no redraw, got %d -> %d", before.Scene.Version, after.Scene.Version)
	}
	if d.count() != 1 {
		t.Errorf("computations failed: expected 1, got %d", d.count())
	}
}

func TestResetResolution(t *testing.T) {
	d := &countingDecimator{}
	c := start(t, mesh.DefaultSphere(), d)
	ctx := context.Background()

	if err := c.SetResolution(ctx, 0.2); err != nil {
		t.Fatalf("SetResolution failed: %v", err)
	}
	if err := c.ResetResolution(ctx); err != nil {
		t.Fatalf("ResetResolution failed: %v", err)
	}

	st, _ := c.State(ctx)
	if st.Resolution != 0.5 || st.Scene.Actors[0].Resolution != 0.5 {
		t.Errorf("ResetResolution failed: expected 0.5, got state %v actor %v",
			st.Resolution, st.Scene.Actors[0].Resolution)
	}
	if d.count() != 2 {
		t.Errorf("computations failed: expected 0.5 to be reused, got %d", d.count())
	}
}

func TestSetResolutionOutOfRange(t *testing.T) {
	d := &countingDecimator{}
	c := start(t, mesh.DefaultSphere(), d)

	for _, r := range []float64{0, 0.05, 1.5, -1} {
		if err := c.SetResolution(context.Background(), r); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("SetResolution(%v) failed: expected ErrOutOfRange, got %v", r, err)
		}
	}
	st, _ := c.State(context.Background())
	if st.Resolution != 0.5 {
		t.Errorf("Resolution failed: expected unchanged 0.5, got %v", st.Resolution)
	}
}

func TestDecimationErrorClearsScene(t *testing.T) {
	d := &countingDecimator{}
	c := start(t, mesh.DefaultSphere(), d)
	ctx := context.Background()

	boom := errors.New("boom")
	d.mu.Lock()
	d.fail = boom
	d.mu.Unlock()

	err := c.SetResolution(ctx, 0.7)
	if !errors.Is(err, boom) {
		t.Fatalf("SetResolution failed: expected boom, got %v", err)
	}
	st, _ := c.State(ctx)
	if len(st.Scene.Actors) != 0 {
		t.Errorf("Actors failed: expected empty scene after error, got %d", len(st.Scene.Actors))
	}
	if st.Resolution != 0.7 {
		t.Errorf("Resolution failed: expected 0.7, got %v", st.Resolution)
	}
}

func TestResetCameraPublishes(t *testing.T) {
	d := &countingDecimator{}
	c := start(t, mesh.DefaultSphere(), d)
	ctx := context.Background()

	// wait for the loop so the initial events are in the hub
	if _, err := c.State(ctx); err != nil {
		t.Fatal(err)
	}
	events, cancel := c.Hub().Subscribe()
	defer cancel()

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		ev := <-events
		seen[ev.Type] = true
	}
	if !seen[EventScene] || !seen[EventCamera] {
		t.Fatalf("replay failed: expected scene and camera, got %v", seen)
	}

	cam, err := c.ResetCamera(ctx)
	if err != nil {
		t.Fatalf("ResetCamera failed: %v", err)
	}
	select {
	case ev := <-events:
		if ev.Type != EventCamera {
			t.Fatalf("event failed: expected camera, got %s", ev.Type)
		}
		var got struct {
			Distance float64 `json:"distance"`
		}
		if err := json.Unmarshal(ev.Data, &got); err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
		if got.Distance != cam.Distance {
			t.Errorf("Distance failed: expected %v, got %v", cam.Distance, got.Distance)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event failed: no camera event")
	}
}

func TestReloadReplacesCache(t *testing.T) {
	d := &countingDecimator{}
	c := start(t, mesh.DefaultSphere(), d)
	ctx := context.Background()

	if err := c.SetResolution(ctx, 0.8); err != nil {
		t.Fatal(err)
	}
	small := mesh.Sphere(1, 8, 8)
	if err := c.Reload(ctx, small); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	st, _ := c.State(ctx)
	if st.Base.Points != small.NPoints() {
		t.Errorf("Base failed: expected %d points, got %d", small.NPoints(), st.Base.Points)
	}
	if st.Resolution != 0.8 || st.Scene.Actors[0].Resolution != 0.8 {
		t.Errorf("Resolution failed: expected 0.8 kept, got %v", st.Resolution)
	}
	inspect(t, c, func() {
		if c.cache.Base() != small {
			t.Error("cache failed: expected new base mesh")
		}
		if c.cache.Len() != 1 {
			t.Errorf("cache.Len failed: expected 1, got %d", c.cache.Len())
		}
	})
	layout, err := c.Layout(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if layout.Title != "n points = 50" {
		t.Errorf("Title failed: got %q", layout.Title)
	}
}

func TestSubmitAfterStop(t *testing.T) {
	c := New(mesh.Sphere(1, 8, 8), Options{Log: logger.Discard()})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	if _, err := c.State(context.Background()); err != nil {
		t.Fatalf("State failed: %v", err)
	}
	cancel()
	<-done

	if err := c.ResetResolution(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("ResetResolution failed: expected ErrStopped, got %v", err)
	}
}

func TestSetResolutionClampsSliderEnds(t *testing.T) {
	d := &countingDecimator{}
	base := mesh.DefaultSphere()
	c := start(t, base, d)
	ctx := context.Background()

	if err := c.SetResolution(ctx, 1.000000001); err != nil {
		t.Fatalf("SetResolution(1.000000001) failed: %v", err)
	}
	st, _ := c.State(ctx)
	if st.Resolution != 1.0 {
		t.Errorf("Resolution failed: expected 1.0, got %v", st.Resolution)
	}
	if len(st.Scene.Actors) != 1 || st.Scene.Actors[0].Faces != base.NFaces() {
		t.Errorf("scene failed: expected full mesh at 1.0, got %d actors", len(st.Scene.Actors))
	}

	if err := c.SetResolution(ctx, 0.0999999999); err != nil {
		t.Fatalf("SetResolution(0.0999999999) failed: %v", err)
	}
	st, _ = c.State(ctx)
	if st.Resolution != 0.1 || len(st.Scene.Actors) != 1 {
		t.Errorf("Resolution failed: expected 0.1 with one actor, got %v with %d", st.Resolution, len(st.Scene.Actors))
	}

	if err := c.SetResolution(ctx, 0.0999999); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("SetResolution(0.0999999) failed: expected ErrOutOfRange, got %v", err)
	}
	st, _ = c.State(ctx)
	if st.Resolution != 0.1 || len(st.Scene.Actors) != 1 {
		t.Errorf("state failed: expected 0.1 kept after rejection, got %v with %d actors", st.Resolution, len(st.Scene.Actors))
	}
}

func TestResetResolutionIgnoresInitialValue(t *testing.T) {
	d := &countingDecimator{}
	c := New(mesh.DefaultSphere(), Options{
		InitialResolution: 0.8,
		Decimate:          d.decimate,
		Log:               logger.Discard(),
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	st, err := c.State(context.Background())
	if err != nil {
		t.Fatalf("State failed: %v", err)
	}
	if st.Resolution != 0.8 {
		t.Errorf("Resolution failed: expected initial 0.8, got %v", st.Resolution)
	}
	if err := c.ResetResolution(context.Background()); err != nil {
		t.Fatalf("ResetResolution failed: %v", err)
	}
	st, _ = c.State(context.Background())
	if st.Resolution != 0.5 || st.Scene.Actors[0].Resolution != 0.5 {
		t.Errorf("ResetResolution failed: expected 0.5, got %v", st.Resolution)
	}
}

func TestInitialResolutionOutsideSliderFallsBack(t *testing.T) {
	for _, r := range []float64{0, 0.05, 1.5} {
		c := New(mesh.Sphere(1, 8, 8), Options{InitialResolution: r, Log: logger.Discard()})
		if got := c.resolution.Get(); got != 0.5 {
			t.Errorf("New(%v) failed: expected 0.5, got %v", r, got)
		}
	}
}
