// Package controller owns the dashboard's scene, resolution state and mesh
// cache, and serializes every change through one event loop goroutine.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/philipparndt/meshdash/internal/meshcache"
	"github.com/philipparndt/meshdash/internal/metrics"
	"github.com/philipparndt/meshdash/internal/scene"
	"github.com/philipparndt/meshdash/internal/state"
	"github.com/philipparndt/meshdash/internal/ui"
	"github.com/philipparndt/meshdash/pkg/mesh"
	"github.com/philipparndt/meshdash/pkg/viewer"
)

var (
	// ErrStopped is returned for events submitted after Run has returned
	ErrStopped = errors.New("controller stopped")
	// ErrOutOfRange is returned for resolutions the slider cannot produce
	ErrOutOfRange = errors.New("resolution out of range")
)

// Options configures a Controller
type Options struct {
	// InitialResolution is shown at startup; resets always go back to
	// ui.DefaultResolution
	InitialResolution float64
	CacheSize         int
	// Decimate replaces the decimation routine, mainly for tests
	Decimate meshcache.DecimateFunc
	Metrics  *metrics.Dashboard
	Hub      *Hub
	Log      *slog.Logger
}

// State is the externally visible dashboard state
type State struct {
	Resolution float64        `json:"resolution"`
	Base       BaseInfo       `json:"base"`
	Scene      scene.Snapshot `json:"scene"`
}

// BaseInfo summarizes the undecimated mesh
type BaseInfo struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
	Faces  int    `json:"faces"`
}

type request struct {
	fn    func() (any, error)
	reply chan response
}

type response struct {
	value any
	err   error
}

// Controller is created with New and driven by Run. Its exported methods
// may be called from any goroutine; they block until the event loop has
// handled them.
type Controller struct {
	opts       Options
	log        *slog.Logger
	hub        *Hub
	scene      *scene.Scene
	resolution *state.Resolution
	cache      *meshcache.Cache
	layout     ui.Layout
	camera     *viewer.Camera

	events chan request
	done   chan struct{}
}

// New builds the scene with the fixed actor style, sets the initial
// resolution and declares the toolbar layout. Nothing is drawn until Run.
// An initial resolution outside the slider range falls back to
// ui.DefaultResolution.
func New(base *mesh.Mesh, opts Options) *Controller {
	if math.IsNaN(opts.InitialResolution) || !ui.InRange(opts.InitialResolution) {
		opts.InitialResolution = ui.DefaultResolution
	}
	opts.InitialResolution = ui.Clamp(normalize(opts.InitialResolution))
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Hub == nil {
		opts.Hub = NewHub(4, opts.Metrics)
	}

	c := &Controller{
		opts:       opts,
		log:        opts.Log.With("component", "controller"),
		hub:        opts.Hub,
		scene:      scene.New(),
		resolution: state.NewResolution(opts.InitialResolution),
		events:     make(chan request),
		done:       make(chan struct{}),
	}
	c.setBase(base)
	c.resolution.Subscribe(c.OnResolutionChange)
	c.scene.OnRender(func(snap scene.Snapshot) {
		opts.Metrics.SceneUpdated()
		if err := c.hub.Publish(EventScene, snap); err != nil {
			c.log.Error("publish scene failed", "err", err)
		}
	})
	return c
}

func (c *Controller) newCache(base *mesh.Mesh) *meshcache.Cache {
	opts := []meshcache.Option{
		meshcache.WithSize(c.opts.CacheSize),
		meshcache.WithMetrics(c.opts.Metrics),
	}
	if c.opts.Decimate != nil {
		opts = append(opts, meshcache.WithDecimator(c.opts.Decimate))
	}
	return meshcache.New(base, opts...)
}

func (c *Controller) setBase(base *mesh.Mesh) {
	c.cache = c.newCache(base)
	c.layout = ui.New(base.NPoints(), c.opts.InitialResolution)
	c.camera = viewer.NewCamera(base.BoundingBox())
}

// Hub returns the event hub scene and camera updates are published to
func (c *Controller) Hub() *Hub {
	return c.hub
}

// Run draws the mesh at the current resolution and then handles submitted
// events one at a time until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.done)

	if err := c.OnResolutionChange(c.resolution.Get()); err != nil {
		return fmt.Errorf("initial render: %w", err)
	}
	c.publishCamera()
	c.log.Info("controller started", "resolution", c.resolution.Get())

	for {
		select {
		case <-ctx.Done():
			c.log.Info("controller stopped")
			return nil
		case req := <-c.events:
			v, err := c.handle(req.fn)
			req.reply <- response{value: v, err: err}
		}
	}
}

// handle keeps a panicking handler from taking down the loop
func (c *Controller) handle(fn func() (any, error)) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("event handler panic", "panic", r)
			err = fmt.Errorf("event handler panic: %v", r)
		}
	}()
	return fn()
}

func (c *Controller) submit(ctx context.Context, fn func() (any, error)) (any, error) {
	req := request{fn: fn, reply: make(chan response, 1)}
	select {
	case c.events <- req:
	case <-c.done:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	// the loop always replies once it has accepted a request
	resp := <-req.reply
	return resp.value, resp.err
}

// OnResolutionChange replaces the scene content with the base mesh
// decimated for r. The scene is cleared first, so a failed decimation
// leaves it empty rather than showing a mesh for another resolution.
// It must only run on the event loop.
func (c *Controller) OnResolutionChange(r float64) error {
	c.scene.Clear()
	m, err := c.cache.Get(r)
	if err != nil {
		c.scene.Render()
		return err
	}
	c.scene.Add(scene.NewActor(m, scene.DefaultStyle, r))
	c.scene.Render()
	c.log.Debug("scene updated", "resolution", r, "points", m.NPoints(), "faces", m.NFaces())
	return nil
}

func (c *Controller) publishCamera() {
	if err := c.hub.Publish(EventCamera, c.camera); err != nil {
		c.log.Error("publish camera failed", "err", err)
	}
}

// normalize rounds away float noise from slider arithmetic so equal slider
// positions share one cache entry
func normalize(r float64) float64 {
	return math.Round(r*1e9) / 1e9
}

// SetResolution changes the resolution state and waits for the redraw
func (c *Controller) SetResolution(ctx context.Context, r float64) error {
	if math.IsNaN(r) || !ui.InRange(r) {
		return fmt.Errorf("%w: %v not in [%v, %v]", ErrOutOfRange, r, ui.ResolutionMin, ui.ResolutionMax)
	}
	r = ui.Clamp(normalize(r))
	_, err := c.submit(ctx, func() (any, error) {
		return nil, c.resolution.Set(r)
	})
	return err
}

// ResetResolution sets the resolution back to ui.DefaultResolution
func (c *Controller) ResetResolution(ctx context.Context) error {
	_, err := c.submit(ctx, func() (any, error) {
		return nil, c.resolution.Set(ui.DefaultResolution)
	})
	return err
}

// ResetCamera recomputes the camera framing the base mesh and publishes it
func (c *Controller) ResetCamera(ctx context.Context) (*viewer.Camera, error) {
	v, err := c.submit(ctx, func() (any, error) {
		c.camera = viewer.NewCamera(c.cache.Base().BoundingBox())
		c.publishCamera()
		return c.camera, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*viewer.Camera), nil
}

// Reload swaps the base mesh. The old cache is dropped since its entries
// derive from the previous base, and the scene is redrawn at the current
// resolution.
func (c *Controller) Reload(ctx context.Context, base *mesh.Mesh) error {
	_, err := c.submit(ctx, func() (any, error) {
		c.setBase(base)
		c.layout.Slider.Value = c.resolution.Get()
		if err := c.hub.Publish(EventLayout, c.layout); err != nil {
			c.log.Error("publish layout failed", "err", err)
		}
		c.log.Info("base mesh reloaded", "name", base.Name, "points", base.NPoints(), "faces", base.NFaces())
		if err := c.OnResolutionChange(c.resolution.Get()); err != nil {
			return nil, err
		}
		c.publishCamera()
		return nil, nil
	})
	return err
}

// Layout returns the current toolbar declaration
func (c *Controller) Layout(ctx context.Context) (ui.Layout, error) {
	v, err := c.submit(ctx, func() (any, error) {
		l := c.layout
		l.Buttons = append([]ui.Button(nil), c.layout.Buttons...)
		l.Slider.Value = c.resolution.Get()
		return l, nil
	})
	if err != nil {
		return ui.Layout{}, err
	}
	return v.(ui.Layout), nil
}

// State returns the resolution and the scene as currently drawn
func (c *Controller) State(ctx context.Context) (State, error) {
	v, err := c.submit(ctx, func() (any, error) {
		base := c.cache.Base()
		return State{
			Resolution: c.resolution.Get(),
			Base:       BaseInfo{Name: base.Name, Points: base.NPoints(), Faces: base.NFaces()},
			Scene:      c.scene.Snapshot(),
		}, nil
	})
	if err != nil {
		return State{}, err
	}
	return v.(State), nil
}
