// Package server exposes the dashboard over HTTP: the viewer page, a JSON
// API for state and actions, and a Server-Sent Events stream of scene and
// camera updates.
package server

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/philipparndt/meshdash/internal/controller"
	"github.com/philipparndt/meshdash/internal/metrics"
	"github.com/philipparndt/meshdash/internal/ui"
	"github.com/philipparndt/meshdash/pkg/viewer"
)

//go:embed web
var webFS embed.FS

// Dashboard is the part of the controller the HTTP layer drives
type Dashboard interface {
	Layout(ctx context.Context) (ui.Layout, error)
	State(ctx context.Context) (controller.State, error)
	SetResolution(ctx context.Context, r float64) error
	ResetResolution(ctx context.Context) error
	ResetCamera(ctx context.Context) (*viewer.Camera, error)
	Hub() *controller.Hub
}

// Deps are the collaborators of the router
type Deps struct {
	Dashboard Dashboard
	Log       *slog.Logger
	Metrics   *metrics.Dashboard
	// MetricsHandler serves /metrics; nil disables the route
	MetricsHandler http.Handler
	// Heartbeat is the SSE keep-alive interval
	Heartbeat time.Duration
}

// NewRouter wires middleware and routes
func NewRouter(d Deps) http.Handler {
	if d.Heartbeat <= 0 {
		d.Heartbeat = 15 * time.Second
	}
	h := &handlers{dash: d.Dashboard, log: d.Log, heartbeat: d.Heartbeat}

	r := chi.NewRouter()
	r.Use(Recover(d.Log))
	r.Use(Logging(d.Log))
	r.Use(Metrics(d.Metrics))

	static, err := fs.Sub(webFS, "web")
	if err != nil {
		panic(err)
	}
	r.Get("/", h.index(static))
	r.Get("/healthz", h.liveness)
	if d.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", d.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/layout", h.layout)
		r.Get("/state", h.state)
		r.Get("/events", h.events)
		r.Post("/state/resolution", h.setResolution)
		r.Post("/actions/"+ui.ActionResetResolution, h.resetResolution)
		r.Post("/actions/"+ui.ActionResetCamera, h.resetCamera)
	})
	return r
}

// Run serves handler on addr until ctx is cancelled
func Run(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		// event streams end with ctx instead of holding Shutdown open
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
