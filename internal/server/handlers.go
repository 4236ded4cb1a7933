package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/philipparndt/meshdash/internal/controller"
)

type handlers struct {
	dash      Dashboard
	log       *slog.Logger
	heartbeat time.Duration
}

const maxBodyBytes = 1 << 10

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps controller errors to status codes. Anything the
// controller did not classify comes from decimation and is reported as
// unprocessable.
func (h *handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusUnprocessableEntity
	switch {
	case errors.Is(err, controller.ErrStopped):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	h.log.WarnContext(r.Context(), "request failed", "path", r.URL.Path, "status", status, "err", err)
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func (h *handlers) index(static fs.FS) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := fs.ReadFile(static, "index.html")
		if err != nil {
			http.Error(w, "page missing", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(page)
	}
}

func (h *handlers) liveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok\n")
}

func (h *handlers) layout(w http.ResponseWriter, r *http.Request) {
	l, err := h.dash.Layout(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *handlers) state(w http.ResponseWriter, r *http.Request) {
	st, err := h.dash.State(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type resolutionRequest struct {
	Resolution *float64 `json:"resolution"`
}

type resolutionResponse struct {
	Resolution float64 `json:"resolution"`
	Points     int     `json:"points"`
	Faces      int     `json:"faces"`
}

func (h *handlers) setResolution(w http.ResponseWriter, r *http.Request) {
	var req resolutionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("invalid body: %v", err)})
		return
	}
	if req.Resolution == nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "resolution is required"})
		return
	}

	if err := h.dash.SetResolution(r.Context(), *req.Resolution); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeResolution(w, r)
}

func (h *handlers) resetResolution(w http.ResponseWriter, r *http.Request) {
	if err := h.dash.ResetResolution(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeResolution(w, r)
}

func (h *handlers) writeResolution(w http.ResponseWriter, r *http.Request) {
	st, err := h.dash.State(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := resolutionResponse{Resolution: st.Resolution}
	if len(st.Scene.Actors) > 0 {
		resp.Points = st.Scene.Actors[0].Points
		resp.Faces = st.Scene.Actors[0].Faces
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) resetCamera(w http.ResponseWriter, r *http.Request) {
	cam, err := h.dash.ResetCamera(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cam)
}

// events streams hub events as Server-Sent Events until the client leaves
func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	// the server's write timeout would otherwise cut the stream
	_ = rc.SetWriteDeadline(time.Time{})

	events, cancel := h.dash.Hub().Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.log.WarnContext(r.Context(), "event stream unsupported", "err", err)
		return
	}
	h.log.DebugContext(r.Context(), "event stream opened")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.log.DebugContext(r.Context(), "event stream closed")
			return
		case <-ticker.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, ev.Data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
