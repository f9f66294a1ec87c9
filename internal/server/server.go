// Package server exposes the committed view to remote rendering layers
// over an HTTP JSON API.
//
// The rendering contract mirrors the in-process one: read the layout and
// duration once per load, then GET /api/snapshot?t=<seconds> once per
// frame. Snapshot requests never perform I/O against the data source; they
// only interpolate the committed store.
package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/flowscope/flowscope/config"
	"github.com/flowscope/flowscope/internal/errors"
	"github.com/flowscope/flowscope/internal/loader"
	"github.com/flowscope/flowscope/internal/logging"
	"github.com/flowscope/flowscope/internal/observability"
	"github.com/flowscope/flowscope/internal/series"
	"github.com/flowscope/flowscope/internal/topology"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var log = logging.Component("server")

// Server serves the flowscope HTTP API.
type Server struct {
	ctrl     *loader.Controller
	layout   *topology.Layout
	metrics  *observability.Collector
	accuracy float64

	httpServer *http.Server
}

// New builds a server over a controller.
func New(cfg config.ServerConfig, ctrl *loader.Controller, layout *topology.Layout, metrics *observability.Collector, statsAccuracy float64) *Server {
	if metrics == nil {
		metrics = observability.Nop()
	}
	if statsAccuracy <= 0 {
		statsAccuracy = config.DefaultSketchAccuracy
	}

	s := &Server{
		ctrl:     ctrl,
		layout:   layout,
		metrics:  metrics,
		accuracy: statsAccuracy,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/layout", s.handleLayout)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /api/diagnostics", s.handleDiagnostics)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("POST /api/select", s.handleSelect)
	mux.Handle("GET /metrics", metrics.Handler())

	s.httpServer = &http.Server{
		Addr:         cfg.Listen,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

// ListenAndServe serves until Shutdown or a listener error.
func (s *Server) ListenAndServe() error {
	log.Info("http api listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// =============================================================================
// DTOs
// =============================================================================

type nodeDTO struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type linkDTO struct {
	Name string `json:"name"`
	From string `json:"from"`
	To   string `json:"to"`
}

type layoutDTO struct {
	Nodes []nodeDTO `json:"nodes"`
	Links []linkDTO `json:"links"`
}

type stateDTO struct {
	Selection   string  `json:"selection"`
	Version     uint64  `json:"version"`
	GridLen     int     `json:"grid_len"`
	Duration    float64 `json:"duration"`
	LoadedAt    string  `json:"loaded_at"`
	Diagnostics int     `json:"diagnostics"`
}

type directionDTO struct {
	Flow  float64 `json:"flow"`
	Queue float64 `json:"queue"`
}

type linkSampleDTO struct {
	Name    string       `json:"name"`
	Forward directionDTO `json:"forward"`
	Reverse directionDTO `json:"reverse"`
}

type nodeSampleDTO struct {
	Name  string  `json:"name"`
	Queue float64 `json:"queue"`
}

type snapshotDTO struct {
	Time  float64         `json:"time"`
	Links []linkSampleDTO `json:"links"`
	Nodes []nodeSampleDTO `json:"nodes"`
}

type diagnosticDTO struct {
	Resource  string `json:"resource"`
	Kind      string `json:"kind"`
	GridLen   int    `json:"grid_len"`
	SeriesLen int    `json:"series_len"`
	Detail    string `json:"detail,omitempty"`
}

type selectRequest struct {
	Scenario string `json:"scenario"`
	Protocol string `json:"protocol"`
	Load     string `json:"load"`
}

type errorDTO struct {
	Error string `json:"error"`
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	dto := layoutDTO{
		Nodes: make([]nodeDTO, 0, len(s.layout.Nodes)),
		Links: make([]linkDTO, 0, len(s.layout.Links)),
	}
	for _, n := range s.layout.Nodes {
		dto.Nodes = append(dto.Nodes, nodeDTO{Name: n.String(), Kind: string(n.Kind)})
	}
	for _, l := range s.layout.Links {
		dto.Links = append(dto.Links, linkDTO{Name: l.Name(), From: l.From.String(), To: l.To.String()})
	}
	writeJSON(w, http.StatusOK, dto)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	view := s.ctrl.Current()
	if view == nil {
		writeError(w, http.StatusNotFound, "no data available for this selection")
		return
	}
	writeJSON(w, http.StatusOK, stateOf(view))
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	view := s.ctrl.Current()
	if view == nil {
		writeError(w, http.StatusNotFound, "no data available for this selection")
		return
	}

	t, err := strconv.ParseFloat(r.URL.Query().Get("t"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "query parameter t must be a number")
		return
	}

	snap := view.Sample(t)
	s.metrics.SampleCalls.Inc()

	dto := snapshotDTO{
		Time:  snap.Time,
		Links: make([]linkSampleDTO, len(snap.Links)),
		Nodes: make([]nodeSampleDTO, len(snap.Nodes)),
	}
	layout := view.Layout()
	for i, ls := range snap.Links {
		dto.Links[i] = linkSampleDTO{
			Name:    layout.Links[i].Name(),
			Forward: directionDTO{Flow: ls.Forward.Flow, Queue: ls.Forward.Queue},
			Reverse: directionDTO{Flow: ls.Reverse.Flow, Queue: ls.Reverse.Queue},
		}
	}
	for i, q := range snap.Nodes {
		dto.Nodes[i] = nodeSampleDTO{Name: layout.Nodes[i].String(), Queue: q}
	}

	writeJSON(w, http.StatusOK, dto)
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	view := s.ctrl.Current()
	if view == nil {
		writeError(w, http.StatusNotFound, "no data available for this selection")
		return
	}
	out := make([]diagnosticDTO, 0, len(view.Diagnostics))
	for _, d := range view.Diagnostics {
		out = append(out, diagnosticDTO{
			Resource:  d.Resource,
			Kind:      d.Kind.String(),
			GridLen:   d.GridLen,
			SeriesLen: d.SeriesLen,
			Detail:    d.Detail,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	view := s.ctrl.Current()
	if view == nil {
		writeError(w, http.StatusNotFound, "no data available for this selection")
		return
	}
	writeJSON(w, http.StatusOK, view.Stats(s.accuracy))
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sel := series.Selection{Scenario: req.Scenario, Protocol: req.Protocol, Load: req.Load}
	view, err := s.ctrl.Select(r.Context(), sel)
	switch {
	case err == nil:
		view.Reset()
		writeJSON(w, http.StatusOK, stateOf(view))
	case errors.Is(err, errors.ErrStaleLoad):
		// Superseded by a newer selection; the newer view stands.
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, errors.ErrInvalidSelection):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errors.ErrGridUnestablished):
		log.Error("load failed", "selection", sel.String(), "error", err)
		writeError(w, http.StatusNotFound, "no data available for this selection")
	default:
		log.Error("load failed", "selection", sel.String(), "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// =============================================================================
// Helpers
// =============================================================================

func stateOf(view *loader.View) stateDTO {
	return stateDTO{
		Selection:   view.Selection.String(),
		Version:     view.Version,
		GridLen:     view.GridLen(),
		Duration:    view.Duration(),
		LoadedAt:    view.LoadedAt.Format(time.RFC3339),
		Diagnostics: len(view.Diagnostics),
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorDTO{Error: msg})
}
