// LOCATION: internal/loader/controller.go
//
// The controller sits above the orchestrator: it versions selections,
// dedupes concurrent loads of the same selection, discards loads that a
// newer selection superseded, and publishes the committed view atomically.

package loader

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flowscope/flowscope/internal/align"
	"github.com/flowscope/flowscope/internal/engine"
	"github.com/flowscope/flowscope/internal/errors"
	"github.com/flowscope/flowscope/internal/fetch"
	"github.com/flowscope/flowscope/internal/logging"
	"github.com/flowscope/flowscope/internal/manifest"
	"github.com/flowscope/flowscope/internal/observability"
	"github.com/flowscope/flowscope/internal/series"
	"github.com/flowscope/flowscope/internal/stats"
	"github.com/flowscope/flowscope/internal/topology"
	"github.com/flowscope/flowscope/internal/validation"
	"golang.org/x/sync/singleflight"
)

// =============================================================================
// View
// =============================================================================

// View is one committed load: a sampling engine over one store, plus the
// diagnostics its load produced. Views are immutable except for the
// engine's seek cursor, which View serializes behind a mutex so the HTTP
// surface and the REPL can share one engine safely.
type View struct {
	Version     uint64
	Selection   series.Selection
	Diagnostics []align.Diagnostic
	LoadedAt    time.Time

	mu  sync.Mutex
	eng *engine.Engine
}

// Duration returns the committed grid's duration.
func (v *View) Duration() float64 { return v.eng.Duration() }

// GridLen returns the committed grid's length.
func (v *View) GridLen() int { return v.eng.Store().Grid.Len() }

// Layout returns the layout the view is sampled against.
func (v *View) Layout() *topology.Layout { return v.eng.Layout() }

// Sample returns the interpolated snapshot at time t.
func (v *View) Sample(t float64) *engine.Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.eng.Sample(t)
}

// Reset rewinds the engine's seek cursor.
func (v *View) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.eng.Reset()
}

// Stats computes per-series statistics over the committed store.
func (v *View) Stats(accuracy float64) []stats.Summary {
	return stats.Collect(v.eng.Store(), accuracy)
}

// =============================================================================
// Controller
// =============================================================================

// Controller applies selections. Exactly one view is current at a time;
// loads that lose the version race are discarded, never applied.
type Controller struct {
	layout   *topology.Layout
	fetcher  fetch.Fetcher
	manifest *manifest.Manifest
	metrics  *observability.Collector
	log      *slog.Logger

	version atomic.Uint64
	group   singleflight.Group

	mu      sync.Mutex
	current atomic.Pointer[View]
}

// NewController builds a controller over one layout and data source.
func NewController(layout *topology.Layout, fetcher fetch.Fetcher, mf *manifest.Manifest, metrics *observability.Collector) *Controller {
	if mf == nil {
		mf = manifest.Empty()
	}
	if metrics == nil {
		metrics = observability.Nop()
	}
	return &Controller{
		layout:   layout,
		fetcher:  fetcher,
		manifest: mf,
		metrics:  metrics,
		log:      logging.Component("controller"),
	}
}

// Current returns the committed view, or nil before the first successful
// load.
func (c *Controller) Current() *View {
	return c.current.Load()
}

// Select loads the given selection and commits it as the current view.
// Concurrent Selects of the same selection share one load. A load whose
// results arrive after a newer selection has been requested returns
// ErrStaleLoad and leaves the newer view untouched.
func (c *Controller) Select(ctx context.Context, sel series.Selection) (*View, error) {
	if err := validation.ValidateSelection(sel); err != nil {
		return nil, err
	}

	v, err, _ := c.group.Do(sel.String(), func() (interface{}, error) {
		return c.load(ctx, sel)
	})
	if err != nil {
		return nil, err
	}
	return v.(*View), nil
}

func (c *Controller) load(ctx context.Context, sel series.Selection) (*View, error) {
	token := c.version.Add(1)
	ctx = logging.ContextWithSelection(ctx, sel.String())
	ctx = logging.ContextWithLoadVersion(ctx, token)

	c.metrics.LoadsStarted.Inc()
	c.log.Info("load started", "selection", sel.String(), "version", token)

	orch := NewOrchestrator(sel, c.layout, c.fetcher, c.manifest, c.metrics)
	eng, diags, err := orch.Load(ctx)
	if err != nil {
		c.metrics.LoadsFailed.Inc()
		return nil, err
	}

	view := &View{
		Version:     token,
		Selection:   sel,
		Diagnostics: diags,
		LoadedAt:    time.Now().UTC(),
		eng:         eng,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.version.Load() != token {
		// A newer selection was requested while this load was in flight.
		c.metrics.LoadsStale.Inc()
		c.log.Warn("load discarded as stale", "selection", sel.String(), "version", token)
		return nil, errors.ErrStaleLoad
	}

	c.current.Store(view)
	c.metrics.LoadsCompleted.Inc()
	c.metrics.GridLength.Set(float64(view.GridLen()))
	c.metrics.GridDuration.Set(view.Duration())

	return view, nil
}
