// Package engine maps query times to interpolated snapshots over a
// committed series store.
//
// Performance contract: Sample is amortized O(1) across a monotonically
// increasing sequence of query times (the expected playback pattern) and
// O(n) immediately after a rewind, where n is the grid length. Sample and
// Reset perform no I/O and allocate nothing beyond the returned snapshot;
// SampleInto allocates nothing when the caller reuses a snapshot.
package engine

import (
	"github.com/flowscope/flowscope/internal/series"
	"github.com/flowscope/flowscope/internal/topology"
)

// =============================================================================
// Snapshot
// =============================================================================

// DirectionSample is the interpolated (flow, queue) pair for one traversal
// direction of one link.
type DirectionSample struct {
	Flow  float64
	Queue float64
}

// LinkSample is the interpolated state of one link.
type LinkSample struct {
	Forward DirectionSample
	Reverse DirectionSample
}

// Snapshot is the complete interpolated result for one query time. Links
// and Nodes are parallel to the layout's Links and Nodes slices.
type Snapshot struct {
	Time  float64
	Links []LinkSample
	Nodes []float64 // aggregated queue value per node
}

// =============================================================================
// Engine
// =============================================================================

// incidentRef points a node at one direction series of one incident link.
type incidentRef struct {
	link    int
	forward bool
}

// Engine interpolates snapshots from one store. It owns the seek cursor and
// is the store's sole reader with mutable state; it is not safe for
// concurrent use without external synchronization.
type Engine struct {
	layout *topology.Layout
	store  *series.Store

	links    []*series.LinkSeries // parallel to layout.Links
	incident [][]incidentRef      // parallel to layout.Nodes
	override [][]float64          // parallel to layout.Nodes; nil = no override
	duration float64

	cursor     int
	cursorTime float64
}

// Option configures an engine.
type Option func(*options)

type options struct {
	overrideKind series.ScalarKind
}

// WithOverrideKind selects which host scalar kind overrides the link-derived
// queue aggregate. Default is ScalarBacklog.
func WithOverrideKind(kind series.ScalarKind) Option {
	return func(o *options) { o.overrideKind = kind }
}

// New builds an engine over a committed store. Links in the layout that are
// absent from the store read as zero series; the orchestrator substitutes
// those before commit, so this is a defensive fallback only.
func New(layout *topology.Layout, store *series.Store, opts ...Option) *Engine {
	o := options{overrideKind: series.ScalarBacklog}
	for _, opt := range opts {
		opt(&o)
	}

	n := store.Grid.Len()

	links := make([]*series.LinkSeries, len(layout.Links))
	for i, link := range layout.Links {
		if ls, ok := store.Links[link.Name()]; ok {
			links[i] = ls
		} else {
			links[i] = series.NewLinkSeries(n)
		}
	}

	incident := make([][]incidentRef, len(layout.Nodes))
	for ni, incs := range layout.Incident() {
		refs := make([]incidentRef, 0, len(incs))
		for _, il := range incs {
			refs = append(refs, incidentRef{link: il.Link, forward: il.Forward})
		}
		incident[ni] = refs
	}

	override := make([][]float64, len(layout.Nodes))
	for ni, node := range layout.Nodes {
		if node.Kind != topology.KindHost {
			continue
		}
		override[ni] = store.HostScalar(node.String(), o.overrideKind)
	}

	return &Engine{
		layout:   layout,
		store:    store,
		links:    links,
		incident: incident,
		override: override,
		duration: store.Grid.Duration(),
	}
}

// Layout returns the layout the engine aggregates over.
func (e *Engine) Layout() *topology.Layout { return e.layout }

// Store returns the committed store.
func (e *Engine) Store() *series.Store { return e.store }

// Duration returns the largest grid timestamp.
func (e *Engine) Duration() float64 { return e.duration }

// Reset returns the seek cursor to its initial state. After Reset, Sample(0)
// is bit-for-bit identical to Sample(0) on a freshly constructed engine over
// the same store.
func (e *Engine) Reset() {
	e.cursor = 0
	e.cursorTime = 0
}

// Sample returns the interpolated snapshot at time t.
func (e *Engine) Sample(t float64) *Snapshot {
	snap := &Snapshot{}
	e.SampleInto(t, snap)
	return snap
}

// SampleInto fills snap with the interpolated snapshot at time t, reusing
// snap's slices when their capacity allows.
//
// t is clamped to [0, Duration()]: querying beyond the end holds the final
// snapshot, never extrapolates. A query earlier than the previous query
// rewinds the cursor to 0 and rescans.
func (e *Engine) SampleInto(t float64, snap *Snapshot) {
	snap.Links = resizeLinks(snap.Links, len(e.links))
	snap.Nodes = resizeNodes(snap.Nodes, len(e.incident))

	n := e.store.Grid.Len()
	if n == 0 {
		snap.Time = 0
		for i := range snap.Links {
			snap.Links[i] = LinkSample{}
		}
		for i := range snap.Nodes {
			snap.Nodes[i] = 0
		}
		return
	}

	if t < 0 {
		t = 0
	}
	if t > e.duration {
		t = e.duration
	}
	snap.Time = t

	// Rewinds rescan from the start; forward playback resumes from the
	// previous bracket.
	if t < e.cursorTime {
		e.cursor = 0
	}
	for e.cursor+1 < n && e.store.Grid.At(e.cursor+1) <= t {
		e.cursor++
	}
	e.cursorTime = t

	i0 := e.cursor
	i1 := i0 + 1
	if i1 >= n {
		i1 = n - 1
	}
	t0 := e.store.Grid.At(i0)
	t1 := e.store.Grid.At(i1)

	f := 0.0
	if t1 > t0 {
		f = (t - t0) / (t1 - t0)
	}

	for li, ls := range e.links {
		snap.Links[li] = LinkSample{
			Forward: DirectionSample{
				Flow:  lerpNonNeg(ls.Forward.Throughput, i0, i1, f),
				Queue: lerpNonNeg(ls.Forward.QueueDepth, i0, i1, f),
			},
			Reverse: DirectionSample{
				Flow:  lerpNonNeg(ls.Reverse.Throughput, i0, i1, f),
				Queue: lerpNonNeg(ls.Reverse.QueueDepth, i0, i1, f),
			},
		}
	}

	// Node aggregation: mean of incident-link queue values in the direction
	// facing the node; hosts with a scalar override use that instead.
	for ni := range e.incident {
		if col := e.override[ni]; col != nil {
			snap.Nodes[ni] = lerpNonNeg(col, i0, i1, f)
			continue
		}

		sum := 0.0
		count := 0
		for _, ref := range e.incident[ni] {
			ls := snap.Links[ref.link]
			if ref.forward {
				sum += ls.Forward.Queue
			} else {
				sum += ls.Reverse.Queue
			}
			count++
		}
		if count > 0 {
			snap.Nodes[ni] = sum / float64(count)
		} else {
			snap.Nodes[ni] = 0
		}
	}
}

// lerpNonNeg interpolates col between i0 and i1 at fraction f, clamped to be
// non-negative against floating noise in the inputs or the arithmetic.
func lerpNonNeg(col []float64, i0, i1 int, f float64) float64 {
	v0 := col[i0]
	v := v0 + (col[i1]-v0)*f
	if v < 0 {
		return 0
	}
	return v
}

func resizeLinks(s []LinkSample, n int) []LinkSample {
	if cap(s) < n {
		return make([]LinkSample, n)
	}
	return s[:n]
}

func resizeNodes(s []float64, n int) []float64 {
	if cap(s) < n {
		return make([]float64, n)
	}
	return s[:n]
}
