// Package series defines the in-memory series store: one timestamp grid per
// selection plus every per-link and per-host value series conformed to it.
//
// A store is assembled once per selection by the load orchestrator and is
// immutable afterwards. The sampling engine reads it; nothing mutates it.
package series

import "fmt"

// =============================================================================
// Selection
// =============================================================================

// Selection identifies which dataset to load: one simulated scenario run
// under one protocol at one offered load level.
type Selection struct {
	Scenario string
	Protocol string
	Load     string
}

// String returns the canonical "scenario/protocol/load" form.
func (s Selection) String() string {
	return s.Scenario + "/" + s.Protocol + "/" + s.Load
}

// IsZero reports whether the selection is empty.
func (s Selection) IsZero() bool {
	return s.Scenario == "" && s.Protocol == "" && s.Load == ""
}

// =============================================================================
// Scalar Kinds
// =============================================================================

// ScalarKind names a per-host scalar metric series.
type ScalarKind string

const (
	// ScalarBudget is the per-host transmission budget series.
	ScalarBudget ScalarKind = "budget"
	// ScalarBacklog is the per-host queued-backlog series. When present it
	// overrides the link-derived queue aggregate for that host.
	ScalarBacklog ScalarKind = "backlog"
)

// KnownScalarKinds lists the scalar kinds the loader requests by default.
var KnownScalarKinds = []ScalarKind{ScalarBudget, ScalarBacklog}

// =============================================================================
// Timestamp Grid
// =============================================================================

// Grid is the canonical timestamp sequence all series in one store share.
// It is established once per load from the first series that resolves,
// zero-offset so the first timestamp is 0, and immutable afterwards.
type Grid struct {
	timestamps []float64
	duration   float64
}

// NewGrid builds a grid from raw timestamps. The first timestamp is
// subtracted from every entry so the grid begins at 0.
//
// The grid is expected, but not assumed, to be sorted ascending: duration is
// the final timestamp unless a full scan finds a larger one.
func NewGrid(raw []float64) *Grid {
	ts := make([]float64, len(raw))
	if len(raw) > 0 {
		offset := raw[0]
		for i, v := range raw {
			ts[i] = v - offset
		}
	}

	var duration float64
	if n := len(ts); n > 0 {
		duration = ts[n-1]
		for _, v := range ts {
			if v > duration {
				duration = v
			}
		}
	}

	return &Grid{timestamps: ts, duration: duration}
}

// Len returns the number of grid points.
func (g *Grid) Len() int { return len(g.timestamps) }

// At returns the timestamp at index i.
func (g *Grid) At(i int) float64 { return g.timestamps[i] }

// Duration returns the largest timestamp on the grid (0 for an empty grid).
func (g *Grid) Duration() float64 { return g.duration }

// Timestamps returns a copy of the grid's timestamps.
func (g *Grid) Timestamps() []float64 {
	out := make([]float64, len(g.timestamps))
	copy(out, g.timestamps)
	return out
}

// =============================================================================
// Link Series
// =============================================================================

// DirectionSeries holds the two parallel value sequences for one traversal
// direction of one link, both of grid length.
type DirectionSeries struct {
	Throughput []float64
	QueueDepth []float64
}

// LinkSeries owns the forward and reverse direction series of one link as a
// single pair, so both directions share grid alignment by construction.
type LinkSeries struct {
	Forward DirectionSeries
	Reverse DirectionSeries
}

// NewLinkSeries returns a LinkSeries with all four sequences zero-filled at
// grid length n.
func NewLinkSeries(n int) *LinkSeries {
	return &LinkSeries{
		Forward: DirectionSeries{
			Throughput: make([]float64, n),
			QueueDepth: make([]float64, n),
		},
		Reverse: DirectionSeries{
			Throughput: make([]float64, n),
			QueueDepth: make([]float64, n),
		},
	}
}

// =============================================================================
// Store
// =============================================================================

// Store holds every series of one committed selection, all conformed to one
// grid. Links are keyed by link name, hosts by host name.
type Store struct {
	Selection Selection
	Grid      *Grid
	Links     map[string]*LinkSeries
	Hosts     map[string]map[ScalarKind][]float64
}

// NewStore returns an empty store over the given grid.
func NewStore(sel Selection, grid *Grid) *Store {
	return &Store{
		Selection: sel,
		Grid:      grid,
		Links:     make(map[string]*LinkSeries),
		Hosts:     make(map[string]map[ScalarKind][]float64),
	}
}

// SetHostScalar records a host scalar series. Absence of a (host, kind)
// entry means "no override", not zero.
func (s *Store) SetHostScalar(host string, kind ScalarKind, values []float64) {
	m, ok := s.Hosts[host]
	if !ok {
		m = make(map[ScalarKind][]float64)
		s.Hosts[host] = m
	}
	m[kind] = values
}

// HostScalar returns the scalar series for (host, kind), or nil when the
// host has no override for that kind.
func (s *Store) HostScalar(host string, kind ScalarKind) []float64 {
	if m, ok := s.Hosts[host]; ok {
		return m[kind]
	}
	return nil
}

// Check verifies that every series in the store has grid length. The
// orchestrator guarantees this by construction; Check exists for tests and
// defensive assertions.
func (s *Store) Check() error {
	n := s.Grid.Len()
	for name, ls := range s.Links {
		for _, col := range [][]float64{
			ls.Forward.Throughput, ls.Forward.QueueDepth,
			ls.Reverse.Throughput, ls.Reverse.QueueDepth,
		} {
			if len(col) != n {
				return fmt.Errorf("link %s: series length %d != grid length %d", name, len(col), n)
			}
		}
	}
	for host, kinds := range s.Hosts {
		for kind, col := range kinds {
			if len(col) != n {
				return fmt.Errorf("host %s %s: series length %d != grid length %d", host, kind, len(col), n)
			}
		}
	}
	return nil
}
