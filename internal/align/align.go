// Package align reconciles independently-fetched series against one
// timestamp grid.
//
// The first series to resolve establishes the grid (zero-offset). Every
// later series is conformed to the grid length: accepted as-is, truncated,
// zero-padded, or substituted wholesale with zeros when its source was
// unusable. None of these conditions fail a load; each one is reported
// through the diagnostics reporter so callers can audit data completeness.
package align

import (
	"fmt"
	"sync"

	"github.com/flowscope/flowscope/internal/series"
)

// =============================================================================
// Diagnostics
// =============================================================================

// EventKind classifies an alignment event.
type EventKind int

const (
	// EventGridEstablished records which resource supplied the grid.
	EventGridEstablished EventKind = iota
	// EventTruncated records a series longer than the grid.
	EventTruncated
	// EventPadded records a series shorter than the grid.
	EventPadded
	// EventSubstituted records an unusable source replaced with zeros.
	EventSubstituted
	// EventOmitted records an optional series left absent.
	EventOmitted
)

// String returns a human-readable name for the event kind.
func (k EventKind) String() string {
	switch k {
	case EventGridEstablished:
		return "grid_established"
	case EventTruncated:
		return "truncated"
	case EventPadded:
		return "padded"
	case EventSubstituted:
		return "substituted"
	case EventOmitted:
		return "omitted"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Diagnostic describes one alignment event for one resource.
type Diagnostic struct {
	Resource  string
	Kind      EventKind
	GridLen   int
	SeriesLen int    // length before conforming; 0 for substitutions
	Detail    string // cause, e.g. the fetch error for a substitution
}

// String formats the diagnostic for logs and the inspection surfaces.
func (d Diagnostic) String() string {
	s := fmt.Sprintf("%s: %s (series %d, grid %d)", d.Resource, d.Kind, d.SeriesLen, d.GridLen)
	if d.Detail != "" {
		s += ": " + d.Detail
	}
	return s
}

// Reporter receives alignment diagnostics. Implementations must be safe for
// concurrent use; the orchestrator reports from multiple goroutines.
type Reporter interface {
	Report(Diagnostic)
}

// Recorder is a Reporter that retains every diagnostic in arrival order.
type Recorder struct {
	mu     sync.Mutex
	events []Diagnostic
}

// Report implements Reporter.
func (r *Recorder) Report(d Diagnostic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, d)
}

// Events returns a copy of all recorded diagnostics.
func (r *Recorder) Events() []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Diagnostic, len(r.events))
	copy(out, r.events)
	return out
}

// discard drops all diagnostics.
type discard struct{}

func (discard) Report(Diagnostic) {}

// Discard returns a Reporter that drops everything.
func Discard() Reporter { return discard{} }

// =============================================================================
// Aligner
// =============================================================================

// Aligner conforms series against a single grid. One aligner serves one
// load; the grid is write-once and immutable after establishment.
//
// Aligner itself is not safe for concurrent use: the orchestrator resolves
// fetched payloads sequentially in program order, which is also what makes
// grid establishment deterministic.
type Aligner struct {
	grid *series.Grid
	rep  Reporter
}

// New returns an aligner reporting to rep. A nil rep discards diagnostics.
func New(rep Reporter) *Aligner {
	if rep == nil {
		rep = Discard()
	}
	return &Aligner{rep: rep}
}

// Established reports whether a grid has been established.
func (a *Aligner) Established() bool { return a.grid != nil }

// Grid returns the established grid, or nil.
func (a *Aligner) Grid() *series.Grid { return a.grid }

// Establish sets the grid from the raw timestamps of the first successfully
// resolved series. It must be called at most once per aligner.
func (a *Aligner) Establish(resource string, timestamps []float64) *series.Grid {
	if a.grid != nil {
		panic("align: grid established twice")
	}
	a.grid = series.NewGrid(timestamps)
	a.rep.Report(Diagnostic{
		Resource:  resource,
		Kind:      EventGridEstablished,
		GridLen:   a.grid.Len(),
		SeriesLen: len(timestamps),
	})
	return a.grid
}

// Conform reconciles one value column of length L against grid length N:
//
//	L == N: accepted as-is (the input slice is returned unchanged)
//	L >  N: truncated to the first N samples
//	L <  N: copied into a zero-filled length-N buffer
//
// The caller passes every column of one resource in a single call so the
// discrepancy is reported once per resource, not once per column.
func (a *Aligner) Conform(resource string, cols ...[]float64) [][]float64 {
	n := a.mustGrid().Len()

	out := make([][]float64, len(cols))
	reported := false
	for i, col := range cols {
		switch {
		case len(col) == n:
			out[i] = col
		case len(col) > n:
			out[i] = col[:n]
			if !reported {
				a.rep.Report(Diagnostic{
					Resource: resource, Kind: EventTruncated,
					GridLen: n, SeriesLen: len(col),
				})
				reported = true
			}
		default:
			buf := make([]float64, n)
			copy(buf, col)
			out[i] = buf
			if !reported {
				a.rep.Report(Diagnostic{
					Resource: resource, Kind: EventPadded,
					GridLen: n, SeriesLen: len(col),
				})
				reported = true
			}
		}
	}
	return out
}

// Substitute produces ncols zero-filled grid-length columns for a resource
// whose source was unusable, reporting the substitution once with its cause.
func (a *Aligner) Substitute(resource string, cause error, ncols int) [][]float64 {
	n := a.mustGrid().Len()

	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	a.rep.Report(Diagnostic{
		Resource: resource, Kind: EventSubstituted,
		GridLen: n, Detail: detail,
	})

	out := make([][]float64, ncols)
	for i := range out {
		out[i] = make([]float64, n)
	}
	return out
}

// Omit reports an optional resource left absent. No data is produced;
// absence of an optional series means "no override", not zero.
func (a *Aligner) Omit(resource string, cause error) {
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	n := 0
	if a.grid != nil {
		n = a.grid.Len()
	}
	a.rep.Report(Diagnostic{
		Resource: resource, Kind: EventOmitted,
		GridLen: n, Detail: detail,
	})
}

func (a *Aligner) mustGrid() *series.Grid {
	if a.grid == nil {
		panic("align: grid not established")
	}
	return a.grid
}
