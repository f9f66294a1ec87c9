// Package stats computes per-series data-quality statistics over a
// committed store: running count/sum/min/max plus DDSketch percentiles.
//
// These summaries back the REPL `stats` command and the /api/stats
// endpoint; they are computed on demand from the committed store, never on
// the per-frame sampling path.
package stats

import (
	"math"
	"sort"

	"github.com/DataDog/sketches-go/ddsketch"
	"github.com/flowscope/flowscope/internal/series"
)

// SeriesStats maintains running statistics for one value series.
type SeriesStats struct {
	name string

	count int64
	sum   float64
	min   float64
	max   float64

	sketch *ddsketch.DDSketch
}

// New creates a SeriesStats with the given DDSketch relative accuracy.
// Percentiles are disabled when the sketch cannot be constructed.
func New(name string, accuracy float64) *SeriesStats {
	s := &SeriesStats{
		name: name,
		min:  math.MaxFloat64,
		max:  -math.MaxFloat64,
	}
	sketch, err := ddsketch.NewDefaultDDSketch(accuracy)
	if err == nil {
		s.sketch = sketch
	}
	return s
}

// Observe adds a value to the statistics.
func (s *SeriesStats) Observe(v float64) {
	s.count++
	s.sum += v
	if v < s.min {
		s.min = v
	}
	if v > s.max {
		s.max = v
	}
	if s.sketch != nil {
		// DDSketch rejects values outside its range; skip silently, the
		// running stats still cover them.
		_ = s.sketch.Add(v)
	}
}

// Summary is the exported snapshot of one series' statistics.
type Summary struct {
	Name  string   `json:"name"`
	Count int64    `json:"count"`
	Mean  float64  `json:"mean"`
	Min   float64  `json:"min"`
	Max   float64  `json:"max"`
	P50   *float64 `json:"p50,omitempty"`
	P95   *float64 `json:"p95,omitempty"`
	P99   *float64 `json:"p99,omitempty"`
}

// Summary finalizes the statistics.
func (s *SeriesStats) Summary() Summary {
	out := Summary{Name: s.name, Count: s.count}
	if s.count == 0 {
		return out
	}

	out.Mean = s.sum / float64(s.count)
	out.Min = s.min
	out.Max = s.max

	if s.sketch != nil {
		out.P50 = quantile(s.sketch, 0.50)
		out.P95 = quantile(s.sketch, 0.95)
		out.P99 = quantile(s.sketch, 0.99)
	}
	return out
}

func quantile(sketch *ddsketch.DDSketch, q float64) *float64 {
	v, err := sketch.GetValueAtQuantile(q)
	if err != nil {
		return nil
	}
	return &v
}

// =============================================================================
// Store Collection
// =============================================================================

// Collect computes summaries for every value series in a committed store:
// four per link (forward/reverse × throughput/queue) and one per host
// scalar series. Summaries are sorted by name for stable output.
func Collect(store *series.Store, accuracy float64) []Summary {
	var out []Summary

	observe := func(name string, col []float64) {
		s := New(name, accuracy)
		for _, v := range col {
			s.Observe(v)
		}
		out = append(out, s.Summary())
	}

	for name, ls := range store.Links {
		observe(name+"/fwd/throughput", ls.Forward.Throughput)
		observe(name+"/fwd/queue", ls.Forward.QueueDepth)
		observe(name+"/rev/throughput", ls.Reverse.Throughput)
		observe(name+"/rev/queue", ls.Reverse.QueueDepth)
	}
	for host, kinds := range store.Hosts {
		for kind, col := range kinds {
			observe(host+"/"+string(kind), col)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
