package stats

import (
	"math"
	"testing"

	"github.com/flowscope/flowscope/internal/series"
)

func TestSeriesStatsSummary(t *testing.T) {
	s := New("test", 0.01)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		s.Observe(v)
	}

	sum := s.Summary()
	if sum.Name != "test" {
		t.Errorf("name = %q", sum.Name)
	}
	if sum.Count != 5 {
		t.Errorf("count = %d, want 5", sum.Count)
	}
	if sum.Mean != 3 {
		t.Errorf("mean = %v, want 3", sum.Mean)
	}
	if sum.Min != 1 || sum.Max != 5 {
		t.Errorf("min/max = %v/%v, want 1/5", sum.Min, sum.Max)
	}

	if sum.P50 == nil {
		t.Fatal("p50 missing")
	}
	// DDSketch guarantees relative accuracy, not exactness.
	if math.Abs(*sum.P50-3)/3 > 0.02 {
		t.Errorf("p50 = %v, want ~3", *sum.P50)
	}
}

func TestSeriesStatsEmpty(t *testing.T) {
	sum := New("empty", 0.01).Summary()
	if sum.Count != 0 {
		t.Errorf("count = %d, want 0", sum.Count)
	}
	if sum.Mean != 0 || sum.Min != 0 || sum.Max != 0 {
		t.Errorf("empty summary carries values: %+v", sum)
	}
}

func TestCollect(t *testing.T) {
	store := series.NewStore(
		series.Selection{Scenario: "s", Protocol: "p", Load: "l"},
		series.NewGrid([]float64{0, 1, 2}),
	)
	store.Links["host0_to_switch0"] = &series.LinkSeries{
		Forward: series.DirectionSeries{
			Throughput: []float64{10, 20, 30},
			QueueDepth: []float64{1, 2, 3},
		},
		Reverse: series.DirectionSeries{
			Throughput: []float64{0, 0, 0},
			QueueDepth: []float64{0, 0, 0},
		},
	}
	store.SetHostScalar("host0", series.ScalarBacklog, []float64{5, 5, 5})

	out := Collect(store, 0.01)

	// Four link summaries plus one host scalar.
	if len(out) != 5 {
		t.Fatalf("got %d summaries, want 5", len(out))
	}

	// Sorted by name for stable output.
	for i := 1; i < len(out); i++ {
		if out[i-1].Name > out[i].Name {
			t.Fatalf("summaries not sorted: %q before %q", out[i-1].Name, out[i].Name)
		}
	}

	byName := map[string]Summary{}
	for _, s := range out {
		byName[s.Name] = s
	}

	fwd, ok := byName["host0_to_switch0/fwd/throughput"]
	if !ok {
		t.Fatal("forward throughput summary missing")
	}
	if fwd.Mean != 20 {
		t.Errorf("fwd throughput mean = %v, want 20", fwd.Mean)
	}

	host, ok := byName["host0/backlog"]
	if !ok {
		t.Fatal("host scalar summary missing")
	}
	if host.Min != 5 || host.Max != 5 {
		t.Errorf("host scalar min/max = %v/%v, want 5/5", host.Min, host.Max)
	}
}
