package engine

import (
	"testing"

	"github.com/flowscope/flowscope/internal/flowtest"
	"github.com/flowscope/flowscope/internal/series"
	"github.com/flowscope/flowscope/internal/topology"
)

// =============================================================================
// Fixtures
// =============================================================================

const starLayout = `
hosts: 2
switches: 1
links:
  - from: host0
    to: switch0
  - from: host1
    to: switch0
`

func testLayout(t *testing.T) *topology.Layout {
	t.Helper()
	layout, err := topology.Parse([]byte(starLayout))
	if err != nil {
		t.Fatalf("parse layout: %v", err)
	}
	return layout
}

// testStore builds a store over grid [0,1,2,3] with distinguishable series.
func testStore() *series.Store {
	store := series.NewStore(
		series.Selection{Scenario: "s", Protocol: "p", Load: "l"},
		series.NewGrid([]float64{0, 1, 2, 3}),
	)
	store.Links["host0_to_switch0"] = &series.LinkSeries{
		Forward: series.DirectionSeries{
			Throughput: []float64{10, 20, 30, 40},
			QueueDepth: []float64{1, 2, 3, 4},
		},
		Reverse: series.DirectionSeries{
			Throughput: []float64{5, 5, 5, 5},
			QueueDepth: []float64{0, 1, 0, 1},
		},
	}
	store.Links["host1_to_switch0"] = &series.LinkSeries{
		Forward: series.DirectionSeries{
			Throughput: []float64{0, 0, 0, 0},
			QueueDepth: []float64{3, 4, 5, 6},
		},
		Reverse: series.DirectionSeries{
			Throughput: []float64{1, 1, 1, 1},
			QueueDepth: []float64{2, 2, 2, 2},
		},
	}
	return store
}

// =============================================================================
// Interpolation
// =============================================================================

func TestSampleMidpoint(t *testing.T) {
	eng := New(testLayout(t), testStore())

	snap := eng.Sample(1.5)
	flowtest.WantFloat(t, "time", snap.Time, 1.5)
	flowtest.WantFloat(t, "fwd flow", snap.Links[0].Forward.Flow, 25)
	flowtest.WantFloat(t, "fwd queue", snap.Links[0].Forward.Queue, 2.5)
	flowtest.WantFloat(t, "rev flow", snap.Links[0].Reverse.Flow, 5)
	flowtest.WantFloat(t, "rev queue", snap.Links[0].Reverse.Queue, 0.5)
}

func TestSampleExactGridPoints(t *testing.T) {
	eng := New(testLayout(t), testStore())

	for i, want := range []float64{10, 20, 30, 40} {
		snap := eng.Sample(float64(i))
		flowtest.WantFloat(t, "fwd flow", snap.Links[0].Forward.Flow, want)
	}
}

func TestSampleClamping(t *testing.T) {
	eng := New(testLayout(t), testStore())

	early := eng.Sample(-5)
	flowtest.WantFloat(t, "clamped time", early.Time, 0)
	flowtest.WantFloat(t, "value at start", early.Links[0].Forward.Flow, 10)

	late := eng.Sample(100)
	flowtest.WantFloat(t, "clamped time", late.Time, 3)
	flowtest.WantFloat(t, "value at end", late.Links[0].Forward.Flow, 40)
}

func TestSampleNonNegative(t *testing.T) {
	layout := testLayout(t)
	store := testStore()
	// Sensor noise can dip below zero; interpolation must not surface it.
	store.Links["host0_to_switch0"].Forward.Throughput = []float64{-1, -2, -1, 0}

	eng := New(layout, store)
	snap := eng.Sample(1.5)
	flowtest.WantFloat(t, "clamped flow", snap.Links[0].Forward.Flow, 0)
}

// =============================================================================
// Seek Cursor
// =============================================================================

func TestSampleMonotonicMatchesFresh(t *testing.T) {
	layout := testLayout(t)
	store := testStore()
	playback := New(layout, store)

	ts := []float64{0, 0.25, 0.25, 1, 1.7, 1.7, 2.9, 3}
	for _, q := range ts {
		got := playback.Sample(q)
		want := New(layout, store).Sample(q)

		flowtest.WantFloat(t, "time", got.Time, want.Time)
		for li := range want.Links {
			flowtest.WantFloat(t, "fwd flow", got.Links[li].Forward.Flow, want.Links[li].Forward.Flow)
			flowtest.WantFloat(t, "rev queue", got.Links[li].Reverse.Queue, want.Links[li].Reverse.Queue)
		}
		for ni := range want.Nodes {
			flowtest.WantFloat(t, "node", got.Nodes[ni], want.Nodes[ni])
		}
	}
}

func TestSampleRewind(t *testing.T) {
	eng := New(testLayout(t), testStore())

	eng.Sample(3)
	snap := eng.Sample(0.5)
	flowtest.WantFloat(t, "flow after rewind", snap.Links[0].Forward.Flow, 15)
}

func TestResetMatchesFreshEngine(t *testing.T) {
	layout := testLayout(t)
	store := testStore()

	eng := New(layout, store)
	eng.Sample(2.5)
	eng.Reset()

	got := eng.Sample(0)
	want := New(layout, store).Sample(0)
	flowtest.WantFloat(t, "flow after reset", got.Links[0].Forward.Flow, want.Links[0].Forward.Flow)
	flowtest.WantFloat(t, "node after reset", got.Nodes[0], want.Nodes[0])
}

// =============================================================================
// Node Aggregation
// =============================================================================

func TestNodeAggregationMean(t *testing.T) {
	layout := testLayout(t)
	eng := New(layout, testStore())

	snap := eng.Sample(0)

	// switch0 is the To endpoint of both links: mean of forward queues.
	si := layout.NodeIndex(topology.NodeRef{Kind: topology.KindSwitch, Index: 0})
	flowtest.WantFloat(t, "switch0", snap.Nodes[si], (1+3)/2.0)

	// host0 is the From endpoint of link 0: the reverse direction faces it.
	h0 := layout.NodeIndex(topology.NodeRef{Kind: topology.KindHost, Index: 0})
	flowtest.WantFloat(t, "host0", snap.Nodes[h0], 0)

	h1 := layout.NodeIndex(topology.NodeRef{Kind: topology.KindHost, Index: 1})
	flowtest.WantFloat(t, "host1", snap.Nodes[h1], 2)
}

func TestHostScalarOverride(t *testing.T) {
	layout := testLayout(t)
	store := testStore()
	store.SetHostScalar("host0", series.ScalarBacklog, []float64{100, 200, 300, 400})

	eng := New(layout, store)
	snap := eng.Sample(1.5)

	h0 := layout.NodeIndex(topology.NodeRef{Kind: topology.KindHost, Index: 0})
	flowtest.WantFloat(t, "host0 override", snap.Nodes[h0], 250)

	// host1 has no override and keeps the link-derived aggregate.
	h1 := layout.NodeIndex(topology.NodeRef{Kind: topology.KindHost, Index: 1})
	flowtest.WantFloat(t, "host1 derived", snap.Nodes[h1], 2)
}

func TestOverrideKindOption(t *testing.T) {
	layout := testLayout(t)
	store := testStore()
	store.SetHostScalar("host0", series.ScalarBudget, []float64{7, 7, 7, 7})

	// Default kind is backlog, so a budget-only host is not overridden.
	snap := New(layout, store).Sample(0)
	h0 := layout.NodeIndex(topology.NodeRef{Kind: topology.KindHost, Index: 0})
	flowtest.WantFloat(t, "default kind", snap.Nodes[h0], 0)

	snap = New(layout, store, WithOverrideKind(series.ScalarBudget)).Sample(0)
	flowtest.WantFloat(t, "budget kind", snap.Nodes[h0], 7)
}

// =============================================================================
// Degenerate Stores
// =============================================================================

func TestSampleEmptyGrid(t *testing.T) {
	layout := testLayout(t)
	store := series.NewStore(series.Selection{}, series.NewGrid(nil))

	eng := New(layout, store)
	snap := eng.Sample(5)

	flowtest.WantFloat(t, "time", snap.Time, 0)
	for _, ls := range snap.Links {
		flowtest.WantFloat(t, "flow", ls.Forward.Flow, 0)
		flowtest.WantFloat(t, "queue", ls.Reverse.Queue, 0)
	}
	for _, q := range snap.Nodes {
		flowtest.WantFloat(t, "node", q, 0)
	}
}

func TestSampleSingleGridPoint(t *testing.T) {
	layout := testLayout(t)
	store := series.NewStore(series.Selection{}, series.NewGrid([]float64{42}))
	store.Links["host0_to_switch0"] = &series.LinkSeries{
		Forward: series.DirectionSeries{Throughput: []float64{9}, QueueDepth: []float64{1}},
		Reverse: series.DirectionSeries{Throughput: []float64{0}, QueueDepth: []float64{0}},
	}
	store.Links["host1_to_switch0"] = series.NewLinkSeries(1)

	eng := New(layout, store)
	snap := eng.Sample(0.5)
	flowtest.WantFloat(t, "time", snap.Time, 0) // duration is 0 after offsetting
	flowtest.WantFloat(t, "flow", snap.Links[0].Forward.Flow, 9)
}

func TestMissingLinkReadsZero(t *testing.T) {
	layout := testLayout(t)
	store := testStore()
	delete(store.Links, "host1_to_switch0")

	eng := New(layout, store)
	snap := eng.Sample(1)
	flowtest.WantFloat(t, "missing link flow", snap.Links[1].Forward.Flow, 0)
	flowtest.WantFloat(t, "missing link queue", snap.Links[1].Forward.Queue, 0)
}

// =============================================================================
// Allocation Contract
// =============================================================================

func TestSampleIntoReusesSlices(t *testing.T) {
	eng := New(testLayout(t), testStore())

	var snap Snapshot
	eng.SampleInto(1, &snap)
	links, nodes := &snap.Links[0], &snap.Nodes[0]

	eng.SampleInto(2, &snap)
	if &snap.Links[0] != links || &snap.Nodes[0] != nodes {
		t.Error("SampleInto reallocated slices with sufficient capacity")
	}
}
