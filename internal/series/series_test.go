package series

import (
	"testing"
)

func TestNewGridZeroOffset(t *testing.T) {
	g := NewGrid([]float64{100.5, 101.5, 103.0})

	want := []float64{0, 1, 2.5}
	if g.Len() != len(want) {
		t.Fatalf("Len() = %d, want %d", g.Len(), len(want))
	}
	for i, w := range want {
		if got := g.At(i); got != w {
			t.Errorf("At(%d) = %v, want %v", i, got, w)
		}
	}
	if g.Duration() != 2.5 {
		t.Errorf("Duration() = %v, want 2.5", g.Duration())
	}
}

func TestNewGridEmpty(t *testing.T) {
	g := NewGrid(nil)
	if g.Len() != 0 {
		t.Errorf("Len() = %d, want 0", g.Len())
	}
	if g.Duration() != 0 {
		t.Errorf("Duration() = %v, want 0", g.Duration())
	}
}

func TestNewGridUnsortedDuration(t *testing.T) {
	// The last timestamp is not the largest; Duration must still be the max.
	g := NewGrid([]float64{10, 15, 12})
	if g.Duration() != 5 {
		t.Errorf("Duration() = %v, want 5", g.Duration())
	}
}

func TestGridTimestampsIsCopy(t *testing.T) {
	g := NewGrid([]float64{1, 2, 3})
	ts := g.Timestamps()
	ts[0] = 99
	if g.At(0) != 0 {
		t.Errorf("mutating Timestamps() result changed the grid: At(0) = %v", g.At(0))
	}
}

func TestSelectionString(t *testing.T) {
	sel := Selection{Scenario: "dumbbell", Protocol: "tcp", Load: "heavy"}
	if got := sel.String(); got != "dumbbell/tcp/heavy" {
		t.Errorf("String() = %q", got)
	}
	if sel.IsZero() {
		t.Error("IsZero() = true for non-empty selection")
	}
	if !(Selection{}).IsZero() {
		t.Error("IsZero() = false for empty selection")
	}
}

func TestNewLinkSeries(t *testing.T) {
	ls := NewLinkSeries(4)
	for _, col := range [][]float64{
		ls.Forward.Throughput, ls.Forward.QueueDepth,
		ls.Reverse.Throughput, ls.Reverse.QueueDepth,
	} {
		if len(col) != 4 {
			t.Fatalf("column length = %d, want 4", len(col))
		}
		for i, v := range col {
			if v != 0 {
				t.Errorf("col[%d] = %v, want 0", i, v)
			}
		}
	}
}

func TestStoreHostScalar(t *testing.T) {
	store := NewStore(Selection{Scenario: "s", Protocol: "p", Load: "l"}, NewGrid([]float64{0, 1}))

	if got := store.HostScalar("host0", ScalarBacklog); got != nil {
		t.Errorf("HostScalar on empty store = %v, want nil", got)
	}

	store.SetHostScalar("host0", ScalarBacklog, []float64{1, 2})
	if got := store.HostScalar("host0", ScalarBacklog); len(got) != 2 {
		t.Errorf("HostScalar = %v, want 2 values", got)
	}
	// Absence of a kind is "no override", not zero.
	if got := store.HostScalar("host0", ScalarBudget); got != nil {
		t.Errorf("HostScalar for absent kind = %v, want nil", got)
	}
}

func TestStoreCheck(t *testing.T) {
	store := NewStore(Selection{}, NewGrid([]float64{0, 1, 2}))
	store.Links["a_to_b"] = NewLinkSeries(3)
	store.SetHostScalar("host0", ScalarBudget, []float64{1, 2, 3})

	if err := store.Check(); err != nil {
		t.Fatalf("Check() on conforming store: %v", err)
	}

	store.Links["short"] = NewLinkSeries(2)
	if err := store.Check(); err == nil {
		t.Error("Check() missed a short link series")
	}
	delete(store.Links, "short")

	store.SetHostScalar("host1", ScalarBacklog, []float64{1})
	if err := store.Check(); err == nil {
		t.Error("Check() missed a short host series")
	}
}
