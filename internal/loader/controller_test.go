package loader

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/flowscope/flowscope/internal/errors"
	"github.com/flowscope/flowscope/internal/fetch"
	"github.com/flowscope/flowscope/internal/flowtest"
	"github.com/flowscope/flowscope/internal/series"
)

func TestControllerSelect(t *testing.T) {
	f := fullFetcher([]float64{0, 1, 2})
	ctrl := NewController(testLayout(t), f, nil, nil)

	if ctrl.Current() != nil {
		t.Fatal("Current() non-nil before first load")
	}

	view, err := ctrl.Select(context.Background(), testSel)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if view.Selection != testSel {
		t.Errorf("view selection = %v", view.Selection)
	}
	if view.Version != 1 {
		t.Errorf("view version = %d, want 1", view.Version)
	}
	if ctrl.Current() != view {
		t.Error("committed view is not current")
	}

	snap := view.Sample(0.5)
	flowtest.WantFloat(t, "sampled flow", snap.Links[0].Forward.Flow, 10)
}

func TestControllerSelectInvalid(t *testing.T) {
	ctrl := NewController(testLayout(t), newFakeFetcher(), nil, nil)

	_, err := ctrl.Select(context.Background(), series.Selection{Scenario: "../x", Protocol: "p", Load: "l"})
	if !errors.Is(err, errors.ErrInvalidSelection) {
		t.Fatalf("error = %v, want ErrInvalidSelection", err)
	}
}

func TestControllerFailedLoadKeepsCurrent(t *testing.T) {
	f := fullFetcher([]float64{0, 1, 2})
	ctrl := NewController(testLayout(t), f, nil, nil)

	good, err := ctrl.Select(context.Background(), testSel)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}

	// A selection with no data fails fatally and leaves the view untouched.
	bad := series.Selection{Scenario: "dumbbell", Protocol: "tcp", Load: "absent"}
	if _, err := ctrl.Select(context.Background(), bad); !errors.Is(err, errors.ErrGridUnestablished) {
		t.Fatalf("error = %v, want ErrGridUnestablished", err)
	}

	if ctrl.Current() != good {
		t.Error("failed load displaced the committed view")
	}
}

// blockingFetcher delays every fetch of one selection until released.
type blockingFetcher struct {
	inner   fetch.Fetcher
	match   string // selection path fragment to block on
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingFetcher) Fetch(ctx context.Context, relPath string) (fetch.Result, error) {
	if strings.Contains(relPath, b.match) {
		b.once.Do(func() { close(b.started) })
		select {
		case <-b.release:
		case <-ctx.Done():
			return fetch.Result{}, errors.NewUnavailable(relPath, ctx.Err())
		}
	}
	return b.inner.Fetch(ctx, relPath)
}

func TestControllerStaleLoadDiscarded(t *testing.T) {
	ts := []float64{0, 1, 2}
	slowSel := series.Selection{Scenario: "dumbbell", Protocol: "tcp", Load: "light"}

	inner := fullFetcher(ts)
	for _, name := range []string{
		"host0_to_switch0", "switch0_to_host0",
		"host1_to_switch0", "switch0_to_host1",
	} {
		inner.set(fmt.Sprintf("data/dumbbell/tcp/light/%s.csv", name), linkCSV(ts, 1))
	}

	bf := &blockingFetcher{
		inner:   inner,
		match:   "/light/",
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	ctrl := NewController(testLayout(t), bf, nil, nil)

	gt := flowtest.NewGoroutineTestWithTimeout(t, 10*time.Second)
	gt.Go(func() error {
		_, err := ctrl.Select(context.Background(), slowSel)
		if !errors.Is(err, errors.ErrStaleLoad) {
			return fmt.Errorf("stale load error = %v, want ErrStaleLoad", err)
		}
		return nil
	})

	// Wait for the slow load to be in flight, then supersede it.
	<-bf.started
	fast, err := ctrl.Select(context.Background(), testSel)
	if err != nil {
		t.Fatalf("fast Select: %v", err)
	}

	close(bf.release)
	gt.Wait()

	if ctrl.Current() != fast {
		t.Error("stale load displaced the newer view")
	}
}

func TestControllerConcurrentSameSelectionShareOneLoad(t *testing.T) {
	bf := &blockingFetcher{
		inner:   fullFetcher([]float64{0, 1, 2}),
		match:   "/heavy/",
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	ctrl := NewController(testLayout(t), bf, nil, nil)

	gt := flowtest.NewGoroutineTestWithTimeout(t, 10*time.Second)
	var first, second *View
	gt.Go(func() error {
		v, err := ctrl.Select(context.Background(), testSel)
		if err != nil {
			return fmt.Errorf("first Select: %w", err)
		}
		first = v
		return nil
	})

	// The first load is in flight and held open; a second Select of the same
	// selection must join it instead of producing a competing load (which
	// would surface as a spurious ErrStaleLoad for one of the callers).
	<-bf.started
	gt.Go(func() error {
		v, err := ctrl.Select(context.Background(), testSel)
		if err != nil {
			return fmt.Errorf("second Select: %w", err)
		}
		second = v
		return nil
	})

	time.Sleep(100 * time.Millisecond)
	close(bf.release)
	gt.Wait()

	if first == nil || second == nil || first != second {
		t.Error("concurrent identical selections did not share one load")
	}
}
