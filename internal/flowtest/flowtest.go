// Package flowtest provides test utilities for the flowscope project.
//
// It provides the error channel pattern for safe testing with goroutines:
// t.Fatal in a goroutine calls runtime.Goexit, which only exits that
// goroutine and hangs the test.
package flowtest

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// Error Channel Pattern
// =============================================================================

// GoroutineTest collects errors from test goroutines instead of failing
// inside them.
//
// Example usage:
//
//	gt := flowtest.NewGoroutineTest(t)
//	defer gt.Wait()
//
//	gt.Go(func() error {
//	    result, err := someOperation()
//	    if err != nil {
//	        return fmt.Errorf("operation failed: %w", err)
//	    }
//	    if result != expected {
//	        return fmt.Errorf("got %v, want %v", result, expected)
//	    }
//	    return nil
//	})
type GoroutineTest struct {
	t      *testing.T
	wg     sync.WaitGroup
	errors chan error
	ctx    context.Context
	cancel context.CancelFunc
}

// NewGoroutineTest creates a new GoroutineTest helper.
func NewGoroutineTest(t *testing.T) *GoroutineTest {
	ctx, cancel := context.WithCancel(context.Background())
	return &GoroutineTest{
		t:      t,
		errors: make(chan error, 100), // buffered to avoid blocking
		ctx:    ctx,
		cancel: cancel,
	}
}

// NewGoroutineTestWithTimeout creates a GoroutineTest with a timeout.
func NewGoroutineTestWithTimeout(t *testing.T, timeout time.Duration) *GoroutineTest {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	return &GoroutineTest{
		t:      t,
		errors: make(chan error, 100),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Go runs fn in a goroutine and collects any error it returns.
func (gt *GoroutineTest) Go(fn func() error) {
	gt.wg.Add(1)
	go func() {
		defer gt.wg.Done()
		if err := fn(); err != nil {
			select {
			case gt.errors <- err:
			default:
				gt.t.Logf("Error channel full, dropping error: %v", err)
			}
		}
	}()
}

// GoWithContext runs fn with the helper's context in a goroutine.
func (gt *GoroutineTest) GoWithContext(fn func(ctx context.Context) error) {
	gt.wg.Add(1)
	go func() {
		defer gt.wg.Done()
		if err := fn(gt.ctx); err != nil {
			select {
			case gt.errors <- err:
			case <-gt.ctx.Done():
			}
		}
	}()
}

// Context returns the helper's context.
func (gt *GoroutineTest) Context() context.Context { return gt.ctx }

// Wait waits for all goroutines and fails the test if any errored.
// Call with defer right after creating the helper.
func (gt *GoroutineTest) Wait() {
	gt.wg.Wait()
	gt.cancel()
	close(gt.errors)

	var errs []error
	for err := range gt.errors {
		errs = append(errs, err)
	}
	for _, err := range errs {
		gt.t.Errorf("goroutine error: %v", err)
	}
}

// =============================================================================
// Float Helpers
// =============================================================================

// Tolerance is the default float comparison tolerance.
const Tolerance = 1e-9

// Near reports whether a and b differ by at most Tolerance.
func Near(a, b float64) bool {
	return math.Abs(a-b) <= Tolerance
}

// WantFloat fails the test when got is not within Tolerance of want.
func WantFloat(t *testing.T, what string, got, want float64) {
	t.Helper()
	if !Near(got, want) {
		t.Errorf("%s: got %v, want %v", what, got, want)
	}
}

// WantFloats fails the test when any element differs beyond Tolerance.
func WantFloats(t *testing.T, what string, got, want []float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: length %d, want %d", what, len(got), len(want))
	}
	for i := range got {
		if !Near(got[i], want[i]) {
			t.Errorf("%s[%d]: got %v, want %v", what, i, got[i], want[i])
			return
		}
	}
}
