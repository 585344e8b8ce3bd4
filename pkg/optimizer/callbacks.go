package optimizer

import (
	stderrors "errors"
	"sort"
	"sync"
	"time"
)

// Callback observes the run after every trace append. The *Result is a
// deep copy of the partial state, safe to retain or serialize. Returning
// ErrStopRun ends the run gracefully with the partial Result; any other
// error aborts the run and surfaces to the caller.
type Callback func(*Result) error

// ErrStopRun is the sentinel a Callback returns to end the run early
// without an error.
var ErrStopRun = stderrors.New("stop optimization run")

// Timer records wall-clock durations between successive trace appends.
// Register its Record method as a callback and read Durations after the
// run.
type Timer struct {
	mu        sync.Mutex
	last      time.Time
	durations []time.Duration
}

// NewTimer creates a Timer; timing starts at the first append.
func NewTimer() *Timer {
	return &Timer{}
}

// Record is the Callback to register.
func (t *Timer) Record(*Result) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	if !t.last.IsZero() {
		t.durations = append(t.durations, now.Sub(t.last))
	}
	t.last = now
	return nil
}

// Durations returns a copy of the recorded intervals, one per append
// after the first.
func (t *Timer) Durations() []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]time.Duration(nil), t.durations...)
}

// DeltaYStopper stops the run once the nBest best observed values are
// within delta of each other, the classic plateau criterion.
func DeltaYStopper(delta float64, nBest int) Callback {
	if nBest < 2 {
		nBest = 2
	}
	return func(r *Result) error {
		if len(r.Ys) < nBest {
			return nil
		}
		ys := append([]float64(nil), r.Ys...)
		sort.Float64s(ys)
		if ys[nBest-1]-ys[0] <= delta {
			return ErrStopRun
		}
		return nil
	}
}
