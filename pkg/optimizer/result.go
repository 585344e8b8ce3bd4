package optimizer

import (
	"time"

	"github.com/sar2901/scikit-optimize/pkg/space"
	"github.com/sar2901/scikit-optimize/pkg/surrogate"
)

// Metadata carries the provenance of a run: enough to report it, journal
// it, and resume it exactly.
type Metadata struct {
	// RunID uniquely identifies the run across journals and logs.
	RunID string
	// Seed is the RNG seed the run started from (the derived one when the
	// caller left it to the clock).
	Seed int64
	// RNGState is the serialized RNG state after the final draw; feeding
	// it to WithRNGState continues the random sequence without a gap.
	RNGState []byte
	// SeedCount, RandomCount and GuidedCount break the trace down by the
	// phase that produced each entry, in trace order.
	SeedCount   int
	RandomCount int
	GuidedCount int
	// StartedAt and Elapsed time the run.
	StartedAt time.Time
	Elapsed   time.Duration
}

// Result is the assembled outcome of a run. Callbacks receive deep
// copies of the partial Result, so nothing a callback does can reach the
// live trace.
type Result struct {
	// X is the best point found and Fun its objective value. Ties go to
	// the earliest evaluation.
	X   space.Point
	Fun float64

	// Xs and Ys are the full trace in evaluation order.
	Xs []space.Point
	Ys []float64

	// Models holds one fitted surrogate snapshot per guided iteration,
	// in iteration order.
	Models []surrogate.Surrogate

	Metadata Metadata

	// Space is the search space the run explored.
	Space *space.Space
}

// Best returns the index of the minimal trace value, -1 for an empty
// trace. The first occurrence wins on ties.
func (r *Result) Best() int {
	best := -1
	for i, y := range r.Ys {
		if best < 0 || y < r.Ys[best] {
			best = i
		}
	}
	return best
}

// refreshBest recomputes X and Fun from the trace.
func (r *Result) refreshBest() {
	if i := r.Best(); i >= 0 {
		r.X = r.Xs[i]
		r.Fun = r.Ys[i]
	}
}

// snapshot deep-copies the trace and metadata for callback consumption.
// Model snapshots are immutable once fitted, so the slice is copied but
// the instances are shared.
func (r *Result) snapshot() *Result {
	c := &Result{
		Fun:      r.Fun,
		Xs:       make([]space.Point, len(r.Xs)),
		Ys:       append([]float64(nil), r.Ys...),
		Models:   append([]surrogate.Surrogate(nil), r.Models...),
		Metadata: r.Metadata,
		Space:    r.Space,
	}
	for i, p := range r.Xs {
		c.Xs[i] = append(space.Point(nil), p...)
	}
	c.X = append(space.Point(nil), r.X...)
	c.Metadata.RNGState = append([]byte(nil), r.Metadata.RNGState...)
	return c
}
