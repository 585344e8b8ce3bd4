// Package surrogate defines the model capability the optimization loop
// consumes: anything that can fit encoded observations and report a mean
// and uncertainty estimate for encoded candidates.
package surrogate

// Surrogate is a regression model over encoded points. Fit replaces any
// previously fitted state; Predict is only valid after a successful Fit
// and returns one mean and one non-negative std per input row. An
// all-zero std slice is a legitimate answer (a model that is certain).
type Surrogate interface {
	Fit(x [][]float64, y []float64) error
	Predict(x [][]float64) (mean, std []float64, err error)
}

// Factory produces fresh Surrogate instances. The loop fits a new
// instance on the full trace every guided iteration, so the snapshots it
// retains stay immutable after the run.
type Factory func() Surrogate
