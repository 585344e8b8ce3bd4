// Package acquisition scores surrogate predictions so the sampler can
// rank candidate points. All functions follow the minimization
// convention: lower scores are better, and functions that are
// conventionally maximized (expected improvement, probability of
// improvement) are returned negated.
package acquisition

import (
	"math"
)

// Function selects an acquisition strategy. The set is closed.
type Function string

const (
	// LCB is the lower confidence bound: mean - kappa*std. Larger kappa
	// favors exploration.
	LCB Function = "LCB"
	// EI is negated expected improvement over the incumbent best, with an
	// xi margin.
	EI Function = "EI"
	// PI is negated probability of improvement over the incumbent best,
	// with an xi margin.
	PI Function = "PI"
)

// Valid reports whether f names a known acquisition function.
func (f Function) Valid() bool {
	switch f {
	case LCB, EI, PI:
		return true
	}
	return false
}

// Params are the acquisition hyperparameters.
type Params struct {
	// Xi is the improvement margin used by EI and PI.
	Xi float64
	// Kappa is the exploration weight used by LCB.
	Kappa float64
}

// DefaultParams returns the stock margin and exploration weight
// (xi=0.01, kappa=1.96).
func DefaultParams() Params {
	return Params{Xi: 0.01, Kappa: 1.96}
}

// Score evaluates one prediction. best is the incumbent minimum of the
// observed objective values. The result is finite for any finite inputs;
// zero std takes an explicit degenerate branch rather than dividing.
func Score(fn Function, mean, std, best float64, p Params) float64 {
	switch fn {
	case LCB:
		return mean - p.Kappa*std
	case EI:
		improvement := best - mean - p.Xi
		if std <= 0 {
			// A certain prediction can contribute no expected gain.
			return 0
		}
		z := improvement / std
		ei := improvement*normCDF(z) + std*normPDF(z)
		return -ei
	case PI:
		improvement := best - mean - p.Xi
		if std <= 0 {
			// Point-mass limit: improvement is certain or impossible.
			if improvement > 0 {
				return -1
			}
			return 0
		}
		return -normCDF(improvement / std)
	default:
		return math.Inf(1)
	}
}

// ScoreBatch evaluates aligned mean/std slices in one pass. Slices must
// be the same length; the sampler guarantees this by construction.
func ScoreBatch(fn Function, mean, std []float64, best float64, p Params) []float64 {
	scores := make([]float64, len(mean))
	for i := range mean {
		scores[i] = Score(fn, mean[i], std[i], best, p)
	}
	return scores
}

// normCDF is the standard normal cumulative distribution function.
func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// normPDF is the standard normal probability density function.
func normPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}
