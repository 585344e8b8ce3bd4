// Package testutil holds the shared test doubles: scripted surrogates
// with call accounting and a couple of closed-form objectives.
package testutil

import (
	"context"
	"sync"

	"github.com/sar2901/scikit-optimize/pkg/errors"
	"github.com/sar2901/scikit-optimize/pkg/space"
	"github.com/sar2901/scikit-optimize/pkg/surrogate"
)

// StubSurrogate is a scripted Surrogate that records every interaction.
// Predictions come from MeanFn/StdFn, defaulting to "mean of the fitted
// values, std 1" which keeps acquisition functions well-behaved.
type StubSurrogate struct {
	mu sync.Mutex

	FitCount     int
	PredictCount int
	LastFitX     [][]float64
	LastFitY     []float64
	PredictSizes []int // batch size of each Predict call

	FitErr     error // returned by Fit when set
	PredictErr error // returned by Predict when set

	MeanFn func(row []float64) float64
	StdFn  func(row []float64) float64

	fitted  bool
	fitMean float64
}

func (s *StubSurrogate) Fit(x [][]float64, y []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.FitCount++
	if s.FitErr != nil {
		return s.FitErr
	}
	if len(x) == 0 {
		return errors.New(errors.InvalidConfiguration, "fit requires at least one observation")
	}

	s.LastFitX = x
	s.LastFitY = y
	var sum float64
	for _, v := range y {
		sum += v
	}
	s.fitMean = sum / float64(len(y))
	s.fitted = true
	return nil
}

func (s *StubSurrogate) Predict(x [][]float64) ([]float64, []float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.PredictCount++
	s.PredictSizes = append(s.PredictSizes, len(x))
	if s.PredictErr != nil {
		return nil, nil, s.PredictErr
	}
	if !s.fitted {
		return nil, nil, errors.New(errors.NotFitted, "predict called before fit")
	}

	mean := make([]float64, len(x))
	std := make([]float64, len(x))
	for i, row := range x {
		if s.MeanFn != nil {
			mean[i] = s.MeanFn(row)
		} else {
			mean[i] = s.fitMean
		}
		if s.StdFn != nil {
			std[i] = s.StdFn(row)
		} else {
			std[i] = 1
		}
	}
	return mean, std, nil
}

// SurrogateRecorder builds one StubSurrogate per Factory call, keeping
// every instance so tests can count fits per guided iteration.
type SurrogateRecorder struct {
	mu      sync.Mutex
	Created []*StubSurrogate

	MeanFn func(row []float64) float64
	StdFn  func(row []float64) float64
}

// Factory is the surrogate.Factory to hand to the optimizer.
func (r *SurrogateRecorder) Factory() surrogate.Surrogate {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := &StubSurrogate{MeanFn: r.MeanFn, StdFn: r.StdFn}
	r.Created = append(r.Created, s)
	return s
}

// Instances returns a copy of the created surrogates.
func (r *SurrogateRecorder) Instances() []*StubSurrogate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*StubSurrogate(nil), r.Created...)
}

// SphereObjective is sum of squares over the numeric legs of the point,
// ignoring categoricals. Its minimum is the origin.
func SphereObjective(_ context.Context, p space.Point) (float64, error) {
	var sum float64
	for _, v := range p {
		switch n := v.(type) {
		case float64:
			sum += n * n
		case int:
			sum += float64(n) * float64(n)
		}
	}
	return sum, nil
}

// CountingObjective wraps an objective, counting invocations.
type CountingObjective struct {
	mu    sync.Mutex
	Calls int
	Fn    func(ctx context.Context, p space.Point) (float64, error)
}

func (c *CountingObjective) Evaluate(ctx context.Context, p space.Point) (float64, error) {
	c.mu.Lock()
	c.Calls++
	c.mu.Unlock()
	if c.Fn != nil {
		return c.Fn(ctx, p)
	}
	return SphereObjective(ctx, p)
}

// Count returns the number of evaluations so far.
func (c *CountingObjective) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Calls
}
