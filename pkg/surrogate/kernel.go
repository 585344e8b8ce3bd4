package surrogate

import (
	"fmt"
	"math"
	"sort"

	"github.com/sourcegraph/conc/pool"

	"github.com/sar2901/scikit-optimize/pkg/errors"
)

// lowWeight is the total kernel mass below which a query point counts as
// "far from all data" and falls back to global statistics.
const lowWeight = 1e-12

// Kernel is a radial-basis-function weighted regressor: the predicted
// mean is the kernel-weighted average of observed values and the
// predicted std is the kernel-weighted residual spread. Far from every
// observation it falls back to the global mean and std of the training
// values, which keeps unexplored regions attractive to acquisition
// functions.
//
// It is the reference Surrogate implementation; heavier models plug in
// through the same interface.
type Kernel struct {
	bandwidth float64 // kernel width; 0 means derive from data at Fit
	workers   int     // max goroutines for batched Predict

	x          [][]float64
	y          []float64
	h          float64 // effective bandwidth for the current fit
	globalMean float64
	globalStd  float64
	fitted     bool
}

// KernelOption configures a Kernel.
type KernelOption func(*Kernel)

// WithBandwidth fixes the kernel width instead of deriving it from the
// median pairwise distance of the training rows.
func WithBandwidth(h float64) KernelOption {
	return func(k *Kernel) {
		k.bandwidth = h
	}
}

// WithWorkers bounds the goroutines used by batched Predict. Values
// below 2 keep prediction sequential.
func WithWorkers(n int) KernelOption {
	return func(k *Kernel) {
		k.workers = n
	}
}

// NewKernel creates an unfitted Kernel regressor.
func NewKernel(opts ...KernelOption) *Kernel {
	k := &Kernel{workers: 4}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// NewKernelFactory returns a Factory producing identically configured
// Kernel instances.
func NewKernelFactory(opts ...KernelOption) Factory {
	return func() Surrogate {
		return NewKernel(opts...)
	}
}

// Fit snapshots the training data and derives the effective bandwidth.
// Earlier fitted state is discarded entirely.
func (k *Kernel) Fit(x [][]float64, y []float64) error {
	if len(x) == 0 {
		return errors.New(errors.InvalidConfiguration, "fit requires at least one observation")
	}
	if len(x) != len(y) {
		return errors.New(errors.InvalidConfiguration,
			fmt.Sprintf("fit received %d rows but %d values", len(x), len(y)))
	}
	width := len(x[0])
	rows := make([][]float64, len(x))
	for i, row := range x {
		if len(row) != width {
			return errors.New(errors.InvalidConfiguration,
				fmt.Sprintf("row %d has width %d, row 0 has width %d", i, len(row), width))
		}
		rows[i] = append([]float64(nil), row...)
	}

	k.x = rows
	k.y = append([]float64(nil), y...)

	var sum float64
	for _, v := range k.y {
		sum += v
	}
	k.globalMean = sum / float64(len(k.y))
	var sq float64
	for _, v := range k.y {
		d := v - k.globalMean
		sq += d * d
	}
	k.globalStd = math.Sqrt(sq / float64(len(k.y)))

	if k.bandwidth > 0 {
		k.h = k.bandwidth
	} else {
		k.h = medianDistance(k.x)
	}
	k.fitted = true
	return nil
}

// Predict scores a batch of encoded rows, fanning the batch out across a
// bounded worker pool when it is large enough to be worth it. Results do
// not depend on scheduling: each worker owns a disjoint index range.
func (k *Kernel) Predict(x [][]float64) (mean, std []float64, err error) {
	if !k.fitted {
		return nil, nil, errors.New(errors.NotFitted, "predict called before fit")
	}
	width := len(k.x[0])
	for i, row := range x {
		if len(row) != width {
			return nil, nil, errors.New(errors.InvalidPoint,
				fmt.Sprintf("query row %d has width %d, model expects %d", i, len(row), width))
		}
	}

	mean = make([]float64, len(x))
	std = make([]float64, len(x))

	workers := k.workers
	if workers < 2 || len(x) < workers*8 {
		for i, row := range x {
			mean[i], std[i] = k.predictOne(row)
		}
		return mean, std, nil
	}

	chunk := (len(x) + workers - 1) / workers
	p := pool.New().WithMaxGoroutines(workers)
	for start := 0; start < len(x); start += chunk {
		start := start
		end := start + chunk
		if end > len(x) {
			end = len(x)
		}
		p.Go(func() {
			for i := start; i < end; i++ {
				mean[i], std[i] = k.predictOne(x[i])
			}
		})
	}
	p.Wait()

	return mean, std, nil
}

func (k *Kernel) predictOne(q []float64) (float64, float64) {
	denom := 2 * k.h * k.h
	weights := make([]float64, len(k.x))
	var wsum float64
	for i, row := range k.x {
		var dist float64
		for j := range row {
			d := q[j] - row[j]
			dist += d * d
		}
		w := math.Exp(-dist / denom)
		weights[i] = w
		wsum += w
	}

	if wsum < lowWeight {
		return k.globalMean, k.globalStd
	}

	var m float64
	for i, w := range weights {
		m += w * k.y[i]
	}
	m /= wsum

	var v float64
	for i, w := range weights {
		d := k.y[i] - m
		v += w * d * d
	}
	v /= wsum
	if v < 0 {
		v = 0
	}
	return m, math.Sqrt(v)
}

// medianDistance estimates a bandwidth as the median pairwise Euclidean
// distance over at most 100 training rows. Degenerate data (a single
// row, or identical rows) falls back to 1.
func medianDistance(x [][]float64) float64 {
	n := len(x)
	if n > 100 {
		n = 100
	}
	var dists []float64
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			var sq float64
			for d := range x[i] {
				diff := x[i][d] - x[j][d]
				sq += diff * diff
			}
			if sq > 0 {
				dists = append(dists, math.Sqrt(sq))
			}
		}
	}
	if len(dists) == 0 {
		return 1
	}
	sort.Float64s(dists)
	return dists[len(dists)/2]
}
