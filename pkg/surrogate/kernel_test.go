package surrogate

import (
	rand "math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sar2901/scikit-optimize/pkg/errors"
)

func TestKernelFitValidation(t *testing.T) {
	t.Run("empty fit rejected", func(t *testing.T) {
		k := NewKernel()
		err := k.Fit(nil, nil)
		require.Error(t, err)
		assert.Equal(t, errors.InvalidConfiguration, errors.Code(err))
	})

	t.Run("length mismatch rejected", func(t *testing.T) {
		k := NewKernel()
		err := k.Fit([][]float64{{1}, {2}}, []float64{1})
		require.Error(t, err)
		assert.Equal(t, errors.InvalidConfiguration, errors.Code(err))
	})

	t.Run("ragged rows rejected", func(t *testing.T) {
		k := NewKernel()
		err := k.Fit([][]float64{{1, 2}, {3}}, []float64{1, 2})
		require.Error(t, err)
		assert.Equal(t, errors.InvalidConfiguration, errors.Code(err))
	})
}

func TestKernelPredictBeforeFit(t *testing.T) {
	k := NewKernel()
	_, _, err := k.Predict([][]float64{{1}})
	require.Error(t, err)
	assert.Equal(t, errors.NotFitted, errors.Code(err))
}

func TestKernelPredictShape(t *testing.T) {
	k := NewKernel()
	require.NoError(t, k.Fit([][]float64{{0, 0}, {1, 1}}, []float64{1, 2}))

	t.Run("one mean and std per row", func(t *testing.T) {
		mean, std, err := k.Predict([][]float64{{0, 0}, {0.5, 0.5}, {1, 1}})
		require.NoError(t, err)
		assert.Len(t, mean, 3)
		assert.Len(t, std, 3)
		for _, s := range std {
			assert.GreaterOrEqual(t, s, 0.0)
		}
	})

	t.Run("empty batch allowed", func(t *testing.T) {
		mean, std, err := k.Predict(nil)
		require.NoError(t, err)
		assert.Empty(t, mean)
		assert.Empty(t, std)
	})

	t.Run("width mismatch rejected", func(t *testing.T) {
		_, _, err := k.Predict([][]float64{{1}})
		require.Error(t, err)
		assert.Equal(t, errors.InvalidPoint, errors.Code(err))
	})
}

func TestKernelInterpolation(t *testing.T) {
	k := NewKernel(WithBandwidth(0.5))
	require.NoError(t, k.Fit([][]float64{{0}, {10}}, []float64{1, 5}))

	t.Run("observed points dominate nearby predictions", func(t *testing.T) {
		mean, std, err := k.Predict([][]float64{{0}})
		require.NoError(t, err)
		assert.InDelta(t, 1.0, mean[0], 1e-6)
		assert.InDelta(t, 0.0, std[0], 1e-6)
	})

	t.Run("far queries fall back to global statistics", func(t *testing.T) {
		mean, std, err := k.Predict([][]float64{{5}})
		require.NoError(t, err)
		assert.InDelta(t, 3.0, mean[0], 1e-9, "global mean of {1, 5}")
		assert.InDelta(t, 2.0, std[0], 1e-9, "global std of {1, 5}")
	})
}

func TestKernelConstantValues(t *testing.T) {
	k := NewKernel(WithBandwidth(1))
	require.NoError(t, k.Fit([][]float64{{0}, {1}, {2}}, []float64{4, 4, 4}))

	mean, std, err := k.Predict([][]float64{{0.5}, {100}})
	require.NoError(t, err)
	for i := range mean {
		assert.InDelta(t, 4.0, mean[i], 1e-9)
		assert.Equal(t, 0.0, std[i], "constant data admits no spread anywhere")
	}
}

func TestKernelRefitReplacesState(t *testing.T) {
	k := NewKernel(WithBandwidth(0.5))
	require.NoError(t, k.Fit([][]float64{{0}}, []float64{1}))
	require.NoError(t, k.Fit([][]float64{{0}}, []float64{9}))

	mean, _, err := k.Predict([][]float64{{0}})
	require.NoError(t, err)
	assert.InDelta(t, 9.0, mean[0], 1e-9)
}

func TestKernelFitCopiesInputs(t *testing.T) {
	rows := [][]float64{{1}, {2}}
	vals := []float64{1, 2}

	k := NewKernel(WithBandwidth(0.5))
	require.NoError(t, k.Fit(rows, vals))

	rows[0][0] = 100
	vals[0] = 100

	mean, _, err := k.Predict([][]float64{{1}})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, mean[0], 1e-6,
		"mutating the caller's slices must not reach the fitted model")
}

func TestKernelParallelMatchesSequential(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 12))

	train := make([][]float64, 50)
	vals := make([]float64, 50)
	for i := range train {
		train[i] = []float64{rng.Float64() * 10, rng.Float64() * 10}
		vals[i] = rng.Float64()
	}
	queries := make([][]float64, 300)
	for i := range queries {
		queries[i] = []float64{rng.Float64() * 10, rng.Float64() * 10}
	}

	seq := NewKernel(WithBandwidth(1), WithWorkers(1))
	require.NoError(t, seq.Fit(train, vals))
	par := NewKernel(WithBandwidth(1), WithWorkers(8))
	require.NoError(t, par.Fit(train, vals))

	seqMean, seqStd, err := seq.Predict(queries)
	require.NoError(t, err)
	parMean, parStd, err := par.Predict(queries)
	require.NoError(t, err)

	assert.Equal(t, seqMean, parMean)
	assert.Equal(t, seqStd, parStd)
}

func TestKernelBandwidthHeuristic(t *testing.T) {
	t.Run("single row falls back to unit width", func(t *testing.T) {
		k := NewKernel()
		require.NoError(t, k.Fit([][]float64{{3}}, []float64{1}))
		assert.Equal(t, 1.0, k.h)
	})

	t.Run("identical rows fall back to unit width", func(t *testing.T) {
		k := NewKernel()
		require.NoError(t, k.Fit([][]float64{{3}, {3}, {3}}, []float64{1, 2, 3}))
		assert.Equal(t, 1.0, k.h)
	})

	t.Run("spread data picks a positive width", func(t *testing.T) {
		k := NewKernel()
		require.NoError(t, k.Fit([][]float64{{0}, {1}, {4}}, []float64{1, 2, 3}))
		assert.Greater(t, k.h, 0.0)
	})
}

func TestKernelFactory(t *testing.T) {
	factory := NewKernelFactory(WithBandwidth(0.25))

	a := factory()
	b := factory()
	require.NotSame(t, a, b, "factory must build independent instances")

	require.NoError(t, a.Fit([][]float64{{0}}, []float64{1}))
	_, _, err := b.Predict([][]float64{{0}})
	assert.Equal(t, errors.NotFitted, errors.Code(err),
		"fitting one instance must not fit its siblings")
}
