package optimizer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sar2901/scikit-optimize/pkg/space"
)

func TestTimerRecordsGaps(t *testing.T) {
	timer := NewTimer()
	r := &Result{}

	require.NoError(t, timer.Record(r))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, timer.Record(r))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, timer.Record(r))

	gaps := timer.Durations()
	require.Len(t, gaps, 2, "n appends yield n-1 gaps")
	for _, d := range gaps {
		assert.Greater(t, d, time.Duration(0))
	}

	gaps[0] = -1
	assert.NotEqual(t, gaps, timer.Durations(), "Durations hands out a copy")
}

func TestDeltaYStopper(t *testing.T) {
	tests := []struct {
		name  string
		delta float64
		nBest int
		ys    []float64
		stop  bool
	}{
		{
			name:  "converged best values",
			delta: 0.1,
			nBest: 3,
			ys:    []float64{9.0, 1.05, 1.0, 1.02, 7.0},
			stop:  true,
		},
		{
			name:  "still improving",
			delta: 0.1,
			nBest: 3,
			ys:    []float64{9.0, 5.0, 1.0, 3.0},
			stop:  false,
		},
		{
			name:  "too few observations",
			delta: 0.1,
			nBest: 3,
			ys:    []float64{1.0, 1.0},
			stop:  false,
		},
		{
			name:  "exact tie within delta",
			delta: 0.0,
			nBest: 2,
			ys:    []float64{4.0, 2.0, 2.0},
			stop:  true,
		},
		{
			name:  "nBest below two is clamped",
			delta: 0.5,
			nBest: 0,
			ys:    []float64{3.0, 3.1},
			stop:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := DeltaYStopper(tt.delta, tt.nBest)
			err := cb(&Result{Ys: tt.ys})
			if tt.stop {
				assert.ErrorIs(t, err, ErrStopRun)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDeltaYStopperLeavesTraceSorted(t *testing.T) {
	ys := []float64{5.0, 1.0, 3.0}
	cb := DeltaYStopper(0.01, 2)

	r := &Result{Ys: ys}
	_ = cb(r)
	assert.Equal(t, []float64{5.0, 1.0, 3.0}, r.Ys, "the stopper must not reorder the trace")
}

func TestDeltaYStopperEndsRunEarly(t *testing.T) {
	sp := testSpace(t)
	flat := func(ctx context.Context, p space.Point) (float64, error) { return 2.5, nil }

	r, err := Minimize(context.Background(), flat, sp,
		fastOpts(WithCalls(50), WithRandomStarts(3), WithCallback(DeltaYStopper(1e-9, 3)))...)
	require.NoError(t, err)
	assert.Less(t, len(r.Ys), 50, "a converged run stops before the budget is spent")
	assert.GreaterOrEqual(t, len(r.Ys), 3)
	assert.Equal(t, 2.5, r.Fun)
}
