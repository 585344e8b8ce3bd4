package optimizer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sar2901/scikit-optimize/internal/testutil"
	"github.com/sar2901/scikit-optimize/pkg/errors"
)

func TestResumeValidation(t *testing.T) {
	sp := testSpace(t)

	_, err := Resume(context.Background(), testutil.SphereObjective, sp, nil)
	require.Error(t, err)
	assert.Equal(t, errors.InvalidConfiguration, errors.Code(err))

	_, err = Resume(context.Background(), testutil.SphereObjective, sp, &Result{})
	require.Error(t, err)
	assert.Equal(t, errors.InvalidConfiguration, errors.Code(err))
	assert.Contains(t, err.Error(), "empty trace")
}

// A run split in two and resumed must walk exactly the trace the
// unbroken run walks: same points, same values, same final RNG state.
func TestResumeSplitEqualsContinuousRun(t *testing.T) {
	sp := testSpace(t)
	shared := []Option{WithCandidates(200), WithSeed(5), WithRandomStarts(4)}

	continuous, err := Minimize(context.Background(), testutil.SphereObjective, sp,
		append([]Option{WithCalls(12)}, shared...)...)
	require.NoError(t, err)
	require.Len(t, continuous.Xs, 12)

	first, err := Minimize(context.Background(), testutil.SphereObjective, sp,
		append([]Option{WithCalls(6)}, shared...)...)
	require.NoError(t, err)
	require.Len(t, first.Xs, 6)

	resumed, err := Resume(context.Background(), testutil.SphereObjective, sp, first,
		WithCalls(6), WithCandidates(200))
	require.NoError(t, err)

	require.Len(t, resumed.Xs, 12, "previous trace plus the fresh budget")
	assert.Equal(t, continuous.Xs, resumed.Xs)
	assert.Equal(t, continuous.Ys, resumed.Ys)
	assert.Equal(t, continuous.X, resumed.X)
	assert.Equal(t, continuous.Fun, resumed.Fun)
	assert.Equal(t, continuous.Metadata.RNGState, resumed.Metadata.RNGState,
		"the random stream continues without a gap")

	assert.Equal(t, 6, resumed.Metadata.SeedCount, "the old trace enters as evaluated seeds")
	assert.Equal(t, 0, resumed.Metadata.RandomCount)
	assert.Equal(t, 6, resumed.Metadata.GuidedCount)
	assert.Equal(t, int64(5), resumed.Metadata.Seed, "provenance survives the handoff")
}

func TestResumeSpendsOnlyFreshBudget(t *testing.T) {
	sp := testSpace(t)

	first, err := Minimize(context.Background(), testutil.SphereObjective, sp,
		fastOpts(WithCalls(5), WithRandomStarts(3))...)
	require.NoError(t, err)

	obj := &testutil.CountingObjective{}
	resumed, err := Resume(context.Background(), obj.Evaluate, sp, first,
		WithCalls(3), WithCandidates(100))
	require.NoError(t, err)

	assert.Equal(t, 3, obj.Count(), "old observations are not re-evaluated")
	assert.Len(t, resumed.Xs, 8)
	assert.Equal(t, first.Xs, resumed.Xs[:5])
	assert.Equal(t, first.Ys, resumed.Ys[:5])
}

func TestResumeFromCheckpointFile(t *testing.T) {
	sp := testSpace(t)
	path := filepath.Join(t.TempDir(), "interrupted.yaml")

	first, err := Minimize(context.Background(), testutil.SphereObjective, sp,
		fastOpts(WithCalls(6), WithRandomStarts(3), WithCallback(CheckpointSaver(path)))...)
	require.NoError(t, err)

	loaded, err := LoadCheckpoint(path, sp)
	require.NoError(t, err)

	resumed, err := Resume(context.Background(), testutil.SphereObjective, sp, loaded,
		WithCalls(4), WithCandidates(200))
	require.NoError(t, err)

	assert.Len(t, resumed.Xs, 10)
	assert.Equal(t, first.Xs, resumed.Xs[:6], "the checkpointed trace is the foundation")
	assert.Equal(t, 6, resumed.Metadata.SeedCount)
	assert.Equal(t, 4, resumed.Metadata.GuidedCount)
}

func TestResumeOptionsOverrideInheritance(t *testing.T) {
	sp := testSpace(t)

	first, err := Minimize(context.Background(), testutil.SphereObjective, sp,
		fastOpts(WithCalls(4), WithRandomStarts(4))...)
	require.NoError(t, err)

	// An explicit request for extra random exploration beats the
	// zero-random default a resumed run starts from.
	resumed, err := Resume(context.Background(), testutil.SphereObjective, sp, first,
		WithCalls(5), WithRandomStarts(2), WithCandidates(100))
	require.NoError(t, err)

	assert.Equal(t, 2, resumed.Metadata.RandomCount)
	assert.Equal(t, 3, resumed.Metadata.GuidedCount)
	assert.Len(t, resumed.Xs, 9)
}
