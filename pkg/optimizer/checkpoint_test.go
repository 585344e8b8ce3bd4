package optimizer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sar2901/scikit-optimize/internal/testutil"
	"github.com/sar2901/scikit-optimize/pkg/errors"
	"github.com/sar2901/scikit-optimize/pkg/space"
)

func TestCheckpointRoundTrip(t *testing.T) {
	sp := testSpace(t)
	path := filepath.Join(t.TempDir(), "run.yaml")

	orig := &Result{
		Xs: []space.Point{{1.5, 3, "a"}, {-2.0, 7, "b"}},
		Ys: []float64{4.25, 1.0},
		Metadata: Metadata{
			RunID:       "run-under-test",
			Seed:        99,
			RNGState:    []byte{1, 2, 3, 4},
			SeedCount:   1,
			RandomCount: 1,
			StartedAt:   time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
			Elapsed:     1500 * time.Millisecond,
		},
		Space: sp,
	}
	orig.refreshBest()

	require.NoError(t, SaveCheckpoint(orig, path))

	loaded, err := LoadCheckpoint(path, sp)
	require.NoError(t, err)

	assert.Equal(t, orig.Xs, loaded.Xs, "points come back with their native types")
	assert.Equal(t, orig.Ys, loaded.Ys)
	assert.Equal(t, orig.X, loaded.X, "the incumbent is recomputed on load")
	assert.Equal(t, 1.0, loaded.Fun)
	assert.Equal(t, "run-under-test", loaded.Metadata.RunID)
	assert.Equal(t, int64(99), loaded.Metadata.Seed)
	assert.Equal(t, []byte{1, 2, 3, 4}, loaded.Metadata.RNGState)
	assert.Equal(t, 1, loaded.Metadata.SeedCount)
	assert.Equal(t, 1, loaded.Metadata.RandomCount)
	assert.Equal(t, 0, loaded.Metadata.GuidedCount)
	assert.True(t, orig.Metadata.StartedAt.Equal(loaded.Metadata.StartedAt))
	assert.Equal(t, orig.Metadata.Elapsed, loaded.Metadata.Elapsed)
	assert.Empty(t, loaded.Models, "model snapshots are never persisted")

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "the temporary file is renamed away")
}

func TestLoadCheckpointMissingFile(t *testing.T) {
	sp := testSpace(t)

	_, err := LoadCheckpoint(filepath.Join(t.TempDir(), "absent.yaml"), sp)
	require.Error(t, err)
	assert.Equal(t, errors.ResourceNotFound, errors.Code(err))
}

func TestLoadCheckpointCorruptFile(t *testing.T) {
	sp := testSpace(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{{ not yaml at all"), 0o644))

	_, err := LoadCheckpoint(path, sp)
	require.Error(t, err)
	assert.Equal(t, errors.InvalidConfiguration, errors.Code(err))
	assert.Contains(t, err.Error(), "corrupt checkpoint")
}

func TestLoadCheckpointLengthMismatch(t *testing.T) {
	sp := testSpace(t)
	path := filepath.Join(t.TempDir(), "torn.yaml")
	raw := "points:\n  - [1.0, 2, a]\n  - [2.0, 3, b]\nvalues:\n  - 1.5\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	_, err := LoadCheckpoint(path, sp)
	require.Error(t, err)
	assert.Equal(t, errors.InvalidConfiguration, errors.Code(err))
	assert.Contains(t, err.Error(), "2 points but 1 values")
}

func TestLoadCheckpointPointOutsideSpace(t *testing.T) {
	sp := testSpace(t)
	path := filepath.Join(t.TempDir(), "drifted.yaml")
	raw := "points:\n  - [99.0, 2, a]\nvalues:\n  - 1.5\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	_, err := LoadCheckpoint(path, sp)
	require.Error(t, err)
	assert.Equal(t, errors.InvalidPoint, errors.Code(err))
	assert.Contains(t, err.Error(), "checkpoint point 0")
}

func TestCheckpointSaverTracksRun(t *testing.T) {
	sp := testSpace(t)
	path := filepath.Join(t.TempDir(), "live.yaml")

	r, err := Minimize(context.Background(), testutil.SphereObjective, sp,
		fastOpts(WithCalls(6), WithRandomStarts(3), WithCallback(CheckpointSaver(path)))...)
	require.NoError(t, err)

	loaded, err := LoadCheckpoint(path, sp)
	require.NoError(t, err)

	assert.Equal(t, r.Xs, loaded.Xs, "the last checkpoint holds the full trace")
	assert.Equal(t, r.Ys, loaded.Ys)
	assert.Equal(t, r.Metadata.RunID, loaded.Metadata.RunID)
	assert.Equal(t, r.Metadata.RNGState, loaded.Metadata.RNGState,
		"the final RNG state survives the file round trip")
	assert.Equal(t, r.Metadata.RandomCount, loaded.Metadata.RandomCount)
	assert.Equal(t, r.Metadata.GuidedCount, loaded.Metadata.GuidedCount)
}
