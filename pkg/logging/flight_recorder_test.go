package logging

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlightRecorder(t *testing.T) {
	t.Run("defaults and options", func(t *testing.T) {
		fr := NewFlightRecorder()
		require.NotNil(t, fr.recorder)
		assert.Equal(t, 10*time.Second, fr.config.MinAge)
		assert.False(t, fr.running)

		fr = NewFlightRecorder(WithMinAge(30*time.Second), WithMaxBytes(1<<20))
		assert.Equal(t, 30*time.Second, fr.config.MinAge)
		assert.Equal(t, uint64(1<<20), fr.config.MaxBytes)
	})

	t.Run("start and stop are idempotent", func(t *testing.T) {
		fr := NewFlightRecorder(WithMinAge(time.Second))

		require.NoError(t, fr.Start())
		assert.True(t, fr.running)
		require.NoError(t, fr.Start())

		fr.Stop()
		assert.False(t, fr.running)
		fr.Stop()
		assert.False(t, fr.running)
	})

	t.Run("snapshot writes the window", func(t *testing.T) {
		fr := NewFlightRecorder(WithMinAge(time.Second))
		require.NoError(t, fr.Start())
		defer fr.Stop()

		// Generate some scheduler activity to land in the buffer.
		ctx, endTask := TraceTask(context.Background(), "run")
		done := TraceRegion(ctx, "warmup")
		time.Sleep(10 * time.Millisecond)
		done()
		endTask()

		path := filepath.Join(t.TempDir(), "run.trace")
		require.NoError(t, fr.Snapshot(path))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	})

	t.Run("snapshot without start writes nothing", func(t *testing.T) {
		fr := NewFlightRecorder()

		path := filepath.Join(t.TempDir(), "idle.trace")
		require.NoError(t, fr.Snapshot(path))

		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("snapshot on error passes the error through", func(t *testing.T) {
		fr := NewFlightRecorder(WithMinAge(time.Second))
		require.NoError(t, fr.Start())
		defer fr.Stop()

		time.Sleep(10 * time.Millisecond)

		path := filepath.Join(t.TempDir(), "failure.trace")
		boom := errors.New("evaluation blew up")
		assert.Equal(t, boom, fr.SnapshotOnError(boom, path))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))

		clean := filepath.Join(t.TempDir(), "clean.trace")
		assert.NoError(t, fr.SnapshotOnError(nil, clean))
		_, err = os.Stat(clean)
		assert.True(t, os.IsNotExist(err))
	})
}

func TestTraceHelpers(t *testing.T) {
	ctx := context.Background()

	endRegion := TraceRegion(ctx, "propose_next")
	require.NotNil(t, endRegion)
	endRegion()

	taskCtx, endTask := TraceTask(ctx, "optimization_run")
	require.NotNil(t, taskCtx)
	endTask()

	TraceLog(ctx, "evaluation", "iteration 3 complete")
}
