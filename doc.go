// Package skopt is a Go library for sequential model-based optimization
// of expensive black-box functions.
//
// It minimizes objectives whose every evaluation is costly (training a
// model, running a benchmark, calling a remote system) by spending a
// small evaluation budget well: evaluate a few points, fit a cheap
// surrogate model to what has been seen, and let an acquisition function
// pick the next point worth paying for. It focuses on making it easy to:
//   - Describe mixed search spaces of real, integer and categorical knobs
//   - Run a fixed evaluation budget through random warmup and guided search
//   - Reproduce a run exactly from its seed, or resume it without a gap
//   - Persist, inspect and export traces of every run
//
// Key Components:
//
//   - Space: mixed search spaces built from Real, Integer and Categorical
//     dimensions, with a deterministic bijection between native points
//     (float64, int, string) and the flat float64 vectors models consume.
//     Log-uniform priors handle scale-spanning knobs like learning rates.
//
//   - Optimizer: the sequential minimization loop. Minimize drives the
//     objective through seeding, random warmup and guided phases;
//     Resume continues a previous result with its RNG state restored.
//     Callbacks observe every trace append for timing, early stopping
//     and checkpointing.
//
//   - Surrogate: the model layer behind the guided phase. The built-in
//     kernel regressor predicts mean and uncertainty with an RBF-weighted
//     average of the trace and answers large candidate batches with a
//     parallel worker pool. Any model implementing Fit and Predict plugs
//     in through a Factory.
//
//   - Acquisition: LCB, EI and PI scoring of candidate predictions,
//     balancing exploitation of the surrogate mean against exploration
//     of its uncertainty.
//
//   - Journal: SQLite-backed persistence of runs and observations, a
//     Recorder callback that mirrors a live run into the journal, and
//     Arrow export of finished traces for analysis elsewhere.
//
// Simple Example:
//
//	import (
//	    "context"
//	    "log"
//
//	    "github.com/sar2901/scikit-optimize/pkg/optimizer"
//	    "github.com/sar2901/scikit-optimize/pkg/space"
//	)
//
//	func main() {
//	    sp, err := space.New(
//	        &space.Real{Name: "learning_rate", Low: 1e-4, High: 1e-1, Prior: space.LogUniform},
//	        &space.Integer{Name: "depth", Low: 1, High: 8},
//	        &space.Categorical{Name: "optimizer", Categories: []string{"sgd", "adam"}},
//	    )
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    objective := func(ctx context.Context, p space.Point) (float64, error) {
//	        return trainAndScore(p[0].(float64), p[1].(int), p[2].(string))
//	    }
//
//	    result, err := optimizer.Minimize(context.Background(), objective, sp,
//	        optimizer.WithCalls(50),
//	        optimizer.WithRandomStarts(10),
//	        optimizer.WithSeed(42),
//	    )
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    log.Printf("best %v -> %v", result.X, result.Fun)
//	}
//
// Advanced Features:
//
//   - Deterministic Replay: a fixed seed pins the entire run, and every
//     Result carries the serialized RNG state, so a resumed run walks
//     exactly the trace the unbroken run would have walked.
//
//   - Checkpointing: SaveCheckpoint and the CheckpointSaver callback
//     persist partial results as YAML after every evaluation; a crashed
//     run restarts from its last observation.
//
//   - Early Stopping: DeltaYStopper ends a run once the best values
//     plateau, and custom callbacks stop a run by returning ErrStopRun.
//
//   - Structured Logging: run and iteration context flow through every
//     log line, with per-evaluation detail at DEBUG severity.
//
//   - Arrow Export: finished traces serialize to Arrow IPC files with
//     one typed column per dimension for downstream analysis.
//
// For more examples and detailed documentation, visit:
// https://github.com/sar2901/scikit-optimize
package skopt
