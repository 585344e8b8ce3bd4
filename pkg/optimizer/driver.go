// Package optimizer runs sequential model-based minimization: evaluate a
// few points to get a trace, fit a surrogate to the trace, let an
// acquisition function pick the next point, repeat until the budget is
// spent. The surrogate model, the acquisition function and every knob of
// the loop arrive through options; the loop itself is strictly
// sequential and deterministic for a fixed seed.
package optimizer

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	rand "math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/sar2901/scikit-optimize/pkg/acquisition"
	"github.com/sar2901/scikit-optimize/pkg/errors"
	"github.com/sar2901/scikit-optimize/pkg/logging"
	"github.com/sar2901/scikit-optimize/pkg/space"
)

// Objective is the function being minimized. It receives the native
// point to evaluate; returning an error aborts the run, and non-finite
// values are rejected as InvalidObjectiveValue.
type Objective func(ctx context.Context, p space.Point) (float64, error)

type phase int

const (
	phaseSeeding phase = iota
	phaseRandom
	phaseGuided
)

type driver struct {
	settings  Settings
	objective Objective
	space     *space.Space
	pcg       *rand.PCG
	rng       *rand.Rand
	logger    *logging.Logger
	result    *Result
	callsUsed int
	stopped   bool
}

// Minimize runs the full loop and assembles the Result. The trace grows
// through up to three phases: seeding (caller-supplied points), random
// warmup (uniform draws), and guided search (surrogate plus acquisition).
// The objective is never called concurrently.
func Minimize(ctx context.Context, objective Objective, sp *space.Space, opts ...Option) (*Result, error) {
	if objective == nil {
		return nil, errors.New(errors.InvalidConfiguration, "objective function is nil")
	}
	if sp == nil {
		return nil, errors.New(errors.InvalidConfiguration, "search space is nil")
	}

	settings := defaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}
	if err := settings.validate(sp); err != nil {
		return nil, err
	}

	seed := settings.Seed
	if seed == 0 && settings.RNGState == nil {
		seed = time.Now().UnixNano()
	}
	pcg := rand.NewPCG(uint64(seed), uint64(seed)+1)
	if settings.RNGState != nil {
		if err := pcg.UnmarshalBinary(settings.RNGState); err != nil {
			return nil, errors.Wrap(err, errors.InvalidConfiguration, "restore RNG state")
		}
	}

	d := &driver{
		settings:  settings,
		objective: objective,
		space:     sp,
		pcg:       pcg,
		rng:       rand.New(pcg),
		logger:    logging.GetLogger(),
		result: &Result{
			Space: sp,
			Metadata: Metadata{
				RunID:     uuid.New().String(),
				Seed:      seed,
				StartedAt: time.Now(),
			},
		},
	}

	ctx = logging.WithRunID(ctx, d.result.Metadata.RunID)
	err := d.run(ctx)
	d.finalize()
	if err != nil {
		return nil, err
	}

	d.logger.Info(ctx, "run complete: best %v after %d evaluations", d.result.Fun, len(d.result.Ys))
	return d.result, nil
}

func (d *driver) run(ctx context.Context) error {
	s := &d.settings
	d.logger.Info(ctx, "minimizing: %d calls, %d random starts, %d seed points, %s acquisition",
		s.NCalls, s.NRandomStarts, len(s.X0), s.AcqFunc)

	if err := d.seedPhase(ctx); err != nil || d.stopped {
		return err
	}
	if err := d.randomPhase(ctx); err != nil || d.stopped {
		return err
	}
	return d.guidedPhase(ctx)
}

// seedPhase feeds caller-supplied points into the trace: verbatim when
// their values are known, through the objective when not.
func (d *driver) seedPhase(ctx context.Context) error {
	s := &d.settings
	if len(s.X0) == 0 {
		return nil
	}

	for i, p := range s.X0 {
		if d.stopped {
			return nil
		}
		var y float64
		if s.Y0 != nil {
			y = s.Y0[i]
		} else {
			var err error
			if y, err = d.evaluate(ctx, p); err != nil {
				return err
			}
		}
		if err := d.append(ctx, phaseSeeding, p, y); err != nil {
			return err
		}
	}

	d.logger.Info(ctx, "seeding complete: %d trace entries", d.result.Metadata.SeedCount)
	return nil
}

// randomPhase spends NRandomStarts budget on uniform exploration.
func (d *driver) randomPhase(ctx context.Context) error {
	s := &d.settings
	for i := 0; i < s.NRandomStarts; i++ {
		if d.stopped {
			return nil
		}
		p := d.space.Sample(d.rng, 1)[0]
		y, err := d.evaluate(ctx, p)
		if err != nil {
			return err
		}
		if err := d.append(ctx, phaseRandom, p, y); err != nil {
			return err
		}
	}

	if s.NRandomStarts > 0 {
		d.logger.Info(ctx, "random warmup complete: %d evaluations", s.NRandomStarts)
	}
	return nil
}

// guidedPhase drains the remaining budget one proposal at a time. Every
// iteration fits a fresh surrogate on the whole trace and keeps it as
// that iteration's snapshot.
func (d *driver) guidedPhase(ctx context.Context) error {
	s := &d.settings
	params := acquisition.Params{Xi: s.Xi, Kappa: s.Kappa}

	for d.callsUsed < s.NCalls {
		if d.stopped {
			return nil
		}
		if err := errors.CheckContext(ctx, "guided search"); err != nil {
			return err
		}

		sur := s.Factory()
		x, err := d.encodeTrace()
		if err != nil {
			return err
		}
		if err := sur.Fit(x, d.result.Ys); err != nil {
			return errors.Wrap(err, errors.Code(err), "surrogate fit failed")
		}
		d.result.Models = append(d.result.Models, sur)

		p, err := proposeNext(sur, d.space, d.result.Fun, s.NPoints, d.rng, s.AcqFunc, params)
		if err != nil {
			return err
		}

		y, err := d.evaluate(ctx, p)
		if err != nil {
			return err
		}
		if err := d.append(ctx, phaseGuided, p, y); err != nil {
			return err
		}
	}
	return nil
}

// evaluate runs the objective once, charging the budget and rejecting
// non-finite values before they can reach the trace.
func (d *driver) evaluate(ctx context.Context, p space.Point) (float64, error) {
	if err := errors.CheckContext(ctx, "optimization run"); err != nil {
		return 0, err
	}

	iter := len(d.result.Xs)
	ctx = logging.WithIteration(ctx, iter)

	y, err := d.objective(ctx, p)
	if err != nil {
		return 0, errors.WithFields(err, errors.Fields{"iteration": iter})
	}
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return 0, errors.WithFields(
			errors.New(errors.InvalidObjectiveValue,
				fmt.Sprintf("objective returned a non-finite value: %v", y)),
			errors.Fields{"iteration": iter},
		)
	}

	d.callsUsed++
	d.logger.Evaluation(ctx, p, y)
	return y, nil
}

// append commits one observation to the trace, refreshes the incumbent,
// captures the RNG state for resumability, and runs every callback on a
// deep copy. All callbacks see the append even when one of them asks to
// stop; a non-sentinel callback error aborts the run.
func (d *driver) append(ctx context.Context, ph phase, p space.Point, y float64) error {
	d.result.Xs = append(d.result.Xs, p)
	d.result.Ys = append(d.result.Ys, y)
	switch ph {
	case phaseSeeding:
		d.result.Metadata.SeedCount++
	case phaseRandom:
		d.result.Metadata.RandomCount++
	case phaseGuided:
		d.result.Metadata.GuidedCount++
	}
	d.result.refreshBest()
	if state, err := d.pcg.MarshalBinary(); err == nil {
		d.result.Metadata.RNGState = state
	}
	d.result.Metadata.Elapsed = time.Since(d.result.Metadata.StartedAt)

	if len(d.settings.Callbacks) == 0 {
		return nil
	}
	snap := d.result.snapshot()
	for _, cb := range d.settings.Callbacks {
		if err := cb(snap); err != nil {
			if stderrors.Is(err, ErrStopRun) {
				d.stopped = true
				d.logger.Info(ctx, "callback requested stop after %d evaluations", len(d.result.Ys))
				continue
			}
			return errors.Wrap(err, errors.Code(err), "callback failed")
		}
	}
	return nil
}

func (d *driver) encodeTrace() ([][]float64, error) {
	x := make([][]float64, len(d.result.Xs))
	for i, p := range d.result.Xs {
		enc, err := d.space.Encode(p)
		if err != nil {
			return nil, errors.Wrap(err, errors.Code(err),
				fmt.Sprintf("trace entry %d failed to encode", i))
		}
		x[i] = enc
	}
	return x, nil
}

func (d *driver) finalize() {
	if state, err := d.pcg.MarshalBinary(); err == nil {
		d.result.Metadata.RNGState = state
	}
	d.result.Metadata.Elapsed = time.Since(d.result.Metadata.StartedAt)
	d.result.refreshBest()
}

// Resume continues a finished or checkpointed run: the previous trace
// enters as evaluated seed points, the previous RNG state is restored
// exactly, and the new budget counts fresh objective calls only. Options
// apply on top, so WithCalls sets how much further to search.
func Resume(ctx context.Context, objective Objective, sp *space.Space, prev *Result, opts ...Option) (*Result, error) {
	if prev == nil {
		return nil, errors.New(errors.InvalidConfiguration, "previous result is nil")
	}
	if len(prev.Xs) == 0 {
		return nil, errors.New(errors.InvalidConfiguration, "previous result has an empty trace")
	}

	base := []Option{
		WithRandomStarts(0),
		WithEvaluatedPoints(prev.Xs, prev.Ys),
		WithSeed(prev.Metadata.Seed),
	}
	if len(prev.Metadata.RNGState) > 0 {
		base = append(base, WithRNGState(prev.Metadata.RNGState))
	}
	return Minimize(ctx, objective, sp, append(base, opts...)...)
}
