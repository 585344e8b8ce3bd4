package journal

import (
	"github.com/sar2901/scikit-optimize/pkg/optimizer"
)

// Phase labels stored with each observation.
const (
	PhaseSeed   = "seed"
	PhaseRandom = "random"
	PhaseGuided = "guided"
)

// Recorder returns a callback that mirrors a run into the journal as it
// happens. The run is registered on the first append; each later append
// writes only the new trace entries, so a long run costs one insert per
// evaluation.
func Recorder(j *Journal) optimizer.Callback {
	var written int
	var registered bool
	return func(r *optimizer.Result) error {
		if !registered {
			if err := j.CreateRun(r.Metadata.RunID, r.Metadata.Seed, r.Space); err != nil {
				return err
			}
			registered = true
		}
		for i := written; i < len(r.Ys); i++ {
			if err := j.Append(r.Metadata.RunID, i, phaseLabel(i, r.Metadata), r.Xs[i], r.Ys[i]); err != nil {
				return err
			}
		}
		written = len(r.Ys)
		return nil
	}
}

// phaseLabel recovers which phase produced trace entry i from the phase
// counts, which grow in seeding, random, guided order.
func phaseLabel(i int, m optimizer.Metadata) string {
	switch {
	case i < m.SeedCount:
		return PhaseSeed
	case i < m.SeedCount+m.RandomCount:
		return PhaseRandom
	default:
		return PhaseGuided
	}
}
