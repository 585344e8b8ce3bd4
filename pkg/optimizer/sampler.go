package optimizer

import (
	"fmt"
	rand "math/rand/v2"

	"github.com/sar2901/scikit-optimize/pkg/acquisition"
	"github.com/sar2901/scikit-optimize/pkg/errors"
	"github.com/sar2901/scikit-optimize/pkg/space"
	"github.com/sar2901/scikit-optimize/pkg/surrogate"
)

// proposeNext draws a candidate pool, scores it against the fitted
// surrogate and returns the candidate with the strictly smallest
// acquisition score. The surrogate sees the whole pool in a single
// batched Predict; ties keep the first candidate in sampling order, so a
// fixed RNG state pins the proposal exactly.
func proposeNext(
	sur surrogate.Surrogate,
	sp *space.Space,
	best float64,
	nPoints int,
	rng *rand.Rand,
	fn acquisition.Function,
	params acquisition.Params,
) (space.Point, error) {
	candidates := sp.Sample(rng, nPoints)

	encoded := make([][]float64, len(candidates))
	for i, c := range candidates {
		enc, err := sp.Encode(c)
		if err != nil {
			// Sampled points are in-domain by construction; this is a
			// space implementation fault, not a user fault.
			return nil, errors.Wrap(err, errors.InvalidPoint,
				fmt.Sprintf("sampled candidate %d failed to encode", i))
		}
		encoded[i] = enc
	}

	mean, std, err := sur.Predict(encoded)
	if err != nil {
		return nil, errors.Wrap(err, errors.Code(err), "candidate prediction failed")
	}
	if len(mean) != len(candidates) || len(std) != len(candidates) {
		return nil, errors.New(errors.Unknown,
			fmt.Sprintf("surrogate returned %d/%d predictions for %d candidates",
				len(mean), len(std), len(candidates)))
	}

	scores := acquisition.ScoreBatch(fn, mean, std, best, params)

	bestIdx := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] < scores[bestIdx] {
			bestIdx = i
		}
	}
	return candidates[bestIdx], nil
}
