package optimizer

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sar2901/scikit-optimize/pkg/errors"
	"github.com/sar2901/scikit-optimize/pkg/space"
)

// checkpointFile is the serialized shape of a Result. Model snapshots
// are not persisted; a restored run refits from the trace.
type checkpointFile struct {
	RunID       string          `yaml:"run_id"`
	Seed        int64           `yaml:"seed"`
	RNGState    []byte          `yaml:"rng_state,omitempty"`
	SeedCount   int             `yaml:"seed_count"`
	RandomCount int             `yaml:"random_count"`
	GuidedCount int             `yaml:"guided_count"`
	StartedAt   time.Time       `yaml:"started_at"`
	Elapsed     time.Duration   `yaml:"elapsed"`
	Points      [][]interface{} `yaml:"points"`
	Values      []float64       `yaml:"values"`
}

// SaveCheckpoint writes the Result trace and metadata to path as YAML.
// The write goes through a temporary file and a rename, so a crash
// mid-write never leaves a torn checkpoint behind.
func SaveCheckpoint(r *Result, path string) error {
	cf := checkpointFile{
		RunID:       r.Metadata.RunID,
		Seed:        r.Metadata.Seed,
		RNGState:    r.Metadata.RNGState,
		SeedCount:   r.Metadata.SeedCount,
		RandomCount: r.Metadata.RandomCount,
		GuidedCount: r.Metadata.GuidedCount,
		StartedAt:   r.Metadata.StartedAt,
		Elapsed:     r.Metadata.Elapsed,
		Points:      make([][]interface{}, len(r.Xs)),
		Values:      r.Ys,
	}
	for i, p := range r.Xs {
		cf.Points[i] = p
	}

	data, err := yaml.Marshal(&cf)
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "marshal checkpoint")
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, errors.Unknown, "write checkpoint")
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrap(err, errors.Unknown, "replace checkpoint")
	}
	return nil
}

// LoadCheckpoint reads a checkpoint and rebuilds a Result against the
// given space, restoring each point to its native types. The returned
// Result carries no model snapshots; hand it to Resume to continue the
// run.
func LoadCheckpoint(path string, sp *space.Space) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(err, errors.ResourceNotFound,
				fmt.Sprintf("checkpoint %s does not exist", path))
		}
		return nil, errors.Wrap(err, errors.Unknown, "read checkpoint")
	}

	var cf checkpointFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, errors.Wrap(err, errors.InvalidConfiguration, "corrupt checkpoint")
	}
	if len(cf.Points) != len(cf.Values) {
		return nil, errors.New(errors.InvalidConfiguration,
			fmt.Sprintf("checkpoint holds %d points but %d values", len(cf.Points), len(cf.Values)))
	}

	r := &Result{
		Xs: make([]space.Point, len(cf.Points)),
		Ys: cf.Values,
		Metadata: Metadata{
			RunID:       cf.RunID,
			Seed:        cf.Seed,
			RNGState:    cf.RNGState,
			SeedCount:   cf.SeedCount,
			RandomCount: cf.RandomCount,
			GuidedCount: cf.GuidedCount,
			StartedAt:   cf.StartedAt,
			Elapsed:     cf.Elapsed,
		},
		Space: sp,
	}
	for i, raw := range cf.Points {
		p, err := sp.Coerce(raw)
		if err != nil {
			return nil, errors.Wrap(err, errors.Code(err),
				fmt.Sprintf("checkpoint point %d does not fit the space", i))
		}
		r.Xs[i] = p
	}
	r.refreshBest()
	return r, nil
}

// CheckpointSaver returns a callback that persists every partial Result
// to path, giving crash recovery at per-iteration granularity.
func CheckpointSaver(path string) Callback {
	return func(r *Result) error {
		return SaveCheckpoint(r, path)
	}
}
