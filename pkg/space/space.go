// Package space defines mixed search spaces over real, integer and
// categorical dimensions and the deterministic bijection between native
// points and the flat float64 vectors surrogate models consume.
package space

import (
	"fmt"
	rand "math/rand/v2"

	"github.com/sar2901/scikit-optimize/pkg/errors"
)

// Point holds one native value per dimension, in declaration order:
// float64 for Real, int for Integer, string for Categorical.
type Point []interface{}

// Space is an ordered, immutable collection of dimensions.
type Space struct {
	dims  []Dimension
	width int
}

// New builds a Space from the given dimensions, validating every
// dimension invariant up front. Dimensions without a name are assigned
// positional names x0, x1, ... so traces and journals stay addressable.
func New(dims ...Dimension) (*Space, error) {
	if len(dims) == 0 {
		return nil, errors.New(errors.InvalidConfiguration, "space needs at least one dimension")
	}

	s := &Space{dims: make([]Dimension, len(dims))}
	seen := make(map[string]struct{}, len(dims))
	for i, d := range dims {
		if d == nil {
			return nil, errors.New(errors.InvalidConfiguration,
				fmt.Sprintf("dimension %d is nil", i))
		}
		name := d.label()
		if name == "" {
			name = fmt.Sprintf("x%d", i)
		}
		if _, dup := seen[name]; dup {
			return nil, errors.New(errors.InvalidConfiguration,
				fmt.Sprintf("duplicate dimension name %q", name))
		}
		seen[name] = struct{}{}

		// Copy so later mutation of the caller's struct cannot reach us.
		nd := d.renamed(name)
		if err := nd.check(); err != nil {
			return nil, err
		}
		s.dims[i] = nd
		s.width += nd.Width()
	}
	return s, nil
}

// Len returns the number of dimensions.
func (s *Space) Len() int { return len(s.dims) }

// EncodedWidth returns the total number of float64 slots an encoded
// point occupies.
func (s *Space) EncodedWidth() int { return s.width }

// Names returns the dimension names in order.
func (s *Space) Names() []string {
	names := make([]string, len(s.dims))
	for i, d := range s.dims {
		names[i] = d.label()
	}
	return names
}

// Dimensions returns a copy of the dimension list.
func (s *Space) Dimensions() []Dimension {
	dims := make([]Dimension, len(s.dims))
	for i, d := range s.dims {
		dims[i] = d.renamed(d.label())
	}
	return dims
}

// Validate checks that a point has one in-domain value per dimension.
func (s *Space) Validate(p Point) error {
	if len(p) != len(s.dims) {
		return errors.New(errors.InvalidPoint,
			fmt.Sprintf("point has %d values, space has %d dimensions", len(p), len(s.dims)))
	}
	for i, d := range s.dims {
		if err := d.Validate(p[i]); err != nil {
			return err
		}
	}
	return nil
}

// Coerce maps loosely typed values (YAML and JSON decoding produce
// float64 and int64 interchangeably) onto each dimension's native type,
// validating domains along the way.
func (s *Space) Coerce(p Point) (Point, error) {
	if len(p) != len(s.dims) {
		return nil, errors.New(errors.InvalidPoint,
			fmt.Sprintf("point has %d values, space has %d dimensions", len(p), len(s.dims)))
	}
	out := make(Point, len(p))
	for i, d := range s.dims {
		v, err := d.coerce(p[i])
		if err != nil {
			return nil, err
		}
		if err := d.Validate(v); err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Encode maps a native point to its flat encoded vector. Real values
// pass through (log-scaled under a LogUniform prior), integers widen to
// float64, categoricals expand one-hot.
func (s *Space) Encode(p Point) ([]float64, error) {
	if len(p) != len(s.dims) {
		return nil, errors.New(errors.InvalidPoint,
			fmt.Sprintf("point has %d values, space has %d dimensions", len(p), len(s.dims)))
	}
	enc := make([]float64, 0, s.width)
	for i, d := range s.dims {
		slots, err := d.Encode(p[i])
		if err != nil {
			return nil, err
		}
		enc = append(enc, slots...)
	}
	return enc, nil
}

// Decode maps a flat encoded vector back to a native point, inverting
// Encode slot group by slot group.
func (s *Space) Decode(enc []float64) (Point, error) {
	if len(enc) != s.width {
		return nil, errors.New(errors.InvalidPoint,
			fmt.Sprintf("encoded point has %d slots, space encodes to %d", len(enc), s.width))
	}
	p := make(Point, len(s.dims))
	off := 0
	for i, d := range s.dims {
		w := d.Width()
		v, err := d.Decode(enc[off : off+w])
		if err != nil {
			return nil, err
		}
		p[i] = v
		off += w
	}
	return p, nil
}

// Sample draws n independent points; each point draws its dimensions in
// declaration order so a fixed RNG state yields a fixed sequence.
func (s *Space) Sample(rng *rand.Rand, n int) []Point {
	points := make([]Point, n)
	for i := range points {
		p := make(Point, len(s.dims))
		for j, d := range s.dims {
			p[j] = d.Sample(rng)
		}
		points[i] = p
	}
	return points
}
