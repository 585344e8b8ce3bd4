package space

import (
	"fmt"
	"math"
	rand "math/rand/v2"

	"github.com/sar2901/scikit-optimize/pkg/errors"
)

// Prior controls how a Real dimension is distributed and encoded.
type Prior string

const (
	// Uniform samples and encodes values on a linear scale.
	Uniform Prior = "uniform"
	// LogUniform samples uniformly in log space and encodes values as their
	// natural logarithm. Requires strictly positive bounds.
	LogUniform Prior = "log-uniform"
)

// Dimension is one axis of a search space. Implementations are the closed
// set Real, Integer and Categorical; the unexported methods keep it that way.
type Dimension interface {
	// Width is the number of float64 slots the dimension occupies in
	// encoded form: 1, except one slot per category for Categorical.
	Width() int
	// Validate reports whether a native value lies in the dimension's domain.
	Validate(value interface{}) error
	// Sample draws one native value using the supplied source.
	Sample(rng *rand.Rand) interface{}
	// Encode maps a native value to its encoded slots.
	Encode(value interface{}) ([]float64, error)
	// Decode maps encoded slots back to a native value.
	Decode(encoded []float64) (interface{}, error)

	label() string
	check() error
	renamed(name string) Dimension
	coerce(value interface{}) (interface{}, error)
}

func invalidPoint(dim string, format string, args ...interface{}) error {
	return errors.WithFields(
		errors.New(errors.InvalidPoint, fmt.Sprintf(format, args...)),
		errors.Fields{"dimension": dim},
	)
}

// boundTol absorbs the one-ulp drift of exp(log(v)) at the edges of a
// log-scaled dimension so valid points survive an encode/decode round trip.
const boundTol = 1e-9

// Real is a continuous dimension over the inclusive interval [Low, High].
// A zero Prior means Uniform.
type Real struct {
	Name  string
	Low   float64
	High  float64
	Prior Prior
}

func (d *Real) label() string { return d.Name }

func (d *Real) renamed(name string) Dimension {
	c := *d
	c.Name = name
	return &c
}

func (d *Real) check() error {
	if math.IsNaN(d.Low) || math.IsNaN(d.High) || math.IsInf(d.Low, 0) || math.IsInf(d.High, 0) {
		return errors.New(errors.InvalidConfiguration,
			fmt.Sprintf("real dimension %q: bounds must be finite", d.Name))
	}
	if d.Low >= d.High {
		return errors.New(errors.InvalidConfiguration,
			fmt.Sprintf("real dimension %q: low (%v) must be less than high (%v)", d.Name, d.Low, d.High))
	}
	switch d.Prior {
	case "", Uniform:
	case LogUniform:
		if d.Low <= 0 {
			return errors.New(errors.InvalidConfiguration,
				fmt.Sprintf("real dimension %q: log-uniform prior requires low > 0, got %v", d.Name, d.Low))
		}
	default:
		return errors.New(errors.InvalidConfiguration,
			fmt.Sprintf("real dimension %q: unknown prior %q", d.Name, d.Prior))
	}
	return nil
}

func (d *Real) Width() int { return 1 }

func (d *Real) coerce(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return nil, invalidPoint(d.Name, "expected a real value, got %T", value)
	}
}

func (d *Real) Validate(value interface{}) error {
	v, err := d.coerce(value)
	if err != nil {
		return err
	}
	f := v.(float64)
	if math.IsNaN(f) || f < d.Low || f > d.High {
		return invalidPoint(d.Name, "value %v outside [%v, %v]", f, d.Low, d.High)
	}
	return nil
}

func (d *Real) Sample(rng *rand.Rand) interface{} {
	if d.Prior == LogUniform {
		lo, hi := math.Log(d.Low), math.Log(d.High)
		return math.Exp(lo + rng.Float64()*(hi-lo))
	}
	return d.Low + rng.Float64()*(d.High-d.Low)
}

func (d *Real) Encode(value interface{}) ([]float64, error) {
	if err := d.Validate(value); err != nil {
		return nil, err
	}
	v, _ := d.coerce(value)
	f := v.(float64)
	if d.Prior == LogUniform {
		return []float64{math.Log(f)}, nil
	}
	return []float64{f}, nil
}

func (d *Real) Decode(encoded []float64) (interface{}, error) {
	if len(encoded) != 1 {
		return nil, invalidPoint(d.Name, "expected 1 encoded slot, got %d", len(encoded))
	}
	f := encoded[0]
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, invalidPoint(d.Name, "non-finite encoded value %v", f)
	}
	if d.Prior == LogUniform {
		f = math.Exp(f)
	}
	f, err := clampToBounds(f, d.Low, d.High)
	if err != nil {
		return nil, invalidPoint(d.Name, "decoded value %v outside [%v, %v]", f, d.Low, d.High)
	}
	return f, nil
}

// clampToBounds snaps values within tolerance of a bound onto it and
// rejects everything further out.
func clampToBounds(v, low, high float64) (float64, error) {
	tol := boundTol * math.Max(1, math.Max(math.Abs(low), math.Abs(high)))
	if v < low {
		if low-v > tol {
			return v, fmt.Errorf("below lower bound")
		}
		return low, nil
	}
	if v > high {
		if v-high > tol {
			return v, fmt.Errorf("above upper bound")
		}
		return high, nil
	}
	return v, nil
}

// Integer is a discrete dimension over the inclusive range [Low, High].
type Integer struct {
	Name string
	Low  int
	High int
}

func (d *Integer) label() string { return d.Name }

func (d *Integer) renamed(name string) Dimension {
	c := *d
	c.Name = name
	return &c
}

func (d *Integer) check() error {
	if d.Low > d.High {
		return errors.New(errors.InvalidConfiguration,
			fmt.Sprintf("integer dimension %q: low (%d) must not exceed high (%d)", d.Name, d.Low, d.High))
	}
	return nil
}

func (d *Integer) Width() int { return 1 }

func (d *Integer) coerce(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if math.Trunc(v) != v || math.IsInf(v, 0) {
			return nil, invalidPoint(d.Name, "expected an integer value, got %v", v)
		}
		return int(v), nil
	default:
		return nil, invalidPoint(d.Name, "expected an integer value, got %T", value)
	}
}

func (d *Integer) Validate(value interface{}) error {
	v, err := d.coerce(value)
	if err != nil {
		return err
	}
	n := v.(int)
	if n < d.Low || n > d.High {
		return invalidPoint(d.Name, "value %d outside [%d, %d]", n, d.Low, d.High)
	}
	return nil
}

func (d *Integer) Sample(rng *rand.Rand) interface{} {
	span := int64(d.High) - int64(d.Low) + 1
	return d.Low + int(rng.Int64N(span))
}

func (d *Integer) Encode(value interface{}) ([]float64, error) {
	if err := d.Validate(value); err != nil {
		return nil, err
	}
	v, _ := d.coerce(value)
	return []float64{float64(v.(int))}, nil
}

func (d *Integer) Decode(encoded []float64) (interface{}, error) {
	if len(encoded) != 1 {
		return nil, invalidPoint(d.Name, "expected 1 encoded slot, got %d", len(encoded))
	}
	f := encoded[0]
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, invalidPoint(d.Name, "non-finite encoded value %v", f)
	}
	n := int(math.Round(f))
	if n < d.Low || n > d.High {
		return nil, invalidPoint(d.Name, "decoded value %d outside [%d, %d]", n, d.Low, d.High)
	}
	return n, nil
}

// Categorical is a dimension over a finite, non-empty set of labels,
// encoded one-hot in declaration order.
type Categorical struct {
	Name       string
	Categories []string
}

func (d *Categorical) label() string { return d.Name }

func (d *Categorical) renamed(name string) Dimension {
	c := *d
	c.Name = name
	c.Categories = append([]string(nil), d.Categories...)
	return &c
}

func (d *Categorical) check() error {
	if len(d.Categories) == 0 {
		return errors.New(errors.InvalidConfiguration,
			fmt.Sprintf("categorical dimension %q: needs at least one category", d.Name))
	}
	seen := make(map[string]struct{}, len(d.Categories))
	for _, c := range d.Categories {
		if _, dup := seen[c]; dup {
			return errors.New(errors.InvalidConfiguration,
				fmt.Sprintf("categorical dimension %q: duplicate category %q", d.Name, c))
		}
		seen[c] = struct{}{}
	}
	return nil
}

func (d *Categorical) Width() int { return len(d.Categories) }

func (d *Categorical) coerce(value interface{}) (interface{}, error) {
	s, ok := value.(string)
	if !ok {
		return nil, invalidPoint(d.Name, "expected a category label, got %T", value)
	}
	return s, nil
}

func (d *Categorical) index(label string) int {
	for i, c := range d.Categories {
		if c == label {
			return i
		}
	}
	return -1
}

func (d *Categorical) Validate(value interface{}) error {
	v, err := d.coerce(value)
	if err != nil {
		return err
	}
	if d.index(v.(string)) < 0 {
		return invalidPoint(d.Name, "unknown category %q", v)
	}
	return nil
}

func (d *Categorical) Sample(rng *rand.Rand) interface{} {
	return d.Categories[rng.IntN(len(d.Categories))]
}

func (d *Categorical) Encode(value interface{}) ([]float64, error) {
	if err := d.Validate(value); err != nil {
		return nil, err
	}
	v, _ := d.coerce(value)
	enc := make([]float64, len(d.Categories))
	enc[d.index(v.(string))] = 1
	return enc, nil
}

// Decode picks the first index holding the maximum slot value, so ties
// resolve to the earliest declared category.
func (d *Categorical) Decode(encoded []float64) (interface{}, error) {
	if len(encoded) != len(d.Categories) {
		return nil, invalidPoint(d.Name, "expected %d encoded slots, got %d", len(d.Categories), len(encoded))
	}
	best := 0
	for i, f := range encoded {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, invalidPoint(d.Name, "non-finite encoded value %v at slot %d", f, i)
		}
		if f > encoded[best] {
			best = i
		}
	}
	return d.Categories[best], nil
}
