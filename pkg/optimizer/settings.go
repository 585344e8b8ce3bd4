package optimizer

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/sar2901/scikit-optimize/pkg/acquisition"
	"github.com/sar2901/scikit-optimize/pkg/errors"
	"github.com/sar2901/scikit-optimize/pkg/space"
	"github.com/sar2901/scikit-optimize/pkg/surrogate"
)

// Settings is the full configuration surface of a run. Zero values are
// filled from defaults before validation; callers shape it through the
// With* options rather than building it directly.
type Settings struct {
	// NCalls is the budget of objective evaluations.
	NCalls int `validate:"gte=1"`
	// NRandomStarts is the number of uniformly sampled warmup evaluations
	// before the surrogate takes over.
	NRandomStarts int `validate:"gte=0"`
	// NPoints is the candidate pool size drawn per guided proposal.
	NPoints int `validate:"gte=1"`
	// AcqFunc ranks candidate predictions.
	AcqFunc acquisition.Function `validate:"oneof=LCB EI PI"`
	// Xi is the improvement margin for EI and PI.
	Xi float64 `validate:"gte=0"`
	// Kappa is the exploration weight for LCB.
	Kappa float64 `validate:"gte=0"`
	// Seed seeds the run's RNG. Zero means derive from the clock.
	Seed int64
	// RNGState, when set, restores an exact RNG state (resume) and takes
	// precedence over Seed.
	RNGState []byte
	// X0 are caller-supplied starting points.
	X0 []space.Point
	// Y0 are objective values for X0. When present the points enter the
	// trace verbatim without spending budget.
	Y0 []float64
	// Callbacks run after every trace append.
	Callbacks []Callback
	// Factory builds the surrogate fitted each guided iteration.
	Factory surrogate.Factory
}

func defaultSettings() Settings {
	p := acquisition.DefaultParams()
	return Settings{
		NCalls:        100,
		NRandomStarts: 10,
		NPoints:       10000,
		AcqFunc:       acquisition.EI,
		Xi:            p.Xi,
		Kappa:         p.Kappa,
		Factory:       surrogate.NewKernelFactory(),
	}
}

// Option mutates Settings before validation.
type Option func(*Settings)

// WithCalls sets the objective evaluation budget.
func WithCalls(n int) Option {
	return func(s *Settings) { s.NCalls = n }
}

// WithRandomStarts sets the number of random warmup evaluations.
func WithRandomStarts(n int) Option {
	return func(s *Settings) { s.NRandomStarts = n }
}

// WithAcquisition selects the acquisition function.
func WithAcquisition(fn acquisition.Function) Option {
	return func(s *Settings) { s.AcqFunc = fn }
}

// WithXi sets the EI/PI improvement margin.
func WithXi(xi float64) Option {
	return func(s *Settings) { s.Xi = xi }
}

// WithKappa sets the LCB exploration weight.
func WithKappa(kappa float64) Option {
	return func(s *Settings) { s.Kappa = kappa }
}

// WithCandidates sets the candidate pool size per guided proposal.
func WithCandidates(n int) Option {
	return func(s *Settings) { s.NPoints = n }
}

// WithSeed fixes the RNG seed so runs reproduce exactly.
func WithSeed(seed int64) Option {
	return func(s *Settings) { s.Seed = seed }
}

// WithRNGState restores a serialized RNG state captured from a previous
// run's metadata. Takes precedence over WithSeed.
func WithRNGState(state []byte) Option {
	return func(s *Settings) { s.RNGState = append([]byte(nil), state...) }
}

// WithInitialPoints supplies starting points that will be evaluated
// before the random warmup, spending budget.
func WithInitialPoints(x0 []space.Point) Option {
	return func(s *Settings) {
		s.X0 = x0
		s.Y0 = nil
	}
}

// WithEvaluatedPoints supplies starting points together with their
// already-known objective values; they enter the trace verbatim and
// spend no budget.
func WithEvaluatedPoints(x0 []space.Point, y0 []float64) Option {
	return func(s *Settings) {
		s.X0 = x0
		s.Y0 = y0
	}
}

// WithCallback appends callbacks invoked after every trace append.
func WithCallback(cbs ...Callback) Option {
	return func(s *Settings) { s.Callbacks = append(s.Callbacks, cbs...) }
}

// WithSurrogate replaces the default kernel regressor factory.
func WithSurrogate(f surrogate.Factory) Option {
	return func(s *Settings) { s.Factory = f }
}

// ValidationError describes one rejected setting.
type ValidationError struct {
	Field   string
	Tag     string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s failed validation", e.Field)
}

// ValidationErrors aggregates every rejected setting so callers can fix
// a configuration in one pass.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var messages []string
	for _, err := range e {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

var (
	structValidator *validator.Validate
	validatorOnce   sync.Once
)

func getValidator() *validator.Validate {
	validatorOnce.Do(func() {
		structValidator = validator.New()
	})
	return structValidator
}

// getValidationMessage returns a human-readable validation message.
func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "gte":
		return fmt.Sprintf("%s must be at least %s", e.Field(), e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", e.Field(), e.Param())
	default:
		return fmt.Sprintf("%s failed validation", e.Field())
	}
}

// validate runs tag validation plus the relational rules that tie the
// budget, the warmup and the seed points together. It also normalizes X0
// onto each dimension's native type. Returns an InvalidConfiguration
// error wrapping the collected ValidationErrors.
func (s *Settings) validate(sp *space.Space) error {
	var verrs ValidationErrors

	if err := getValidator().Struct(s); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			for _, e := range errs {
				verrs = append(verrs, ValidationError{
					Field:   e.Field(),
					Tag:     e.Tag(),
					Value:   e.Value(),
					Message: getValidationMessage(e),
				})
			}
		} else {
			verrs = append(verrs, ValidationError{Message: err.Error()})
		}
	}

	verrs = append(verrs, s.validateSeeds(sp)...)
	verrs = append(verrs, s.validateBudget()...)

	if s.Factory == nil {
		verrs = append(verrs, ValidationError{
			Field:   "Factory",
			Tag:     "required",
			Message: "a surrogate factory is required",
		})
	}

	if len(verrs) > 0 {
		return errors.Wrap(verrs, errors.InvalidConfiguration, "invalid optimizer settings")
	}
	return nil
}

// validateSeeds checks the X0/Y0 pairing rules and coerces X0 in place.
func (s *Settings) validateSeeds(sp *space.Space) ValidationErrors {
	var verrs ValidationErrors

	if len(s.Y0) > 0 && len(s.X0) == 0 {
		verrs = append(verrs, ValidationError{
			Field:   "Y0",
			Message: "evaluated values supplied without their points",
		})
		return verrs
	}
	if s.Y0 != nil && len(s.X0) != len(s.Y0) {
		verrs = append(verrs, ValidationError{
			Field:   "Y0",
			Message: fmt.Sprintf("%d starting points but %d evaluated values", len(s.X0), len(s.Y0)),
		})
		return verrs
	}

	for i, v := range s.Y0 {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			verrs = append(verrs, ValidationError{
				Field:   "Y0",
				Message: fmt.Sprintf("evaluated value %d is not finite: %v", i, v),
			})
		}
	}

	coerced := make([]space.Point, len(s.X0))
	for i, p := range s.X0 {
		cp, err := sp.Coerce(p)
		if err != nil {
			verrs = append(verrs, ValidationError{
				Field:   "X0",
				Message: fmt.Sprintf("starting point %d: %v", i, err),
			})
			continue
		}
		coerced[i] = cp
	}
	if len(verrs) == 0 {
		s.X0 = coerced
	}
	return verrs
}

// validateBudget enforces the phase arithmetic: evaluated budget must
// cover seed evaluations plus the warmup, and the first surrogate fit
// must have a non-empty trace to learn from.
func (s *Settings) validateBudget() ValidationErrors {
	var verrs ValidationErrors

	seedEvals := 0
	if s.Y0 == nil {
		seedEvals = len(s.X0)
	}
	if s.NCalls < seedEvals+s.NRandomStarts {
		verrs = append(verrs, ValidationError{
			Field: "NCalls",
			Message: fmt.Sprintf("budget of %d cannot cover %d seed evaluations plus %d random starts",
				s.NCalls, seedEvals, s.NRandomStarts),
		})
	}

	if len(s.X0) == 0 && s.NRandomStarts == 0 {
		verrs = append(verrs, ValidationError{
			Field:   "NRandomStarts",
			Message: "guided phase would start from an empty trace; supply starting points or random starts",
		})
	}

	return verrs
}
