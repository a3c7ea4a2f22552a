package opt

import (
	"fmt"
	"strings"
)

// Optimizer defines one iterative optimization method.
//
// Implementations hold their hyperparameters and any iteration memory. The
// Problem and the caller's parameter vector are never modified.
type Optimizer interface {
	// Reset clears iteration memory. Call it before starting a new run.
	Reset()

	// Next performs one iteration from x.
	// Returns the objective evaluated at x (not at the new point) and a newly
	// allocated parameter vector.
	Next(p *Problem, x []float64) (float64, []float64, error)
}

// Restarter is implemented by optimizers with a random component. Restart
// follows Reset at the start of every training attempt, numbered from 1, so
// retries explore differently while staying reproducible.
type Restarter interface {
	Restart(attempt int)
}

// Settings configures the optimizers built by New. Zero values select each
// optimizer's defaults and negative values are rejected. A momentum rate of
// zero therefore means the default; plain steepest descent ("sd") is the
// optimizer without momentum.
type Settings struct {
	StepSize     float64
	MomentumRate float64

	// Line search
	C1         float64
	C2         float64
	ArmijoOnly bool

	// Mayfly
	Radius     float64
	Iterations int
	Population int
	Seed       int64
}

// Names lists the optimizers known to New.
var Names = []string{"sd", "sdm", "linesearch", "newton", "mayfly"}

// Validate rejects negative settings.
func (s Settings) Validate() error {
	checks := []struct {
		name  string
		value float64
	}{
		{"step size", s.StepSize},
		{"momentum rate", s.MomentumRate},
		{"c1", s.C1},
		{"c2", s.C2},
		{"radius", s.Radius},
		{"iterations", float64(s.Iterations)},
		{"population", float64(s.Population)},
	}
	for _, c := range checks {
		if c.value < 0 {
			return fmt.Errorf("%s %g: %w", c.name, c.value, ErrInvalidSetting)
		}
	}
	return nil
}

// New builds an optimizer by name.
func New(name string, s Settings) (Optimizer, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	switch strings.ToLower(name) {
	case "sd", "steepest":
		return NewSteepestDescent(s.StepSize), nil
	case "sdm", "momentum":
		return NewSteepestDescentMomentum(s.StepSize, s.MomentumRate), nil
	case "linesearch", "wolfe":
		return &LineSearchDescent{
			InitialStep: s.StepSize,
			C1:          s.C1,
			C2:          s.C2,
			ArmijoOnly:  s.ArmijoOnly,
		}, nil
	case "newton":
		return &Newton{StepSize: s.StepSize}, nil
	case "mayfly":
		return NewMayfly(s.Radius, s.Iterations, s.Population, s.Seed), nil
	default:
		return nil, fmt.Errorf("unknown optimizer %q (want one of %s)", name, strings.Join(Names, ", "))
	}
}

// evalObjJac evaluates the objective and jacobian at x and checks that the
// jacobian can be used as a step direction.
func evalObjJac(p *Problem, x []float64) (float64, []float64, error) {
	if !p.Available().Jac {
		return 0, nil, fmt.Errorf("jacobian (source %s): %w", p.Source(AccessJac), ErrMissingDerivative)
	}
	obj, jac := p.ObjJac(x)
	if err := checkLen("jacobian", len(x), len(jac)); err != nil {
		return 0, nil, err
	}
	return obj, jac, nil
}
