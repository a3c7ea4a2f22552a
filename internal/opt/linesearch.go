package opt

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ArmijoRule reports whether the sufficient decrease condition holds:
//
//	f(x + a·p) <= f(x) + c1·a·pᵀ∇f(x)
//
// jacX and dir must have the same length.
func ArmijoRule(step, objX float64, jacX, dir []float64, objXStep, c1 float64) bool {
	return objXStep <= objX+c1*step*floats.Dot(jacX, dir)
}

// CurvatureCondition reports whether the step is long enough relative to the
// local slope:
//
//	pᵀ∇f(x + a·p) >= c2·pᵀ∇f(x)
//
// jacX, dir and jacXStep must have the same length.
func CurvatureCondition(jacX, dir, jacXStep []float64, c2 float64) bool {
	return floats.Dot(jacXStep, dir) >= c2*floats.Dot(jacX, dir)
}

// ValidateStrictness checks 0 < c1 < c2 < 1.
func ValidateStrictness(c1, c2 float64) error {
	if !(0 < c1 && c1 < c2 && c2 < 1) {
		return fmt.Errorf("c1=%g c2=%g: %w", c1, c2, ErrInvalidStrictness)
	}
	return nil
}

// Wolfe checks the (weak) Wolfe conditions with fixed strictness constants.
type Wolfe struct {
	c1, c2 float64
}

// NewWolfe validates the strictness constants.
func NewWolfe(c1, c2 float64) (*Wolfe, error) {
	if err := ValidateStrictness(c1, c2); err != nil {
		return nil, err
	}
	return &Wolfe{c1: c1, c2: c2}, nil
}

// Check reports whether step satisfies both the Armijo rule and the curvature
// condition along dir from x. objX and jacX are f(x) and ∇f(x). objJac is
// evaluated once, at x + step·dir.
//
// The step is added, so a descent direction is e.g. the negated jacobian.
func (w *Wolfe) Check(step float64, x []float64, objX float64, jacX, dir []float64, objJac ObjJacFunc) (bool, error) {
	if objJac == nil {
		return false, fmt.Errorf("objective and jacobian at trial point: %w", ErrMissingDerivative)
	}
	n := len(x)
	if err := checkLen("jacobian", n, len(jacX)); err != nil {
		return false, err
	}
	if err := checkLen("step direction", n, len(dir)); err != nil {
		return false, err
	}

	trial := make([]float64, n)
	floats.AddScaledTo(trial, x, step, dir)
	objStep, jacStep := objJac(trial)
	if err := checkLen("jacobian at trial point", n, len(jacStep)); err != nil {
		return false, err
	}

	return ArmijoRule(step, objX, jacX, dir, objStep, w.c1) &&
		CurvatureCondition(jacX, dir, jacStep, w.c2), nil
}

// WolfeConditions is the one-shot form of NewWolfe followed by Check. The
// strictness constants are validated before anything is evaluated.
func WolfeConditions(step float64, x []float64, objX float64, jacX, dir []float64, objJac ObjJacFunc, c1, c2 float64) (bool, error) {
	w, err := NewWolfe(c1, c2)
	if err != nil {
		return false, err
	}
	return w.Check(step, x, objX, jacX, dir, objJac)
}

const (
	defaultInitialStep   = 1.0
	defaultContraction   = 0.5
	defaultDecrease      = 1e-4
	defaultCurvature     = 0.9
	defaultMaxEvaluation = 50
	minimumStepSize      = 1e-20
)

// LineSearchDescent takes steepest descent steps whose length is chosen by a
// bracketing line search on the Wolfe conditions. With ArmijoOnly set, only
// sufficient decrease is required and the search reduces to backtracking.
type LineSearchDescent struct {
	InitialStep    float64 // First trial step of every search (default 1).
	Contraction    float64 // Step multiplier while the Armijo rule fails (default 0.5).
	C1             float64 // Armijo constant (default 1e-4).
	C2             float64 // Curvature constant (default 0.9).
	ArmijoOnly     bool
	MaxEvaluations int // Trial points per search (default 50).

	// LastStep is the step size accepted by the most recent Next.
	LastStep float64
}

// Reset is a no-op apart from clearing LastStep; every search starts from
// InitialStep.
func (l *LineSearchDescent) Reset() {
	l.LastStep = 0
}

func (l *LineSearchDescent) defaults() (initial, contraction, c1, c2 float64, maxEval int) {
	initial, contraction, c1, c2, maxEval = l.InitialStep, l.Contraction, l.C1, l.C2, l.MaxEvaluations
	if initial <= 0 {
		initial = defaultInitialStep
	}
	if contraction <= 0 || contraction >= 1 {
		contraction = defaultContraction
	}
	if c1 == 0 {
		c1 = defaultDecrease
	}
	if c2 == 0 {
		c2 = defaultCurvature
	}
	if maxEval <= 0 {
		maxEval = defaultMaxEvaluation
	}
	return
}

// Next searches along -∇f(x) and returns f(x) and the accepted point.
func (l *LineSearchDescent) Next(p *Problem, x []float64) (float64, []float64, error) {
	step, contraction, c1, c2, maxEval := l.defaults()
	if err := ValidateStrictness(c1, c2); err != nil {
		return 0, nil, err
	}
	if !p.Available().Obj {
		return 0, nil, fmt.Errorf("objective (source %s): %w", p.Source(AccessObj), ErrMissingDerivative)
	}

	obj, jac, err := evalObjJac(p, x)
	if err != nil {
		return 0, nil, err
	}

	dir := make([]float64, len(jac))
	floats.ScaleTo(dir, -1, jac)
	trial := make([]float64, len(x))

	lo, hi := 0.0, math.Inf(1)
	for i := 0; i < maxEval; i++ {
		floats.AddScaledTo(trial, x, step, dir)
		objStep, jacStep := p.ObjJac(trial)
		if err := checkLen("jacobian at trial point", len(x), len(jacStep)); err != nil {
			return 0, nil, err
		}

		switch {
		case !ArmijoRule(step, obj, jac, dir, objStep, c1):
			hi = step
			step = lo + contraction*(hi-lo)
		case !l.ArmijoOnly && !CurvatureCondition(jac, dir, jacStep, c2):
			lo = step
			if math.IsInf(hi, 1) {
				step *= 2
			} else {
				step = (lo + hi) / 2
			}
		default:
			l.LastStep = step
			return obj, trial, nil
		}

		if step < minimumStepSize {
			break
		}
	}
	return 0, nil, fmt.Errorf("after step %g: %w", step, ErrLineSearchFailed)
}
