package opt

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Newton takes damped Newton steps x' = x - α·H⁻¹∇f(x). When the hessian is
// not positive definite the step falls back to the steepest direction.
type Newton struct {
	StepSize float64 // Damping factor α (default 1).

	// Fallbacks counts iterations that used the steepest direction.
	Fallbacks int
}

// Reset clears the fallback counter.
func (n *Newton) Reset() {
	n.Fallbacks = 0
}

// Next returns f(x) and the Newton step from x. It fails with
// ErrMissingDerivative when the problem has no jacobian or no hessian.
func (n *Newton) Next(p *Problem, x []float64) (float64, []float64, error) {
	avail := p.Available()
	if !avail.Jac {
		return 0, nil, fmt.Errorf("jacobian (source %s): %w", p.Source(AccessJac), ErrMissingDerivative)
	}
	if !avail.Hess {
		return 0, nil, fmt.Errorf("hessian (source %s): %w", p.Source(AccessHess), ErrMissingDerivative)
	}

	step := n.StepSize
	if step <= 0 {
		step = 1.0
	}

	obj, jac, hess := p.ObjJacHess(x)
	dim := len(x)
	if err := checkLen("jacobian", dim, len(jac)); err != nil {
		return 0, nil, err
	}
	if hess == nil {
		return 0, nil, fmt.Errorf("hessian evaluated to nil: %w", ErrMissingDerivative)
	}
	if err := checkLen("hessian", dim, hess.SymmetricDim()); err != nil {
		return 0, nil, err
	}

	dir := make([]float64, dim)
	if !solveNewton(dir, hess, jac) {
		copy(dir, jac)
		n.Fallbacks++
	}

	next := make([]float64, dim)
	floats.AddScaledTo(next, x, -step, dir)
	return obj, next, nil
}

// solveNewton writes H⁻¹g into dst. It reports false when H is not positive
// definite.
func solveNewton(dst []float64, hess *mat.SymDense, jac []float64) bool {
	var chol mat.Cholesky
	if !chol.Factorize(hess) {
		return false
	}
	d := mat.NewVecDense(len(dst), dst)
	return chol.SolveVecTo(d, mat.NewVecDense(len(jac), jac)) == nil
}
