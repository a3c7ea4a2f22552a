// Package gradcheck validates hand-written derivatives against central
// difference approximations.
package gradcheck

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/learnkit/internal/opt"
)

// DefaultEpsilon is both the finite difference step and the accepted mean
// absolute error.
const DefaultEpsilon = 1e-6

// VecFunc maps a vector to a vector, e.g. an element-wise transfer function.
type VecFunc func(x []float64) []float64

// MismatchError reports a derivative that disagrees with its numeric
// approximation.
type MismatchError struct {
	MeanError float64
	Tolerance float64
	Worst     int // coordinate with the largest absolute error
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("derivative mismatch: mean absolute error %g exceeds %g (worst coordinate %d)",
		e.MeanError, e.Tolerance, e.Worst)
}

// RandomInput returns a vector with a uniformly drawn length in [2, 10] and
// entries in [0, 1).
func RandomInput(rng *rand.Rand) []float64 {
	x := make([]float64, 2+rng.Intn(9))
	for i := range x {
		x[i] = rng.Float64()
	}
	return x
}

// Approximate returns the central difference estimate of component i of
// ∂f/∂x_i for every coordinate i:
//
//	(f(x + ε·e_i) - f(x - ε·e_i))_i / 2ε
//
// f must return at least len(x) values.
func Approximate(f VecFunc, x []float64, eps float64) ([]float64, error) {
	n := len(x)
	if n == 0 {
		return nil, fmt.Errorf("empty input vector")
	}
	m := len(f(x))
	if m < n {
		return nil, fmt.Errorf("function returns %d values for %d inputs", m, n)
	}

	jac := mat.NewDense(m, n, nil)
	fd.Jacobian(jac, func(y, x []float64) {
		copy(y, f(x))
	}, append([]float64(nil), x...), &fd.JacobianSettings{
		Formula: fd.Central,
		Step:    eps,
	})

	approx := make([]float64, n)
	for i := range approx {
		approx[i] = jac.At(i, i)
	}
	return approx, nil
}

// Check verifies df against the central difference approximation of f at x.
// A nil x draws a RandomInput; a non-positive eps selects DefaultEpsilon.
// It returns a *MismatchError when the mean absolute error exceeds eps.
func Check(f, df VecFunc, x []float64, eps float64) error {
	if eps <= 0 {
		eps = DefaultEpsilon
	}
	if x == nil {
		x = RandomInput(rand.New(rand.NewSource(rand.Int63())))
	}

	approx, err := Approximate(f, x, eps)
	if err != nil {
		return err
	}
	analytic := df(x)
	if len(analytic) < len(x) {
		return fmt.Errorf("derivative returns %d values for %d inputs", len(analytic), len(x))
	}
	return compare(analytic[:len(x)], approx, eps)
}

// CheckProblem verifies a Problem's jacobian against the central difference
// gradient of its objective at x.
func CheckProblem(p *opt.Problem, x []float64, eps float64) error {
	if eps <= 0 {
		eps = DefaultEpsilon
	}
	avail := p.Available()
	if !avail.Obj || !avail.Jac {
		return fmt.Errorf("problem needs objective and jacobian: %w", opt.ErrMissingDerivative)
	}

	approx := fd.Gradient(nil, p.Obj, append([]float64(nil), x...), &fd.Settings{
		Formula: fd.Central,
		Step:    eps,
	})
	analytic := p.Jac(x)
	if len(analytic) != len(x) {
		return &opt.DimensionError{What: "jacobian", Want: len(x), Got: len(analytic)}
	}
	return compare(analytic, approx, eps)
}

func compare(analytic, approx []float64, tol float64) error {
	var sum, worst float64
	worstIdx := 0
	for i := range approx {
		d := math.Abs(analytic[i] - approx[i])
		sum += d
		if d > worst {
			worst, worstIdx = d, i
		}
	}

	mean := sum / float64(len(approx))
	if !(mean <= tol) {
		return &MismatchError{MeanError: mean, Tolerance: tol, Worst: worstIdx}
	}
	return nil
}
