// Package problems builds opt.Problem values for standard test functions and
// for least-squares regression on a dataset.
package problems

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/functions"

	"github.com/cwbudde/learnkit/internal/data"
	"github.com/cwbudde/learnkit/internal/opt"
)

// Problem couples an opt.Problem with a starting point and, when known, the
// location of its global minimum.
type Problem struct {
	Name    string
	Problem *opt.Problem
	Start   []float64
	Minimum []float64 // nil when unknown
}

// Dim returns the number of parameters.
func (p *Problem) Dim() int { return len(p.Start) }

type funcGrad interface {
	Func(x []float64) float64
	Grad(grad, x []float64)
}

type funcGradHess interface {
	funcGrad
	Hess(hess *mat.SymDense, x []float64)
}

func gradient(f funcGrad) opt.JacFunc {
	return func(x []float64) []float64 {
		g := make([]float64, len(x))
		f.Grad(g, x)
		return g
	}
}

func hessian(f funcGradHess) opt.HessFunc {
	return func(x []float64) *mat.SymDense {
		h := mat.NewSymDense(len(x), nil)
		f.Hess(h, x)
		return h
	}
}

// Rosenbrock returns the extended Rosenbrock function of dim >= 2 variables,
// started from the classic (-1.2, 1, -1.2, 1, ...). No hessian is supplied.
func Rosenbrock(dim int) (*Problem, error) {
	if dim < 2 {
		return nil, fmt.Errorf("rosenbrock needs at least 2 dimensions, got %d", dim)
	}
	f := functions.ExtendedRosenbrock{}

	start := make([]float64, dim)
	minimum := make([]float64, dim)
	for i := range start {
		start[i] = 1
		if i%2 == 0 {
			start[i] = -1.2
		}
		minimum[i] = 1
	}

	return &Problem{
		Name:    "rosenbrock",
		Problem: opt.NewProblem(opt.Functions{Obj: f.Func, Jac: gradient(f)}),
		Start:   start,
		Minimum: minimum,
	}, nil
}

// Beale returns the two dimensional Beale function with its hessian.
func Beale() *Problem {
	f := functions.Beale{}
	return &Problem{
		Name:    "beale",
		Problem: opt.NewProblem(opt.Functions{Obj: f.Func, Jac: gradient(f), Hess: hessian(f)}),
		Start:   []float64{1, 1},
		Minimum: []float64{3, 0.5},
	}
}

// Wood returns the four dimensional Wood function with its hessian.
func Wood() *Problem {
	f := functions.Wood{}
	return &Problem{
		Name:    "wood",
		Problem: opt.NewProblem(opt.Functions{Obj: f.Func, Jac: gradient(f), Hess: hessian(f)}),
		Start:   []float64{-3, -1, -3, -1},
		Minimum: []float64{1, 1, 1, 1},
	}
}

// LeastSquares returns the linear regression problem
//
//	f(W) = ‖X·W - Y‖² / 2n
//
// where X is the dataset's inputs with a trailing bias column and Y its
// targets. W is (inputs+1)×outputs, flattened row-major into the parameter
// vector, and starts at zero.
//
// The objective and jacobian share the residual and are supplied together; the
// hessian does not depend on W and is supplied separately.
func LeastSquares(ds *data.Dataset) *Problem {
	ls := newLinearModel(ds)
	return &Problem{
		Name:    "leastsquares",
		Problem: opt.NewProblem(opt.Functions{ObjJac: ls.objJac, Hess: ls.hess}),
		Start:   make([]float64, ls.params),
	}
}

type linearModel struct {
	x, y    *mat.Dense
	n       float64
	inputs  int // including bias
	outputs int
	params  int
	gram    *mat.SymDense // XᵀX / n
}

func newLinearModel(ds *data.Dataset) *linearModel {
	rows, cols := ds.Inputs.Dims()
	_, outputs := ds.Targets.Dims()

	x := mat.NewDense(rows, cols+1, nil)
	x.Slice(0, rows, 0, cols).(*mat.Dense).Copy(ds.Inputs)
	for i := 0; i < rows; i++ {
		x.Set(i, cols, 1)
	}

	gram := mat.NewSymDense(cols+1, nil)
	gram.SymOuterK(1/float64(rows), x.T())

	return &linearModel{
		x:       x,
		y:       ds.Targets,
		n:       float64(rows),
		inputs:  cols + 1,
		outputs: outputs,
		params:  (cols + 1) * outputs,
		gram:    gram,
	}
}

func (m *linearModel) objJac(w []float64) (float64, []float64) {
	if len(w) != m.params {
		return 0, nil
	}
	weights := mat.NewDense(m.inputs, m.outputs, w)

	var resid mat.Dense
	resid.Mul(m.x, weights)
	resid.Sub(&resid, m.y)

	obj := mat.Norm(&resid, 2)
	obj = obj * obj / (2 * m.n)

	grad := mat.NewDense(m.inputs, m.outputs, nil)
	grad.Mul(m.x.T(), &resid)
	grad.Scale(1/m.n, grad)
	return obj, grad.RawMatrix().Data
}

// hess is block diagonal: parameters (a, j) and (b, l) interact through
// (XᵀX/n)[a][b] only when j == l.
func (m *linearModel) hess(w []float64) *mat.SymDense {
	if len(w) != m.params {
		return nil
	}
	h := mat.NewSymDense(m.params, nil)
	for a := 0; a < m.inputs; a++ {
		for b := a; b < m.inputs; b++ {
			v := m.gram.At(a, b)
			for j := 0; j < m.outputs; j++ {
				h.SetSym(a*m.outputs+j, b*m.outputs+j, v)
			}
		}
	}
	return h
}

// Builder creates a named problem. ds is nil unless the problem is
// data-driven.
type Builder func(dim int, ds *data.Dataset) (*Problem, error)

var registry = map[string]Builder{
	"rosenbrock": func(dim int, _ *data.Dataset) (*Problem, error) {
		if dim == 0 {
			dim = 2
		}
		return Rosenbrock(dim)
	},
	"beale": func(int, *data.Dataset) (*Problem, error) { return Beale(), nil },
	"wood":  func(int, *data.Dataset) (*Problem, error) { return Wood(), nil },
	"leastsquares": func(_ int, ds *data.Dataset) (*Problem, error) {
		if ds == nil {
			ds = data.XOR()
		}
		return LeastSquares(ds), nil
	},
}

// Names lists the registered problems in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByName builds a registered problem. dim is used by problems of variable
// dimension (0 selects their default); ds by data-driven problems (nil
// selects the XOR dataset).
func ByName(name string, dim int, ds *data.Dataset) (*Problem, error) {
	build, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown problem %q (want one of %s)", name, strings.Join(Names(), ", "))
	}
	return build(dim, ds)
}
