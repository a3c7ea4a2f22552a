package opt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/optimize/functions"
)

func TestValidateStrictness(t *testing.T) {
	tests := []struct {
		c1, c2 float64
		ok     bool
	}{
		{1e-4, 0.9, true},
		{0.1, 0.5, true},
		{0.5, 0.1, false},
		{0, 0.5, false},
		{0.5, 0.5, false},
		{0.5, 1, false},
		{-0.1, 0.5, false},
	}

	for _, tt := range tests {
		err := ValidateStrictness(tt.c1, tt.c2)
		if tt.ok {
			assert.NoError(t, err, "c1=%g c2=%g", tt.c1, tt.c2)
		} else {
			assert.ErrorIs(t, err, ErrInvalidStrictness, "c1=%g c2=%g", tt.c1, tt.c2)
		}
	}
}

func TestWolfeConditions_InvalidStrictnessBeforeEvaluation(t *testing.T) {
	calls := 0
	objJac := func(x []float64) (float64, []float64) {
		calls++
		return quadObjJac(x)
	}

	ok, err := WolfeConditions(1, []float64{1}, 1, []float64{2}, []float64{-2}, objJac, 0.5, 0.1)
	assert.ErrorIs(t, err, ErrInvalidStrictness)
	assert.False(t, ok)
	assert.Zero(t, calls)

	_, err = NewWolfe(0.5, 0.1)
	assert.ErrorIs(t, err, ErrInvalidStrictness)
}

func TestWolfeConditions_EvaluatesOnce(t *testing.T) {
	calls := 0
	objJac := func(x []float64) (float64, []float64) {
		calls++
		return quadObjJac(x)
	}

	x := []float64{1, -1}
	obj, jac := quadObjJac(x)
	dir := []float64{-jac[0], -jac[1]}

	ok, err := WolfeConditions(0.25, x, obj, jac, dir, objJac, 1e-4, 0.9)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, calls)
}

func TestWolfeConditions_Steps(t *testing.T) {
	// f = Σx², x = [1], p = -∇f = [-2]. f(x + a·p) = (1-2a)².
	x := []float64{1}
	obj, jac := quadObjJac(x)
	dir := []float64{-2}

	w, err := NewWolfe(1e-4, 0.9)
	require.NoError(t, err)

	tests := []struct {
		name string
		step float64
		want bool
	}{
		{"exact minimiser", 0.5, true},
		{"moderate", 0.3, true},
		{"too long fails armijo", 1.1, false},
		{"too short fails curvature", 0.001, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := w.Check(tt.step, x, obj, jac, dir, quadObjJac)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWolfeConditions_ShapeMismatch(t *testing.T) {
	x := []float64{1, 2}

	_, err := WolfeConditions(1, x, 5, []float64{2, 4}, []float64{-1}, quadObjJac, 1e-4, 0.9)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = WolfeConditions(1, x, 5, []float64{2}, []float64{-1, -1}, quadObjJac, 1e-4, 0.9)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	wrongJac := func([]float64) (float64, []float64) { return 0, []float64{1, 2, 3} }
	_, err = WolfeConditions(1, x, 5, []float64{2, 4}, []float64{-1, -1}, wrongJac, 1e-4, 0.9)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestWolfeConditions_NilObjJac(t *testing.T) {
	ok, err := WolfeConditions(0.5, []float64{1}, 1, []float64{2}, []float64{-2}, nil, 1e-4, 0.9)
	assert.ErrorIs(t, err, ErrMissingDerivative)
	assert.False(t, ok)
}

func TestArmijoAndCurvature(t *testing.T) {
	jac := []float64{2}
	dir := []float64{-2}

	// f(x)=1, slope pᵀ∇f = -4.
	assert.True(t, ArmijoRule(0.5, 1, jac, dir, 0, 0.5))
	assert.False(t, ArmijoRule(0.5, 1, jac, dir, 0.5, 0.9))

	assert.True(t, CurvatureCondition(jac, dir, []float64{0}, 0.9))
	assert.False(t, CurvatureCondition(jac, dir, []float64{1.9}, 0.9))
}

func TestLineSearchDescent_Rosenbrock(t *testing.T) {
	f := functions.ExtendedRosenbrock{}
	p := NewProblem(Functions{
		Obj: f.Func,
		Jac: func(x []float64) []float64 {
			g := make([]float64, len(x))
			f.Grad(g, x)
			return g
		},
	})

	ls := &LineSearchDescent{}
	ls.Reset()

	x := []float64{-1.2, 1}
	start := f.Func(x)
	var obj float64
	for i := 0; i < 100; i++ {
		var err error
		obj, x, err = ls.Next(p, x)
		require.NoError(t, err)
		assert.Positive(t, ls.LastStep)
	}
	assert.Less(t, obj, start)
	assert.Less(t, f.Func(x), obj+1e-12)
}

func TestLineSearchDescent_ArmijoOnlyNeverIncreases(t *testing.T) {
	p := NewProblem(Functions{ObjJac: quadObjJac})
	ls := &LineSearchDescent{InitialStep: 4, ArmijoOnly: true}

	x := []float64{3, -1}
	prev := quadObj(x)
	for i := 0; i < 20; i++ {
		_, next, err := ls.Next(p, x)
		require.NoError(t, err)
		assert.LessOrEqual(t, quadObj(next), prev)
		prev = quadObj(next)
		x = next
	}
	assert.InDelta(t, 0, prev, 1e-8)
}

func TestLineSearchDescent_Failures(t *testing.T) {
	_, _, err := (&LineSearchDescent{C1: 0.9, C2: 0.5}).Next(NewProblem(Functions{ObjJac: quadObjJac}), []float64{1})
	assert.ErrorIs(t, err, ErrInvalidStrictness)

	_, _, err = (&LineSearchDescent{}).Next(NewProblem(Functions{Jac: quadJac}), []float64{1})
	assert.ErrorIs(t, err, ErrMissingDerivative)

	// The reported gradient points away from any decrease.
	rising := NewProblem(Functions{
		Obj: func(x []float64) float64 { return 1 },
		Jac: func(x []float64) []float64 { return []float64{1} },
	})
	_, _, err = (&LineSearchDescent{MaxEvaluations: 10}).Next(rising, []float64{0})
	assert.ErrorIs(t, err, ErrLineSearchFailed)
}
