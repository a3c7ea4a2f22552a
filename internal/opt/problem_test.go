package opt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// quadratic is f(x) = Σ x_i², ∇f = 2x, H = 2I.
func quadObj(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return sum
}

func quadJac(x []float64) []float64 {
	g := make([]float64, len(x))
	for i, v := range x {
		g[i] = 2 * v
	}
	return g
}

func quadHess(x []float64) *mat.SymDense {
	h := mat.NewSymDense(len(x), nil)
	for i := range x {
		h.SetSym(i, i, 2)
	}
	return h
}

func quadObjJac(x []float64) (float64, []float64) { return quadObj(x), quadJac(x) }

func quadObjHess(x []float64) (float64, *mat.SymDense) { return quadObj(x), quadHess(x) }

func quadJacHess(x []float64) ([]float64, *mat.SymDense) { return quadJac(x), quadHess(x) }

func quadObjJacHess(x []float64) (float64, []float64, *mat.SymDense) {
	return quadObj(x), quadJac(x), quadHess(x)
}

func assertAllAccessors(t *testing.T, p *Problem, x []float64) {
	t.Helper()

	wantObj, wantJac, wantHess := quadObj(x), quadJac(x), quadHess(x)

	assert.Equal(t, wantObj, p.Obj(x))
	assert.Equal(t, wantJac, p.Jac(x))
	assert.True(t, mat.Equal(wantHess, p.Hess(x)))

	obj, jac := p.ObjJac(x)
	assert.Equal(t, wantObj, obj)
	assert.Equal(t, wantJac, jac)

	obj, hess := p.ObjHess(x)
	assert.Equal(t, wantObj, obj)
	assert.True(t, mat.Equal(wantHess, hess))

	jac, hess = p.JacHess(x)
	assert.Equal(t, wantJac, jac)
	assert.True(t, mat.Equal(wantHess, hess))

	obj, jac, hess = p.ObjJacHess(x)
	assert.Equal(t, wantObj, obj)
	assert.Equal(t, wantJac, jac)
	assert.True(t, mat.Equal(wantHess, hess))

	assert.Equal(t, Available{Obj: true, Jac: true, Hess: true}, p.Available())
}

func TestProblem_OnlyObjJac(t *testing.T) {
	p := NewProblem(Functions{ObjJac: quadObjJac})
	x := []float64{1, -2, 3}

	assert.Nil(t, p.Hess(x))
	assert.Equal(t, quadObj(x), p.Obj(x))
	assert.Equal(t, quadJac(x), p.Jac(x))

	obj, jac := p.ObjJac(x)
	assert.Equal(t, quadObj(x), obj)
	assert.Equal(t, quadJac(x), jac)

	obj, hess := p.ObjHess(x)
	assert.Equal(t, quadObj(x), obj)
	assert.Nil(t, hess)

	_, _, hess = p.ObjJacHess(x)
	assert.Nil(t, hess)

	assert.Equal(t, Available{Obj: true, Jac: true}, p.Available())
	assert.Equal(t, "obj_jac", p.Source(AccessObjJac))
	assert.Equal(t, "obj_jac[1]", p.Source(AccessJac))
	assert.Equal(t, "unavailable", p.Source(AccessHess))
	assert.Equal(t, "(obj_jac, hess)", p.Source(AccessObjJacHess))
}

func TestProblem_SeparateFunctions(t *testing.T) {
	p := NewProblem(Functions{Obj: quadObj, Jac: quadJac, Hess: quadHess})
	x := []float64{0.5, 4}

	obj, jac, hess := p.ObjJacHess(x)
	assert.Equal(t, quadObj(x), obj)
	assert.Equal(t, quadJac(x), jac)
	assert.True(t, mat.Equal(quadHess(x), hess))
	assert.Equal(t, "(obj, jac, hess)", p.Source(AccessObjJacHess))

	assertAllAccessors(t, p, x)
}

func TestProblem_OnlyObjJacHess(t *testing.T) {
	p := NewProblem(Functions{ObjJacHess: quadObjJacHess})
	x := []float64{-1, 2}

	assertAllAccessors(t, p, x)
	assert.Equal(t, "obj_jac_hess[0]", p.Source(AccessObj))
	assert.Equal(t, "obj_jac_hess[1:3]", p.Source(AccessJacHess))
	assert.Equal(t, "obj_jac_hess", p.Source(AccessObjJacHess))
}

func TestProblem_EveryCombination(t *testing.T) {
	tests := []struct {
		name string
		fns  Functions
	}{
		{"obj_hess + jac", Functions{ObjHess: quadObjHess, Jac: quadJac}},
		{"jac_hess + obj", Functions{JacHess: quadJacHess, Obj: quadObj}},
		{"obj_jac + obj_hess", Functions{ObjJac: quadObjJac, ObjHess: quadObjHess}},
		{"obj + jac_hess + obj_jac", Functions{Obj: quadObj, JacHess: quadJacHess, ObjJac: quadObjJac}},
		{"all seven", Functions{
			Obj: quadObj, Jac: quadJac, Hess: quadHess,
			ObjJac: quadObjJac, ObjHess: quadObjHess, JacHess: quadJacHess,
			ObjJacHess: quadObjJacHess,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertAllAccessors(t, NewProblem(tt.fns), []float64{3, -0.25, 1})
		})
	}
}

func TestProblem_Priority(t *testing.T) {
	// Distinct constant sources reveal which one each accessor picked.
	constObj := func(v float64) ObjFunc { return func([]float64) float64 { return v } }

	p := NewProblem(Functions{
		Obj:        constObj(1),
		ObjJac:     func([]float64) (float64, []float64) { return 2, []float64{2} },
		ObjJacHess: func([]float64) (float64, []float64, *mat.SymDense) { return 3, []float64{3}, nil },
	})
	x := []float64{0}

	assert.Equal(t, 1.0, p.Obj(x))
	assert.Equal(t, []float64{2}, p.Jac(x))

	obj, jac := p.ObjJac(x)
	assert.Equal(t, 2.0, obj)
	assert.Equal(t, []float64{2}, jac)

	obj, jac, _ = p.ObjJacHess(x)
	assert.Equal(t, 3.0, obj)
	assert.Equal(t, []float64{3}, jac)

	// obj_hess prefers the joint obj_jac_hess over bundling.
	obj, _ = p.ObjHess(x)
	assert.Equal(t, 3.0, obj)
}

func TestProblem_Empty(t *testing.T) {
	p := NewProblem(Functions{})
	x := []float64{1}

	assert.True(t, math.IsNaN(p.Obj(x)))
	assert.Nil(t, p.Jac(x))
	assert.Nil(t, p.Hess(x))

	obj, jac, hess := p.ObjJacHess(x)
	assert.True(t, math.IsNaN(obj))
	assert.Nil(t, jac)
	assert.Nil(t, hess)

	assert.Equal(t, Available{}, p.Available())
	for a := AccessObj; a < numAccessors; a++ {
		assert.NotEmpty(t, p.Source(a), a.String())
	}
}

func TestProblem_NoCaching(t *testing.T) {
	var objCalls, jacCalls int
	p := NewProblem(Functions{
		Obj: func(x []float64) float64 { objCalls++; return quadObj(x) },
		Jac: func(x []float64) []float64 { jacCalls++; return quadJac(x) },
	})
	x := []float64{1, 2}

	obj1, jac1 := p.ObjJac(x)
	obj2, jac2 := p.ObjJac(x)

	assert.Equal(t, obj1, obj2)
	assert.Equal(t, jac1, jac2)
	assert.Equal(t, 2, objCalls)
	assert.Equal(t, 2, jacCalls)
}

func TestProblem_SplitObjHessAroundJac(t *testing.T) {
	var objHessCalls int
	p := NewProblem(Functions{
		ObjHess: func(x []float64) (float64, *mat.SymDense) { objHessCalls++; return quadObjHess(x) },
		Jac:     quadJac,
	})
	x := []float64{2, 1}

	obj, jac, hess := p.ObjJacHess(x)
	require.NotNil(t, hess)
	assert.Equal(t, quadObj(x), obj)
	assert.Equal(t, quadJac(x), jac)
	assert.Equal(t, 1, objHessCalls, "joint obj_hess should be called once")
	assert.Equal(t, "(obj_hess, jac)", p.Source(AccessObjJacHess))
}

func TestAccessorString(t *testing.T) {
	assert.Equal(t, "obj_jac_hess", AccessObjJacHess.String())
	assert.Equal(t, "unknown", Accessor(42).String())
}
