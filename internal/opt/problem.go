package opt

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Source function signatures accepted by NewProblem. Each maps a parameter
// vector to the objective, its jacobian (gradient) and/or its hessian.
type (
	ObjFunc        func(x []float64) float64
	JacFunc        func(x []float64) []float64
	HessFunc       func(x []float64) *mat.SymDense
	ObjJacFunc     func(x []float64) (float64, []float64)
	ObjHessFunc    func(x []float64) (float64, *mat.SymDense)
	JacHessFunc    func(x []float64) ([]float64, *mat.SymDense)
	ObjJacHessFunc func(x []float64) (float64, []float64, *mat.SymDense)
)

// Functions holds whichever subset of source functions the caller can supply.
// Combined forms are worth providing when joint evaluation is cheaper than
// separate calls (shared intermediate results).
type Functions struct {
	Obj        ObjFunc
	Jac        JacFunc
	Hess       HessFunc
	ObjJac     ObjJacFunc
	ObjHess    ObjHessFunc
	JacHess    JacHessFunc
	ObjJacHess ObjJacHessFunc
}

// Accessor identifies one of the seven derived functions of a Problem.
type Accessor int

const (
	AccessObj Accessor = iota
	AccessJac
	AccessHess
	AccessObjJac
	AccessObjHess
	AccessJacHess
	AccessObjJacHess
	numAccessors
)

var accessorNames = [numAccessors]string{
	"obj", "jac", "hess", "obj_jac", "obj_hess", "jac_hess", "obj_jac_hess",
}

func (a Accessor) String() string {
	if a < 0 || a >= numAccessors {
		return "unknown"
	}
	return accessorNames[a]
}

// sourceUnavailable names the resolution of an accessor with no usable source.
const sourceUnavailable = "unavailable"

// Available reports which derivative orders a Problem can compute.
type Available struct {
	Obj  bool
	Jac  bool
	Hess bool
}

// Problem is an immutable bundle of the seven accessor functions derived from
// the sources given to NewProblem. Every accessor is always callable.
//
// Values that cannot be computed are reported as math.NaN() for the objective,
// a nil jacobian and a nil hessian. Use Available to branch on them up front.
//
// Accessors that combine several sources call each of them on every
// invocation; nothing is cached.
type Problem struct {
	obj        ObjFunc
	jac        JacFunc
	hess       HessFunc
	objJac     ObjJacFunc
	objHess    ObjHessFunc
	jacHess    JacHessFunc
	objJacHess ObjJacHessFunc

	available Available
	sources   [numAccessors]string
}

// rule is one entry of an accessor's priority table. The first rule whose
// source is present wins.
type rule[F any] struct {
	source  string
	present bool
	build   func() F
}

func resolve[F any](rules ...rule[F]) (F, string) {
	for _, r := range rules {
		if r.present {
			return r.build(), r.source
		}
	}
	// Every table ends with an always-present fallback.
	panic("opt: accessor table without fallback")
}

// NewProblem resolves all seven accessors from fns.
func NewProblem(fns Functions) *Problem {
	p := &Problem{}

	p.obj, p.sources[AccessObj] = resolve(
		rule[ObjFunc]{"obj", fns.Obj != nil, func() ObjFunc { return fns.Obj }},
		rule[ObjFunc]{"obj_jac[0]", fns.ObjJac != nil, func() ObjFunc { return objFromObjJac(fns.ObjJac) }},
		rule[ObjFunc]{"obj_hess[0]", fns.ObjHess != nil, func() ObjFunc { return objFromObjHess(fns.ObjHess) }},
		rule[ObjFunc]{"obj_jac_hess[0]", fns.ObjJacHess != nil, func() ObjFunc { return objFromObjJacHess(fns.ObjJacHess) }},
		rule[ObjFunc]{sourceUnavailable, true, func() ObjFunc { return unavailableObj }},
	)

	p.jac, p.sources[AccessJac] = resolve(
		rule[JacFunc]{"jac", fns.Jac != nil, func() JacFunc { return fns.Jac }},
		rule[JacFunc]{"obj_jac[1]", fns.ObjJac != nil, func() JacFunc { return jacFromObjJac(fns.ObjJac) }},
		rule[JacFunc]{"jac_hess[0]", fns.JacHess != nil, func() JacFunc { return jacFromJacHess(fns.JacHess) }},
		rule[JacFunc]{"obj_jac_hess[1]", fns.ObjJacHess != nil, func() JacFunc { return jacFromObjJacHess(fns.ObjJacHess) }},
		rule[JacFunc]{sourceUnavailable, true, func() JacFunc { return unavailableJac }},
	)

	p.hess, p.sources[AccessHess] = resolve(
		rule[HessFunc]{"hess", fns.Hess != nil, func() HessFunc { return fns.Hess }},
		rule[HessFunc]{"obj_hess[1]", fns.ObjHess != nil, func() HessFunc { return hessFromObjHess(fns.ObjHess) }},
		rule[HessFunc]{"jac_hess[1]", fns.JacHess != nil, func() HessFunc { return hessFromJacHess(fns.JacHess) }},
		rule[HessFunc]{"obj_jac_hess[2]", fns.ObjJacHess != nil, func() HessFunc { return hessFromObjJacHess(fns.ObjJacHess) }},
		rule[HessFunc]{sourceUnavailable, true, func() HessFunc { return unavailableHess }},
	)

	p.objJac, p.sources[AccessObjJac] = resolve(
		rule[ObjJacFunc]{"obj_jac", fns.ObjJac != nil, func() ObjJacFunc { return fns.ObjJac }},
		rule[ObjJacFunc]{"obj_jac_hess[0:2]", fns.ObjJacHess != nil, func() ObjJacFunc { return objJacFromObjJacHess(fns.ObjJacHess) }},
		rule[ObjJacFunc]{"(obj, jac)", true, func() ObjJacFunc { return bundleObjJac(p.obj, p.jac) }},
	)

	p.objHess, p.sources[AccessObjHess] = resolve(
		rule[ObjHessFunc]{"obj_hess", fns.ObjHess != nil, func() ObjHessFunc { return fns.ObjHess }},
		rule[ObjHessFunc]{"obj_jac_hess[0,2]", fns.ObjJacHess != nil, func() ObjHessFunc { return objHessFromObjJacHess(fns.ObjJacHess) }},
		rule[ObjHessFunc]{"(obj, hess)", true, func() ObjHessFunc { return bundleObjHess(p.obj, p.hess) }},
	)

	p.jacHess, p.sources[AccessJacHess] = resolve(
		rule[JacHessFunc]{"jac_hess", fns.JacHess != nil, func() JacHessFunc { return fns.JacHess }},
		rule[JacHessFunc]{"obj_jac_hess[1:3]", fns.ObjJacHess != nil, func() JacHessFunc { return jacHessFromObjJacHess(fns.ObjJacHess) }},
		rule[JacHessFunc]{"(jac, hess)", true, func() JacHessFunc { return bundleJacHess(p.jac, p.hess) }},
	)

	p.objJacHess, p.sources[AccessObjJacHess] = resolve(
		rule[ObjJacHessFunc]{"obj_jac_hess", fns.ObjJacHess != nil, func() ObjJacHessFunc { return fns.ObjJacHess }},
		rule[ObjJacHessFunc]{"(obj_jac, hess)", fns.ObjJac != nil, func() ObjJacHessFunc { return joinObjJacWithHess(fns.ObjJac, p.hess) }},
		rule[ObjJacHessFunc]{"(obj_hess, jac)", fns.ObjHess != nil, func() ObjJacHessFunc { return splitObjHessAroundJac(fns.ObjHess, p.jac) }},
		rule[ObjJacHessFunc]{"(obj, jac_hess)", fns.JacHess != nil, func() ObjJacHessFunc { return joinObjWithJacHess(p.obj, fns.JacHess) }},
		rule[ObjJacHessFunc]{"(obj, jac, hess)", true, func() ObjJacHessFunc { return bundleObjJacHess(p.obj, p.jac, p.hess) }},
	)

	p.available = Available{
		Obj:  p.sources[AccessObj] != sourceUnavailable,
		Jac:  p.sources[AccessJac] != sourceUnavailable,
		Hess: p.sources[AccessHess] != sourceUnavailable,
	}
	return p
}

// Obj returns the objective at x, or NaN if no objective source was given.
func (p *Problem) Obj(x []float64) float64 { return p.obj(x) }

// Jac returns the jacobian at x, or nil if it is unavailable.
func (p *Problem) Jac(x []float64) []float64 { return p.jac(x) }

// Hess returns the hessian at x, or nil if it is unavailable.
func (p *Problem) Hess(x []float64) *mat.SymDense { return p.hess(x) }

// ObjJac returns the objective and jacobian at x.
func (p *Problem) ObjJac(x []float64) (float64, []float64) { return p.objJac(x) }

// ObjHess returns the objective and hessian at x.
func (p *Problem) ObjHess(x []float64) (float64, *mat.SymDense) { return p.objHess(x) }

// JacHess returns the jacobian and hessian at x.
func (p *Problem) JacHess(x []float64) ([]float64, *mat.SymDense) { return p.jacHess(x) }

// ObjJacHess returns the objective, jacobian and hessian at x.
func (p *Problem) ObjJacHess(x []float64) (float64, []float64, *mat.SymDense) {
	return p.objJacHess(x)
}

// Available reports which of objective, jacobian and hessian are computable.
func (p *Problem) Available() Available { return p.available }

// Source describes how an accessor was resolved, e.g. "obj_jac[1]" or
// "(obj, jac)". Unresolvable single accessors report "unavailable".
func (p *Problem) Source(a Accessor) string {
	if a < 0 || a >= numAccessors {
		return ""
	}
	return p.sources[a]
}

// Adapters selecting parts of a joint evaluation.

func objFromObjJac(f ObjJacFunc) ObjFunc {
	return func(x []float64) float64 {
		obj, _ := f(x)
		return obj
	}
}

func objFromObjHess(f ObjHessFunc) ObjFunc {
	return func(x []float64) float64 {
		obj, _ := f(x)
		return obj
	}
}

func objFromObjJacHess(f ObjJacHessFunc) ObjFunc {
	return func(x []float64) float64 {
		obj, _, _ := f(x)
		return obj
	}
}

func jacFromObjJac(f ObjJacFunc) JacFunc {
	return func(x []float64) []float64 {
		_, jac := f(x)
		return jac
	}
}

func jacFromJacHess(f JacHessFunc) JacFunc {
	return func(x []float64) []float64 {
		jac, _ := f(x)
		return jac
	}
}

func jacFromObjJacHess(f ObjJacHessFunc) JacFunc {
	return func(x []float64) []float64 {
		_, jac, _ := f(x)
		return jac
	}
}

func hessFromObjHess(f ObjHessFunc) HessFunc {
	return func(x []float64) *mat.SymDense {
		_, hess := f(x)
		return hess
	}
}

func hessFromJacHess(f JacHessFunc) HessFunc {
	return func(x []float64) *mat.SymDense {
		_, hess := f(x)
		return hess
	}
}

func hessFromObjJacHess(f ObjJacHessFunc) HessFunc {
	return func(x []float64) *mat.SymDense {
		_, _, hess := f(x)
		return hess
	}
}

func objJacFromObjJacHess(f ObjJacHessFunc) ObjJacFunc {
	return func(x []float64) (float64, []float64) {
		obj, jac, _ := f(x)
		return obj, jac
	}
}

func objHessFromObjJacHess(f ObjJacHessFunc) ObjHessFunc {
	return func(x []float64) (float64, *mat.SymDense) {
		obj, _, hess := f(x)
		return obj, hess
	}
}

func jacHessFromObjJacHess(f ObjJacHessFunc) JacHessFunc {
	return func(x []float64) ([]float64, *mat.SymDense) {
		_, jac, hess := f(x)
		return jac, hess
	}
}

// Adapters calling several resolved accessors and bundling their results.

func bundleObjJac(obj ObjFunc, jac JacFunc) ObjJacFunc {
	return func(x []float64) (float64, []float64) {
		return obj(x), jac(x)
	}
}

func bundleObjHess(obj ObjFunc, hess HessFunc) ObjHessFunc {
	return func(x []float64) (float64, *mat.SymDense) {
		return obj(x), hess(x)
	}
}

func bundleJacHess(jac JacFunc, hess HessFunc) JacHessFunc {
	return func(x []float64) ([]float64, *mat.SymDense) {
		return jac(x), hess(x)
	}
}

func bundleObjJacHess(obj ObjFunc, jac JacFunc, hess HessFunc) ObjJacHessFunc {
	return func(x []float64) (float64, []float64, *mat.SymDense) {
		return obj(x), jac(x), hess(x)
	}
}

func joinObjJacWithHess(objJac ObjJacFunc, hess HessFunc) ObjJacHessFunc {
	return func(x []float64) (float64, []float64, *mat.SymDense) {
		obj, jac := objJac(x)
		return obj, jac, hess(x)
	}
}

func splitObjHessAroundJac(objHess ObjHessFunc, jac JacFunc) ObjJacHessFunc {
	return func(x []float64) (float64, []float64, *mat.SymDense) {
		obj, hess := objHess(x)
		return obj, jac(x), hess
	}
}

func joinObjWithJacHess(obj ObjFunc, jacHess JacHessFunc) ObjJacHessFunc {
	return func(x []float64) (float64, []float64, *mat.SymDense) {
		jac, hess := jacHess(x)
		return obj(x), jac, hess
	}
}

func unavailableObj([]float64) float64 { return math.NaN() }

func unavailableJac([]float64) []float64 { return nil }

func unavailableHess([]float64) *mat.SymDense { return nil }
