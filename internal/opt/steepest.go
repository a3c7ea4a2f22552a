package opt

import (
	"gonum.org/v1/gonum/floats"
)

// SteepestDescent steps down the jacobian with a constant step size:
//
//	x' = x - α·∇f(x)
type SteepestDescent struct {
	StepSize float64
}

// NewSteepestDescent creates a steepest descent optimizer. A non-positive
// step size selects the default of 1.0; set StepSize directly for any other
// value.
func NewSteepestDescent(stepSize float64) *SteepestDescent {
	if stepSize <= 0 {
		stepSize = 1.0
	}
	return &SteepestDescent{StepSize: stepSize}
}

// Reset is a no-op; steepest descent keeps no iteration memory.
func (s *SteepestDescent) Reset() {}

// Next returns f(x) and x - α·∇f(x).
func (s *SteepestDescent) Next(p *Problem, x []float64) (float64, []float64, error) {
	obj, jac, err := evalObjJac(p, x)
	if err != nil {
		return 0, nil, err
	}

	next := make([]float64, len(x))
	floats.AddScaledTo(next, x, -s.StepSize, jac)
	return obj, next, nil
}

// SteepestDescentMomentum is steepest descent with a constant step size plus a
// momentum term built from the previous jacobian:
//
//	x' = x - α·∇f(x) - α·β·∇f(x_prev)
//
// The first iteration after construction or Reset has no momentum term.
type SteepestDescentMomentum struct {
	StepSize     float64
	MomentumRate float64

	prevJac []float64
}

// NewSteepestDescentMomentum creates a momentum optimizer. Non-positive
// arguments select the defaults (step size 1.0, momentum rate 0.2). A zero
// momentum rate can still be set on the struct, though it reduces to
// SteepestDescent.
func NewSteepestDescentMomentum(stepSize, momentumRate float64) *SteepestDescentMomentum {
	if stepSize <= 0 {
		stepSize = 1.0
	}
	if momentumRate <= 0 {
		momentumRate = 0.2
	}
	return &SteepestDescentMomentum{
		StepSize:     stepSize,
		MomentumRate: momentumRate,
	}
}

// Reset forgets the previous jacobian.
func (s *SteepestDescentMomentum) Reset() {
	s.prevJac = nil
}

// Next returns f(x) and the momentum-adjusted step from x.
func (s *SteepestDescentMomentum) Next(p *Problem, x []float64) (float64, []float64, error) {
	obj, jac, err := evalObjJac(p, x)
	if err != nil {
		return 0, nil, err
	}

	next := make([]float64, len(x))
	floats.AddScaledTo(next, x, -s.StepSize, jac)
	if s.prevJac != nil {
		if err := checkLen("previous jacobian", len(jac), len(s.prevJac)); err != nil {
			return 0, nil, err
		}
		floats.AddScaled(next, -s.StepSize*s.MomentumRate, s.prevJac)
	}

	// The problem may hand back a slice it reuses; keep our own copy.
	s.prevJac = append(s.prevJac[:0], jac...)
	return obj, next, nil
}
