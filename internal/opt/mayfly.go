package opt

import (
	"fmt"
	"math/rand"

	"github.com/cwbudde/mayfly"
	"gonum.org/v1/gonum/floats"
)

// Mayfly is a derivative-free optimizer. Each Next runs a short mayfly swarm
// search over offsets in [-Radius, Radius]ⁿ around x and moves to the best
// point found, if it improves on f(x).
type Mayfly struct {
	Radius     float64
	Iterations int
	Population int
	Seed       int64

	rng *rand.Rand
}

// NewMayfly creates a mayfly optimizer. Non-positive arguments select the
// defaults (radius 1, 20 iterations, population 20).
// The population must be at least 20 for mayfly v0.1.0.
func NewMayfly(radius float64, iterations, population int, seed int64) *Mayfly {
	if radius <= 0 {
		radius = 1.0
	}
	if iterations <= 0 {
		iterations = 20
	}
	if population < 20 {
		population = 20
	}
	return &Mayfly{
		Radius:     radius,
		Iterations: iterations,
		Population: population,
		Seed:       seed,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// Reset reseeds the random source so runs are reproducible.
func (m *Mayfly) Reset() {
	m.rng = rand.New(rand.NewSource(m.Seed))
}

// Restart reseeds from Seed and the attempt number. Attempt 1 matches Reset.
func (m *Mayfly) Restart(attempt int) {
	m.rng = rand.New(rand.NewSource(m.Seed + int64(attempt-1)))
}

// Next returns f(x) and the best point found near x.
func (m *Mayfly) Next(p *Problem, x []float64) (float64, []float64, error) {
	if !p.Available().Obj {
		return 0, nil, fmt.Errorf("objective (source %s): %w", p.Source(AccessObj), ErrMissingDerivative)
	}
	if m.rng == nil {
		m.Reset()
	}

	obj := p.Obj(x)
	dim := len(x)
	trial := make([]float64, dim)

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = func(offset []float64) float64 {
		floats.AddTo(trial, x, offset)
		return p.Obj(trial)
	}
	config.ProblemSize = dim
	config.MaxIterations = m.Iterations
	config.NPop = m.Population
	config.LowerBound = -m.Radius
	config.UpperBound = m.Radius
	config.Rand = m.rng

	result, err := mayfly.Optimize(config)
	if err != nil {
		return 0, nil, fmt.Errorf("mayfly search: %w", err)
	}

	next := make([]float64, dim)
	if result.GlobalBest.Cost < obj {
		if err := checkLen("mayfly offset", dim, len(result.GlobalBest.Position)); err != nil {
			return 0, nil, err
		}
		floats.AddTo(next, x, result.GlobalBest.Position)
	} else {
		copy(next, x)
	}
	return obj, next, nil
}
