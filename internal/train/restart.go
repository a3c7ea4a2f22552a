package train

import (
	"math/rand"
)

// Jitter returns a Config.Restart hook that adds uniform noise in
// [-scale, scale] to every initial parameter. The noise of each attempt is
// drawn from its own source seeded with seed and the attempt number, so a
// rerun with the same seed restarts from the same points.
func Jitter(seed int64, scale float64) func(attempt int, x0 []float64) []float64 {
	return func(attempt int, x0 []float64) []float64 {
		rng := rand.New(rand.NewSource(seed + int64(attempt)))
		x := make([]float64, len(x0))
		for i, v := range x0 {
			x[i] = v + scale*(2*rng.Float64()-1)
		}
		return x
	}
}
