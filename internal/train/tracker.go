package train

import (
	"log/slog"
	"math"
)

// TrackerConfig defines when a sequence of objective values counts as
// converged. Non-positive values disable the corresponding rule.
type TrackerConfig struct {
	// StagnantDistance is the number of iterations looked back over. Training
	// stops when the last StagnantDistance+1 objectives lie within
	// StagnantThreshold of each other.
	StagnantDistance  int
	StagnantThreshold float64

	// ImproveIters is the number of iterations allowed without a new best
	// objective.
	ImproveIters int
}

// Tracker records the objective history of one training attempt and detects
// when it has converged.
type Tracker struct {
	config     TrackerConfig
	history    []float64
	best       float64
	bestIndex  int // index into history of best
	staleCount int // iterations since best
}

// NewTracker creates a tracker with the given config.
func NewTracker(config TrackerConfig) *Tracker {
	t := &Tracker{config: config}
	t.Reset()
	return t
}

// Update records the next objective value and returns the reason to stop, or
// StopNone.
func (t *Tracker) Update(obj float64) StopReason {
	t.history = append(t.history, obj)

	if obj < t.best {
		t.best = obj
		t.bestIndex = len(t.history) - 1
	}
	t.staleCount = len(t.history) - 1 - t.bestIndex

	if t.stagnant() {
		slog.Debug("Objective stagnated",
			"objective", obj,
			"distance", t.config.StagnantDistance,
			"threshold", t.config.StagnantThreshold,
		)
		return StopStagnant
	}

	if t.config.ImproveIters > 0 && t.staleCount >= t.config.ImproveIters {
		slog.Debug("No improvement",
			"objective", obj,
			"best", t.best,
			"stale_count", t.staleCount,
			"improve_iters", t.config.ImproveIters,
		)
		return StopNoImprovement
	}

	return StopNone
}

func (t *Tracker) stagnant() bool {
	d := t.config.StagnantDistance
	if d <= 0 || len(t.history) < d+1 {
		return false
	}
	window := t.history[len(t.history)-d-1:]
	lo, hi := window[0], window[0]
	for _, v := range window {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return hi-lo <= t.config.StagnantThreshold
}

// Best returns the lowest objective seen so far, or +Inf.
func (t *Tracker) Best() float64 {
	return t.best
}

// BestIteration returns the zero-based index of Best in the history, or -1.
func (t *Tracker) BestIteration() int {
	return t.bestIndex
}

// History returns a copy of the objective history.
func (t *Tracker) History() []float64 {
	return append([]float64{}, t.history...)
}

// StaleCount returns the number of iterations since the best objective.
func (t *Tracker) StaleCount() int {
	return t.staleCount
}

// Reset clears the tracker's state.
func (t *Tracker) Reset() {
	t.history = []float64{}
	t.best = math.Inf(1)
	t.bestIndex = -1
	t.staleCount = 0
}
