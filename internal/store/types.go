package store

import (
	"fmt"
	"math"
	"time"
)

// RunConfig records how a run was started. It is stored with every checkpoint
// so a resumed run can be checked against it.
type RunConfig struct {
	Problem      string  `json:"problem"`
	Dim          int     `json:"dim,omitempty"`
	DataPath     string  `json:"dataPath,omitempty"`

	// Sample is the number of dataset patterns drawn with Seed, 0 for all.
	Sample          int  `json:"sample,omitempty"`
	WithReplacement bool `json:"withReplacement,omitempty"`

	Optimizer    string  `json:"optimizer"`
	StepSize     float64 `json:"stepSize,omitempty"`
	MomentumRate float64 `json:"momentumRate,omitempty"`
	Iterations   int     `json:"iterations"`
	Seed         int64   `json:"seed"`
}

// Checkpoint is the saved state of a run.
//
// Only the best parameters are saved. Optimizer memory (momentum, mayfly
// population) is rebuilt on resume, so a resumed run is not a bit-exact
// continuation, but its best objective never gets worse.
type Checkpoint struct {
	RunID string `json:"runId"`

	// Params are the parameters with the lowest objective so far.
	Params []float64 `json:"params"`

	BestObjective    float64 `json:"bestObjective"`
	InitialObjective float64 `json:"initialObjective"`

	// Iteration is the number of iterations completed.
	Iteration int       `json:"iteration"`
	Timestamp time.Time `json:"timestamp"`

	Config RunConfig `json:"config"`
}

// CheckpointInfo is checkpoint metadata without the parameter vector.
type CheckpointInfo struct {
	RunID         string    `json:"runId"`
	BestObjective float64   `json:"bestObjective"`
	Iteration     int       `json:"iteration"`
	Timestamp     time.Time `json:"timestamp"`
	Problem       string    `json:"problem"`
	Optimizer     string    `json:"optimizer"`
	Params        int       `json:"params"`
}

// NewCheckpoint creates a checkpoint timestamped now. params is copied.
func NewCheckpoint(runID string, params []float64, best, initial float64, iteration int, config RunConfig) *Checkpoint {
	return &Checkpoint{
		RunID:            runID,
		Params:           append([]float64(nil), params...),
		BestObjective:    best,
		InitialObjective: initial,
		Iteration:        iteration,
		Timestamp:        time.Now(),
		Config:           config,
	}
}

// ToInfo converts a full Checkpoint to CheckpointInfo.
func (c *Checkpoint) ToInfo() CheckpointInfo {
	return CheckpointInfo{
		RunID:         c.RunID,
		BestObjective: c.BestObjective,
		Iteration:     c.Iteration,
		Timestamp:     c.Timestamp,
		Problem:       c.Config.Problem,
		Optimizer:     c.Config.Optimizer,
		Params:        len(c.Params),
	}
}

// Validate checks that the checkpoint can be resumed from.
func (c *Checkpoint) Validate() error {
	if c.RunID == "" {
		return &ValidationError{Field: "RunID", Reason: "cannot be empty"}
	}
	if len(c.Params) == 0 {
		return &ValidationError{Field: "Params", Reason: "cannot be empty"}
	}
	for i, v := range c.Params {
		if !finite(v) {
			return &ValidationError{Field: "Params", Reason: fmt.Sprintf("element %d is not finite", i)}
		}
	}
	if !finite(c.BestObjective) {
		return &ValidationError{Field: "BestObjective", Reason: "must be finite"}
	}
	if !finite(c.InitialObjective) {
		return &ValidationError{Field: "InitialObjective", Reason: "must be finite"}
	}
	if c.Iteration < 0 {
		return &ValidationError{Field: "Iteration", Reason: "cannot be negative"}
	}
	if c.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	if c.Config.Problem == "" {
		return &ValidationError{Field: "Config.Problem", Reason: "cannot be empty"}
	}
	if c.Config.Optimizer == "" {
		return &ValidationError{Field: "Config.Optimizer", Reason: "cannot be empty"}
	}
	if c.Config.Iterations <= 0 {
		return &ValidationError{Field: "Config.Iterations", Reason: "must be positive"}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ValidationError represents a checkpoint validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}

// IsCompatible checks that config describes the same parameter space and
// training data as the checkpoint. The optimizer and its settings may change
// between runs.
func (c *Checkpoint) IsCompatible(config RunConfig) error {
	if c.Config.Problem != config.Problem {
		return &CompatibilityError{
			Field:    "Problem",
			Expected: c.Config.Problem,
			Actual:   config.Problem,
		}
	}
	if c.Config.Dim != config.Dim {
		return &CompatibilityError{
			Field:    "Dim",
			Expected: fmt.Sprintf("%d", c.Config.Dim),
			Actual:   fmt.Sprintf("%d", config.Dim),
		}
	}
	if c.Config.DataPath != config.DataPath {
		return &CompatibilityError{
			Field:    "DataPath",
			Expected: c.Config.DataPath,
			Actual:   config.DataPath,
		}
	}
	if c.Config.Sample != config.Sample {
		return &CompatibilityError{
			Field:    "Sample",
			Expected: fmt.Sprintf("%d", c.Config.Sample),
			Actual:   fmt.Sprintf("%d", config.Sample),
		}
	}
	if c.Config.WithReplacement != config.WithReplacement {
		return &CompatibilityError{
			Field:    "WithReplacement",
			Expected: fmt.Sprintf("%t", c.Config.WithReplacement),
			Actual:   fmt.Sprintf("%t", config.WithReplacement),
		}
	}
	// The seed picks the sampled patterns.
	if config.Sample > 0 && c.Config.Seed != config.Seed {
		return &CompatibilityError{
			Field:    "Seed",
			Expected: fmt.Sprintf("%d", c.Config.Seed),
			Actual:   fmt.Sprintf("%d", config.Seed),
		}
	}
	return nil
}

// CompatibilityError represents a checkpoint compatibility error.
type CompatibilityError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *CompatibilityError) Error() string {
	return "compatibility error: " + e.Field + " mismatch (expected " + e.Expected + ", got " + e.Actual + ")"
}
