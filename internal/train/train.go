// Package train drives an optimizer over a problem until a stopping rule
// fires.
package train

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/cwbudde/learnkit/internal/opt"
)

// StopReason describes why training ended.
type StopReason string

const (
	StopNone          StopReason = ""
	StopTarget        StopReason = "target"
	StopIterations    StopReason = "iterations"
	StopStagnant      StopReason = "stagnant"
	StopNoImprovement StopReason = "no-improvement"
	StopCancelled     StopReason = "cancelled"
)

// Config controls a training run.
type Config struct {
	// Iterations is the maximum number of iterations per attempt.
	Iterations int

	StagnantDistance  int
	StagnantThreshold float64
	ImproveIters      int

	// ErrorTarget ends training successfully once the objective drops to or
	// below it.
	ErrorTarget float64

	// Retries is the number of additional attempts made while the target has
	// not been reached.
	Retries int

	// Restart returns the starting parameters of attempt 2 and later, given a
	// copy of the initial parameters. Nil restarts every attempt from x0.
	// Optimizers implementing opt.Restarter are also told the attempt number.
	Restart func(attempt int, x0 []float64) []float64

	// CheckpointEvery calls Checkpoint every N iterations. Zero disables
	// periodic checkpoints; a final one is still written when Checkpoint is set.
	CheckpointEvery int
	Checkpoint      func(State) error

	// Recorder receives every iteration.
	Recorder Recorder

	// StartIteration offsets the reported iteration numbers, for resumed runs.
	StartIteration int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Iterations:        1000,
		StagnantDistance:  10,
		StagnantThreshold: 1e-12,
		ImproveIters:      100,
		ErrorTarget:       0,
	}
}

// Validate checks the config for errors.
func (c Config) Validate() error {
	if c.Iterations <= 0 {
		return fmt.Errorf("iterations must be positive, got %d", c.Iterations)
	}
	if c.StagnantThreshold < 0 {
		return fmt.Errorf("stagnant threshold must be non-negative, got %g", c.StagnantThreshold)
	}
	if c.Retries < 0 {
		return fmt.Errorf("retries must be non-negative, got %d", c.Retries)
	}
	if c.CheckpointEvery < 0 {
		return fmt.Errorf("checkpoint interval must be non-negative, got %d", c.CheckpointEvery)
	}
	return nil
}

// State is a snapshot of training after one iteration.
type State struct {
	Attempt   int
	Iteration int

	// Objective is evaluated at the parameters the iteration started from.
	Objective float64
	Params    []float64 // parameters after the iteration

	Best       float64
	BestParams []float64
}

// Recorder observes training progress.
type Recorder interface {
	Record(State) error
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(State) error

// Record calls f(s).
func (f RecorderFunc) Record(s State) error { return f(s) }

// Result summarises a finished run.
type Result struct {
	// Params are the best parameters found across all attempts. When no finite
	// objective was ever seen they are the final parameters.
	Params    []float64
	Objective float64
	Initial   float64 // objective at the initial parameters

	Iterations int // total across attempts
	Attempts   int
	Reason     StopReason

	// History is the objective history of the last attempt.
	History []float64
}

// Run trains from x0 until the target is reached, every attempt has stopped
// or ctx is cancelled. The optimizer is reset at the start of each attempt,
// and attempts after the first start from cfg.Restart when it is set.
//
// On cancellation Run returns the result so far together with ctx.Err().
func Run(ctx context.Context, p *opt.Problem, o opt.Optimizer, x0 []float64, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid training config: %w", err)
	}

	res := &Result{
		Params:    append([]float64(nil), x0...),
		Objective: math.Inf(1),
		Initial:   math.NaN(),
	}
	tracker := NewTracker(TrackerConfig{
		StagnantDistance:  cfg.StagnantDistance,
		StagnantThreshold: cfg.StagnantThreshold,
		ImproveIters:      cfg.ImproveIters,
	})

	iteration := cfg.StartIteration
	for attempt := 1; attempt <= cfg.Retries+1; attempt++ {
		res.Attempts = attempt
		o.Reset()
		if r, ok := o.(opt.Restarter); ok {
			r.Restart(attempt)
		}
		tracker.Reset()

		slog.Info("Starting training attempt", "attempt", attempt, "max_attempts", cfg.Retries+1)

		x := append([]float64(nil), x0...)
		if attempt > 1 && cfg.Restart != nil {
			x = cfg.Restart(attempt, x)
			if len(x) != len(x0) {
				return res, fmt.Errorf("attempt %d: %w", attempt,
					&opt.DimensionError{What: "restart parameters", Want: len(x0), Got: len(x)})
			}
		}
		var last []float64
		reason := StopIterations
		for i := 0; i < cfg.Iterations; i++ {
			if err := ctx.Err(); err != nil {
				res.Reason = StopCancelled
				res.History = tracker.History()
				return res, err
			}

			obj, next, err := o.Next(p, x)
			if err != nil {
				return res, fmt.Errorf("iteration %d: %w", iteration+1, err)
			}
			iteration++
			res.Iterations++
			if attempt == 1 && i == 0 {
				res.Initial = obj
			}
			if obj < res.Objective {
				res.Objective = obj
				res.Params = append([]float64(nil), x...)
			}
			last = next

			stop := tracker.Update(obj)
			if obj <= cfg.ErrorTarget {
				stop = StopTarget
			}

			state := State{
				Attempt:    attempt,
				Iteration:  iteration,
				Objective:  obj,
				Params:     next,
				Best:       res.Objective,
				BestParams: res.Params,
			}
			slog.Debug("Iteration", "iteration", iteration, "objective", obj, "best", res.Objective)

			if cfg.Recorder != nil {
				if err := cfg.Recorder.Record(state); err != nil {
					return res, fmt.Errorf("failed to record iteration %d: %w", iteration, err)
				}
			}
			if cfg.Checkpoint != nil && cfg.CheckpointEvery > 0 && iteration%cfg.CheckpointEvery == 0 {
				if err := cfg.Checkpoint(state); err != nil {
					return res, fmt.Errorf("failed to checkpoint iteration %d: %w", iteration, err)
				}
			}

			x = next
			if stop != StopNone {
				reason = stop
				break
			}
		}

		res.Reason = reason
		res.History = tracker.History()
		if math.IsInf(res.Objective, 1) && last != nil {
			res.Params = append([]float64(nil), last...)
		}

		slog.Info("Training attempt finished",
			"attempt", attempt,
			"reason", string(reason),
			"iterations", len(res.History),
			"best", res.Objective,
		)

		if reason == StopTarget {
			break
		}
	}

	if cfg.Checkpoint != nil {
		final := State{
			Attempt:    res.Attempts,
			Iteration:  iteration,
			Objective:  res.Objective,
			Params:     res.Params,
			Best:       res.Objective,
			BestParams: res.Params,
		}
		if err := cfg.Checkpoint(final); err != nil {
			return res, fmt.Errorf("failed to write final checkpoint: %w", err)
		}
	}
	return res, nil
}

// Reached reports whether the run ended by reaching its error target.
func (r *Result) Reached() bool {
	return r.Reason == StopTarget
}

// IsCancelled reports whether err came from a cancelled context.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
