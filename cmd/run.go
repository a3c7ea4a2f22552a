package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"

	"github.com/cwbudde/learnkit/internal/data"
	"github.com/cwbudde/learnkit/internal/opt"
	"github.com/cwbudde/learnkit/internal/problems"
	"github.com/cwbudde/learnkit/internal/store"
	"github.com/cwbudde/learnkit/internal/train"
)

var (
	runCfg   store.RunConfig
	trainCfg = train.DefaultConfig()

	lineC1, lineC2 float64
	armijoOnly     bool
	mayflyRadius   float64
	mayflyIters    int
	mayflyPop      int
	traceParams    bool
	restartScale   float64
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Train a problem from its starting point",
	Long: `Runs an optimizer on a problem until the error target is reached or a
stopping rule fires. The trace and checkpoints are written under
<data-dir>/runs/<run-id>/.`,
	RunE: runTraining,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runCfg.Problem, "problem", "rosenbrock", "Problem: beale, leastsquares, rosenbrock, wood")
	f.IntVar(&runCfg.Dim, "dim", 0, "Dimension for variable-size problems (0 = default)")
	f.StringVar(&runCfg.DataPath, "data", "", "Dataset file for data-driven problems (default: XOR)")
	f.StringVar(&runCfg.Optimizer, "optimizer", "sdm", "Optimizer: sd, sdm, linesearch, newton, mayfly")
	f.Float64Var(&runCfg.StepSize, "step", 0, "Step size, must not be negative (0 = optimizer default)")
	f.Float64Var(&runCfg.MomentumRate, "momentum", 0, "Momentum rate for sdm, must not be negative (0 = default 0.2; use --optimizer sd for none)")
	f.Int64Var(&runCfg.Seed, "seed", 42, "Random seed")
	f.IntVar(&runCfg.Sample, "sample", 0, "Train on N patterns drawn from the dataset (0 = all)")
	f.BoolVar(&runCfg.WithReplacement, "with-replacement", false, "Draw the --sample patterns with replacement")

	f.Float64Var(&lineC1, "c1", 0, "Sufficient decrease constant for linesearch (0 = default)")
	f.Float64Var(&lineC2, "c2", 0, "Curvature constant for linesearch (0 = default)")
	f.BoolVar(&armijoOnly, "armijo-only", false, "Only require sufficient decrease in linesearch")
	f.Float64Var(&mayflyRadius, "radius", 0, "Search radius for mayfly (0 = default)")
	f.IntVar(&mayflyIters, "mayfly-iters", 0, "Inner mayfly iterations per step (0 = default)")
	f.IntVar(&mayflyPop, "pop", 0, "Mayfly population size (0 = default)")

	addTrainFlags(runCmd)
	f.BoolVar(&traceParams, "trace-params", false, "Store parameters in every trace entry")

	rootCmd.AddCommand(runCmd)
}

// addTrainFlags registers the stopping rule flags shared by run and resume.
func addTrainFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntVar(&trainCfg.Iterations, "iters", trainCfg.Iterations, "Max iterations per attempt")
	f.IntVar(&trainCfg.StagnantDistance, "stagnant-distance", trainCfg.StagnantDistance, "Iterations looked back over for stagnation (0 = off)")
	f.Float64Var(&trainCfg.StagnantThreshold, "stagnant-threshold", trainCfg.StagnantThreshold, "Objective range counted as stagnant")
	f.IntVar(&trainCfg.ImproveIters, "improve-iters", trainCfg.ImproveIters, "Iterations allowed without a new best (0 = off)")
	f.Float64Var(&trainCfg.ErrorTarget, "target", trainCfg.ErrorTarget, "Stop once the objective is at or below this value")
	f.IntVar(&trainCfg.Retries, "retries", trainCfg.Retries, "Additional attempts when the target is missed")
	f.Float64Var(&restartScale, "restart-scale", 0.5, "Uniform noise added to the initial parameters of every retry (0 = none)")
	f.IntVar(&trainCfg.CheckpointEvery, "checkpoint-every", 100, "Checkpoint every N iterations (0 = only at the end)")
}

func runTraining(cmd *cobra.Command, args []string) error {
	runCfg.Iterations = trainCfg.Iterations

	p, err := buildProblem(runCfg)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	initial := p.Problem.Obj(p.Start)

	slog.Info("Starting run",
		"run_id", runID,
		"problem", p.Name,
		"dim", p.Dim(),
		"optimizer", runCfg.Optimizer,
		"initial_objective", initial,
	)

	return execute(cmd, session{
		runID:   runID,
		config:  runCfg,
		problem: p,
		start:   p.Start,
		initial: initial,
		train:   trainCfg,
	})
}

// buildProblem constructs the problem a run config names. With a sample size
// the dataset is reduced to patterns drawn with the run's seed, so a resumed
// run trains on the same sample.
func buildProblem(cfg store.RunConfig) (*problems.Problem, error) {
	if cfg.Sample < 0 {
		return nil, fmt.Errorf("sample size must not be negative, got %d", cfg.Sample)
	}

	var ds *data.Dataset
	if cfg.DataPath != "" {
		var err error
		ds, err = data.LoadFile(cfg.DataPath, data.DefaultOptions())
		if err != nil {
			return nil, err
		}
	}
	if cfg.Sample > 0 {
		if ds == nil {
			ds = data.XOR()
		}
		ds = sampleDataset(ds, cfg.Sample, cfg.WithReplacement, cfg.Seed)
	}
	return problems.ByName(cfg.Problem, cfg.Dim, ds)
}

func sampleDataset(ds *data.Dataset, size int, withReplacement bool, seed int64) *data.Dataset {
	rng := rand.New(rand.NewSource(seed))
	sampled := &data.Dataset{Classes: ds.Classes}
	if withReplacement {
		sampled.Inputs, sampled.Targets = data.SelectRandom(ds.Inputs, ds.Targets, size, rng)
	} else {
		sampled.Inputs, sampled.Targets = data.SelectSample(ds.Inputs, ds.Targets, size, rng)
	}
	slog.Debug("Sampled dataset", "patterns", sampled.Len(), "total", ds.Len(), "with_replacement", withReplacement)
	return sampled
}

func buildOptimizer(cfg store.RunConfig) (opt.Optimizer, error) {
	return opt.New(cfg.Optimizer, opt.Settings{
		StepSize:     cfg.StepSize,
		MomentumRate: cfg.MomentumRate,
		C1:           lineC1,
		C2:           lineC2,
		ArmijoOnly:   armijoOnly,
		Radius:       mayflyRadius,
		Iterations:   mayflyIters,
		Population:   mayflyPop,
		Seed:         cfg.Seed,
	})
}

// session is one invocation of the training loop for a run, fresh or resumed.
type session struct {
	runID   string
	config  store.RunConfig
	problem *problems.Problem
	start   []float64
	initial float64
	resumed bool
	train   train.Config
}

// execute runs the training loop with the run's trace and checkpoints wired
// in, and prints a summary.
func execute(cmd *cobra.Command, s session) error {
	optimizer, err := buildOptimizer(s.config)
	if err != nil {
		return err
	}

	st, err := store.NewFSStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint store: %w", err)
	}
	tw, err := store.NewTraceWriter(dataDir, s.runID, s.resumed)
	if err != nil {
		return err
	}
	defer tw.Close()

	save := func(state train.State) error {
		cp := store.NewCheckpoint(s.runID, state.BestParams, state.Best, s.initial, state.Iteration, s.config)
		return st.SaveCheckpoint(s.runID, cp)
	}

	cfg := s.train
	if restartScale < 0 {
		return fmt.Errorf("restart scale must not be negative, got %g", restartScale)
	}
	if restartScale > 0 {
		cfg.Restart = train.Jitter(s.config.Seed, restartScale)
	}
	cfg.Checkpoint = save
	cfg.Recorder = train.RecorderFunc(func(state train.State) error {
		if !isFinite(state.Objective) || !isFinite(state.Best) {
			slog.Warn("Skipping non-finite trace entry", "iteration", state.Iteration, "objective", state.Objective)
			return nil
		}
		entry := store.TraceEntry{
			Iteration: state.Iteration,
			Objective: state.Objective,
			Best:      state.Best,
			Timestamp: time.Now(),
		}
		if traceParams {
			entry.Params = state.Params
		}
		return tw.Write(entry)
	})

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	start := time.Now()
	res, err := train.Run(ctx, s.problem.Problem, optimizer, s.start, cfg)
	if err != nil && train.IsCancelled(err) && res != nil {
		slog.Warn("Run interrupted, saving checkpoint", "run_id", s.runID, "iterations", res.Iterations)
		if isFinite(res.Objective) {
			state := train.State{
				Iteration:  cfg.StartIteration + res.Iterations,
				Best:       res.Objective,
				BestParams: res.Params,
			}
			if cpErr := save(state); cpErr != nil {
				slog.Error("Failed to save checkpoint", "run_id", s.runID, "error", cpErr)
			}
		}
	}
	if err != nil {
		return fmt.Errorf("run %s: %w", s.runID, err)
	}

	elapsed := time.Since(start)
	slog.Info("Run complete",
		"run_id", s.runID,
		"elapsed", elapsed,
		"reason", string(res.Reason),
		"iterations", res.Iterations,
		"attempts", res.Attempts,
		"initial_objective", s.initial,
		"best_objective", res.Objective,
	)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s: objective %.6g -> %.6g after %d iterations (%s)\n",
		s.runID, s.initial, res.Objective, res.Iterations, res.Reason)
	if s.problem.Minimum != nil {
		fmt.Fprintf(out, "Distance to known minimum: %.3g\n", floats.Distance(res.Params, s.problem.Minimum, 2))
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
