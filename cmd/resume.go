package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cwbudde/learnkit/internal/store"
)

var resumeOptimizer string

var resumeCmd = &cobra.Command{
	Use:   "resume <run-id>",
	Short: "Continue a run from its checkpoint",
	Long: `Continues a run from the best parameters of its checkpoint. Iteration
numbers carry on from the checkpoint and new trace entries are appended.
Optimizer memory is not saved, so the optimizer starts fresh.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().StringVar(&resumeOptimizer, "optimizer", "", "Switch to another optimizer (default: the run's)")
	addTrainFlags(resumeCmd)
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st, err := store.NewFSStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint store: %w", err)
	}
	cp, err := st.LoadCheckpoint(runID)
	if err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if err := cp.Validate(); err != nil {
		return fmt.Errorf("checkpoint %s is not resumable: %w", runID, err)
	}

	config := cp.Config
	config.Iterations = trainCfg.Iterations
	if resumeOptimizer != "" {
		config.Optimizer = resumeOptimizer
	}
	if err := cp.IsCompatible(config); err != nil {
		return err
	}

	p, err := buildProblem(config)
	if err != nil {
		return err
	}
	if len(cp.Params) != p.Dim() {
		return fmt.Errorf("checkpoint has %d parameters, problem %s has %d", len(cp.Params), p.Name, p.Dim())
	}

	slog.Info("Resuming run",
		"run_id", runID,
		"problem", p.Name,
		"optimizer", config.Optimizer,
		"iteration", cp.Iteration,
		"best_objective", cp.BestObjective,
	)

	cfg := trainCfg
	cfg.StartIteration = cp.Iteration
	return execute(cmd, session{
		runID:   runID,
		config:  config,
		problem: p,
		start:   cp.Params,
		initial: cp.InitialObjective,
		resumed: true,
		train:   cfg,
	})
}
