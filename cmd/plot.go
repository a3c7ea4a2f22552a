package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cwbudde/learnkit/internal/report"
	"github.com/cwbudde/learnkit/internal/store"
)

var (
	plotOut string
	plotLog bool
)

var plotCmd = &cobra.Command{
	Use:   "plot <run-id>",
	Short: "Plot the objective trace of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlot,
}

func init() {
	plotCmd.Flags().StringVar(&plotOut, "out", "", "Output file, format by extension (default: <run-dir>/trace.png)")
	plotCmd.Flags().BoolVar(&plotLog, "log", false, "Logarithmic objective axis")
	rootCmd.AddCommand(plotCmd)
}

func runPlot(cmd *cobra.Command, args []string) error {
	runID := args[0]

	entries, err := store.ReadTrace(dataDir, runID)
	if err != nil {
		return fmt.Errorf("failed to read trace: %w", err)
	}

	out := plotOut
	if out == "" {
		out = filepath.Join(store.RunDir(dataDir, runID), "trace.png")
	}
	if err := report.PlotTrace(entries, out, report.Options{Title: runID, LogScale: plotLog}); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d iterations)\n", out, len(entries))
	return nil
}
