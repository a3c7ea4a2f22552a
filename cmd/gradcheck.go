package main

import (
	"fmt"
	"math/rand"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/learnkit/internal/gradcheck"
	"github.com/cwbudde/learnkit/internal/problems"
	"github.com/cwbudde/learnkit/internal/transfer"
)

var (
	gradTrials int
	gradEps    float64
	gradSeed   int64
)

var gradcheckCmd = &cobra.Command{
	Use:   "gradcheck",
	Short: "Check analytic derivatives against central differences",
	Long: `Compares the derivative of every element-wise transfer function on random
inputs, and the jacobian of every problem, with a
central difference approximation.`,
	RunE: runGradcheck,
}

func init() {
	gradcheckCmd.Flags().IntVar(&gradTrials, "trials", 10, "Random inputs per transfer function")
	gradcheckCmd.Flags().Float64Var(&gradEps, "eps", gradcheck.DefaultEpsilon, "Difference step and tolerance")
	gradcheckCmd.Flags().Int64Var(&gradSeed, "seed", 1, "Random seed")
	rootCmd.AddCommand(gradcheckCmd)
}

var elementwiseTransfers = []string{"tanh", "gaussian", "logistic", "softplus"}

func runGradcheck(cmd *cobra.Command, args []string) error {
	rng := rand.New(rand.NewSource(gradSeed))
	failed := 0

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tNAME\tRESULT")
	fmt.Fprintln(w, "----\t----\t------")

	report := func(kind, name string, err error) {
		result := "ok"
		if err != nil {
			result = "FAIL: " + err.Error()
			failed++
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", kind, name, result)
	}

	for _, name := range elementwiseTransfers {
		tr, _ := transfer.ByName(name)
		ew := tr.(transfer.Elementwise)
		df := func(x []float64) []float64 { return ew.Derivative(x, ew.Activate(x)) }

		var err error
		for i := 0; i < gradTrials && err == nil; i++ {
			err = gradcheck.Check(ew.Activate, df, gradcheck.RandomInput(rng), gradEps)
		}
		report("transfer", name, err)
	}

	for _, name := range problems.Names() {
		p, err := problems.ByName(name, 0, nil)
		if err == nil {
			err = gradcheck.CheckProblem(p.Problem, checkPoint(p), gradEps)
		}
		report("problem", name, err)
	}

	w.Flush()

	if failed > 0 {
		return fmt.Errorf("%d derivative check(s) failed", failed)
	}
	return nil
}

// checkPoint returns the midpoint between the start and the known minimum.
// Objectives there are small, which keeps rounding in the differences low.
func checkPoint(p *problems.Problem) []float64 {
	if p.Minimum == nil {
		return p.Start
	}
	x := make([]float64, p.Dim())
	for i := range x {
		x[i] = (p.Start[i] + p.Minimum[i]) / 2
	}
	return x
}
