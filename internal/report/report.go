// Package report renders training traces as charts.
package report

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/cwbudde/learnkit/internal/store"
)

// Options controls the rendered chart.
type Options struct {
	Title string

	// LogScale plots the objective on a logarithmic axis. Entries whose
	// objective is not positive are left out.
	LogScale bool

	Width, Height vg.Length // default 6×4 inches
}

// PlotTrace draws objective and best-so-far against iteration and saves the
// chart to path. The format follows the extension (.png, .svg, .pdf, ...).
func PlotTrace(entries []store.TraceEntry, path string, opts Options) error {
	objective, best := points(entries, opts.LogScale)
	if len(objective) == 0 {
		return fmt.Errorf("trace has no plottable entries")
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "objective"
	if opts.LogScale {
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}
	p.Add(plotter.NewGrid())

	objLine, err := plotter.NewLine(objective)
	if err != nil {
		return fmt.Errorf("failed to build objective line: %w", err)
	}
	p.Add(objLine)
	p.Legend.Add("objective", objLine)

	if len(best) > 0 {
		bestLine, err := plotter.NewLine(best)
		if err != nil {
			return fmt.Errorf("failed to build best line: %w", err)
		}
		bestLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(bestLine)
		p.Legend.Add("best", bestLine)
	}
	p.Legend.Top = true

	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = 6 * vg.Inch
	}
	if height <= 0 {
		height = 4 * vg.Inch
	}
	if err := p.Save(width, height, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}

	slog.Debug("Trace plotted", "path", path, "points", len(objective))
	return nil
}

func points(entries []store.TraceEntry, positiveOnly bool) (objective, best plotter.XYs) {
	for _, e := range entries {
		x := float64(e.Iteration)
		if plottable(e.Objective, positiveOnly) {
			objective = append(objective, plotter.XY{X: x, Y: e.Objective})
		}
		if plottable(e.Best, positiveOnly) {
			best = append(best, plotter.XY{X: x, Y: e.Best})
		}
	}
	return objective, best
}

func plottable(v float64, positiveOnly bool) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return !positiveOnly || v > 0
}
