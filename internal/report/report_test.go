package report

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/learnkit/internal/store"
)

func trace() []store.TraceEntry {
	return []store.TraceEntry{
		{Iteration: 1, Objective: 24.2, Best: 24.2},
		{Iteration: 2, Objective: 4.7, Best: 4.7},
		{Iteration: 3, Objective: 5.1, Best: 4.7},
		{Iteration: 4, Objective: 0, Best: 0},
	}
}

func TestPlotTrace(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"trace.png", "trace.svg"} {
		path := filepath.Join(dir, name)
		require.NoError(t, PlotTrace(trace(), path, Options{Title: "rosenbrock"}), name)

		info, err := os.Stat(path)
		require.NoError(t, err, name)
		assert.Positive(t, info.Size(), name)
	}
}

func TestPlotTrace_LogScaleDropsNonPositive(t *testing.T) {
	objective, best := points(trace(), true)
	assert.Len(t, objective, 3)
	assert.Len(t, best, 3)

	path := filepath.Join(t.TempDir(), "log.png")
	require.NoError(t, PlotTrace(trace(), path, Options{LogScale: true}))
}

func TestPlotTrace_Errors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.png")
	assert.Error(t, PlotTrace(nil, path, Options{}))

	nan := []store.TraceEntry{{Iteration: 1, Objective: math.NaN(), Best: math.Inf(1)}}
	assert.Error(t, PlotTrace(nan, path, Options{}))

	assert.Error(t, PlotTrace(trace(), filepath.Join(t.TempDir(), "trace.unknown"), Options{}))
}
