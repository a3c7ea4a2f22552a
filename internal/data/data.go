// Package data loads tabular datasets and draws samples from them.
package data

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"gonum.org/v1/gonum/mat"
)

// Dataset pairs an input matrix with a target matrix, one row per pattern.
type Dataset struct {
	Inputs  *mat.Dense
	Targets *mat.Dense

	// Classes lists the class labels in target column order. Empty for
	// regression datasets.
	Classes []string
}

// Len returns the number of patterns.
func (d *Dataset) Len() int {
	r, _ := d.Inputs.Dims()
	return r
}

// Options selects the columns of each row. Negative positions count from the
// end of the row, so -1 is the last attribute. AttrEnd is exclusive.
type Options struct {
	AttrStart      int
	AttrEnd        int
	TargetPos      int
	Classification bool
}

// DefaultOptions reads every attribute but the last as input and classifies
// on the last attribute.
func DefaultOptions() Options {
	return Options{
		AttrStart:      0,
		AttrEnd:        -1,
		TargetPos:      -1,
		Classification: true,
	}
}

// LoadFile opens path and loads it with Load.
func LoadFile(path string, opts Options) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	ds, err := Load(f, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return ds, nil
}

// Load reads one pattern per line. Attributes are separated by commas and/or
// whitespace. Lines whose input attributes do not parse as numbers (headers,
// comments, missing values) are skipped.
//
// Classification targets are one-hot encoded over the sorted set of labels.
// Inputs, and regression targets, are rescaled column-wise to [-1, 1].
func Load(r io.Reader, opts Options) (*Dataset, error) {
	var (
		inputs  [][]float64
		labels  []string
		targets []float64
		skipped int
	)

	scanner := bufio.NewScanner(r)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		attrs := splitAttributes(scanner.Text())
		if len(attrs) == 0 {
			continue
		}

		input, label, ok := parseRow(attrs, opts)
		if !ok {
			skipped++
			slog.Debug("Skipping dataset line", "line", lineNo)
			continue
		}

		if opts.Classification {
			labels = append(labels, label)
		} else {
			target, err := strconv.ParseFloat(label, 64)
			if err != nil {
				skipped++
				slog.Debug("Skipping dataset line", "line", lineNo, "error", err)
				continue
			}
			targets = append(targets, target)
		}
		inputs = append(inputs, input)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no usable rows (%d skipped)", skipped)
	}

	width := len(inputs[0])
	for i, row := range inputs {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has %d inputs, want %d", i, len(row), width)
		}
	}

	ds := &Dataset{Inputs: toDense(inputs)}
	if opts.Classification {
		ds.Classes, ds.Targets = oneHot(labels)
	} else {
		ds.Targets = Rescale(mat.NewDense(len(targets), 1, targets))
	}
	ds.Inputs = Rescale(ds.Inputs)

	slog.Debug("Loaded dataset", "rows", len(inputs), "inputs", width, "classes", len(ds.Classes), "skipped", skipped)
	return ds, nil
}

func splitAttributes(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

// index resolves a possibly negative position against n attributes.
func index(pos, n int) int {
	if pos < 0 {
		return n + pos
	}
	return pos
}

func parseRow(attrs []string, opts Options) ([]float64, string, bool) {
	n := len(attrs)
	start, end, target := index(opts.AttrStart, n), index(opts.AttrEnd, n), index(opts.TargetPos, n)
	if start < 0 || end > n || start >= end || target < 0 || target >= n {
		return nil, "", false
	}

	input := make([]float64, 0, end-start)
	for _, a := range attrs[start:end] {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, "", false
		}
		input = append(input, v)
	}
	return input, strings.TrimSpace(attrs[target]), true
}

func toDense(rows [][]float64) *mat.Dense {
	m := mat.NewDense(len(rows), len(rows[0]), nil)
	for i, row := range rows {
		m.SetRow(i, row)
	}
	return m
}

func oneHot(labels []string) ([]string, *mat.Dense) {
	seen := make(map[string]bool)
	var classes []string
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			classes = append(classes, l)
		}
	}
	sort.Strings(classes)

	column := make(map[string]int, len(classes))
	for i, c := range classes {
		column[c] = i
	}

	targets := mat.NewDense(len(labels), len(classes), nil)
	for i, l := range labels {
		targets.Set(i, column[l], 1.0)
	}
	return classes, targets
}

// Rescale maps every column of m linearly onto [-1, 1]. Constant columns map
// to 0. m is not modified.
func Rescale(m *mat.Dense) *mat.Dense {
	rows, cols := m.Dims()
	out := mat.NewDense(rows, cols, nil)
	for j := 0; j < cols; j++ {
		col := mat.Col(nil, j, m)
		lo, hi := col[0], col[0]
		for _, v := range col {
			lo = min(lo, v)
			hi = max(hi, v)
		}
		for i, v := range col {
			if hi == lo {
				out.Set(i, j, 0)
				continue
			}
			out.Set(i, j, 2*(v-lo)/(hi-lo)-1)
		}
	}
	return out
}

// XOR returns the four-pattern exclusive-or dataset with inputs in {-1, 1}
// and a single target in {0, 1}.
func XOR() *Dataset {
	return &Dataset{
		Inputs: mat.NewDense(4, 2, []float64{
			-1, -1,
			-1, 1,
			1, -1,
			1, 1,
		}),
		Targets: mat.NewDense(4, 1, []float64{0, 1, 1, 0}),
	}
}
