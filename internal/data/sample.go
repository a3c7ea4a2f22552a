package data

import (
	"gonum.org/v1/gonum/mat"
)

// Rand is the randomness used for sampling. *rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
	Perm(n int) []int
}

// SelectSample draws size patterns without replacement, in random order.
// size <= 0 or larger than the dataset selects every pattern.
func SelectSample(inputs, targets *mat.Dense, size int, rng Rand) (*mat.Dense, *mat.Dense) {
	rows, _ := inputs.Dims()
	if size <= 0 || size > rows {
		size = rows
	}
	return gather(inputs, targets, rng.Perm(rows)[:size])
}

// SelectRandom draws size patterns with replacement. size <= 0 selects as many
// patterns as the dataset holds.
func SelectRandom(inputs, targets *mat.Dense, size int, rng Rand) (*mat.Dense, *mat.Dense) {
	rows, _ := inputs.Dims()
	if size <= 0 {
		size = rows
	}
	idx := make([]int, size)
	for i := range idx {
		idx[i] = rng.Intn(rows)
	}
	return gather(inputs, targets, idx)
}

func gather(inputs, targets *mat.Dense, idx []int) (*mat.Dense, *mat.Dense) {
	_, inCols := inputs.Dims()
	_, tarCols := targets.Dims()

	in := mat.NewDense(len(idx), inCols, nil)
	tar := mat.NewDense(len(idx), tarCols, nil)
	for i, row := range idx {
		in.SetRow(i, inputs.RawRowView(row))
		tar.SetRow(i, targets.RawRowView(row))
	}
	return in, tar
}
