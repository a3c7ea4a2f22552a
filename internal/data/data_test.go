package data

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

const irisLike = `sepal,petal,class
5.1 3.5 setosa
7.0,3.2,versicolor
6.3  2.5 , virginica
4.9 3.0 setosa
bad 1.0 setosa

`

func TestLoad_Classification(t *testing.T) {
	ds, err := Load(strings.NewReader(irisLike), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 4, ds.Len())
	assert.Equal(t, []string{"setosa", "versicolor", "virginica"}, ds.Classes)

	wantTargets := mat.NewDense(4, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
		1, 0, 0,
	})
	assert.True(t, mat.Equal(wantTargets, ds.Targets))

	// Column 0 ranges over [4.9, 7.0], column 1 over [2.5, 3.5].
	assert.InDelta(t, 1.0, ds.Inputs.At(1, 0), 1e-12)
	assert.InDelta(t, -1.0, ds.Inputs.At(3, 0), 1e-12)
	assert.InDelta(t, 1.0, ds.Inputs.At(0, 1), 1e-12)
	assert.InDelta(t, -1.0, ds.Inputs.At(2, 1), 1e-12)
}

func TestLoad_Regression(t *testing.T) {
	input := "1 10 100\n2 20 200\n3 30 300\n4 40 x\n"
	opts := Options{AttrStart: 0, AttrEnd: 2, TargetPos: 2}

	ds, err := Load(strings.NewReader(input), opts)
	require.NoError(t, err)

	assert.Equal(t, 3, ds.Len())
	assert.Empty(t, ds.Classes)
	assert.Equal(t, []float64{-1, 0, 1}, mat.Col(nil, 0, ds.Targets))
	assert.Equal(t, []float64{-1, 0, 1}, mat.Col(nil, 1, ds.Inputs))
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(strings.NewReader("a b c\n"), DefaultOptions())
	assert.Error(t, err)

	_, err = Load(strings.NewReader("1 2 a\n1 b\n"), DefaultOptions())
	assert.Error(t, err)

	_, err = Load(strings.NewReader("1 2 a\n1 2 3 b\n"), DefaultOptions())
	assert.Error(t, err, "rows of different width")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(path, []byte(irisLike), 0644))

	ds, err := LoadFile(path, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 4, ds.Len())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.txt"), DefaultOptions())
	assert.Error(t, err)
}

func TestRescale(t *testing.T) {
	m := mat.NewDense(3, 2, []float64{
		0, 5,
		5, 5,
		10, 5,
	})
	out := Rescale(m)

	assert.Equal(t, []float64{-1, 0, 1}, mat.Col(nil, 0, out))
	assert.Equal(t, []float64{0, 0, 0}, mat.Col(nil, 1, out))
	assert.Equal(t, 10.0, m.At(2, 0), "input must not be modified")
}

func TestSelectSample_AllRows(t *testing.T) {
	ds := XOR()
	rng := rand.New(rand.NewSource(0))

	in, tar := SelectSample(ds.Inputs, ds.Targets, 0, rng)
	r, c := in.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 2, c)

	// Every pattern appears exactly once, with its own target.
	seen := make(map[[2]float64]bool)
	for i := 0; i < r; i++ {
		key := [2]float64{in.At(i, 0), in.At(i, 1)}
		assert.False(t, seen[key], "duplicate pattern %v", key)
		seen[key] = true
		assert.Equal(t, xorTarget(key), tar.At(i, 0))
	}
	assert.Len(t, seen, 4)
}

func TestSelectSample_Size(t *testing.T) {
	ds := XOR()
	in, tar := SelectSample(ds.Inputs, ds.Targets, 2, rand.New(rand.NewSource(0)))

	r, _ := in.Dims()
	assert.Equal(t, 2, r)
	r, _ = tar.Dims()
	assert.Equal(t, 2, r)
	assert.NotEqual(t, in.RawRowView(0), in.RawRowView(1), "no duplicates")
}

// zeroRand always picks the first pattern.
type zeroRand struct{}

func (zeroRand) Intn(int) int { return 0 }

func (zeroRand) Perm(n int) []int { return make([]int, n) }

func TestSelectRandom(t *testing.T) {
	ds := XOR()

	in, tar := SelectRandom(ds.Inputs, ds.Targets, 0, zeroRand{})
	r, _ := in.Dims()
	assert.Equal(t, 4, r)
	for i := 0; i < r; i++ {
		assert.Equal(t, ds.Inputs.RawRowView(0), in.RawRowView(i))
		assert.Equal(t, ds.Targets.RawRowView(0), tar.RawRowView(i))
	}

	in, _ = SelectRandom(ds.Inputs, ds.Targets, 2, zeroRand{})
	r, _ = in.Dims()
	assert.Equal(t, 2, r)
}

func xorTarget(in [2]float64) float64 {
	if in[0] != in[1] {
		return 1
	}
	return 0
}
