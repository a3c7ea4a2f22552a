// Package transfer implements neural network transfer (activation) functions
// and their analytic derivatives.
//
// Derivatives take whichever of the input x and the output y makes them
// cheapest, mirroring how backpropagation already has both at hand.
package transfer

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Transfer is an activation applied to a layer's weighted inputs.
type Transfer interface {
	Activate(x []float64) []float64
}

// Elementwise is a Transfer whose jacobian is diagonal. Derivative returns that
// diagonal given the input x and the output y = Activate(x).
type Elementwise interface {
	Transfer
	Derivative(x, y []float64) []float64
}

func mapTo(x []float64, f func(float64) float64) []float64 {
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = f(v)
	}
	return y
}

// Tanh returns tanh(x) element-wise.
func Tanh(x []float64) []float64 { return mapTo(x, math.Tanh) }

// DTanh returns 1 - y² for y = tanh(x).
func DTanh(y []float64) []float64 {
	return mapTo(y, func(v float64) float64 { return 1 - v*v })
}

// Gaussian returns exp(-x²/variance) element-wise.
func Gaussian(x []float64, variance float64) []float64 {
	return mapTo(x, func(v float64) float64 { return math.Exp(-(v * v) / variance) })
}

// DGaussian returns -2·x·y/variance for y = Gaussian(x, variance).
func DGaussian(x, y []float64, variance float64) []float64 {
	d := make([]float64, len(x))
	for i := range x {
		d[i] = -2 * x[i] * y[i] / variance
	}
	return d
}

// Softmax returns exp(x_i) / Σ exp(x_j). The maximum is subtracted first so
// large inputs do not overflow.
func Softmax(x []float64) []float64 {
	if len(x) == 0 {
		return nil
	}
	maxX := floats.Max(x)
	y := mapTo(x, func(v float64) float64 { return math.Exp(v - maxX) })
	floats.Scale(1/floats.Sum(y), y)
	return y
}

// DSoftmax returns the softmax jacobian diag(y) - y·yᵀ for y = Softmax(x).
func DSoftmax(y []float64) *mat.Dense {
	n := len(y)
	v := mat.NewVecDense(n, y)

	var jac mat.Dense
	jac.Outer(-1, v, v)
	for i := 0; i < n; i++ {
		jac.Set(i, i, jac.At(i, i)+y[i])
	}
	return &jac
}

// Normalize divides x by the sum of scaling. With scaling == x the output sums
// to one.
func Normalize(x, scaling []float64) []float64 {
	y := make([]float64, len(x))
	floats.ScaleTo(y, 1/floats.Sum(scaling), x)
	return y
}

// Softplus returns ln(1 + eˣ), a smooth approximation of the rectified linear
// unit.
func Softplus(x []float64) []float64 {
	return mapTo(x, func(v float64) float64 {
		// ln(1+eˣ) = x + ln(1+e⁻ˣ) keeps eˣ from overflowing.
		if v > 0 {
			return v + math.Log1p(math.Exp(-v))
		}
		return math.Log1p(math.Exp(v))
	})
}

// Logistic returns 1 / (1 + e⁻ˣ) element-wise. It is the derivative of
// Softplus.
func Logistic(x []float64) []float64 {
	return mapTo(x, func(v float64) float64 {
		if v >= 0 {
			return 1 / (1 + math.Exp(-v))
		}
		e := math.Exp(v)
		return e / (1 + e)
	})
}

// DLogistic returns y·(1-y) for y = Logistic(x).
func DLogistic(y []float64) []float64 {
	return mapTo(y, func(v float64) float64 { return v * (1 - v) })
}

// TanhTransfer applies Tanh.
type TanhTransfer struct{}

func (TanhTransfer) Activate(x []float64) []float64 { return Tanh(x) }

func (TanhTransfer) Derivative(_, y []float64) []float64 { return DTanh(y) }

// GaussianTransfer applies Gaussian with the given variance (default 1).
type GaussianTransfer struct {
	Variance float64
}

func (g GaussianTransfer) variance() float64 {
	if g.Variance <= 0 {
		return 1.0
	}
	return g.Variance
}

func (g GaussianTransfer) Activate(x []float64) []float64 { return Gaussian(x, g.variance()) }

func (g GaussianTransfer) Derivative(x, y []float64) []float64 { return DGaussian(x, y, g.variance()) }

// LogisticTransfer applies Logistic.
type LogisticTransfer struct{}

func (LogisticTransfer) Activate(x []float64) []float64 { return Logistic(x) }

func (LogisticTransfer) Derivative(_, y []float64) []float64 { return DLogistic(y) }

// SoftplusTransfer applies Softplus.
type SoftplusTransfer struct{}

func (SoftplusTransfer) Activate(x []float64) []float64 { return Softplus(x) }

func (SoftplusTransfer) Derivative(x, _ []float64) []float64 { return Logistic(x) }

// SoftmaxTransfer applies Softmax. Its jacobian is dense, see DSoftmax.
type SoftmaxTransfer struct{}

func (SoftmaxTransfer) Activate(x []float64) []float64 { return Softmax(x) }

// Jacobian returns DSoftmax(y).
func (SoftmaxTransfer) Jacobian(_, y []float64) *mat.Dense { return DSoftmax(y) }

// NormalizeTransfer scales its inputs to sum to one.
type NormalizeTransfer struct{}

func (NormalizeTransfer) Activate(x []float64) []float64 { return Normalize(x, x) }

// ActivateScaled divides x by the sum of scaling instead of its own sum.
func (NormalizeTransfer) ActivateScaled(x, scaling []float64) []float64 {
	return Normalize(x, scaling)
}

// ByName returns a transfer by its lower-case name.
func ByName(name string) (Transfer, bool) {
	switch name {
	case "tanh":
		return TanhTransfer{}, true
	case "gaussian":
		return GaussianTransfer{}, true
	case "logistic":
		return LogisticTransfer{}, true
	case "softplus", "relu":
		return SoftplusTransfer{}, true
	case "softmax":
		return SoftmaxTransfer{}, true
	case "normalize":
		return NormalizeTransfer{}, true
	}
	return nil, false
}
