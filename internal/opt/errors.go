package opt

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingDerivative is returned when an optimizer needs an accessor the
	// Problem cannot compute. It is a configuration error.
	ErrMissingDerivative = errors.New("required derivative is unavailable")

	// ErrInvalidStrictness is returned when line-search constants violate
	// 0 < c1 < c2 < 1.
	ErrInvalidStrictness = errors.New("strictness parameters must satisfy 0 < c1 < c2 < 1")

	// ErrInvalidSetting is returned by New for a negative hyperparameter.
	ErrInvalidSetting = errors.New("optimizer settings must not be negative")

	// ErrLineSearchFailed is returned when no acceptable step size was found.
	ErrLineSearchFailed = errors.New("line search failed to find an acceptable step")

	// ErrDimensionMismatch matches any *DimensionError via errors.Is.
	ErrDimensionMismatch = &DimensionError{}
)

// DimensionError reports vectors or matrices of incompatible size.
type DimensionError struct {
	What string
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	if e.What == "" {
		return "dimension mismatch"
	}
	return fmt.Sprintf("dimension mismatch: %s has length %d, want %d", e.What, e.Got, e.Want)
}

func (e *DimensionError) Is(target error) bool {
	_, ok := target.(*DimensionError)
	return ok
}

func checkLen(what string, want, got int) error {
	if want != got {
		return &DimensionError{What: what, Want: want, Got: got}
	}
	return nil
}
