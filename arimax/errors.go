package arimax

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by the typed errors below.
var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrConstantSeries   = errors.New("constant series")
	ErrNoViableModel    = errors.New("no viable model")
	ErrInvalidInput     = errors.New("invalid input")
)

// InsufficientDataError reports a series shorter than the search minimum.
type InsufficientDataError struct {
	Need int
	Got  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: need ≥%d, got %d", e.Need, e.Got)
}

func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }

// ConstantSeriesError reports an input with zero variance.
type ConstantSeriesError struct {
	Series string
}

func (e *ConstantSeriesError) Error() string {
	return fmt.Sprintf("%s series cannot be constant (zero variance)", e.Series)
}

func (e *ConstantSeriesError) Is(target error) bool { return target == ErrConstantSeries }

// NoViableModelError is returned when every candidate order failed to fit.
type NoViableModelError struct {
	Tried int
	// Last is the error of the last candidate in search order.
	Last error
}

func (e *NoViableModelError) Error() string {
	if e.Last != nil {
		return fmt.Sprintf("could not fit any of %d ARIMAX orders: last error: %v", e.Tried, e.Last)
	}
	return fmt.Sprintf("could not fit any of %d ARIMAX orders", e.Tried)
}

func (e *NoViableModelError) Is(target error) bool { return target == ErrNoViableModel }

// FitError wraps the numerical failure of a single order.
type FitError struct {
	Order Order
	Err   error
}

func (e *FitError) Error() string {
	return fmt.Sprintf("fit %s: %v", e.Order, e.Err)
}

func (e *FitError) Unwrap() error { return e.Err }
