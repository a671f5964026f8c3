package timeseries

import (
	"errors"
	"fmt"
	"math"
)

// ErrNonPositive is matched by every NonPositiveError.
var ErrNonPositive = errors.New("series must contain only positive values")

// NonPositiveError reports the first value that blocks a log transform.
type NonPositiveError struct {
	Index int
	Value float64
}

func (e *NonPositiveError) Error() string {
	return fmt.Sprintf("%s: index %d has %g", ErrNonPositive, e.Index, e.Value)
}

// Is lets errors.Is match ErrNonPositive.
func (e *NonPositiveError) Is(target error) bool {
	return target == ErrNonPositive
}

// CheckPositive fails if any value is zero, negative or NaN.
func CheckPositive(values []float64) error {
	for i, v := range values {
		if !(v > 0) {
			return &NonPositiveError{Index: i, Value: v}
		}
	}
	return nil
}

// LogTransform returns the elementwise natural log of a strictly positive series.
func LogTransform(values []float64) ([]float64, error) {
	if err := CheckPositive(values); err != nil {
		return nil, err
	}
	result := make([]float64, len(values))
	for i, v := range values {
		result[i] = math.Log(v)
	}
	return result, nil
}

// Difference returns values[i] - values[i-periods] for every defined i.
// The result has len(values)-periods elements and is empty, not an error,
// when the series is too short.
func Difference(values []float64, periods int) []float64 {
	if periods < 1 {
		periods = 1
	}
	if len(values) <= periods {
		return []float64{}
	}

	result := make([]float64, len(values)-periods)
	for i := periods; i < len(values); i++ {
		result[i-periods] = values[i] - values[i-periods]
	}
	return result
}

// LogDifference applies LogTransform followed by Difference. It is the
// stationarizing transform used throughout the pipeline.
func LogDifference(values []float64, periods int) ([]float64, error) {
	logged, err := LogTransform(values)
	if err != nil {
		return nil, err
	}
	return Difference(logged, periods), nil
}
