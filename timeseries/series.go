package timeseries

import (
	"errors"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Series represents a time series with timestamps and values.
type Series struct {
	Timestamps []time.Time
	Values     []float64
	Name       string
}

// New creates a new time series from values. Timestamps are left empty.
func New(values []float64) *Series {
	return &Series{Values: values}
}

// NewWithTimestamps creates a time series with explicit timestamps.
func NewWithTimestamps(timestamps []time.Time, values []float64) (*Series, error) {
	if len(timestamps) != len(values) {
		return nil, errors.New("timestamps and values must have the same length")
	}
	return &Series{
		Timestamps: timestamps,
		Values:     values,
	}, nil
}

// Len returns the length of the series.
func (s *Series) Len() int {
	return len(s.Values)
}

// Mean returns the arithmetic mean, or NaN for an empty series.
func (s *Series) Mean() float64 {
	if len(s.Values) == 0 {
		return math.NaN()
	}
	return stat.Mean(s.Values, nil)
}

// Std returns the sample standard deviation.
func (s *Series) Std() float64 {
	if len(s.Values) < 2 {
		return 0
	}
	return stat.StdDev(s.Values, nil)
}

// Last returns the final value, or NaN for an empty series.
func (s *Series) Last() float64 {
	if len(s.Values) == 0 {
		return math.NaN()
	}
	return s.Values[len(s.Values)-1]
}

// Diff calculates the first difference of the series (d=1).
func (s *Series) Diff() *Series {
	return s.DiffN(1)
}

// DiffN calculates the lag-n difference of the series.
func (s *Series) DiffN(n int) *Series {
	if n <= 0 {
		n = 1
	}
	return &Series{
		Timestamps: s.tail(n),
		Values:     Difference(s.Values, n),
		Name:       s.Name + "_diff",
	}
}

// Log applies the natural logarithm. It fails with ErrNonPositive if any
// value is not strictly positive.
func (s *Series) Log() (*Series, error) {
	logged, err := LogTransform(s.Values)
	if err != nil {
		return nil, err
	}

	timestamps := make([]time.Time, len(s.Timestamps))
	copy(timestamps, s.Timestamps)

	return &Series{
		Timestamps: timestamps,
		Values:     logged,
		Name:       s.Name + "_log",
	}, nil
}

// LogDiff returns the log-difference of the series, aligned to the
// timestamps of the later observation in each pair.
func (s *Series) LogDiff() (*Series, error) {
	values, err := LogDifference(s.Values, 1)
	if err != nil {
		return nil, err
	}
	return &Series{
		Timestamps: s.tail(1),
		Values:     values,
		Name:       s.Name + "_logdiff",
	}, nil
}

// tail returns a copy of the timestamps with the first n dropped.
func (s *Series) tail(n int) []time.Time {
	if len(s.Timestamps) <= n {
		return nil
	}
	timestamps := make([]time.Time, len(s.Timestamps)-n)
	copy(timestamps, s.Timestamps[n:])
	return timestamps
}

// IsConstant reports whether values has at most one distinct value.
func IsConstant(values []float64) bool {
	for i := 1; i < len(values); i++ {
		if values[i] != values[0] {
			return false
		}
	}
	return true
}
