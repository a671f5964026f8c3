package smooth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sartorproj/pricecast/timeseries"
)

// ErrInvalidParameter is returned for a window below 1, a confidence level
// outside (0, 100) or an unknown smoother name.
var ErrInvalidParameter = errors.New("invalid smoothing parameter")

// DefaultWindow is the window length used when none is configured.
const DefaultWindow = 30

// DefaultCI is the default confidence level in percent.
const DefaultCI = 95.0

// Kind identifies one of the three smoothers.
type Kind int

const (
	KindLowess Kind = iota
	KindExponential
	KindSMA
)

var kindNames = map[Kind]string{
	KindLowess:      "lowess",
	KindExponential: "exponential",
	KindSMA:         "sma",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind resolves a smoother name, case-insensitively.
func ParseKind(name string) (Kind, error) {
	lower := strings.ToLower(strings.TrimSpace(name))
	for k, n := range kindNames {
		if n == lower {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown smoother %q", ErrInvalidParameter, name)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("%w: unknown smoother %d", ErrInvalidParameter, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so a Kind can be read
// from YAML, JSON or environment variables.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Smooth returns the fitted values of the selected smoother. The result has
// the same length as values.
func (k Kind) Smooth(values []float64, window int) ([]float64, error) {
	if len(values) == 0 {
		return nil, timeseries.ErrEmptySeries
	}
	if window < 1 {
		return nil, fmt.Errorf("%w: window must be at least 1, got %d", ErrInvalidParameter, window)
	}
	switch k {
	case KindLowess:
		return lowess(values, window, DefaultIterations), nil
	case KindExponential:
		return exponential(values, window), nil
	case KindSMA:
		return sma(values, window), nil
	}
	return nil, fmt.Errorf("%w: unknown smoother %d", ErrInvalidParameter, int(k))
}
