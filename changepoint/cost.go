package changepoint

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Model selects the segment cost function.
type Model int

const (
	// L2 detects shifts in the mean (sum of squared deviations).
	L2 Model = iota
	// L1 is the robust variant using absolute deviations from the median.
	L1
	// RBF detects general distribution changes through a Gaussian kernel.
	// It precomputes an (n+1)×(n+1) matrix, so memory is O(n²) in the
	// signal length.
	RBF
	// Linear detects changes in a linear trend.
	Linear
	// Normal detects joint changes in mean and variance.
	Normal
)

var modelNames = map[Model]string{
	L1:     "l1",
	L2:     "l2",
	RBF:    "rbf",
	Linear: "linear",
	Normal: "normal",
}

func (m Model) String() string {
	if name, ok := modelNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Model(%d)", int(m))
}

// ParseModel resolves a cost model name, case-insensitively.
func ParseModel(name string) (Model, error) {
	lower := strings.ToLower(strings.TrimSpace(name))
	for m, n := range modelNames {
		if n == lower {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown cost model %q", ErrInvalidParameter, name)
}

// MarshalText implements encoding.TextMarshaler.
func (m Model) MarshalText() ([]byte, error) {
	if _, ok := modelNames[m]; !ok {
		return nil, fmt.Errorf("%w: unknown cost model %d", ErrInvalidParameter, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Model) UnmarshalText(text []byte) error {
	parsed, err := ParseModel(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// cost scores the half-open segment [start, end) of a fitted signal.
type cost interface {
	loss(start, end int) float64
	// minSize is the shortest segment the cost is defined on.
	minSize() int
}

func newCost(m Model, signal []float64) (cost, error) {
	switch m {
	case L2:
		return newCostL2(signal), nil
	case L1:
		return &costL1{signal: signal}, nil
	case RBF:
		return newCostRBF(signal), nil
	case Linear:
		return newCostLinear(signal), nil
	case Normal:
		return newCostNormal(signal), nil
	}
	return nil, fmt.Errorf("%w: unknown cost model %d", ErrInvalidParameter, int(m))
}

// costL2 uses prefix sums so each segment costs O(1).
type costL2 struct {
	sum, sumSq []float64
}

func newCostL2(signal []float64) *costL2 {
	c := &costL2{
		sum:   make([]float64, len(signal)+1),
		sumSq: make([]float64, len(signal)+1),
	}
	for i, v := range signal {
		c.sum[i+1] = c.sum[i] + v
		c.sumSq[i+1] = c.sumSq[i] + v*v
	}
	return c
}

func (c *costL2) loss(start, end int) float64 {
	n := float64(end - start)
	s := c.sum[end] - c.sum[start]
	ss := c.sumSq[end] - c.sumSq[start]
	return math.Max(ss-s*s/n, 0)
}

func (c *costL2) minSize() int { return 1 }

type costL1 struct {
	signal []float64
}

func (c *costL1) loss(start, end int) float64 {
	seg := make([]float64, end-start)
	copy(seg, c.signal[start:end])
	sort.Float64s(seg)
	median := sortedMedian(seg)
	total := 0.0
	for _, v := range seg {
		total += math.Abs(v - median)
	}
	return total
}

func (c *costL1) minSize() int { return 2 }

func sortedMedian(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// costRBF keeps a 2D prefix sum of the Gaussian Gram matrix. Off-diagonal
// squared distances are scaled by their median, when nonzero, and clipped to
// [rbfMinDist, rbfMaxDist] before the kernel is applied. The prefix sum holds
// (n+1)² floats, so memory grows quadratically with the signal length.
type costRBF struct {
	cum *mat.Dense
}

const (
	rbfMinDist = 1e-2
	rbfMaxDist = 1e2
)

func newCostRBF(signal []float64) *costRBF {
	n := len(signal)
	dists := make([]float64, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := signal[i] - signal[j]
			dists = append(dists, d*d)
		}
	}
	gamma := 1.0
	if len(dists) > 0 {
		sort.Float64s(dists)
		if median := sortedMedian(dists); median > 0 {
			gamma = 1 / median
		}
	}

	cum := mat.NewDense(n+1, n+1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			k := 1.0
			if i != j {
				d := signal[i] - signal[j]
				k = math.Exp(-math.Min(math.Max(gamma*d*d, rbfMinDist), rbfMaxDist))
			}
			cum.Set(i+1, j+1, k+cum.At(i, j+1)+cum.At(i+1, j)-cum.At(i, j))
		}
	}
	return &costRBF{cum: cum}
}

func (c *costRBF) loss(start, end int) float64 {
	block := c.cum.At(end, end) - c.cum.At(start, end) - c.cum.At(end, start) + c.cum.At(start, start)
	// Every diagonal entry of the Gram matrix is 1. Off-diagonal entries are
	// at most exp(-rbfMinDist), so even a flat segment longer than one point
	// has a small positive cost.
	return float64(end-start) - block/float64(end-start)
}

func (c *costRBF) minSize() int { return 1 }

// costLinear is the residual sum of squares of y ~ a + b*t on each segment.
type costLinear struct {
	signal []float64
}

func newCostLinear(signal []float64) *costLinear {
	return &costLinear{signal: signal}
}

func (c *costLinear) loss(start, end int) float64 {
	n := end - start
	t := make([]float64, n)
	for i := range t {
		t[i] = float64(start + i)
	}
	y := c.signal[start:end]
	alpha, beta := stat.LinearRegression(t, y, nil, false)
	ssr := 0.0
	for i, v := range y {
		r := v - alpha - beta*t[i]
		ssr += r * r
	}
	return ssr
}

func (c *costLinear) minSize() int { return 2 }

// costNormal is the Gaussian negative log-likelihood up to constants:
// n*log(var), with var the sample variance plus a small ridge.
type costNormal struct {
	signal []float64
}

func newCostNormal(signal []float64) *costNormal {
	return &costNormal{signal: signal}
}

func (c *costNormal) loss(start, end int) float64 {
	v := stat.Variance(c.signal[start:end], nil)
	return float64(end-start) * math.Log(v+1e-8)
}

func (c *costNormal) minSize() int { return 2 }
