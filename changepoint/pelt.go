package changepoint

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidParameter is returned for an unknown cost model, a negative
// penalty, a non-positive jump or input containing NaN.
var ErrInvalidParameter = errors.New("invalid changepoint parameter")

// Options configures DetectLevelShifts.
type Options struct {
	Model   Model   `yaml:"model" json:"model"`
	Penalty float64 `yaml:"penalty" json:"penalty" validate:"gte=0"`
	// MinSize is the minimum number of observations between changepoints.
	MinSize int `yaml:"min_size" json:"min_size" validate:"gte=1"`
	// Jump restricts candidate changepoints to multiples of Jump.
	Jump int `yaml:"jump" json:"jump" validate:"gte=1"`
}

// DefaultOptions returns the L2 model with penalty 3, minimum segment 30 and
// a candidate grid of every 5th index.
func DefaultOptions() Options {
	return Options{
		Model:   L2,
		Penalty: 3,
		MinSize: 30,
		Jump:    5,
	}
}

// DetectLevelShifts segments values with PELT and returns the changepoint
// indices in ascending order, excluding len(values). A series shorter than
// MinSize, or one that cannot be split under the given parameters, yields an
// empty result rather than an error.
func DetectLevelShifts(values []float64, opts Options) ([]int, error) {
	if opts.Penalty < 0 || math.IsNaN(opts.Penalty) {
		return nil, fmt.Errorf("%w: penalty must be non-negative, got %g", ErrInvalidParameter, opts.Penalty)
	}
	if opts.Jump < 1 {
		return nil, fmt.Errorf("%w: jump must be at least 1, got %d", ErrInvalidParameter, opts.Jump)
	}
	for i, v := range values {
		if math.IsNaN(v) {
			return nil, fmt.Errorf("%w: value at index %d is missing", ErrInvalidParameter, i)
		}
	}

	n := len(values)
	if n == 0 || n < opts.MinSize {
		return []int{}, nil
	}

	c, err := newCost(opts.Model, values)
	if err != nil {
		return nil, err
	}
	minSize := max(opts.MinSize, c.minSize())
	if minSize > n {
		return []int{}, nil
	}

	bkps := pelt(c, n, opts.Penalty, minSize, opts.Jump)
	return bkps[:len(bkps)-1], nil
}

// partition is one optimal segmentation of a prefix, stored as a linked
// chain of breakpoints.
type partition struct {
	total float64
	end   int
	prev  *partition
}

func (p *partition) breakpoints() []int {
	var out []int
	for q := p; q != nil && q.end > 0; q = q.prev {
		out = append(out, q.end)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// pelt returns the optimal breakpoints, always ending with n.
func pelt(c cost, n int, penalty float64, minSize, jump int) []int {
	partitions := map[int]*partition{0: {}}

	var ends []int
	for k := 0; k < n; k += jump {
		if k >= minSize {
			ends = append(ends, k)
		}
	}
	ends = append(ends, n)

	var admissible []int
	for _, bkp := range ends {
		newPoint := (bkp - minSize) / jump * jump
		admissible = append(admissible, newPoint)

		var best *partition
		var kept []int
		scores := make([]float64, 0, len(admissible))
		starts := make([]int, 0, len(admissible))
		for _, t := range admissible {
			prefix, ok := partitions[t]
			if !ok {
				continue
			}
			score := prefix.total + c.loss(t, bkp) + penalty
			starts = append(starts, t)
			scores = append(scores, score)
			if best == nil || score < best.total {
				best = &partition{total: score, end: bkp, prev: prefix}
			}
		}
		if best == nil {
			continue
		}
		partitions[bkp] = best

		for i, t := range starts {
			if scores[i] <= best.total+penalty {
				kept = append(kept, t)
			}
		}
		admissible = kept
	}

	final, ok := partitions[n]
	if !ok {
		return []int{n}
	}
	return final.breakpoints()
}
