package arimax

import (
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/sartorproj/pricecast/timeseries"
	"golang.org/x/sync/errgroup"
)

// SearchOptions bounds the order grid. Orders range over
// p < MaxP, d < MaxD, q < MaxQ.
type SearchOptions struct {
	MinObs int `yaml:"min_obs" json:"min_obs" validate:"gte=1"`
	MaxP   int `yaml:"max_p" json:"max_p" validate:"gte=1"`
	MaxD   int `yaml:"max_d" json:"max_d" validate:"gte=1"`
	MaxQ   int `yaml:"max_q" json:"max_q" validate:"gte=1"`
	// Parallelism caps concurrent fits. Zero means GOMAXPROCS.
	Parallelism int `yaml:"parallelism" json:"parallelism" validate:"gte=0"`

	Logger *zerolog.Logger `yaml:"-" json:"-"`
}

// DefaultSearchOptions returns the 3x2x3 grid with a 30 observation minimum.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		MinObs: 30,
		MaxP:   3,
		MaxD:   2,
		MaxQ:   3,
	}
}

// Candidate is the outcome of fitting one order. Exactly one of Model and
// Err is set.
type Candidate struct {
	Order Order
	Model *Model
	Err   error
}

// SearchResult is the selected model together with every candidate tried,
// in p, d, q ascending order.
type SearchResult struct {
	Model      *Model
	Order      Order
	Candidates []Candidate
}

// Failed returns the number of candidates that did not fit.
func (r *SearchResult) Failed() int {
	n := 0
	for _, c := range r.Candidates {
		if c.Err != nil {
			n++
		}
	}
	return n
}

// SelectBestOrder fits every order of the grid and returns the one with the
// smallest AIC. Ties keep the first order in p, d, q ascending order, so the
// choice does not depend on scheduling. Individual fit failures are recorded
// in the result; only a grid where nothing fits is an error.
func SelectBestOrder(endog, exog []float64, opts SearchOptions) (*SearchResult, error) {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	if opts.MaxP < 1 || opts.MaxD < 1 || opts.MaxQ < 1 {
		return nil, fmt.Errorf("%w: search bounds must be positive, got p<%d d<%d q<%d",
			ErrInvalidInput, opts.MaxP, opts.MaxD, opts.MaxQ)
	}

	if err := checkSearchInputs(endog, exog, opts.MinObs); err != nil {
		return nil, err
	}

	var orders []Order
	for p := 0; p < opts.MaxP; p++ {
		for d := 0; d < opts.MaxD; d++ {
			for q := 0; q < opts.MaxQ; q++ {
				orders = append(orders, Order{P: p, D: d, Q: q})
			}
		}
	}

	limit := opts.Parallelism
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	candidates := make([]Candidate, len(orders))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, order := range orders {
		g.Go(func() error {
			start := time.Now()
			model, err := Fit(endog, exog, order)
			candidates[i] = Candidate{Order: order, Model: model, Err: err}
			ev := log.Debug().Stringer("order", order).Dur("elapsed", time.Since(start))
			if err != nil {
				ev.Err(err).Msg("candidate failed")
			} else {
				ev.Float64("aic", model.AIC()).Msg("candidate fitted")
			}
			return nil
		})
	}
	_ = g.Wait()

	best, err := selectBest(candidates)
	if err != nil {
		return nil, err
	}
	result := &SearchResult{Model: best.Model, Order: best.Order, Candidates: candidates}

	log.Info().
		Stringer("order", result.Order).
		Float64("aic", best.Model.AIC()).
		Int("tried", len(orders)).
		Int("failed", result.Failed()).
		Msg("selected ARIMAX order")
	return result, nil
}

// selectBest returns the first candidate with the smallest finite AIC.
func selectBest(candidates []Candidate) (Candidate, error) {
	var (
		best    Candidate
		bestAIC = math.Inf(1)
		last    error
	)
	for _, c := range candidates {
		if c.Err != nil {
			last = c.Err
			continue
		}
		if aic := c.Model.AIC(); !math.IsNaN(aic) && aic < bestAIC {
			bestAIC = aic
			best = c
		}
	}
	if best.Model == nil {
		return Candidate{}, &NoViableModelError{Tried: len(candidates), Last: last}
	}
	return best, nil
}

func checkSearchInputs(endog, exog []float64, minObs int) error {
	if err := validateInputs(endog, exog); err != nil {
		return err
	}
	if len(endog) < minObs {
		return &InsufficientDataError{Need: minObs, Got: len(endog)}
	}
	if timeseries.IsConstant(endog) {
		return &ConstantSeriesError{Series: "endog"}
	}
	if timeseries.IsConstant(exog) {
		return &ConstantSeriesError{Series: "exog"}
	}
	return nil
}
