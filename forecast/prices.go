package forecast

import (
	"fmt"
	"math"

	"github.com/sartorproj/pricecast/arimax"
	"github.com/sartorproj/pricecast/timeseries"
)

// ForecastRow is one forecast step in price scale.
type ForecastRow struct {
	Step int `json:"step"`
	// Anchor is the price the step's log-difference is applied to: the
	// last price for step 1, the previous step's forecast afterwards.
	Anchor   float64 `json:"anchor"`
	Exog     float64 `json:"exog"`
	Forecast float64 `json:"forecast"`
	LowerCI  float64 `json:"lower_ci"`
	UpperCI  float64 `json:"upper_ci"`
}

// ForecastResult holds one row per forecast step.
type ForecastResult struct {
	Order arimax.Order  `json:"order"`
	Alpha float64       `json:"alpha"`
	Rows  []ForecastRow `json:"rows"`
}

// ForecastPrices turns log-difference forecasts into prices. Step i uses
//
//	x_i = ln(exog_i) - ln(anchor_i)
//	forecast_i = exp(ln(anchor_i) + mean_i)
//
// with anchor_1 = lastPrice and anchor_{i+1} = forecast_i. Bounds are
// transformed the same way.
func ForecastPrices(model *arimax.Model, exogFuture []float64, lastPrice, alpha float64) (*ForecastResult, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: nil model", arimax.ErrInvalidInput)
	}
	if len(exogFuture) == 0 {
		return nil, fmt.Errorf("%w: no future exogenous values", arimax.ErrInvalidInput)
	}
	if err := timeseries.CheckPositive([]float64{lastPrice}); err != nil {
		return nil, fmt.Errorf("last price: %w", err)
	}
	if err := timeseries.CheckPositive(exogFuture); err != nil {
		return nil, fmt.Errorf("future exogenous values: %w", err)
	}

	result := &ForecastResult{
		Order: model.Order(),
		Alpha: alpha,
		Rows:  make([]ForecastRow, len(exogFuture)),
	}
	logExog := make([]float64, 0, len(exogFuture))
	anchor := lastPrice
	for i, exog := range exogFuture {
		logAnchor := math.Log(anchor)
		logExog = append(logExog, math.Log(exog)-logAnchor)

		pred, err := model.Forecast(logExog, alpha)
		if err != nil {
			return nil, err
		}
		h := len(logExog) - 1
		row := ForecastRow{
			Step:     i + 1,
			Anchor:   anchor,
			Exog:     exog,
			Forecast: math.Exp(logAnchor + pred.Mean[h]),
			LowerCI:  math.Exp(logAnchor + pred.Lower[h]),
			UpperCI:  math.Exp(logAnchor + pred.Upper[h]),
		}
		result.Rows[i] = row
		anchor = row.Forecast
	}
	return result, nil
}
