package stats

import (
	"encoding/json"
	"math"
)

// Finite returns a pointer to v, or nil when v is NaN or infinite, so that
// undefined statistics encode as JSON null.
func Finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// MarshalJSON encodes an undefined statistic or p-value, as produced for a
// constant series, as null.
func (v Verdict) MarshalJSON() ([]byte, error) {
	type plain Verdict
	return json.Marshal(struct {
		plain
		Statistic *float64 `json:"statistic"`
		PValue    *float64 `json:"p_value"`
	}{
		plain:     plain(v),
		Statistic: Finite(v.Statistic),
		PValue:    Finite(v.PValue),
	})
}

// MarshalJSON encodes non-finite values as null.
func (r LjungBoxResult) MarshalJSON() ([]byte, error) {
	type plain LjungBoxResult
	return json.Marshal(struct {
		plain
		Statistic *float64 `json:"statistic"`
		PValue    *float64 `json:"p_value"`
	}{
		plain:     plain(r),
		Statistic: Finite(r.Statistic),
		PValue:    Finite(r.PValue),
	})
}
