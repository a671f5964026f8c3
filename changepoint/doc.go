// Package changepoint flags level shifts with penalized exact segmentation
// (PELT).
//
//	opts := changepoint.DefaultOptions() // L2, penalty 3, min size 30
//	opts.Penalty = 5
//	shifts, err := changepoint.DetectLevelShifts(smoothed, opts)
//
// The returned indices mark the first observation of each new segment and
// never include len(values). "No shifts" is a normal outcome: a short series
// or an infeasible MinSize gives an empty slice, not an error.
//
// Cost models are a closed set resolved once from configuration:
//
//	model, err := changepoint.ParseModel("rbf")
package changepoint
