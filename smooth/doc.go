// Package smooth provides three interchangeable smoothers and a residual
// based interval estimator for each.
//
// # Smoothers
//
//	fitted, err := smooth.Lowess(values, 30, smooth.DefaultIterations)
//	fitted, err := smooth.Exponential(values, 30) // alpha = 2/(30+1)
//	fitted, err := smooth.SMA(values, 30)         // centered, edges shrink
//
// Names from configuration are resolved once with ParseKind:
//
//	kind, err := smooth.ParseKind("lowess")
//	fitted, err := kind.Smooth(values, 30)
//
// # Intervals
//
// Bands returns the fitted series with a confidence band for the trend and a
// wider prediction band for individual observations:
//
//	s, err := smooth.Bands(smooth.KindSMA, values, 30, 95)
//	// s.CILower <= s.Fitted <= s.CIUpper
//	// s.PILower <= s.CILower, s.CIUpper <= s.PIUpper
//
// LowessCIPI, ExponentialCIPI and SMACIPI are shorthands for Bands.
package smooth
