// Package spline fits penalized B-spline regressions (P-splines) to
// scattered data.
//
// The basis is a clamped B-spline basis of configurable order on uniform
// interior knots. Roughness is penalized through second-order differences
// of adjacent coefficients, and the smoothing parameter is either fixed
// or selected by generalized cross-validation.
//
// Basic usage:
//
//	model, err := spline.Fit(x, y, spline.DefaultConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	yHat := model.Evaluate(1.5)
//	grid := model.Grid(200)
//	curve := model.EvaluateGrid(grid)
//
// A fitted Model can be refit to resampled data on the same basis and
// smoothing parameter, which keeps bootstrap replicates comparable to
// the original fit.
package spline
