package shift

import (
	"fmt"
	"math"
	"sort"

	"github.com/cwbudde/algo-tts/curve"
)

// derivativeMinPoints is the minimum group size for the derivative
// method: local slope smoothing needs at least three points.
const derivativeMinPoints = 3

// estimateDerivative aligns locally smoothed derivative curves instead of
// the raw curves, which avoids pairwise overlap matching on the raw data
// and is more robust when the overlap regions are short or noisy. When
// vertical shifts are enabled, each curve additionally receives the
// constant y-offset that minimizes the residual mismatch after
// horizontal alignment.
func estimateDerivative(set *curve.Set, cfg Config) (*Table, error) {
	temps := set.Temperatures()

	for _, t := range temps {
		if n := len(set.Group(t)); n < derivativeMinPoints {
			return nil, fmt.Errorf("shift: temperature %g has %d point(s), derivative method needs %d: %w",
				t, n, derivativeMinPoints, ErrInsufficientData)
		}
	}

	curves := collectCurves(set, temps)

	slopes := make(map[float64]shiftedCurve, len(temps))
	for t, c := range curves {
		slopes[t] = shiftedCurve{x: c.x, y: localSlopes(c.x, c.y, cfg.DerivativeBandwidth)}
	}

	table := newTable()
	table.add(cfg.ReferenceTemperature, Factor{})

	if len(temps) == 1 {
		return table, nil
	}

	order, factors, err := pairwiseSweep(curves, temps, cfg, slopes, cfg.VerticalShift)
	if err != nil {
		return nil, err
	}

	for i, t := range order {
		table.add(t, factors[i])
	}

	return table, nil
}

// localSlopes estimates dy/dx at every observation by unweighted local
// linear regression over a window of half-width bandwidth*span. Windows
// holding fewer than three points are widened to the three nearest
// neighbors so the slope stays defined near the curve edges.
func localSlopes(x, y []float64, bandwidth float64) []float64 {
	n := len(x)
	out := make([]float64, n)
	h := bandwidth * (x[n-1] - x[0])

	for i := range n {
		idx := windowIndices(x, i, h)
		out[i] = regressionSlope(x, y, idx)
	}

	return out
}

// windowIndices returns the indices with |x[j] - x[i]| <= h, widened to
// the three nearest points when the window is too sparse.
func windowIndices(x []float64, i int, h float64) []int {
	var idx []int
	for j := range x {
		if math.Abs(x[j]-x[i]) <= h {
			idx = append(idx, j)
		}
	}

	if len(idx) >= derivativeMinPoints {
		return idx
	}

	all := make([]int, len(x))
	for j := range all {
		all[j] = j
	}

	sort.SliceStable(all, func(a, b int) bool {
		return math.Abs(x[all[a]]-x[i]) < math.Abs(x[all[b]]-x[i])
	})

	idx = all[:derivativeMinPoints]
	sort.Ints(idx)

	return idx
}

// regressionSlope is the least-squares slope of y on x over the given
// indices. Returns 0 when the x values are degenerate.
func regressionSlope(x, y []float64, idx []int) float64 {
	var xBar, yBar float64
	for _, j := range idx {
		xBar += x[j]
		yBar += y[j]
	}

	nf := float64(len(idx))
	xBar /= nf
	yBar /= nf

	var num, den float64
	for _, j := range idx {
		dx := x[j] - xBar
		num += dx * (y[j] - yBar)
		den += dx * dx
	}

	if den == 0 {
		return 0
	}

	return num / den
}
