package shift

import (
	"fmt"
	"math"
	"sort"
)

// minOverlapPoints is the smallest number of overlapping points accepted
// by the overlap distance. Fewer points give no slope information.
const minOverlapPoints = 2

// shiftedCurve is a curve with its cumulative shift already applied,
// used as the alignment target for the next temperature in the sweep.
type shiftedCurve struct {
	x []float64
	y []float64
}

// interpAt linearly interpolates y(x0) on the sorted abscissa x.
// Returns false when x0 lies outside [x[0], x[len-1]].
func interpAt(x, y []float64, x0 float64) (float64, bool) {
	n := len(x)
	if n == 0 || x0 < x[0] || x0 > x[n-1] {
		return 0, false
	}

	if n == 1 {
		return y[0], true
	}

	idx := sort.SearchFloat64s(x, x0)
	if idx < n && x[idx] == x0 {
		return y[idx], true
	}

	// x[idx-1] < x0 < x[idx]
	lo := idx - 1
	span := x[idx] - x[lo]
	if span == 0 {
		return y[lo], true
	}

	frac := (x0 - x[lo]) / span

	return y[lo] + frac*(y[idx]-y[lo]), true
}

// overlapDistance is the mean squared mismatch between curve b shifted by
// delta and the target curve a, evaluated at b's shifted abscissas inside
// the overlap region. window > 0 restricts the region to a fixed-width
// band centred on the mutual-range midpoint. Returns +Inf when fewer than
// minOverlapPoints points overlap.
func overlapDistance(a shiftedCurve, bx, by []float64, delta, window float64) float64 {
	lo := math.Max(a.x[0], bx[0]+delta)
	hi := math.Min(a.x[len(a.x)-1], bx[len(bx)-1]+delta)

	if lo >= hi {
		return math.Inf(1)
	}

	if window > 0 {
		mid := 0.5 * (lo + hi)
		lo = math.Max(lo, mid-window/2)
		hi = math.Min(hi, mid+window/2)
	}

	var sum float64
	var count int

	for i, xv := range bx {
		xs := xv + delta
		if xs < lo || xs > hi {
			continue
		}

		av, ok := interpAt(a.x, a.y, xs)
		if !ok {
			continue
		}

		d := av - by[i]
		sum += d * d
		count++
	}

	if count < minOverlapPoints {
		return math.Inf(1)
	}

	return sum / float64(count)
}

// searchShift finds the translation of curve b that minimizes the overlap
// distance against the target a. It scans a coarse grid over the feasible
// range plus any seed candidates, breaking ties toward the smallest
// magnitude shift, then refines the winner by golden-section search.
func searchShift(a shiftedCurve, bx, by []float64, cfg Config, seeds []float64) (float64, error) {
	// Feasible translations leave at least some mutual x-range.
	dLo := a.x[0] - bx[len(bx)-1]
	dHi := a.x[len(a.x)-1] - bx[0]

	if dLo >= dHi {
		return 0, ErrNoOverlap
	}

	step := (dHi - dLo) / float64(cfg.GridPoints-1)

	candidates := make([]float64, 0, cfg.GridPoints+len(seeds))
	for i := range cfg.GridPoints {
		candidates = append(candidates, dLo+float64(i)*step)
	}

	for _, s := range seeds {
		if s > dLo && s < dHi {
			candidates = append(candidates, s)
		}
	}

	best := math.NaN()
	bestDist := math.Inf(1)

	for _, d := range candidates {
		dist := overlapDistance(a, bx, by, d, cfg.OverlapWindow)
		if math.IsInf(dist, 1) {
			continue
		}

		if math.IsInf(bestDist, 1) {
			best = d
			bestDist = dist

			continue
		}

		scale := math.Max(bestDist, 1)

		switch {
		case dist < bestDist-cfg.TieTolerance*scale:
			best = d
			bestDist = dist
		case dist <= bestDist+cfg.TieTolerance*scale && math.Abs(d) < math.Abs(best):
			// Tied within tolerance: prefer the smaller magnitude shift.
			best = d
		}
	}

	if math.IsNaN(best) {
		return 0, ErrNoOverlap
	}

	return refineShift(a, bx, by, cfg, best-step, best+step)
}

// refineShift performs a golden-section search for the overlap-distance
// minimum on [lo, hi]. Fails with ErrNonConvergence when the interval
// does not shrink below the tolerance within the iteration budget.
func refineShift(a shiftedCurve, bx, by []float64, cfg Config, lo, hi float64) (float64, error) {
	const invPhi = 0.6180339887498949

	x1 := hi - invPhi*(hi-lo)
	x2 := lo + invPhi*(hi-lo)
	f1 := overlapDistance(a, bx, by, x1, cfg.OverlapWindow)
	f2 := overlapDistance(a, bx, by, x2, cfg.OverlapWindow)

	for range cfg.MaxIterations {
		if hi-lo < cfg.Tolerance {
			return 0.5 * (lo + hi), nil
		}

		if f1 < f2 {
			hi = x2
			x2 = x1
			f2 = f1
			x1 = hi - invPhi*(hi-lo)
			f1 = overlapDistance(a, bx, by, x1, cfg.OverlapWindow)
		} else {
			lo = x1
			x1 = x2
			f1 = f2
			x2 = lo + invPhi*(hi-lo)
			f2 = overlapDistance(a, bx, by, x2, cfg.OverlapWindow)
		}
	}

	return 0, ErrNonConvergence
}

// verticalOffset is the mean y-mismatch between curve b shifted
// horizontally by delta and the target a over their overlap region.
// Returns 0 when no points overlap.
func verticalOffset(a shiftedCurve, bx, by []float64, delta float64) float64 {
	var sum float64
	var count int

	for i, xv := range bx {
		av, ok := interpAt(a.x, a.y, xv+delta)
		if !ok {
			continue
		}

		sum += av - by[i]
		count++
	}

	if count == 0 {
		return 0
	}

	return sum / float64(count)
}

// pairwiseSweep walks outward from the reference temperature, aligning
// each curve against its already-shifted nearer neighbor, and returns the
// cumulative horizontal shift per temperature in sweep order. Vertical
// shifts are accumulated only when withVertical is set.
func pairwiseSweep(curves map[float64]shiftedCurve, temps []float64, cfg Config,
	slopes map[float64]shiftedCurve, withVertical bool,
) ([]float64, []Factor, error) {
	ref := cfg.ReferenceTemperature
	order := sweepOrder(temps, ref)

	// Working copies accumulate shifts as the sweep progresses. The
	// alignment targets are the derivative curves when provided.
	targets := curves
	if slopes != nil {
		targets = slopes
	}

	shifted := make(map[float64]shiftedCurve, len(temps))
	shiftedRaw := make(map[float64]shiftedCurve, len(temps))
	shifted[ref] = targets[ref]
	shiftedRaw[ref] = curves[ref]

	factors := make([]Factor, len(order))
	cum := map[float64]float64{ref: 0}

	for i, t := range order {
		neighbor := neighborToward(temps, t, ref)
		target := shifted[neighbor]
		cur := targets[t]

		seeds := alignmentSeeds(target, cur, cfg, t, neighbor, cum[neighbor])

		delta, err := searchShift(target, cur.x, cur.y, cfg, seeds)
		if err != nil {
			return nil, nil, fmt.Errorf("shift: aligning %g against %g: %w", t, neighbor, err)
		}

		f := Factor{Horizontal: delta}
		if withVertical {
			raw := curves[t]
			f.Vertical = verticalOffset(shiftedRaw[neighbor], raw.x, raw.y, delta)
		}

		factors[i] = f
		cum[t] = delta
		shifted[t] = applyShift(cur, delta, 0)
		shiftedRaw[t] = applyShift(curves[t], delta, f.Vertical)
	}

	return order, factors, nil
}

// applyShift returns a copy of c with dx added to every abscissa and dy
// to every ordinate.
func applyShift(c shiftedCurve, dx, dy float64) shiftedCurve {
	out := shiftedCurve{
		x: make([]float64, len(c.x)),
		y: make([]float64, len(c.y)),
	}

	for i := range c.x {
		out.x[i] = c.x[i] + dx
		out.y[i] = c.y[i] + dy
	}

	return out
}

// alignmentSeeds collects candidate translations for the coarse search:
// the FFT cross-correlation estimate and, for the arrhenius method, the
// shift predicted by the configured activation-energy guess on top of the
// neighbor's cumulative shift.
func alignmentSeeds(target, cur shiftedCurve, cfg Config, t, neighbor, neighborCum float64) []float64 {
	var seeds []float64

	if seed, err := crossCorrelationSeed(target.x, target.y, cur.x, cur.y); err == nil {
		seeds = append(seeds, seed)
	}

	if cfg.Method == Arrhenius && cfg.ActivationEnergy > 0 && t > 0 && neighbor > 0 {
		// Predicted decade shift between adjacent absolute temperatures.
		seeds = append(seeds, neighborCum+cfg.ActivationEnergy/(gasConstant*ln10)*(1/t-1/neighbor))
	}

	return seeds
}
