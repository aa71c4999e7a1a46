package shift

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-tts/curve"
)

// wlfPoleGuard rejects parameter trials that put a temperature too close
// to the C2 + (T - Tref) pole of the WLF form.
const wlfPoleGuard = 1e-8

// estimateWLF fits the Williams-Landel-Ferry form
//
//	a(T) = -C1*(T-Tref) / (C2 + T-Tref)
//
// to the pairwise overlap shifts by Levenberg-damped Gauss-Newton least
// squares. The form is anchored so a(Tref) = 0 exactly.
func estimateWLF(set *curve.Set, cfg Config) (*Table, error) {
	temps := set.Temperatures()
	curves := collectCurves(set, temps)

	table := newTable()
	table.add(cfg.ReferenceTemperature, Factor{})

	if len(temps) == 1 {
		return table, nil
	}

	order, raw, err := pairwiseSweep(curves, temps, cfg, nil, false)
	if err != nil {
		return nil, err
	}

	if len(order) < 2 {
		return nil, fmt.Errorf("%w: wlf needs at least two non-reference temperatures", ErrInsufficientData)
	}

	d := make([]float64, len(order))
	s := make([]float64, len(order))

	for i, t := range order {
		d[i] = t - cfg.ReferenceTemperature
		s[i] = raw[i].Horizontal
	}

	c1, c2, err := fitWLF(d, s, cfg)
	if err != nil {
		return nil, err
	}

	for i, t := range order {
		table.add(t, Factor{Horizontal: wlfShift(c1, c2, d[i])})
	}

	return table, nil
}

// wlfShift evaluates the WLF form at temperature offset d = T - Tref.
func wlfShift(c1, c2, d float64) float64 {
	return -c1 * d / (c2 + d)
}

// wlfSSE returns the sum of squared residuals of the WLF form against the
// observed shifts, or +Inf when a temperature offset falls on the pole.
func wlfSSE(c1, c2 float64, d, s []float64) float64 {
	var sse float64

	for i := range d {
		den := c2 + d[i]
		if math.Abs(den) < wlfPoleGuard {
			return math.Inf(1)
		}

		r := wlfShift(c1, c2, d[i]) - s[i]
		sse += r * r
	}

	return sse
}

// fitWLF solves the two-parameter nonlinear least squares by Gauss-Newton
// iteration with Levenberg damping. Convergence requires the step norm to
// fall below the tolerance within the iteration budget; otherwise the fit
// fails with ErrNonConvergence.
func fitWLF(d, s []float64, cfg Config) (float64, float64, error) {
	c1 := cfg.C1
	c2 := cfg.C2

	if c1 == 0 {
		c1 = DefaultConfig().C1
	}

	if c2 == 0 {
		c2 = DefaultConfig().C2
	}

	sse := wlfSSE(c1, c2, d, s)
	damping := 1e-3

	for range cfg.MaxIterations {
		// Normal equations JᵀJ Δ = -Jᵀr for the residual
		// r_i = -C1*d_i/(C2+d_i) - s_i:
		//   ∂r/∂C1 = -d_i/(C2+d_i)
		//   ∂r/∂C2 =  C1*d_i/(C2+d_i)²
		var jtj11, jtj12, jtj22, jtr1, jtr2 float64

		for i := range d {
			den := c2 + d[i]
			if math.Abs(den) < wlfPoleGuard {
				den = math.Copysign(wlfPoleGuard, den)
			}

			r := wlfShift(c1, c2, d[i]) - s[i]
			j1 := -d[i] / den
			j2 := c1 * d[i] / (den * den)

			jtj11 += j1 * j1
			jtj12 += j1 * j2
			jtj22 += j2 * j2
			jtr1 += j1 * r
			jtr2 += j2 * r
		}

		// Damped 2x2 solve.
		a11 := jtj11 + damping*jtj11
		a22 := jtj22 + damping*jtj22
		det := a11*a22 - jtj12*jtj12

		if det == 0 || math.IsNaN(det) {
			damping *= 10
			continue
		}

		dc1 := (-jtr1*a22 + jtr2*jtj12) / det
		dc2 := (-jtr2*a11 + jtr1*jtj12) / det

		trialSSE := wlfSSE(c1+dc1, c2+dc2, d, s)

		if trialSSE < sse {
			c1 += dc1
			c2 += dc2
			sse = trialSSE
			damping = math.Max(damping/10, 1e-12)

			step := math.Hypot(dc1, dc2)
			if step < cfg.Tolerance*(1+math.Hypot(c1, c2)) {
				return c1, c2, nil
			}
		} else {
			damping *= 10
			if damping > 1e12 {
				// Step size has collapsed; treat the current point as
				// converged only if the gradient is negligible.
				if math.Hypot(jtr1, jtr2) < cfg.Tolerance {
					return c1, c2, nil
				}

				return 0, 0, ErrNonConvergence
			}
		}
	}

	return 0, 0, ErrNonConvergence
}
