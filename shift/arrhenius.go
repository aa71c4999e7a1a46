package shift

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-tts/curve"
)

// gasConstant is the molar gas constant R in J/(mol*K).
const gasConstant = 8.31446261815324

// ln10 converts decade shifts to natural-log shifts.
const ln10 = math.Ln10

// estimateArrhenius fits the Arrhenius-type model: the horizontal
// log-shift is linear in inverse absolute temperature. Pairwise overlap
// shifts are estimated along the outward sweep, then regressed against
// (1/T - 1/Tref) through the origin so that the reference shift is
// exactly zero.
func estimateArrhenius(set *curve.Set, cfg Config) (*Table, error) {
	temps := set.Temperatures()
	for _, t := range temps {
		if t <= 0 {
			return nil, fmt.Errorf("%w: got %g", ErrAbsoluteTemperature, t)
		}
	}

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

	// Anchored regression through the origin: s_i = m * u_i with
	// u_i = 1/T_i - 1/Tref.
	ref := cfg.ReferenceTemperature

	var num, den float64

	for i, t := range order {
		u := 1/t - 1/ref
		num += u * raw[i].Horizontal
		den += u * u
	}

	if den == 0 {
		return nil, fmt.Errorf("%w: temperatures are not distinct", ErrInsufficientData)
	}

	slope := num / den

	for _, t := range order {
		table.add(t, Factor{Horizontal: slope * (1/t - 1/ref)})
	}

	return table, nil
}

// ActivationEnergy recovers the apparent activation energy in J/mol from
// a computed shift table, assuming horizontal shifts are in decades
// (log10) and temperatures are absolute. The reference temperature must
// be present in the table.
func ActivationEnergy(table *Table, ref float64) (float64, error) {
	if _, ok := table.Factor(ref); !ok {
		return 0, fmt.Errorf("%w: %g", ErrReferenceMissing, ref)
	}

	var num, den float64
	var count int

	for _, t := range table.Temperatures() {
		if t == ref {
			continue
		}

		if t <= 0 || ref <= 0 {
			return 0, fmt.Errorf("%w: got %g", ErrAbsoluteTemperature, t)
		}

		f, _ := table.Factor(t)
		u := 1/t - 1/ref
		num += u * f.Horizontal
		den += u * u
		count++
	}

	if count == 0 || den == 0 {
		return 0, fmt.Errorf("%w: need at least one non-reference temperature", ErrInsufficientData)
	}

	// log10 a_T = Ea/(ln10 * R) * (1/T - 1/Tref)
	return num / den * gasConstant * ln10, nil
}

// collectCurves extracts the per-temperature (x, y) arrays from the set.
func collectCurves(set *curve.Set, temps []float64) map[float64]shiftedCurve {
	out := make(map[float64]shiftedCurve, len(temps))
	for _, t := range temps {
		x, y := set.XY(t)
		out[t] = shiftedCurve{x: x, y: y}
	}

	return out
}
