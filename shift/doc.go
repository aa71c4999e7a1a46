// Package shift estimates the horizontal (and optionally vertical) shift
// factors that collapse per-temperature curves onto a reference-temperature
// master curve.
//
// Three interchangeable strategies are provided, selected by Config.Method:
//
//   - Arrhenius: log-shift linear in inverse absolute temperature. Pairwise
//     overlap shifts are regressed against (1/T - 1/Tref) through the
//     origin, yielding activation-energy-consistent shifts.
//   - WLF: the two-parameter Williams-Landel-Ferry rational form, fitted to
//     the pairwise overlap shifts by damped Gauss-Newton least squares.
//   - Derivative: aligns locally smoothed derivative curves rather than the
//     raw curves; more robust for short or noisy overlap regions, and the
//     only strategy that produces vertical shifts.
//
// All strategies process temperatures in increasing distance from the
// reference: each curve is aligned against its already-shifted neighbor,
// not against the raw reference, so shift errors do not compound across a
// gap in the temperature ladder. The reference temperature always maps to
// a shift of exactly (0, 0).
//
// Typical usage:
//
//	cfg := shift.DefaultConfig()
//	cfg.Method = shift.WLF
//	cfg.ReferenceTemperature = 25
//	table, err := shift.Estimate(set, cfg)
//
// The pairwise translation search scans a coarse grid over the feasible
// range, seeded by an FFT cross-correlation of the resampled curves, and
// refines the winner by golden-section search. Translations whose overlap
// distance ties within tolerance resolve toward the smallest magnitude
// shift.
package shift
