package spline

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-tts/internal/bandmat"
	"github.com/cwbudde/algo-tts/stats"
)

// Errors returned by spline fitting.
var (
	ErrEmptyInput      = errors.New("spline: no data points")
	ErrLengthMismatch  = errors.New("spline: x and y lengths differ")
	ErrUnderdetermined = errors.New("spline: fewer distinct x values than basis functions")
	ErrInvalidConfig   = errors.New("spline: invalid configuration")
)

const (
	defaultOrder      = 4 // cubic
	maxOrder          = 6
	minAutoKnots      = 4
	maxAutoKnots      = 20
	gcvTieTolerance   = 1e-7
	lambdaGridDecades = 10 // GCV scans 10^-lambdaGridDecades/2 .. 10^+lambdaGridDecades/2
	lambdaGridPoints  = 25
)

// Config holds the smoother parameters. Zero values select defaults:
// cubic splines, a data-driven interior knot count, and GCV-selected
// smoothing strength.
type Config struct {
	// Order is the spline order (degree + 1). Default 4 (cubic).
	Order int

	// InteriorKnots is the number of uniform interior knots.
	// 0 derives the count from the data size.
	InteriorKnots int

	// Lambda is the explicit smoothing parameter, used when Auto is
	// false. Must be >= 0.
	Lambda float64

	// Auto selects Lambda by generalized cross-validation. GCV ties
	// within tolerance resolve toward more smoothing.
	Auto bool
}

// DefaultConfig returns the default smoother configuration with
// GCV-selected smoothing.
func DefaultConfig() Config {
	return Config{Order: defaultOrder, Auto: true}
}

func normalizeConfig(cfg Config, numPoints int) (Config, error) {
	if cfg.Order == 0 {
		cfg.Order = defaultOrder
	}

	if cfg.Order < 3 || cfg.Order > maxOrder {
		return cfg, fmt.Errorf("%w: order must be in [3, %d]", ErrInvalidConfig, maxOrder)
	}

	if cfg.InteriorKnots == 0 {
		k := numPoints / 4
		if k < minAutoKnots {
			k = minAutoKnots
		}

		if k > maxAutoKnots {
			k = maxAutoKnots
		}

		cfg.InteriorKnots = k
	}

	if cfg.InteriorKnots < 1 {
		return cfg, fmt.Errorf("%w: interior knots must be >= 1", ErrInvalidConfig)
	}

	if !cfg.Auto && (cfg.Lambda < 0 || math.IsNaN(cfg.Lambda)) {
		return cfg, fmt.Errorf("%w: lambda must be >= 0", ErrInvalidConfig)
	}

	return cfg, nil
}

// Model is a fitted penalized B-spline regression: a continuous function
// over the data's x-range plus residual statistics. A Model owns only
// derived state and copies of its training data; it never aliases caller
// slices.
type Model struct {
	b      *basis
	cfg    Config
	coeffs []float64
	lambda float64
	edf    float64
	x      []float64
	y      []float64
	fitted []float64
	resid  []float64
}

// Fit fits a penalized B-spline regression to the points (x, y). The
// penalty is the second-order difference of adjacent coefficients
// (P-spline). Fails with ErrUnderdetermined when the data has fewer
// distinct x values than basis functions.
func Fit(x, y []float64, cfg Config) (*Model, error) {
	if len(x) == 0 {
		return nil, ErrEmptyInput
	}

	if len(x) != len(y) {
		return nil, ErrLengthMismatch
	}

	cfg, err := normalizeConfig(cfg, len(x))
	if err != nil {
		return nil, err
	}

	lo, hi := x[0], x[0]
	for _, v := range x {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	if lo == hi {
		return nil, ErrUnderdetermined
	}

	b := newBasis(lo, hi, cfg.InteriorKnots, cfg.Order)

	if countDistinct(x) < b.n {
		return nil, fmt.Errorf("%w: %d distinct x for %d basis functions",
			ErrUnderdetermined, countDistinct(x), b.n)
	}

	return fitWithBasis(b, cfg, x, y)
}

// fitWithBasis solves the penalized normal equations on a fixed basis,
// selecting lambda by GCV when configured.
func fitWithBasis(b *basis, cfg Config, x, y []float64) (*Model, error) {
	btb, bty := normalEquations(b, x, y)
	penalty := differencePenalty(b.n)

	lambda := cfg.Lambda
	if cfg.Auto {
		selected, err := selectLambda(b, btb, bty, penalty, x, y)
		if err != nil {
			return nil, err
		}

		lambda = selected
	}

	coeffs, edf, err := solvePenalized(btb, bty, penalty, lambda)
	if err != nil {
		return nil, err
	}

	m := &Model{
		b:      b,
		cfg:    cfg,
		coeffs: coeffs,
		lambda: lambda,
		edf:    edf,
		x:      append([]float64(nil), x...),
		y:      append([]float64(nil), y...),
	}

	m.fitted = m.EvaluateGrid(m.x)

	m.resid = make([]float64, len(m.y))
	for i := range m.y {
		m.resid[i] = m.y[i] - m.fitted[i]
	}

	return m, nil
}

// normalEquations accumulates BᵀB (banded, bandwidth order-1) and Bᵀy.
func normalEquations(b *basis, x, y []float64) (*bandmat.SymBand, []float64) {
	btb := bandmat.New(b.n, b.order-1)
	bty := make([]float64, b.n)
	vals := make([]float64, b.order)

	for i, xv := range x {
		first := b.eval(xv, vals)

		for r := range b.order {
			bty[first+r] += vals[r] * y[i]

			for c := r; c < b.order; c++ {
				btb.Add(first+c, first+r, vals[r]*vals[c])
			}
		}
	}

	return btb, bty
}

// differencePenalty builds DᵀD for the second-order difference operator
// D with rows (1, -2, 1).
func differencePenalty(n int) *bandmat.SymBand {
	p := bandmat.New(n, 2)
	row := [3]float64{1, -2, 1}

	for i := 0; i+2 < n; i++ {
		for r := range 3 {
			for c := r; c < 3; c++ {
				p.Add(i+c, i+r, row[r]*row[c])
			}
		}
	}

	return p
}

// solvePenalized solves (BᵀB + lambda*DᵀD)c = Bᵀy and returns the
// coefficients along with the effective degrees of freedom
// tr((BᵀB + lambda*DᵀD)⁻¹ BᵀB).
func solvePenalized(btb *bandmat.SymBand, bty []float64, penalty *bandmat.SymBand, lambda float64) ([]float64, float64, error) {
	n := btb.Dim()

	a := btb.Clone()
	if lambda > 0 {
		if err := a.AddScaled(lambda, penalty); err != nil {
			return nil, 0, err
		}
	}

	chol, err := a.Cholesky()
	if err != nil {
		return nil, 0, fmt.Errorf("spline: normal equations not positive definite: %w", ErrUnderdetermined)
	}

	coeffs, err := chol.Solve(bty)
	if err != nil {
		return nil, 0, err
	}

	// tr(A⁻¹ BᵀB) column by column; the basis dimension is small.
	var edf float64

	col := make([]float64, n)
	for j := range n {
		for i := range n {
			col[i] = btb.At(i, j)
		}

		if err := chol.SolveInPlace(col); err != nil {
			return nil, 0, err
		}

		edf += col[j]
	}

	return coeffs, edf, nil
}

// selectLambda minimizes the GCV criterion n*RSS/(n - edf)² over a
// log-spaced grid. The grid is scanned from the largest lambda down so
// that ties within tolerance keep the smoother fit.
func selectLambda(b *basis, btb *bandmat.SymBand, bty []float64, penalty *bandmat.SymBand, x, y []float64) (float64, error) {
	best := math.NaN()
	bestGCV := math.Inf(1)
	n := float64(len(x))

	for _, lambda := range lambdaGrid() {
		coeffs, edf, err := solvePenalized(btb, bty, penalty, lambda)
		if err != nil {
			// A singular system at one grid point does not invalidate
			// the scan; smaller lambdas may still fail, larger succeed.
			continue
		}

		if n-edf <= 0 {
			continue
		}

		rss := residualSumSquares(b, coeffs, x, y)
		gcv := n * rss / ((n - edf) * (n - edf))

		if gcv < bestGCV*(1-gcvTieTolerance) {
			bestGCV = gcv
			best = lambda
		}
	}

	if math.IsNaN(best) {
		return 0, fmt.Errorf("spline: GCV selection failed: %w", ErrUnderdetermined)
	}

	return best, nil
}

// lambdaGrid returns the GCV scan grid, descending from the largest
// candidate.
func lambdaGrid() []float64 {
	out := make([]float64, lambdaGridPoints)
	hi := float64(lambdaGridDecades) / 2

	for i := range out {
		exp := hi - float64(i)*float64(lambdaGridDecades)/float64(lambdaGridPoints-1)
		out[i] = math.Pow(10, exp)
	}

	return out
}

func residualSumSquares(b *basis, coeffs, x, y []float64) float64 {
	vals := make([]float64, b.order)

	var rss float64

	for i, xv := range x {
		first := b.eval(xv, vals)
		r := y[i] - vecmath.DotProduct(vals, coeffs[first:first+b.order])
		rss += r * r
	}

	return rss
}

func countDistinct(x []float64) int {
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)

	count := 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1] {
			count++
		}
	}

	return count
}

// Evaluate returns the fitted curve value at x. Arguments outside the
// fitted domain clamp to the nearest boundary.
func (m *Model) Evaluate(x float64) float64 {
	vals := make([]float64, m.b.order)
	first := m.b.eval(x, vals)

	return vecmath.DotProduct(vals, m.coeffs[first:first+m.b.order])
}

// EvaluateGrid evaluates the fitted curve at every point of xs.
func (m *Model) EvaluateGrid(xs []float64) []float64 {
	out := make([]float64, len(xs))
	vals := make([]float64, m.b.order)

	for i, x := range xs {
		first := m.b.eval(x, vals)
		out[i] = vecmath.DotProduct(vals, m.coeffs[first:first+m.b.order])
	}

	return out
}

// Grid returns n evenly spaced evaluation points across the fitted
// domain.
func (m *Model) Grid(n int) []float64 {
	if n < 2 {
		return []float64{m.b.lo}
	}

	out := make([]float64, n)
	step := (m.b.hi - m.b.lo) / float64(n-1)

	for i := range out {
		out[i] = m.b.lo + float64(i)*step
	}

	out[n-1] = m.b.hi

	return out
}

// Residuals returns a copy of the training residuals y - fitted.
func (m *Model) Residuals() []float64 {
	return append([]float64(nil), m.resid...)
}

// Fitted returns a copy of the fitted values at the training abscissas.
func (m *Model) Fitted() []float64 {
	return append([]float64(nil), m.fitted...)
}

// X returns a copy of the training abscissas.
func (m *Model) X() []float64 {
	return append([]float64(nil), m.x...)
}

// Lambda returns the smoothing parameter used by the fit.
func (m *Model) Lambda() float64 { return m.lambda }

// EDF returns the effective degrees of freedom of the fit.
func (m *Model) EDF() float64 { return m.edf }

// Domain returns the fitted x-range.
func (m *Model) Domain() (lo, hi float64) { return m.b.lo, m.b.hi }

// ResidualMoments summarizes the training residuals.
func (m *Model) ResidualMoments() stats.Moments {
	return stats.ComputeMoments(m.resid)
}

// RMSE returns the root-mean-square of the training residuals.
func (m *Model) RMSE() float64 {
	return stats.RMSE(m.resid)
}

// Refit fits a model of the same configuration (basis, knots, lambda) to
// new ordinates on the same abscissas. Used by residual resampling.
func (m *Model) Refit(y []float64) (*Model, error) {
	if len(y) != len(m.x) {
		return nil, ErrLengthMismatch
	}

	return m.RefitXY(m.x, y)
}

// RefitXY fits a model of the same configuration to a new dataset.
// Abscissas outside the original domain clamp to its boundary, so
// resampled subsets of the original data always stay well defined.
func (m *Model) RefitXY(x, y []float64) (*Model, error) {
	if len(x) == 0 {
		return nil, ErrEmptyInput
	}

	if len(x) != len(y) {
		return nil, ErrLengthMismatch
	}

	cfg := m.cfg
	cfg.Auto = false
	cfg.Lambda = m.lambda

	return fitWithBasis(m.b, cfg, x, y)
}
