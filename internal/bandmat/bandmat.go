// Package bandmat provides a symmetric banded matrix with a Cholesky
// factorization and band-structured triangular solves, shared by the
// penalized spline fitting code.
package bandmat

import (
	"errors"
	"math"
)

// ErrNotPositiveDefinite is returned when the Cholesky factorization
// encounters a non-positive pivot.
var ErrNotPositiveDefinite = errors.New("bandmat: matrix is not positive definite")

// ErrDimensionMismatch is returned when a right-hand side does not match
// the matrix dimension.
var ErrDimensionMismatch = errors.New("bandmat: dimension mismatch")

// SymBand is an n-by-n symmetric matrix with bandwidth bw (number of
// non-zero sub-diagonals). Only the lower band is stored: rows[i][d]
// holds the entry (i, i-d) for d in [0, min(i, bw)].
type SymBand struct {
	n    int
	bw   int
	rows [][]float64
}

// New creates an n-by-n symmetric band matrix with bandwidth bw,
// initialized to zero.
func New(n, bw int) *SymBand {
	if bw >= n {
		bw = n - 1
	}

	rows := make([][]float64, n)
	for i := range rows {
		width := bw + 1
		if i < bw {
			width = i + 1
		}

		rows[i] = make([]float64, width)
	}

	return &SymBand{n: n, bw: bw, rows: rows}
}

// Dim returns the matrix dimension n.
func (m *SymBand) Dim() int { return m.n }

// Bandwidth returns the number of stored sub-diagonals.
func (m *SymBand) Bandwidth() int { return m.bw }

// At returns the entry (i, j). Entries outside the band are zero.
func (m *SymBand) At(i, j int) float64 {
	if j > i {
		i, j = j, i
	}

	d := i - j
	if d > m.bw {
		return 0
	}

	return m.rows[i][d]
}

// Add accumulates v into the entry (i, j). Since the matrix is symmetric,
// Add(i, j, v) and Add(j, i, v) are equivalent. Panics if (i, j) lies
// outside the band.
func (m *SymBand) Add(i, j int, v float64) {
	if j > i {
		i, j = j, i
	}

	d := i - j
	if d > m.bw {
		panic("bandmat: entry outside band")
	}

	m.rows[i][d] += v
}

// AddScaled accumulates alpha*other into m. Both matrices must have the
// same dimension; other's bandwidth must not exceed m's.
func (m *SymBand) AddScaled(alpha float64, other *SymBand) error {
	if other.n != m.n || other.bw > m.bw {
		return ErrDimensionMismatch
	}

	for i := range other.rows {
		for d, v := range other.rows[i] {
			m.rows[i][d] += alpha * v
		}
	}

	return nil
}

// Clone returns a deep copy of the matrix.
func (m *SymBand) Clone() *SymBand {
	out := &SymBand{n: m.n, bw: m.bw, rows: make([][]float64, m.n)}
	for i, row := range m.rows {
		out.rows[i] = make([]float64, len(row))
		copy(out.rows[i], row)
	}

	return out
}

// Reset sets all stored entries to zero.
func (m *SymBand) Reset() {
	for _, row := range m.rows {
		for d := range row {
			row[d] = 0
		}
	}
}

// CholBand is the lower-triangular Cholesky factor of a SymBand, stored
// with the same band layout.
type CholBand struct {
	n    int
	bw   int
	rows [][]float64
}

// Cholesky computes the Cholesky factorization A = L*Lᵀ. The receiver is
// not modified. Returns ErrNotPositiveDefinite when a pivot is not
// strictly positive.
func (m *SymBand) Cholesky() (*CholBand, error) {
	c := &CholBand{n: m.n, bw: m.bw, rows: make([][]float64, m.n)}
	for i, row := range m.rows {
		c.rows[i] = make([]float64, len(row))
		copy(c.rows[i], row)
	}

	for i := range c.n {
		lo := i - c.bw
		if lo < 0 {
			lo = 0
		}

		for j := lo; j <= i; j++ {
			sum := c.rows[i][i-j]

			kLo := lo
			if j-c.bw > kLo {
				kLo = j - c.bw
			}

			for k := kLo; k < j; k++ {
				sum -= c.rows[i][i-k] * c.rows[j][j-k]
			}

			if i == j {
				if sum <= 0 || math.IsNaN(sum) {
					return nil, ErrNotPositiveDefinite
				}

				c.rows[i][0] = math.Sqrt(sum)
			} else {
				c.rows[i][i-j] = sum / c.rows[j][0]
			}
		}
	}

	return c, nil
}

// Solve solves A*x = b given the factorization and returns x.
// b is not modified.
func (c *CholBand) Solve(b []float64) ([]float64, error) {
	if len(b) != c.n {
		return nil, ErrDimensionMismatch
	}

	x := make([]float64, c.n)
	copy(x, b)

	if err := c.SolveInPlace(x); err != nil {
		return nil, err
	}

	return x, nil
}

// SolveInPlace solves A*x = b, overwriting b with the solution.
func (c *CholBand) SolveInPlace(b []float64) error {
	if len(b) != c.n {
		return ErrDimensionMismatch
	}

	// Forward substitution: L*y = b.
	for i := range c.n {
		lo := i - c.bw
		if lo < 0 {
			lo = 0
		}

		sum := b[i]
		for k := lo; k < i; k++ {
			sum -= c.rows[i][i-k] * b[k]
		}

		b[i] = sum / c.rows[i][0]
	}

	// Back substitution: Lᵀ*x = y.
	for i := c.n - 1; i >= 0; i-- {
		hi := i + c.bw
		if hi > c.n-1 {
			hi = c.n - 1
		}

		sum := b[i]
		for k := i + 1; k <= hi; k++ {
			sum -= c.rows[k][k-i] * b[k]
		}

		b[i] = sum / c.rows[i][0]
	}

	return nil
}
