package spline

// basis is a clamped B-spline basis on [lo, hi]: the boundary knots
// repeat order times, interior knots are uniform. It carries no fitted
// state and can be shared by refits.
type basis struct {
	knots []float64
	order int // polynomial degree + 1
	n     int // number of basis functions
	lo    float64
	hi    float64
}

// newBasis builds a clamped basis with the given number of uniform
// interior knots.
func newBasis(lo, hi float64, interior, order int) *basis {
	n := interior + order
	knots := make([]float64, n+order)

	for i := range order {
		knots[i] = lo
		knots[len(knots)-1-i] = hi
	}

	step := (hi - lo) / float64(interior+1)
	for i := range interior {
		knots[order+i] = lo + float64(i+1)*step
	}

	return &basis{knots: knots, order: order, n: n, lo: lo, hi: hi}
}

// findSpan returns the knot span index s with knots[s] <= x < knots[s+1],
// clamped so that x = hi lands in the last non-empty span.
func (b *basis) findSpan(x float64) int {
	if x >= b.hi {
		return b.n - 1
	}

	if x <= b.lo {
		return b.order - 1
	}

	lo := b.order - 1
	hi := b.n - 1

	for lo < hi {
		mid := (lo + hi + 1) / 2
		if b.knots[mid] <= x {
			lo = mid
		} else {
			hi = mid - 1
		}
	}

	return lo
}

// eval computes the order non-zero basis values at x (clamped into the
// domain) using the Cox-de Boor recurrence. The values are written into
// vals[:order] for basis indices first .. first+order-1.
func (b *basis) eval(x float64, vals []float64) (first int) {
	if x < b.lo {
		x = b.lo
	} else if x > b.hi {
		x = b.hi
	}

	s := b.findSpan(x)
	p := b.order - 1

	left := make([]float64, b.order)
	right := make([]float64, b.order)

	vals[0] = 1
	for j := 1; j <= p; j++ {
		left[j] = x - b.knots[s+1-j]
		right[j] = b.knots[s+j] - x

		var saved float64

		for r := range j {
			temp := vals[r] / (right[r+1] + left[j-r])
			vals[r] = saved + right[r+1]*temp
			saved = left[j-r] * temp
		}

		vals[j] = saved
	}

	return s - p
}
