// Package stats provides the residual statistics shared by the spline and
// bootstrap packages: central moments, RMS error, and empirical quantiles.
package stats

import (
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// Moments holds the first four central moments of a sample.
type Moments struct {
	Mean     float64
	Variance float64 // population variance
	Skewness float64
	Kurtosis float64 // excess kurtosis
}

// ComputeMoments returns the mean, population variance, skewness, and excess
// kurtosis of x using Welford's online algorithm for numerical stability on
// higher-order moments.
func ComputeMoments(x []float64) Moments {
	n := len(x)
	if n == 0 {
		return Moments{}
	}

	var mean, m2, m3, m4 float64

	for i, v := range x {
		ni := float64(i + 1)
		delta := v - mean
		deltaN := delta / ni
		deltaN2 := deltaN * deltaN
		term1 := delta * deltaN * float64(i)

		// M4 must be updated before M3, and M3 before M2.
		m4 += term1*deltaN2*(ni*ni-3*ni+3) + 6*deltaN2*m2 - 4*deltaN*m3
		m3 += term1*deltaN*(float64(i)-1) - 3*deltaN*m2
		m2 += term1
		mean += deltaN
	}

	nf := float64(n)
	out := Moments{Mean: mean, Variance: m2 / nf}

	if out.Variance > 0 {
		out.Skewness = (m3 / nf) / (out.Variance * math.Sqrt(out.Variance))
		out.Kurtosis = (m4/nf)/(out.Variance*out.Variance) - 3
	}

	return out
}

// Mean returns the arithmetic mean of x, or 0 for an empty slice.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}

	return vecmath.Sum(x) / float64(len(x))
}

// RMSE returns the root-mean-square of x, or 0 for an empty slice.
func RMSE(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}

	return math.Sqrt(vecmath.DotProduct(x, x) / float64(len(x)))
}

// Quantile returns the empirical p-quantile of sorted (ascending) data
// using linear interpolation between order statistics. p is clamped to
// [0, 1]. Returns NaN for an empty slice.
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}

	if n == 1 {
		return sorted[0]
	}

	if p <= 0 {
		return sorted[0]
	}

	if p >= 1 {
		return sorted[n-1]
	}

	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	frac := pos - float64(lo)

	if lo+1 >= n {
		return sorted[n-1]
	}

	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
