package shift

import (
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// xcorrGridSize is the uniform resampling resolution used to seed the
// translation search. Power of two keeps the FFT plan cheap.
const xcorrGridSize = 256

// crossCorrelationSeed estimates the translation that best aligns curve b
// with curve a by resampling both onto a shared uniform grid and locating
// the peak of their FFT cross-correlation. The estimate only seeds the
// grid search; its accuracy is limited by the grid spacing.
func crossCorrelationSeed(ax, ay, bx, by []float64) (float64, error) {
	lo := min(ax[0], bx[0])
	hi := max(ax[len(ax)-1], bx[len(bx)-1])

	if hi <= lo {
		return 0, ErrNoOverlap
	}

	n := xcorrGridSize
	dx := (hi - lo) / float64(n-1)

	a := resampleDemeaned(ax, ay, lo, dx, n)
	b := resampleDemeaned(bx, by, lo, dx, n)

	// Linear cross-correlation via FFT: IFFT(FFT(a) * conj(FFT(b))).
	fftSize := nextPowerOf2(2 * n)

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return 0, fmt.Errorf("shift: failed to create FFT plan: %w", err)
	}

	aPadded := make([]complex128, fftSize)
	bPadded := make([]complex128, fftSize)

	for i := range n {
		aPadded[i] = complex(a[i], 0)
		bPadded[i] = complex(b[i], 0)
	}

	aFreq := make([]complex128, fftSize)
	bFreq := make([]complex128, fftSize)

	if err := plan.Forward(aFreq, aPadded); err != nil {
		return 0, fmt.Errorf("shift: forward FFT failed: %w", err)
	}

	if err := plan.Forward(bFreq, bPadded); err != nil {
		return 0, fmt.Errorf("shift: forward FFT failed: %w", err)
	}

	corrFreq := make([]complex128, fftSize)
	for i := range corrFreq {
		bConj := complex(real(bFreq[i]), -imag(bFreq[i]))
		corrFreq[i] = aFreq[i] * bConj
	}

	corrTime := make([]complex128, fftSize)
	if err := plan.Inverse(corrTime, corrFreq); err != nil {
		return 0, fmt.Errorf("shift: inverse FFT failed: %w", err)
	}

	// Positive lags live at the start of the circular result, negative
	// lags wrap around the end.
	bestLag := 0
	bestVal := real(corrTime[0])

	for lag := 1; lag < n; lag++ {
		if v := real(corrTime[lag]); v > bestVal {
			bestVal = v
			bestLag = lag
		}

		if v := real(corrTime[fftSize-lag]); v > bestVal {
			bestVal = v
			bestLag = -lag
		}
	}

	return float64(bestLag) * dx, nil
}

// resampleDemeaned samples the curve (x, y) on the uniform grid
// lo + i*dx, i in [0, n). Grid points outside the curve's support are
// zero; sampled values are mean-removed over the support so that the
// zero padding does not bias the correlation.
func resampleDemeaned(x, y []float64, lo, dx float64, n int) []float64 {
	out := make([]float64, n)
	support := make([]bool, n)

	var sum float64
	var count int

	for i := range n {
		v, ok := interpAt(x, y, lo+float64(i)*dx)
		if !ok {
			continue
		}

		out[i] = v
		support[i] = true
		sum += v
		count++
	}

	if count == 0 {
		return out
	}

	mean := sum / float64(count)
	for i := range out {
		if support[i] {
			out[i] -= mean
		}
	}

	return out
}

// nextPowerOf2 returns the smallest power of two >= n.
func nextPowerOf2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}

	return p
}
