// Package testutil provides synthetic curve generators and numeric
// tolerance helpers shared by the package tests.
package testutil

import (
	"math"
	"math/rand/v2"

	"github.com/cwbudde/algo-tts/curve"
)

// Sigmoid is a smooth, monotonically decreasing master-curve shape
// resembling a relaxation modulus in log time: scale / (1 + exp(x)).
func Sigmoid(scale float64) func(float64) float64 {
	return func(x float64) float64 {
		return scale / (1 + math.Exp(x))
	}
}

// ShiftedObservations samples a shared master curve f at every
// temperature through a fixed observation window [lo, hi] with n points:
// the curve at temps[i] observes f(x + shifts[i]), so an estimator should
// recover exactly shifts[i] as the horizontal shift factor.
func ShiftedObservations(f func(float64) float64, temps, shifts []float64, lo, hi float64, n int) []curve.Observation {
	obs := make([]curve.Observation, 0, len(temps)*n)
	step := (hi - lo) / float64(n-1)

	for i, temp := range temps {
		for j := range n {
			x := lo + float64(j)*step
			obs = append(obs, curve.Observation{
				X:           x,
				Y:           f(x + shifts[i]),
				Temperature: temp,
			})
		}
	}

	return obs
}

// WLFShifts evaluates the WLF form -c1*(T-ref)/(c2+T-ref) at each
// temperature.
func WLFShifts(c1, c2, ref float64, temps []float64) []float64 {
	out := make([]float64, len(temps))
	for i, t := range temps {
		d := t - ref
		out[i] = -c1 * d / (c2 + d)
	}

	return out
}

// ArrheniusShifts evaluates the Arrhenius decade shift
// Ea/(ln10*R) * (1/T - 1/ref) at each absolute temperature.
func ArrheniusShifts(ea, ref float64, temps []float64) []float64 {
	const r = 8.31446261815324

	out := make([]float64, len(temps))
	for i, t := range temps {
		out[i] = ea / (r * math.Ln10) * (1/t - 1/ref)
	}

	return out
}

// DeterministicNoise generates uniform noise in [-amplitude, amplitude]
// with a fixed seed for reproducibility.
func DeterministicNoise(seed uint64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewPCG(seed, 0))

	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}

	return out
}
