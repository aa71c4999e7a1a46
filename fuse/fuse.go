// Package fuse applies computed shift factors to a curve set and merges
// the shifted points into a single raw master curve ordered by shifted
// abscissa. Fusion is a pure transform: identical inputs always yield an
// identical master curve.
package fuse

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cwbudde/algo-tts/curve"
	"github.com/cwbudde/algo-tts/shift"
)

// ErrMissingShift is returned when the shift table lacks an entry for a
// temperature present in the curve set.
var ErrMissingShift = errors.New("fuse: missing shift factor for temperature")

// Point is a single observation after shifting: X and Y carry the
// horizontal and vertical shift of the source temperature.
type Point struct {
	X           float64
	Y           float64
	Temperature float64
}

// MasterCurve is the fused point cloud, ordered by shifted X.
type MasterCurve []Point

// Fuse shifts every observation by its temperature's factor and returns
// the merged master curve sorted ascending by shifted X. Ties order by
// source temperature, then Y, keeping the output deterministic.
func Fuse(set *curve.Set, table *shift.Table) (MasterCurve, error) {
	temps := set.Temperatures()
	out := make(MasterCurve, 0, set.Len())

	for _, temp := range temps {
		f, ok := table.Factor(temp)
		if !ok {
			return nil, fmt.Errorf("%w: %g", ErrMissingShift, temp)
		}

		for _, o := range set.Group(temp) {
			out = append(out, Point{
				X:           o.X + f.Horizontal,
				Y:           o.Y + f.Vertical,
				Temperature: temp,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}

		if out[i].Temperature != out[j].Temperature {
			return out[i].Temperature < out[j].Temperature
		}

		return out[i].Y < out[j].Y
	})

	return out, nil
}

// XY returns the abscissa and ordinate values as parallel slices.
func (m MasterCurve) XY() (x, y []float64) {
	x = make([]float64, len(m))
	y = make([]float64, len(m))

	for i, p := range m {
		x[i] = p.X
		y[i] = p.Y
	}

	return x, y
}

// Span returns the smallest and largest shifted abscissa.
// Returns (0, 0) for an empty curve.
func (m MasterCurve) Span() (lo, hi float64) {
	if len(m) == 0 {
		return 0, 0
	}

	return m[0].X, m[len(m)-1].X
}

// GroupIndices returns the point indices per source temperature, used by
// grouped resampling.
func (m MasterCurve) GroupIndices() map[float64][]int {
	out := make(map[float64][]int)
	for i, p := range m {
		out[p.Temperature] = append(out[p.Temperature], i)
	}

	return out
}
