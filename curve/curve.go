package curve

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Errors returned during Set construction.
var (
	ErrEmpty            = errors.New("curve: no observations")
	ErrInsufficientData = errors.New("curve: temperature group needs at least 2 points")
	ErrNonFinite        = errors.New("curve: observation contains NaN or Inf")
)

// Observation is a single measured point of the material property:
// Y at abscissa X (typically log time or log frequency), recorded at
// Temperature. Observations are immutable once ingested.
type Observation struct {
	X           float64
	Y           float64
	Temperature float64
}

// Set groups observations by temperature level. Within each group the
// observations are ordered by strictly non-decreasing X. A Set is
// read-only after construction; accessors return copies.
type Set struct {
	temps  []float64 // ascending
	groups map[float64][]Observation
}

// NewSet builds a Set from raw observations. Each temperature group is
// sorted by X during ingestion. Construction fails with
// ErrInsufficientData when any group holds fewer than 2 points, since
// downstream shift estimation needs slope information.
func NewSet(obs []Observation) (*Set, error) {
	if len(obs) == 0 {
		return nil, ErrEmpty
	}

	groups := make(map[float64][]Observation)
	for _, o := range obs {
		if !isFinite(o.X) || !isFinite(o.Y) || !isFinite(o.Temperature) {
			return nil, ErrNonFinite
		}

		groups[o.Temperature] = append(groups[o.Temperature], o)
	}

	temps := make([]float64, 0, len(groups))
	for temp, group := range groups {
		if len(group) < 2 {
			return nil, fmt.Errorf("curve: temperature %g has %d point(s): %w",
				temp, len(group), ErrInsufficientData)
		}

		sort.SliceStable(group, func(i, j int) bool { return group[i].X < group[j].X })
		temps = append(temps, temp)
	}

	sort.Float64s(temps)

	return &Set{temps: temps, groups: groups}, nil
}

// Temperatures returns the distinct temperature levels in ascending order.
func (s *Set) Temperatures() []float64 {
	out := make([]float64, len(s.temps))
	copy(out, s.temps)

	return out
}

// NumTemperatures returns the number of distinct temperature levels.
func (s *Set) NumTemperatures() int { return len(s.temps) }

// Len returns the total number of observations across all groups.
func (s *Set) Len() int {
	var n int
	for _, group := range s.groups {
		n += len(group)
	}

	return n
}

// Has reports whether the Set contains the given temperature level.
func (s *Set) Has(temp float64) bool {
	_, ok := s.groups[temp]
	return ok
}

// Group returns a copy of the observations at the given temperature,
// ordered by X. Returns nil if the temperature is absent.
func (s *Set) Group(temp float64) []Observation {
	group, ok := s.groups[temp]
	if !ok {
		return nil
	}

	out := make([]Observation, len(group))
	copy(out, group)

	return out
}

// XY returns the abscissa and ordinate values of the group at the given
// temperature as parallel slices, ordered by X. Returns nil slices if
// the temperature is absent.
func (s *Set) XY(temp float64) (x, y []float64) {
	group, ok := s.groups[temp]
	if !ok {
		return nil, nil
	}

	x = make([]float64, len(group))
	y = make([]float64, len(group))

	for i, o := range group {
		x[i] = o.X
		y[i] = o.Y
	}

	return x, y
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
