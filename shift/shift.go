package shift

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/cwbudde/algo-tts/curve"
)

// Errors returned by shift estimation.
var (
	ErrUnknownMethod       = errors.New("shift: unknown estimation method")
	ErrReferenceMissing    = errors.New("shift: reference temperature not present in curve set")
	ErrInsufficientData    = errors.New("shift: insufficient data for the chosen method")
	ErrNonConvergence      = errors.New("shift: iterative fit did not converge within the iteration budget")
	ErrNoOverlap           = errors.New("shift: curves share no usable overlap region")
	ErrInvalidConfig       = errors.New("shift: invalid configuration")
	ErrAbsoluteTemperature = errors.New("shift: arrhenius method requires absolute (positive) temperatures")
)

// Method selects the shift-estimation strategy.
type Method int

const (
	// Arrhenius assumes the horizontal log-shift is linear in inverse
	// absolute temperature.
	Arrhenius Method = iota
	// WLF fits the two-parameter Williams-Landel-Ferry form
	// a(T) = -C1*(T-Tref) / (C2 + T-Tref).
	WLF
	// Derivative aligns locally smoothed derivative curves instead of the
	// raw curves. More robust when curves have limited or noisy overlap.
	Derivative
)

var methodNames = map[Method]string{
	Arrhenius:  "arrhenius",
	WLF:        "wlf",
	Derivative: "derivative",
}

// String returns the lower-case name of the method.
func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}

	return "unknown"
}

// ParseMethod returns the Method for a given name (case-insensitive).
// Returns ErrUnknownMethod for unrecognized names.
func ParseMethod(name string) (Method, error) {
	for m, n := range methodNames {
		if n == strings.ToLower(name) {
			return m, nil
		}
	}

	return Method(-1), fmt.Errorf("%w: %q", ErrUnknownMethod, name)
}

// Factor is the shift applied to one temperature's curve: a horizontal
// log-shift added to X and an optional vertical shift added to Y.
type Factor struct {
	Horizontal float64
	Vertical   float64
}

// Table maps temperature levels to their shift factors. Entries keep the
// processing order of the outward sweep (reference first).
type Table struct {
	temps   []float64
	factors map[float64]Factor
}

func newTable() *Table {
	return &Table{factors: make(map[float64]Factor)}
}

// NewTable builds a table from explicit factors, e.g. to replay shifts
// computed elsewhere. Entries are ordered by ascending temperature.
func NewTable(factors map[float64]Factor) *Table {
	t := newTable()

	temps := make([]float64, 0, len(factors))
	for temp := range factors {
		temps = append(temps, temp)
	}

	sort.Float64s(temps)

	for _, temp := range temps {
		t.add(temp, factors[temp])
	}

	return t
}

func (t *Table) add(temp float64, f Factor) {
	if _, ok := t.factors[temp]; !ok {
		t.temps = append(t.temps, temp)
	}

	t.factors[temp] = f
}

// Factor returns the shift factor for the given temperature.
func (t *Table) Factor(temp float64) (Factor, bool) {
	f, ok := t.factors[temp]
	return f, ok
}

// Temperatures returns the temperature levels in processing order:
// the reference first, then increasing distance from the reference.
func (t *Table) Temperatures() []float64 {
	out := make([]float64, len(t.temps))
	copy(out, t.temps)

	return out
}

// Len returns the number of entries in the table.
func (t *Table) Len() int { return len(t.temps) }

// Config holds the shift-estimation parameters. The zero value is not
// usable; start from DefaultConfig.
type Config struct {
	Method               Method
	ReferenceTemperature float64

	// VerticalShift enables vertical offsets. Only the derivative method
	// produces vertical shifts; the other methods always report 0.
	VerticalShift bool

	// OverlapWindow restricts the overlap distance to a fixed-width
	// window centred on the mutual x-range midpoint. 0 uses the full
	// mutual range.
	OverlapWindow float64

	// GridPoints is the resolution of the coarse translation search.
	GridPoints int

	// Tolerance is the convergence tolerance for the golden-section
	// refinement and the WLF fit.
	Tolerance float64

	// MaxIterations bounds every iterative loop. Exceeding it surfaces
	// ErrNonConvergence.
	MaxIterations int

	// TieTolerance: translations whose overlap distance lies within this
	// relative tolerance of the minimum are tied, and the smallest
	// magnitude shift wins.
	TieTolerance float64

	// ActivationEnergy seeds the arrhenius pairwise search with the shift
	// predicted by this activation energy in J/mol. 0 disables the seed.
	ActivationEnergy float64

	// C1, C2 seed the WLF fit. Defaults are the universal constants.
	C1 float64
	C2 float64

	// DerivativeBandwidth is the local smoothing bandwidth of the
	// derivative method, as a fraction of each group's x-span.
	DerivativeBandwidth float64
}

// DefaultConfig returns the default shift-estimation configuration:
// WLF method with universal-constant seeds.
func DefaultConfig() Config {
	return Config{
		Method:              WLF,
		GridPoints:          101,
		Tolerance:           1e-6,
		MaxIterations:       200,
		TieTolerance:        1e-9,
		C1:                  17.44,
		C2:                  51.6,
		DerivativeBandwidth: 0.2,
	}
}

// Validate checks the configuration for usable values.
func (c *Config) Validate() error {
	if c.Method != Arrhenius && c.Method != WLF && c.Method != Derivative {
		return ErrUnknownMethod
	}

	if c.GridPoints < 3 {
		return fmt.Errorf("%w: grid points must be >= 3", ErrInvalidConfig)
	}

	if c.Tolerance <= 0 {
		return fmt.Errorf("%w: tolerance must be positive", ErrInvalidConfig)
	}

	if c.MaxIterations < 1 {
		return fmt.Errorf("%w: iteration budget must be >= 1", ErrInvalidConfig)
	}

	if c.OverlapWindow < 0 {
		return fmt.Errorf("%w: overlap window must be >= 0", ErrInvalidConfig)
	}

	if c.Method == Derivative && (c.DerivativeBandwidth <= 0 || c.DerivativeBandwidth > 1) {
		return fmt.Errorf("%w: derivative bandwidth must be in (0, 1]", ErrInvalidConfig)
	}

	return nil
}

// Estimate computes one shift factor per temperature in the set, relative
// to the configured reference temperature. The reference always maps to
// Factor{0, 0} exactly. Temperatures are processed in increasing distance
// from the reference, each aligned against its already-shifted neighbor.
func Estimate(set *curve.Set, cfg Config) (*Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if !set.Has(cfg.ReferenceTemperature) {
		return nil, fmt.Errorf("%w: %g", ErrReferenceMissing, cfg.ReferenceTemperature)
	}

	switch cfg.Method {
	case Arrhenius:
		return estimateArrhenius(set, cfg)
	case WLF:
		return estimateWLF(set, cfg)
	case Derivative:
		return estimateDerivative(set, cfg)
	default:
		return nil, ErrUnknownMethod
	}
}

// sweepOrder returns the non-reference temperatures ordered by increasing
// distance from the reference; ties resolve toward the lower temperature.
func sweepOrder(temps []float64, ref float64) []float64 {
	out := make([]float64, 0, len(temps)-1)
	for _, t := range temps {
		if t != ref {
			out = append(out, t)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		di := math.Abs(out[i] - ref)
		dj := math.Abs(out[j] - ref)

		if di != dj {
			return di < dj
		}

		return out[i] < out[j]
	})

	return out
}

// neighborToward returns the temperature adjacent to t one step closer to
// the reference in the ascending temperature ordering.
func neighborToward(temps []float64, t, ref float64) float64 {
	idx := sort.SearchFloat64s(temps, t)

	if t > ref {
		return temps[idx-1]
	}

	return temps[idx+1]
}
