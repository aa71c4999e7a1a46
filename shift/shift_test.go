package shift

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-tts/curve"
	"github.com/cwbudde/algo-tts/internal/testutil"
)

// newSyntheticSet samples a shared sigmoid master curve at the given
// temperatures through a fixed 41-point observation window, with the
// given true horizontal shifts.
func newSyntheticSet(t *testing.T, temps, shifts []float64) *curve.Set {
	t.Helper()

	obs := testutil.ShiftedObservations(testutil.Sigmoid(10), temps, shifts, -2, 2, 41)

	set, err := curve.NewSet(obs)
	if err != nil {
		t.Fatal(err)
	}

	return set
}

func TestParseMethod(t *testing.T) {
	tests := []struct {
		name    string
		want    Method
		wantErr bool
	}{
		{"arrhenius", Arrhenius, false},
		{"WLF", WLF, false},
		{"Derivative", Derivative, false},
		{"bogus", Method(-1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMethod(tt.name)

			if tt.wantErr {
				if !errors.Is(err, ErrUnknownMethod) {
					t.Fatalf("err = %v, want ErrUnknownMethod", err)
				}

				return
			}

			if err != nil {
				t.Fatal(err)
			}

			if got != tt.want {
				t.Errorf("ParseMethod(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad method", func(c *Config) { c.Method = Method(99) }},
		{"grid too small", func(c *Config) { c.GridPoints = 2 }},
		{"zero tolerance", func(c *Config) { c.Tolerance = 0 }},
		{"zero budget", func(c *Config) { c.MaxIterations = 0 }},
		{"negative window", func(c *Config) { c.OverlapWindow = -1 }},
		{"bad bandwidth", func(c *Config) { c.Method = Derivative; c.DerivativeBandwidth = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestEstimateReferenceMissing(t *testing.T) {
	set := newSyntheticSet(t, []float64{280, 300}, []float64{1, 0})

	cfg := DefaultConfig()
	cfg.ReferenceTemperature = 999

	_, err := Estimate(set, cfg)
	if !errors.Is(err, ErrReferenceMissing) {
		t.Fatalf("err = %v, want ErrReferenceMissing", err)
	}
}

func TestReferenceFactorIsZero(t *testing.T) {
	temps := []float64{280, 300, 320}
	shifts := testutil.WLFShifts(8, 100, 300, temps)
	set := newSyntheticSet(t, temps, shifts)

	for _, method := range []Method{Arrhenius, WLF, Derivative} {
		t.Run(method.String(), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Method = method
			cfg.ReferenceTemperature = 300

			table, err := Estimate(set, cfg)
			if err != nil {
				t.Fatal(err)
			}

			f, ok := table.Factor(300)
			if !ok {
				t.Fatal("reference temperature missing from table")
			}

			if f.Horizontal != 0 || f.Vertical != 0 {
				t.Errorf("reference factor = %+v, want exactly (0, 0)", f)
			}
		})
	}
}

func TestWLFRoundTrip(t *testing.T) {
	temps := []float64{260, 280, 300, 320, 340}
	shifts := testutil.WLFShifts(8, 100, 300, temps)
	set := newSyntheticSet(t, temps, shifts)

	cfg := DefaultConfig()
	cfg.Method = WLF
	cfg.ReferenceTemperature = 300

	table, err := Estimate(set, cfg)
	if err != nil {
		t.Fatal(err)
	}

	if table.Len() != len(temps) {
		t.Fatalf("table has %d entries, want %d", table.Len(), len(temps))
	}

	for i, temp := range temps {
		f, _ := table.Factor(temp)
		testutil.RequireNear(t, f.Horizontal, shifts[i], 1e-3)
	}
}

func TestArrheniusRoundTrip(t *testing.T) {
	temps := []float64{280, 290, 300, 310, 320}
	const ea = 80e3

	shifts := testutil.ArrheniusShifts(ea, 300, temps)
	set := newSyntheticSet(t, temps, shifts)

	cfg := DefaultConfig()
	cfg.Method = Arrhenius
	cfg.ReferenceTemperature = 300
	cfg.ActivationEnergy = 60e3 // deliberately off; only a seed

	table, err := Estimate(set, cfg)
	if err != nil {
		t.Fatal(err)
	}

	for i, temp := range temps {
		f, _ := table.Factor(temp)
		testutil.RequireNear(t, f.Horizontal, shifts[i], 1e-3)
	}

	got, err := ActivationEnergy(table, 300)
	if err != nil {
		t.Fatal(err)
	}

	if math.Abs(got-ea)/ea > 0.01 {
		t.Errorf("ActivationEnergy = %v, want within 1%% of %v", got, ea)
	}
}

func TestDerivativeRoundTrip(t *testing.T) {
	temps := []float64{280, 300, 320}
	shifts := testutil.WLFShifts(8, 100, 300, temps)
	set := newSyntheticSet(t, temps, shifts)

	cfg := DefaultConfig()
	cfg.Method = Derivative
	cfg.ReferenceTemperature = 300
	cfg.VerticalShift = true

	table, err := Estimate(set, cfg)
	if err != nil {
		t.Fatal(err)
	}

	for i, temp := range temps {
		f, _ := table.Factor(temp)
		testutil.RequireNear(t, f.Horizontal, shifts[i], 5e-3)

		// The synthetic curves have no vertical offset.
		testutil.RequireNear(t, f.Vertical, 0, 5e-2)
	}
}

func TestDerivativeInsufficientData(t *testing.T) {
	obs := []curve.Observation{
		{X: 0, Y: 1, Temperature: 280},
		{X: 1, Y: 2, Temperature: 280},
		{X: 0, Y: 1, Temperature: 300},
		{X: 1, Y: 2, Temperature: 300},
		{X: 2, Y: 3, Temperature: 300},
	}

	set, err := curve.NewSet(obs)
	if err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	cfg.Method = Derivative
	cfg.ReferenceTemperature = 300

	_, err = Estimate(set, cfg)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}
}

func TestWLFInsufficientTemperatures(t *testing.T) {
	// Two parameters cannot be identified from one non-reference shift.
	set := newSyntheticSet(t, []float64{280, 300}, []float64{1, 0})

	cfg := DefaultConfig()
	cfg.Method = WLF
	cfg.ReferenceTemperature = 300

	_, err := Estimate(set, cfg)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}
}

func TestNonConvergenceBudget(t *testing.T) {
	temps := []float64{280, 300, 320}
	shifts := testutil.WLFShifts(8, 100, 300, temps)
	set := newSyntheticSet(t, temps, shifts)

	cfg := DefaultConfig()
	cfg.Method = WLF
	cfg.ReferenceTemperature = 300
	cfg.MaxIterations = 1
	cfg.Tolerance = 1e-15

	_, err := Estimate(set, cfg)
	if !errors.Is(err, ErrNonConvergence) {
		t.Fatalf("err = %v, want ErrNonConvergence", err)
	}
}

func TestArrheniusRejectsNonAbsoluteTemperatures(t *testing.T) {
	set := newSyntheticSet(t, []float64{-20, 0, 20}, []float64{1, 0, -1})

	cfg := DefaultConfig()
	cfg.Method = Arrhenius
	cfg.ReferenceTemperature = 0

	_, err := Estimate(set, cfg)
	if !errors.Is(err, ErrAbsoluteTemperature) {
		t.Fatalf("err = %v, want ErrAbsoluteTemperature", err)
	}
}

func TestSweepOrder(t *testing.T) {
	temps := []float64{260, 280, 300, 320, 340}

	got := sweepOrder(temps, 300)
	want := []float64{280, 320, 260, 340}

	if len(got) != len(want) {
		t.Fatalf("sweepOrder returned %v, want %v", got, want)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sweepOrder returned %v, want %v", got, want)
		}
	}
}

func TestSearchShiftTieBreak(t *testing.T) {
	// Flat curves: every translation gives zero overlap distance, so the
	// tie-break must pick the smallest magnitude shift.
	x := []float64{0, 1, 2, 3, 4}
	y := []float64{5, 5, 5, 5, 5}

	cfg := DefaultConfig()
	target := shiftedCurve{x: x, y: y}

	delta, err := searchShift(target, x, y, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	if math.Abs(delta) > 0.2 {
		t.Errorf("tie-break picked delta = %v, want near 0", delta)
	}
}

func TestOverlapWindowRestrictsRegion(t *testing.T) {
	temps := []float64{280, 300, 320}
	shifts := testutil.WLFShifts(8, 100, 300, temps)
	set := newSyntheticSet(t, temps, shifts)

	cfg := DefaultConfig()
	cfg.Method = WLF
	cfg.ReferenceTemperature = 300
	cfg.OverlapWindow = 1.5

	table, err := Estimate(set, cfg)
	if err != nil {
		t.Fatal(err)
	}

	// Recovery should still work on the noiseless synthetic data, just
	// from a narrower matching region.
	for i, temp := range temps {
		f, _ := table.Factor(temp)
		testutil.RequireNear(t, f.Horizontal, shifts[i], 5e-3)
	}
}

func TestInterpAt(t *testing.T) {
	x := []float64{0, 1, 2}
	y := []float64{0, 10, 40}

	tests := []struct {
		name   string
		x0     float64
		want   float64
		inside bool
	}{
		{"exact knot", 1, 10, true},
		{"midpoint", 0.5, 5, true},
		{"second segment", 1.5, 25, true},
		{"below range", -0.1, 0, false},
		{"above range", 2.1, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := interpAt(x, y, tt.x0)
			if ok != tt.inside {
				t.Fatalf("inside = %v, want %v", ok, tt.inside)
			}

			if ok && math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("interpAt(%v) = %v, want %v", tt.x0, got, tt.want)
			}
		})
	}
}
