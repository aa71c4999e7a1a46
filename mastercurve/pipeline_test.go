package mastercurve_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/cwbudde/algo-tts/curve"
	"github.com/cwbudde/algo-tts/internal/testutil"
	"github.com/cwbudde/algo-tts/mastercurve"
	"github.com/cwbudde/algo-tts/shift"
	"github.com/cwbudde/algo-tts/spline"
)

var wlfTestTemps = []float64{280, 300, 320}

// wlfObservations samples one sigmoid through a fixed window at three
// temperatures, with WLF-form horizontal shifts and a little noise.
func wlfObservations(pointsPerTemp int) ([]curve.Observation, []float64) {
	shifts := testutil.WLFShifts(8, 100, 300, wlfTestTemps)
	obs := testutil.ShiftedObservations(testutil.Sigmoid(1), wlfTestTemps, shifts, -2, 2, pointsPerTemp)

	noise := testutil.DeterministicNoise(17, 0.005, len(obs))
	for i := range obs {
		obs[i].Y += noise[i]
	}

	return obs, shifts
}

func TestRunEndToEnd(t *testing.T) {
	obs, shifts := wlfObservations(10)

	result, err := mastercurve.Run(context.Background(), obs,
		mastercurve.WithMethod(shift.WLF),
		mastercurve.WithReferenceTemperature(300),
		mastercurve.WithReplicates(500),
		mastercurve.WithConfidenceLevel(0.95),
		mastercurve.WithSeed(11),
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Shifts.Len() != len(wlfTestTemps) {
		t.Fatalf("table has %d entries, want %d", result.Shifts.Len(), len(wlfTestTemps))
	}

	ref, ok := result.Shifts.Factor(300)
	if !ok {
		t.Fatal("reference temperature missing from table")
	}

	if ref.Horizontal != 0 || ref.Vertical != 0 {
		t.Fatalf("reference factor %+v, want exactly zero", ref)
	}

	for i, temp := range wlfTestTemps {
		f, ok := result.Shifts.Factor(temp)
		if !ok {
			t.Fatalf("temperature %g missing from table", temp)
		}

		testutil.RequireNear(t, f.Horizontal, shifts[i], 0.05)
	}

	if len(result.Master) != len(obs) {
		t.Fatalf("master curve has %d points, want %d", len(result.Master), len(obs))
	}

	if !sort.SliceIsSorted(result.Master, func(i, j int) bool {
		return result.Master[i].X < result.Master[j].X
	}) {
		t.Fatal("master curve not sorted by x")
	}

	band := result.Band
	if band == nil {
		t.Fatal("missing confidence band")
	}

	if band.Level != 0.95 || band.Replicates != 500 {
		t.Fatalf("band metadata %v/%d, want 0.95/500", band.Level, band.Replicates)
	}

	fit := result.Model.EvaluateGrid(band.X)
	for i := range band.X {
		if fit[i] < band.Lower[i] || fit[i] > band.Upper[i] {
			t.Fatalf("fit outside band at x=%v", band.X[i])
		}
	}
}

func TestPipelineStageProgression(t *testing.T) {
	obs, _ := wlfObservations(12)

	set, err := curve.NewSet(obs)
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}

	p, err := mastercurve.NewPipeline(set,
		mastercurve.WithReferenceTemperature(300),
		mastercurve.WithReplicates(200),
		mastercurve.WithSeed(3),
	)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	wantStages := []mastercurve.Stage{
		mastercurve.StageIngested,
		mastercurve.StageShifted,
		mastercurve.StageFused,
		mastercurve.StageSmoothed,
		mastercurve.StageBootstrapped,
		mastercurve.StageDone,
	}

	if p.Stage() != wantStages[0] {
		t.Fatalf("initial stage %v", p.Stage())
	}

	if _, err := p.EstimateShifts(); err != nil {
		t.Fatalf("EstimateShifts: %v", err)
	}

	if p.Stage() != wantStages[1] {
		t.Fatalf("stage %v after shifts", p.Stage())
	}

	if _, err := p.Fuse(); err != nil {
		t.Fatalf("Fuse: %v", err)
	}

	if _, err := p.Smooth(); err != nil {
		t.Fatalf("Smooth: %v", err)
	}

	if _, err := p.EstimateBand(context.Background()); err != nil {
		t.Fatalf("EstimateBand: %v", err)
	}

	result, err := p.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	if p.Stage() != mastercurve.StageDone {
		t.Fatalf("final stage %v", p.Stage())
	}

	if result.Band == nil || result.Model == nil {
		t.Fatal("incomplete result")
	}
}

func TestPipelineRejectsOutOfOrderCalls(t *testing.T) {
	obs, _ := wlfObservations(12)

	set, err := curve.NewSet(obs)
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}

	p, err := mastercurve.NewPipeline(set, mastercurve.WithReferenceTemperature(300))
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	if _, err := p.Fuse(); !errors.Is(err, mastercurve.ErrStageOrder) {
		t.Fatalf("Fuse before shifts: got %v", err)
	}

	if _, err := p.Smooth(); !errors.Is(err, mastercurve.ErrStageOrder) {
		t.Fatalf("Smooth before shifts: got %v", err)
	}

	if _, err := p.Finish(); !errors.Is(err, mastercurve.ErrStageOrder) {
		t.Fatalf("Finish before shifts: got %v", err)
	}

	if _, err := p.EstimateShifts(); err != nil {
		t.Fatalf("EstimateShifts: %v", err)
	}

	if _, err := p.EstimateShifts(); !errors.Is(err, mastercurve.ErrStageOrder) {
		t.Fatalf("repeated EstimateShifts: got %v", err)
	}
}

func TestPipelineSkipBootstrap(t *testing.T) {
	obs, _ := wlfObservations(12)

	result, err := mastercurve.Run(context.Background(), obs,
		mastercurve.WithReferenceTemperature(300),
		mastercurve.WithoutBootstrap(),
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Band != nil {
		t.Fatal("band present despite skipped bootstrap")
	}

	if result.Model == nil {
		t.Fatal("missing smoothed model")
	}
}

func TestPipelineFixedLambda(t *testing.T) {
	obs, _ := wlfObservations(14)

	result, err := mastercurve.Run(context.Background(), obs,
		mastercurve.WithReferenceTemperature(300),
		mastercurve.WithFixedLambda(0.5),
		mastercurve.WithoutBootstrap(),
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := result.Model.Lambda(); got != 0.5 {
		t.Fatalf("lambda %v, want 0.5", got)
	}
}

func TestPipelineSmoothingConfigPassthrough(t *testing.T) {
	obs, _ := wlfObservations(14)

	_, err := mastercurve.Run(context.Background(), obs,
		mastercurve.WithReferenceTemperature(300),
		mastercurve.WithSmoothing(spline.Config{Order: 2}),
		mastercurve.WithoutBootstrap(),
	)
	if !errors.Is(err, spline.ErrInvalidConfig) {
		t.Fatalf("got %v, want spline.ErrInvalidConfig", err)
	}
}

func TestNewPipelineErrors(t *testing.T) {
	obs, _ := wlfObservations(12)

	set, err := curve.NewSet(obs)
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}

	if _, err := mastercurve.NewPipeline(nil); !errors.Is(err, curve.ErrEmpty) {
		t.Fatalf("nil set: got %v", err)
	}

	if _, err := mastercurve.NewPipeline(set, mastercurve.WithReferenceTemperature(999)); !errors.Is(err, shift.ErrReferenceMissing) {
		t.Fatalf("missing reference: got %v", err)
	}

	if _, err := mastercurve.NewPipeline(set, mastercurve.WithMethod(shift.Method(99))); !errors.Is(err, shift.ErrUnknownMethod) {
		t.Fatalf("unknown method: got %v", err)
	}
}

func ExampleRun() {
	shifts := testutil.WLFShifts(8, 100, 300, []float64{280, 300, 320})
	obs := testutil.ShiftedObservations(testutil.Sigmoid(1),
		[]float64{280, 300, 320}, shifts, -2, 2, 15)

	result, err := mastercurve.Run(context.Background(), obs,
		mastercurve.WithReferenceTemperature(300),
		mastercurve.WithReplicates(200),
		mastercurve.WithSeed(1),
	)
	if err != nil {
		fmt.Println(err)
		return
	}

	ref, _ := result.Shifts.Factor(300)
	fmt.Printf("temperatures: %d\n", result.Shifts.Len())
	fmt.Printf("reference shift: %g\n", ref.Horizontal)
	// Output:
	// temperatures: 3
	// reference shift: 0
}
