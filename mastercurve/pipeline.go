package mastercurve

import (
	"context"
	"errors"
	"fmt"

	"github.com/cwbudde/algo-tts/bootstrap"
	"github.com/cwbudde/algo-tts/curve"
	"github.com/cwbudde/algo-tts/fuse"
	"github.com/cwbudde/algo-tts/shift"
	"github.com/cwbudde/algo-tts/spline"
)

// ErrStageOrder reports a pipeline method called out of sequence.
var ErrStageOrder = errors.New("mastercurve: pipeline stage out of order")

// Stage tracks pipeline progress. Stages advance strictly in order;
// calling a stage method out of sequence fails with ErrStageOrder.
type Stage int

const (
	StageIngested Stage = iota
	StageShifted
	StageFused
	StageSmoothed
	StageBootstrapped
	StageDone
)

var stageNames = map[Stage]string{
	StageIngested:     "ingested",
	StageShifted:      "shifted",
	StageFused:        "fused",
	StageSmoothed:     "smoothed",
	StageBootstrapped: "bootstrapped",
	StageDone:         "done",
}

// String implements fmt.Stringer.
func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}

	return fmt.Sprintf("stage(%d)", int(s))
}

// Result collects the outputs of a completed pipeline. Band is nil when
// the bootstrap stage was skipped.
type Result struct {
	Shifts *shift.Table
	Master fuse.MasterCurve
	Model  *spline.Model
	Band   *bootstrap.Band
}

// Evaluate returns the smoothed master-curve value at x.
func (r *Result) Evaluate(x float64) float64 {
	return r.Model.Evaluate(x)
}

// Pipeline runs the master-curve stages over one curve set. A Pipeline
// is single use and not safe for concurrent access.
type Pipeline struct {
	cfg   Config
	stage Stage

	set    *curve.Set
	shifts *shift.Table
	master fuse.MasterCurve
	model  *spline.Model
	band   *bootstrap.Band
}

// NewPipeline validates the configuration against the set and returns a
// pipeline at the ingested stage.
func NewPipeline(set *curve.Set, opts ...Option) (*Pipeline, error) {
	if set == nil || set.Len() == 0 {
		return nil, curve.ErrEmpty
	}

	cfg := ApplyOptions(opts...)

	if err := cfg.Shift.Validate(); err != nil {
		return nil, err
	}

	if !set.Has(cfg.Shift.ReferenceTemperature) {
		return nil, fmt.Errorf("%w: %g not in set", shift.ErrReferenceMissing, cfg.Shift.ReferenceTemperature)
	}

	return &Pipeline{cfg: cfg, stage: StageIngested, set: set}, nil
}

// Stage returns the pipeline's current stage.
func (p *Pipeline) Stage() Stage {
	return p.stage
}

func (p *Pipeline) require(want Stage) error {
	if p.stage != want {
		return fmt.Errorf("%w: at %q, want %q", ErrStageOrder, p.stage, want)
	}

	return nil
}

// EstimateShifts computes the shift factor table.
func (p *Pipeline) EstimateShifts() (*shift.Table, error) {
	if err := p.require(StageIngested); err != nil {
		return nil, err
	}

	table, err := shift.Estimate(p.set, p.cfg.Shift)
	if err != nil {
		return nil, err
	}

	p.shifts = table
	p.stage = StageShifted

	return table, nil
}

// Fuse merges the shifted groups into a single master curve.
func (p *Pipeline) Fuse() (fuse.MasterCurve, error) {
	if err := p.require(StageShifted); err != nil {
		return nil, err
	}

	master, err := fuse.Fuse(p.set, p.shifts)
	if err != nil {
		return nil, err
	}

	p.master = master
	p.stage = StageFused

	return master, nil
}

// Smooth fits the penalized spline through the master curve.
func (p *Pipeline) Smooth() (*spline.Model, error) {
	if err := p.require(StageFused); err != nil {
		return nil, err
	}

	x, y := p.master.XY()

	model, err := spline.Fit(x, y, p.cfg.Spline)
	if err != nil {
		return nil, err
	}

	p.model = model
	p.stage = StageSmoothed

	return model, nil
}

// EstimateBand computes the bootstrap confidence band. With bootstrap
// skipped in the configuration, the stage is a no-op that still
// advances.
func (p *Pipeline) EstimateBand(ctx context.Context) (*bootstrap.Band, error) {
	if err := p.require(StageSmoothed); err != nil {
		return nil, err
	}

	if p.cfg.SkipBootstrap {
		p.stage = StageBootstrapped
		return nil, nil
	}

	eng, err := bootstrap.New(p.cfg.Bootstrap)
	if err != nil {
		return nil, err
	}

	band, err := eng.Run(ctx, p.model, p.master)
	if err != nil {
		return nil, err
	}

	p.band = band
	p.stage = StageBootstrapped

	return band, nil
}

// Finish seals the pipeline and returns the collected result.
func (p *Pipeline) Finish() (*Result, error) {
	if err := p.require(StageBootstrapped); err != nil {
		return nil, err
	}

	p.stage = StageDone

	return &Result{
		Shifts: p.shifts,
		Master: p.master,
		Model:  p.model,
		Band:   p.band,
	}, nil
}

// Run executes the whole pipeline over obs in one call.
func Run(ctx context.Context, obs []curve.Observation, opts ...Option) (*Result, error) {
	set, err := curve.NewSet(obs)
	if err != nil {
		return nil, err
	}

	p, err := NewPipeline(set, opts...)
	if err != nil {
		return nil, err
	}

	if _, err := p.EstimateShifts(); err != nil {
		return nil, err
	}

	if _, err := p.Fuse(); err != nil {
		return nil, err
	}

	if _, err := p.Smooth(); err != nil {
		return nil, err
	}

	if _, err := p.EstimateBand(ctx); err != nil {
		return nil, err
	}

	return p.Finish()
}
