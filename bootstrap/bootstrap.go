// Package bootstrap computes pointwise confidence bands for a fitted
// master curve by resampling and refitting.
//
// Two resampling schemes are supported: residual resampling keeps the
// abscissas fixed and perturbs the fitted values with resampled
// residuals, while by-group resampling redraws observations with
// replacement within each temperature group. Replicates run in parallel
// and are seeded per replicate index, so results are reproducible for a
// fixed seed regardless of scheduling order.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-tts/fuse"
	"github.com/cwbudde/algo-tts/spline"
	"github.com/cwbudde/algo-tts/stats"
)

// Errors returned by the bootstrap engine.
var (
	ErrInsufficientReplicates = errors.New("bootstrap: too few replicates for a stable band")
	ErrInvalidConfig          = errors.New("bootstrap: invalid configuration")
	ErrEmptyCurve             = errors.New("bootstrap: empty master curve")
)

// Mode selects the resampling scheme.
type Mode int

const (
	// ResampleResiduals redraws fitted-model residuals with replacement
	// onto the original abscissas.
	ResampleResiduals Mode = iota

	// ResampleByGroup redraws observations with replacement within each
	// temperature group of the master curve.
	ResampleByGroup
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case ResampleResiduals:
		return "residuals"
	case ResampleByGroup:
		return "by-group"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

const (
	// MinReplicates is the smallest replicate count the engine accepts;
	// quantile estimates degrade quickly below it.
	MinReplicates = 200

	defaultReplicates = 2000
	defaultLevel      = 0.95
	defaultGridSize   = 100
)

// Config holds the bootstrap parameters. Zero values select defaults.
type Config struct {
	// Replicates is the number of bootstrap refits. Default 2000,
	// minimum MinReplicates.
	Replicates int

	// Level is the two-sided confidence level in (0, 1). Default 0.95.
	Level float64

	// GridSize is the number of evaluation points across the master
	// curve's span. Default 100.
	GridSize int

	// Mode selects the resampling scheme. Default ResampleResiduals.
	Mode Mode

	// Seed fixes the random stream. 0 draws a fresh seed.
	Seed uint64

	// Workers bounds concurrent refits. 0 uses GOMAXPROCS.
	Workers int
}

// Validate applies defaults and checks the configuration, returning the
// normal form.
func (c Config) Validate() (Config, error) {
	if c.Replicates == 0 {
		c.Replicates = defaultReplicates
	}

	if c.Replicates < MinReplicates {
		return c, fmt.Errorf("%w: %d < %d", ErrInsufficientReplicates, c.Replicates, MinReplicates)
	}

	if c.Level == 0 {
		c.Level = defaultLevel
	}

	if c.Level <= 0 || c.Level >= 1 || math.IsNaN(c.Level) {
		return c, fmt.Errorf("%w: level %v outside (0, 1)", ErrInvalidConfig, c.Level)
	}

	if c.GridSize == 0 {
		c.GridSize = defaultGridSize
	}

	if c.GridSize < 2 {
		return c, fmt.Errorf("%w: grid size %d < 2", ErrInvalidConfig, c.GridSize)
	}

	if c.Mode != ResampleResiduals && c.Mode != ResampleByGroup {
		return c, fmt.Errorf("%w: unknown mode %d", ErrInvalidConfig, int(c.Mode))
	}

	if c.Workers == 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}

	if c.Workers < 1 {
		return c, fmt.Errorf("%w: workers %d < 1", ErrInvalidConfig, c.Workers)
	}

	return c, nil
}

// Band is a pointwise confidence band on a fixed evaluation grid.
type Band struct {
	X     []float64
	Lower []float64
	Upper []float64

	// Level is the two-sided confidence level the band was built for.
	Level float64

	// Replicates is the number of refits that produced the band.
	Replicates int

	// Seed is the effective seed, useful for reproducing a band built
	// with Seed 0.
	Seed uint64
}

// MeanWidth returns the average vertical width of the band.
func (b *Band) MeanWidth() float64 {
	if len(b.X) == 0 {
		return 0
	}

	var sum float64
	for i := range b.X {
		sum += b.Upper[i] - b.Lower[i]
	}

	return sum / float64(len(b.X))
}

// Engine runs bootstrap replicates against a fitted model.
type Engine struct {
	cfg Config
}

// New validates the configuration and returns an engine.
func New(cfg Config) (*Engine, error) {
	cfg, err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	return &Engine{cfg: cfg}, nil
}

// Run resamples, refits, and reduces the replicate curves to empirical
// quantile bounds at each grid point. The context cancels in-flight
// replicates.
func (e *Engine) Run(ctx context.Context, model *spline.Model, master fuse.MasterCurve) (*Band, error) {
	if len(master) == 0 {
		return nil, ErrEmptyCurve
	}

	seed := e.cfg.Seed
	if seed == 0 {
		seed = rand.Uint64() | 1
	}

	grid := model.Grid(e.cfg.GridSize)
	curves := make([][]float64, e.cfg.Replicates)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)

	for i := range e.cfg.Replicates {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			rng := rand.New(rand.NewPCG(seed, uint64(i)))

			refit, err := e.resampleFit(rng, model, master)
			if err != nil {
				return fmt.Errorf("bootstrap: replicate %d: %w", i, err)
			}

			curves[i] = refit.EvaluateGrid(grid)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return reduceBand(grid, curves, e.cfg, seed), nil
}

// resampleFit draws one bootstrap sample and refits the model on it.
func (e *Engine) resampleFit(rng *rand.Rand, model *spline.Model, master fuse.MasterCurve) (*spline.Model, error) {
	switch e.cfg.Mode {
	case ResampleByGroup:
		x, y := resampleByGroup(rng, master)
		return model.RefitXY(x, y)
	default:
		return model.Refit(resampleResiduals(rng, model))
	}
}

// resampleResiduals builds fitted + resampled-residual ordinates on the
// original abscissas.
func resampleResiduals(rng *rand.Rand, model *spline.Model) []float64 {
	fitted := model.Fitted()
	resid := model.Residuals()

	y := make([]float64, len(fitted))
	for i := range y {
		y[i] = fitted[i] + resid[rng.IntN(len(resid))]
	}

	return y
}

// resampleByGroup redraws points with replacement within each
// temperature group, preserving every group's share of the sample.
func resampleByGroup(rng *rand.Rand, master fuse.MasterCurve) (x, y []float64) {
	groups := master.GroupIndices()

	temps := make([]float64, 0, len(groups))
	for t := range groups {
		temps = append(temps, t)
	}

	sort.Float64s(temps)

	x = make([]float64, 0, len(master))
	y = make([]float64, 0, len(master))

	for _, t := range temps {
		idx := groups[t]
		for range idx {
			p := master[idx[rng.IntN(len(idx))]]
			x = append(x, p.X)
			y = append(y, p.Y)
		}
	}

	return x, y
}

// reduceBand collapses replicate curves to pointwise empirical quantiles.
func reduceBand(grid []float64, curves [][]float64, cfg Config, seed uint64) *Band {
	lower := make([]float64, len(grid))
	upper := make([]float64, len(grid))

	pLo := (1 - cfg.Level) / 2
	pHi := (1 + cfg.Level) / 2

	column := make([]float64, len(curves))
	for j := range grid {
		for i, c := range curves {
			column[i] = c[j]
		}

		sort.Float64s(column)

		lower[j] = stats.Quantile(column, pLo)
		upper[j] = stats.Quantile(column, pHi)
	}

	return &Band{
		X:          grid,
		Lower:      lower,
		Upper:      upper,
		Level:      cfg.Level,
		Replicates: len(curves),
		Seed:       seed,
	}
}
