package mastercurve

import (
	"github.com/cwbudde/algo-tts/bootstrap"
	"github.com/cwbudde/algo-tts/shift"
	"github.com/cwbudde/algo-tts/spline"
)

// Config bundles the per-stage configurations of the pipeline.
type Config struct {
	Shift     shift.Config
	Spline    spline.Config
	Bootstrap bootstrap.Config

	// SkipBootstrap finishes the pipeline after smoothing, without a
	// confidence band.
	SkipBootstrap bool
}

// Option mutates a Config.
type Option func(*Config)

// DefaultConfig returns the per-stage defaults: WLF shifts, GCV-selected
// smoothing, residual bootstrap.
func DefaultConfig() Config {
	return Config{
		Shift:  shift.DefaultConfig(),
		Spline: spline.DefaultConfig(),
	}
}

// WithMethod selects the shift-estimation method.
func WithMethod(m shift.Method) Option {
	return func(cfg *Config) {
		cfg.Shift.Method = m
	}
}

// WithReferenceTemperature sets the temperature whose curve stays fixed.
func WithReferenceTemperature(temp float64) Option {
	return func(cfg *Config) {
		cfg.Shift.ReferenceTemperature = temp
	}
}

// WithVerticalShift enables vertical shift factors where the method
// supports them.
func WithVerticalShift(enabled bool) Option {
	return func(cfg *Config) {
		cfg.Shift.VerticalShift = enabled
	}
}

// WithOverlapWindow restricts overlap scoring to a fixed-width window.
func WithOverlapWindow(width float64) Option {
	return func(cfg *Config) {
		if width >= 0 {
			cfg.Shift.OverlapWindow = width
		}
	}
}

// WithActivationEnergy seeds the arrhenius search, in J/mol.
func WithActivationEnergy(ea float64) Option {
	return func(cfg *Config) {
		cfg.Shift.ActivationEnergy = ea
	}
}

// WithWLFSeeds overrides the universal-constant WLF starting point.
func WithWLFSeeds(c1, c2 float64) Option {
	return func(cfg *Config) {
		cfg.Shift.C1 = c1
		cfg.Shift.C2 = c2
	}
}

// WithDerivativeBandwidth sets the derivative method's local smoothing
// bandwidth as a fraction of each group's x-span.
func WithDerivativeBandwidth(frac float64) Option {
	return func(cfg *Config) {
		if frac > 0 {
			cfg.Shift.DerivativeBandwidth = frac
		}
	}
}

// WithIterationBudget bounds every iterative loop in shift estimation.
func WithIterationBudget(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.Shift.MaxIterations = n
		}
	}
}

// WithSmoothing replaces the whole smoother configuration.
func WithSmoothing(sc spline.Config) Option {
	return func(cfg *Config) {
		cfg.Spline = sc
	}
}

// WithFixedLambda disables GCV selection and fixes the smoothing
// parameter.
func WithFixedLambda(lambda float64) Option {
	return func(cfg *Config) {
		cfg.Spline.Auto = false
		cfg.Spline.Lambda = lambda
	}
}

// WithReplicates sets the bootstrap replicate count.
func WithReplicates(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.Bootstrap.Replicates = n
		}
	}
}

// WithConfidenceLevel sets the two-sided band level in (0, 1).
func WithConfidenceLevel(level float64) Option {
	return func(cfg *Config) {
		cfg.Bootstrap.Level = level
	}
}

// WithSeed fixes the bootstrap random stream.
func WithSeed(seed uint64) Option {
	return func(cfg *Config) {
		cfg.Bootstrap.Seed = seed
	}
}

// WithBootstrapMode selects the resampling scheme.
func WithBootstrapMode(m bootstrap.Mode) Option {
	return func(cfg *Config) {
		cfg.Bootstrap.Mode = m
	}
}

// WithGridSize sets the band evaluation grid resolution.
func WithGridSize(n int) Option {
	return func(cfg *Config) {
		if n > 1 {
			cfg.Bootstrap.GridSize = n
		}
	}
}

// WithWorkers bounds concurrent bootstrap refits.
func WithWorkers(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.Bootstrap.Workers = n
		}
	}
}

// WithoutBootstrap finishes the pipeline after smoothing.
func WithoutBootstrap() Option {
	return func(cfg *Config) {
		cfg.SkipBootstrap = true
	}
}

// ApplyOptions applies zero or more options to the default config.
func ApplyOptions(opts ...Option) Config {
	cfg := DefaultConfig()

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return cfg
}
