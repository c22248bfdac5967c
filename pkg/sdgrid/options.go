package sdgrid

import (
	"fmt"
	"math"
	"runtime"

	"github.com/deadsy/sdfx/sdf"
)

// Option customizes Build.
type Option func(*buildConfig)

// buildConfig aggregates the Build knobs. Later options override earlier
// ones; validation happens once in Build so a bad option surfaces as
// ErrInvalidArgument instead of a panic.
type buildConfig struct {
	workers        int
	maxSweepPasses int
	sweepTolerance float64
	absMargin      float64 // used when hasAbsMargin
	hasAbsMargin   bool
	pose           *sdf.M44 // local-to-world, identity when nil
}

const (
	defaultMaxSweepPasses = 4 // sweep passes before giving up on convergence
	defaultSweepTolerance = 0 // any improvement triggers another pass
)

func newBuildConfig(opts ...Option) buildConfig {
	c := buildConfig{
		workers:        runtime.GOMAXPROCS(0),
		maxSweepPasses: defaultMaxSweepPasses,
		sweepTolerance: defaultSweepTolerance,
	}
	for _, o := range opts {
		if o != nil {
			o(&c)
		}
	}
	return c
}

func (c buildConfig) validate() error {
	if c.workers < 1 {
		return fmt.Errorf("sdgrid: workers %d: %w", c.workers, ErrInvalidArgument)
	}
	if c.maxSweepPasses < 1 {
		return fmt.Errorf("sdgrid: max sweep passes %d: %w", c.maxSweepPasses, ErrInvalidArgument)
	}
	if math.IsNaN(c.sweepTolerance) || c.sweepTolerance < 0 {
		return fmt.Errorf("sdgrid: sweep tolerance %g: %w", c.sweepTolerance, ErrInvalidArgument)
	}
	if c.hasAbsMargin && (math.IsNaN(c.absMargin) || math.IsInf(c.absMargin, 0) || c.absMargin < 0) {
		return fmt.Errorf("sdgrid: absolute margin %g: %w", c.absMargin, ErrInvalidArgument)
	}
	if c.pose != nil {
		return checkRigid(*c.pose)
	}
	return nil
}

// WithWorkers bounds the goroutines used for seeding and sign
// classification. Defaults to GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(c *buildConfig) {
		c.workers = n
	}
}

// WithMaxSweepPasses sets how many eight-sweep passes propagation may run.
func WithMaxSweepPasses(n int) Option {
	return func(c *buildConfig) {
		c.maxSweepPasses = n
	}
}

// WithSweepTolerance stops propagation once no vertex improved by more
// than tol during a pass.
func WithSweepTolerance(tol float64) Option {
	return func(c *buildConfig) {
		c.sweepTolerance = tol
	}
}

// WithAbsoluteMargin pads the mesh bounds by d on every side, replacing the
// margin fraction passed to Build.
func WithAbsoluteMargin(d float64) Option {
	return func(c *buildConfig) {
		c.absMargin = d
		c.hasAbsMargin = true
	}
}

// WithLocalToWorld gives the built grid a rigid pose. The mesh is read in
// local coordinates; see Grid.SetLocalToWorld.
func WithLocalToWorld(m sdf.M44) Option {
	return func(c *buildConfig) {
		c.pose = &m
	}
}
