// Package config loads the JSON configuration for the distgrid CLI.
// Every field is optional; the Get methods resolve unset fields to the
// documented defaults so partial files are safe.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/chazu/distgrid/pkg/scene"
	"github.com/chazu/distgrid/pkg/sdgrid"
)

// Defaults used when a field is unset.
const (
	DefaultResolution       = 32
	DefaultMargin           = 0.1
	DefaultMaxSweepPasses   = 4
	DefaultSmoothLambda     = 0.5
	DefaultSmoothMu         = -0.53
	DefaultUpsample         = 1
	DefaultMeshCells        = 96
	DefaultEvalTimeout      = "5s"
	DefaultKernel           = KernelSdfx
	maxConfigFileSize       = 1 * 1024 * 1024 // 1MB
	defaultSmoothIterations = 0
)

// Geometry kernels accepted by the kernel field.
const (
	KernelSdfx     = "sdfx"
	KernelManifold = "manifold"
)

// Config is the root configuration. The schema is flat so a file can set
// any subset of keys.
type Config struct {
	// Grid construction
	Resolution     *int     `json:"resolution,omitempty"`
	Margin         *float64 `json:"margin,omitempty"`
	AbsoluteMargin *float64 `json:"absolute_margin,omitempty"` // 0 = use margin
	Workers        *int     `json:"workers,omitempty"`         // 0 = GOMAXPROCS
	MaxSweepPasses *int     `json:"max_sweep_passes,omitempty"`
	SweepTolerance *float64 `json:"sweep_tolerance,omitempty"`

	// Post-processing
	SmoothLambda     *float64 `json:"smooth_lambda,omitempty"`
	SmoothMu         *float64 `json:"smooth_mu,omitempty"`
	SmoothIterations *int     `json:"smooth_iterations,omitempty"`
	IsoLevel         *float64 `json:"iso_level,omitempty"`
	Upsample         *int     `json:"upsample,omitempty"`
	Quadratic        *bool    `json:"quadratic,omitempty"` // extract from the quadratic interpolant

	// Pipeline
	Kernel      *string `json:"kernel,omitempty"`       // "sdfx" or "manifold"
	MeshCells   *int    `json:"mesh_cells,omitempty"`   // sdfx marching cubes cells
	EvalTimeout *string `json:"eval_timeout,omitempty"` // duration string like "5s"
	OutputDir   *string `json:"output_dir,omitempty"`   // "" = no files written
	Plots       *bool   `json:"plots,omitempty"`
	CrossCheck  *bool   `json:"cross_check,omitempty"` // re-mesh grids through sdfx
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// Empty returns a Config with all fields unset.
func Empty() *Config {
	return &Config{}
}

// Defaults returns a Config with every field set to its default.
func Defaults() *Config {
	return &Config{
		Resolution:       ptrInt(DefaultResolution),
		Margin:           ptrFloat64(DefaultMargin),
		AbsoluteMargin:   ptrFloat64(0),
		Workers:          ptrInt(0),
		MaxSweepPasses:   ptrInt(DefaultMaxSweepPasses),
		SweepTolerance:   ptrFloat64(0),
		SmoothLambda:     ptrFloat64(DefaultSmoothLambda),
		SmoothMu:         ptrFloat64(DefaultSmoothMu),
		SmoothIterations: ptrInt(defaultSmoothIterations),
		IsoLevel:         ptrFloat64(0),
		Upsample:         ptrInt(DefaultUpsample),
		Kernel:           ptrString(DefaultKernel),
		MeshCells:        ptrInt(DefaultMeshCells),
		EvalTimeout:      ptrString(DefaultEvalTimeout),
		OutputDir:        ptrString(""),
		Plots:            ptrBool(false),
		CrossCheck:       ptrBool(false),
		Quadratic:        ptrBool(false),
	}
}

// Load reads a Config from a JSON file. The file must have a .json
// extension and be at most 1MB. Omitted fields stay unset.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Merge returns a copy of c with every field set in other taking
// precedence. Neither input is modified.
func (c *Config) Merge(other *Config) *Config {
	out := *c
	if other == nil {
		return &out
	}
	mergeInt(&out.Resolution, other.Resolution)
	mergeFloat(&out.Margin, other.Margin)
	mergeFloat(&out.AbsoluteMargin, other.AbsoluteMargin)
	mergeInt(&out.Workers, other.Workers)
	mergeInt(&out.MaxSweepPasses, other.MaxSweepPasses)
	mergeFloat(&out.SweepTolerance, other.SweepTolerance)
	mergeFloat(&out.SmoothLambda, other.SmoothLambda)
	mergeFloat(&out.SmoothMu, other.SmoothMu)
	mergeInt(&out.SmoothIterations, other.SmoothIterations)
	mergeFloat(&out.IsoLevel, other.IsoLevel)
	mergeInt(&out.Upsample, other.Upsample)
	mergeInt(&out.MeshCells, other.MeshCells)
	if other.Kernel != nil {
		out.Kernel = ptrString(*other.Kernel)
	}
	if other.EvalTimeout != nil {
		out.EvalTimeout = ptrString(*other.EvalTimeout)
	}
	if other.OutputDir != nil {
		out.OutputDir = ptrString(*other.OutputDir)
	}
	if other.Plots != nil {
		out.Plots = ptrBool(*other.Plots)
	}
	if other.CrossCheck != nil {
		out.CrossCheck = ptrBool(*other.CrossCheck)
	}
	if other.Quadratic != nil {
		out.Quadratic = ptrBool(*other.Quadratic)
	}
	return &out
}

func mergeInt(dst **int, src *int) {
	if src != nil {
		*dst = ptrInt(*src)
	}
}

func mergeFloat(dst **float64, src *float64) {
	if src != nil {
		*dst = ptrFloat64(*src)
	}
}

// Validate checks the fields that are set.
func (c *Config) Validate() error {
	if c.Resolution != nil && *c.Resolution < 2 {
		return fmt.Errorf("resolution must be at least 2, got %d", *c.Resolution)
	}
	for _, f := range []struct {
		name string
		v    *float64
	}{
		{"margin", c.Margin},
		{"absolute_margin", c.AbsoluteMargin},
		{"sweep_tolerance", c.SweepTolerance},
	} {
		if f.v != nil && (math.IsNaN(*f.v) || math.IsInf(*f.v, 0) || *f.v < 0) {
			return fmt.Errorf("%s must be finite and non-negative, got %f", f.name, *f.v)
		}
	}
	for _, f := range []struct {
		name string
		v    *float64
	}{
		{"smooth_lambda", c.SmoothLambda},
		{"smooth_mu", c.SmoothMu},
		{"iso_level", c.IsoLevel},
	} {
		if f.v != nil && (math.IsNaN(*f.v) || math.IsInf(*f.v, 0)) {
			return fmt.Errorf("%s must be finite, got %f", f.name, *f.v)
		}
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.MaxSweepPasses != nil && *c.MaxSweepPasses < 1 {
		return fmt.Errorf("max_sweep_passes must be at least 1, got %d", *c.MaxSweepPasses)
	}
	if c.SmoothIterations != nil && *c.SmoothIterations < 0 {
		return fmt.Errorf("smooth_iterations must be non-negative, got %d", *c.SmoothIterations)
	}
	if c.Upsample != nil && *c.Upsample < 1 {
		return fmt.Errorf("upsample must be at least 1, got %d", *c.Upsample)
	}
	if c.Kernel != nil && *c.Kernel != KernelSdfx && *c.Kernel != KernelManifold {
		return fmt.Errorf("kernel must be %q or %q, got %q", KernelSdfx, KernelManifold, *c.Kernel)
	}
	if c.MeshCells != nil && *c.MeshCells < 1 {
		return fmt.Errorf("mesh_cells must be at least 1, got %d", *c.MeshCells)
	}
	if c.EvalTimeout != nil && *c.EvalTimeout != "" {
		d, err := time.ParseDuration(*c.EvalTimeout)
		if err != nil {
			return fmt.Errorf("invalid eval_timeout '%s': %w", *c.EvalTimeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("eval_timeout must be positive, got %s", d)
		}
	}
	return nil
}

// GetResolution returns the resolution value or the default.
func (c *Config) GetResolution() int {
	if c.Resolution == nil {
		return DefaultResolution
	}
	return *c.Resolution
}

// GetMargin returns the margin fraction or the default.
func (c *Config) GetMargin() float64 {
	if c.Margin == nil {
		return DefaultMargin
	}
	return *c.Margin
}

// GetAbsoluteMargin returns the absolute margin, 0 when unset.
func (c *Config) GetAbsoluteMargin() float64 {
	if c.AbsoluteMargin == nil {
		return 0
	}
	return *c.AbsoluteMargin
}

// GetWorkers returns the worker count, resolving 0 to GOMAXPROCS.
func (c *Config) GetWorkers() int {
	if c.Workers == nil || *c.Workers == 0 {
		return runtime.GOMAXPROCS(0)
	}
	return *c.Workers
}

// GetMaxSweepPasses returns the max_sweep_passes value or the default.
func (c *Config) GetMaxSweepPasses() int {
	if c.MaxSweepPasses == nil {
		return DefaultMaxSweepPasses
	}
	return *c.MaxSweepPasses
}

// GetSweepTolerance returns the sweep_tolerance value or 0.
func (c *Config) GetSweepTolerance() float64 {
	if c.SweepTolerance == nil {
		return 0
	}
	return *c.SweepTolerance
}

// GetSmoothLambda returns the smooth_lambda value or the default.
func (c *Config) GetSmoothLambda() float64 {
	if c.SmoothLambda == nil {
		return DefaultSmoothLambda
	}
	return *c.SmoothLambda
}

// GetSmoothMu returns the smooth_mu value or the default.
func (c *Config) GetSmoothMu() float64 {
	if c.SmoothMu == nil {
		return DefaultSmoothMu
	}
	return *c.SmoothMu
}

// GetSmoothIterations returns the smooth_iterations value, 0 when unset.
func (c *Config) GetSmoothIterations() int {
	if c.SmoothIterations == nil {
		return defaultSmoothIterations
	}
	return *c.SmoothIterations
}

// GetIsoLevel returns the iso_level value, 0 when unset.
func (c *Config) GetIsoLevel() float64 {
	if c.IsoLevel == nil {
		return 0
	}
	return *c.IsoLevel
}

// GetUpsample returns the upsample value or the default.
func (c *Config) GetUpsample() int {
	if c.Upsample == nil {
		return DefaultUpsample
	}
	return *c.Upsample
}

// GetKernel returns the geometry kernel name or the default.
func (c *Config) GetKernel() string {
	if c.Kernel == nil || *c.Kernel == "" {
		return DefaultKernel
	}
	return *c.Kernel
}

// GetMeshCells returns the mesh_cells value or the default.
func (c *Config) GetMeshCells() int {
	if c.MeshCells == nil {
		return DefaultMeshCells
	}
	return *c.MeshCells
}

// GetEvalTimeout parses and returns the EvalTimeout as a time.Duration.
func (c *Config) GetEvalTimeout() time.Duration {
	def, _ := time.ParseDuration(DefaultEvalTimeout)
	if c.EvalTimeout == nil || *c.EvalTimeout == "" {
		return def
	}
	d, err := time.ParseDuration(*c.EvalTimeout)
	if err != nil || d <= 0 {
		return def // default on parse error
	}
	return d
}

// GetOutputDir returns the output directory, "" when unset.
func (c *Config) GetOutputDir() string {
	if c.OutputDir == nil {
		return ""
	}
	return *c.OutputDir
}

// GetPlots reports whether debug plots are written.
func (c *Config) GetPlots() bool {
	return c.Plots != nil && *c.Plots
}

// GetCrossCheck reports whether grids are re-meshed through sdfx.
func (c *Config) GetCrossCheck() bool {
	return c.CrossCheck != nil && *c.CrossCheck
}

// GetQuadratic reports whether iso-surfaces come from the quadratic
// interpolant.
func (c *Config) GetQuadratic() bool {
	return c.Quadratic != nil && *c.Quadratic
}

// JobDefaults returns the grid job parameters scripts start from.
func (c *Config) JobDefaults() scene.JobParams {
	n := c.GetResolution()
	return scene.JobParams{
		Resolution:       [3]int{n, n, n},
		Margin:           c.GetMargin(),
		AbsoluteMargin:   c.GetAbsoluteMargin(),
		Level:            c.GetIsoLevel(),
		Upsample:         c.GetUpsample(),
		SmoothLambda:     c.GetSmoothLambda(),
		SmoothMu:         c.GetSmoothMu(),
		SmoothIterations: c.GetSmoothIterations(),
	}
}

// BuildOptions returns the sdgrid options shared by every job.
func (c *Config) BuildOptions() []sdgrid.Option {
	return []sdgrid.Option{
		sdgrid.WithWorkers(c.GetWorkers()),
		sdgrid.WithMaxSweepPasses(c.GetMaxSweepPasses()),
		sdgrid.WithSweepTolerance(c.GetSweepTolerance()),
	}
}
