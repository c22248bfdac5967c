package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/distgrid/pkg/config"
	"github.com/chazu/distgrid/pkg/engine"
	"github.com/chazu/distgrid/pkg/fieldplot"
	"github.com/chazu/distgrid/pkg/kernel"
	"github.com/chazu/distgrid/pkg/kernel/manifold"
	"github.com/chazu/distgrid/pkg/kernel/sdfx"
	"github.com/chazu/distgrid/pkg/mesh"
	"github.com/chazu/distgrid/pkg/sdgrid"
	"github.com/chazu/distgrid/pkg/tessellate"
)

// App runs scene scripts through the grid pipeline.
type App struct {
	cfg    *config.Config
	engine *engine.Engine
	kernel kernel.Kernel    // tessellates job solids
	sdfx   *sdfx.SdfxKernel // re-meshes grids for the cross check
}

// AppOption configures an App.
type AppOption func(*App)

// WithKernel tessellates job solids with k instead of sdfx.
func WithKernel(k kernel.Kernel) AppOption {
	return func(a *App) {
		if k != nil {
			a.kernel = k
		}
	}
}

// ErrorData is a JSON-serializable evaluation or job error.
type ErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Job     string `json:"job,omitempty"`
	Message string `json:"message"`
}

// JobReport is the outcome of one grid job.
type JobReport struct {
	Name       string              `json:"name"`
	Resolution [3]int              `json:"resolution"`
	Stats      sdgrid.BuildStats   `json:"stats"`
	Field      sdgrid.FieldSummary `json:"field"`

	SourceFaces   int     `json:"source_faces"`
	SourceVolume  float64 `json:"source_volume"`
	SurfaceFaces  int     `json:"surface_faces"`
	SurfaceVolume float64 `json:"surface_volume"`
	BoundaryEdges int     `json:"boundary_edges"`
	Closed        bool    `json:"closed"`

	// sdfx marching cubes volume of the grid, when cross checking
	CrossCheckVolume float64 `json:"cross_check_volume,omitempty"`

	Files []string `json:"files,omitempty"`
	Error string   `json:"error,omitempty"`

	Grid    *sdgrid.Grid `json:"-"`
	Surface *mesh.Mesh   `json:"-"`
}

// Result is the full result of one Run.
type Result struct {
	Jobs     []JobReport `json:"jobs"`
	Errors   []ErrorData `json:"errors"`
	Warnings []ErrorData `json:"warnings"`
}

// NewApp creates an App from a configuration. A nil config uses the
// defaults.
func NewApp(cfg *config.Config, opts ...AppOption) *App {
	if cfg == nil {
		cfg = config.Defaults()
	}
	sk := sdfx.New(sdfx.WithMeshCells(cfg.GetMeshCells()))
	a := &App{
		cfg: cfg,
		engine: engine.NewEngine(
			engine.WithJobDefaults(cfg.JobDefaults()),
			engine.WithTimeout(cfg.GetEvalTimeout()),
		),
		kernel: sk,
		sdfx:   sk,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// newKernel returns the geometry kernel named by the config.
func newKernel(cfg *config.Config) (kernel.Kernel, error) {
	switch name := cfg.GetKernel(); name {
	case config.KernelSdfx:
		return sdfx.New(sdfx.WithMeshCells(cfg.GetMeshCells())), nil
	case config.KernelManifold:
		return manifold.New()
	default:
		return nil, fmt.Errorf("unknown kernel %q", name)
	}
}

// Run evaluates a script and processes every grid job it defines. A job
// that fails is reported and does not stop the others.
func (a *App) Run(source string) Result {
	result := Result{
		Jobs:     []JobReport{},
		Errors:   []ErrorData{},
		Warnings: []ErrorData{},
	}

	// Step 1: Evaluate the script into a scene.
	ev := a.engine.EvaluateAll(source)
	for _, w := range ev.Warnings {
		result.Warnings = append(result.Warnings, ErrorData{Line: w.Line, Col: w.Col, Message: w.Message})
	}
	if len(ev.Errors) > 0 {
		for _, e := range ev.Errors {
			result.Errors = append(result.Errors, ErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		return result
	}

	// Step 2: Tessellate each job's solid.
	meshes, err := tessellate.Tessellate(ev.Scene, a.kernel)
	if err != nil {
		log.Printf("Tessellate error: %v", err)
		result.Errors = append(result.Errors, ErrorData{Message: "tessellation failed: " + err.Error()})
		return result
	}

	// Step 3: Build, smooth and extract per job.
	for _, jm := range meshes {
		report := a.runJob(jm)
		if report.Error != "" {
			result.Errors = append(result.Errors, ErrorData{Job: report.Name, Message: report.Error})
		}
		result.Jobs = append(result.Jobs, report)
	}
	return result
}

func (a *App) runJob(jm *tessellate.JobMesh) JobReport {
	p := jm.Job.Params
	report := JobReport{
		Name:         jm.Job.Name,
		Resolution:   p.Resolution,
		SourceFaces:  jm.Mesh.NumFaces(),
		SourceVolume: jm.Mesh.Volume(),
	}
	fail := func(stage string, err error) JobReport {
		log.Printf("job %q: %s failed: %v", report.Name, stage, err)
		report.Error = fmt.Sprintf("%s failed: %v", stage, err)
		return report
	}

	opts := a.cfg.BuildOptions()
	if p.AbsoluteMargin > 0 {
		opts = append(opts, sdgrid.WithAbsoluteMargin(p.AbsoluteMargin))
	}
	g, err := sdgrid.Build(jm.Mesh, p.Margin, p.Resolution, opts...)
	if err != nil {
		return fail("build", err)
	}
	if p.SmoothIterations > 0 {
		if err := g.Smooth(p.SmoothLambda, p.SmoothMu, p.SmoothIterations); err != nil {
			return fail("smooth", err)
		}
	}
	report.Grid = g
	report.Stats = g.Stats()
	report.Field = g.Summary()

	extract := g.ExtractIsoSurface
	if a.cfg.GetQuadratic() {
		extract = g.ExtractQuadIsoSurface
	}
	surf, err := extract(p.Level, p.Upsample)
	if err != nil {
		return fail("iso-surface", err)
	}
	report.Surface = surf
	report.SurfaceFaces = surf.NumFaces()
	report.SurfaceVolume = surf.Volume()
	report.BoundaryEdges = surf.BoundaryEdges()
	report.Closed = surf.IsClosed()

	if a.cfg.GetCrossCheck() {
		cm, err := a.sdfx.ToMesh(a.sdfx.FromSDF(g))
		if err != nil {
			return fail("cross-check", err)
		}
		report.CrossCheckVolume = cm.Volume()
	}

	if dir := a.cfg.GetOutputDir(); dir != "" {
		files, err := a.writeOutputs(report.Name, g, surf, dir)
		report.Files = files
		if err != nil {
			return fail("output", err)
		}
	}

	log.Printf("job %q: %d faces -> grid %v (%d passes, converged=%v, %s) -> %d faces, volume %.4g (source %.4g), closed=%v",
		report.Name, report.SourceFaces, p.Resolution, report.Stats.SweepPasses, report.Stats.Converged,
		report.Stats.Duration, report.SurfaceFaces, report.SurfaceVolume, report.SourceVolume, report.Closed)
	return report
}

// writeOutputs saves the surface as STL and render buffers, plus debug
// plots when enabled.
func (a *App) writeOutputs(job string, g *sdgrid.Grid, surf *mesh.Mesh, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	base := filepath.Join(dir, fileStem(job))

	var files []string
	stl := base + ".stl"
	if err := surf.SaveSTL(stl); err != nil {
		return files, err
	}
	files = append(files, stl)

	data, err := json.Marshal(surf.Buffers(job))
	if err != nil {
		return files, fmt.Errorf("failed to encode render buffers: %w", err)
	}
	buffers := base + ".json"
	if err := os.WriteFile(buffers, data, 0644); err != nil {
		return files, fmt.Errorf("failed to write render buffers: %w", err)
	}
	files = append(files, buffers)

	if a.cfg.GetPlots() {
		plots, err := fieldplot.WriteDebugPlots(g, fileStem(job), dir)
		files = append(files, plots...)
		if err != nil {
			return files, err
		}
	}
	return files, nil
}

// fileStem maps a job name to a safe file name.
func fileStem(name string) string {
	stem := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
	if stem == "" {
		return "job"
	}
	return stem
}

// VolumeError is the relative difference between the surface and the
// source volumes.
func (r JobReport) VolumeError() float64 {
	if r.SourceVolume == 0 {
		return math.Inf(1)
	}
	return math.Abs(r.SurfaceVolume-r.SourceVolume) / math.Abs(r.SourceVolume)
}
