// Command distgrid evaluates a scene script, builds a signed distance grid
// for every grid job in it and extracts the zero iso-surface.
//
//	distgrid [flags] scene.lisp
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"

	"github.com/chazu/distgrid/pkg/config"
)

var (
	configPath  = flag.String("config", "", "JSON config file (optional)")
	outDir      = flag.String("out", "", "Directory for STL, render buffer and plot output")
	resolution  = flag.Int("resolution", config.DefaultResolution, "Default vertices per grid axis")
	margin      = flag.Float64("margin", config.DefaultMargin, "Default grid margin as a fraction of the mesh diagonal")
	workers     = flag.Int("workers", 0, "Worker goroutines for seeding and sign (0 = GOMAXPROCS)")
	sweepPasses = flag.Int("sweep-passes", config.DefaultMaxSweepPasses, "Maximum eight-sweep propagation passes")
	smoothIters = flag.Int("smooth", 0, "Default Taubin smoothing iterations")
	upsample    = flag.Int("upsample", config.DefaultUpsample, "Default iso-surface upsampling factor")
	meshCells   = flag.Int("mesh-cells", config.DefaultMeshCells, "Marching cubes cells for tessellating solids")
	kernelName  = flag.String("kernel", config.DefaultKernel, "Geometry kernel: sdfx or manifold (needs -tags=manifold)")
	plots       = flag.Bool("plots", false, "Write slice heat maps and distance profiles (needs -out)")
	crossCheck  = flag.Bool("cross-check", false, "Re-mesh each grid with sdfx and report its volume")
	quadratic   = flag.Bool("quadratic", false, "Extract iso-surfaces from the quadratic interpolant")
	jsonOut     = flag.Bool("json", false, "Print the result as JSON instead of a table")
	quiet       = flag.Bool("quiet", false, "Suppress per-job log lines")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] scene.lisp\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	if *quiet {
		log.SetOutput(io.Discard)
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	source, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("failed to read scene: %v", err)
	}

	k, err := newKernel(cfg)
	if err != nil {
		log.Fatalf("kernel: %v", err)
	}

	result := NewApp(cfg, WithKernel(k)).Run(string(source))
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			log.Fatalf("failed to encode result: %v", err)
		}
	} else {
		printResult(os.Stdout, result)
	}
	if len(result.Errors) > 0 {
		os.Exit(1)
	}
}

// loadConfig layers the config file over the defaults, then flags that
// were set explicitly over both.
func loadConfig() (*config.Config, error) {
	cfg := config.Defaults()
	if *configPath != "" {
		file, err := config.Load(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = cfg.Merge(file)
	}

	override := config.Empty()
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "out":
			override.OutputDir = outDir
		case "resolution":
			override.Resolution = resolution
		case "margin":
			override.Margin = margin
		case "workers":
			override.Workers = workers
		case "sweep-passes":
			override.MaxSweepPasses = sweepPasses
		case "smooth":
			override.SmoothIterations = smoothIters
		case "upsample":
			override.Upsample = upsample
		case "mesh-cells":
			override.MeshCells = meshCells
		case "kernel":
			override.Kernel = kernelName
		case "plots":
			override.Plots = plots
		case "cross-check":
			override.CrossCheck = crossCheck
		case "quadratic":
			override.Quadratic = quadratic
		}
	})
	cfg = cfg.Merge(override)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// printResult writes a per-job table followed by warnings and errors.
func printResult(w io.Writer, r Result) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "JOB\tRES\tPASSES\tFACES\tVOLUME\tSOURCE\tERR%\tCLOSED")
	for _, j := range r.Jobs {
		if j.Error != "" {
			fmt.Fprintf(tw, "%s\t%v\t-\t-\t-\t%.4g\t-\tfailed\n", j.Name, j.Resolution, j.SourceVolume)
			continue
		}
		fmt.Fprintf(tw, "%s\t%dx%dx%d\t%d\t%d\t%.4g\t%.4g\t%.2f\t%v\n",
			j.Name, j.Resolution[0], j.Resolution[1], j.Resolution[2],
			j.Stats.SweepPasses, j.SurfaceFaces, j.SurfaceVolume, j.SourceVolume,
			100*j.VolumeError(), j.Closed)
	}
	tw.Flush()

	for _, wd := range r.Warnings {
		fmt.Fprintf(w, "warning: %s\n", location(wd))
	}
	for _, e := range r.Errors {
		fmt.Fprintf(w, "error: %s\n", location(e))
	}
}

func location(e ErrorData) string {
	switch {
	case e.Job != "":
		return fmt.Sprintf("job %q: %s", e.Job, e.Message)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}
