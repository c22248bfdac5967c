// Package fieldplot renders debug images of distance grids: a heat map of
// one z slice and a distance profile along a grid line.
package fieldplot

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/chazu/distgrid/pkg/sdgrid"
)

// heatColors is the number of palette entries in slice heat maps.
const heatColors = 64

// sliceGrid exposes one z slice of a grid as a plotter.GridXYZ.
type sliceGrid struct {
	g *sdgrid.Grid
	z int
}

func (s sliceGrid) Dims() (c, r int) {
	res := s.g.Resolution()
	return res[0], res[1]
}

func (s sliceGrid) Z(c, r int) float64 { return s.g.VertexDistance(c, r, s.z) }
func (s sliceGrid) X(c int) float64    { return s.g.GridToWorld(c, 0, s.z).X }
func (s sliceGrid) Y(r int) float64    { return s.g.GridToWorld(0, r, s.z).Y }

var _ plotter.GridXYZ = sliceGrid{}

// MidSlice returns the index of the middle z slice.
func MidSlice(g *sdgrid.Grid) int {
	return g.Resolution()[2] / 2
}

// SliceHeatMap writes a heat map of slice z to path. The image format
// follows the file extension (.png, .svg, .pdf).
func SliceHeatMap(g *sdgrid.Grid, z int, title, path string) error {
	if z < 0 || z >= g.Resolution()[2] {
		return fmt.Errorf("fieldplot: slice %d outside [0, %d): %w", z, g.Resolution()[2], sdgrid.ErrOutOfBounds)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - distance at z=%.3g", title, g.GridToWorld(0, 0, z).Z)
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"
	p.Add(plotter.NewHeatMap(sliceGrid{g: g, z: z}, palette.Heat(heatColors, 1)))

	return save(p, 8*vg.Inch, 8*vg.Inch, path)
}

// ProfileX writes a line plot of the distances along the x line at grid
// row y, slice z.
func ProfileX(g *sdgrid.Grid, y, z int, title, path string) error {
	res := g.Resolution()
	if y < 0 || y >= res[1] || z < 0 || z >= res[2] {
		return fmt.Errorf("fieldplot: row (%d, %d) outside grid: %w", y, z, sdgrid.ErrOutOfBounds)
	}

	pts := make(plotter.XYs, res[0])
	for x := 0; x < res[0]; x++ {
		pts[x] = plotter.XY{X: g.GridToWorld(x, y, z).X, Y: g.VertexDistance(x, y, z)}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - distance profile", title)
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Distance"

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("fieldplot: profile line: %w", err)
	}
	line.Color = color.RGBA{R: 200, G: 40, B: 40, A: 255}
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add("distance", line)

	// zero crossing reference
	lo, hi := pts[0].X, pts[len(pts)-1].X
	zero, err := plotter.NewLine(plotter.XYs{{X: lo, Y: 0}, {X: hi, Y: 0}})
	if err != nil {
		return fmt.Errorf("fieldplot: zero line: %w", err)
	}
	zero.Color = color.Gray{Y: 128}
	zero.Width = vg.Points(0.5)
	p.Add(zero)

	p.Legend.Top = true
	p.Legend.Left = false

	return save(p, 10*vg.Inch, 5*vg.Inch, path)
}

// WriteDebugPlots writes the mid slice heat map and the centre x profile
// into dir, named after job. It returns the files written.
func WriteDebugPlots(g *sdgrid.Grid, job, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	res := g.Resolution()
	z := MidSlice(g)

	heat := filepath.Join(dir, job+"_slice.png")
	if err := SliceHeatMap(g, z, job, heat); err != nil {
		return nil, err
	}
	profile := filepath.Join(dir, job+"_profile.png")
	if err := ProfileX(g, res[1]/2, z, job, profile); err != nil {
		return []string{heat}, err
	}
	return []string{heat, profile}, nil
}

func save(p *plot.Plot, w, h vg.Length, path string) error {
	if err := p.Save(w, h, path); err != nil {
		return fmt.Errorf("fieldplot: save %s: %w", path, err)
	}
	return nil
}
