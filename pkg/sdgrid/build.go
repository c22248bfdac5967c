package sdgrid

import (
	"errors"
	"fmt"
	"math"
	"time"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/distgrid/pkg/mesh"
)

// Build samples the signed distance field of a closed, outward oriented
// triangle mesh on a lattice of res[0] x res[1] x res[2] vertices. The
// lattice covers the mesh bounds padded on every side by marginFraction
// times the bounds diagonal (or by WithAbsoluteMargin).
//
// Build returns no grid on error. The mesh is only read.
func Build(m *mesh.Mesh, marginFraction float64, res [3]int, opts ...Option) (*Grid, error) {
	start := time.Now()

	cfg := newBuildConfig(opts...)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	for axis, n := range res {
		if n < 2 {
			return nil, fmt.Errorf("sdgrid: resolution axis %d is %d, need at least 2: %w", axis, n, ErrInvalidArgument)
		}
	}
	if math.IsNaN(marginFraction) || math.IsInf(marginFraction, 0) || marginFraction < 0 {
		return nil, fmt.Errorf("sdgrid: margin fraction %g: %w", marginFraction, ErrInvalidArgument)
	}
	if err := checkMesh(m); err != nil {
		return nil, err
	}

	bb := m.Bounds()
	diag := bb.Max.Sub(bb.Min).Length()
	if diag == 0 || math.IsInf(diag, 0) {
		return nil, fmt.Errorf("sdgrid: bounding box diagonal %g: %w", diag, ErrInvalidMesh)
	}
	pad := marginFraction * diag
	if cfg.hasAbsMargin {
		pad = cfg.absMargin
	}
	lo := bb.Min.Sub(v3.Vec{X: pad, Y: pad, Z: pad})
	hi := bb.Max.Add(v3.Vec{X: pad, Y: pad, Z: pad})
	if lo.X == hi.X || lo.Y == hi.Y || lo.Z == hi.Z {
		return nil, fmt.Errorf("sdgrid: flat bounds with margin %g: %w", pad, ErrInvalidMesh)
	}

	g := newGrid(lo, hi, res)
	if cfg.pose != nil {
		g.toWorld, g.toLocal = *cfg.pose, cfg.pose.Inverse()
	}
	tris := make([]mesh.Triangle, m.NumFaces())
	for i := range tris {
		tris[i] = m.Triangle(i)
	}

	g.stats.Seeded = g.seed(tris, cfg.workers)
	g.propagate(tris, cfg)
	if !g.stats.Converged {
		Logf("sdgrid: propagation stopped after %d passes without converging", g.stats.SweepPasses)
	}
	g.stats.Crossings = g.classify(tris, cfg.workers)

	if err := g.checkField(); err != nil {
		return nil, err
	}
	g.stats.Duration = time.Since(start)
	return g, nil
}

func checkMesh(m *mesh.Mesh) error {
	if m == nil || m.IsEmpty() {
		return fmt.Errorf("sdgrid: mesh has no faces: %w", ErrInvalidMesh)
	}
	if err := m.Validate(); err != nil {
		return fmt.Errorf("sdgrid: %v: %w", err, ErrInvalidMesh)
	}
	if !m.IsTriangular() {
		return fmt.Errorf("sdgrid: mesh has non-triangular faces: %w", ErrInvalidMesh)
	}
	if m.NumFaces() > math.MaxInt32 {
		return fmt.Errorf("sdgrid: %d faces exceed face index range: %w", m.NumFaces(), ErrInvalidMesh)
	}
	return nil
}

// checkField verifies that every distance is finite and no larger in
// magnitude than the grid diagonal. Any exact point-to-face distance from
// a vertex inside the bounds to a face inside the bounds obeys the bound.
func (g *Grid) checkField() error {
	limit := g.max.Sub(g.min).Length() * (1 + 1e-9)
	var errs []error
	for i, d := range g.dist {
		if math.IsNaN(d) || math.IsInf(d, 0) {
			x, y, z := g.VertexIndices(i)
			errs = append(errs, fmt.Errorf("vertex (%d,%d,%d) distance %g", x, y, z, d))
		} else if math.Abs(d) > limit {
			x, y, z := g.VertexIndices(i)
			errs = append(errs, fmt.Errorf("vertex (%d,%d,%d) distance %g exceeds %g", x, y, z, d, limit))
		}
		if len(errs) == 4 {
			break
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("sdgrid: field check: %w: %w", errors.Join(errs...), ErrInternalInvariant)
	}
	return nil
}
