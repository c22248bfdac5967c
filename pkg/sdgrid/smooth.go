package sdgrid

import (
	"fmt"
	"math"
)

// Smooth applies Taubin smoothing to the distances: each iteration runs a
// Laplacian stage with factor lambda, then one with factor mu (typically
// negative and slightly larger in magnitude). A stage moves every interior
// vertex towards the mean of its six face neighbours; boundary vertices
// keep their value. Closest-face data is marked stale afterwards.
func (g *Grid) Smooth(lambda, mu float64, iterations int) error {
	if iterations < 0 {
		return fmt.Errorf("sdgrid: smooth iterations %d: %w", iterations, ErrInvalidArgument)
	}
	if !isFinite(lambda) || !isFinite(mu) {
		return fmt.Errorf("sdgrid: smooth factors %g, %g: %w", lambda, mu, ErrInvalidArgument)
	}
	if iterations == 0 {
		return nil
	}

	snap := make([]float64, len(g.dist))
	for it := 0; it < iterations; it++ {
		g.laplacianStage(lambda, snap)
		g.laplacianStage(mu, snap)
	}
	g.stale = true
	return nil
}

func (g *Grid) laplacianStage(f float64, snap []float64) {
	if f == 0 {
		return
	}
	copy(snap, g.dist)
	nx, ny, nz := g.res[0], g.res[1], g.res[2]
	sx, sy, sz := 1, nx, nx*ny
	for z := 1; z < nz-1; z++ {
		for y := 1; y < ny-1; y++ {
			for x := 1; x < nx-1; x++ {
				i := g.Index(x, y, z)
				mean := (snap[i-sx] + snap[i+sx] + snap[i-sy] + snap[i+sy] + snap[i-sz] + snap[i+sz]) / 6
				g.dist[i] = snap[i] + f*(mean-snap[i])
			}
		}
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
