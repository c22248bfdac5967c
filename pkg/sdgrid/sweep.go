package sdgrid

import (
	"github.com/chazu/distgrid/pkg/mesh"
)

// sweepDirs lists the eight diagonal sweep directions of one pass.
var sweepDirs = [8][3]int{
	{+1, +1, +1}, {-1, -1, -1},
	{+1, +1, -1}, {-1, -1, +1},
	{+1, -1, +1}, {-1, +1, -1},
	{+1, -1, -1}, {-1, +1, +1},
}

// propagate spreads closest-face information from seeded vertices to the
// rest of the lattice. It stops after a pass in which no vertex improved by
// more than the tolerance, or when the pass budget runs out.
func (g *Grid) propagate(tris []mesh.Triangle, cfg buildConfig) {
	for pass := 0; pass < cfg.maxSweepPasses; pass++ {
		var best float64
		for _, d := range sweepDirs {
			n, improved := g.sweep(tris, d[0], d[1], d[2])
			g.stats.Propagated += n
			best = max(best, improved)
		}
		g.stats.SweepPasses++
		if best <= cfg.sweepTolerance {
			g.stats.Converged = true
			return
		}
	}
}

// sweepBounds returns the first index and the exclusive end for a sweep
// along an axis of n vertices. The first layer has no upstream neighbour.
func sweepBounds(dir, n int) (int, int) {
	if dir > 0 {
		return 1, n
	}
	return n - 2, -1
}

// sweep visits the lattice in one diagonal direction. Every vertex looks at
// the seven neighbours already visited in this direction and adopts a
// neighbour's face when that face is closer than its own. It returns the
// number of adoptions and the largest distance reduction.
func (g *Grid) sweep(tris []mesh.Triangle, dx, dy, dz int) (int, float64) {
	x0, x1 := sweepBounds(dx, g.res[0])
	y0, y1 := sweepBounds(dy, g.res[1])
	z0, z1 := sweepBounds(dz, g.res[2])

	upstream := [7][3]int{
		{-dx, 0, 0}, {0, -dy, 0}, {-dx, -dy, 0},
		{0, 0, -dz}, {-dx, 0, -dz}, {0, -dy, -dz}, {-dx, -dy, -dz},
	}

	updates := 0
	var improved float64
	for z := z0; z != z1; z += dz {
		for y := y0; y != y1; y += dy {
			for x := x0; x != x1; x += dx {
				idx := g.Index(x, y, z)
				p := g.GridToWorld(x, y, z)
				for _, o := range upstream {
					f := g.face[g.Index(x+o[0], y+o[1], z+o[2])]
					if f < 0 || f == g.face[idx] {
						continue
					}
					d := tris[f].Distance(p)
					if d < g.dist[idx] {
						improved = max(improved, g.dist[idx]-d)
						g.dist[idx] = d
						g.face[idx] = f
						updates++
					}
				}
			}
		}
	}
	return updates, improved
}
