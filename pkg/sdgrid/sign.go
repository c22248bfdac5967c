package sdgrid

import (
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/chazu/distgrid/pkg/mesh"
)

// Rays are cast upwards along z from every (x, y) lattice column, shifted
// by an irrational fraction of a cell so they rarely meet mesh edges or
// vertices exactly. Exact hits are settled by the edge ownership rule in
// covers.
const (
	rayJitterX = 1e-6 * (math.Sqrt2 - 1)
	rayJitterY = 1e-6 * (1.7320508075688772 - 1) // sqrt(3) - 1
)

// gridPoint is a position in fractional lattice coordinates.
type gridPoint struct {
	x, y, z float64
}

// projected is a face seen from below, in lattice coordinates, with its
// corners ordered counter clockwise in xy.
type projected struct {
	a, b, c gridPoint
	x0, x1  int
	y0, y1  int
	ok      bool
}

func (g *Grid) toGrid(t mesh.Triangle) (a, b, c gridPoint) {
	conv := func(x, y, z float64) gridPoint {
		return gridPoint{
			(x - g.min.X) / g.cell.X,
			(y - g.min.Y) / g.cell.Y,
			(z - g.min.Z) / g.cell.Z,
		}
	}
	return conv(t.A.X, t.A.Y, t.A.Z), conv(t.B.X, t.B.Y, t.B.Z), conv(t.C.X, t.C.Y, t.C.Z)
}

func (g *Grid) project(t mesh.Triangle) projected {
	a, b, c := g.toGrid(t)
	area2 := (b.x-a.x)*(c.y-a.y) - (b.y-a.y)*(c.x-a.x)
	if area2 == 0 {
		// vertical face; neighbouring faces account for the crossing
		return projected{}
	}
	if area2 < 0 {
		b, c = c, b
	}
	p := projected{a: a, b: b, c: c, ok: true}
	minX, maxX := math.Min(a.x, math.Min(b.x, c.x)), math.Max(a.x, math.Max(b.x, c.x))
	minY, maxY := math.Min(a.y, math.Min(b.y, c.y)), math.Max(a.y, math.Max(b.y, c.y))
	p.x0 = clampInt(int(math.Ceil(minX-rayJitterX)), 0, g.res[0]-1)
	p.x1 = clampInt(int(math.Floor(maxX-rayJitterX)), 0, g.res[0]-1)
	p.y0 = clampInt(int(math.Ceil(minY-rayJitterY)), 0, g.res[1]-1)
	p.y1 = clampInt(int(math.Floor(maxY-rayJitterY)), 0, g.res[1]-1)
	if p.x0 > p.x1 || p.y0 > p.y1 {
		p.ok = false
	}
	return p
}

// edgeFn is twice the signed area of (u, v, p) in xy; positive when p lies
// left of u->v.
func edgeFn(u, v gridPoint, px, py float64) float64 {
	return (v.x-u.x)*(py-u.y) - (v.y-u.y)*(px-u.x)
}

// covers applies a half-open rule to points exactly on an edge. A shared
// edge is walked in opposite directions by the two faces using it, so
// exactly one of them owns it.
func covers(w float64, u, v gridPoint) bool {
	if w > 0 {
		return true
	}
	if w < 0 {
		return false
	}
	dy := v.y - u.y
	return dy < 0 || (dy == 0 && v.x-u.x < 0)
}

// crossing returns the lattice z at which the vertical line through
// (px, py) meets the face, if it does.
func (p *projected) crossing(px, py float64) (float64, bool) {
	wa := edgeFn(p.b, p.c, px, py)
	wb := edgeFn(p.c, p.a, px, py)
	wc := edgeFn(p.a, p.b, px, py)
	if !covers(wa, p.b, p.c) || !covers(wb, p.c, p.a) || !covers(wc, p.a, p.b) {
		return 0, false
	}
	sum := wa + wb + wc
	return (wa*p.a.z + wb*p.b.z + wc*p.c.z) / sum, true
}

// classify negates the distance of every vertex lying above an odd number
// of face crossings along its column. Workers own disjoint y slabs of
// columns. It returns the number of crossings found.
func (g *Grid) classify(tris []mesh.Triangle, workers int) int {
	nx, nz := g.res[0], g.res[2]
	projs := make([]projected, len(tris))
	for f, t := range tris {
		projs[f] = g.project(t)
	}

	parity := make([]uint8, len(g.dist))
	slabs := splitRange(g.res[1], workers)
	counts := make([]int, len(slabs))
	var eg errgroup.Group
	eg.SetLimit(workers)
	for s, sl := range slabs {
		eg.Go(func() error {
			for f := range projs {
				p := &projs[f]
				if !p.ok || p.y1 < sl.lo || p.y0 >= sl.hi {
					continue
				}
				for y := max(p.y0, sl.lo); y <= min(p.y1, sl.hi-1); y++ {
					ry := float64(y) + rayJitterY
					for x := p.x0; x <= p.x1; x++ {
						gz, hit := p.crossing(float64(x)+rayJitterX, ry)
						if !hit {
							continue
						}
						k := int(math.Ceil(gz))
						if k > nz-1 {
							continue
						}
						if k < 0 {
							k = 0
						}
						parity[g.Index(x, y, k)] ^= 1
						counts[s]++
					}
				}
			}

			for y := sl.lo; y < sl.hi; y++ {
				for x := 0; x < nx; x++ {
					var inside uint8
					for z := 0; z < nz; z++ {
						idx := g.Index(x, y, z)
						inside ^= parity[idx]
						if inside == 1 {
							g.dist[idx] = -g.dist[idx]
						}
					}
				}
			}
			return nil
		})
	}
	_ = eg.Wait()

	total := 0
	for _, c := range counts {
		total += c
	}
	return total
}
