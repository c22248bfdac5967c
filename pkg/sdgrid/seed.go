package sdgrid

import (
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/chazu/distgrid/pkg/mesh"
)

// indexBox is an inclusive range of lattice vertices.
type indexBox struct {
	x0, x1, y0, y1, z0, z1 int
}

// slab is a half-open range [lo, hi) along one axis.
type slab struct {
	lo, hi int
}

// splitRange cuts [0, n) into at most parts contiguous slabs.
func splitRange(n, parts int) []slab {
	if parts > n {
		parts = n
	}
	if parts < 1 {
		parts = 1
	}
	out := make([]slab, 0, parts)
	for p := 0; p < parts; p++ {
		lo := p * n / parts
		hi := (p + 1) * n / parts
		if hi > lo {
			out = append(out, slab{lo, hi})
		}
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// paddedSpan returns the vertex indices covering [a, b] along one axis,
// grown by one cell on each side.
func paddedSpan(a, b, lo, h float64, n int) (int, int) {
	i0 := int(math.Floor((a-lo)/h)) - 1
	i1 := int(math.Ceil((b-lo)/h)) + 1
	return clampInt(i0, 0, n-1), clampInt(i1, 0, n-1)
}

// seed writes exact unsigned distances into every vertex near a face.
// Workers own disjoint z slabs and visit faces in index order, so a strict
// comparison leaves the lower face index in place on ties and the result
// does not depend on scheduling. It returns the number of seeded vertices.
func (g *Grid) seed(tris []mesh.Triangle, workers int) int {
	boxes := make([]indexBox, len(tris))
	for f, t := range tris {
		bb := t.Bounds()
		var b indexBox
		b.x0, b.x1 = paddedSpan(bb.Min.X, bb.Max.X, g.min.X, g.cell.X, g.res[0])
		b.y0, b.y1 = paddedSpan(bb.Min.Y, bb.Max.Y, g.min.Y, g.cell.Y, g.res[1])
		b.z0, b.z1 = paddedSpan(bb.Min.Z, bb.Max.Z, g.min.Z, g.cell.Z, g.res[2])
		boxes[f] = b
	}

	slabs := splitRange(g.res[2], workers)
	counts := make([]int, len(slabs))
	var eg errgroup.Group
	eg.SetLimit(workers)
	for s, sl := range slabs {
		eg.Go(func() error {
			for f, b := range boxes {
				if b.z1 < sl.lo || b.z0 >= sl.hi {
					continue
				}
				z0, z1 := max(b.z0, sl.lo), min(b.z1, sl.hi-1)
				for z := z0; z <= z1; z++ {
					for y := b.y0; y <= b.y1; y++ {
						for x := b.x0; x <= b.x1; x++ {
							idx := g.Index(x, y, z)
							d := tris[f].Distance(g.GridToWorld(x, y, z))
							if d < g.dist[idx] {
								if !g.seeded[idx] {
									g.seeded[idx] = true
									counts[s]++
								}
								g.dist[idx] = d
								g.face[idx] = int32(f)
							}
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
