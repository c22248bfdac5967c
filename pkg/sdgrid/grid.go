package sdgrid

import (
	"math"
	"time"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/floats"
)

// Grid is a signed distance field sampled on a uniform lattice. Distances
// are negative inside the source mesh and positive outside. Each vertex
// also remembers the index of the mesh face that produced its distance.
//
// A Grid may be read from several goroutines, but not while Smooth runs.
type Grid struct {
	min, max v3.Vec
	res      [3]int
	cell     v3.Vec

	// flat buffers indexed by x + nx*(y + ny*z)
	dist   []float64
	face   []int32
	seeded []bool

	// rigid pose; the lattice itself stays axis aligned in local space
	toWorld, toLocal sdf.M44

	stale bool
	stats BuildStats
}

// BuildStats describes the work done by one Build call.
type BuildStats struct {
	Seeded      int           // vertices given an exact distance while seeding
	SweepPasses int           // completed eight-sweep passes
	Propagated  int           // closest-face adoptions during sweeping
	Converged   bool          // last pass improved nothing beyond the tolerance
	Crossings   int           // ray/face crossings counted for the sign
	Duration    time.Duration // wall time of the build
}

// FieldSummary is a coarse statistical view of the distances.
type FieldSummary struct {
	Min, Max, Mean float64
	Inside         int // vertices with negative distance
}

func newGrid(lo, hi v3.Vec, res [3]int) *Grid {
	n := res[0] * res[1] * res[2]
	g := &Grid{
		min:     lo,
		max:     hi,
		res:     res,
		dist:    make([]float64, n),
		face:    make([]int32, n),
		seeded:  make([]bool, n),
		toWorld: sdf.Identity3d(),
		toLocal: sdf.Identity3d(),
	}
	g.cell = v3.Vec{
		X: (hi.X - lo.X) / float64(res[0]-1),
		Y: (hi.Y - lo.Y) / float64(res[1]-1),
		Z: (hi.Z - lo.Z) / float64(res[2]-1),
	}
	for i := range g.dist {
		g.dist[i] = math.Inf(1)
		g.face[i] = -1
	}
	return g
}

// Resolution returns the number of vertices along each axis.
func (g *Grid) Resolution() [3]int {
	return g.res
}

// CellSize returns the lattice spacing along each axis.
func (g *Grid) CellSize() v3.Vec {
	return g.cell
}

// Bounds returns the world-space box covered by the lattice.
func (g *Grid) Bounds() sdf.Box3 {
	return sdf.Box3{Min: g.min, Max: g.max}
}

// NumVertices returns nx*ny*nz.
func (g *Grid) NumVertices() int {
	return len(g.dist)
}

// Index returns the flat index of vertex (x, y, z).
func (g *Grid) Index(x, y, z int) int {
	return x + g.res[0]*(y+g.res[1]*z)
}

// VertexIndices inverts Index.
func (g *Grid) VertexIndices(idx int) (x, y, z int) {
	nx, ny := g.res[0], g.res[1]
	x = idx % nx
	y = (idx / nx) % ny
	z = idx / (nx * ny)
	return x, y, z
}

// VertexDistance returns the stored distance at vertex (x, y, z).
func (g *Grid) VertexDistance(x, y, z int) float64 {
	return g.dist[g.Index(x, y, z)]
}

// Distances returns a copy of the flat distance buffer.
func (g *Grid) Distances() []float64 {
	return append([]float64(nil), g.dist...)
}

// GridToWorld returns the position of vertex (x, y, z). Boundary vertices
// on the upper faces land exactly on the grid maximum.
func (g *Grid) GridToWorld(x, y, z int) v3.Vec {
	return v3.Vec{
		X: axisToWorld(g.min.X, g.max.X, g.cell.X, x, g.res[0]),
		Y: axisToWorld(g.min.Y, g.max.Y, g.cell.Y, y, g.res[1]),
		Z: axisToWorld(g.min.Z, g.max.Z, g.cell.Z, z, g.res[2]),
	}
}

func axisToWorld(lo, hi, h float64, i, n int) float64 {
	if i == n-1 {
		return hi
	}
	return lo + float64(i)*h
}

// Radius returns half the length of the grid diagonal.
func (g *Grid) Radius() float64 {
	return 0.5 * g.max.Sub(g.min).Length()
}

// Stats returns the diagnostics recorded by Build.
func (g *Grid) Stats() BuildStats {
	return g.stats
}

// Summary reports the range and mean of the distances.
func (g *Grid) Summary() FieldSummary {
	s := FieldSummary{
		Min:  floats.Min(g.dist),
		Max:  floats.Max(g.dist),
		Mean: floats.Sum(g.dist) / float64(len(g.dist)),
	}
	for _, d := range g.dist {
		if d < 0 {
			s.Inside++
		}
	}
	return s
}

// EqualWithin reports whether two grids share a lattice and agree on every
// distance to within tol.
func (g *Grid) EqualWithin(other *Grid, tol float64) bool {
	if other == nil || g.res != other.res {
		return false
	}
	if !vecWithin(g.min, other.min, tol) || !vecWithin(g.max, other.max, tol) {
		return false
	}
	for i, d := range g.dist {
		if math.Abs(d-other.dist[i]) > tol {
			return false
		}
	}
	return true
}

func vecWithin(a, b v3.Vec, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol && math.Abs(a.Z-b.Z) <= tol
}
