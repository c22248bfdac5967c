package sdgrid

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/distgrid/pkg/mesh"
)

// boundsEpsilon is the slack, in cells, allowed past the grid bounds
// before a query is rejected.
const boundsEpsilon = 1e-9

// WorldToGrid converts p to fractional lattice coordinates. Points within
// a tiny tolerance of the bounds are clamped onto them.
func (g *Grid) WorldToGrid(p v3.Vec) (v3.Vec, error) {
	x, okx := toAxis(p.X, g.min.X, g.cell.X, g.res[0])
	y, oky := toAxis(p.Y, g.min.Y, g.cell.Y, g.res[1])
	z, okz := toAxis(p.Z, g.min.Z, g.cell.Z, g.res[2])
	if !okx || !oky || !okz {
		return v3.Vec{}, fmt.Errorf("sdgrid: point %v outside %v..%v: %w", p, g.min, g.max, ErrOutOfBounds)
	}
	return v3.Vec{X: x, Y: y, Z: z}, nil
}

func toAxis(v, lo, h float64, n int) (float64, bool) {
	t := (v - lo) / h
	top := float64(n - 1)
	if math.IsNaN(t) || t < -boundsEpsilon || t > top+boundsEpsilon {
		return 0, false
	}
	return math.Max(0, math.Min(top, t)), true
}

// cellOf splits fractional coordinates into a base vertex and the offsets
// inside that cell. The base is clamped so points on the upper faces use
// the last cell.
func (g *Grid) cellOf(gp v3.Vec) (base [3]int, t [3]float64) {
	c := [3]float64{gp.X, gp.Y, gp.Z}
	for a := 0; a < 3; a++ {
		i := int(math.Floor(c[a]))
		i = clampInt(i, 0, g.res[a]-2)
		base[a] = i
		t[a] = c[a] - float64(i)
	}
	return base, t
}

// corner weights of the trilinear interpolant; bit 0 selects x+1, bit 1
// y+1, bit 2 z+1.
func trilinearWeights(t [3]float64) [8]float64 {
	var w [8]float64
	for c := 0; c < 8; c++ {
		wx, wy, wz := 1-t[0], 1-t[1], 1-t[2]
		if c&1 != 0 {
			wx = t[0]
		}
		if c&2 != 0 {
			wy = t[1]
		}
		if c&4 != 0 {
			wz = t[2]
		}
		w[c] = wx * wy * wz
	}
	return w
}

func (g *Grid) cornerIndex(base [3]int, c int) int {
	return g.Index(base[0]+(c&1), base[1]+((c>>1)&1), base[2]+((c>>2)&1))
}

// trilinearAt interpolates the distance at fractional lattice coordinates.
func (g *Grid) trilinearAt(gp v3.Vec) float64 {
	base, t := g.cellOf(gp)
	w := trilinearWeights(t)
	var d float64
	for c := 0; c < 8; c++ {
		d += w[c] * g.dist[g.cornerIndex(base, c)]
	}
	return d
}

// DistanceAt interpolates the signed distance at p.
func (g *Grid) DistanceAt(p v3.Vec) (float64, error) {
	gp, err := g.WorldToGrid(p)
	if err != nil {
		return 0, err
	}
	return g.trilinearAt(gp), nil
}

// DistanceAndNormalAt interpolates the distance at p together with a unit
// normal blended from finite difference gradients at the cell corners. The
// normal is zero where the blended gradient vanishes.
func (g *Grid) DistanceAndNormalAt(p v3.Vec) (float64, v3.Vec, error) {
	gp, err := g.WorldToGrid(p)
	if err != nil {
		return 0, v3.Vec{}, err
	}
	base, t := g.cellOf(gp)
	w := trilinearWeights(t)
	var d float64
	var n v3.Vec
	for c := 0; c < 8; c++ {
		x, y, z := base[0]+(c&1), base[1]+((c>>1)&1), base[2]+((c>>2)&1)
		d += w[c] * g.dist[g.Index(x, y, z)]
		n = n.Add(g.vertexGradient(x, y, z).MulScalar(w[c]))
	}
	if l := n.Length(); l > 0 {
		n = n.MulScalar(1 / l)
	}
	return d, n, nil
}

// DistanceAndGradientAt interpolates the distance at p and returns the exact
// gradient of the trilinear interpolant there.
func (g *Grid) DistanceAndGradientAt(p v3.Vec) (float64, v3.Vec, error) {
	gp, err := g.WorldToGrid(p)
	if err != nil {
		return 0, v3.Vec{}, err
	}
	base, t := g.cellOf(gp)
	var d float64
	var grad [3]float64
	for c := 0; c < 8; c++ {
		v := g.dist[g.cornerIndex(base, c)]
		var f, df [3]float64
		for a := 0; a < 3; a++ {
			if (c>>a)&1 != 0 {
				f[a], df[a] = t[a], 1
			} else {
				f[a], df[a] = 1-t[a], -1
			}
		}
		d += v * f[0] * f[1] * f[2]
		grad[0] += v * df[0] * f[1] * f[2]
		grad[1] += v * f[0] * df[1] * f[2]
		grad[2] += v * f[0] * f[1] * df[2]
	}
	return d, v3.Vec{X: grad[0] / g.cell.X, Y: grad[1] / g.cell.Y, Z: grad[2] / g.cell.Z}, nil
}

// vertexGradient estimates the world-space distance gradient at a vertex
// with central differences, one-sided on the boundary.
func (g *Grid) vertexGradient(x, y, z int) v3.Vec {
	diff := func(i, n int, h float64, at func(int) float64) float64 {
		switch {
		case i == 0:
			return (at(1) - at(0)) / h
		case i == n-1:
			return (at(n-1) - at(n-2)) / h
		default:
			return (at(i+1) - at(i-1)) / (2 * h)
		}
	}
	return v3.Vec{
		X: diff(x, g.res[0], g.cell.X, func(i int) float64 { return g.VertexDistance(i, y, z) }),
		Y: diff(y, g.res[1], g.cell.Y, func(j int) float64 { return g.VertexDistance(x, j, z) }),
		Z: diff(z, g.res[2], g.cell.Z, func(k int) float64 { return g.VertexDistance(x, y, k) }),
	}
}

// ClosestFaceAt returns the mesh face recorded for vertex idx, or -1 when
// none was recorded.
func (g *Grid) ClosestFaceAt(idx int) (int, error) {
	if idx < 0 || idx >= len(g.face) {
		return -1, fmt.Errorf("sdgrid: vertex index %d of %d: %w", idx, len(g.face), ErrOutOfBounds)
	}
	if g.stale {
		return -1, fmt.Errorf("sdgrid: closest face at %d: %w", idx, ErrStaleFeatures)
	}
	return int(g.face[idx]), nil
}

// Seeded reports whether vertex idx received its distance directly from a
// nearby face rather than through propagation.
func (g *Grid) Seeded(idx int) bool {
	return idx >= 0 && idx < len(g.seeded) && g.seeded[idx]
}

// ClosestVertex returns the flat index of the lattice vertex nearest p.
func (g *Grid) ClosestVertex(p v3.Vec) (int, error) {
	gp, err := g.WorldToGrid(p)
	if err != nil {
		return -1, err
	}
	x := clampInt(int(math.Round(gp.X)), 0, g.res[0]-1)
	y := clampInt(int(math.Round(gp.Y)), 0, g.res[1]-1)
	z := clampInt(int(math.Round(gp.Z)), 0, g.res[2]-1)
	return g.Index(x, y, z), nil
}

// NearestFace returns the face recorded at the vertex nearest p and the
// exact nearest point of that face to p. m must be the mesh the grid was
// built from.
func (g *Grid) NearestFace(m *mesh.Mesh, p v3.Vec) (int, v3.Vec, error) {
	idx, err := g.ClosestVertex(p)
	if err != nil {
		return -1, v3.Vec{}, err
	}
	f, err := g.ClosestFaceAt(idx)
	if err != nil {
		return -1, v3.Vec{}, err
	}
	if m == nil || f < 0 || f >= m.NumFaces() || len(m.Faces[f]) < 3 {
		return -1, v3.Vec{}, fmt.Errorf("sdgrid: face %d not in mesh: %w", f, ErrInvalidArgument)
	}
	return f, m.Triangle(f).NearestPoint(p), nil
}

// Evaluate returns the signed distance at p. Outside the bounds it adds the
// distance from p to the bounds onto the value at the nearest bounds point.
func (g *Grid) Evaluate(p v3.Vec) float64 {
	q := p.Max(g.min).Min(g.max)
	gp := v3.Vec{
		X: math.Max(0, math.Min(float64(g.res[0]-1), (q.X-g.min.X)/g.cell.X)),
		Y: math.Max(0, math.Min(float64(g.res[1]-1), (q.Y-g.min.Y)/g.cell.Y)),
		Z: math.Max(0, math.Min(float64(g.res[2]-1), (q.Z-g.min.Z)/g.cell.Z)),
	}
	return g.trilinearAt(gp) + p.Sub(q).Length()
}

// BoundingBox returns the grid bounds.
func (g *Grid) BoundingBox() sdf.Box3 {
	return g.Bounds()
}

var _ sdf.SDF3 = (*Grid)(nil)
