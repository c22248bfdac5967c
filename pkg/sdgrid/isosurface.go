package sdgrid

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/distgrid/pkg/mesh"
)

// cubeCorners are the lattice offsets of the corners of a cell:
// 0=(0,0,0) 1=(1,0,0) 2=(1,1,0) 3=(0,1,0) 4=(0,0,1) 5=(1,0,1) 6=(1,1,1) 7=(0,1,1).
var cubeCorners = [8][3]int{
	{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
	{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
}

// cubeTets splits a cell into six tetrahedra sharing the 0-6 diagonal.
// Every cell face is cut along the diagonal from its low corner to its high
// corner, so adjacent cells agree on shared faces.
var cubeTets = [6][4]int{
	{0, 3, 7, 6}, {0, 7, 4, 6}, {0, 4, 5, 6},
	{0, 5, 1, 6}, {0, 1, 2, 6}, {0, 2, 3, 6},
}

// sampledField is a scalar lattice used for polygonisation.
type sampledField struct {
	res  [3]int
	min  v3.Vec
	cell v3.Vec
	val  []float64
}

func (s *sampledField) index(x, y, z int) int {
	return x + s.res[0]*(y+s.res[1]*z)
}

func (s *sampledField) position(x, y, z int) v3.Vec {
	return v3.Vec{
		X: s.min.X + float64(x)*s.cell.X,
		Y: s.min.Y + float64(y)*s.cell.Y,
		Z: s.min.Z + float64(z)*s.cell.Z,
	}
}

// resample evaluates at, which takes fractional lattice coordinates, on a
// lattice upsample times finer than the grid.
func (g *Grid) resample(upsample int, at func(gp v3.Vec) float64) *sampledField {
	var res [3]int
	for a := range res {
		res[a] = (g.res[a]-1)*upsample + 1
	}
	s := &sampledField{
		res:  res,
		min:  g.min,
		cell: g.cell.MulScalar(1 / float64(upsample)),
		val:  make([]float64, res[0]*res[1]*res[2]),
	}
	inv := 1 / float64(upsample)
	for z := 0; z < res[2]; z++ {
		for y := 0; y < res[1]; y++ {
			for x := 0; x < res[0]; x++ {
				gp := v3.Vec{X: float64(x) * inv, Y: float64(y) * inv, Z: float64(z) * inv}
				s.val[s.index(x, y, z)] = at(gp)
			}
		}
	}
	return s
}

func checkIsoArgs(level float64, upsample int) error {
	if !isFinite(level) {
		return fmt.Errorf("sdgrid: iso level %g: %w", level, ErrInvalidArgument)
	}
	if upsample < 1 {
		return fmt.Errorf("sdgrid: upsample %d: %w", upsample, ErrInvalidArgument)
	}
	return nil
}

// ExtractIsoSurface polygonises the level set {distance == level} with
// marching tetrahedra. upsample >= 1 first refines the lattice by that
// factor with trilinear interpolation. Vertices are shared along lattice
// edges, so the result is closed whenever the surface stays clear of the
// grid boundary. Triangles face towards increasing distance. An empty mesh
// is returned when nothing crosses the level.
func (g *Grid) ExtractIsoSurface(level float64, upsample int) (*mesh.Mesh, error) {
	if err := checkIsoArgs(level, upsample); err != nil {
		return nil, err
	}
	s := &sampledField{res: g.res, min: g.min, cell: g.cell, val: g.dist}
	if upsample > 1 {
		s = g.resample(upsample, g.trilinearAt)
	}
	return polygonise(s, level), nil
}

// ExtractQuadIsoSurface is ExtractIsoSurface over the quadratic
// interpolant. The quadratic field passes through the vertex values, so
// upsample 1 gives the same surface as ExtractIsoSurface.
func (g *Grid) ExtractQuadIsoSurface(level float64, upsample int) (*mesh.Mesh, error) {
	if err := checkIsoArgs(level, upsample); err != nil {
		return nil, err
	}
	if err := g.checkQuad(); err != nil {
		return nil, err
	}
	s := g.resample(upsample, func(gp v3.Vec) float64 {
		d, _ := g.quadAt(gp, false)
		return d
	})
	return polygonise(s, level), nil
}

func polygonise(s *sampledField, level float64) *mesh.Mesh {
	ex := &extractor{field: s, level: level, out: &mesh.Mesh{}, edges: make(map[mesh.Edge]int)}
	nx, ny, nz := s.res[0], s.res[1], s.res[2]
	var corner [8]int
	for z := 0; z < nz-1; z++ {
		for y := 0; y < ny-1; y++ {
			for x := 0; x < nx-1; x++ {
				for c, o := range cubeCorners {
					corner[c] = s.index(x+o[0], y+o[1], z+o[2])
				}
				for _, tet := range cubeTets {
					ex.tetrahedron([4]int{corner[tet[0]], corner[tet[1]], corner[tet[2]], corner[tet[3]]})
				}
			}
		}
	}
	return ex.out
}

type extractor struct {
	field *sampledField
	level float64
	out   *mesh.Mesh
	edges map[mesh.Edge]int // lattice edge -> output vertex
}

func (e *extractor) positionOf(idx int) v3.Vec {
	nx, ny := e.field.res[0], e.field.res[1]
	return e.field.position(idx%nx, (idx/nx)%ny, idx/(nx*ny))
}

// edgeVertex returns the output vertex where the level crosses the lattice
// edge between samples a and b, creating it on first use.
func (e *extractor) edgeVertex(a, b int) int {
	if a > b {
		a, b = b, a
	}
	key := mesh.Edge{A: a, B: b}
	if v, ok := e.edges[key]; ok {
		return v
	}
	va, vb := e.field.val[a], e.field.val[b]
	t := (e.level - va) / (vb - va)
	pa, pb := e.positionOf(a), e.positionOf(b)
	e.out.Vertices = append(e.out.Vertices, pa.Add(pb.Sub(pa).MulScalar(t)))
	v := len(e.out.Vertices) - 1
	e.edges[key] = v
	return v
}

func (e *extractor) tetrahedron(c [4]int) {
	var in, out []int
	for _, i := range c {
		if e.field.val[i] < e.level {
			in = append(in, i)
		} else {
			out = append(out, i)
		}
	}

	switch len(in) {
	case 1:
		e.emit(in, out, e.edgeVertex(in[0], out[0]), e.edgeVertex(in[0], out[1]), e.edgeVertex(in[0], out[2]))
	case 3:
		e.emit(in, out, e.edgeVertex(out[0], in[0]), e.edgeVertex(out[0], in[1]), e.edgeVertex(out[0], in[2]))
	case 2:
		// quad around the cut, split along one diagonal
		p := e.edgeVertex(in[0], out[0])
		q := e.edgeVertex(in[0], out[1])
		r := e.edgeVertex(in[1], out[1])
		s := e.edgeVertex(in[1], out[0])
		e.emit(in, out, p, q, r)
		e.emit(in, out, p, r, s)
	}
}

// emit appends triangle (a, b, c) wound so its normal points from the
// inside corners towards the outside corners.
func (e *extractor) emit(in, out []int, a, b, c int) {
	va, vb, vc := e.out.Vertices[a], e.out.Vertices[b], e.out.Vertices[c]
	n := vb.Sub(va).Cross(vc.Sub(va))
	dir := e.centroid(out).Sub(e.centroid(in))
	if n.Dot(dir) < 0 {
		b, c = c, b
	}
	e.out.Faces = append(e.out.Faces, []int{a, b, c})
}

func (e *extractor) centroid(idx []int) v3.Vec {
	var sum v3.Vec
	for _, i := range idx {
		sum = sum.Add(e.positionOf(i))
	}
	return sum.MulScalar(1 / float64(len(idx)))
}
