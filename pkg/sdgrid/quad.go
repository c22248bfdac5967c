package sdgrid

import (
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Quadratic interpolation works on blocks of 2x2x2 cells (3x3x3 vertices).
// Each block is split into the same six tetrahedra as a marching cell,
// around its low-to-high diagonal. A tetrahedron's four corners and six
// edge midpoints are all lattice vertices, and the field inside it is the
// unique quadratic through those ten values. The field is continuous
// across tetrahedra and blocks. On an axis with an odd number of cells the
// last cell reuses the final block shifted back by one cell, and the field
// may jump where the shifted and unshifted blocks meet.

// quadEdges are the corner pairs of a tetrahedron's six edge nodes, in
// coefficient order after the four corners.
var quadEdges = [6][2]int{{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}}

// quadTet is one tetrahedron of a quadratic block: the ten node values and
// the axes of its edge path from the block's low corner to its high one.
type quadTet struct {
	coef  [10]float64
	order [3]int
}

func (g *Grid) checkQuad() error {
	for a, n := range g.res {
		if n < 3 {
			return fmt.Errorf("sdgrid: quadratic interpolation needs 3 vertices on axis %d, have %d: %w", a, n, ErrInvalidArgument)
		}
	}
	return nil
}

// quadBlock locates the block holding gp and the block coordinates of gp,
// each in [0, 1].
func (g *Grid) quadBlock(gp v3.Vec) (base [3]int, u [3]float64) {
	c := [3]float64{gp.X, gp.Y, gp.Z}
	for a := 0; a < 3; a++ {
		b := 2 * int(c[a]/2)
		b = clampInt(b, 0, g.res[a]-3)
		base[a] = b
		u[a] = math.Max(0, math.Min(1, (c[a]-float64(b))/2))
	}
	return base, u
}

// tetOrder sorts the axes by decreasing block coordinate, which selects
// the tetrahedron containing u. Ties keep axis order.
func tetOrder(u [3]float64) [3]int {
	o := [3]int{0, 1, 2}
	for i := 1; i < 3; i++ {
		for j := i; j > 0 && u[o[j]] > u[o[j-1]]; j-- {
			o[j], o[j-1] = o[j-1], o[j]
		}
	}
	return o
}

// quadCoefs gathers the node values of the tetrahedron of block base
// whose edge path follows order.
func (g *Grid) quadCoefs(base [3]int, order [3]int) quadTet {
	// corners in half-block (vertex) offsets
	var corner [4][3]int
	corner[1][order[0]] = 2
	corner[2] = corner[1]
	corner[2][order[1]] = 2
	corner[3] = [3]int{2, 2, 2}

	at := func(h [3]int) float64 {
		return g.dist[g.Index(base[0]+h[0], base[1]+h[1], base[2]+h[2])]
	}
	q := quadTet{order: order}
	for i, h := range corner {
		q.coef[i] = at(h)
	}
	for k, e := range quadEdges {
		a, b := corner[e[0]], corner[e[1]]
		q.coef[4+k] = at([3]int{(a[0] + b[0]) / 2, (a[1] + b[1]) / 2, (a[2] + b[2]) / 2})
	}
	return q
}

// eval returns the quadratic and, when withGrad is set, its gradient with
// respect to the block coordinates.
func (q *quadTet) eval(u [3]float64, withGrad bool) (float64, [3]float64) {
	o := q.order
	l := [4]float64{1 - u[o[0]], u[o[0]] - u[o[1]], u[o[1]] - u[o[2]], u[o[2]]}

	var d float64
	for i := 0; i < 4; i++ {
		d += q.coef[i] * l[i] * (2*l[i] - 1)
	}
	for k, e := range quadEdges {
		d += 4 * q.coef[4+k] * l[e[0]] * l[e[1]]
	}
	if !withGrad {
		return d, [3]float64{}
	}

	// gradients of the barycentric coordinates
	var dl [4][3]float64
	dl[0][o[0]] = -1
	dl[1][o[0]], dl[1][o[1]] = 1, -1
	dl[2][o[1]], dl[2][o[2]] = 1, -1
	dl[3][o[2]] = 1

	var grad [3]float64
	for i := 0; i < 4; i++ {
		s := q.coef[i] * (4*l[i] - 1)
		for a := 0; a < 3; a++ {
			grad[a] += s * dl[i][a]
		}
	}
	for k, e := range quadEdges {
		i, j := e[0], e[1]
		s := 4 * q.coef[4+k]
		for a := 0; a < 3; a++ {
			grad[a] += s * (l[j]*dl[i][a] + l[i]*dl[j][a])
		}
	}
	return d, grad
}

// quadAt evaluates the quadratic field at fractional lattice coordinates.
// The gradient is in world units.
func (g *Grid) quadAt(gp v3.Vec, withGrad bool) (float64, v3.Vec) {
	base, u := g.quadBlock(gp)
	q := g.quadCoefs(base, tetOrder(u))
	d, gu := q.eval(u, withGrad)
	if !withGrad {
		return d, v3.Vec{}
	}
	// one block spans two cells
	return d, v3.Vec{X: gu[0] / (2 * g.cell.X), Y: gu[1] / (2 * g.cell.Y), Z: gu[2] / (2 * g.cell.Z)}
}

// QuadDistanceAt interpolates the signed distance at p quadratically.
func (g *Grid) QuadDistanceAt(p v3.Vec) (float64, error) {
	if err := g.checkQuad(); err != nil {
		return 0, err
	}
	gp, err := g.WorldToGrid(p)
	if err != nil {
		return 0, err
	}
	d, _ := g.quadAt(gp, false)
	return d, nil
}

// QuadDistanceAndGradientAt interpolates the distance at p quadratically
// and returns the exact gradient of the interpolant, which is linear
// inside each tetrahedron.
func (g *Grid) QuadDistanceAndGradientAt(p v3.Vec) (float64, v3.Vec, error) {
	if err := g.checkQuad(); err != nil {
		return 0, v3.Vec{}, err
	}
	gp, err := g.WorldToGrid(p)
	if err != nil {
		return 0, v3.Vec{}, err
	}
	d, grad := g.quadAt(gp, true)
	return d, grad, nil
}
