package mesh

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// degenerateRatio is the squared sine below which a triangle is treated as
// a segment for nearest point queries.
const degenerateRatio = 1e-24

// Triangle holds the corner positions of one face.
type Triangle struct {
	A, B, C v3.Vec
}

// Normal returns the unit normal following the right hand rule over A, B, C.
// A degenerate triangle returns the zero vector.
func (t Triangle) Normal() v3.Vec {
	n := t.B.Sub(t.A).Cross(t.C.Sub(t.A))
	l := n.Length()
	if l == 0 {
		return v3.Vec{}
	}
	return n.MulScalar(1 / l)
}

// Area returns the triangle area.
func (t Triangle) Area() float64 {
	return 0.5 * t.B.Sub(t.A).Cross(t.C.Sub(t.A)).Length()
}

// Centroid returns the mean of the three corners.
func (t Triangle) Centroid() v3.Vec {
	return t.A.Add(t.B).Add(t.C).MulScalar(1.0 / 3.0)
}

// Bounds returns the axis-aligned box around the corners.
func (t Triangle) Bounds() sdf.Box3 {
	return sdf.Box3{
		Min: t.A.Min(t.B).Min(t.C),
		Max: t.A.Max(t.B).Max(t.C),
	}
}

// Distance returns the unsigned distance from p to the triangle.
func (t Triangle) Distance(p v3.Vec) float64 {
	return p.Sub(t.NearestPoint(p)).Length()
}

// NearestPoint returns the point of the triangle closest to p. The search
// walks the Voronoi regions of the corners, then the edges, and finally
// projects onto the interior.
func (t Triangle) NearestPoint(p v3.Vec) v3.Vec {
	a, b, c := t.A, t.B, t.C
	ab := b.Sub(a)
	ac := c.Sub(a)

	cr := ab.Cross(ac)
	scale := ab.Dot(ab) * ac.Dot(ac)
	if cr.Dot(cr) <= degenerateRatio*scale || scale == 0 {
		return t.nearestOnEdges(p)
	}

	ap := p.Sub(a)
	d1 := ab.Dot(ap)
	d2 := ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}

	bp := p.Sub(b)
	d3 := ab.Dot(bp)
	d4 := ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		return a.Add(ab.MulScalar(d1 / (d1 - d3)))
	}

	cp := p.Sub(c)
	d5 := ab.Dot(cp)
	d6 := ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		return a.Add(ac.MulScalar(d2 / (d2 - d6)))
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return b.Add(c.Sub(b).MulScalar(w))
	}

	denom := 1 / (va + vb + vc)
	return a.Add(ab.MulScalar(vb * denom)).Add(ac.MulScalar(vc * denom))
}

// nearestOnEdges handles slivers and collapsed triangles.
func (t Triangle) nearestOnEdges(p v3.Vec) v3.Vec {
	best := nearestOnSegment(p, t.A, t.B)
	bestD := p.Sub(best).Length()
	for _, q := range []v3.Vec{nearestOnSegment(p, t.B, t.C), nearestOnSegment(p, t.C, t.A)} {
		if d := p.Sub(q).Length(); d < bestD {
			best, bestD = q, d
		}
	}
	return best
}

func nearestOnSegment(p, a, b v3.Vec) v3.Vec {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 == 0 {
		return a
	}
	s := p.Sub(a).Dot(ab) / l2
	s = math.Max(0, math.Min(1, s))
	return a.Add(ab.MulScalar(s))
}
