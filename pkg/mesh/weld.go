package mesh

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// FromTriangles welds a triangle soup into an indexed mesh. Corners whose
// coordinates round to the same multiple of tol share a vertex; triangles
// that collapse after welding are dropped. A tol <= 0 welds only exact
// duplicates.
func FromTriangles(tris []Triangle, tol float64) *Mesh {
	type key struct{ x, y, z int64 }
	quant := func(v v3.Vec) key {
		if tol <= 0 {
			// +0 folds -0 onto 0
			return key{
				int64(math.Float64bits(v.X + 0)),
				int64(math.Float64bits(v.Y + 0)),
				int64(math.Float64bits(v.Z + 0)),
			}
		}
		return key{
			int64(math.Round(v.X / tol)),
			int64(math.Round(v.Y / tol)),
			int64(math.Round(v.Z / tol)),
		}
	}

	m := &Mesh{}
	index := make(map[key]int, len(tris))
	vertex := func(v v3.Vec) int {
		k := quant(v)
		if i, ok := index[k]; ok {
			return i
		}
		m.Vertices = append(m.Vertices, v)
		index[k] = len(m.Vertices) - 1
		return len(m.Vertices) - 1
	}

	for _, t := range tris {
		a, b, c := vertex(t.A), vertex(t.B), vertex(t.C)
		if a == b || b == c || c == a {
			continue
		}
		m.Faces = append(m.Faces, []int{a, b, c})
	}
	return m
}
