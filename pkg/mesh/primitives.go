package mesh

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// NewBox returns a closed, outward oriented box of the given size centred
// on center, made of 8 vertices and 12 triangles.
func NewBox(center, size v3.Vec) *Mesh {
	h := size.MulScalar(0.5)
	m := &Mesh{Vertices: make([]v3.Vec, 8)}
	for i := range m.Vertices {
		v := v3.Vec{X: -h.X, Y: -h.Y, Z: -h.Z}
		if i&1 != 0 {
			v.X = h.X
		}
		if i&2 != 0 {
			v.Y = h.Y
		}
		if i&4 != 0 {
			v.Z = h.Z
		}
		m.Vertices[i] = center.Add(v)
	}
	m.Faces = [][]int{
		{0, 2, 3}, {0, 3, 1}, // -z
		{4, 5, 7}, {4, 7, 6}, // +z
		{0, 4, 6}, {0, 6, 2}, // -x
		{1, 3, 7}, {1, 7, 5}, // +x
		{0, 1, 5}, {0, 5, 4}, // -y
		{2, 6, 7}, {2, 7, 3}, // +y
	}
	return m
}

// NewIcosphere returns a closed triangulated sphere approximation of the
// given radius. Each subdivision level splits every triangle into four.
func NewIcosphere(center v3.Vec, radius float64, subdivisions int) *Mesh {
	t := (1 + math.Sqrt(5)) / 2
	verts := []v3.Vec{
		{X: -1, Y: t}, {X: 1, Y: t}, {X: -1, Y: -t}, {X: 1, Y: -t},
		{Y: -1, Z: t}, {Y: 1, Z: t}, {Y: -1, Z: -t}, {Y: 1, Z: -t},
		{X: t, Z: -1}, {X: t, Z: 1}, {X: -t, Z: -1}, {X: -t, Z: 1},
	}
	for i := range verts {
		verts[i] = verts[i].Normalize()
	}
	faces := [][3]int{
		{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
		{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
		{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
		{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
	}

	for s := 0; s < subdivisions; s++ {
		mid := make(map[Edge]int)
		midpoint := func(a, b int) int {
			e := makeEdge(a, b)
			if i, ok := mid[e]; ok {
				return i
			}
			verts = append(verts, verts[a].Add(verts[b]).MulScalar(0.5).Normalize())
			mid[e] = len(verts) - 1
			return len(verts) - 1
		}
		next := make([][3]int, 0, 4*len(faces))
		for _, f := range faces {
			ab := midpoint(f[0], f[1])
			bc := midpoint(f[1], f[2])
			ca := midpoint(f[2], f[0])
			next = append(next,
				[3]int{f[0], ab, ca},
				[3]int{f[1], bc, ab},
				[3]int{f[2], ca, bc},
				[3]int{ab, bc, ca},
			)
		}
		faces = next
	}

	m := &Mesh{Vertices: make([]v3.Vec, len(verts)), Faces: make([][]int, len(faces))}
	for i, v := range verts {
		m.Vertices[i] = center.Add(v.MulScalar(radius))
	}
	for i, f := range faces {
		// the unit sphere is convex around the origin, so the centroid
		// direction is the outward side
		tri := Triangle{verts[f[0]], verts[f[1]], verts[f[2]]}
		if tri.Normal().Dot(tri.Centroid()) < 0 {
			f[1], f[2] = f[2], f[1]
		}
		m.Faces[i] = []int{f[0], f[1], f[2]}
	}
	return m
}
