// Package mesh provides the polygon mesh consumed and produced by the
// distance grid: indexed vertices, polygonal faces, and the triangle
// geometry queries (normals, areas, nearest points) the grid builder needs.
package mesh

import (
	"errors"
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Mesh is an indexed polygon mesh. Faces list vertex indices counter
// clockwise when seen from outside the solid.
type Mesh struct {
	Vertices []v3.Vec
	Faces    [][]int
}

// ErrMalformed is returned by Validate and New for meshes whose faces
// reference missing vertices, have fewer than three corners, or whose
// vertices are not finite.
var ErrMalformed = errors.New("mesh: malformed")

// New builds a mesh from vertex positions and polygonal faces. The slices
// are copied so the caller may reuse them.
func New(vertices []v3.Vec, faces [][]int) (*Mesh, error) {
	m := &Mesh{
		Vertices: append([]v3.Vec(nil), vertices...),
		Faces:    make([][]int, len(faces)),
	}
	for i, f := range faces {
		m.Faces[i] = append([]int(nil), f...)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// NumVertices returns the number of vertices.
func (m *Mesh) NumVertices() int {
	return len(m.Vertices)
}

// NumFaces returns the number of faces.
func (m *Mesh) NumFaces() int {
	return len(m.Faces)
}

// IsEmpty returns true if the mesh has no faces.
func (m *Mesh) IsEmpty() bool {
	return len(m.Faces) == 0
}

// Validate checks face arity, index ranges and vertex finiteness.
func (m *Mesh) Validate() error {
	for i, v := range m.Vertices {
		if !finite(v) {
			return fmt.Errorf("%w: vertex %d is not finite", ErrMalformed, i)
		}
	}
	for i, f := range m.Faces {
		if len(f) < 3 {
			return fmt.Errorf("%w: face %d has %d vertices", ErrMalformed, i, len(f))
		}
		for _, vi := range f {
			if vi < 0 || vi >= len(m.Vertices) {
				return fmt.Errorf("%w: face %d references vertex %d of %d", ErrMalformed, i, vi, len(m.Vertices))
			}
		}
	}
	return nil
}

// IsTriangular reports whether every face has exactly three vertices.
func (m *Mesh) IsTriangular() bool {
	for _, f := range m.Faces {
		if len(f) != 3 {
			return false
		}
	}
	return true
}

// Triangle returns the geometry of triangular face i. Only the first three
// corners are used, so callers should check IsTriangular first.
func (m *Mesh) Triangle(i int) Triangle {
	f := m.Faces[i]
	return Triangle{m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]}
}

// Triangulate returns a new mesh in which every polygon has been split
// into a triangle fan around its first vertex. Vertices are shared with
// the copy, not aliased.
func (m *Mesh) Triangulate() *Mesh {
	out := &Mesh{Vertices: append([]v3.Vec(nil), m.Vertices...)}
	for _, f := range m.Faces {
		for k := 1; k+1 < len(f); k++ {
			out.Faces = append(out.Faces, []int{f[0], f[k], f[k+1]})
		}
	}
	return out
}

// Bounds returns the axis-aligned bounding box of the vertices referenced
// by faces. An empty mesh returns a zero box.
func (m *Mesh) Bounds() sdf.Box3 {
	lo := v3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	hi := v3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	seen := false
	for _, f := range m.Faces {
		for _, vi := range f {
			lo = lo.Min(m.Vertices[vi])
			hi = hi.Max(m.Vertices[vi])
			seen = true
		}
	}
	if !seen {
		return sdf.Box3{}
	}
	return sdf.Box3{Min: lo, Max: hi}
}

// Volume returns the signed enclosed volume using the divergence theorem.
// It is positive for closed meshes with outward facing normals.
func (m *Mesh) Volume() float64 {
	var vol float64
	for _, f := range m.Faces {
		a := m.Vertices[f[0]]
		for k := 1; k+1 < len(f); k++ {
			b := m.Vertices[f[k]]
			c := m.Vertices[f[k+1]]
			vol += a.Dot(b.Cross(c))
		}
	}
	return vol / 6
}

// Area returns the total surface area.
func (m *Mesh) Area() float64 {
	var area float64
	for _, f := range m.Faces {
		for k := 1; k+1 < len(f); k++ {
			t := Triangle{m.Vertices[f[0]], m.Vertices[f[k]], m.Vertices[f[k+1]]}
			area += t.Area()
		}
	}
	return area
}

// Edge is an undirected mesh edge with A < B.
type Edge struct {
	A, B int
}

func makeEdge(a, b int) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{A: a, B: b}
}

// EdgeUse counts how many faces use each undirected edge.
func (m *Mesh) EdgeUse() map[Edge]int {
	use := make(map[Edge]int)
	for _, f := range m.Faces {
		for k := range f {
			use[makeEdge(f[k], f[(k+1)%len(f)])]++
		}
	}
	return use
}

// BoundaryEdges returns the number of edges used by exactly one face.
func (m *Mesh) BoundaryEdges() int {
	n := 0
	for _, c := range m.EdgeUse() {
		if c == 1 {
			n++
		}
	}
	return n
}

// IsClosed reports whether every edge is shared by exactly two faces.
// An empty mesh is not closed.
func (m *Mesh) IsClosed() bool {
	if m.IsEmpty() {
		return false
	}
	for _, c := range m.EdgeUse() {
		if c != 2 {
			return false
		}
	}
	return true
}

func finite(v v3.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsNaN(v.Z) &&
		!math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0) && !math.IsInf(v.Z, 0)
}
