package mesh

import v3 "github.com/deadsy/sdfx/vec/v3"

// RenderBuffers is a triangle mesh laid out for a viewer.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type RenderBuffers struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	Name     string    `json:"name"`     // which grid job this came from
}

// VertexCount returns the number of vertices.
func (r *RenderBuffers) VertexCount() int {
	return len(r.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (r *RenderBuffers) TriangleCount() int {
	return len(r.Indices) / 3
}

// IsEmpty returns true if the buffers hold no geometry.
func (r *RenderBuffers) IsEmpty() bool {
	return len(r.Vertices) == 0
}

// Buffers flattens the mesh for rendering. Polygons are fanned into
// triangles and vertex normals are the area weighted mean of the adjacent
// face normals.
func (m *Mesh) Buffers(name string) *RenderBuffers {
	acc := make([]v3.Vec, len(m.Vertices))
	r := &RenderBuffers{
		Vertices: make([]float32, 0, 3*len(m.Vertices)),
		Normals:  make([]float32, 0, 3*len(m.Vertices)),
		Name:     name,
	}
	for _, f := range m.Faces {
		for k := 1; k+1 < len(f); k++ {
			a, b, c := f[0], f[k], f[k+1]
			// unnormalised cross product weights by area
			n := m.Vertices[b].Sub(m.Vertices[a]).Cross(m.Vertices[c].Sub(m.Vertices[a]))
			acc[a] = acc[a].Add(n)
			acc[b] = acc[b].Add(n)
			acc[c] = acc[c].Add(n)
			r.Indices = append(r.Indices, uint32(a), uint32(b), uint32(c))
		}
	}
	for i, v := range m.Vertices {
		n := acc[i]
		if l := n.Length(); l > 0 {
			n = n.MulScalar(1 / l)
		}
		r.Vertices = append(r.Vertices, float32(v.X), float32(v.Y), float32(v.Z))
		r.Normals = append(r.Normals, float32(n.X), float32(n.Y), float32(n.Z))
	}
	return r
}
