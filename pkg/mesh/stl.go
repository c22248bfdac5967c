package mesh

import (
	"fmt"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
)

// Triangles returns the faces as sdfx triangles. Polygons are fanned from
// their first vertex.
func (m *Mesh) Triangles() []*sdf.Triangle3 {
	tris := make([]*sdf.Triangle3, 0, len(m.Faces))
	for _, f := range m.Faces {
		for k := 1; k+1 < len(f); k++ {
			tris = append(tris, &sdf.Triangle3{m.Vertices[f[0]], m.Vertices[f[k]], m.Vertices[f[k+1]]})
		}
	}
	return tris
}

// SaveSTL writes the mesh to a binary STL file.
func (m *Mesh) SaveSTL(path string) error {
	if err := render.SaveSTL(path, m.Triangles()); err != nil {
		return fmt.Errorf("mesh: save stl %s: %w", path, err)
	}
	return nil
}
