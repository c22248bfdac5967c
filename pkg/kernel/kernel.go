// Package kernel defines the abstract solid modelling interface used to
// produce the meshes that distance grids are built from. Implementations
// (sdfx) provide primitives, booleans and tessellation behind this
// interface so the scene pipeline does not depend on a backend.
package kernel

import "github.com/chazu/distgrid/pkg/mesh"

// Solid is an opaque handle to a kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract solid modelling interface.
// Primitives are centred on the origin.
type Kernel interface {
	// Primitives
	Box(x, y, z float64) Solid
	Sphere(radius float64) Solid
	Cylinder(height, radius float64) Solid

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	// Mesh output: a closed, outward oriented, indexed triangle mesh
	ToMesh(s Solid) (*mesh.Mesh, error)
}
