// Package sdgrid builds signed distance grids from closed triangle meshes.
//
// A Grid samples the signed distance to the mesh surface on a uniform
// lattice covering the mesh bounds plus a margin. Building runs in four
// steps:
//
//  1. seeding: vertices within one cell of a face receive the exact
//     distance to that face
//  2. propagation: diagonal sweeps hand each vertex the closest face of
//     its already visited neighbours when that face is nearer
//  3. sign: rays cast along z count face crossings; vertices above an
//     odd count are inside and become negative
//  4. validation: the field must be finite and within the grid diagonal
//
// Queries interpolate trilinearly; the Quad variants use a piecewise
// quadratic over 2x2x2 cell blocks. Smooth applies Taubin smoothing to the
// field, after which the per-vertex closest-face data is stale.
// ExtractIsoSurface and ExtractQuadIsoSurface polygonise a level set with
// marching tetrahedra. A grid may carry a rigid local-to-world pose for
// the World queries.
//
// A *Grid satisfies sdf.SDF3 from github.com/deadsy/sdfx, so grids can be
// rendered or combined with other sdfx solids.
package sdgrid
