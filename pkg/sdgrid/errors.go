package sdgrid

import "errors"

// Error policy: only the sentinels below are exposed. Callers branch with
// errors.Is; implementations attach context with %w and never stringify
// parameters into the sentinel itself.

// ErrInvalidArgument indicates a resolution axis below two, a negative or
// NaN margin, a non-finite smoothing factor, a negative iteration count or
// an option outside its range.
var ErrInvalidArgument = errors.New("sdgrid: invalid argument")

// ErrInvalidMesh indicates a mesh that cannot be gridded: no faces,
// non-triangular faces, bad vertex indices, non-finite coordinates or a
// bounding box with zero diagonal.
var ErrInvalidMesh = errors.New("sdgrid: invalid mesh")

// ErrOutOfBounds indicates a query point outside the grid bounds or a
// vertex index outside the lattice.
var ErrOutOfBounds = errors.New("sdgrid: out of bounds")

// ErrInternalInvariant indicates that a freshly built field failed its
// finiteness or magnitude check. It points at a bug or at input the
// algorithm cannot handle; the grid is discarded.
var ErrInternalInvariant = errors.New("sdgrid: internal invariant violated")

// ErrStaleFeatures indicates that closest-face data was requested after
// Smooth changed the distances it described.
var ErrStaleFeatures = errors.New("sdgrid: closest-face data is stale")
