package scene

import v3 "github.com/deadsy/sdfx/vec/v3"

// ---------------------------------------------------------------------------
// Primitives
// ---------------------------------------------------------------------------

// BoxData is an axis-aligned box centred on the origin.
type BoxData struct {
	Size v3.Vec `json:"size"` // full extents along x, y, z
}

func (BoxData) nodeData() {}

// SphereData is a sphere centred on the origin.
type SphereData struct {
	Radius float64 `json:"radius"`
}

func (SphereData) nodeData() {}

// CylinderData is a z-aligned cylinder centred on the origin.
type CylinderData struct {
	Height float64 `json:"height"`
	Radius float64 `json:"radius"`
}

func (CylinderData) nodeData() {}

// ---------------------------------------------------------------------------
// Booleans
// ---------------------------------------------------------------------------

// BooleanOp selects the CSG operation of a boolean node.
type BooleanOp int

const (
	OpUnion        BooleanOp = iota // all children
	OpDifference                    // first child minus the rest
	OpIntersection                  // common volume of all children
)

func (op BooleanOp) String() string {
	switch op {
	case OpUnion:
		return "union"
	case OpDifference:
		return "difference"
	case OpIntersection:
		return "intersection"
	default:
		return "unknown"
	}
}

// BooleanData combines two or more child solids.
type BooleanData struct {
	Op BooleanOp `json:"op"`
}

func (BooleanData) nodeData() {}

// ---------------------------------------------------------------------------
// Transform
// ---------------------------------------------------------------------------

// TransformData moves or rotates its single child. Rotation is applied
// before translation.
type TransformData struct {
	Translation *v3.Vec `json:"translation,omitempty"`
	Rotation    *v3.Vec `json:"rotation,omitempty"` // Euler angles in degrees
}

func (TransformData) nodeData() {}
