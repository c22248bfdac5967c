package sdgrid

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// rigidTolerance bounds the deviation of a pose's rotation from
// orthonormal.
const rigidTolerance = 1e-9

// The lattice, Bounds and the plain queries are in local coordinates. A
// rigid local-to-world pose lets a grid follow a moving body; the World*
// queries take world points and return world gradients.

func checkRigid(m sdf.M44) error {
	for _, v := range m {
		if !isFinite(v) {
			return fmt.Errorf("sdgrid: pose has non-finite entries: %w", ErrInvalidArgument)
		}
	}
	if m[12] != 0 || m[13] != 0 || m[14] != 0 || m[15] != 1 {
		return fmt.Errorf("sdgrid: pose is not affine: %w", ErrInvalidArgument)
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			dot := m[4*i]*m[4*j] + m[4*i+1]*m[4*j+1] + m[4*i+2]*m[4*j+2]
			want := 0.0
			if i == j {
				want = 1
			}
			if math.Abs(dot-want) > rigidTolerance {
				return fmt.Errorf("sdgrid: pose rotation is not orthonormal: %w", ErrInvalidArgument)
			}
		}
	}
	if m.Determinant() < 0 {
		return fmt.Errorf("sdgrid: pose is a reflection: %w", ErrInvalidArgument)
	}
	return nil
}

// rotate applies the rotation part of m to v.
func rotate(m sdf.M44, v v3.Vec) v3.Vec {
	return v3.Vec{
		X: m[0]*v.X + m[1]*v.Y + m[2]*v.Z,
		Y: m[4]*v.X + m[5]*v.Y + m[6]*v.Z,
		Z: m[8]*v.X + m[9]*v.Y + m[10]*v.Z,
	}
}

// SetLocalToWorld sets the rigid pose of the grid. m must be a rotation
// plus translation. Like Smooth it must not run alongside queries.
func (g *Grid) SetLocalToWorld(m sdf.M44) error {
	if err := checkRigid(m); err != nil {
		return err
	}
	g.toWorld = m
	g.toLocal = m.Inverse()
	return nil
}

// LocalToWorld returns the pose of the grid, the identity by default.
func (g *Grid) LocalToWorld() sdf.M44 {
	return g.toWorld
}

// WorldToLocal maps a world point into grid-local coordinates.
func (g *Grid) WorldToLocal(p v3.Vec) v3.Vec {
	return g.toLocal.MulPosition(p)
}

// WorldDistanceAt is DistanceAt for a world point.
func (g *Grid) WorldDistanceAt(p v3.Vec) (float64, error) {
	return g.DistanceAt(g.WorldToLocal(p))
}

// WorldDistanceAndGradientAt is DistanceAndGradientAt for a world point,
// with the gradient rotated into world coordinates.
func (g *Grid) WorldDistanceAndGradientAt(p v3.Vec) (float64, v3.Vec, error) {
	d, grad, err := g.DistanceAndGradientAt(g.WorldToLocal(p))
	if err != nil {
		return 0, v3.Vec{}, err
	}
	return d, rotate(g.toWorld, grad), nil
}

// WorldQuadDistanceAt is QuadDistanceAt for a world point.
func (g *Grid) WorldQuadDistanceAt(p v3.Vec) (float64, error) {
	return g.QuadDistanceAt(g.WorldToLocal(p))
}

// WorldQuadDistanceAndGradientAt is QuadDistanceAndGradientAt for a world
// point, with the gradient rotated into world coordinates.
func (g *Grid) WorldQuadDistanceAndGradientAt(p v3.Vec) (float64, v3.Vec, error) {
	d, grad, err := g.QuadDistanceAndGradientAt(g.WorldToLocal(p))
	if err != nil {
		return 0, v3.Vec{}, err
	}
	return d, rotate(g.toWorld, grad), nil
}
