package sdgrid

import (
	"math"
	"testing"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/distgrid/pkg/mesh"
)

func TestWorldToGridRoundTrip(t *testing.T) {
	t.Parallel()

	g := buildBox(t, 11)
	for _, ijk := range [][3]int{{0, 0, 0}, {10, 10, 10}, {3, 7, 2}, {10, 0, 5}} {
		p := g.GridToWorld(ijk[0], ijk[1], ijk[2])
		gp, err := g.WorldToGrid(p)
		require.NoError(t, err)
		assert.InDelta(t, float64(ijk[0]), gp.X, 1e-9)
		assert.InDelta(t, float64(ijk[1]), gp.Y, 1e-9)
		assert.InDelta(t, float64(ijk[2]), gp.Z, 1e-9)
	}
	assert.Equal(t, g.Bounds().Max, g.GridToWorld(10, 10, 10))
	assert.Equal(t, g.Bounds().Min, g.GridToWorld(0, 0, 0))

	idx := g.Index(3, 7, 2)
	x, y, z := g.VertexIndices(idx)
	assert.Equal(t, [3]int{3, 7, 2}, [3]int{x, y, z})
}

func TestQueriesOutsideBounds(t *testing.T) {
	t.Parallel()

	g := buildBox(t, 11)
	bb := g.Bounds()
	outside := []v3.Vec{
		{X: bb.Max.X + 0.01},
		{Y: bb.Min.Y - 0.01},
		{Z: 100},
		{X: math.NaN()},
	}
	for _, p := range outside {
		_, err := g.WorldToGrid(p)
		assert.ErrorIs(t, err, ErrOutOfBounds, "%v", p)
		_, err = g.DistanceAt(p)
		assert.ErrorIs(t, err, ErrOutOfBounds)
		_, _, err = g.DistanceAndNormalAt(p)
		assert.ErrorIs(t, err, ErrOutOfBounds)
		_, _, err = g.DistanceAndGradientAt(p)
		assert.ErrorIs(t, err, ErrOutOfBounds)
		_, err = g.ClosestVertex(p)
		assert.ErrorIs(t, err, ErrOutOfBounds)
	}

	// a hair past the upper corner is clamped onto it
	h := g.CellSize()
	p := bb.Max.Add(v3.Vec{X: h.X * 1e-12, Y: h.Y * 1e-12, Z: h.Z * 1e-12})
	d, err := g.DistanceAt(p)
	require.NoError(t, err)
	assert.InDelta(t, g.VertexDistance(10, 10, 10), d, 1e-9)

	_, err = g.ClosestFaceAt(-1)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = g.ClosestFaceAt(g.NumVertices())
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestDistanceAtInterpolatesVertices(t *testing.T) {
	t.Parallel()

	g := buildBox(t, 9)
	for i := 0; i < g.NumVertices(); i += 7 {
		x, y, z := g.VertexIndices(i)
		d, err := g.DistanceAt(g.GridToWorld(x, y, z))
		require.NoError(t, err)
		assert.InDelta(t, g.VertexDistance(x, y, z), d, 1e-9)
	}
}

func TestDistanceContinuousAcrossCells(t *testing.T) {
	t.Parallel()

	g, err := Build(mesh.NewIcosphere(v3.Vec{}, 1, 2), 0.1, [3]int{14, 14, 14})
	require.NoError(t, err)
	h := g.CellSize()
	const eps = 1e-9
	for k := 1; k < 13; k++ {
		plane := g.GridToWorld(k, k, k)
		segments := []struct{ lo, hi v3.Vec }{
			{v3.Vec{X: plane.X - eps, Y: 0.13, Z: -0.21}, v3.Vec{X: plane.X + eps, Y: 0.13, Z: -0.21}},
			{v3.Vec{X: 0.31, Y: plane.Y - eps, Z: 0.05}, v3.Vec{X: 0.31, Y: plane.Y + eps, Z: 0.05}},
			{v3.Vec{X: -0.4, Y: 0.27, Z: plane.Z - eps}, v3.Vec{X: -0.4, Y: 0.27, Z: plane.Z + eps}},
		}
		for _, seg := range segments {
			a, err := g.DistanceAt(seg.lo)
			require.NoError(t, err)
			b, err := g.DistanceAt(seg.hi)
			require.NoError(t, err)
			// the interpolant is Lipschitz with a constant of a few units
			assert.InDelta(t, a, b, 1e-6, "plane %d step %v", k, h)
		}
	}
}

func TestNormalNearPlanarFace(t *testing.T) {
	t.Parallel()

	g := buildBox(t, 21)
	for _, p := range []v3.Vec{
		{X: 0.1, Y: -0.05, Z: 0.55},
		{X: -0.12, Y: 0.08, Z: 0.47},
		{X: 0.0, Y: 0.0, Z: 0.5},
	} {
		d, n, err := g.DistanceAndNormalAt(p)
		require.NoError(t, err)
		assert.InDelta(t, p.Z-0.5, d, 1e-6)
		assert.Greater(t, n.Dot(v3.Vec{Z: 1}), 0.999, "normal %v at %v", n, p)
		assert.InDelta(t, 1.0, n.Length(), 1e-9)

		d2, grad, err := g.DistanceAndGradientAt(p)
		require.NoError(t, err)
		assert.InDelta(t, d, d2, 1e-12)
		assert.InDelta(t, 0.0, grad.X, 1e-6)
		assert.InDelta(t, 0.0, grad.Y, 1e-6)
		assert.InDelta(t, 1.0, grad.Z, 1e-6)
	}
}

func TestGradientMatchesFiniteDifference(t *testing.T) {
	t.Parallel()

	g, err := Build(mesh.NewIcosphere(v3.Vec{}, 1, 2), 0.1, [3]int{12, 12, 12})
	require.NoError(t, err)
	const eps = 1e-7
	for _, p := range []v3.Vec{{X: 0.33, Y: 0.21, Z: -0.17}, {X: -0.71, Y: 0.52, Z: 0.4}, {X: 1.03, Y: -0.02, Z: 0.09}} {
		_, grad, err := g.DistanceAndGradientAt(p)
		require.NoError(t, err)
		axes := []v3.Vec{{X: eps}, {Y: eps}, {Z: eps}}
		want := make([]float64, 3)
		for a, step := range axes {
			hi, err := g.DistanceAt(p.Add(step))
			require.NoError(t, err)
			lo, err := g.DistanceAt(p.Sub(step))
			require.NoError(t, err)
			want[a] = (hi - lo) / (2 * eps)
		}
		assert.InDelta(t, want[0], grad.X, 1e-5)
		assert.InDelta(t, want[1], grad.Y, 1e-5)
		assert.InDelta(t, want[2], grad.Z, 1e-5)
	}
}

func TestClosestVertexAndNearestFace(t *testing.T) {
	t.Parallel()

	m := unitBox()
	g, err := Build(m, 0.1, [3]int{21, 21, 21})
	require.NoError(t, err)

	p := v3.Vec{X: 0.2, Y: -0.1, Z: 0.58}
	idx, err := g.ClosestVertex(p)
	require.NoError(t, err)
	x, y, z := g.VertexIndices(idx)
	q := g.GridToWorld(x, y, z)
	assert.LessOrEqual(t, q.Sub(p).Length(), 0.5*g.CellSize().Length()+1e-12)

	f, nearest, err := g.NearestFace(m, p)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, m.Triangle(f).Normal().Z, 1e-12, "top face expected, got %d", f)
	assert.InDelta(t, 0.2, nearest.X, 1e-12)
	assert.InDelta(t, -0.1, nearest.Y, 1e-12)
	assert.InDelta(t, 0.5, nearest.Z, 1e-12)

	_, _, err = g.NearestFace(nil, p)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, _, err = g.NearestFace(m, v3.Vec{X: 5})
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestEvaluateExtendsOutsideGrid(t *testing.T) {
	t.Parallel()

	g := buildBox(t, 21)
	var s sdf.SDF3 = g
	assert.Equal(t, g.Bounds(), s.BoundingBox())

	inside, err := g.DistanceAt(v3.Vec{X: 0.2, Y: 0.1})
	require.NoError(t, err)
	assert.InDelta(t, inside, s.Evaluate(v3.Vec{X: 0.2, Y: 0.1}), 1e-12)
	assert.InDelta(t, 4.5, s.Evaluate(v3.Vec{X: 5}), 1e-6)
	assert.Greater(t, s.Evaluate(v3.Vec{X: 3, Y: 3, Z: 3}), 3.0)
}
