package sdgrid

import (
	"math"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/distgrid/pkg/mesh"
)

// quadField is an arbitrary full quadratic with its gradient.
func quadField(p v3.Vec) (float64, v3.Vec) {
	x, y, z := p.X, p.Y, p.Z
	f := 0.3*x*x - 0.5*y*y + 0.2*z*z + 0.4*x*y - 0.1*y*z + 0.25*x*z + x - 2*y + 0.5*z + 0.1
	grad := v3.Vec{
		X: 0.6*x + 0.4*y + 0.25*z + 1,
		Y: -y + 0.4*x - 0.1*z - 2,
		Z: 0.4*z - 0.1*y + 0.25*x + 0.5,
	}
	return f, grad
}

// fieldGrid samples f directly onto a lattice.
func fieldGrid(lo, hi v3.Vec, res [3]int, f func(v3.Vec) float64) *Grid {
	g := newGrid(lo, hi, res)
	for z := 0; z < res[2]; z++ {
		for y := 0; y < res[1]; y++ {
			for x := 0; x < res[0]; x++ {
				g.dist[g.Index(x, y, z)] = f(g.GridToWorld(x, y, z))
			}
		}
	}
	return g
}

// spreadPoints returns n deterministic points scattered over lo..hi.
func spreadPoints(lo, hi v3.Vec, n int) []v3.Vec {
	size := hi.Sub(lo)
	pts := make([]v3.Vec, n)
	for i := range pts {
		t := float64(i)
		pts[i] = lo.Add(v3.Vec{
			X: size.X * math.Mod(0.1234+t*0.6180339, 1),
			Y: size.Y * math.Mod(0.3770+t*0.4142136, 1),
			Z: size.Z * math.Mod(0.9000+t*0.7320508, 1),
		})
	}
	return pts
}

func TestQuadReproducesQuadraticField(t *testing.T) {
	t.Parallel()

	lo, hi := v3.Vec{X: -1, Y: -0.5, Z: 0}, v3.Vec{X: 1.5, Y: 1, Z: 2}
	// 6 vertices on y leaves an odd cell count and a shifted last block
	g := fieldGrid(lo, hi, [3]int{7, 6, 5}, func(p v3.Vec) float64 {
		f, _ := quadField(p)
		return f
	})

	pts := append(spreadPoints(lo, hi, 60), lo, hi, v3.Vec{X: 1.5, Y: -0.5, Z: 1})
	for _, p := range pts {
		want, wantGrad := quadField(p)

		d, err := g.QuadDistanceAt(p)
		require.NoError(t, err)
		assert.InDelta(t, want, d, 1e-9, "at %v", p)

		d, grad, err := g.QuadDistanceAndGradientAt(p)
		require.NoError(t, err)
		assert.InDelta(t, want, d, 1e-9, "at %v", p)
		assert.InDelta(t, wantGrad.X, grad.X, 1e-8, "at %v", p)
		assert.InDelta(t, wantGrad.Y, grad.Y, 1e-8, "at %v", p)
		assert.InDelta(t, wantGrad.Z, grad.Z, 1e-8, "at %v", p)
	}
}

func TestQuadMatchesVertexValues(t *testing.T) {
	t.Parallel()

	g := buildBox(t, 11)
	for _, ijk := range [][3]int{{0, 0, 0}, {10, 10, 10}, {3, 7, 2}, {5, 5, 5}, {10, 0, 9}} {
		p := g.GridToWorld(ijk[0], ijk[1], ijk[2])
		d, err := g.QuadDistanceAt(p)
		require.NoError(t, err)
		assert.InDelta(t, g.VertexDistance(ijk[0], ijk[1], ijk[2]), d, 1e-9)
	}
}

func TestQuadGradientMatchesFiniteDifference(t *testing.T) {
	t.Parallel()

	g, err := Build(mesh.NewIcosphere(v3.Vec{}, 1, 2), 0.1, [3]int{13, 13, 13})
	require.NoError(t, err)
	const eps = 1e-7
	for _, p := range []v3.Vec{{X: 0.33, Y: 0.21, Z: -0.17}, {X: -0.71, Y: 0.52, Z: 0.4}, {X: 1.03, Y: -0.02, Z: 0.09}} {
		_, grad, err := g.QuadDistanceAndGradientAt(p)
		require.NoError(t, err)
		axes := []v3.Vec{{X: eps}, {Y: eps}, {Z: eps}}
		want := make([]float64, 3)
		for a, step := range axes {
			hi, err := g.QuadDistanceAt(p.Add(step))
			require.NoError(t, err)
			lo, err := g.QuadDistanceAt(p.Sub(step))
			require.NoError(t, err)
			want[a] = (hi - lo) / (2 * eps)
		}
		assert.InDelta(t, want[0], grad.X, 1e-5)
		assert.InDelta(t, want[1], grad.Y, 1e-5)
		assert.InDelta(t, want[2], grad.Z, 1e-5)
	}
}

func TestQuadUnitCubeRoundTrip(t *testing.T) {
	t.Parallel()

	g, err := Build(unitBox(), 0.1, [3]int{21, 21, 21})
	require.NoError(t, err)

	for _, up := range []int{1, 2} {
		surf, err := g.ExtractQuadIsoSurface(0, up)
		require.NoError(t, err)
		require.False(t, surf.IsEmpty())
		require.NoError(t, surf.Validate())
		assert.Zero(t, surf.BoundaryEdges(), "upsample %d", up)
		assert.True(t, surf.IsClosed(), "upsample %d", up)
		assert.InDelta(t, 1.0, surf.Volume(), 0.05, "upsample %d", up)

		h := g.CellSize().Length()
		for _, v := range surf.Vertices {
			d, err := g.QuadDistanceAt(v)
			require.NoError(t, err)
			assert.Less(t, math.Abs(d), h)
		}
	}

	// without refinement the samples are the vertex values
	lin, err := g.ExtractIsoSurface(0, 1)
	require.NoError(t, err)
	quad, err := g.ExtractQuadIsoSurface(0, 1)
	require.NoError(t, err)
	assert.Equal(t, lin.Faces, quad.Faces)
	assert.InDelta(t, lin.Volume(), quad.Volume(), 1e-9)
}

func TestQuadRejectsBadInput(t *testing.T) {
	t.Parallel()

	g := buildBox(t, 9)
	_, err := g.QuadDistanceAt(g.Bounds().Max.Add(v3.Vec{X: 1}))
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, _, err = g.QuadDistanceAndGradientAt(v3.Vec{X: math.NaN()})
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = g.ExtractQuadIsoSurface(0, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = g.ExtractQuadIsoSurface(math.Inf(1), 1)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	thin, err := Build(unitBox(), 0.1, [3]int{2, 9, 9})
	require.NoError(t, err)
	_, err = thin.QuadDistanceAt(v3.Vec{})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = thin.ExtractQuadIsoSurface(0, 2)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
