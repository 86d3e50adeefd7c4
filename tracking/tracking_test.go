package tracking

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decibelcooper/eutel/geometry"
)

var planeZ = []float64{0, 100, 200, 300, 400, 500}

func lineHits(x0, y0, sx, sy float64) []Hit {
	hits := make([]Hit, len(planeZ))
	for i, z := range planeZ {
		hits[i] = Hit{
			X: x0 + sx*z, Y: y0 + sy*z, Z: z,
			Ex: 3.5e-3, Ey: 3.5e-3,
			Plane: i, ClusterSize: 2,
		}
	}
	return hits
}

func TestTripletBaseAndSlope(t *testing.T) {
	a := Hit{X: 1, Y: 2, Z: 0, Plane: 0}
	b := Hit{X: 1.6, Y: 1.7, Z: 20, Plane: 1}
	c := Hit{X: 3, Y: 1, Z: 40, Plane: 2}

	for _, order := range [][3]Hit{{a, b, c}, {c, a, b}, {b, c, a}} {
		tr, err := NewTriplet(order[0], order[1], order[2])
		require.NoError(t, err)
		assert.Equal(t, 20.0, tr.Base().Z)
		assert.Equal(t, 2.0, tr.Base().X)
		sx, sy := tr.Slope()
		assert.Equal(t, (c.X-a.X)/(c.Z-a.Z), sx)
		assert.Equal(t, (c.Y-a.Y)/(c.Z-a.Z), sy)
		assert.Equal(t, a, tr.First())
		assert.Equal(t, b, tr.Middle())
		assert.Equal(t, c, tr.Last())
	}

	tr, _ := NewTriplet(a, b, c)
	rx, ry := tr.MiddleResidual()
	assert.InDelta(t, -0.4, rx, 1e-12)
	assert.InDelta(t, 0.2, ry, 1e-12)

	_, err := NewTriplet(a, a, c)
	assert.Error(t, err)
}

func TestTripletExtrapolationBoundary(t *testing.T) {
	a := Hit{X: 0.1234567, Y: -4.32, Z: 12.5, Plane: 0}
	b := Hit{X: 0.2, Y: -4.2, Z: 31.7, Plane: 1}
	c := Hit{X: 0.3333333, Y: -4.01, Z: 57.3, Plane: 2}
	tr, err := NewTriplet(a, b, c)
	require.NoError(t, err)

	assert.Equal(t, a.X, tr.XAt(a.Z))
	assert.Equal(t, a.Y, tr.YAt(a.Z))
	assert.Equal(t, c.X, tr.XAt(c.Z))
	assert.Equal(t, c.Y, tr.YAt(c.Z))
}

func TestFindStraightTrack(t *testing.T) {
	hits := lineHits(0, 0, 0.01, -0.005)
	f := Finder{ResidualCut: 0.1, AngleCut: 0.01}

	up := f.Find(hits, 0, 1, 2)
	down := f.Find(hits, 3, 4, 5)
	require.Len(t, up, 1)
	require.Len(t, down, 1)
	assert.Equal(t, [3]int{0, 1, 2}, up[0].Planes())
	assert.Equal(t, [3]int{3, 4, 5}, down[0].Planes())

	m := Matcher{Cut: 0.1, Isolation: 0.3, Z: 250}
	tracks, stats := m.Match(up, down)
	require.Len(t, tracks, 1)
	assert.Equal(t, 1, stats.Accepted)
	dx, dy := tracks[0].DeltaAt(250)
	assert.InDelta(t, 0, dx, 1e-12)
	assert.InDelta(t, 0, dy, 1e-12)
	assert.InDelta(t, 0, tracks[0].Kink(), 1e-12)
}

func TestFindAngleCut(t *testing.T) {
	hits := lineHits(0, 0, 0.01, -0.02)
	assert.Empty(t, FindTriplets(hits, 0, 1, 2, 0.1, 0.01))
	assert.Len(t, FindTriplets(hits, 0, 1, 2, 0.1, 0.03), 1)
}

func TestFindKeepsAllMiddleHits(t *testing.T) {
	hits := lineHits(1, 1, 0, 0)[:3]
	hits = append(hits, Hit{X: 1.05, Y: 1, Z: 100, Plane: 1}, Hit{X: 1.5, Y: 1, Z: 100, Plane: 1})
	triplets := FindTriplets(hits, 0, 1, 2, 0.1, 0.01)
	assert.Len(t, triplets, 2)
}

func TestIsolation(t *testing.T) {
	var hits []Hit
	hits = append(hits, lineHits(0, 0, 0, 0)...)
	hits = append(hits, lineHits(0.05, 0, 0, 0)...)
	hits = append(hits, lineHits(5, 5, 0, 0)...)
	f := Finder{ResidualCut: 0.02, AngleCut: 0.01}
	up := f.Find(hits, 0, 1, 2)
	down := f.Find(hits, 3, 4, 5)
	require.Len(t, up, 3)

	isolated := 0
	for _, tr := range up {
		if IsTripletIsolated(tr, up, 250, 0.3) {
			isolated++
		}
	}
	assert.Equal(t, 1, isolated)
	assert.True(t, IsTripletIsolated(up[0], up, 250, 0))

	tracks, stats := Matcher{Cut: 0.01, Isolation: 0.3, Z: 250}.Match(up, down)
	require.Len(t, tracks, 1)
	assert.InDelta(t, 5.0, tracks[0].Up.First().X, 1e-12)
	assert.Equal(t, 2, stats.NotIsolatedUp)

	tracks, _ = Matcher{Cut: 0.01, Z: 250}.Match(up, down)
	assert.Len(t, tracks, 3)
}

func TestMatchCutMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	var hits []Hit
	for i := 0; i < 6; i++ {
		track := lineHits(rng.Float64()*2, rng.Float64()*2, rng.NormFloat64()*1e-3, rng.NormFloat64()*1e-3)
		for j := range track {
			track[j].X += rng.NormFloat64() * 0.01
			track[j].Y += rng.NormFloat64() * 0.01
		}
		hits = append(hits, track...)
	}
	f := Finder{ResidualCut: 0.1, AngleCut: 0.01}
	up := f.Find(hits, 0, 1, 2)
	down := f.Find(hits, 3, 4, 5)

	prev := 0
	for _, cut := range []float64{0, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1, 5} {
		tracks, _ := Matcher{Cut: cut, Z: 250}.Match(up, down)
		assert.GreaterOrEqual(t, len(tracks), prev, "cut %g", cut)
		prev = len(tracks)
	}
	assert.Equal(t, len(up)*len(down), prev)
}

func TestTrackIntersection(t *testing.T) {
	up, err := NewTriplet(Hit{X: 0, Z: 0, Plane: 0}, Hit{X: 0, Z: 10, Plane: 1}, Hit{X: 0, Z: 20, Plane: 2})
	require.NoError(t, err)
	down, err := NewTriplet(Hit{X: 0.5, Z: 30, Plane: 3}, Hit{X: 1.0, Z: 40, Plane: 4}, Hit{X: 1.5, Z: 50, Plane: 5})
	require.NoError(t, err)
	tr, err := NewTrack(up, down, 25)
	require.NoError(t, err)

	p := tr.Intersection()
	assert.InDelta(t, 20.0, p.Z, 1e-9)
	assert.InDelta(t, 0.0, p.X, 1e-9)
	assert.InDelta(t, 0.05, tr.KinkX(), 1e-12)

	parallel, err := NewTrack(up, up2(t), 25)
	require.NoError(t, err)
	assert.InDelta(t, 25.0, parallel.Intersection().Z, 1e-12)

	_, err = NewTrack(down, up, 25)
	assert.Error(t, err)
}

func up2(t *testing.T) Triplet {
	tr, err := NewTriplet(Hit{X: 1, Z: 30, Plane: 3}, Hit{X: 1, Z: 40, Plane: 4}, Hit{X: 1, Z: 50, Plane: 5})
	require.NoError(t, err)
	return tr
}

func TestAssignPlanes(t *testing.T) {
	geo := geometry.Default(100)
	hits := []Hit{{Z: 100.2}, {Z: 499.9}}
	require.NoError(t, AssignPlanes(hits, geo, 1))
	assert.Equal(t, 1, hits[0].Plane)
	assert.Equal(t, 5, hits[1].Plane)

	err := AssignPlanes([]Hit{{Z: 150}}, geo, 1)
	assert.ErrorIs(t, err, ErrUnassociatedHit)

	assert.Equal(t, []int{0, 1, 0, 0, 0, 1, 0}, CountPerPlane(hits, 7))
}

func TestScaleCut(t *testing.T) {
	assert.InDelta(t, 0.1, ScaleCut(0.1, 6, 20), 1e-15)
	assert.InDelta(t, 0.05, ScaleCut(0.1, 12, 20), 1e-15)
	assert.InDelta(t, 0.5, ScaleCut(0.1, 6, 100), 1e-15)
	assert.False(t, math.IsNaN(ScaleCut(0.1, 1, 1)))
}
