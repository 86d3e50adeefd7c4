package trackfit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decibelcooper/eutel/geometry"
	"github.com/decibelcooper/eutel/tracking"
)

func testResolution(t *testing.T) Resolution {
	r, err := NewResolution([]float64{3.5e-3, 3.5e-3, 3.5e-3, 3.5e-3, 3.5e-3, 3.5e-3, 3.5e-3, 3.5e-3})
	require.NoError(t, err)
	return r
}

func testMaterial(t *testing.T, energy float64) Material {
	m, err := NewMaterial(geometry.Default(100), nil, 0.025, energy, 1)
	require.NoError(t, err)
	return m
}

func straightHits(sx, sy float64) []tracking.Hit {
	hits := make([]tracking.Hit, 6)
	for i := range hits {
		z := float64(i) * 100
		hits[i] = tracking.Hit{X: sx * z, Y: sy * z, Z: z, Ex: 3.5e-3, Ey: 3.5e-3, Plane: i, ClusterSize: 2}
	}
	return hits
}

func trackOf(t *testing.T, hits []tracking.Hit) tracking.Track {
	up, err := tracking.NewTriplet(hits[0], hits[1], hits[2])
	require.NoError(t, err)
	down, err := tracking.NewTriplet(hits[3], hits[4], hits[5])
	require.NoError(t, err)
	tr, err := tracking.NewTrack(up, down, 250)
	require.NoError(t, err)
	return tr
}

func TestResolutionBuckets(t *testing.T) {
	r, err := NewResolution([]float64{4, 1, 2, 3, 0, 5, 6, 7})
	require.NoError(t, err)
	assert.Equal(t, 4.0, r.For(0))
	assert.Equal(t, 4.0, r.For(-1))
	assert.Equal(t, 1.0, r.For(1))
	assert.Equal(t, 3.0, r.For(3))
	assert.Equal(t, 4.0, r.For(4))
	assert.Equal(t, 6.0, r.For(6))
	assert.Equal(t, 7.0, r.For(7))
	assert.Equal(t, 7.0, r.For(40))

	_, err = NewResolution([]float64{1, 2})
	assert.Error(t, err)
}

func TestTheta0ScalesWithEnergy(t *testing.T) {
	m6 := testMaterial(t, 6)
	m12 := testMaterial(t, 12)
	eps := m6.PlaneEps[2]
	assert.InDelta(t, m6.Theta0(eps)/2, m12.Theta0(eps), 1e-15)
	assert.InDelta(t, 4*m6.Precision(eps), m12.Precision(eps), 1e-6*m12.Precision(eps))

	assert.InDelta(t, 0.05/geometry.X0Silicon+0.025/X0Kapton, eps, 1e-15)
	assert.InDelta(t, 100/X0Air, m6.AirEps(0), 1e-15)
	assert.InDelta(t, 6*eps+500/X0Air, m6.SumEps(), 1e-12)

	_, err := NewMaterial(geometry.Default(100), []float64{0.05}, 0, 6, 1)
	assert.Error(t, err)
}

func TestBuildExcludesDUT(t *testing.T) {
	b := Builder{Material: testMaterial(t, 6), Resolution: testResolution(t), DUT: 2}
	traj, labels, err := b.Build(trackOf(t, straightHits(0.01, -0.005)))
	require.NoError(t, err)
	require.Equal(t, 16, traj.NumPoints())
	require.Len(t, labels, 16)

	planes := 0
	for i, l := range labels {
		p := traj.Point(i)
		assert.True(t, p.HasScatterer())
		if l.Plane < 0 {
			assert.False(t, p.HasMeasurement())
			continue
		}
		planes++
		assert.Equal(t, l.Plane != 2, p.HasMeasurement(), "plane %d", l.Plane)
		assert.Equal(t, l.Plane != 2, l.Measured)
	}
	assert.Equal(t, 6, planes)

	assert.InDelta(t, 21.0, traj.Point(1).S, 1e-12)
	assert.InDelta(t, 79.0, traj.Point(2).S, 1e-12)
	assert.InDelta(t, 100.0, traj.Point(3).S, 1e-12)
}

func TestFitStraightTrack(t *testing.T) {
	hits := straightHits(0.01, -0.005)
	f := tracking.Finder{ResidualCut: 0.1, AngleCut: 0.01}
	up := f.Find(hits, 0, 1, 2)
	down := f.Find(hits, 3, 4, 5)
	require.Len(t, up, 1)
	require.Len(t, down, 1)
	tracks, _ := tracking.Matcher{Cut: 0.1, Isolation: 0.3, Z: 250}.Match(up, down)
	require.Len(t, tracks, 1)

	fitter := Fitter{
		Builder: Builder{Material: testMaterial(t, 6), Resolution: testResolution(t), DUT: -1},
		ProbCut: 0.01,
	}
	res, err := fitter.Fit(tracks[0])
	require.NoError(t, err)
	assert.Equal(t, 8, res.Ndf)
	assert.InDelta(t, 0, res.Chi2/float64(res.Ndf), 1e-9)
	assert.Greater(t, res.Prob, 0.99)
	assert.True(t, res.Good)
	require.Len(t, res.Planes, 6)
	for _, p := range res.Planes {
		assert.True(t, p.Measured)
		assert.InDelta(t, 0, p.ResX, 1e-9)
		assert.InDelta(t, 0, p.ResY, 1e-9)
	}
}

func TestFitUnbiasedDUT(t *testing.T) {
	hits := straightHits(0.002, 0.001)
	hits[2].X += 0.05

	fitter := Fitter{
		Builder: Builder{Material: testMaterial(t, 6), Resolution: testResolution(t), DUT: 2},
		ProbCut: 0.01,
	}
	res, err := fitter.Fit(trackOf(t, hits))
	require.NoError(t, err)
	assert.Equal(t, 6, res.Ndf)
	assert.InDelta(t, 0, res.Chi2, 1e-9)

	dut, ok := res.Plane(2)
	require.True(t, ok)
	assert.False(t, dut.Measured)
	assert.True(t, dut.HasHit)
	assert.InDelta(t, 0.05, dut.ResX, 1e-7)
	assert.InDelta(t, 0, dut.ResY, 1e-7)
	assert.InDelta(t, dut.ResX/math.Sqrt(3.5e-3*3.5e-3+dut.CovX), dut.PullX, 1e-9)
	assert.Greater(t, dut.CovX, 0.0)

	ref, _ := res.Plane(1)
	assert.InDelta(t, 0, ref.ResX, 1e-7)
}

func TestProb(t *testing.T) {
	assert.Equal(t, 1.0, Prob(3, 0))
	assert.InDelta(t, 1.0, Prob(0, 8), 1e-12)
	assert.InDelta(t, 0.5, Prob(1.3862943611198906, 2), 1e-9)
}
