package gbl

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func measured(s float64, rx, ry float64) Point {
	p := NewPoint(s)
	p.AddMeasurement([2]float64{rx, ry}, [2]float64{1, 1})
	return p
}

func TestFitStraightLine(t *testing.T) {
	var points []Point
	for i := 0; i < 6; i++ {
		s := float64(i) * 100
		p := measured(s, 0.2+0.001*s, -0.1)
		p.AddScatterer([2]float64{}, [2]float64{1e6, 1e6})
		points = append(points, p)
		if i < 5 {
			for _, f := range []float64{0.21, 0.79} {
				air := NewPoint(s + f*100)
				air.AddScatterer([2]float64{}, [2]float64{1e8, 1e8})
				points = append(points, air)
			}
		}
	}
	traj, err := NewTrajectory(points)
	require.NoError(t, err)
	require.Equal(t, 16, traj.NumPoints())

	res, err := Fit(traj, "")
	require.NoError(t, err)
	assert.Equal(t, 8, res.Ndf)
	assert.InDelta(t, 0, res.Chi2, 1e-12)
	assert.Zero(t, res.LostWeight)

	// plane, air, air per gap: index 3 is the plane at s=100, 9 the one at s=300
	pr := res.Results(3)
	assert.InDelta(t, 0.2+0.001*100, pr.Offset[0], 1e-9)
	pr = res.Results(9)
	assert.InDelta(t, 0.2+0.001*300, pr.Offset[0], 1e-9)
	assert.InDelta(t, 0.001, pr.Slope[0], 1e-9)
	assert.InDelta(t, -0.1, pr.Offset[1], 1e-9)

	_, ok := res.MeasResults(1)
	assert.False(t, ok)
	_, ok = res.ScatResults(0)
	assert.False(t, ok)
	sr, ok := res.ScatResults(1)
	require.True(t, ok)
	assert.InDelta(t, 0, sr.Kink[0], 1e-9)
}

func TestFitWithoutScatterers(t *testing.T) {
	traj, err := NewTrajectory([]Point{measured(0, 0, 0), measured(1, 1, 0), measured(2, 0, 0)})
	require.NoError(t, err)
	res, err := Fit(traj, "")
	require.NoError(t, err)

	assert.Equal(t, 2, res.Ndf)
	assert.InDelta(t, 2.0/3, res.Chi2, 1e-12)

	mr, ok := res.MeasResults(1)
	require.True(t, ok)
	assert.InDelta(t, 2.0/3, mr.Residual[0], 1e-12)
	assert.InDelta(t, 1, mr.MeasErr[0], 1e-12)

	mr, _ = res.MeasResults(0)
	assert.InDelta(t, -1.0/3, mr.Residual[0], 1e-12)
	assert.InDelta(t, math.Sqrt(1.0/6), mr.ResErr[0], 1e-12)
	assert.InDelta(t, 5.0/6, res.Results(0).Cov[0], 1e-12)
}

func TestFitKinkPrecision(t *testing.T) {
	chi2 := func(prec float64) float64 {
		mid := measured(1, 1, 0)
		mid.AddScatterer([2]float64{}, [2]float64{prec, prec})
		traj, err := NewTrajectory([]Point{measured(0, 0, 0), mid, measured(2, 0, 0)})
		require.NoError(t, err)
		res, err := Fit(traj, "")
		require.NoError(t, err)
		assert.Equal(t, 2, res.Ndf)
		return res.Chi2
	}
	stiff, loose := chi2(1e6), chi2(1e-6)
	assert.InDelta(t, 2.0/3, stiff, 1e-4)
	assert.InDelta(t, 0, loose, 1e-4)
	assert.Greater(t, chi2(10), chi2(0.1))
}

func TestFitDownWeighting(t *testing.T) {
	var points []Point
	for i := 0; i < 5; i++ {
		r := 0.0
		if i == 2 {
			r = 10
		}
		points = append(points, measured(float64(i), r, 0))
	}
	traj, err := NewTrajectory(points)
	require.NoError(t, err)

	plain, err := Fit(traj, "")
	require.NoError(t, err)
	robust, err := Fit(traj, "HH")
	require.NoError(t, err)

	mr, _ := robust.MeasResults(2)
	assert.Less(t, mr.DownWeight[0], 1.0)
	assert.Equal(t, 1.0, mr.DownWeight[1])
	assert.Greater(t, robust.LostWeight, 0.0)
	assert.Less(t, robust.Chi2, plain.Chi2)
	assert.Equal(t, plain.Ndf, robust.Ndf)

	_, err = Fit(traj, "X")
	assert.Error(t, err)
}

func TestInvalidTrajectory(t *testing.T) {
	_, err := NewTrajectory([]Point{measured(0, 0, 0)})
	assert.ErrorIs(t, err, ErrInvalidTrajectory)

	_, err = NewTrajectory([]Point{measured(1, 0, 0), measured(0, 0, 0)})
	assert.ErrorIs(t, err, ErrInvalidTrajectory)

	_, err = NewTrajectory([]Point{measured(0, 0, 0), NewPoint(1), NewPoint(2)})
	assert.ErrorIs(t, err, ErrInvalidTrajectory)
}

func TestSingular(t *testing.T) {
	free := NewPoint(1)
	free.AddScatterer([2]float64{}, [2]float64{0, 0})
	traj, err := NewTrajectory([]Point{measured(0, 0, 0), free, measured(2, 0, 0)})
	require.NoError(t, err)
	_, err = Fit(traj, "")
	assert.ErrorIs(t, err, ErrSingular)
}
