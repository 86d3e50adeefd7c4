package trackfit

import (
	"fmt"

	"github.com/decibelcooper/eutel/gbl"
	"github.com/decibelcooper/eutel/tracking"
)

// Label ties a trajectory point back to the telescope. Plane is -1 for air.
type Label struct {
	Plane    int
	Measured bool
}

// Builder creates trajectories for tracks. DUT is the plane index that
// contributes scattering only; a negative DUT measures every plane.
type Builder struct {
	Material   Material
	Resolution Resolution
	DUT        int
}

// Build walks the planes in z order. Each plane gets a point with its
// scatterer and, unless it is the DUT, the residual of its hit against the
// upstream triplet. Two air points split each gap.
func (b Builder) Build(track tracking.Track) (*gbl.Trajectory, []Label, error) {
	m := b.Material
	n := len(m.Z)
	if n < 2 {
		return nil, nil, fmt.Errorf("trackfit: material model has %d planes", n)
	}
	seed := track.Up
	z0 := m.Z[0]

	points := make([]gbl.Point, 0, 3*n-2)
	labels := make([]Label, 0, 3*n-2)
	for i := 0; i < n; i++ {
		p := gbl.NewPoint(m.Z[i] - z0)
		label := Label{Plane: i}
		if hit, ok := track.HitOn(i); ok && i != b.DUT {
			res := b.Resolution.For(hit.ClusterSize)
			w := 1 / (res * res)
			rx, ry := seed.Residual(hit)
			p.AddMeasurement([2]float64{rx, ry}, [2]float64{w, w})
			label.Measured = true
		}
		w := m.Precision(m.PlaneEps[i])
		p.AddScatterer([2]float64{}, [2]float64{w, w})
		points = append(points, p)
		labels = append(labels, label)

		if i+1 == n {
			break
		}
		gap := m.Z[i+1] - m.Z[i]
		wAir := m.Precision(0.5 * m.AirEps(i))
		for _, f := range airFractions {
			air := gbl.NewPoint(m.Z[i] + f*gap - z0)
			air.AddScatterer([2]float64{}, [2]float64{wAir, wAir})
			points = append(points, air)
			labels = append(labels, Label{Plane: -1})
		}
	}

	traj, err := gbl.NewTrajectory(points)
	if err != nil {
		return nil, nil, err
	}
	return traj, labels, nil
}
