// Package trackfit turns matched telescope tracks into broken-lines
// trajectories and extracts per-plane residuals and pulls from the fit.
package trackfit

import (
	"fmt"
	"math"

	"github.com/decibelcooper/eutel/geometry"
)

// Radiation lengths in mm.
const (
	X0Air    = 304200.0
	X0Kapton = 285.6
)

// Air point positions as fractions of a plane gap.
var airFractions = [2]float64{0.21, 0.79}

// Resolution holds the intrinsic resolution in mm by cluster size bucket:
// bucket 0 is the average, used for unknown sizes and empty buckets,
// buckets 1-6 are the sizes themselves and bucket 7 holds larger clusters.
type Resolution struct {
	Bins [8]float64
}

func NewResolution(values []float64) (Resolution, error) {
	var r Resolution
	if len(values) != len(r.Bins) {
		return r, fmt.Errorf("trackfit: resolution needs %d entries, got %d", len(r.Bins), len(values))
	}
	for i, v := range values {
		if v < 0 || (i == 0 && v == 0) {
			return r, fmt.Errorf("trackfit: invalid resolution %g in bucket %d", v, i)
		}
	}
	copy(r.Bins[:], values)
	return r, nil
}

// For returns the resolution for a cluster of the given size.
func (r Resolution) For(clusterSize int) float64 {
	bucket := clusterSize
	switch {
	case clusterSize <= 0:
		bucket = 0
	case clusterSize > 6:
		bucket = 7
	}
	if r.Bins[bucket] == 0 {
		return r.Bins[0]
	}
	return r.Bins[bucket]
}

// Material is the scattering model of the telescope.
type Material struct {
	Z          []float64
	PlaneEps   []float64
	BeamEnergy float64
	Kappa      float64
}

// NewMaterial computes radiation length fractions for every plane from the
// geometry. A non-nil thickness overrides the sensor thickness per plane.
// kapton is the thickness of passive foil on each plane.
func NewMaterial(geo geometry.Provider, thickness []float64, kapton, beamEnergy, kappa float64) (Material, error) {
	n := geo.NPlanes()
	if thickness != nil && len(thickness) != n {
		return Material{}, fmt.Errorf("trackfit: %d thickness values for %d planes", len(thickness), n)
	}
	if beamEnergy <= 0 {
		return Material{}, fmt.Errorf("trackfit: beam energy must be positive, got %g", beamEnergy)
	}
	m := Material{
		Z:          make([]float64, n),
		PlaneEps:   make([]float64, n),
		BeamEnergy: beamEnergy,
		Kappa:      kappa,
	}
	for i := 0; i < n; i++ {
		p := geo.Plane(i)
		d := p.Thickness
		if thickness != nil {
			d = thickness[i]
		}
		m.Z[i] = p.Z
		m.PlaneEps[i] = d/p.RadLength + kapton/X0Kapton
	}
	return m, nil
}

// AirEps is the radiation length fraction of the gap after plane i.
func (m Material) AirEps(i int) float64 {
	return (m.Z[i+1] - m.Z[i]) / X0Air
}

// SumEps is the total radiation length fraction along the telescope.
func (m Material) SumEps() float64 {
	var sum float64
	for i, eps := range m.PlaneEps {
		sum += eps
		if i+1 < len(m.Z) {
			sum += m.AirEps(i)
		}
	}
	return sum
}

// Theta0 is the Highland projected scattering angle for a scatterer of
// radiation length fraction eps.
func (m Material) Theta0(eps float64) float64 {
	return m.Kappa * 0.0136 / m.BeamEnergy * math.Sqrt(eps) * (1 + 0.038*math.Log(m.SumEps()))
}

// Precision is the kink weight 1/theta0^2 for eps.
func (m Material) Precision(eps float64) float64 {
	th := m.Theta0(eps)
	return 1 / (th * th)
}
